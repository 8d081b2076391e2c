package main

import (
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"hyperstacks/internal/models"
	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/config"
	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/imageio"
	"hyperstacks/pkg/selector"
	"hyperstacks/pkg/transform"
)

func newImportCommand(a *app) *cobra.Command {
	var (
		out      string
		extents  string
		typeName string
		anns     []string
	)
	cmd := &cobra.Command{
		Use:   "import DIR",
		Short: "Load a directory of numbered PNG, JPEG or TIFF slices into a stack file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := imageio.LoadOptions{Workers: a.cfg.Processing.NumCores}
			var err error
			if extents != "" {
				if opts.Extents, err = parseExtents(extents); err != nil {
					return err
				}
			}
			if typeName != "" {
				if opts.Type, err = hyperstack.ParseElementType(typeName); err != nil {
					return err
				}
			}
			if opts.Ranking, err = a.cfg.Ranking(); err != nil {
				return err
			}
			set, err := parseAnnotations(anns)
			if err != nil {
				return err
			}
			h, err := imageio.LoadDirectory(cmd.Context(), args[0], opts, a.sink.Child("import"))
			if err != nil {
				return err
			}
			res := &transform.Result{Outputs: []transform.Output{{Name: "import", Stack: h, Annotations: set}}}
			return a.singleOutput(cmd.Context(), cmd, res, nil, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVar(&extents, "extents", "", "Channel, depth and frame counts as c,z,t (default: all files along depth)")
	cmd.Flags().StringVar(&typeName, "type", "", "Element type (uint8, uint16, int32, float32); default promotes to the widest file")
	cmd.Flags().StringArrayVar(&anns, "annotate", nil, "Annotation key=value stored with the stack (repeatable)")
	return cmd
}

func newInfoCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info FILE...",
		Short: "Describe stack files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, path := range args {
				in, err := a.read(path)
				if err != nil {
					return err
				}
				h := in.stack
				ext := h.Extents()
				fmt.Fprintf(w, "file\t%s\n", path)
				fmt.Fprintf(w, "planes\t%d (c=%d z=%d t=%d)\n", h.Len(), ext.C, ext.Z, ext.T)
				fmt.Fprintf(w, "size\t%dx%d %s\n", h.Width(), h.Height(), h.Type())
				fmt.Fprintf(w, "digest\t%s\n", h.Digest())
				for _, ann := range in.anns {
					fmt.Fprintf(w, "annotation\t%s\n", ann)
				}
			}
			return w.Flush()
		},
	}
}

func newSliceCommand(a *app) *cobra.Command {
	var (
		out                   string
		channel, depth, frame string
		distinct, sorted      bool
		annotate              bool
	)
	cmd := &cobra.Command{
		Use:   "slice FILE",
		Short: "Select indices on each axis",
		Long: "Each selector is \"all\", a list of ranges such as \"0,2..4,-1\" (negative values count\n" +
			"from the end) or \"expr:<expression>\" evaluating to a number or list.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			params := transform.SliceParams{Env: in.envWith(a.env), Annotate: annotate}
			opts := selector.Options{Distinct: distinct, Sorted: sorted}
			for _, s := range []struct {
				raw string
				dst *selector.Selector
			}{
				{channel, &params.Channel},
				{depth, &params.Depth},
				{frame, &params.Frame},
			} {
				sel, err := selector.Parse(s.raw)
				if err != nil {
					return err
				}
				sel.Options = opts
				*s.dst = sel
			}
			res, err := a.engine.Slice(cmd.Context(), in.stack, params, a.sink.Child("slice"))
			if err != nil {
				return err
			}
			return a.singleOutput(cmd.Context(), cmd, res, in.anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVarP(&channel, "channels", "c", "all", "Channel selector")
	cmd.Flags().StringVarP(&depth, "depths", "z", "all", "Depth selector")
	cmd.Flags().StringVarP(&frame, "frames", "t", "all", "Frame selector")
	cmd.Flags().BoolVar(&distinct, "distinct", false, "Drop repeated indices")
	cmd.Flags().BoolVar(&sorted, "sorted", false, "Sort selected indices ascending")
	cmd.Flags().BoolVar(&annotate, "annotate", false, "Record the selected source indices as annotations")
	return cmd
}

func newReorderCommand(a *app) *cobra.Command {
	var out, order string
	cmd := &cobra.Command{
		Use:   "reorder FILE",
		Short: "Permute the channel, depth and frame axes",
		Long:  "--order names the destination of channel, depth and frame in that order, e.g. \"zct\".",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			perm, err := transform.ParsePermutation(order)
			if err != nil {
				return err
			}
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Reorder(cmd.Context(), in.stack, perm, a.sink.Child("reorder"))
			if err != nil {
				return err
			}
			return a.singleOutput(cmd.Context(), cmd, res, in.anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVar(&order, "order", "czt", "Target axes for channel, depth and frame")
	return cmd
}

func newRelocateCommand(a *app) *cobra.Command {
	var out, toC, toZ, toT, filter, policy string
	cmd := &cobra.Command{
		Use:   "relocate FILE",
		Short: "Move planes to coordinates computed by expressions",
		Long: "Each of --to-c, --to-z and --to-t is an expression over c, z, t, index, num_c, num_z,\n" +
			"num_t and --var bindings. Planes for which --filter is false are discarded.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var mapper transform.ExpressionMapper
			for _, e := range []struct {
				src string
				dst *expression.Evaluator
			}{
				{toC, &mapper.C},
				{toZ, &mapper.Z},
				{toT, &mapper.T},
				{filter, &mapper.Filter},
			} {
				if e.src == "" {
					continue
				}
				parsed, err := expression.Parse(e.src)
				if err != nil {
					return err
				}
				*e.dst = parsed
			}
			if policy == "" {
				policy = a.cfg.Processing.ConflictPolicy
			}
			p, err := transform.ParseConflictPolicy(policy)
			if err != nil {
				return err
			}
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Relocate(cmd.Context(), in.stack, transform.RelocateParams{
				Mapper: mapper,
				Policy: p,
				Env:    in.envWith(a.env),
			}, a.sink.Child("relocate"))
			if err != nil {
				return err
			}
			return a.singleOutput(cmd.Context(), cmd, res, in.anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVar(&toC, "to-c", "", "Target channel expression")
	cmd.Flags().StringVar(&toZ, "to-z", "", "Target depth expression")
	cmd.Flags().StringVar(&toT, "to-t", "", "Target frame expression")
	cmd.Flags().StringVar(&filter, "filter", "", "Keep only planes for which this expression is true")
	cmd.Flags().StringVar(&policy, "conflict", "", "Conflict policy: error or overwrite (default from config)")
	return cmd
}

func newConcatCommand(a *app) *cobra.Command {
	var out, axisName string
	cmd := &cobra.Command{
		Use:   "concat FIRST SECOND",
		Short: "Append the second stack after the first along an axis",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := hyperstack.ParseAxis(axisName)
			if err != nil {
				return err
			}
			ins, err := a.readAll(args)
			if err != nil {
				return err
			}
			res, err := a.engine.Concatenate(cmd.Context(), ins[0].stack, ins[1].stack, axis, a.sink.Child("concat"))
			if err != nil {
				return err
			}
			return a.singleOutput(cmd.Context(), cmd, res, ins[0].anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVar(&axisName, "axis", "z", "Axis to concatenate along")
	return cmd
}

func newMergeCommand(a *app) *cobra.Command {
	var out, axisName string
	cmd := &cobra.Command{
		Use:   "merge FILE...",
		Short: "Stack inputs of extent 1 along an axis",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := hyperstack.ParseAxis(axisName)
			if err != nil {
				return err
			}
			ins, err := a.readAll(args)
			if err != nil {
				return err
			}
			stacks := make([]*hyperstack.Hyperstack, len(ins))
			for i, in := range ins {
				stacks[i] = in.stack
			}
			res, err := a.engine.Merge(cmd.Context(), stacks, axis, a.sink.Child("merge"))
			if err != nil {
				return err
			}
			return a.singleOutput(cmd.Context(), cmd, res, ins[0].anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVar(&axisName, "axis", "t", "Axis to merge along")
	return cmd
}

func newSplitCommand(a *app) *cobra.Command {
	var (
		out, axisName string
		specs         []string
		combine       bool
		annotate      bool
	)
	cmd := &cobra.Command{
		Use:   "split FILE",
		Short: "Route the indices of an axis to named outputs",
		Long: "Each --to is name=ranges, name=expr:<expression over i and n> or a bare name that\n" +
			"accepts every index. Outputs are written to the -o directory.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := hyperstack.ParseAxis(axisName)
			if err != nil {
				return err
			}
			outputs := make([]transform.SplitOutput, len(specs))
			for i, s := range specs {
				if outputs[i], err = parseSplitOutput(s); err != nil {
					return err
				}
			}
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			if err := ensureDir(out); err != nil {
				return err
			}
			res, err := a.engine.Split(cmd.Context(), in.stack, transform.SplitParams{
				Axis:     axis,
				Outputs:  outputs,
				Env:      in.envWith(a.env),
				Annotate: annotate,
				Combine:  combine,
			}, a.sink.Child("split"))
			if err != nil {
				return err
			}
			return a.write(cmd.Context(), cmd, res, in.anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Directory receiving the outputs")
	cmd.Flags().StringVar(&axisName, "axis", "c", "Axis to split")
	cmd.Flags().StringArrayVar(&specs, "to", nil, "Output specification (repeatable)")
	cmd.Flags().BoolVar(&combine, "combine", false, "Write one stack per output instead of one per index")
	cmd.Flags().BoolVar(&annotate, "annotate", true, "Record the split index as an annotation")
	return cmd
}

func newProjectCommand(a *app) *cobra.Command {
	var out, axisName, method, selection string
	cmd := &cobra.Command{
		Use:   "project FILE",
		Short: "Collapse an axis with a per-pixel aggregation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			axis, err := hyperstack.ParseAxis(axisName)
			if err != nil {
				return err
			}
			agg, err := models.ParseAggregation(method)
			if err != nil {
				return err
			}
			sel, err := selector.Parse(selection)
			if err != nil {
				return err
			}
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Project(cmd.Context(), in.stack, transform.ProjectParams{
				Axis:        axis,
				Aggregation: agg,
				Selection:   sel,
				Env:         in.envWith(a.env),
			}, a.sink.Child("project"))
			if err != nil {
				return err
			}
			return a.singleOutput(cmd.Context(), cmd, res, in.anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVar(&axisName, "axis", "z", "Axis to collapse")
	cmd.Flags().StringVar(&method, "method", "max", "Aggregation: max, min, mean, sum, sd or median")
	cmd.Flags().StringVarP(&selection, "select", "s", "all", "Indices along the axis that take part")
	return cmd
}

func newResliceCommand(a *app) *cobra.Command {
	var (
		out, edge                    string
		flip, rotate, avoid, nearest bool
		scanStep, depthScale         float64
	)
	cmd := &cobra.Command{
		Use:   "reslice FILE",
		Short: "Turn depth into an in-plane axis by scanning from a plane edge",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := models.ParseEdge(edge)
			if err != nil {
				return err
			}
			params := transform.ResliceParams{
				Edge:               e,
				Flip:               flip,
				Rotate90:           rotate,
				AvoidInterpolation: avoid || a.cfg.Reslice.AvoidInterpolation,
				ScanStep:           a.cfg.Reslice.ScanStep,
				DepthScale:         a.cfg.Reslice.DepthScale,
			}
			if cmd.Flags().Changed("scan-step") {
				params.ScanStep = scanStep
			}
			if cmd.Flags().Changed("depth-scale") {
				params.DepthScale = depthScale
			}
			if nearest {
				params.Interpolator = transform.NearestInterpolator{}
			}
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			res, err := a.engine.Reslice(cmd.Context(), in.stack, params, a.sink.Child("reslice"))
			if err != nil {
				return err
			}
			return a.singleOutput(cmd.Context(), cmd, res, in.anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Stack file to write")
	cmd.Flags().StringVar(&edge, "edge", "top", "Start edge: top, bottom, left or right")
	cmd.Flags().BoolVar(&flip, "flip", false, "Reverse the rows of each output plane")
	cmd.Flags().BoolVar(&rotate, "rotate", false, "Rotate each output plane 90 degrees clockwise")
	cmd.Flags().BoolVar(&avoid, "avoid-interpolation", false, "Sample whole pixels only")
	cmd.Flags().BoolVar(&nearest, "nearest", false, "Use nearest-neighbour instead of linear sampling")
	cmd.Flags().Float64Var(&scanStep, "scan-step", 1, "Distance in pixels between scan lines")
	cmd.Flags().Float64Var(&depthScale, "depth-scale", 1, "Output rows per source depth index")
	return cmd
}

func newFlattenCommand(a *app) *cobra.Command {
	var (
		out, prefix string
		index       bool
	)
	cmd := &cobra.Command{
		Use:   "flatten FILE",
		Short: "Write every plane as its own single-plane stack",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			if err := ensureDir(out); err != nil {
				return err
			}
			res, err := a.engine.Flatten(cmd.Context(), in.stack, transform.FlattenParams{
				IncludeIndex: index,
				Prefix:       prefix,
			}, a.sink.Child("flatten"))
			if err != nil {
				return err
			}
			return a.write(cmd.Context(), cmd, res, in.anns, out)
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Directory receiving the planes")
	cmd.Flags().StringVar(&prefix, "prefix", "plane", "File name prefix")
	cmd.Flags().BoolVar(&index, "index", false, "Also record the linear index as an annotation")
	return cmd
}

func newExportCommand(a *app) *cobra.Command {
	var (
		out, format, prefix string
		quality             int
	)
	cmd := &cobra.Command{
		Use:   "export FILE",
		Short: "Write every plane as an image file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := imageio.ParseFormat(format)
			if err != nil {
				return err
			}
			in, err := a.read(args[0])
			if err != nil {
				return err
			}
			if err := ensureDir(out); err != nil {
				return err
			}
			names, err := imageio.ExportPlanes(cmd.Context(), in.stack, out, imageio.ExportOptions{
				Format:  f,
				Prefix:  prefix,
				Quality: quality,
			}, a.sink.Child("export"))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d images to %s\n", len(names), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "output", "o", "", "Directory receiving the images")
	cmd.Flags().StringVar(&format, "format", "png", "Image format: png, jpeg or tiff")
	cmd.Flags().StringVar(&prefix, "prefix", "slice", "File name prefix")
	cmd.Flags().IntVar(&quality, "quality", 90, "JPEG quality")
	return cmd
}

func newAnnotationsCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "annotations [OUTPUT]",
		Short: "List annotation records kept in the annotation database",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []annotation.Record
			if len(args) == 1 {
				rec, err := a.store.Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				records = append(records, rec)
			} else {
				var err error
				if records, err = a.store.List(cmd.Context()); err != nil {
					return err
				}
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, rec := range records {
				parts := make([]string, len(rec.Annotations))
				for i, ann := range rec.Annotations {
					parts[i] = ann.String()
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", rec.Output, rec.Digest[:min(12, len(rec.Digest))], strings.Join(parts, " "))
			}
			return w.Flush()
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [PATH]",
		Short: "Write a configuration file with default values",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := a.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if err := config.CreateDefaultConfigFile(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

// parseExtents reads "c,z,t".
func parseExtents(s string) (hyperstack.Extents, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return hyperstack.Extents{}, fmt.Errorf("extents %q: expected c,z,t", s)
	}
	var n [3]int
	for i, p := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return hyperstack.Extents{}, fmt.Errorf("extents %q: %w", s, err)
		}
		n[i] = v
	}
	ext := hyperstack.Extents{C: n[0], Z: n[1], T: n[2]}
	return ext, ext.Validate()
}

func parseAnnotations(raw []string) (annotation.Set, error) {
	set := make(annotation.Set, 0, len(raw))
	for _, r := range raw {
		a, err := annotation.Parse(r)
		if err != nil {
			return nil, err
		}
		set = append(set, a)
	}
	return set, nil
}

// parseSplitOutput reads name, name=ranges or name=expr:<source>.
func parseSplitOutput(s string) (transform.SplitOutput, error) {
	name, route, ok := strings.Cut(s, "=")
	name = strings.TrimSpace(name)
	if name == "" {
		return transform.SplitOutput{}, fmt.Errorf("split output %q: missing name", s)
	}
	out := transform.SplitOutput{Name: name}
	route = strings.TrimSpace(route)
	switch {
	case !ok || route == "" || strings.EqualFold(route, "all"):
	case strings.HasPrefix(route, "expr:"):
		e, err := expression.Parse(strings.TrimPrefix(route, "expr:"))
		if err != nil {
			return transform.SplitOutput{}, err
		}
		out.Predicate = transform.ExpressionPredicate{Evaluator: e}
	default:
		r, err := selector.ParseRanges(route)
		if err != nil {
			return transform.SplitOutput{}, err
		}
		out.Predicate = transform.RangePredicate{Ranges: r}
	}
	return out, nil
}
