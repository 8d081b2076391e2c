package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"hyperstacks/internal/logging"
	"hyperstacks/pkg/annotation"
	"hyperstacks/pkg/config"
	"hyperstacks/pkg/expression"
	"hyperstacks/pkg/hyperstack"
	"hyperstacks/pkg/progress"
	"hyperstacks/pkg/stackfile"
	"hyperstacks/pkg/transform"
)

// app carries the state shared by every subcommand once the root
// PersistentPreRunE has run.
type app struct {
	configPath   string
	logLevel     string
	workers      int
	annotationDB string
	compression  string
	quiet        bool
	vars         []string

	cfg    *config.Config
	log    logr.Logger
	engine *transform.Engine
	store  annotation.Store
	codec  stackfile.Compression
	env    expression.Env
	sink   progress.Sink
}

func (a *app) bindFlags(flags *pflag.FlagSet) {
	flags.StringVar(&a.configPath, "config", "hyperstacks.yaml", "Path to the YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config file")
	flags.IntVar(&a.workers, "cores", 0, "Number of planes processed concurrently (default from config)")
	flags.StringVar(&a.annotationDB, "annotation-db", "", "SQLite database receiving output annotations")
	flags.StringVar(&a.compression, "compression", "", "Plane compression for written stacks (none, lz4, zstd)")
	flags.BoolVarP(&a.quiet, "quiet", "q", false, "Disable the progress bar")
	flags.StringArrayVar(&a.vars, "var", nil, "Expression variable name=value (repeatable)")
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.Logging.Level = a.logLevel
	}
	if flags.Changed("cores") {
		cfg.Processing.NumCores = a.workers
	}
	if flags.Changed("annotation-db") {
		cfg.Output.AnnotationDB = a.annotationDB
	}
	if flags.Changed("compression") {
		cfg.Output.Compression = a.compression
	}
	if a.quiet {
		cfg.Output.Verbose = false
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	a.cfg = cfg

	if a.log, err = logging.New(cfg.Logging.Level); err != nil {
		return err
	}
	ranking, err := cfg.Ranking()
	if err != nil {
		return err
	}
	if a.codec, err = stackfile.ParseCompression(cfg.Output.Compression); err != nil {
		return err
	}
	if a.env, err = parseVars(a.vars); err != nil {
		return err
	}
	a.engine = transform.New(transform.Options{
		Workers: cfg.Processing.NumCores,
		Logger:  a.log,
		Ranking: ranking,
	})

	if cfg.Output.AnnotationDB != "" {
		if a.store, err = annotation.OpenSQLite(cfg.Output.AnnotationDB); err != nil {
			return err
		}
	} else {
		a.store = annotation.NewMemoryStore()
	}

	if cfg.Output.Verbose {
		a.sink = progress.NewBar(cmd.ErrOrStderr())
	} else {
		a.sink = progress.Log(a.log)
	}
	return nil
}

func (a *app) close() error {
	if a.store == nil {
		return nil
	}
	err := a.store.Close()
	a.store = nil
	return err
}

// parseVars reads name=value pairs. Values that parse as numbers are bound
// as numbers, everything else as strings.
func parseVars(vars []string) (expression.Env, error) {
	env := expression.Env{}
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("--var %q: expected name=value", v)
		}
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			env[name] = expression.Num(f)
		} else {
			env.SetString(name, value)
		}
	}
	return env, nil
}

// input is a decoded stack file with its annotations bound into the
// expression environment as #key.
type input struct {
	path  string
	stack *hyperstack.Hyperstack
	anns  annotation.Set
}

func (a *app) read(path string) (*input, error) {
	f, err := stackfile.ReadFile(path)
	if err != nil {
		return nil, err
	}
	a.log.V(1).Info("read stack", "path", path, "stack", f.Stack.String())
	return &input{path: path, stack: f.Stack, anns: f.Annotations}, nil
}

func (a *app) readAll(paths []string) ([]*input, error) {
	out := make([]*input, len(paths))
	for i, p := range paths {
		in, err := a.read(p)
		if err != nil {
			return nil, err
		}
		out[i] = in
	}
	return out, nil
}

func (in *input) envWith(env expression.Env) expression.Env {
	return in.anns.Env(env)
}

// write stores res. A single output goes to out when out ends in the stack
// file extension; otherwise out is a directory receiving <name>.hstk per
// output, numbered when a name repeats. Every written file gets a record
// in the annotation store.
func (a *app) write(ctx context.Context, cmd *cobra.Command, res *transform.Result, inherited annotation.Set, out string) error {
	if out == "" {
		return fmt.Errorf("an output path is required (-o)")
	}
	if len(res.Outputs) == 0 {
		fmt.Fprintln(cmd.ErrOrStderr(), "no outputs produced")
		return nil
	}

	paths := make([]string, len(res.Outputs))
	if len(res.Outputs) == 1 && strings.EqualFold(filepath.Ext(out), stackfile.Extension) {
		paths[0] = out
	} else {
		counts := make(map[string]int)
		for _, o := range res.Outputs {
			counts[o.Name]++
		}
		seen := make(map[string]int)
		for i, o := range res.Outputs {
			name := o.Name
			if counts[name] > 1 {
				name = fmt.Sprintf("%s-%03d", name, seen[o.Name])
				seen[o.Name]++
			}
			paths[i] = filepath.Join(out, name+stackfile.Extension)
		}
	}

	for i, o := range res.Outputs {
		anns := append(append(annotation.Set(nil), inherited...), o.Annotations...)
		if err := stackfile.WriteFile(paths[i], o.Stack, anns, a.codec); err != nil {
			return err
		}
		if err := a.store.Put(ctx, annotation.Record{
			Output:      paths[i],
			Digest:      o.Stack.Digest().String(),
			Annotations: anns,
		}); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", paths[i], o.Stack)
	}
	return nil
}

// singleOutput is write for operations whose natural output is one file.
func (a *app) singleOutput(ctx context.Context, cmd *cobra.Command, res *transform.Result, inherited annotation.Set, out string) error {
	if out != "" && !strings.EqualFold(filepath.Ext(out), stackfile.Extension) {
		out += stackfile.Extension
	}
	return a.write(ctx, cmd, res, inherited, out)
}

func ensureDir(path string) error {
	if path == "" {
		return fmt.Errorf("an output directory is required (-o)")
	}
	return os.MkdirAll(path, 0o755)
}
