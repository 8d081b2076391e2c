// main.go bootstraps hyperstacks: it builds the root Cobra command and executes it with a signal-aware context.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		cancel()
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	cmd := &cobra.Command{
		Use:   "hyperstacks",
		Short: "Structural transforms on multi-dimensional image stacks",
		Long: "hyperstacks slices, reorders, relocates, concatenates, splits, projects and reslices\n" +
			"stacks of 2D planes addressed by channel, depth and frame.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			return a.close()
		},
	}
	a.bindFlags(cmd.PersistentFlags())
	cmd.AddCommand(
		newImportCommand(a),
		newInfoCommand(a),
		newSliceCommand(a),
		newReorderCommand(a),
		newRelocateCommand(a),
		newConcatCommand(a),
		newMergeCommand(a),
		newSplitCommand(a),
		newProjectCommand(a),
		newResliceCommand(a),
		newFlattenCommand(a),
		newExportCommand(a),
		newAnnotationsCommand(a),
		newConfigCommand(a),
	)
	cmd.Example = `  # Load numbered slices as 2 channels × 10 depths and keep the first channel
  hyperstacks import scans/ -o scan.hstk --extents 2,10,1
  hyperstacks slice scan.hstk -o ch0.hstk -c 0

  # Maximum intensity projection over depth, exported as PNG
  hyperstacks project scan.hstk -o mip.hstk --axis z --method max
  hyperstacks export mip.hstk -o mip/`
	return cmd
}
