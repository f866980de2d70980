package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flotillasim/flotilla/internal/compiler"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "validate <world-dir>",
		Short: "Validate a world spec without running it",
		Long: `Validate a CUE world spec directory: ports, fleets, companies and the
trade book are decoded and checked without starting a simulation.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
}

func runValidate(opts *RootOptions, worldDir string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}

	spec, err := compiler.LoadWorldDir(worldDir)
	if err != nil {
		if outErr := formatter.Error(err.Error(), nil); outErr != nil {
			return outErr
		}
		return WrapExitError(ExitFailure, "validation failed", err)
	}

	vessels := 0
	for _, c := range spec.Companies {
		vessels += len(c.Vessels)
	}
	summary := fmt.Sprintf("✓ Valid world: %d port(s), %d company(ies), %d vessel(s), %d trade(s)",
		len(spec.Ports), len(spec.Companies), vessels, len(spec.Trades))
	return formatter.Success(summary)
}
