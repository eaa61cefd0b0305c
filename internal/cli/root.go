// Package cli implements the camctl and simulator command lines.
package cli

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags.
var (
	Version = "dev"
	Commit  = "none"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
	Format     string // "json" | "text"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the camctl root command. Without a subcommand it runs the service.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	run := NewRunCommand(opts)
	cmd := &cobra.Command{
		Use:   "camctl",
		Short: "Schedule driven PTZ camera control for Opencast",
		Long: `camctl moves pan-tilt-zoom cameras to a recording preset while their
capture agent records and back to an idle preset otherwise.`,
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		RunE: run.RunE,
	}

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "configuration file (default: first of "+defaultFiles()+")")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "override log_level from the configuration")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(run)
	cmd.AddCommand(NewCalendarCommand(opts))
	cmd.AddCommand(NewConfigCommand(opts))
	cmd.AddCommand(NewVersionCommand(opts))

	return cmd
}
