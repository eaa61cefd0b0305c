package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/okian/camctl/internal/config"
	"github.com/okian/camctl/pkg/logger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// NewConfigCommand creates the config command.
func NewConfigCommand(rootOpts *RootOptions) *cobra.Command {
	var validate bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration with passwords redacted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			read := config.Read
			if validate {
				read = config.Load
			}
			cfg, err := read(cmd.Context(), rootOpts.ConfigPath)
			if err != nil {
				return err
			}
			out := cfg.Redacted()
			if rootOpts.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(out)
			}
			if cfg.Source != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "# source: %s\n", cfg.Source)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(out)
		},
	}
	cmd.Flags().BoolVar(&validate, "validate", false, "fail on an invalid configuration")
	return cmd
}

// loadConfig loads and validates the configuration and applies the log level.
func loadConfig(ctx context.Context, opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(ctx, opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}
	if !strings.EqualFold(cfg.LogFormat, logger.FormatText) {
		if err := logger.Configure(os.Stdout, cfg.LogFormat); err != nil {
			return nil, err
		}
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return cfg, nil
}

func defaultFiles() string { return strings.Join(config.DefaultFiles, ", ") }
