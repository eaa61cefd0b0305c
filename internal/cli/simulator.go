package cli

import (
	"github.com/okian/camctl/internal/simulator"
	"github.com/spf13/cobra"
)

// NewSimulatorCommand creates the root command of the simulator binary.
func NewSimulatorCommand() *cobra.Command {
	cfg := simulator.Config{}
	cmd := &cobra.Command{
		Use:   "simulator",
		Short: "Serve a fake Opencast and fake cameras for local testing",
		Long: `simulator serves a fake Opencast schedule and one Panasonic and one Sony
camera per capture agent. The matching camctl configuration is logged at start.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return simulator.Run(cmd.Context(), cfg)
		},
	}
	f := cmd.Flags()
	f.StringVar(&cfg.Addr, "addr", simulator.DefaultAddr, "listen address")
	f.IntVar(&cfg.Agents, "agents", 1, "number of capture agents")
	f.DurationVar(&cfg.Lead, "lead", simulator.DefaultLead, "time until the first recording")
	f.DurationVar(&cfg.Length, "length", simulator.DefaultLength, "recording length")
	f.DurationVar(&cfg.Gap, "gap", simulator.DefaultGap, "pause between recordings")
	f.IntVar(&cfg.Events, "events", simulator.DefaultEvents, "recordings per agent")
	return cmd
}
