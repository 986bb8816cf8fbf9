// Package cli implements the tfgreport commands.
package cli

import (
	"github.com/spf13/cobra"
)

// options holds the flags shared by every command.
type options struct {
	configPath string
}

// NewRootCmd builds the top-level command with all subcommands attached.
func NewRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "tfgreport",
		Short: "TFG decline estimation and report generation",
		Long: "Estimates the decline of a patient's TFG (eGFR) series, compares it with the slow, " +
			"moderate and rapid reference trajectories and writes a one-page PDF report.",
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"Config file (default: config.yaml in ., ./config or /etc/tfg-report/)")

	root.AddCommand(
		newServeCmd(opts),
		newMCPCmd(opts),
		newGenerateCmd(opts),
		newConfigCmd(opts),
		newAuditCmd(opts),
		newSetupCmd(),
	)
	return root
}
