package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tfg-report-server/internal/setup"
)

func newSetupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "setup",
		Short: "Register the MCP server with Claude Desktop",
	}

	desktop := &cobra.Command{
		Use:   "claude-desktop",
		Short: "Add or update the tfg-report entry in claude_desktop_config.json",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			binary, _ := cmd.Flags().GetString("binary")
			claudeConfig, _ := cmd.Flags().GetString("claude-config")
			configFile, _ := cmd.Flags().GetString("server-config")

			if binary == "" {
				if exe, err := os.Executable(); err == nil {
					binary = exe
				}
			}

			path, err := setup.ConfigureClaudeDesktop(setup.Options{
				BinaryPath: binary,
				ConfigFile: configFile,
				ConfigPath: claudeConfig,
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config file: %s\n", path)
			fmt.Fprintf(out, "Server binary: %s\n", binary)
			fmt.Fprintln(out, "Restart Claude Desktop to load the tfg-report tools.")
			return nil
		},
	}
	desktop.Flags().String("binary", "", "tfgreport binary path (default: this executable)")
	desktop.Flags().String("server-config", "", "tfgreport config file the MCP server should load")
	desktop.Flags().String("claude-config", "", "Claude Desktop config file (default: platform location)")

	status := &cobra.Command{
		Use:   "status",
		Short: "Show whether tfg-report is registered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			claudeConfig, _ := cmd.Flags().GetString("claude-config")

			status, err := setup.GetStatus(claudeConfig)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Config path: %s\n", status.ClaudeDesktopPath)
			if status.Configured {
				fmt.Fprintf(out, "Binary: %s %v\n", status.Server.Command, status.Server.Args)
			}
			for _, issue := range status.Issues {
				fmt.Fprintf(out, "  ! %s\n", issue)
			}
			if len(status.Issues) > 0 {
				return fmt.Errorf("setup incomplete: %d issue(s)", len(status.Issues))
			}
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
	status.Flags().String("claude-config", "", "Claude Desktop config file (default: platform location)")

	cmd.AddCommand(desktop, status)
	return cmd
}
