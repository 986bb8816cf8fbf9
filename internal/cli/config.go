package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  "Prints the configuration after defaults, the config file and TFG_REPORT_* environment overrides are merged.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			manager, err := opts.loadConfig()
			if err != nil {
				return err
			}
			settings := manager.AllSettings()

			var out []byte
			switch format {
			case "yaml":
				out, err = yaml.Marshal(settings)
			case "json":
				out, err = json.MarshalIndent(settings, "", "  ")
				out = append(out, '\n')
			default:
				return fmt.Errorf("unknown format %q (want yaml or json)", format)
			}
			if err != nil {
				return fmt.Errorf("failed to encode configuration: %w", err)
			}

			if file := manager.ConfigFileUsed(); file != "" {
				cmd.PrintErrf("# loaded from %s\n", file)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}

	cmd.Flags().StringP("format", "f", "yaml", "Output format: yaml or json")
	return cmd
}
