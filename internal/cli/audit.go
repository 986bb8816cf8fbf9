package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/tfg-report-server/internal/audit"
	"github.com/tfg-report-server/internal/config"
	"github.com/tfg-report-server/internal/domain"
)

func newAuditCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect the anonymous generation log",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List recent generation events as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")

			store, err := opts.openAudit()
			if err != nil {
				return err
			}
			defer store.Close()

			events, err := store.List(cmd.Context(), limit, offset)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, ev := range events {
				if err := enc.Encode(ev); err != nil {
					return err
				}
			}
			return nil
		},
	}
	list.Flags().IntP("limit", "l", 20, "Max events")
	list.Flags().Int("offset", 0, "Events to skip")

	stats := &cobra.Command{
		Use:   "stats",
		Short: "Count events by severity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openAudit()
			if err != nil {
				return err
			}
			defer store.Close()

			counts, err := store.CountBySeverity(cmd.Context())
			if err != nil {
				return err
			}
			severities := make([]string, 0, len(counts))
			for s := range counts {
				severities = append(severities, string(s))
			}
			sort.Strings(severities)

			out := cmd.OutOrStdout()
			for _, s := range severities {
				label := s
				if label == "" {
					label = "(sem declínio)"
				}
				fmt.Fprintf(out, "%s\t%d\n", label, counts[domain.Severity(s)])
			}
			return nil
		},
	}

	export := &cobra.Command{
		Use:   "export",
		Short: "Export every event as one JSON document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openAudit()
			if err != nil {
				return err
			}
			defer store.Close()
			return store.ExportJSON(cmd.Context(), cmd.OutOrStdout())
		},
	}

	prune := &cobra.Command{
		Use:   "prune",
		Short: "Delete events older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			days, _ := cmd.Flags().GetInt("days")

			manager, err := opts.loadConfig()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				days = manager.GetConfig().Audit.RetentionDays
			}
			if days <= 0 {
				return fmt.Errorf("retention must be at least one day (set --days or audit.retention_days)")
			}

			store, err := opts.openAudit()
			if err != nil {
				return err
			}
			defer store.Close()

			removed, err := audit.NewPruner(store, days, quietLogger()).PruneOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d event(s) removed\n", removed)
			return nil
		},
	}
	prune.Flags().Int("days", 0, "Keep this many days (default: audit.retention_days)")

	migrateCmd := &cobra.Command{
		Use:       "migrate [up|down|version]",
		Short:     "Apply or roll back the PostgreSQL audit schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) == 1 {
				direction = args[0]
			}

			manager, err := opts.loadConfig()
			if err != nil {
				return err
			}
			cfg := manager.GetConfig().Audit
			if cfg.Driver != domain.AuditDriverPostgres {
				return fmt.Errorf("migrations apply to the postgres driver only (audit.driver is %q)", cfg.Driver)
			}

			logger, err := config.NewLogger(manager.GetConfig().Logging)
			if err != nil {
				return err
			}
			runner, err := audit.NewMigrationRunner(cfg.DatabaseURL, logger)
			if err != nil {
				return err
			}
			defer runner.Close()

			switch direction {
			case "down":
				err = runner.Down()
			case "up":
				err = runner.Up()
			}
			if err != nil {
				return err
			}

			version, dirty, err := runner.Version()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty: %t)\n", version, dirty)
			return nil
		},
	}

	cmd.AddCommand(list, stats, export, prune, migrateCmd)
	return cmd
}

// openAudit opens the configured audit database. An SQLite file must already
// exist; it is never created here.
func (o *options) openAudit() (audit.Store, error) {
	manager, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig().Audit
	if cfg.Driver == domain.AuditDriverSQLite {
		if _, err := os.Stat(cfg.DBPath); err != nil {
			return nil, fmt.Errorf("audit database %s: %w", cfg.DBPath, err)
		}
	}
	return audit.Open(cfg, quietLogger())
}

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}
