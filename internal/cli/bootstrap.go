package cli

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/tfg-report-server/internal/audit"
	"github.com/tfg-report-server/internal/cache"
	"github.com/tfg-report-server/internal/config"
	"github.com/tfg-report-server/internal/domain"
	"github.com/tfg-report-server/internal/service"
)

// app is the wired runtime shared by the commands.
type app struct {
	manager *config.Manager
	logger  *logrus.Logger
	service *service.ReportService
	audit   audit.Store
	closers []func() error
}

func (o *options) loadConfig() (*config.Manager, error) {
	manager, err := config.NewManagerFromFile(o.configPath)
	if err != nil {
		return nil, err
	}
	if err := manager.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return manager, nil
}

// bootstrap loads configuration and wires the report service for the given
// surface. The MCP surface owns stdout, so its log output is forced to stderr.
func (o *options) bootstrap(source string) (*app, error) {
	manager, err := o.loadConfig()
	if err != nil {
		return nil, err
	}
	cfg := manager.GetConfig()

	logCfg := cfg.Logging
	if source == "mcp" && logCfg.Output == "stdout" {
		logCfg.Output = "stderr"
	}
	logger, err := config.NewLogger(logCfg)
	if err != nil {
		return nil, err
	}

	a := &app{manager: manager, logger: logger}
	svcOpts := []service.ReportServiceOption{service.WithSource(source)}

	if cfg.Cache.Enabled {
		chartCache, err := newChartCache(cfg.Cache, logger)
		if err != nil {
			return nil, err
		}
		svcOpts = append(svcOpts, service.WithChartCache(chartCache))
		if c, ok := chartCache.(interface{ Close() error }); ok {
			a.closers = append(a.closers, c.Close)
		}
	}

	if cfg.Audit.Enabled {
		store, err := audit.Open(cfg.Audit, logger)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to open audit store: %w", err)
		}
		a.audit = store
		a.closers = append(a.closers, store.Close)
		svcOpts = append(svcOpts, service.WithAuditStore(store))
		logger.WithField("driver", cfg.Audit.Driver).Info("Audit log enabled")
	}

	a.service = service.NewReportService(logger, cfg, svcOpts...)
	return a, nil
}

func newChartCache(cfg domain.CacheConfig, logger *logrus.Logger) (domain.ChartCache, error) {
	switch cfg.Driver {
	case domain.CacheDriverRedis:
		c, err := cache.NewRedisChartCache(cfg.RedisURL, cfg.TTL, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create chart cache: %w", err)
		}
		return c, nil
	default:
		c, err := cache.NewChartCache(cfg.MaxItems)
		if err != nil {
			return nil, fmt.Errorf("failed to create chart cache: %w", err)
		}
		return c, nil
	}
}

// startPruner schedules audit retention when a store is open and a retention
// window is configured. The returned stop func is never nil.
func (a *app) startPruner() (func(), error) {
	cfg := a.manager.GetConfig().Audit
	if a.audit == nil || cfg.RetentionDays == 0 {
		return func() {}, nil
	}
	pruner := audit.NewPruner(a.audit, cfg.RetentionDays, a.logger)
	if err := pruner.Start(cfg.PruneSchedule); err != nil {
		return nil, err
	}
	return pruner.Stop, nil
}

// Close releases the cache client and audit store, if they were opened.
func (a *app) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
