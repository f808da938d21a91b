package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/FairForge/geniebench/internal/api"
	"github.com/FairForge/geniebench/internal/config"
	"github.com/FairForge/geniebench/internal/llm"
	"github.com/FairForge/geniebench/internal/loadtest"
	"github.com/FairForge/geniebench/internal/monitor"
	"github.com/FairForge/geniebench/internal/platform"
	"github.com/FairForge/geniebench/internal/report"
	"github.com/FairForge/geniebench/internal/scenario"
)

// app holds one fully wired harness instance.
type app struct {
	cfg      *config.Config
	logger   *zap.Logger
	monitor  *monitor.Monitor
	client   *llm.Client
	tester   *loadtest.Tester
	registry *prometheus.Registry
	provider platform.Provider
	writer   *report.Writer
	server   *api.Server
}

func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := buildLogger(cfg.Server.LogLevel)
	if err != nil {
		return nil, err
	}

	mon := monitor.New()
	client, err := llm.NewClient(llm.Config{
		Endpoint:   cfg.Target.Endpoint,
		Timeout:    cfg.Target.Timeout,
		MaxRetries: cfg.Target.MaxRetries,
		RetryDelay: cfg.Target.RetryDelay,
	}, logger, mon)
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	tester := loadtest.New(&loadtest.Config{MaxInFlight: cfg.Load.MaxInFlight}, logger)
	tester.AttachMetrics(loadtest.NewMetrics(registry))

	provider, err := buildProvider(cfg, logger)
	if err != nil {
		return nil, err
	}

	writer, err := report.NewWriter(cfg.Output.Dir, logger)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		monitor:  mon,
		client:   client,
		tester:   tester,
		registry: registry,
		provider: provider,
		writer:   writer,
	}

	if cfg.Server.Enabled {
		a.server = api.NewServer(cfg.Server.Addr, tester, mon, registry, logger)
		a.server.Start()
	}
	return a, nil
}

func buildProvider(cfg *config.Config, logger *zap.Logger) (platform.Provider, error) {
	name := cfg.Output.Platform
	switch flagProvider {
	case "cloud":
		return platform.NewCloudProvider(name, cfg.Emit.Region, cfg.Emit.AccessKey, cfg.Emit.SecretKey, logger)
	case "notebook":
		return platform.NewNotebookProvider(name, logger), nil
	case "cluster":
		return platform.NewClusterProvider(name, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider %q (want cloud, notebook or cluster)", flagProvider)
	}
}

func (a *app) close(ctx context.Context) {
	if a.server != nil {
		if err := a.server.Shutdown(ctx); err != nil {
			a.logger.Warn("status server shutdown failed", zap.Error(err))
		}
	}
	_ = a.logger.Sync()
}

func (a *app) chatScenario() loadtest.Scenario {
	return scenario.Chat(a.client, a.monitor, nil)
}

// report persists one run and pushes its headline numbers to the
// optional sinks. Sink failures are logged, never fatal.
func (a *app) report(ctx context.Context, result loadtest.RunResult, kind string) error {
	metrics := a.monitor.Metrics()
	resources := a.provider.ResourceSnapshot(ctx)

	snap := report.Snapshot{
		Platform:  a.cfg.Output.Platform,
		Scenario:  kind,
		Run:       result,
		ToolUsage: metrics.ToolUsage,
		Network:   metrics.NetworkStats,
		Resources: resources,
		Job:       a.provider.JobInfo(ctx),
	}

	snapPath, err := a.writer.WriteSnapshot(snap)
	if err != nil {
		return err
	}
	if _, err := a.writer.WriteResults(result, a.cfg.Output.Platform, kind); err != nil {
		return err
	}

	if a.cfg.Emit.Enabled {
		for _, m := range platform.RunMetrics(result.MeanLatencyMS, result.ThroughputRPS, result.ErrorRate*100, resources) {
			if err := a.provider.EmitMetric(ctx, m); err != nil {
				a.logger.Warn("metric emission failed", zap.String("metric", m.Name), zap.Error(err))
			}
		}
	}

	if a.cfg.Archive.Enabled {
		archiver, err := report.NewS3Archiver(
			a.cfg.Archive.Endpoint, a.cfg.Archive.Region, a.cfg.Archive.Bucket,
			a.cfg.Archive.Prefix, a.cfg.Archive.AccessKey, a.cfg.Archive.SecretKey, a.logger)
		if err != nil {
			a.logger.Warn("archiver unavailable", zap.Error(err))
		} else if err := archiver.Archive(ctx, snapPath); err != nil {
			a.logger.Warn("snapshot archive failed", zap.Error(err))
		}
	}

	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRunSummary(result loadtest.RunResult) {
	fmt.Printf("\n%s run: %d requests in %.1fs (%.1f req/s)\n",
		result.Mode, result.TotalRequests, result.ElapsedSeconds, result.ThroughputRPS)
	fmt.Printf("  success rate:  %.2f%%  (%d failed, %d skipped)\n",
		result.SuccessRate*100, result.FailedRequests, result.SkippedDispatches)
	fmt.Printf("  latency ms:    mean=%.1f min=%.1f max=%.1f\n",
		result.MeanLatencyMS, result.MinLatencyMS, result.MaxLatencyMS)
	fmt.Printf("  percentiles:   p50=%.1f p95=%.1f p99=%.1f\n",
		result.P50LatencyMS, result.P95LatencyMS, result.P99LatencyMS)
}

// runContext cancels on SIGINT/SIGTERM so an interrupted run still
// drains in-flight calls and reports what it collected.
func runContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}
