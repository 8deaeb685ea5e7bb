package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/user/linkcheck-service/internal/adapter/httpprobe"
	"github.com/user/linkcheck-service/internal/adapter/netcapture"
	redisadapter "github.com/user/linkcheck-service/internal/adapter/redis"
	"github.com/user/linkcheck-service/internal/admission"
	"github.com/user/linkcheck-service/internal/delivery/http/handler"
	"github.com/user/linkcheck-service/internal/delivery/http/router"
	"github.com/user/linkcheck-service/internal/delivery/http/server"
	"github.com/user/linkcheck-service/internal/telemetry"
	"github.com/user/linkcheck-service/internal/usecase"
	"github.com/user/linkcheck-service/pkg/config"
	"github.com/user/linkcheck-service/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Check every record dated before the cutoff",
	Long: `Check every record dated before the cutoff date and store the HTTP
status of its URL.

The run negotiates a connection budget with the store, starts the throughput
monitor and then drains the matching records page by page. SIGINT or SIGTERM
stops admitting new probes, lets in-flight ones finish and exits with 130.

Exit codes:
  0   - Every page was processed
  1   - Initialization failed (config, store, capture interface)
  130 - Interrupted`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("config", "c", "", "path to config file (default ./config.ini)")
	runCmd.Flags().String("date", "", "cutoff date YYYY-MM-DD, overrides input.date")
}

func runCheck(cmd *cobra.Command, args []string) error {
	configFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if d, _ := cmd.Flags().GetString("date"); d != "" {
		cfg.Input.Date = d
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cutoff, _ := cfg.Cutoff()

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("store unavailable", zap.Error(err))
		return err
	}
	defer store.close()

	monitor := telemetry.New(frameSource(cfg),
		telemetry.WithInterval(cfg.Telemetry.Interval),
		telemetry.WithLogger(log.Named("telemetry")),
	)
	if err := monitor.Start(ctx); err != nil {
		log.Error("throughput monitor unavailable", zap.String("source", cfg.Telemetry.Source), zap.Error(err))
		return err
	}
	defer func() {
		if err := monitor.Stop(); err != nil {
			log.Warn("stop throughput monitor", zap.Error(err))
		}
	}()

	client := httpprobe.New(cfg.Probe.Timeout, httpprobe.WithUserAgent(cfg.Probe.UserAgent))
	defer client.CloseIdleConnections()

	schedCfg := usecase.SchedulerConfig{
		Floor:   cfg.Scheduler.Floor,
		Ceiling: cfg.Scheduler.Ceiling,
		Backlog: cfg.Scheduler.Backlog,
		Tick:    cfg.Scheduler.Tick,
		Policy:  admissionConfig(cfg),
	}.ClampTo(store.budget.Capacity)

	scheduler, err := usecase.NewProbeScheduler(usecase.NewStatusProbe(client, store.repo, log), monitor, schedCfg, log)
	if err != nil {
		return err
	}

	opts := []usecase.CheckerOption{
		usecase.WithPeakReporter(store.gate),
		usecase.WithRateReader(monitor),
	}
	checks := []handler.HealthCheck{{Name: "store", Pinger: store.repo}}
	if cfg.Redis.Addr != "" {
		rdb, err := redisadapter.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn("redis unavailable, run statistics disabled", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			defer rdb.Close()
			stats := redisadapter.NewRunStatsRepo(rdb, redisadapter.WithTTL(cfg.Redis.StatsTTL))
			opts = append(opts, usecase.WithRunStats(stats))
			checks = append(checks, handler.HealthCheck{Name: "redis", Pinger: stats})
		}
	}
	checker := usecase.NewChecker(usecase.NewRecordFetcher(store.repo, log), scheduler, log, opts...)

	stopServer := startStatusServer(cfg.Server.Addr, handler.NewHandler(checker, log, checks...), log)
	defer stopServer()

	log.Info("starting run",
		zap.String("cutoff", cfg.Input.Date),
		zap.Int("batch_size", cfg.Input.BatchSize),
		zap.Int("floor", schedCfg.Floor),
		zap.Int("ceiling", schedCfg.Ceiling),
		zap.String("policy", schedCfg.Policy.Name),
	)

	summary, err := checker.Run(ctx, cutoff, cfg.Input.BatchSize)
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			log.Warn("run interrupted",
				zap.Int("probed", summary.Probed),
				zap.Int("cancelled", summary.Cancelled),
			)
			return errInterrupted
		}
		return fmt.Errorf("run failed: %w", err)
	}
	return nil
}

// startStatusServer serves the status endpoints on addr. The server is
// auxiliary: an empty addr disables it and a bind failure is logged while the
// run goes on. The returned func shuts it down.
func startStatusServer(addr string, h *handler.Handler, log *zap.Logger) func() {
	if addr == "" {
		return func() {}
	}
	srv := server.New(addr, router.New(h, log), log)
	if _, err := srv.Start(); err != nil {
		log.Warn("status server disabled", zap.String("addr", addr), zap.Error(err))
		return func() {}
	}
	return func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("status server shutdown", zap.Error(err))
		}
	}
}

func frameSource(cfg *config.Config) telemetry.FrameSource {
	if cfg.Telemetry.Source == "procfs" {
		return netcapture.NewProcfsSource(cfg.Telemetry.ProcfsPath, cfg.Telemetry.Interval)
	}
	return netcapture.NewPcapSource()
}

func admissionConfig(cfg *config.Config) admission.Config {
	return admission.Config{
		Name:                cfg.Scheduler.Policy,
		Increment:           cfg.Scheduler.Increment,
		DecreaseRatio:       cfg.Scheduler.DecreaseRatio,
		IncrementsPerSecond: cfg.Scheduler.IncrementsPerSecond,
	}
}
