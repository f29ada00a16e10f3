// 程序入口：读取配置、初始化依赖并启动周期轮询；核心逻辑在 internal/loadshed 与 internal/monitor
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"loadshed-monitor/internal/cache"
	"loadshed-monitor/internal/config"
	"loadshed-monitor/internal/esp"
	"loadshed-monitor/internal/loadshed"
	"loadshed-monitor/internal/logger"
	"loadshed-monitor/internal/merchants"
	"loadshed-monitor/internal/metrics"
	"loadshed-monitor/internal/migrate"
	"loadshed-monitor/internal/monitor"
	"loadshed-monitor/internal/store"
	"loadshed-monitor/internal/utils"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		merchantsFile string
		apiToken      string
		dev           bool
		once          bool
		interval      time.Duration
		workers       int
	)
	cmd := &cobra.Command{
		Use:           "loadshed-monitor",
		Short:         "Close and reopen merchants according to load shedding in their area",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromEnv()
			if cmd.Flags().Changed("merchants") {
				cfg.MerchantsFile = merchantsFile
			}
			if cmd.Flags().Changed("api-token") {
				cfg.ESPToken = apiToken
			}
			if dev && cfg.ESPTestView == "" {
				cfg.ESPTestView = "future"
			}
			if cmd.Flags().Changed("interval") {
				cfg.PollInterval = interval
			}
			if cmd.Flags().Changed("workers") {
				cfg.PollWorkers = workers
			}
			maxPasses := 0
			if once {
				maxPasses = 1
			}
			return run(cfg, maxPasses)
		},
	}
	cmd.Flags().StringVar(&merchantsFile, "merchants", "", "Excel file containing merchant data (sheet \"data\")")
	cmd.Flags().StringVar(&apiToken, "api-token", "", "EskomSePush API token")
	cmd.Flags().BoolVar(&dev, "dev", false, "query the EskomSePush test view (future events)")
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	cmd.Flags().DurationVar(&interval, "interval", time.Minute, "delay between the end of one pass and the start of the next")
	cmd.Flags().IntVar(&workers, "workers", 1, "merchants evaluated concurrently within a pass")
	cobra.OnInitialize(func() { config.LoadDotenv(".env") })
	return cmd
}

func run(cfg config.Config, maxPasses int) error {
	l := logger.Setup()
	if err := cfg.Validate(); err != nil {
		l.Error("config_error", "err", err)
		return err
	}
	l.Debug("config_loaded", "db_driver", cfg.DBDriver, "test_view", cfg.ESPTestView, "interval", cfg.PollInterval.String(), "workers", cfg.PollWorkers, "tz", cfg.Location.String())

	list, err := merchants.LoadExcel(cfg.MerchantsFile, cfg.MerchantsSheet)
	if err != nil {
		l.Error("merchants_load_error", "file", cfg.MerchantsFile, "err", err)
		return err
	}

	db, err := utils.OpenDatabase(cfg.DBDriver, cfg.SQLitePath)
	if err != nil {
		l.Error("db_open_error", "err", err)
		return err
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		l.Error("db_ping_error", "err", err)
		return err
	}
	if err := migrate.EnsureSchema(db, cfg.DBDriver); err != nil {
		l.Error("schema_error", "err", err)
		return err
	}
	st := store.AttachDB(db, cfg.DBDriver)
	l.Info("db_ready", "driver", cfg.DBDriver)

	now := func() time.Time { return time.Now().In(cfg.Location) }
	areaTier := cache.Tier[loadshed.Coordinate, loadshed.AreaInfo](cache.NewLRU[loadshed.Coordinate, loadshed.AreaInfo](cfg.CacheMaxEntries))
	schedTier := cache.Tier[string, loadshed.Info](cache.NewLRU[string, loadshed.Info](cfg.CacheMaxEntries))
	if rc := utils.OpenRedisFromEnv(); rc != nil {
		defer rc.Close()
		if err := rc.Ping(context.Background()).Err(); err != nil {
			l.Error("redis_ping_error", "err", err)
		} else {
			l.Info("redis_ping_ok")
		}
		areaTier = cache.NewChain[loadshed.Coordinate, loadshed.AreaInfo](areaTier,
			cache.NewRedisTier[loadshed.Coordinate, loadshed.AreaInfo](rc, "loadshed:area:", loadshed.Coordinate.String, now))
		schedTier = cache.NewChain[string, loadshed.Info](schedTier,
			cache.NewRedisTier[string, loadshed.Info](rc, "loadshed:schedule:", func(id string) string { return id }, now))
	} else {
		l.Info("redis_disabled")
	}

	client := esp.NewClient(cfg.ESPBaseURL, cfg.ESPToken, cfg.ESPTestView, &http.Client{Timeout: cfg.ESPTimeout})
	areas := loadshed.NewAreaResolver(client, cache.NewTTL[loadshed.Coordinate, loadshed.AreaInfo]("area", areaTier, cfg.AreaTTL, now))
	schedules := loadshed.NewScheduleResolver(client, cache.NewTTL[string, loadshed.Info]("schedule", schedTier, cfg.ScheduleTTL, now), now)

	if cfg.MetricsAddr != "" {
		go serveOps(cfg.MetricsAddr)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	r := &monitor.Runner{
		Monitor:   monitor.New(areas, schedules, st, now, cfg.PollWorkers),
		Source:    list,
		Interval:  cfg.PollInterval,
		MaxPasses: maxPasses,
	}
	l.Info("runner_start", "merchants", len(list), "interval", cfg.PollInterval.String())
	return r.Run(ctx)
}

// serveOps：运维监听，暴露 /metrics 与 /healthz
func serveOps(addr string) {
	l := logger.L()
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	s := &http.Server{Addr: addr, Handler: logger.AccessMiddleware(l)(mux), ReadHeaderTimeout: 5 * time.Second}
	l.Info("ops_listening", "addr", addr)
	if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		l.Error("ops_listen_error", "err", err)
	}
}
