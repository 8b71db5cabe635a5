package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/config"
	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/schedule"
	"github.com/KNICEX/momentum-monitor/internal/server"
	"github.com/KNICEX/momentum-monitor/internal/service/alert"
	"github.com/KNICEX/momentum-monitor/internal/service/dedup"
	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/KNICEX/momentum-monitor/internal/service/monitor"
	"github.com/KNICEX/momentum-monitor/internal/service/universe"
	"github.com/KNICEX/momentum-monitor/ioc"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

func initConfig() config.Config {
	// --config=./config/xxx.yaml
	file := pflag.String("config", "./config/config.yaml", "specify config file")
	envFile := pflag.String("env", ".env", "specify dotenv file")
	pflag.Parse()

	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to load dotenv file", "path", *envFile, "error", err)
	}

	cfg, err := config.Load(viper.GetViper(), *file)
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	return cfg
}

func main() {
	cfg := initConfig()
	ioc.InitLogger(cfg.Log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.NewRecorder(reg)

	marketSvc := ioc.InitMarketService(cfg.Exchange.Binance, recorder)
	symbolUniverse := universe.New(marketSvc, universe.Config{
		ContractType:   cfg.Universe.ContractType,
		MinQuoteVolume: decimal.NewFromFloat(cfg.Universe.MinQuoteVolume),
		CacheTTL:       cfg.Universe.CacheTTL,
	}, universe.WithRecorder(recorder))

	store := dedup.NewStore(ioc.InitAlertRepo(cfg.Storage), dedup.WithRecorder(recorder),
		dedup.WithSerializedWrites(cfg.Storage.Driver != config.DriverRedis))
	alertOpts := []alert.Option{alert.WithRecorder(recorder)}
	if cfg.Alerts.Commentary {
		alertOpts = append(alertOpts, alert.WithCommentator(ioc.InitCommentator(cfg.LLM.Gemini, cfg.Alerts.CommentaryTimeout)))
	}
	manager := alert.NewManager(store, ioc.InitSink(cfg.Alerts), cfg.Alerts.Cooldown, alertOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Alerts.RestoreCooldown {
		if _, err := manager.RestoreCooldowns(ctx); err != nil {
			slog.Warn("failed to restore alert cooldowns", "error", err)
		}
	}

	detector := momentum.NewDetector(marketSvc, momentum.Config{
		PriceChangeThreshold: decimal.NewFromFloat(cfg.Signals.PriceChangeThreshold),
		VolumeSpikeThreshold: decimal.NewFromFloat(cfg.Signals.VolumeSpikeThreshold),
		UseATRNormalization:  cfg.Signals.UseATRNormalization,

		LowLiquidityHourlyVolume:    decimal.NewFromFloat(cfg.Signals.LowLiquidityHourlyVolume),
		LowLiquidityVolumeThreshold: decimal.NewFromFloat(cfg.Signals.LowLiquidityVolumeThreshold),
	}, momentum.WithRecorder(recorder))

	momentumMonitor := monitor.NewMomentumMonitor(detector, manager, monitor.Config{
		Timeframe:   cfg.Signals.Interval(),
		Lookback:    cfg.Signals.LookbackPeriods,
		Concurrency: cfg.Scan.Concurrency,
		MaxRetries:  cfg.Scan.MaxRetries,
		BackoffMin:  cfg.Scan.BackoffMin,
		BackoffMax:  cfg.Scan.BackoffMax,
	}, monitor.WithRecorder(recorder))
	scanTask := monitor.NewMomentumMonitorTask(momentumMonitor, symbolUniverse)
	cleanupTask := monitor.NewCleanupTask(store, cfg.Alerts.RetentionDays)

	var srv *server.Server
	if cfg.Server.Enabled {
		srv = server.New(cfg.Server.Addr, symbolUniverse, scanTask, reg)
		srv.Start()
	}

	slog.Info("momentum monitor started",
		"timeframe", cfg.Signals.Timeframe,
		"lookback", cfg.Signals.LookbackPeriods,
		"price_change_threshold", cfg.Signals.PriceChangeThreshold,
		"volume_spike_threshold", cfg.Signals.VolumeSpikeThreshold,
		"cooldown", cfg.Alerts.Cooldown,
		"sink", cfg.Alerts.Sink,
		"storage", cfg.Storage.Driver)

	var wg sync.WaitGroup
	for _, r := range []*schedule.Runner{
		schedule.NewRunner(scanTask, cfg.Scan.Interval),
		schedule.NewRunner(cleanupTask, cfg.Alerts.CleanupInterval),
	} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Start(ctx)
		}()
	}
	wg.Wait()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("failed to stop status server", "error", err)
		}
	}
	slog.Info("momentum monitor stopped")
}
