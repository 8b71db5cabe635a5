package monitor

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/service/alert"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/jpillora/backoff"
	"golang.org/x/sync/errgroup"
)

type Config struct {
	Timeframe   exchange.Interval
	Lookback    int
	Concurrency int
	MaxRetries  int
	BackoffMin  time.Duration
	BackoffMax  time.Duration
}

// MomentumMonitor 对一批交易对做一轮检测, 单个交易对失败不影响其它交易对
type MomentumMonitor struct {
	analyzer Analyzer
	handler  SignalHandler
	cfg      Config
	recorder *metrics.Recorder
	now      func() time.Time
}

type Option func(m *MomentumMonitor)

func WithRecorder(r *metrics.Recorder) Option {
	return func(m *MomentumMonitor) {
		m.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *MomentumMonitor) {
		m.now = now
	}
}

func NewMomentumMonitor(analyzer Analyzer, handler SignalHandler, cfg Config, opts ...Option) *MomentumMonitor {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	m := &MomentumMonitor{
		analyzer: analyzer,
		handler:  handler,
		cfg:      cfg,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Scan 并发数受 Concurrency 限制, ctx 取消后不再开始新的交易对, 返回 ctx 的错误
func (m *MomentumMonitor) Scan(ctx context.Context, cycle string, symbols []exchange.SymbolInfo) (CycleStats, error) {
	logger := slog.With("cycle", cycle)
	stats := CycleStats{
		Cycle:   cycle,
		Started: m.now(),
		Symbols: len(symbols),
	}
	var mu sync.Mutex

	var g errgroup.Group
	g.SetLimit(m.cfg.Concurrency)
	for _, symbol := range symbols {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			outcome, detected, err := m.scanSymbol(ctx, logger, symbol)

			mu.Lock()
			defer mu.Unlock()
			stats.Scanned++
			if err != nil {
				stats.Errors++
				return nil
			}
			if !detected {
				return nil
			}
			stats.Signals++
			switch outcome.Status {
			case alert.StatusSent:
				stats.Sent++
			case alert.StatusSkipped:
				stats.Skipped++
			case alert.StatusFailed:
				stats.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()

	stats.Duration = m.now().Sub(stats.Started)
	m.recorder.ScanCycle(stats.Duration)
	logger.Info("scan cycle finished", "symbols", stats.Symbols, "scanned", stats.Scanned,
		"signals", stats.Signals, "sent", stats.Sent, "skipped", stats.Skipped,
		"failed", stats.Failed, "errors", stats.Errors, "elapsed", stats.Duration)
	return stats, ctx.Err()
}

func (m *MomentumMonitor) scanSymbol(ctx context.Context, logger *slog.Logger, symbol exchange.SymbolInfo) (alert.Outcome, bool, error) {
	signal, err := m.analyze(ctx, logger, symbol)
	if err != nil {
		if ctx.Err() == nil {
			logger.Error("failed to analyze symbol", "symbol", symbol.Symbol, "error", err)
		}
		return alert.Outcome{}, false, err
	}
	if signal == nil {
		return alert.Outcome{}, false, nil
	}
	return m.handler.ProcessSignal(ctx, signal), true, nil
}

// analyze 只对可重试的 FetchError 做退避重试
func (m *MomentumMonitor) analyze(ctx context.Context, logger *slog.Logger, symbol exchange.SymbolInfo) (*momentum.Signal, error) {
	b := &backoff.Backoff{
		Min:    m.cfg.BackoffMin,
		Max:    m.cfg.BackoffMax,
		Factor: 2,
		Jitter: true,
	}
	for {
		signal, err := m.analyzer.Analyze(ctx, symbol, m.cfg.Timeframe, m.cfg.Lookback)
		if err == nil {
			return signal, nil
		}
		var fe *exchange.FetchError
		if !errors.As(err, &fe) || !fe.Retryable() || int(b.Attempt()) >= m.cfg.MaxRetries {
			return nil, err
		}

		wait := b.Duration()
		logger.Warn("retry analyze symbol", "symbol", symbol.Symbol, "attempt", b.Attempt(), "wait", wait, "error", err)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
