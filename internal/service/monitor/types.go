package monitor

import (
	"context"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/service/alert"
	"github.com/KNICEX/momentum-monitor/internal/service/dedup"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/KNICEX/momentum-monitor/internal/service/universe"
)

type Analyzer interface {
	Analyze(ctx context.Context, symbol exchange.SymbolInfo, timeframe exchange.Interval, lookback int) (*momentum.Signal, error)
}

type SignalHandler interface {
	ProcessSignal(ctx context.Context, signal *momentum.Signal) alert.Outcome
}

type SymbolSource interface {
	GetLiquidSymbols(ctx context.Context, forceRefresh bool) ([]exchange.SymbolInfo, error)
}

type Cleaner interface {
	Cleanup(ctx context.Context, olderThanDays int) (int64, error)
}

var (
	_ Analyzer      = (*momentum.Detector)(nil)
	_ SignalHandler = (*alert.Manager)(nil)
	_ SymbolSource  = (*universe.Universe)(nil)
	_ Cleaner       = (*dedup.Store)(nil)
)

// CycleStats 一轮扫描的统计
type CycleStats struct {
	Cycle    string
	Started  time.Time
	Duration time.Duration
	Symbols  int
	Scanned  int
	Signals  int
	Sent     int
	Skipped  int
	Failed   int
	Errors   int
}
