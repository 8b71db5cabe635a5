package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/KNICEX/momentum-monitor/internal/schedule"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type MomentumMonitorTask struct {
	source       SymbolSource
	monitor      *MomentumMonitor
	rejectSymbol func(symbol exchange.SymbolInfo) bool // if true, reject
	last         atomic.Pointer[CycleStats]
}

func NewMomentumMonitorTask(monitor *MomentumMonitor, source SymbolSource,
	reject ...func(symbol exchange.SymbolInfo) bool) *MomentumMonitorTask {
	task := &MomentumMonitorTask{
		source:  source,
		monitor: monitor,
		rejectSymbol: func(symbol exchange.SymbolInfo) bool {
			return false
		},
	}
	if len(reject) > 0 {
		task.rejectSymbol = reject[0]
	}
	return task
}

var _ schedule.Task = (*MomentumMonitorTask)(nil)

func (t *MomentumMonitorTask) Run(ctx context.Context) error {
	cycle := uuid.NewString()
	symbols, err := t.source.GetLiquidSymbols(ctx, false)
	if err != nil {
		if len(symbols) == 0 {
			return fmt.Errorf("load symbol universe: %w", err)
		}
		// 刷新失败时沿用上一次的快照
		slog.Warn("symbol universe refresh failed, using previous snapshot",
			"cycle", cycle, "symbols", len(symbols), "error", err)
	}

	symbols = lo.Reject(symbols, func(item exchange.SymbolInfo, index int) bool {
		return t.rejectSymbol(item)
	})

	stats, err := t.monitor.Scan(ctx, cycle, symbols)
	t.last.Store(&stats)
	return err
}

func (t *MomentumMonitorTask) Name() string {
	return "momentum monitor scan task"
}

// LastCycle 最近一轮扫描的统计, 还没跑过返回 false
func (t *MomentumMonitorTask) LastCycle() (CycleStats, bool) {
	stats := t.last.Load()
	if stats == nil {
		return CycleStats{}, false
	}
	return *stats, true
}

type CleanupTask struct {
	cleaner Cleaner
	days    int
}

func NewCleanupTask(cleaner Cleaner, retentionDays int) *CleanupTask {
	return &CleanupTask{
		cleaner: cleaner,
		days:    retentionDays,
	}
}

var _ schedule.Task = (*CleanupTask)(nil)

func (t *CleanupTask) Run(ctx context.Context) error {
	_, err := t.cleaner.Cleanup(ctx, t.days)
	return err
}

func (t *CleanupTask) Name() string {
	return "alert record cleanup task"
}
