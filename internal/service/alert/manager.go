package alert

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/service/dedup"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/KNICEX/momentum-monitor/internal/service/notification"
)

// Manager 去重 + 冷却 + 发送. 冷却状态只在内存里, 按 symbol:timeframe 记录最近一次发送时间
type Manager struct {
	store       Store
	sink        notification.Sink
	commentator *Commentator
	recorder    *metrics.Recorder
	cooldown    time.Duration
	now         func() time.Time

	mu        sync.Mutex
	lastAlert map[string]time.Time
}

type Option func(m *Manager)

func WithCommentator(c *Commentator) Option {
	return func(m *Manager) {
		m.commentator = c
	}
}

func WithRecorder(r *metrics.Recorder) Option {
	return func(m *Manager) {
		m.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
	}
}

func NewManager(store Store, sink notification.Sink, cooldown time.Duration, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		sink:      sink,
		cooldown:  cooldown,
		now:       time.Now,
		lastAlert: make(map[string]time.Time),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func cooldownKey(symbol string, timeframe exchange.Interval) string {
	return symbol + ":" + timeframe.ToString()
}

// CanAlert 这根K线没告警过, 且不在冷却期
func (m *Manager) CanAlert(ctx context.Context, symbol string, timeframe exchange.Interval, barCloseTime time.Time) (bool, error) {
	outcome := m.check(ctx, symbol, timeframe, barCloseTime)
	if outcome.Status == StatusFailed {
		return false, outcome.Err
	}
	return outcome.Status != StatusSkipped, nil
}

// check 返回空 Status 表示可以发送
func (m *Manager) check(ctx context.Context, symbol string, timeframe exchange.Interval, barCloseTime time.Time) Outcome {
	exists, err := m.store.Exists(ctx, symbol, timeframe, barCloseTime)
	if err != nil {
		return Outcome{Status: StatusFailed, Reason: ReasonStore, Err: err}
	}
	if exists {
		return Outcome{Status: StatusSkipped, Reason: ReasonAlreadyAlerted}
	}
	if m.inCooldown(symbol, timeframe) {
		return Outcome{Status: StatusSkipped, Reason: ReasonCooldown}
	}
	return Outcome{}
}

func (m *Manager) inCooldown(symbol string, timeframe exchange.Interval) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	last, ok := m.lastAlert[cooldownKey(symbol, timeframe)]
	return ok && m.now().Sub(last) < m.cooldown
}

func (m *Manager) markAlerted(symbol string, timeframe exchange.Interval, at time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := cooldownKey(symbol, timeframe)
	if prev, ok := m.lastAlert[key]; !ok || at.After(prev) {
		m.lastAlert[key] = at
	}
}

func (m *Manager) ProcessSignal(ctx context.Context, signal *momentum.Signal) Outcome {
	outcome := m.process(ctx, signal)
	m.recorder.AlertOutcome(string(outcome.Status), outcome.Reason)

	logArgs := []any{"symbol", signal.Symbol, "timeframe", signal.Timeframe,
		"bar_close_time", signal.BarCloseTime, "outcome", outcome.String()}
	switch outcome.Status {
	case StatusFailed:
		slog.Error("alert not delivered", append(logArgs, "error", outcome.Err)...)
	case StatusSkipped:
		slog.Debug("alert skipped", logArgs...)
	default:
		if outcome.Err != nil {
			logArgs = append(logArgs, "error", outcome.Err)
		}
		slog.Info("alert sent", logArgs...)
	}
	return outcome
}

func (m *Manager) process(ctx context.Context, signal *momentum.Signal) Outcome {
	if outcome := m.check(ctx, signal.Symbol, signal.Timeframe, signal.BarCloseTime); outcome.Status != "" {
		return outcome
	}

	var commentary string
	if m.commentator != nil {
		var err error
		commentary, err = m.commentator.Comment(ctx, signal)
		if err != nil {
			slog.Warn("alert commentary failed", "symbol", signal.Symbol, "error", err)
		}
	}

	err := m.sink.Notify(ctx, notification.Message{
		Symbol:  signal.Symbol,
		Content: FormatMessage(signal, commentary),
	})
	if err != nil {
		return Outcome{Status: StatusFailed, Reason: ReasonDelivery, Err: err}
	}

	err = m.store.Store(ctx, dedup.Record{
		Symbol:         signal.Symbol,
		Timeframe:      signal.Timeframe,
		BarCloseTime:   signal.BarCloseTime,
		Signature:      signal.Signature,
		Direction:      string(signal.Direction),
		PriceChangePct: signal.PriceChangePct.StringFixed(4),
		VolumeSpikePct: signal.VolumeSpikePct.StringFixed(4),
	})
	m.markAlerted(signal.Symbol, signal.Timeframe, m.now())
	switch {
	case errors.Is(err, dedup.ErrDuplicate):
		// 并发下另一个协程先落库, 已经发出去的消息收不回来
		return Outcome{Status: StatusSent, Reason: ReasonAlreadyAlerted}
	case err != nil:
		return Outcome{Status: StatusSent, Reason: ReasonStore, Err: err}
	}
	return Outcome{Status: StatusSent}
}

// RestoreCooldowns 从存储里恢复冷却期内最近的告警时间, 返回恢复的条数
func (m *Manager) RestoreCooldowns(ctx context.Context) (int, error) {
	last, err := m.store.LastAlertsSince(ctx, m.now().Add(-m.cooldown))
	if err != nil {
		return 0, err
	}
	for _, l := range last {
		m.markAlerted(l.Symbol, l.Timeframe, l.At)
	}
	slog.Info("alert cooldowns restored", "count", len(last))
	return len(last), nil
}
