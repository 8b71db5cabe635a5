package dedup

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/entity"
	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/repo"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
)

// ErrDuplicate 这根K线已经告警过
var ErrDuplicate = errors.New("duplicate alert")

// Record 需要持久化的告警
type Record struct {
	Symbol         string
	Timeframe      exchange.Interval
	BarCloseTime   time.Time
	Signature      string
	Direction      string
	PriceChangePct string
	VolumeSpikePct string
}

// Store 持久化去重, 多个扫描协程共享一个实例.
// 唯一性由存储层的唯一约束保证; 本地存储(sqlite)额外用进程内读写锁串行化写入,
// 远程存储(redis)不加锁, 锁不会跨网络 IO 持有
type Store struct {
	repo      repo.AlertRepo
	recorder  *metrics.Recorder
	now       func() time.Time
	mu        sync.RWMutex
	serialize bool
}

type Option func(s *Store)

func WithRecorder(r *metrics.Recorder) Option {
	return func(s *Store) {
		s.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithSerializedWrites 默认开启, 远程存储应关闭
func WithSerializedWrites(on bool) Option {
	return func(s *Store) {
		s.serialize = on
	}
}

func NewStore(alertRepo repo.AlertRepo, opts ...Option) *Store {
	s := &Store{
		repo:      alertRepo,
		now:       time.Now,
		serialize: true,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Exists 查询失败返回错误, 调用方不能当作未告警处理
func (s *Store) Exists(ctx context.Context, symbol string, timeframe exchange.Interval, barCloseTime time.Time) (bool, error) {
	defer s.rlock()()
	exists, err := s.repo.Exists(ctx, symbol, timeframe.ToString(), barCloseTime.UnixMilli())
	if err != nil {
		return false, fmt.Errorf("check alert %s %s: %w", symbol, timeframe, err)
	}
	return exists, nil
}

// Store 记录告警, 并发写同一根K线只有一个成功, 其余返回 ErrDuplicate
func (s *Store) Store(ctx context.Context, r Record) error {
	defer s.lock()()
	_, err := s.repo.Create(ctx, entity.AlertRecord{
		Symbol:         r.Symbol,
		Timeframe:      r.Timeframe.ToString(),
		BarCloseTime:   r.BarCloseTime.UnixMilli(),
		Signature:      r.Signature,
		Direction:      r.Direction,
		PriceChangePct: r.PriceChangePct,
		VolumeSpikePct: r.VolumeSpikePct,
		CreatedAt:      s.now().UnixMilli(),
	})
	if err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrDuplicate
		}
		return fmt.Errorf("store alert %s %s: %w", r.Symbol, r.Timeframe, err)
	}
	return nil
}

// Cleanup 删除 olderThanDays 天之前创建的记录, 恰好在边界上的保留
func (s *Store) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	if olderThanDays < 0 {
		return 0, fmt.Errorf("olderThanDays must not be negative, got %d", olderThanDays)
	}
	cutoff := s.now().Add(-time.Duration(olderThanDays) * 24 * time.Hour)

	defer s.lock()()
	n, err := s.repo.DeleteBefore(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("cleanup alerts before %s: %w", cutoff, err)
	}
	s.recorder.CleanupDeleted(n)
	slog.Info("alert records cleaned", "deleted", n, "cutoff", cutoff)
	return n, nil
}

// LastAlert 某个 (Symbol, Timeframe) 最近一次告警的时间
type LastAlert struct {
	Symbol    string
	Timeframe exchange.Interval
	At        time.Time
}

// LastAlertsSince 用于重启后恢复冷却状态
func (s *Store) LastAlertsSince(ctx context.Context, since time.Time) ([]LastAlert, error) {
	defer s.rlock()()
	records, err := s.repo.LatestSince(ctx, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("load alerts since %s: %w", since, err)
	}
	res := make([]LastAlert, 0, len(records))
	for _, r := range records {
		res = append(res, LastAlert{
			Symbol:    r.Symbol,
			Timeframe: exchange.Interval(r.Timeframe),
			At:        time.UnixMilli(r.CreatedAt),
		})
	}
	return res, nil
}

func (s *Store) lock() (unlock func()) {
	if !s.serialize {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *Store) rlock() (unlock func()) {
	if !s.serialize {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}
