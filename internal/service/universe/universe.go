package universe

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Config struct {
	ContractType   string
	MinQuoteVolume decimal.Decimal // 24h 最小成交额
	CacheTTL       time.Duration
}

// snapshot 一次刷新的结果, 发布后只读
type snapshot struct {
	bySymbol    map[string]exchange.SymbolInfo
	list        []exchange.SymbolInfo
	refreshedAt time.Time
}

// Universe 流动性交易对集合, 按 TTL 懒刷新.
// 同一时间只有一个刷新在执行, 刷新期间其他调用方直接拿到旧快照
type Universe struct {
	market   exchange.MarketService
	cfg      Config
	recorder *metrics.Recorder
	now      func() time.Time

	refreshMu sync.Mutex
	snap      atomic.Pointer[snapshot]
}

type Option func(u *Universe)

func WithRecorder(r *metrics.Recorder) Option {
	return func(u *Universe) {
		u.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Universe) {
		u.now = now
	}
}

func New(market exchange.MarketService, cfg Config, opts ...Option) *Universe {
	u := &Universe{
		market: market,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// GetLiquidSymbols 返回当前快照, 过期或 forceRefresh 时先刷新.
// 刷新失败时返回旧快照和错误
func (u *Universe) GetLiquidSymbols(ctx context.Context, forceRefresh bool) ([]exchange.SymbolInfo, error) {
	cur := u.snap.Load()
	if !forceRefresh && u.fresh(cur) {
		return cur.symbols(), nil
	}

	if !u.refreshMu.TryLock() {
		slog.Debug("universe refresh in flight, serving previous snapshot")
		return cur.symbols(), nil
	}
	defer u.refreshMu.Unlock()

	// 拿锁之前可能刚有别的刷新完成
	if latest := u.snap.Load(); latest != cur && !forceRefresh && u.fresh(latest) {
		return latest.symbols(), nil
	}

	next, err := u.refresh(ctx)
	u.recorder.UniverseRefreshed(next.size(), err)
	if err != nil {
		return u.snap.Load().symbols(), fmt.Errorf("refresh universe: %w", err)
	}
	u.snap.Store(next)
	slog.Info("universe updated", "liquid_count", len(next.list), "contract_type", u.cfg.ContractType,
		"min_quote_volume", u.cfg.MinQuoteVolume.String())
	return next.symbols(), nil
}

// IsLiquid 只查当前快照, 不会触发网络请求
func (u *Universe) IsLiquid(symbol string) bool {
	_, ok := u.Get(symbol)
	return ok
}

func (u *Universe) Get(symbol string) (exchange.SymbolInfo, bool) {
	s := u.snap.Load()
	if s == nil {
		return exchange.SymbolInfo{}, false
	}
	info, ok := s.bySymbol[symbol]
	return info, ok
}

// RefreshedAt 最近一次成功刷新的时间, 从未刷新返回零值
func (u *Universe) RefreshedAt() time.Time {
	if s := u.snap.Load(); s != nil {
		return s.refreshedAt
	}
	return time.Time{}
}

func (u *Universe) Size() int {
	return u.snap.Load().size()
}

func (u *Universe) fresh(s *snapshot) bool {
	return s != nil && u.now().Sub(s.refreshedAt) < u.cfg.CacheTTL
}

func (u *Universe) refresh(ctx context.Context) (*snapshot, error) {
	metas, err := u.market.FetchExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	tickers, err := u.market.FetchTickers(ctx)
	if err != nil {
		return nil, err
	}

	tradable := lo.SliceToMap(lo.Filter(metas, func(m exchange.SymbolMeta, _ int) bool {
		return m.ContractType == u.cfg.ContractType && m.Status == exchange.StatusTrading
	}), func(m exchange.SymbolMeta) (string, exchange.SymbolMeta) {
		return m.Symbol, m
	})

	bySymbol := make(map[string]exchange.SymbolInfo, len(tradable))
	for _, t := range tickers {
		meta, ok := tradable[t.Symbol]
		if !ok || t.QuoteVolume.LessThan(u.cfg.MinQuoteVolume) {
			continue
		}
		bySymbol[t.Symbol] = exchange.SymbolInfo{
			Symbol:         t.Symbol,
			ContractType:   meta.ContractType,
			TickSize:       meta.TickSize,
			StepSize:       meta.StepSize,
			QuoteVolume24h: t.QuoteVolume,
		}
	}

	list := lo.Values(bySymbol)
	sort.Slice(list, func(i, j int) bool {
		return list[i].Symbol < list[j].Symbol
	})
	slog.Debug("universe filtered", "tradable", len(tradable), "tickers", len(tickers), "liquid", len(list))
	return &snapshot{
		bySymbol:    bySymbol,
		list:        list,
		refreshedAt: u.now(),
	}, nil
}

func (s *snapshot) symbols() []exchange.SymbolInfo {
	if s == nil {
		return nil
	}
	res := make([]exchange.SymbolInfo, len(s.list))
	copy(res, s.list)
	return res
}

func (s *snapshot) size() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}
