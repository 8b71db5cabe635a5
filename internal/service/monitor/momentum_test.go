package monitor

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/repo"
	"github.com/KNICEX/momentum-monitor/internal/service/alert"
	"github.com/KNICEX/momentum-monitor/internal/service/dedup"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/KNICEX/momentum-monitor/internal/service/notification"
	"github.com/KNICEX/momentum-monitor/pkg/decimalx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type MockAnalyzer struct {
	mock.Mock
}

func (m *MockAnalyzer) Analyze(ctx context.Context, symbol exchange.SymbolInfo, timeframe exchange.Interval, lookback int) (*momentum.Signal, error) {
	args := m.Called(ctx, symbol.Symbol, timeframe, lookback)
	signal, _ := args.Get(0).(*momentum.Signal)
	return signal, args.Error(1)
}

type MockHandler struct {
	mock.Mock
}

func (m *MockHandler) ProcessSignal(ctx context.Context, signal *momentum.Signal) alert.Outcome {
	args := m.Called(ctx, signal)
	return args.Get(0).(alert.Outcome)
}

type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetLiquidSymbols(ctx context.Context, forceRefresh bool) ([]exchange.SymbolInfo, error) {
	args := m.Called(ctx, forceRefresh)
	return args.Get(0).([]exchange.SymbolInfo), args.Error(1)
}

var testConfig = Config{
	Timeframe:   exchange.Interval15m,
	Lookback:    8,
	Concurrency: 4,
	MaxRetries:  2,
	BackoffMin:  time.Millisecond,
	BackoffMax:  5 * time.Millisecond,
}

func symbolInfos(symbols ...string) []exchange.SymbolInfo {
	res := make([]exchange.SymbolInfo, len(symbols))
	for i, s := range symbols {
		res[i] = exchange.SymbolInfo{Symbol: s, ContractType: exchange.ContractTypePerpetual}
	}
	return res
}

func TestMomentumMonitor_Scan(t *testing.T) {
	ctx := context.Background()
	signal := &momentum.Signal{Symbol: "BTCUSDT", Timeframe: exchange.Interval15m}

	analyzer := &MockAnalyzer{}
	analyzer.On("Analyze", mock.Anything, "BTCUSDT", exchange.Interval15m, 8).Return(signal, nil)
	analyzer.On("Analyze", mock.Anything, "ETHUSDT", exchange.Interval15m, 8).Return(nil, nil)
	analyzer.On("Analyze", mock.Anything, "BADUSDT", exchange.Interval15m, 8).
		Return(nil, &exchange.FetchError{Endpoint: "/fapi/v1/klines", Status: 400, Code: -1121, Err: errors.New("invalid symbol")})

	handler := &MockHandler{}
	handler.On("ProcessSignal", mock.Anything, signal).Return(alert.Outcome{Status: alert.StatusSent})

	m := NewMomentumMonitor(analyzer, handler, testConfig)
	stats, err := m.Scan(ctx, "cycle-1", symbolInfos("BADUSDT", "BTCUSDT", "ETHUSDT"))
	require.NoError(t, err)
	assert.Equal(t, "cycle-1", stats.Cycle)
	assert.Equal(t, 3, stats.Symbols)
	assert.Equal(t, 3, stats.Scanned)
	assert.Equal(t, 1, stats.Signals)
	assert.Equal(t, 1, stats.Sent)
	assert.Equal(t, 1, stats.Errors)
	// 非可重试错误只调用一次
	analyzer.AssertNumberOfCalls(t, "Analyze", 3)
	handler.AssertExpectations(t)
}

func TestMomentumMonitor_Retry(t *testing.T) {
	retryable := &exchange.FetchError{Endpoint: "/fapi/v1/klines", Status: 503, Err: errors.New("unavailable")}

	t.Run("recovers", func(t *testing.T) {
		analyzer := &MockAnalyzer{}
		analyzer.On("Analyze", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return(nil, retryable).Twice()
		analyzer.On("Analyze", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return(nil, nil).Once()

		stats, err := NewMomentumMonitor(analyzer, &MockHandler{}, testConfig).
			Scan(context.Background(), "c", symbolInfos("BTCUSDT"))
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Errors)
		analyzer.AssertNumberOfCalls(t, "Analyze", 3)
	})

	t.Run("gives up", func(t *testing.T) {
		analyzer := &MockAnalyzer{}
		analyzer.On("Analyze", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return(nil, retryable)

		stats, err := NewMomentumMonitor(analyzer, &MockHandler{}, testConfig).
			Scan(context.Background(), "c", symbolInfos("BTCUSDT"))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Errors)
		analyzer.AssertNumberOfCalls(t, "Analyze", 1+testConfig.MaxRetries)
	})

	t.Run("non fetch error", func(t *testing.T) {
		analyzer := &MockAnalyzer{}
		analyzer.On("Analyze", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return(nil, errors.New("bad lookback"))

		stats, err := NewMomentumMonitor(analyzer, &MockHandler{}, testConfig).
			Scan(context.Background(), "c", symbolInfos("BTCUSDT"))
		require.NoError(t, err)
		assert.Equal(t, 1, stats.Errors)
		analyzer.AssertNumberOfCalls(t, "Analyze", 1)
	})
}

func TestMomentumMonitor_Concurrency(t *testing.T) {
	var inFlight, maxInFlight atomic.Int32
	analyzer := &MockAnalyzer{}
	analyzer.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			n := inFlight.Add(1)
			for {
				cur := maxInFlight.Load()
				if n <= cur || maxInFlight.CompareAndSwap(cur, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
		}).Return(nil, nil)

	cfg := testConfig
	cfg.Concurrency = 2
	symbols := symbolInfos("A", "B", "C", "D", "E", "F", "G", "H")
	stats, err := NewMomentumMonitor(analyzer, &MockHandler{}, cfg).Scan(context.Background(), "c", symbols)
	require.NoError(t, err)
	assert.Equal(t, 8, stats.Scanned)
	assert.LessOrEqual(t, maxInFlight.Load(), int32(2))
}

func TestMomentumMonitor_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	analyzer := &MockAnalyzer{}
	analyzer.On("Analyze", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).Return(nil, nil)

	cfg := testConfig
	cfg.Concurrency = 1
	stats, err := NewMomentumMonitor(analyzer, &MockHandler{}, cfg).
		Scan(ctx, "c", symbolInfos("A", "B", "C", "D"))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, stats.Scanned, 4)
	analyzer.AssertNumberOfCalls(t, "Analyze", 1)
}

func TestMomentumMonitorTask_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects and records stats", func(t *testing.T) {
		source := &MockSource{}
		source.On("GetLiquidSymbols", mock.Anything, false).Return(symbolInfos("BTCUSDT", "USDCUSDT"), nil)
		analyzer := &MockAnalyzer{}
		analyzer.On("Analyze", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return(nil, nil)

		task := NewMomentumMonitorTask(NewMomentumMonitor(analyzer, &MockHandler{}, testConfig), source,
			func(symbol exchange.SymbolInfo) bool { return symbol.Symbol == "USDCUSDT" })
		_, ok := task.LastCycle()
		assert.False(t, ok)

		require.NoError(t, task.Run(ctx))
		stats, ok := task.LastCycle()
		require.True(t, ok)
		assert.Equal(t, 1, stats.Symbols)
		assert.NotEmpty(t, stats.Cycle)
		analyzer.AssertNotCalled(t, "Analyze", mock.Anything, "USDCUSDT", mock.Anything, mock.Anything)
	})

	t.Run("stale snapshot", func(t *testing.T) {
		source := &MockSource{}
		source.On("GetLiquidSymbols", mock.Anything, false).Return(symbolInfos("BTCUSDT"), errors.New("exchangeInfo 503"))
		analyzer := &MockAnalyzer{}
		analyzer.On("Analyze", mock.Anything, "BTCUSDT", mock.Anything, mock.Anything).Return(nil, nil)

		task := NewMomentumMonitorTask(NewMomentumMonitor(analyzer, &MockHandler{}, testConfig), source)
		require.NoError(t, task.Run(ctx))
		analyzer.AssertNumberOfCalls(t, "Analyze", 1)
	})

	t.Run("no snapshot", func(t *testing.T) {
		source := &MockSource{}
		source.On("GetLiquidSymbols", mock.Anything, false).Return([]exchange.SymbolInfo(nil), errors.New("exchangeInfo 503"))

		task := NewMomentumMonitorTask(NewMomentumMonitor(&MockAnalyzer{}, &MockHandler{}, testConfig), source)
		assert.Error(t, task.Run(ctx))
	})
}

type MockCleaner struct {
	mock.Mock
}

func (m *MockCleaner) Cleanup(ctx context.Context, olderThanDays int) (int64, error) {
	args := m.Called(ctx, olderThanDays)
	return args.Get(0).(int64), args.Error(1)
}

func TestCleanupTask(t *testing.T) {
	cleaner := &MockCleaner{}
	cleaner.On("Cleanup", mock.Anything, 7).Return(int64(3), nil)
	task := NewCleanupTask(cleaner, 7)
	assert.NoError(t, task.Run(context.Background()))
	cleaner.AssertExpectations(t)
}

type MockMarketService struct {
	mock.Mock
}

func (m *MockMarketService) FetchTickers(ctx context.Context) ([]exchange.Ticker, error) {
	args := m.Called(ctx)
	return args.Get(0).([]exchange.Ticker), args.Error(1)
}

func (m *MockMarketService) FetchExchangeInfo(ctx context.Context) ([]exchange.SymbolMeta, error) {
	args := m.Called(ctx)
	return args.Get(0).([]exchange.SymbolMeta), args.Error(1)
}

func (m *MockMarketService) FetchCandles(ctx context.Context, symbol string, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	args := m.Called(ctx, symbol, interval, limit)
	return args.Get(0).([]exchange.Kline), args.Error(1)
}

type recordSink struct {
	mu   sync.Mutex
	msgs []notification.Message
}

func (s *recordSink) Notify(ctx context.Context, msg notification.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = append(s.msgs, msg)
	return nil
}

func (s *recordSink) Name() string {
	return "record"
}

// 两轮扫描同一根K线, 只发一次
func TestMomentumMonitor_EndToEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	closes := []string{"100", "100.5", "101", "100.8", "101.2", "101.5", "102", "103", "106"}
	kLines := make([]exchange.Kline, len(closes))
	for i, c := range closes {
		open := now.Add(time.Duration(i-9) * 15 * time.Minute)
		volume := decimal.NewFromInt(10)
		if i == len(closes)-1 {
			volume = decimal.NewFromInt(30)
		}
		price := decimalx.MustFromString(c)
		kLines[i] = exchange.Kline{Symbol: "TESTUSDT", Interval: exchange.Interval15m, OpenTime: open,
			CloseTime: open.Add(15*time.Minute - time.Millisecond), Open: price, Close: price,
			High: price, Low: price, Volume: volume, Final: true}
	}
	market := &MockMarketService{}
	market.On("FetchCandles", mock.Anything, "TESTUSDT", exchange.Interval15m, 9).Return(kLines, nil)

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "alerts.db")), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repo.InitTables(db))

	sink := &recordSink{}
	store := dedup.NewStore(repo.NewAlertRepo(db), dedup.WithClock(clock))
	manager := alert.NewManager(store, sink, 30*time.Minute, alert.WithClock(clock))
	detector := momentum.NewDetector(market, momentum.Config{
		PriceChangeThreshold: decimal.NewFromInt(5),
		VolumeSpikeThreshold: decimal.NewFromInt(200),
	}, momentum.WithClock(clock))
	m := NewMomentumMonitor(detector, manager, testConfig, WithClock(clock))

	stats, err := m.Scan(ctx, "c1", symbolInfos("TESTUSDT"))
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Sent)

	stats, err = m.Scan(ctx, "c2", symbolInfos("TESTUSDT"))
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Sent)
	assert.Equal(t, 1, stats.Skipped)

	require.Len(t, sink.msgs, 1)
	assert.Contains(t, sink.msgs[0].Content, "**TESTUSDT**")
}

// 成交量放大 220%: 流动性好的交易对触发, 每小时成交额 5000 的交易对不触发
func TestMomentumMonitor_LowLiquidityThreshold(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 3, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	closes := []string{"100", "100.5", "101", "100.8", "101.2", "101.5", "102", "103", "106"}
	build := func(symbol string) []exchange.Kline {
		kLines := make([]exchange.Kline, len(closes))
		for i, c := range closes {
			open := now.Add(time.Duration(i-9) * 15 * time.Minute)
			volume := decimal.NewFromInt(10)
			if i == len(closes)-1 {
				volume = decimal.NewFromInt(32)
			}
			price := decimalx.MustFromString(c)
			kLines[i] = exchange.Kline{Symbol: symbol, Interval: exchange.Interval15m, OpenTime: open,
				CloseTime: open.Add(15*time.Minute - time.Millisecond), Open: price, Close: price,
				High: price, Low: price, Volume: volume, Final: true}
		}
		return kLines
	}
	market := &MockMarketService{}
	market.On("FetchCandles", mock.Anything, "BTCUSDT", exchange.Interval15m, 9).Return(build("BTCUSDT"), nil)
	market.On("FetchCandles", mock.Anything, "THINUSDT", exchange.Interval15m, 9).Return(build("THINUSDT"), nil)

	detector := momentum.NewDetector(market, momentum.Config{
		PriceChangeThreshold:        decimal.NewFromInt(5),
		VolumeSpikeThreshold:        decimal.NewFromInt(200),
		LowLiquidityHourlyVolume:    decimal.NewFromInt(10000),
		LowLiquidityVolumeThreshold: decimal.NewFromInt(250),
	}, momentum.WithClock(clock))

	handler := &MockHandler{}
	handler.On("ProcessSignal", mock.Anything, mock.MatchedBy(func(s *momentum.Signal) bool {
		return s.Symbol == "BTCUSDT"
	})).Return(alert.Outcome{Status: alert.StatusSent}).Once()

	symbols := []exchange.SymbolInfo{
		{Symbol: "BTCUSDT", QuoteVolume24h: decimal.NewFromInt(2_400_000)},
		{Symbol: "THINUSDT", QuoteVolume24h: decimal.NewFromInt(120_000)},
	}
	stats, err := NewMomentumMonitor(detector, handler, testConfig, WithClock(clock)).Scan(ctx, "c1", symbols)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Scanned)
	assert.Equal(t, 1, stats.Signals)
	assert.Equal(t, 1, stats.Sent)
	handler.AssertExpectations(t)
	market.AssertExpectations(t)
}
