package integration

import (
	"testing"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/KNICEX/momentum-monitor/internal/service/universe"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MarketSuite struct {
	BaseSuite
}

func TestMarketSuite(t *testing.T) {
	suite.Run(t, new(MarketSuite))
}

func (s *MarketSuite) TestExchangeInfo() {
	metas, err := s.marketSvc.FetchExchangeInfo(s.ctx)
	s.Require().NoError(err)
	btc, ok := lo.Find(metas, func(m exchange.SymbolMeta) bool { return m.Symbol == "BTCUSDT" })
	s.Require().True(ok, "BTCUSDT 不在 exchangeInfo 中")
	s.Equal(exchange.ContractTypePerpetual, btc.ContractType)
	s.Equal(exchange.StatusTrading, btc.Status)
	s.True(btc.TickSize.IsPositive())
	s.T().Logf("  exchangeInfo: %d 个交易对", len(metas))
}

func (s *MarketSuite) TestTickers() {
	tickers, err := s.marketSvc.FetchTickers(s.ctx)
	s.Require().NoError(err)
	s.NotEmpty(tickers)
	btc, ok := lo.Find(tickers, func(t exchange.Ticker) bool { return t.Symbol == "BTCUSDT" })
	s.Require().True(ok)
	s.True(btc.QuoteVolume.IsPositive())
}

func (s *MarketSuite) TestCandles() {
	kLines, err := s.marketSvc.FetchCandles(s.ctx, "BTCUSDT", exchange.Interval15m, 9)
	s.Require().NoError(err)
	s.Require().Len(kLines, 9)
	for i := 1; i < len(kLines); i++ {
		s.True(kLines[i].OpenTime.After(kLines[i-1].OpenTime), "K线需要按时间升序")
	}
	// 除最后一根外都已收盘
	s.True(lo.EveryBy(kLines[:8], func(k exchange.Kline) bool { return k.Final }))
	s.True(kLines[8].CloseTime.After(time.Now().Add(-15 * time.Minute)))
}

func (s *MarketSuite) TestUniverseAndDetector() {
	u := universe.New(s.marketSvc, universe.Config{
		ContractType:   s.cfg.Universe.ContractType,
		MinQuoteVolume: decimal.NewFromFloat(s.cfg.Universe.MinQuoteVolume),
		CacheTTL:       s.cfg.Universe.CacheTTL,
	})
	symbols, err := u.GetLiquidSymbols(s.ctx, false)
	s.Require().NoError(err)
	s.NotEmpty(symbols)
	s.True(u.IsLiquid("BTCUSDT"))

	detector := momentum.NewDetector(s.marketSvc, momentum.Config{
		PriceChangeThreshold: decimal.NewFromFloat(s.cfg.Signals.PriceChangeThreshold),
		VolumeSpikeThreshold: decimal.NewFromFloat(s.cfg.Signals.VolumeSpikeThreshold),
		UseATRNormalization:  true,

		LowLiquidityHourlyVolume:    decimal.NewFromFloat(s.cfg.Signals.LowLiquidityHourlyVolume),
		LowLiquidityVolumeThreshold: decimal.NewFromFloat(s.cfg.Signals.LowLiquidityVolumeThreshold),
	})
	for _, symbol := range symbols[:min(5, len(symbols))] {
		signal, err := detector.Analyze(s.ctx, symbol, s.cfg.Signals.Interval(), s.cfg.Signals.LookbackPeriods)
		s.Require().NoError(err)
		if signal != nil {
			s.T().Logf("  %s: price %s%% volume %s%%", symbol.Symbol, signal.PriceChangePct.StringFixed(2), signal.VolumeSpikePct.StringFixed(2))
		}
	}
}
