package binance

import (
	"context"
	"log/slog"

	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/pkg/decimalx"
	"github.com/adshao/go-binance/v2/futures"
	"github.com/samber/lo"
)

func (m *MarketService) FetchTickers(ctx context.Context) ([]exchange.Ticker, error) {
	var stats []*futures.PriceChangeStats
	err := m.call(ctx, EndpointTickers, func(ctx context.Context) error {
		var err error
		stats, err = m.cli.NewListPriceChangeStatsService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	tickers := make([]exchange.Ticker, 0, len(stats))
	for _, s := range stats {
		values, err := decimalx.ParseAll(s.LastPrice, s.Volume, s.QuoteVolume)
		if err != nil {
			// 个别交易对数据异常不影响整体
			slog.Warn("skip malformed ticker", "symbol", s.Symbol, "error", err)
			continue
		}
		tickers = append(tickers, exchange.Ticker{
			Symbol:      s.Symbol,
			LastPrice:   values[0],
			Volume:      values[1],
			QuoteVolume: values[2],
		})
	}
	return tickers, nil
}

func (m *MarketService) FetchExchangeInfo(ctx context.Context) ([]exchange.SymbolMeta, error) {
	var info *futures.ExchangeInfo
	err := m.call(ctx, EndpointExchangeInfo, func(ctx context.Context) error {
		var err error
		info, err = m.cli.NewExchangeInfoService().Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}

	return lo.Map(info.Symbols, func(s futures.Symbol, _ int) exchange.SymbolMeta {
		meta := exchange.SymbolMeta{
			Symbol:       s.Symbol,
			Base:         s.BaseAsset,
			Quote:        s.QuoteAsset,
			ContractType: string(s.ContractType),
			Status:       s.Status,
		}
		if f := s.PriceFilter(); f != nil {
			meta.TickSize = decimalx.OrZero(f.TickSize)
		}
		if f := s.LotSizeFilter(); f != nil {
			meta.StepSize = decimalx.OrZero(f.StepSize)
		}
		return meta
	}), nil
}
