package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ContractTypePerpetual 永续合约
const ContractTypePerpetual = "PERPETUAL"

// StatusTrading 可交易状态
const StatusTrading = "TRADING"

// Ticker 24h 行情
type Ticker struct {
	Symbol      string
	LastPrice   decimal.Decimal
	Volume      decimal.Decimal // 24h 成交量
	QuoteVolume decimal.Decimal // 24h 成交额
}

// SymbolMeta 交易所元数据中的单个交易对
type SymbolMeta struct {
	Symbol       string
	Base         string
	Quote        string
	ContractType string
	Status       string
	TickSize     decimal.Decimal
	StepSize     decimal.Decimal
}

// SymbolInfo 经过流动性筛选后的交易对快照, 刷新时整体替换
type SymbolInfo struct {
	Symbol         string
	ContractType   string
	TickSize       decimal.Decimal
	StepSize       decimal.Decimal
	QuoteVolume24h decimal.Decimal
}

// HourlyVolume 24h 平均每小时成交额
func (s SymbolInfo) HourlyVolume() decimal.Decimal {
	return s.QuoteVolume24h.Div(decimal.NewFromInt(24))
}

// Kline 一根K线, 序列按时间升序(最新在最后)
type Kline struct {
	Symbol           string
	Interval         Interval
	OpenTime         time.Time
	CloseTime        time.Time
	Open             decimal.Decimal
	Close            decimal.Decimal
	High             decimal.Decimal
	Low              decimal.Decimal
	Volume           decimal.Decimal // 成交量
	QuoteAssetVolume decimal.Decimal // 成交额
	Final            bool            // 已收盘
}

// MarketService 交易所行情接口, 所有调用都经过限流
type MarketService interface {
	FetchTickers(ctx context.Context) ([]Ticker, error)
	FetchExchangeInfo(ctx context.Context) ([]SymbolMeta, error)
	FetchCandles(ctx context.Context, symbol string, interval Interval, limit int) ([]Kline, error)
}
