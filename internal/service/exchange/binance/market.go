package binance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/pkg/decimalx"
	"github.com/KNICEX/momentum-monitor/pkg/ratelimit"
	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	EndpointTickers      = "/fapi/v1/ticker/24hr"
	EndpointExchangeInfo = "/fapi/v1/exchangeInfo"
	EndpointKlines       = "/fapi/v1/klines"
)

var _ exchange.MarketService = (*MarketService)(nil)

// MarketService 限流后的币安合约行情接口, 内部不做重试
type MarketService struct {
	cli      *futures.Client
	limiter  *ratelimit.Limiter
	recorder *metrics.Recorder
	now      func() time.Time
}

type Option func(m *MarketService)

func WithRecorder(r *metrics.Recorder) Option {
	return func(m *MarketService) {
		m.recorder = r
	}
}

// WithClock 判断K线是否收盘使用的时钟
func WithClock(now func() time.Time) Option {
	return func(m *MarketService) {
		m.now = now
	}
}

// NewMarketService 创建市场数据服务. 会替换 cli 的 HTTPClient 以记录响应状态码
func NewMarketService(cli *futures.Client, limiter *ratelimit.Limiter, opts ...Option) *MarketService {
	hc := http.Client{}
	if cli.HTTPClient != nil {
		hc = *cli.HTTPClient
	}
	hc.Transport = &probeTransport{next: hc.Transport}
	cli.HTTPClient = &hc

	m := &MarketService{
		cli:     cli,
		limiter: limiter,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *MarketService) FetchCandles(ctx context.Context, symbol string, interval exchange.Interval, limit int) ([]exchange.Kline, error) {
	var res []*futures.Kline
	err := m.call(ctx, EndpointKlines, func(ctx context.Context) error {
		var err error
		res, err = m.cli.NewKlinesService().
			Symbol(symbol). // 币安合约API使用 BTCUSDT 格式
			Interval(interval.ToString()).
			Limit(limit).
			Do(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	kls, err := m.convertKlines(symbol, interval, res)
	if err != nil {
		return nil, &exchange.FetchError{Endpoint: EndpointKlines, Status: http.StatusOK, Err: err}
	}
	return kls, nil
}

func (m *MarketService) convertKlines(symbol string, interval exchange.Interval, klines []*futures.Kline) ([]exchange.Kline, error) {
	now := m.now()
	kls := make([]exchange.Kline, len(klines))
	for i, k := range klines {
		values, err := decimalx.ParseAll(k.Open, k.Close, k.High, k.Low, k.Volume, k.QuoteAssetVolume)
		if err != nil {
			return nil, fmt.Errorf("kline %d of %s: %w", k.OpenTime, symbol, err)
		}
		closeTime := time.UnixMilli(k.CloseTime)
		kls[i] = exchange.Kline{
			Symbol:           symbol,
			Interval:         interval,
			OpenTime:         time.UnixMilli(k.OpenTime),
			CloseTime:        closeTime,
			Open:             values[0],
			Close:            values[1],
			High:             values[2],
			Low:              values[3],
			Volume:           values[4],
			QuoteAssetVolume: values[5],
			// REST 接口不返回收盘标记, 收盘时间已过即视为收盘
			Final: closeTime.Before(now),
		}
	}
	return kls, nil
}

// call 先取令牌再发请求, 失败统一包装成 FetchError
func (m *MarketService) call(ctx context.Context, endpoint string, fn func(ctx context.Context) error) error {
	if err := m.limiter.Wait(ctx); err != nil {
		return err
	}
	ctx, probe := withStatusProbe(ctx)

	start := time.Now()
	err := fn(ctx)
	m.recorder.ObserveFetch(endpoint, time.Since(start))
	if err == nil {
		return nil
	}

	fe := &exchange.FetchError{Endpoint: endpoint, Status: probe.status, Err: err}
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fe.Code = apiErr.Code
	}
	m.recorder.FetchError(endpoint, strconv.Itoa(fe.Status))
	slog.Debug("exchange request failed", "endpoint", endpoint, "status", fe.Status, "error", err)
	return fe
}
