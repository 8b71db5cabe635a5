package ioc

import (
	"net/http"

	"github.com/KNICEX/momentum-monitor/internal/config"
	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	binancesvc "github.com/KNICEX/momentum-monitor/internal/service/exchange/binance"
	"github.com/KNICEX/momentum-monitor/pkg/ratelimit"
	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/futures"
)

func InitBinanceFuturesCli(cfg config.BinanceConfig) *futures.Client {
	// 行情接口不需要签名, key 可以为空
	cli := binance.NewFuturesClient(cfg.ApiKey, cfg.ApiSecret)
	cli.BaseURL = cfg.BaseURL
	cli.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return cli
}

func InitMarketService(cfg config.BinanceConfig, recorder *metrics.Recorder) exchange.MarketService {
	limiter := ratelimit.PerMinute(cfg.RateLimit, ratelimit.WithWaitHook(recorder.LimiterWait))
	return binancesvc.NewMarketService(InitBinanceFuturesCli(cfg), limiter, binancesvc.WithRecorder(recorder))
}
