package integration

import (
	"context"
	"os"

	"github.com/KNICEX/momentum-monitor/internal/config"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange/binance"
	"github.com/KNICEX/momentum-monitor/pkg/ratelimit"
	binancesdk "github.com/adshao/go-binance/v2"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/suite"
)

// BaseSuite 连真实的币安合约行情接口, 只读, 不需要 api key.
// 设置 BINANCE_INTEGRATION=1 才会运行
type BaseSuite struct {
	suite.Suite
	cfg       config.Config
	marketSvc exchange.MarketService
	ctx       context.Context
}

func (s *BaseSuite) SetupSuite() {
	if os.Getenv("BINANCE_INTEGRATION") == "" {
		s.T().Skip("BINANCE_INTEGRATION not set")
	}

	s.T().Setenv("ALERTS_SINK", config.SinkConsole)
	cfg, err := config.Load(viper.New(), "../../../../../config/config.yaml")
	s.Require().NoError(err, "读取配置失败")
	s.cfg = cfg

	cli := binancesdk.NewFuturesClient(cfg.Exchange.Binance.ApiKey, cfg.Exchange.Binance.ApiSecret)
	cli.BaseURL = cfg.Exchange.Binance.BaseURL
	s.marketSvc = binance.NewMarketService(cli, ratelimit.PerMinute(cfg.Exchange.Binance.RateLimit))
	s.ctx = context.Background()
}

func (s *BaseSuite) SetupTest() {
	s.T().Logf(">>> 开始测试: %s", s.T().Name())
}

func (s *BaseSuite) TearDownTest() {
	s.T().Logf("<<< 结束测试: %s\n", s.T().Name())
}
