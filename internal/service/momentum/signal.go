package momentum

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/shopspring/decimal"
)

type Direction string

const (
	Bullish Direction = "bullish"
	Bearish Direction = "bearish"
)

// Signal 一次量价异动, 创建后只读
type Signal struct {
	Symbol         string
	Timeframe      exchange.Interval
	BarCloseTime   time.Time // 触发K线(最新已收盘)的收盘时间
	Close          decimal.Decimal
	PriceChangePct decimal.Decimal
	VolumeSpikePct decimal.Decimal
	Direction      Direction
	// 涨跌幅 / ATR百分比, 未开启或无法计算时 Valid=false
	ATRNormalized decimal.NullDecimal
	Signature     string
	DetectedAt    time.Time
}

// Signature 只由交易对、周期、收盘时间决定, 与指标数值无关,
// 同一根K线重复分析得到的签名一定相同
func Signature(symbol string, timeframe exchange.Interval, barCloseTime time.Time) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%d", symbol, timeframe, barCloseTime.UnixMilli())))
	return hex.EncodeToString(sum[:16])
}
