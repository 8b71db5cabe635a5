package alert

import (
	"testing"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/KNICEX/momentum-monitor/pkg/decimalx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatMessage(t *testing.T) {
	signal := testSignal("BTCUSDT", time.Unix(0, 0))
	signal.ATRNormalized = decimal.NewNullDecimal(decimalx.MustFromString("1.2345"))

	want := "🚨 **MOMENTUM ALERT** 🚨\n" +
		"**BTCUSDT**\n" +
		"Volume: +200.0%\n" +
		"Price: +6.0%\n" +
		"Timeframe: 15m\n" +
		"Direction: bullish\n" +
		"Close: 106\n" +
		"ATR Normalized: 1.23σ\n" +
		"💬 注意回撤"
	assert.Equal(t, want, FormatMessage(signal, "注意回撤"))
}

func TestFormatMessage_Bearish(t *testing.T) {
	signal := testSignal("ETHUSDT", time.Unix(0, 0))
	signal.PriceChangePct = decimalx.MustFromString("-7.25")
	signal.Direction = momentum.Bearish

	msg := FormatMessage(signal, "")
	assert.Contains(t, msg, "Price: -7.3%")
	assert.Contains(t, msg, "Direction: bearish")
	assert.NotContains(t, msg, "ATR Normalized")
	assert.NotContains(t, msg, "💬")
}

func TestFirstLine(t *testing.T) {
	assert.Equal(t, "a", firstLine("\n a \nb"))
	long := ""
	for range 250 {
		long += "涨"
	}
	assert.Equal(t, 201, len([]rune(firstLine(long))))
}
