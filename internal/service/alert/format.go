package alert

import (
	"fmt"
	"strings"

	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
	"github.com/shopspring/decimal"
)

// FormatMessage Discord 文本格式, commentary 为空时不输出点评行
func FormatMessage(signal *momentum.Signal, commentary string) string {
	var sb strings.Builder
	sb.WriteString("🚨 **MOMENTUM ALERT** 🚨\n")
	fmt.Fprintf(&sb, "**%s**\n", signal.Symbol)
	fmt.Fprintf(&sb, "Volume: %s%%\n", signed(signal.VolumeSpikePct))
	fmt.Fprintf(&sb, "Price: %s%%\n", signed(signal.PriceChangePct))
	fmt.Fprintf(&sb, "Timeframe: %s\n", signal.Timeframe)
	fmt.Fprintf(&sb, "Direction: %s\n", signal.Direction)
	fmt.Fprintf(&sb, "Close: %s", signal.Close.String())
	if signal.ATRNormalized.Valid {
		fmt.Fprintf(&sb, "\nATR Normalized: %sσ", signal.ATRNormalized.Decimal.StringFixed(2))
	}
	if commentary != "" {
		fmt.Fprintf(&sb, "\n💬 %s", commentary)
	}
	return sb.String()
}

func signed(d decimal.Decimal) string {
	if d.IsNegative() {
		return d.StringFixed(1)
	}
	return "+" + d.StringFixed(1)
}
