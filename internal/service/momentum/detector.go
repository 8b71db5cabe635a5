package momentum

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/metrics"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
	"github.com/KNICEX/momentum-monitor/pkg/decimalx"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

type Config struct {
	PriceChangeThreshold decimal.Decimal // 百分比, 比较绝对值
	VolumeSpikeThreshold decimal.Decimal // 百分比
	UseATRNormalization  bool

	// 24h 平均每小时成交额 <= LowLiquidityHourlyVolume 的交易对, 成交量阈值提高到 LowLiquidityVolumeThreshold.
	// LowLiquidityVolumeThreshold 为 0 时不分档
	LowLiquidityHourlyVolume    decimal.Decimal
	LowLiquidityVolumeThreshold decimal.Decimal
}

// Detector 量价齐升(或齐跌)检测, 价格和成交量两个条件必须同时满足
type Detector struct {
	market   exchange.MarketService
	cfg      Config
	recorder *metrics.Recorder
	now      func() time.Time
}

type Option func(d *Detector)

func WithRecorder(r *metrics.Recorder) Option {
	return func(d *Detector) {
		d.recorder = r
	}
}

func WithClock(now func() time.Time) Option {
	return func(d *Detector) {
		d.now = now
	}
}

func NewDetector(market exchange.MarketService, cfg Config, opts ...Option) *Detector {
	d := &Detector{
		market: market,
		cfg:    cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Analyze 拉取 lookback+1 根K线并检测, 没有信号返回 nil, nil.
// 拉取失败原样返回 FetchError, 不重试
func (d *Detector) Analyze(ctx context.Context, symbol exchange.SymbolInfo, timeframe exchange.Interval, lookback int) (*Signal, error) {
	if lookback < 1 {
		return nil, fmt.Errorf("lookback must be positive, got %d", lookback)
	}
	kLines, err := d.market.FetchCandles(ctx, symbol.Symbol, timeframe, lookback+1)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", symbol.Symbol, err)
	}

	signal := d.Evaluate(symbol, timeframe, lookback, kLines)
	if signal != nil {
		d.recorder.SignalDetected(timeframe.ToString(), string(signal.Direction))
		slog.Info("momentum detected", "symbol", symbol.Symbol, "timeframe", timeframe,
			"price_change_pct", signal.PriceChangePct.StringFixed(2),
			"volume_spike_pct", signal.VolumeSpikePct.StringFixed(2),
			"bar_close_time", signal.BarCloseTime)
	}
	return signal, nil
}

// Evaluate 对已拉取的K线做检测, symbol 的 24h 成交额决定成交量阈值
func (d *Detector) Evaluate(symbol exchange.SymbolInfo, timeframe exchange.Interval, lookback int, kLines []exchange.Kline) *Signal {
	if len(kLines) < lookback+1 {
		// 新上线的币K线不够
		return nil
	}

	window := kLines
	if !window[len(window)-1].Final {
		// 裁剪掉还没收盘的K线
		window = window[:len(window)-1]
	}
	if len(window) > lookback+1 {
		window = window[len(window)-lookback-1:]
	}
	if len(window) < lookback {
		return nil
	}

	start, latest := window[0], window[len(window)-1]
	priceChange, ok := decimalx.PctChange(start.Close, latest.Close)
	if !ok {
		return nil
	}

	avgVolume := decimalx.Mean(lo.Map(window[:len(window)-1], func(k exchange.Kline, _ int) decimal.Decimal {
		return k.Volume
	}))
	volumeSpike, ok := decimalx.PctChange(avgVolume, latest.Volume)
	if !ok {
		return nil
	}

	volumeThreshold := d.volumeThreshold(symbol)
	slog.Debug("momentum evaluated", "symbol", symbol.Symbol, "price_change_pct", priceChange.StringFixed(2),
		"volume_spike_pct", volumeSpike.StringFixed(2), "volume_threshold", volumeThreshold.String())

	if priceChange.Abs().LessThan(d.cfg.PriceChangeThreshold) || volumeSpike.LessThan(volumeThreshold) {
		return nil
	}

	signal := &Signal{
		Symbol:         symbol.Symbol,
		Timeframe:      timeframe,
		BarCloseTime:   latest.CloseTime,
		Close:          latest.Close,
		PriceChangePct: priceChange,
		VolumeSpikePct: volumeSpike,
		Direction:      Bullish,
		Signature:      Signature(symbol.Symbol, timeframe, latest.CloseTime),
		DetectedAt:     d.now(),
	}
	if priceChange.IsNegative() {
		signal.Direction = Bearish
	}
	if d.cfg.UseATRNormalization {
		signal.ATRNormalized = atrNormalized(window, priceChange)
	}
	return signal
}

// volumeThreshold 低流动性交易对使用更高的成交量阈值, 只升不降
func (d *Detector) volumeThreshold(symbol exchange.SymbolInfo) decimal.Decimal {
	if !d.cfg.LowLiquidityVolumeThreshold.IsPositive() {
		return d.cfg.VolumeSpikeThreshold
	}
	if symbol.HourlyVolume().GreaterThan(d.cfg.LowLiquidityHourlyVolume) {
		return d.cfg.VolumeSpikeThreshold
	}
	return decimal.Max(d.cfg.VolumeSpikeThreshold, d.cfg.LowLiquidityVolumeThreshold)
}

// atrNormalized 涨跌幅除以窗口平均真实波幅(相对起始收盘价的百分比)
func atrNormalized(window []exchange.Kline, priceChange decimal.Decimal) decimal.NullDecimal {
	trs := make([]decimal.Decimal, len(window))
	for i, k := range window {
		tr := k.High.Sub(k.Low)
		if i > 0 {
			prevClose := window[i-1].Close
			tr = decimal.Max(tr, k.High.Sub(prevClose).Abs(), k.Low.Sub(prevClose).Abs())
		}
		trs[i] = tr
	}
	atrPct, ok := decimalx.PctChange(window[0].Close, window[0].Close.Add(decimalx.Mean(trs)))
	if !ok || atrPct.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(priceChange.Div(atrPct))
}
