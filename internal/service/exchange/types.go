package exchange

import (
	"fmt"
	"time"
)

type Interval string

func (i Interval) ToString() string {
	return string(i)
}

const (
	Interval1m  Interval = "1m"
	Interval3m  Interval = "3m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval2h  Interval = "2h"
	Interval4h  Interval = "4h"
	Interval6h  Interval = "6h"
	Interval8h  Interval = "8h"
	Interval12h Interval = "12h"
	Interval1d  Interval = "1d"
	Interval3d  Interval = "3d"
	Interval1w  Interval = "1w"
)

var intervalDurations = map[Interval]time.Duration{
	Interval1m:  time.Minute,
	Interval3m:  3 * time.Minute,
	Interval5m:  5 * time.Minute,
	Interval15m: 15 * time.Minute,
	Interval30m: 30 * time.Minute,
	Interval1h:  time.Hour,
	Interval2h:  2 * time.Hour,
	Interval4h:  4 * time.Hour,
	Interval6h:  6 * time.Hour,
	Interval8h:  8 * time.Hour,
	Interval12h: 12 * time.Hour,
	Interval1d:  24 * time.Hour,
	Interval3d:  72 * time.Hour,
	Interval1w:  7 * 24 * time.Hour,
}

// Duration K线周期时长, 未知周期返回0
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

func (i Interval) Valid() bool {
	_, ok := intervalDurations[i]
	return ok
}

func ParseInterval(s string) (Interval, error) {
	i := Interval(s)
	if !i.Valid() {
		return "", fmt.Errorf("unsupported interval %q", s)
	}
	return i, nil
}
