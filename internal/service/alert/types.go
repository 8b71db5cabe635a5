package alert

import (
	"context"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/service/dedup"
	"github.com/KNICEX/momentum-monitor/internal/service/exchange"
)

type Status string

const (
	StatusSent    Status = "sent"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

const (
	ReasonAlreadyAlerted = "already_alerted"
	ReasonCooldown       = "cooldown"
	ReasonStore          = "store"
	ReasonDelivery       = "delivery"
)

// Outcome 一次 ProcessSignal 的结果. Failed 的信号没有落库, 下一轮可以再次尝试
type Outcome struct {
	Status Status
	Reason string
	Err    error
}

func (o Outcome) String() string {
	if o.Reason == "" {
		return string(o.Status)
	}
	return string(o.Status) + "(" + o.Reason + ")"
}

// Store 去重存储, 由 dedup.Store 实现
type Store interface {
	Exists(ctx context.Context, symbol string, timeframe exchange.Interval, barCloseTime time.Time) (bool, error)
	Store(ctx context.Context, r dedup.Record) error
	LastAlertsSince(ctx context.Context, since time.Time) ([]dedup.LastAlert, error)
}

var _ Store = (*dedup.Store)(nil)
