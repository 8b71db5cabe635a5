package notification

import (
	"context"
	"fmt"
)

// Message 发往通知渠道的一条消息
type Message struct {
	Symbol  string
	Content string
}

// Sink 通知渠道, 返回 nil 表示对方已确认接收
type Sink interface {
	Notify(ctx context.Context, msg Message) error
	Name() string
}

// DeliveryError 渠道拒收或超时. Status 为 0 表示没拿到响应
type DeliveryError struct {
	Sink   string
	Status int
	Err    error
}

func (e *DeliveryError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("deliver via %s: %v", e.Sink, e.Err)
	}
	return fmt.Sprintf("deliver via %s: status %d: %v", e.Sink, e.Status, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
