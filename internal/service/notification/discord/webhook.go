package discord

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/KNICEX/momentum-monitor/internal/service/notification"
	"github.com/go-resty/resty/v2"
)

const sinkName = "discord"

type payload struct {
	Content string `json:"content"`
}

type Sink struct {
	client     *resty.Client
	webhookURL string
}

type Option func(s *Sink)

func WithTimeout(timeout time.Duration) Option {
	return func(s *Sink) {
		s.client.SetTimeout(timeout)
	}
}

func WithClient(client *resty.Client) Option {
	return func(s *Sink) {
		s.client = client
	}
}

// NewSink 不在这一层重试, 投递失败的信号留给下一轮扫描
func NewSink(webhookURL string, opts ...Option) notification.Sink {
	s := &Sink{
		client:     resty.New().SetTimeout(10 * time.Second),
		webhookURL: webhookURL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Sink) Notify(ctx context.Context, msg notification.Message) error {
	resp, err := s.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload{Content: msg.Content}).
		Post(s.webhookURL)
	if err != nil {
		return &notification.DeliveryError{Sink: sinkName, Err: err}
	}
	if resp.IsError() {
		return &notification.DeliveryError{
			Sink:   sinkName,
			Status: resp.StatusCode(),
			Err:    errors.New(truncate(resp.String(), 200)),
		}
	}
	return nil
}

func (s *Sink) Name() string {
	return sinkName
}

// truncate 按字符截断, 不切坏多字节字符
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}
