package notification

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
)

type consoleSink struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleSink 直接打印到终端, 没配置 webhook 时本地调试用
func NewConsoleSink(out ...io.Writer) Sink {
	s := &consoleSink{out: os.Stdout}
	if len(out) > 0 {
		s.out = out[0]
	}
	return s
}

func (s *consoleSink) Notify(ctx context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := fmt.Fprintf(s.out, "%s\n\n", msg.Content); err != nil {
		return &DeliveryError{Sink: s.Name(), Err: err}
	}
	return nil
}

func (s *consoleSink) Name() string {
	return "console"
}
