package alert

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/KNICEX/momentum-monitor/internal/service/llm"
	"github.com/KNICEX/momentum-monitor/internal/service/momentum"
)

const maxCommentaryLen = 200

// Commentator 用 LLM 给告警补一句点评, 失败不影响告警发送
type Commentator struct {
	llmSvc  llm.Service
	timeout time.Duration
}

func NewCommentator(llmSvc llm.Service, timeout time.Duration) *Commentator {
	return &Commentator{
		llmSvc:  llmSvc,
		timeout: timeout,
	}
}

func (c *Commentator) Comment(ctx context.Context, signal *momentum.Signal) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	prompt := fmt.Sprintf("永续合约 %s 在 %s 周期刚收盘的K线出现异动: 价格相对窗口起点变化 %s%%, "+
		"成交量相对前期均值变化 %s%%, 方向 %s. "+
		"请用一句话(不超过60字)点评这次异动需要注意的风险, 不要给出买卖建议, 只回复这句话本身",
		signal.Symbol, signal.Timeframe, signal.PriceChangePct.StringFixed(2),
		signal.VolumeSpikePct.StringFixed(2), signal.Direction)

	answer, err := c.llmSvc.AskOnce(ctx, llm.Question{Content: prompt})
	if err != nil {
		return "", err
	}
	return firstLine(answer.Content), nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	if utf8.RuneCountInString(s) > maxCommentaryLen {
		s = string([]rune(s)[:maxCommentaryLen]) + "…"
	}
	return s
}
