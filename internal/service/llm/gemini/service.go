package gemini

import (
	"context"
	"strings"

	"github.com/KNICEX/momentum-monitor/internal/service/llm"
	"github.com/google/generative-ai-go/genai"
)

const DefaultModel = "gemini-2.0-flash"

type Service struct {
	client *genai.Client
	model  *genai.GenerativeModel
}

func NewService(client *genai.Client, opts ...Option) llm.Service {
	svc := &Service{
		client: client,
		model:  client.GenerativeModel(DefaultModel),
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

type Option func(service *Service)

// WithModel 需要放在其它参数选项之前, 否则会被覆盖
func WithModel(name string) Option {
	return func(service *Service) {
		if name != "" {
			service.model = service.client.GenerativeModel(name)
		}
	}
}

func WithTemperature(temp float32) Option {
	return func(service *Service) {
		service.model.SetTemperature(temp)
	}
}

func WithMaxOutputTokens(n int32) Option {
	return func(service *Service) {
		service.model.SetMaxOutputTokens(n)
	}
}

func (s *Service) AskOnce(ctx context.Context, q llm.Question) (llm.Answer, error) {
	resp, err := s.model.GenerateContent(ctx, genai.Text(q.Content))
	if err != nil {
		return llm.Answer{}, err
	}
	answer := llm.Answer{
		Content: parseResponse(resp),
	}
	if resp.UsageMetadata != nil {
		answer.InputToken = int(resp.UsageMetadata.PromptTokenCount)
		answer.OutputToken = int(resp.UsageMetadata.CandidatesTokenCount)
	}
	return answer, nil
}

func parseResponse(resp *genai.GenerateContentResponse) string {
	var resStr strings.Builder
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		for i, part := range resp.Candidates[0].Content.Parts {
			if part == nil {
				continue
			}
			if text, ok := part.(genai.Text); ok {
				if i > 0 {
					resStr.WriteString("\n")
				}
				resStr.WriteString(string(text))
			} else {
				return ""
			}
		}
	}
	return resStr.String()
}
