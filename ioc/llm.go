package ioc

import (
	"context"
	"time"

	"github.com/KNICEX/momentum-monitor/internal/config"
	"github.com/KNICEX/momentum-monitor/internal/service/alert"
	"github.com/KNICEX/momentum-monitor/internal/service/llm/gemini"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

func InitGeminiCli(cfg config.GeminiConfig) *genai.Client {
	if len(cfg.ApiKey) == 0 {
		panic("no gemini api key set")
	}

	cli, err := genai.NewClient(context.Background(), option.WithAPIKey(cfg.ApiKey[0]))
	if err != nil {
		panic(err)
	}
	return cli
}

func InitCommentator(cfg config.GeminiConfig, timeout time.Duration) *alert.Commentator {
	llmSvc := gemini.NewService(InitGeminiCli(cfg), gemini.WithModel(cfg.Model), gemini.WithTemperature(0.3), gemini.WithMaxOutputTokens(128))
	return alert.NewCommentator(llmSvc, timeout)
}
