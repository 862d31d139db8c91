package gemini

import (
	"context"
	"fmt"
	"strings"

	geminimodel "github.com/cloudwego/eino-ext/components/model/gemini"
	"github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"
)

type Config struct {
	APIKey         string  `split_words:"true"`
	BaseURL        string  `split_words:"true"`
	Model          string  `split_words:"true" default:"gemini-2.5-flash"`
	Temperature    float32 `split_words:"true" default:"0.2"`
	MaxTokens      int     `split_words:"true" default:"2000"`
	ThinkingBudget int32   `split_words:"true" default:"0"`
}

// New builds a Gemini chat model through the eino adapter.
func (c *Config) New(ctx context.Context) (model.BaseChatModel, error) {
	apiKey := strings.TrimSpace(c.APIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: api key is required")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	}
	if base := strings.TrimSpace(c.BaseURL); base != "" {
		clientCfg.HTTPOptions.BaseURL = base
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}

	temperature := c.Temperature
	maxTokens := c.MaxTokens
	conf := &geminimodel.Config{
		Client:      client,
		Model:       strings.TrimSpace(c.Model),
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
	if c.ThinkingBudget > 0 {
		conf.ThinkingConfig = &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(c.ThinkingBudget),
		}
	}

	m, err := geminimodel.NewChatModel(ctx, conf)
	if err != nil {
		return nil, fmt.Errorf("gemini: create chat model: %w", err)
	}
	return m, nil
}
