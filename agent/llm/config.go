package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	geminix "github.com/tanpawarit/chative-support-a2a/pkg/gemini"
	openrouterx "github.com/tanpawarit/chative-support-a2a/pkg/openrouter"
)

type Provider string

const (
	ProviderOpenRouter Provider = "openrouter"
	ProviderGemini     Provider = "gemini"
)

type Config struct {
	Provider Provider `split_words:"true" default:"openrouter"`

	BaseURL            string        `envconfig:"BASE_URL" split_words:"true" default:"https://openrouter.ai/api/v1"`
	APIKey             string        `envconfig:"API_KEY" split_words:"true"`
	Model              string        `envconfig:"MODEL" split_words:"true" default:"openai/gpt-4o-mini"`
	MaxCompletionToken int           `envconfig:"MAX_COMPLETION_TOKEN" split_words:"true" default:"2000"`
	Temperature        float32       `envconfig:"TEMPERATURE" split_words:"true" default:"0"`
	Timeout            time.Duration `envconfig:"TIMEOUT" split_words:"true" default:"30s"`
	SiteURL            string        `envconfig:"SITE_URL" split_words:"true"`
	SiteName           string        `envconfig:"SITE_NAME" split_words:"true"`
	ThinkingBudget     int32         `envconfig:"THINKING_BUDGET" split_words:"true" default:"0"`

	RouterModel             string  `envconfig:"ROUTER_MODEL" split_words:"true"`
	SupportModel            string  `envconfig:"SUPPORT_MODEL" split_words:"true"`
	CustomerDataModel       string  `envconfig:"CUSTOMER_DATA_MODEL" split_words:"true"`
	RouterTemperature       float32 `envconfig:"ROUTER_TEMPERATURE" split_words:"true" default:"-1"`
	SupportTemperature      float32 `envconfig:"SUPPORT_TEMPERATURE" split_words:"true" default:"-1"`
	CustomerDataTemperature float32 `envconfig:"CUSTOMER_DATA_TEMPERATURE" split_words:"true" default:"-1"`
}

func (c Config) Validate() error {
	switch c.Provider {
	case ProviderOpenRouter, ProviderGemini:
	default:
		return fmt.Errorf("%w: %q", contractx.ErrUnknownProvider, c.Provider)
	}
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: %s api key is required", contractx.ErrValidation, c.Provider)
	}
	if strings.TrimSpace(c.Model) == "" {
		return fmt.Errorf("%w: default model is required", contractx.ErrValidation)
	}
	return nil
}

// modelFor resolves the model name and temperature for one agent.
func (c Config) modelFor(agentType contractx.AgentType) (string, float32) {
	modelName := strings.TrimSpace(c.Model)
	temp := c.Temperature

	var override string
	overrideTemp := float32(-1)
	switch agentType {
	case contractx.AgentTypeRouter:
		override, overrideTemp = c.RouterModel, c.RouterTemperature
	case contractx.AgentTypeSupport:
		override, overrideTemp = c.SupportModel, c.SupportTemperature
	case contractx.AgentTypeCustomerData:
		override, overrideTemp = c.CustomerDataModel, c.CustomerDataTemperature
	}
	if v := strings.TrimSpace(override); v != "" {
		modelName = v
	}
	if overrideTemp >= 0 {
		temp = overrideTemp
	}
	return modelName, temp
}

func (c Config) OpenRouterFor(agentType contractx.AgentType) openrouterx.Config {
	modelName, temp := c.modelFor(agentType)
	maxCompletionToken := c.MaxCompletionToken
	return openrouterx.Config{
		BaseURL:            strings.TrimSpace(c.BaseURL),
		APIKey:             strings.TrimSpace(c.APIKey),
		Model:              modelName,
		MaxCompletionToken: &maxCompletionToken,
		Temperature:        temp,
		Timeout:            c.Timeout,
		SiteURL:            strings.TrimSpace(c.SiteURL),
		SiteName:           strings.TrimSpace(c.SiteName),
	}
}

func (c Config) GeminiFor(agentType contractx.AgentType) geminix.Config {
	modelName, temp := c.modelFor(agentType)
	return geminix.Config{
		APIKey:         strings.TrimSpace(c.APIKey),
		Model:          modelName,
		Temperature:    temp,
		MaxTokens:      c.MaxCompletionToken,
		ThinkingBudget: c.ThinkingBudget,
	}
}

// ModelFor builds the chat model one agent runs on.
func (c Config) ModelFor(ctx context.Context, agentType contractx.AgentType) (einomodel.BaseChatModel, error) {
	switch c.Provider {
	case ProviderGemini:
		cfg := c.GeminiFor(agentType)
		return cfg.New(ctx)
	case ProviderOpenRouter:
		cfg := c.OpenRouterFor(agentType)
		return cfg.New(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", contractx.ErrUnknownProvider, c.Provider)
	}
}
