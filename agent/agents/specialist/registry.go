package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	llmx "github.com/tanpawarit/chative-support-a2a/agent/llm"
	promptx "github.com/tanpawarit/chative-support-a2a/agent/prompt"
)

type registryImpl struct {
	router  contractx.Classifier
	support contractx.SupportDecider
	data    contractx.DataPlanner
}

func (r *registryImpl) Router() contractx.Classifier {
	return r.router
}

func (r *registryImpl) Support() contractx.SupportDecider {
	return r.support
}

func (r *registryImpl) Data() contractx.DataPlanner {
	return r.data
}

// Models are the chat models behind each agent.
type Models struct {
	Router       einomodel.BaseChatModel
	Support      einomodel.BaseChatModel
	CustomerData einomodel.BaseChatModel
}

func NewRegistry(ctx context.Context, cfg llmx.Config) (contractx.Registry, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var models Models
	for _, slot := range []struct {
		agent contractx.AgentType
		dst   *einomodel.BaseChatModel
	}{
		{contractx.AgentTypeRouter, &models.Router},
		{contractx.AgentTypeSupport, &models.Support},
		{contractx.AgentTypeCustomerData, &models.CustomerData},
	} {
		m, err := cfg.ModelFor(ctx, slot.agent)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, slot.agent, err)
		}
		*slot.dst = m
	}

	return NewRegistryFromModels(ctx, models, promptx.LoadPromptSet())
}

func NewRegistryFromModels(ctx context.Context, models Models, prompts promptx.PromptSet) (contractx.Registry, error) {
	router, err := newClassifier(ctx, models.Router, prompts.Router)
	if err != nil {
		return nil, err
	}
	support, err := newSupport(ctx, models.Support, prompts.Support)
	if err != nil {
		return nil, err
	}
	data, err := newPlanner(ctx, models.CustomerData, prompts.CustomerData)
	if err != nil {
		return nil, err
	}

	return &registryImpl{
		router:  router,
		support: support,
		data:    data,
	}, nil
}
