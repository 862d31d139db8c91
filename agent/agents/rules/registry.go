package rules

import contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"

type registryImpl struct {
	router  Classifier
	support SupportDecider
	data    DataPlanner
}

func (r registryImpl) Router() contractx.Classifier {
	return r.router
}

func (r registryImpl) Support() contractx.SupportDecider {
	return r.support
}

func (r registryImpl) Data() contractx.DataPlanner {
	return r.data
}

// NewRegistry returns the deterministic deciders. They need no model access.
func NewRegistry() contractx.Registry {
	return registryImpl{}
}
