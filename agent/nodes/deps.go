package orchestratornode

import (
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	metricsx "github.com/tanpawarit/chative-support-a2a/pkg/metrics"
)

const (
	DefaultStepLimit          = 15
	DefaultHistoryConcurrency = 4
)

// Deps are the collaborators shared by the three agent steps.
type Deps struct {
	Models  contractx.Registry
	Tools   contractx.ToolCaller
	Metrics *metricsx.Metrics

	StepLimit          int
	HistoryConcurrency int
}

func (d Deps) stepLimit() int {
	if d.StepLimit <= 0 {
		return DefaultStepLimit
	}
	return d.StepLimit
}

func (d Deps) historyConcurrency() int {
	if d.HistoryConcurrency <= 0 {
		return DefaultHistoryConcurrency
	}
	return d.HistoryConcurrency
}
