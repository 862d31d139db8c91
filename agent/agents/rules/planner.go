package rules

import (
	"context"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
)

// DataPlanner proposes no calls, so the data agent always uses its direct
// operation-to-tool mapping.
type DataPlanner struct{}

var _ contractx.DataPlanner = DataPlanner{}

func (DataPlanner) Plan(ctx context.Context, req contractx.DataRequest) (contractx.DataPlan, error) {
	return contractx.DataPlan{Message: "direct mapping for " + string(req.Op)}, nil
}
