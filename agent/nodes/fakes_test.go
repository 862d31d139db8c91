package orchestratornode

import (
	"context"
	"errors"
	"sync"
	"time"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

var errBoom = errors.New("boom")

type fakeClassifier struct {
	out   contractx.Classification
	err   error
	calls int
}

func (f *fakeClassifier) Classify(ctx context.Context, req contractx.ClassifyRequest) (contractx.Classification, error) {
	f.calls++
	if f.err != nil {
		return contractx.Classification{}, f.err
	}
	return f.out, nil
}

type fakeDecider struct {
	decisions []contractx.SupportDecision
	err       error
	calls     int
	reqs      []contractx.SupportRequest
}

func (f *fakeDecider) Decide(ctx context.Context, req contractx.SupportRequest) (contractx.SupportDecision, error) {
	f.calls++
	f.reqs = append(f.reqs, req)
	if f.err != nil {
		return contractx.SupportDecision{}, f.err
	}
	if len(f.decisions) == 0 {
		return contractx.SupportDecision{Action: contractx.ActionRespond, Response: "done"}, nil
	}
	idx := min(f.calls-1, len(f.decisions)-1)
	return f.decisions[idx], nil
}

type fakePlanner struct {
	plan  contractx.DataPlan
	err   error
	calls int
}

func (f *fakePlanner) Plan(ctx context.Context, req contractx.DataRequest) (contractx.DataPlan, error) {
	f.calls++
	if f.err != nil {
		return contractx.DataPlan{}, f.err
	}
	return f.plan, nil
}

type fakeRegistry struct {
	router  contractx.Classifier
	support contractx.SupportDecider
	data    contractx.DataPlanner
}

func (f *fakeRegistry) Router() contractx.Classifier      { return f.router }
func (f *fakeRegistry) Support() contractx.SupportDecider { return f.support }
func (f *fakeRegistry) Data() contractx.DataPlanner       { return f.data }

type toolCall struct {
	name string
	args map[string]any
}

// fakeTools answers by tool name; per-customer history results take precedence.
type fakeTools struct {
	mu      sync.Mutex
	results map[string]statex.ToolResult
	history map[int64]statex.ToolResult
	calls   []toolCall
}

func (f *fakeTools) Call(ctx context.Context, name string, args map[string]any) statex.ToolResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, toolCall{name: name, args: args})

	if name == "get_customer_history" && f.history != nil {
		if cid, ok := args["customer_id"].(int64); ok {
			if res, ok := f.history[cid]; ok {
				return res
			}
		}
	}
	if res, ok := f.results[name]; ok {
		return res
	}
	return statex.Failure(name, "no fake result")
}

func (f *fakeTools) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.name == name {
			n++
		}
	}
	return n
}

func int64Ptr(v int64) *int64 { return &v }

func newState(query string) statex.SessionState {
	return *statex.NewSessionState("s-1", query, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func testDeps(reg *fakeRegistry, tools *fakeTools) Deps {
	if reg.router == nil {
		reg.router = &fakeClassifier{}
	}
	if reg.support == nil {
		reg.support = &fakeDecider{}
	}
	if reg.data == nil {
		reg.data = &fakePlanner{err: errBoom}
	}
	if tools == nil {
		tools = &fakeTools{}
	}
	return Deps{Models: reg, Tools: tools}
}
