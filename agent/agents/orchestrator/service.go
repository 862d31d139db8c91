package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	nodex "github.com/tanpawarit/chative-support-a2a/agent/nodes"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	metricsx "github.com/tanpawarit/chative-support-a2a/pkg/metrics"
)

var (
	ErrInvalidMessage = nodex.ErrInvalidMessage
	ErrInvalidSession = nodex.ErrInvalidSession
)

const (
	ModeRules = "rules"
	ModeLLM   = "llm"
)

type Config struct {
	StepLimit          int    `split_words:"true" default:"15"`
	Mode               string `default:"rules"`
	HistoryConcurrency int    `split_words:"true" default:"4"`
}

func (c Config) Validate() error {
	if c.StepLimit < 1 {
		return fmt.Errorf("%w: step limit must be positive, got %d", contractx.ErrValidation, c.StepLimit)
	}
	if c.HistoryConcurrency < 1 {
		return fmt.Errorf("%w: history concurrency must be positive, got %d", contractx.ErrValidation, c.HistoryConcurrency)
	}
	switch strings.ToLower(strings.TrimSpace(c.Mode)) {
	case ModeRules, ModeLLM:
	default:
		return fmt.Errorf("%w: unsupported decider mode %q", contractx.ErrValidation, c.Mode)
	}
	return nil
}

type Orchestrator struct {
	deps      nodex.Deps
	archive   statex.Store
	escalator contractx.Escalator

	graphRunner compose.Runnable[nodex.GraphInput, nodex.GraphOutput]

	now   func() time.Time
	newID func() string
}

type Option func(*Orchestrator)

// WithArchive saves every finished session to store.
func WithArchive(store statex.Store) Option {
	return func(o *Orchestrator) { o.archive = store }
}

// WithEscalator publishes urgent sessions for human follow-up.
func WithEscalator(e contractx.Escalator) Option {
	return func(o *Orchestrator) { o.escalator = e }
}

func WithMetrics(m *metricsx.Metrics) Option {
	return func(o *Orchestrator) { o.deps.Metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) {
		if newID != nil {
			o.newID = newID
		}
	}
}

func New(
	models contractx.Registry,
	tools contractx.ToolCaller,
	cfg Config,
	opts ...Option,
) (*Orchestrator, error) {
	if models == nil {
		return nil, errors.New("model registry is required")
	}
	if tools == nil {
		return nil, errors.New("tool caller is required")
	}

	o := &Orchestrator{
		deps: nodex.Deps{
			Models:             models,
			Tools:              tools,
			StepLimit:          cfg.StepLimit,
			HistoryConcurrency: cfg.HistoryConcurrency,
		},
		now:   time.Now,
		newID: uuid.NewString,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(o)
		}
	}

	graphRunner, err := o.compileHandleQueryGraph(context.Background())
	if err != nil {
		return nil, err
	}
	o.graphRunner = graphRunner

	return o, nil
}

// HandleQuery answers one customer query in a fresh session.
func (o *Orchestrator) HandleQuery(ctx context.Context, query string) (*statex.SessionState, error) {
	return o.HandleSession(ctx, "", query)
}

// HandleSession is HandleQuery with a caller-chosen session id. When the
// agents stop early the partial state is returned along with the error.
func (o *Orchestrator) HandleSession(ctx context.Context, sessionID, query string) (*statex.SessionState, error) {
	out, err := o.graphRunner.Invoke(ctx, nodex.GraphInput{
		SessionID: sessionID,
		Query:     query,
	})
	if err != nil {
		var partial *nodex.PartialSessionError
		if errors.As(err, &partial) {
			return partial.State, err
		}
		return nil, err
	}
	return out.State, nil
}
