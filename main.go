package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/tanpawarit/chative-support-a2a/agent/agents/orchestrator"
	"github.com/tanpawarit/chative-support-a2a/agent/agents/rules"
	"github.com/tanpawarit/chative-support-a2a/agent/agents/specialist"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	datastorex "github.com/tanpawarit/chative-support-a2a/agent/datastore"
	"github.com/tanpawarit/chative-support-a2a/agent/escalation"
	llmx "github.com/tanpawarit/chative-support-a2a/agent/llm"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	toolx "github.com/tanpawarit/chative-support-a2a/agent/tool"
	configx "github.com/tanpawarit/chative-support-a2a/pkg/config"
	logx "github.com/tanpawarit/chative-support-a2a/pkg/logger"
	_ "github.com/tanpawarit/chative-support-a2a/pkg/logger/autoload"
	metricsx "github.com/tanpawarit/chative-support-a2a/pkg/metrics"
	openrouterx "github.com/tanpawarit/chative-support-a2a/pkg/openrouter"
	qstashx "github.com/tanpawarit/chative-support-a2a/pkg/qstash"
	redisx "github.com/tanpawarit/chative-support-a2a/pkg/redis"
)

const usage = `usage: support [-env file] <command> [args]

commands:
  demo             run the sample queries against an in-process bridge
  serve            run the tool bridge server
  ask <query>      answer one query through a running bridge
  tools            list the tools a running bridge exposes
  sessions [n]     show the n most recent archived transcripts
  check-llm        verify the configured LLM models are reachable`

var demoQueries = []string{
	"Get customer information for ID 5",
	"I'm customer 3 and need help upgrading my account",
	"Show me all active customers who have open tickets",
	"I've been charged twice, please refund immediately!",
	"I'm customer 2, update my email to new@email.com and show my ticket history",
	"I'm customer 1, I want to cancel my subscription but I was charged for next month",
	"Show me all active customers with high-priority tickets",
}

func main() {
	// loads the -env file and parses global flags
	orchCfg := configx.MustNew[orchestrator.Config]("ORCHESTRATOR")

	args := flag.Args()
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch args[0] {
	case "demo":
		err = runDemo(ctx, *orchCfg)
	case "serve":
		err = runServe(ctx)
	case "ask":
		err = runAsk(ctx, *orchCfg, strings.Join(args[1:], " "))
	case "tools":
		err = runTools(ctx)
	case "sessions":
		err = runSessions(ctx, args[1:])
	case "check-llm":
		err = runCheckLLM(ctx)
	default:
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	if err != nil {
		logx.Fatal().Err(err).Str("command", args[0]).Msg("command failed")
	}
}

func runDemo(ctx context.Context, cfg orchestrator.Config) error {
	metrics := metricsx.New()

	store, err := openDataStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	bridge, err := toolx.NewServer(toolx.BuildTools(store), toolx.WithMetrics(metrics), toolx.WithHealthCheck(store.Ping))
	if err != nil {
		return err
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("listen for demo bridge: %w", err)
	}
	srv := &http.Server{Handler: bridge.Handler(), ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logx.Error().Err(err).Msg("demo bridge stopped")
		}
	}()
	defer srv.Close()

	client, err := toolx.NewClient(toolx.ClientConfig{URL: "http://" + ln.Addr().String() + "/mcp", Timeout: 10 * time.Second})
	if err != nil {
		return err
	}

	o, err := newOrchestrator(ctx, cfg, client, metrics)
	if err != nil {
		return err
	}

	for i, query := range demoQueries {
		st, err := o.HandleQuery(ctx, query)
		if st != nil {
			printTranscript(i+1, st)
		}
		if err != nil {
			return fmt.Errorf("query %d: %w", i+1, err)
		}
	}
	return nil
}

func runServe(ctx context.Context) error {
	serverCfg := configx.MustNew[toolx.ServerConfig]("BRIDGE")
	metrics := metricsx.New()

	store, err := openDataStore(ctx)
	if err != nil {
		return err
	}
	defer store.Close()

	bridge, err := toolx.NewServer(toolx.BuildTools(store), toolx.WithMetrics(metrics), toolx.WithHealthCheck(store.Ping))
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         serverCfg.Addr,
		Handler:      bridge.Handler(),
		ReadTimeout:  serverCfg.ReadTimeout,
		WriteTimeout: serverCfg.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", serverCfg.Addr).Msg("tool bridge listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down tool bridge")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func runAsk(ctx context.Context, cfg orchestrator.Config, query string) error {
	client, err := newBridgeClient()
	if err != nil {
		return err
	}

	o, err := newOrchestrator(ctx, cfg, client, metricsx.New())
	if err != nil {
		return err
	}

	st, err := o.HandleQuery(ctx, query)
	if st != nil {
		printTranscript(0, st)
	}
	return err
}

func runTools(ctx context.Context) error {
	client, err := newBridgeClient()
	if err != nil {
		return err
	}

	info, err := client.Initialize(ctx)
	if err != nil {
		return err
	}
	tools, err := client.ListTools(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("%s %s\n", info.Name, info.Version)
	for _, t := range tools {
		fmt.Printf("  %-22s %s\n", t.Name, t.Description)
	}
	return nil
}

func runSessions(ctx context.Context, args []string) error {
	limit := 10
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return fmt.Errorf("invalid session count %q", args[0])
		}
		limit = n
	}

	archive, err := newArchive(ctx)
	if err != nil {
		return err
	}
	reader, ok := archive.(statex.TranscriptReader)
	if !ok {
		return errors.New("no session archive configured, set ARCHIVE_BACKEND")
	}

	transcripts, err := reader.RecentTranscripts(ctx, limit)
	if err != nil {
		return err
	}
	for _, t := range transcripts {
		customer := "-"
		if t.CustomerID != nil {
			customer = strconv.FormatInt(*t.CustomerID, 10)
		}
		fmt.Printf("%s  %s  customer=%s scenario=%s steps=%d answered=%t\n",
			t.UpdatedAt.Format(time.RFC3339), t.SessionID, customer, t.Scenario, t.Steps, t.Answered)
		fmt.Printf("  Q: %s\n  A: %s\n", t.Query, t.Response)
	}
	return nil
}

func runCheckLLM(ctx context.Context) error {
	llmCfg := configx.MustNew[llmx.Config]("LLM")

	for _, agent := range []contractx.AgentType{
		contractx.AgentTypeRouter,
		contractx.AgentTypeSupport,
		contractx.AgentTypeCustomerData,
	} {
		switch llmCfg.Provider {
		case llmx.ProviderOpenRouter:
			cfg := llmCfg.OpenRouterFor(agent)
			ok, err := openrouterx.ModelAvailable(ctx, cfg)
			if err != nil {
				return fmt.Errorf("%s: %w", agent, err)
			}
			if !ok {
				return fmt.Errorf("%s: model %q is not served by %s", agent, cfg.Model, cfg.BaseURL)
			}
			fmt.Printf("%-14s %s ok\n", agent, cfg.Model)
		default:
			if _, err := llmCfg.ModelFor(ctx, agent); err != nil {
				return fmt.Errorf("%s: %w", agent, err)
			}
			fmt.Printf("%-14s %s configured\n", agent, llmCfg.GeminiFor(agent).Model)
		}
	}
	return nil
}

func openDataStore(ctx context.Context) (*datastorex.Store, error) {
	cfg := configx.MustNew[datastorex.Config]("DATASTORE")
	store, err := datastorex.Open(ctx, *cfg)
	if err != nil {
		return nil, fmt.Errorf("open datastore: %w", err)
	}
	return store, nil
}

func newBridgeClient() (*toolx.Client, error) {
	cfg := configx.MustNew[toolx.ClientConfig]("BRIDGE")
	return toolx.NewClient(*cfg)
}

func newOrchestrator(
	ctx context.Context,
	cfg orchestrator.Config,
	tools contractx.ToolCaller,
	metrics *metricsx.Metrics,
) (*orchestrator.Orchestrator, error) {
	models, err := newRegistry(ctx, cfg.Mode)
	if err != nil {
		return nil, err
	}

	opts := []orchestrator.Option{orchestrator.WithMetrics(metrics)}

	archive, err := newArchive(ctx)
	if err != nil {
		return nil, err
	}
	if archive != nil {
		opts = append(opts, orchestrator.WithArchive(archive))
	}

	escalator, err := newEscalator()
	if err != nil {
		return nil, err
	}
	if escalator != nil {
		opts = append(opts, orchestrator.WithEscalator(escalator))
	}

	return orchestrator.New(models, tools, cfg, opts...)
}

func newRegistry(ctx context.Context, mode string) (contractx.Registry, error) {
	if strings.EqualFold(strings.TrimSpace(mode), orchestrator.ModeLLM) {
		llmCfg := configx.MustNew[llmx.Config]("LLM")
		return specialist.NewRegistry(ctx, *llmCfg)
	}
	return rules.NewRegistry(), nil
}

type ArchiveConfig struct {
	Backend   string        `default:"none"`
	KeyPrefix string        `split_words:"true" default:"support:session:"`
	TTL       time.Duration `default:"168h"`
}

func (c ArchiveConfig) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "none", "redis", "upstash":
		return nil
	}
	return fmt.Errorf("unsupported archive backend %q", c.Backend)
}

func newArchive(ctx context.Context) (statex.Store, error) {
	cfg := configx.MustNew[ArchiveConfig]("ARCHIVE")

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "redis":
		redisCfg := configx.MustNew[redisx.Config]("REDIS")
		client, err := redisCfg.New(ctx)
		if err != nil {
			return nil, err
		}
		return statex.NewRedisStore(client, statex.WithRedisKeyPrefix(cfg.KeyPrefix), statex.WithRedisTTL(cfg.TTL))
	case "upstash":
		upstashCfg := configx.MustNew[statex.UpstashRedisConfig]("UPSTASH")
		return statex.NewUpstashRedisStore(*upstashCfg, statex.WithKeyPrefix(cfg.KeyPrefix), statex.WithTTL(cfg.TTL))
	}
	return nil, nil
}

func newEscalator() (contractx.Escalator, error) {
	cfg := configx.MustNew[escalation.Config]("ESCALATION")
	if !cfg.Enabled {
		return nil, nil
	}

	qstashCfg := configx.MustNew[qstashx.Config]("QSTASH")
	return escalation.NewQueueEscalator(qstashx.MustNew(*qstashCfg), cfg.Destination)
}

func printTranscript(n int, st *statex.SessionState) {
	if n > 0 {
		fmt.Printf("=== Query %d: %s\n", n, st.Query)
	} else {
		fmt.Printf("=== %s\n", st.Query)
	}
	for _, line := range st.Log {
		fmt.Println("  " + line)
	}
	fmt.Printf("--> %s\n\n", st.Response)
}
