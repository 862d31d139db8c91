package orchestrator

import (
	"context"
	"errors"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tanpawarit/chative-support-a2a/agent/agents/rules"
	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	datastorex "github.com/tanpawarit/chative-support-a2a/agent/datastore"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
	toolx "github.com/tanpawarit/chative-support-a2a/agent/tool"
)

type fakeStore struct {
	mu    sync.Mutex
	saved []*statex.SessionState
	err   error
}

func (f *fakeStore) Load(ctx context.Context, sessionID string) (*statex.SessionState, error) {
	return nil, statex.ErrStateNotFound
}

func (f *fakeStore) Save(ctx context.Context, st *statex.SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	cp := st.Clone()
	f.saved = append(f.saved, &cp)
	return nil
}

func (f *fakeStore) Delete(ctx context.Context, sessionID string) error {
	return nil
}

type fakeEscalator struct {
	mu       sync.Mutex
	sessions []string
}

func (f *fakeEscalator) Escalate(ctx context.Context, st *statex.SessionState) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, st.SessionID)
	return nil
}

type harness struct {
	orchestrator *Orchestrator
	store        *datastorex.Store
	archive      *fakeStore
	escalator    *fakeEscalator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()

	store, err := datastorex.Open(ctx, datastorex.Config{
		Driver: datastorex.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "support.db"),
		Seed:   true,
	})
	if err != nil {
		t.Fatalf("datastore.Open() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })

	bridge, err := toolx.NewServer(toolx.BuildTools(store))
	if err != nil {
		t.Fatalf("tool.NewServer() error = %v", err)
	}
	server := httptest.NewServer(bridge.Handler())
	t.Cleanup(server.Close)

	client, err := toolx.NewClient(toolx.ClientConfig{URL: server.URL + "/mcp", Timeout: 5 * time.Second},
		toolx.WithClientHTTPClient(server.Client()))
	if err != nil {
		t.Fatalf("tool.NewClient() error = %v", err)
	}

	archive := &fakeStore{}
	escalator := &fakeEscalator{}
	o, err := New(rules.NewRegistry(), client, Config{StepLimit: 15, Mode: ModeRules, HistoryConcurrency: 4},
		WithArchive(archive),
		WithEscalator(escalator),
		WithIDGenerator(func() string { return "session-1" }),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return &harness{orchestrator: o, store: store, archive: archive, escalator: escalator}
}

func countLines(log []string, prefix string) int {
	n := 0
	for _, line := range log {
		if strings.HasPrefix(line, prefix) {
			n++
		}
	}
	return n
}

func containsLine(log []string, substr string) bool {
	for _, line := range log {
		if strings.Contains(line, substr) {
			return true
		}
	}
	return false
}

func TestTransitionTable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		from, next, want statex.Next
	}{
		{statex.NextRouter, statex.NextCustomerData, statex.NextCustomerData},
		{statex.NextRouter, statex.NextSupport, statex.NextSupport},
		{statex.NextRouter, statex.NextEnd, statex.NextEnd},
		{statex.NextRouter, statex.NextRouter, statex.NextEnd},
		{statex.NextRouter, "", statex.NextEnd},
		{statex.NextCustomerData, statex.NextEnd, statex.NextRouter},
		{statex.NextCustomerData, statex.NextSupport, statex.NextRouter},
		{statex.NextSupport, statex.NextRouter, statex.NextRouter},
		{statex.NextSupport, statex.NextEnd, statex.NextEnd},
		{statex.NextSupport, statex.NextCustomerData, statex.NextEnd},
	}
	for _, tc := range cases {
		if got := transition(tc.from, tc.next); got != tc.want {
			t.Fatalf("transition(%s, %s) = %s, want %s", tc.from, tc.next, got, tc.want)
		}
	}
}

func TestNewRequiresCollaborators(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &toolx.Client{}, Config{}); err == nil {
		t.Fatal("expected error for nil registry")
	}
	if _, err := New(rules.NewRegistry(), nil, Config{}); err == nil {
		t.Fatal("expected error for nil tool caller")
	}
}

func TestConfigValidate(t *testing.T) {
	t.Parallel()

	good := Config{StepLimit: 15, Mode: ModeLLM, HistoryConcurrency: 4}
	if err := good.Validate(); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	for _, bad := range []Config{
		{StepLimit: 0, Mode: ModeRules, HistoryConcurrency: 4},
		{StepLimit: 15, Mode: "oracle", HistoryConcurrency: 4},
		{StepLimit: 15, Mode: ModeRules, HistoryConcurrency: 0},
	} {
		if err := bad.Validate(); !errors.Is(err, contractx.ErrValidation) {
			t.Fatalf("Validate(%+v) = %v, want ErrValidation", bad, err)
		}
	}
}

func TestHandleQueryRejectsEmptyQuery(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	_, err := h.orchestrator.HandleQuery(context.Background(), "   ")
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}
	if len(h.archive.saved) != 0 {
		t.Fatalf("archived %d sessions", len(h.archive.saved))
	}
}

func TestRunStopsAtStepBudget(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st := statex.NewSessionState("s-budget", "Get customer information for ID 5", time.Now())
	st.Step = 15

	out, err := h.orchestrator.Run(context.Background(), *st)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if out.Next != statex.NextEnd || out.Response != "" || out.Step != 16 {
		t.Fatalf("next=%s response=%q step=%d", out.Next, out.Response, out.Step)
	}
	if !containsLine(out.Log, "Step limit reached") {
		t.Fatalf("log = %v", out.Log)
	}
}

func TestRunHonoursCancellation(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	st := statex.NewSessionState("s-cancel", "hello", time.Now())
	out, err := h.orchestrator.Run(ctx, *st)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if out.SessionID != "s-cancel" || out.Next != statex.NextEnd {
		t.Fatalf("session=%q next=%s", out.SessionID, out.Next)
	}
	if countLines(out.Log, "[Router] Session interrupted before router") != 1 {
		t.Fatalf("Log = %v", out.Log)
	}
}

// cancelAfterCall cancels the session context once the first tool call returns.
type cancelAfterCall struct {
	contractx.ToolCaller
	cancel context.CancelFunc
}

func (c cancelAfterCall) Call(ctx context.Context, name string, args map[string]any) statex.ToolResult {
	res := c.ToolCaller.Call(ctx, name, args)
	c.cancel()
	return res
}

func TestHandleSessionReturnsPartialStateOnCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	o, err := New(rules.NewRegistry(), cancelAfterCall{ToolCaller: h.orchestrator.deps.Tools, cancel: cancel},
		Config{StepLimit: 15, Mode: ModeRules},
		WithArchive(h.archive),
	)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	st, err := o.HandleSession(ctx, "s-partial", "Get customer information for ID 5")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if st == nil {
		t.Fatal("partial state was dropped")
	}
	if st.SessionID != "s-partial" || st.Customer == nil || st.Customer.ID != 5 {
		t.Fatalf("state = %+v", st)
	}
	if st.Response != "" || !containsLine(st.Log, "Session interrupted before router") {
		t.Fatalf("response=%q log=%v", st.Response, st.Log)
	}
}

func TestHandleQueryCustomerInfo(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(), "Get customer information for ID 5")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if st.SessionID != "session-1" || st.Next != statex.NextEnd {
		t.Fatalf("session=%q next=%s", st.SessionID, st.Next)
	}
	if got := countLines(st.Log, "[CustomerData] Calling get_customer {"); got != 1 {
		t.Fatalf("get_customer called %d times, log = %v", got, st.Log)
	}
	if st.Customer == nil || st.Customer.Name != "Charlie Brown" {
		t.Fatalf("Customer = %+v", st.Customer)
	}
	if !strings.Contains(st.Response, "Customer #5: Charlie Brown") {
		t.Fatalf("Response = %q", st.Response)
	}
	if st.DataOp != "" || st.Needs != "" {
		t.Fatalf("dataOp=%q needs=%q", st.DataOp, st.Needs)
	}
	if len(h.archive.saved) != 1 || len(h.escalator.sessions) != 0 {
		t.Fatalf("archived=%d escalated=%d", len(h.archive.saved), len(h.escalator.sessions))
	}
}

func TestHandleQueryUrgentBillingNegotiatesOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(), "I've been charged twice, please refund immediately!")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if got := countLines(st.Log, "[Support → Router] negotiation: need billing_info"); got != 1 {
		t.Fatalf("billing_info negotiated %d times, log = %v", got, st.Log)
	}
	if !st.AskedBillingInfoOnce() {
		t.Fatal("billing negotiation not recorded")
	}
	if st.LastDataResult == nil || st.LastDataResult.Success {
		t.Fatalf("LastDataResult = %+v", st.LastDataResult)
	}
	if st.Response == "" || !strings.Contains(st.Response, "billing") {
		t.Fatalf("Response = %q", st.Response)
	}
	if len(h.escalator.sessions) != 1 {
		t.Fatalf("escalated %d sessions", len(h.escalator.sessions))
	}
}

func TestHandleQueryUrgentBillingWithCustomerFetchesHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(),
		"I'm customer 1, I've been charged twice, please refund immediately!")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if got := countLines(st.Log, "[CustomerData] Calling create_ticket"); got != 1 {
		t.Fatalf("create_ticket called %d times, log = %v", got, st.Log)
	}
	if got := countLines(st.Log, "[Support → Router] negotiation: need billing_info"); got != 1 {
		t.Fatalf("billing_info negotiated %d times, log = %v", got, st.Log)
	}
	if got := countLines(st.Log, "[CustomerData] Calling get_customer_history"); got != 1 {
		t.Fatalf("get_customer_history called %d times, log = %v", got, st.Log)
	}
	if !st.HasTickets() || len(st.Tickets) != 3 {
		t.Fatalf("HistoryLoaded=%v Tickets=%+v", st.HistoryLoaded, st.Tickets)
	}
	if st.CreatedTicket == nil || st.CreatedTicket.Priority != statex.PriorityHigh {
		t.Fatalf("CreatedTicket = %+v", st.CreatedTicket)
	}
	for _, want := range []string{"billing", "I can see 3 ticket(s)", "opened ticket"} {
		if !strings.Contains(st.Response, want) {
			t.Fatalf("Response = %q, missing %q", st.Response, want)
		}
	}
	if len(h.escalator.sessions) != 1 {
		t.Fatalf("escalated %d sessions", len(h.escalator.sessions))
	}
}

func TestHandleQueryCancelAndBilling(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(),
		"I'm customer 1, I want to cancel my subscription but I was charged for next month")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if !containsLine(st.Log, "[Router → Support] Can you handle cancellation + billing together?") {
		t.Fatalf("log = %v", st.Log)
	}
	if !st.AskedSupportOnce {
		t.Fatal("AskedSupportOnce not set")
	}
	if got := countLines(st.Log, "[Support → Router] negotiation:"); got != 1 {
		t.Fatalf("negotiations = %d, log = %v", got, st.Log)
	}
	if len(st.Tickets) != 2 {
		t.Fatalf("Tickets = %+v", st.Tickets)
	}
	if !strings.Contains(st.Response, "cancel") || !strings.Contains(st.Response, "billing") {
		t.Fatalf("Response = %q", st.Response)
	}
}

func TestHandleQueryUpdateEmailAndHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(),
		"I'm customer 2, update my email to new@email.com and show my ticket history")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if !st.EmailUpdated || !st.AskedHistoryOnce {
		t.Fatalf("emailUpdated=%v askedHistoryOnce=%v", st.EmailUpdated, st.AskedHistoryOnce)
	}
	if countLines(st.Log, "[CustomerData] Calling update_customer") != 1 ||
		countLines(st.Log, "[CustomerData] Calling get_customer_history") != 1 {
		t.Fatalf("log = %v", st.Log)
	}
	if !strings.Contains(st.Response, "updated to new@email.com") {
		t.Fatalf("Response = %q", st.Response)
	}

	customer, err := h.store.GetCustomer(context.Background(), 2)
	if err != nil {
		t.Fatalf("GetCustomer() error = %v", err)
	}
	if customer.Email != "new@email.com" {
		t.Fatalf("stored email = %q", customer.Email)
	}
}

func TestHandleQueryHistoryOnlyFetchesHistory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(), "I'm customer 2, show my ticket history")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if got := countLines(st.Log, "[Support → Router] negotiation: need billing_info"); got != 1 {
		t.Fatalf("billing_info negotiated %d times, log = %v", got, st.Log)
	}
	if got := countLines(st.Log, "[CustomerData] Calling get_customer_history"); got != 1 {
		t.Fatalf("get_customer_history called %d times, log = %v", got, st.Log)
	}
	if !st.HasTickets() || len(st.Tickets) != 2 {
		t.Fatalf("HistoryLoaded=%v Tickets=%+v", st.HistoryLoaded, st.Tickets)
	}
	for _, want := range []string{"Hi Jane.", "You have 2 ticket(s)", "Billing discrepancy on last invoice"} {
		if !strings.Contains(st.Response, want) {
			t.Fatalf("Response = %q, missing %q", st.Response, want)
		}
	}
}

func TestHandleQueryPremiumTicketStatus(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(),
		"What's the status of all high-priority tickets for premium customers?")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if st.Scenario != statex.ScenarioMultiStep || st.ReportMode != statex.ReportPremiumHighPriority {
		t.Fatalf("scenario=%q mode=%q", st.Scenario, st.ReportMode)
	}
	if len(st.TicketsByCustomer) != 3 || strings.Contains(st.Response, "customer ID") {
		t.Fatalf("TicketsByCustomer=%v Response=%q", st.TicketsByCustomer, st.Response)
	}
}

func TestHandleQueryActiveCustomerReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(), "Show me all active customers who have open tickets")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if st.Scenario != statex.ScenarioMultiStep || len(st.Customers) != 8 {
		t.Fatalf("scenario=%s customers=%d", st.Scenario, len(st.Customers))
	}
	if got := countLines(st.Log, "[Support → Router] negotiation: need tickets_for_customers"); got != 1 {
		t.Fatalf("negotiations = %d, log = %v", got, st.Log)
	}
	for _, id := range []int64{1, 5, 7} {
		if len(st.TicketsByCustomer[id]) == 0 {
			t.Fatalf("missing high-priority tickets for customer %d: %v", id, st.TicketsByCustomer)
		}
	}
	if _, ok := st.TicketsByCustomer[2]; ok {
		t.Fatal("customer without high-priority tickets should be omitted")
	}
	if !strings.Contains(st.Response, "Charlie Brown (#5)") {
		t.Fatalf("Response = %q", st.Response)
	}
}

func TestHandleQueryPremiumReport(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(), "Show me all active customers with high-priority tickets")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if st.ReportMode != statex.ReportPremiumHighPriority {
		t.Fatalf("ReportMode = %q", st.ReportMode)
	}
	if countLines(st.Log, "[Support → Router] negotiation:") != 0 {
		t.Fatalf("premium report should not negotiate, log = %v", st.Log)
	}
	if len(st.TicketsByCustomer) != 3 {
		t.Fatalf("TicketsByCustomer = %v", st.TicketsByCustomer)
	}
}

func TestHandleQueryUrgentTicketForKnownCustomer(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	st, err := h.orchestrator.HandleQuery(context.Background(), "Customer 4 here, my service is down, fix it ASAP")
	if err != nil {
		t.Fatalf("HandleQuery() error = %v", err)
	}

	if countLines(st.Log, "[CustomerData] Calling create_ticket") != 1 {
		t.Fatalf("log = %v", st.Log)
	}
	history, err := h.store.CustomerHistory(context.Background(), 4)
	if err != nil {
		t.Fatalf("CustomerHistory() error = %v", err)
	}
	if len(history) != 2 || history[0].Priority != statex.PriorityHigh {
		t.Fatalf("history = %+v", history)
	}
	if !strings.Contains(st.Response, "opened ticket") {
		t.Fatalf("Response = %q", st.Response)
	}
}
