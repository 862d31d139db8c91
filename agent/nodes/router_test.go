package orchestratornode

import (
	"context"
	"strings"
	"testing"

	contractx "github.com/tanpawarit/chative-support-a2a/agent/contract"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

func TestRouterStepBudgetWins(t *testing.T) {
	t.Parallel()

	st := newState("anything")
	st.Step = 15
	st.Needs = statex.NeedsBillingInfo

	out := Router(context.Background(), st, testDeps(&fakeRegistry{}, nil))
	if out.Next != statex.NextEnd {
		t.Fatalf("Next = %s, want end", out.Next)
	}
	if out.Step != 16 {
		t.Fatalf("Step = %d, want 16", out.Step)
	}
	if out.Needs != statex.NeedsBillingInfo {
		t.Fatal("budget exhaustion must not consume needs")
	}
	if len(out.Log) != 1 || !strings.Contains(out.Log[0], "Step limit") {
		t.Fatalf("Log = %v", out.Log)
	}
}

func TestRouterCustomStepLimit(t *testing.T) {
	t.Parallel()

	deps := testDeps(&fakeRegistry{}, nil)
	deps.StepLimit = 2
	st := newState("q")
	st.Step = 2

	if out := Router(context.Background(), st, deps); out.Next != statex.NextEnd {
		t.Fatalf("Next = %s, want end", out.Next)
	}
}

func TestRouterTerminationIsIdempotent(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{}
	deps := testDeps(&fakeRegistry{router: classifier}, nil)
	st := newState("q")
	st.Response = "all set"

	first := Router(context.Background(), st, deps)
	second := Router(context.Background(), first, deps)
	for _, out := range []statex.SessionState{first, second} {
		if out.Next != statex.NextEnd {
			t.Fatalf("Next = %s, want end", out.Next)
		}
	}
	if second.Step != 2 || len(second.Log) != 2 {
		t.Fatalf("Step = %d, Log = %v", second.Step, second.Log)
	}
	if classifier.calls != 0 {
		t.Fatalf("classifier called %d times after response", classifier.calls)
	}
}

func TestRouterTranslatesNeeds(t *testing.T) {
	t.Parallel()

	cases := map[statex.Needs]statex.DataOp{
		statex.NeedsBillingInfo:         statex.OpGetCustomerHistory,
		statex.NeedsTicketsForCustomers: statex.OpGetHighPriorityForCustomers,
		statex.NeedsCustomerInfo:        statex.OpGetCustomer,
		statex.NeedsActiveCustomers:     statex.OpListActiveCustomers,
	}
	for needs, op := range cases {
		st := newState("q")
		st.Initialized = true
		st.Needs = needs

		out := Router(context.Background(), st, testDeps(&fakeRegistry{}, nil))
		if out.Next != statex.NextCustomerData || out.DataOp != op {
			t.Fatalf("%s: Next = %s, DataOp = %s", needs, out.Next, out.DataOp)
		}
		if out.Needs != "" {
			t.Fatalf("%s: needs not cleared", needs)
		}
	}
}

func TestRouterClassifiesOnceThenPrefetches(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{out: contractx.Classification{
		CustomerID: int64Ptr(5),
		Intents:    []statex.Intent{statex.IntentGetInfo, "bogus", statex.IntentGetInfo},
		Scenario:   statex.ScenarioTaskAllocation,
	}}
	deps := testDeps(&fakeRegistry{router: classifier}, nil)

	out := Router(context.Background(), newState("Get customer information for ID 5"), deps)
	if !out.Initialized || out.CustomerID == nil || *out.CustomerID != 5 {
		t.Fatalf("classification not applied: %+v", out)
	}
	if len(out.Intents) != 1 || out.Intents[0] != statex.IntentGetInfo {
		t.Fatalf("Intents = %v", out.Intents)
	}
	if out.Next != statex.NextCustomerData || out.DataOp != statex.OpGetCustomer {
		t.Fatalf("Next = %s, DataOp = %s", out.Next, out.DataOp)
	}
	if len(out.Log) != 1 {
		t.Fatalf("router must log exactly once per visit, got %v", out.Log)
	}

	out.DataOp = ""
	out.MarkCompleted(statex.OpGetCustomer)
	out.Customer = &statex.Customer{ID: 5, Name: "Charlie Brown", Status: statex.StatusActive}

	again := Router(context.Background(), out, deps)
	if classifier.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", classifier.calls)
	}
	if again.Next != statex.NextSupport {
		t.Fatalf("Next = %s, want support", again.Next)
	}
	if !strings.Contains(again.Log[len(again.Log)-1], "Customer tier: active") {
		t.Fatalf("last log = %q", again.Log[len(again.Log)-1])
	}
}

func TestRouterPrefetchNotRepeatedAfterFailure(t *testing.T) {
	t.Parallel()

	st := newState("q")
	st.Initialized = true
	st.CustomerID = int64Ptr(99)
	st.MarkCompleted(statex.OpGetCustomer)

	out := Router(context.Background(), st, testDeps(&fakeRegistry{}, nil))
	if out.Next != statex.NextSupport || out.DataOp != "" {
		t.Fatalf("Next = %s, DataOp = %s", out.Next, out.DataOp)
	}
}

func TestRouterClassificationFailureRoutesToSupport(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{err: errBoom}
	deps := testDeps(&fakeRegistry{router: classifier}, nil)

	out := Router(context.Background(), newState("q"), deps)
	if out.Next != statex.NextSupport || !out.Initialized {
		t.Fatalf("Next = %s, Initialized = %v", out.Next, out.Initialized)
	}
	if len(out.Log) != 1 || !strings.Contains(out.Log[0], "Classification failed") {
		t.Fatalf("Log = %v", out.Log)
	}

	Router(context.Background(), out, deps)
	if classifier.calls != 1 {
		t.Fatalf("classifier calls = %d, want 1", classifier.calls)
	}
}

func TestRouterMultiStepReport(t *testing.T) {
	t.Parallel()

	classifier := &fakeClassifier{out: contractx.Classification{
		Intents:    []statex.Intent{statex.IntentReport},
		Scenario:   statex.ScenarioMultiStep,
		ReportMode: statex.ReportPremiumHighPriority,
	}}
	deps := testDeps(&fakeRegistry{router: classifier}, nil)

	out := Router(context.Background(), newState("premium report"), deps)
	if out.DataOp != statex.OpListActiveCustomers {
		t.Fatalf("DataOp = %s, want list_active_customers", out.DataOp)
	}

	out.DataOp = ""
	out.MarkCompleted(statex.OpListActiveCustomers)
	out.Customers = []statex.Customer{{ID: 1}, {ID: 2}}
	out = Router(context.Background(), out, deps)
	if out.DataOp != statex.OpGetHighPriorityForCustomers {
		t.Fatalf("DataOp = %s, want get_high_priority_for_customers", out.DataOp)
	}

	out.DataOp = ""
	out.MarkCompleted(statex.OpGetHighPriorityForCustomers)
	out = Router(context.Background(), out, deps)
	if out.Next != statex.NextSupport || out.DataOp != "" {
		t.Fatalf("Next = %s, DataOp = %s", out.Next, out.DataOp)
	}
}

func TestRouterPremiumReportSkipsPrefetch(t *testing.T) {
	t.Parallel()

	st := newState("q")
	st.Initialized = true
	st.Scenario = statex.ScenarioMultiStep
	st.ReportMode = statex.ReportPremiumHighPriority
	st.CustomerID = int64Ptr(3)

	out := Router(context.Background(), st, testDeps(&fakeRegistry{}, nil))
	if out.DataOp != statex.OpListActiveCustomers {
		t.Fatalf("DataOp = %s, want list_active_customers", out.DataOp)
	}
}

func TestRouterCancelBillingAsksSupportOnce(t *testing.T) {
	t.Parallel()

	st := newState("cancel and refund")
	st.Initialized = true
	st.Intents = []statex.Intent{statex.IntentCancel, statex.IntentBilling}
	deps := testDeps(&fakeRegistry{}, nil)

	out := Router(context.Background(), st, deps)
	if out.Next != statex.NextSupport || !out.AskedSupportOnce {
		t.Fatalf("Next = %s, AskedSupportOnce = %v", out.Next, out.AskedSupportOnce)
	}
	if got := out.Log[0]; got != "[Router → Support] Can you handle cancellation + billing together?" {
		t.Fatalf("Log[0] = %q", got)
	}

	again := Router(context.Background(), out, deps)
	if strings.Contains(again.Log[1], "cancellation + billing") {
		t.Fatalf("negotiation pair asked twice: %v", again.Log)
	}
}

func TestRouterUpdateEmailThenHistory(t *testing.T) {
	t.Parallel()

	st := newState("update and history")
	st.Initialized = true
	st.CustomerID = int64Ptr(2)
	st.Customer = &statex.Customer{ID: 2, Status: statex.StatusActive}
	st.Intents = []statex.Intent{statex.IntentUpdateEmail, statex.IntentHistory}
	st.UpdateData = map[string]string{"email": "new@email.com"}
	deps := testDeps(&fakeRegistry{}, nil)

	var ops []statex.DataOp
	for range 3 {
		st = Router(context.Background(), st, deps)
		ops = append(ops, st.DataOp)
		st.MarkCompleted(st.DataOp)
		st.DataOp = ""
	}

	want := []statex.DataOp{statex.OpUpdateCustomer, statex.OpGetCustomerHistory, ""}
	for i := range want {
		if ops[i] != want[i] {
			t.Fatalf("ops = %v, want %v", ops, want)
		}
	}
	if !st.EmailUpdated || !st.AskedHistoryOnce || st.Next != statex.NextSupport {
		t.Fatalf("flags not set or wrong next: %+v", st)
	}
}

func TestRouterUrgentIssueOpensTicketOnce(t *testing.T) {
	t.Parallel()

	st := newState("urgent")
	st.Initialized = true
	st.CustomerID = int64Ptr(3)
	st.Customer = &statex.Customer{ID: 3, Status: statex.StatusActive}
	st.Urgency = statex.UrgencyHigh
	st.NewTicketIssue = "Charged twice"
	deps := testDeps(&fakeRegistry{}, nil)

	out := Router(context.Background(), st, deps)
	if out.DataOp != statex.OpCreateTicket {
		t.Fatalf("DataOp = %s, want create_ticket", out.DataOp)
	}
	out.MarkCompleted(statex.OpCreateTicket)
	out.DataOp = ""
	if again := Router(context.Background(), out, deps); again.DataOp != "" {
		t.Fatalf("create_ticket repeated")
	}
}

func TestRouterDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	st := newState("q")
	st.Needs = statex.NeedsCustomerInfo
	st.Log = []string{"seed"}

	Router(context.Background(), st, testDeps(&fakeRegistry{}, nil))
	if st.Step != 0 || st.Needs != statex.NeedsCustomerInfo || len(st.Log) != 1 {
		t.Fatalf("input mutated: %+v", st)
	}
}
