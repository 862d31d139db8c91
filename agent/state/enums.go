package state

type Intent string

const (
	IntentCancel      Intent = "cancel"
	IntentBilling     Intent = "billing"
	IntentUpgrade     Intent = "upgrade"
	IntentReport      Intent = "report"
	IntentHistory     Intent = "history"
	IntentUpdateEmail Intent = "update_email"
	IntentGetInfo     Intent = "get_info"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentCancel, IntentBilling, IntentUpgrade, IntentReport, IntentHistory, IntentUpdateEmail, IntentGetInfo:
		return true
	}
	return false
}

type Urgency string

const UrgencyHigh Urgency = "high"

type Scenario string

const (
	ScenarioTaskAllocation Scenario = "task_allocation"
	ScenarioNegotiation    Scenario = "negotiation"
	ScenarioMultiStep      Scenario = "multi_step"
)

func (s Scenario) Valid() bool {
	switch s {
	case ScenarioTaskAllocation, ScenarioNegotiation, ScenarioMultiStep:
		return true
	}
	return false
}

type ReportMode string

const ReportPremiumHighPriority ReportMode = "premium_high_priority"

// DataOp names the single data operation the data agent should perform next.
type DataOp string

const (
	OpGetCustomer                 DataOp = "get_customer"
	OpGetCustomerHistory          DataOp = "get_customer_history"
	OpListActiveCustomers         DataOp = "list_active_customers"
	OpUpdateCustomer              DataOp = "update_customer"
	OpCreateTicket                DataOp = "create_ticket"
	OpGetHighPriorityForCustomers DataOp = "get_high_priority_for_customers"
)

func (d DataOp) Valid() bool {
	switch d {
	case OpGetCustomer, OpGetCustomerHistory, OpListActiveCustomers, OpUpdateCustomer, OpCreateTicket, OpGetHighPriorityForCustomers:
		return true
	}
	return false
}

// Needs is a kind of data the support agent can request from the router.
type Needs string

const (
	NeedsBillingInfo         Needs = "billing_info"
	NeedsTicketsForCustomers Needs = "tickets_for_customers"
	NeedsCustomerInfo        Needs = "customer_info"
	NeedsActiveCustomers     Needs = "active_customers"
)

func (n Needs) Valid() bool {
	_, ok := needsToOp[n]
	return ok
}

var needsToOp = map[Needs]DataOp{
	NeedsBillingInfo:         OpGetCustomerHistory,
	NeedsTicketsForCustomers: OpGetHighPriorityForCustomers,
	NeedsCustomerInfo:        OpGetCustomer,
	NeedsActiveCustomers:     OpListActiveCustomers,
}

// DataOp returns the data operation that satisfies the request.
func (n Needs) DataOp() (DataOp, bool) {
	op, ok := needsToOp[n]
	return op, ok
}

// Next is the routing signal a node leaves for the graph driver.
type Next string

const (
	NextRouter       Next = "router"
	NextCustomerData Next = "customer_data"
	NextSupport      Next = "support"
	NextEnd          Next = "end"
)
