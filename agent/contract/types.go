package contract

import statex "github.com/tanpawarit/chative-support-a2a/agent/state"

type AgentType string

const (
	AgentTypeRouter       AgentType = "router"
	AgentTypeCustomerData AgentType = "customer_data"
	AgentTypeSupport      AgentType = "support"
)

type ClassifyRequest struct {
	Query string
}

type Classification struct {
	CustomerID        *int64
	Intents           []statex.Intent
	Urgency           statex.Urgency
	Scenario          statex.Scenario
	ReportMode        statex.ReportMode
	UpdateData        map[string]string
	NewTicketIssue    string
	NewTicketPriority string
}

type SupportAction string

const (
	ActionRespond   SupportAction = "respond"
	ActionNegotiate SupportAction = "negotiate"
)

type SupportRequest struct {
	State                *statex.SessionState
	HasCustomer          bool
	HasCustomers         bool
	HasTickets           bool
	HasTicketsByCustomer bool
	AlreadyNegotiated    bool
}

func NewSupportRequest(st *statex.SessionState) SupportRequest {
	return SupportRequest{
		State:                st,
		HasCustomer:          st.HasCustomer(),
		HasCustomers:         st.HasCustomers(),
		HasTickets:           st.HasTickets(),
		HasTicketsByCustomer: st.HasTicketsByCustomer(),
		AlreadyNegotiated:    st.Negotiated(),
	}
}

type SupportDecision struct {
	Action   SupportAction
	Needs    statex.Needs
	Response string
	Note     string
}

type DataRequest struct {
	Op    statex.DataOp
	State *statex.SessionState
}

type ToolCall struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

type DataPlan struct {
	Calls   []ToolCall
	Message string
}
