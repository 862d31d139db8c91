package state

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"
)

// SessionState is the single record threaded through the agent graph for one query.
// Nodes never mutate a state they received; they Clone it and return the copy.
type SessionState struct {
	SessionID string `json:"session_id"`
	Query     string `json:"query"`

	// Classification, filled once by the router.
	Initialized bool       `json:"initialized"`
	CustomerID  *int64     `json:"customer_id,omitempty"`
	Intents     []Intent   `json:"intents,omitempty"`
	Urgency     Urgency    `json:"urgency,omitempty"`
	Scenario    Scenario   `json:"scenario,omitempty"`
	ReportMode  ReportMode `json:"report_mode,omitempty"`

	// Data gathered by the data agent.
	Customer          *Customer          `json:"customer,omitempty"`
	Customers         []Customer         `json:"customers,omitempty"`
	Tickets           []Ticket           `json:"tickets,omitempty"`
	HistoryLoaded     bool               `json:"history_loaded"`
	CreatedTicket     *Ticket            `json:"created_ticket,omitempty"`
	TicketsByCustomer map[int64][]Ticket `json:"tickets_by_customer,omitempty"`
	HistoryFailed     []int64            `json:"history_failed,omitempty"`
	LastDataResult    *ToolResult        `json:"last_data_result,omitempty"`

	// Pending work.
	DataOp            DataOp            `json:"data_op,omitempty"`
	UpdateData        map[string]string `json:"update_data,omitempty"`
	NewTicketIssue    string            `json:"new_ticket_issue,omitempty"`
	NewTicketPriority string            `json:"new_ticket_priority,omitempty"`
	Needs             Needs             `json:"needs,omitempty"`

	// Anti-loop bookkeeping.
	CompletedDataOps []DataOp `json:"completed_data_ops,omitempty"`
	Negotiations     []Needs  `json:"negotiations,omitempty"`
	AskedSupportOnce bool     `json:"asked_support_once"`
	AskedHistoryOnce bool     `json:"asked_history_once"`
	EmailUpdated     bool     `json:"email_updated"`

	Step     int      `json:"step"`
	Next     Next     `json:"next,omitempty"`
	Response string   `json:"response,omitempty"`
	Log      []string `json:"log,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

var (
	ErrEmptyQuery = errors.New("query is empty")
)

func NewSessionState(sessionID, query string, now time.Time) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Query:     query,
		Next:      NextRouter,
		UpdatedAt: now.UTC(),
	}
}

func (s *SessionState) Validate() error {
	if s == nil {
		return ErrNilSessionState
	}
	if strings.TrimSpace(s.SessionID) == "" {
		return ErrInvalidSession
	}
	if strings.TrimSpace(s.Query) == "" {
		return ErrEmptyQuery
	}
	if s.Step < 0 {
		return fmt.Errorf("step must be >= 0, got %d", s.Step)
	}
	if s.DataOp != "" && !s.DataOp.Valid() {
		return fmt.Errorf("unknown data op %q", s.DataOp)
	}
	if s.Needs != "" && !s.Needs.Valid() {
		return fmt.Errorf("unknown needs kind %q", s.Needs)
	}
	return nil
}

// Clone returns a deep copy so the caller can mutate it freely.
func (s SessionState) Clone() SessionState {
	out := s
	if s.CustomerID != nil {
		id := *s.CustomerID
		out.CustomerID = &id
	}
	if s.Customer != nil {
		c := *s.Customer
		out.Customer = &c
	}
	if s.CreatedTicket != nil {
		t := *s.CreatedTicket
		out.CreatedTicket = &t
	}
	if s.LastDataResult != nil {
		r := s.LastDataResult.Clone()
		out.LastDataResult = &r
	}
	out.Intents = slices.Clone(s.Intents)
	out.Customers = slices.Clone(s.Customers)
	out.Tickets = slices.Clone(s.Tickets)
	out.CompletedDataOps = slices.Clone(s.CompletedDataOps)
	out.Negotiations = slices.Clone(s.Negotiations)
	out.Log = slices.Clone(s.Log)
	out.UpdateData = maps.Clone(s.UpdateData)
	out.HistoryFailed = slices.Clone(s.HistoryFailed)
	if s.TicketsByCustomer != nil {
		out.TicketsByCustomer = make(map[int64][]Ticket, len(s.TicketsByCustomer))
		for cid, tickets := range s.TicketsByCustomer {
			out.TicketsByCustomer[cid] = slices.Clone(tickets)
		}
	}
	return out
}

func (s *SessionState) AppendLog(format string, args ...any) {
	s.Log = append(s.Log, fmt.Sprintf(format, args...))
}

func (s *SessionState) HasIntent(intent Intent) bool {
	return slices.Contains(s.Intents, intent)
}

func (s *SessionState) Completed(op DataOp) bool {
	return slices.Contains(s.CompletedDataOps, op)
}

func (s *SessionState) MarkCompleted(op DataOp) {
	if op == "" || s.Completed(op) {
		return
	}
	s.CompletedDataOps = append(s.CompletedDataOps, op)
}

// AskedFor reports whether support already requested this kind of data.
func (s *SessionState) AskedFor(kind Needs) bool {
	return slices.Contains(s.Negotiations, kind)
}

func (s *SessionState) Negotiated() bool {
	return len(s.Negotiations) > 0
}

// AskedBillingInfoOnce mirrors the negotiation ledger entry for billing_info.
func (s *SessionState) AskedBillingInfoOnce() bool {
	return s.AskedFor(NeedsBillingInfo)
}

func (s *SessionState) RecordNegotiation(kind Needs) {
	if kind == "" || s.AskedFor(kind) {
		return
	}
	s.Negotiations = append(s.Negotiations, kind)
}

func (s *SessionState) HasCustomer() bool {
	return s.Customer != nil
}

func (s *SessionState) HasCustomers() bool {
	return len(s.Customers) > 0
}

// HasTickets reports whether the customer's ticket history was fetched.
// Tickets opened during the session do not count as history.
func (s *SessionState) HasTickets() bool {
	return s.HistoryLoaded
}

func (s *SessionState) HasTicketsByCustomer() bool {
	return s.TicketsByCustomer != nil
}

// HasDataFor reports whether the data a needs kind would fetch is already present.
func (s *SessionState) HasDataFor(kind Needs) bool {
	switch kind {
	case NeedsBillingInfo:
		return s.HasTickets()
	case NeedsTicketsForCustomers:
		return s.HasTicketsByCustomer()
	case NeedsCustomerInfo:
		return s.HasCustomer()
	case NeedsActiveCustomers:
		return s.HasCustomers()
	default:
		return false
	}
}

// Tier is a short description of the customer's account used in routing logs.
func (s *SessionState) Tier() string {
	if s.Customer == nil {
		return "unknown"
	}
	status := strings.TrimSpace(s.Customer.Status)
	if status == "" {
		return "unknown"
	}
	return status
}
