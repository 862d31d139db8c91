package state

import (
	"slices"
	"time"
)

const (
	StatusActive   = "active"
	StatusDisabled = "disabled"

	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"

	TicketOpen = "open"
)

type Customer struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Ticket struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"customer_id"`
	Issue      string    `json:"issue"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	CreatedAt  time.Time `json:"created_at"`
}

// ToolResult is the normalized outcome of one data tool call.
type ToolResult struct {
	Tool       string     `json:"tool,omitempty"`
	Success    bool       `json:"success"`
	Error      string     `json:"error,omitempty"`
	Message    string     `json:"message,omitempty"`
	Customer   *Customer  `json:"customer,omitempty"`
	Customers  []Customer `json:"customers,omitempty"`
	Ticket     *Ticket    `json:"ticket,omitempty"`
	Tickets    []Ticket   `json:"tickets,omitempty"`
	Count      int        `json:"count,omitempty"`
	CustomerID int64      `json:"customer_id,omitempty"`
}

func Failure(tool, msg string) ToolResult {
	return ToolResult{Tool: tool, Success: false, Error: msg}
}

func (r ToolResult) Clone() ToolResult {
	out := r
	if r.Customer != nil {
		c := *r.Customer
		out.Customer = &c
	}
	if r.Ticket != nil {
		t := *r.Ticket
		out.Ticket = &t
	}
	out.Customers = slices.Clone(r.Customers)
	out.Tickets = slices.Clone(r.Tickets)
	return out
}
