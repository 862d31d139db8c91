package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	datastorex "github.com/tanpawarit/chative-support-a2a/agent/datastore"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

// DataStore is the persistence the data tools run against.
type DataStore interface {
	GetCustomer(ctx context.Context, id int64) (statex.Customer, error)
	ListCustomers(ctx context.Context, filter datastorex.ListFilter) ([]statex.Customer, error)
	UpdateCustomer(ctx context.Context, id int64, data map[string]any) (statex.Customer, error)
	CreateTicket(ctx context.Context, customerID int64, issue, priority string) (statex.Ticket, error)
	CustomerHistory(ctx context.Context, customerID int64) ([]statex.Ticket, error)
}

// BuildTools binds every catalog tool to its handler.
func BuildTools(store DataStore) []server.ServerTool {
	h := handlers{store: store}
	byName := map[string]server.ToolHandlerFunc{
		GetCustomer:        h.getCustomer,
		ListCustomers:      h.listCustomers,
		UpdateCustomer:     h.updateCustomer,
		CreateTicket:       h.createTicket,
		GetCustomerHistory: h.customerHistory,
	}

	catalog := Catalog()
	out := make([]server.ServerTool, 0, len(catalog))
	for _, t := range catalog {
		out = append(out, server.ServerTool{Tool: t, Handler: byName[t.Name]})
	}
	return out
}

type handlers struct {
	store DataStore
}

func (h handlers) getCustomer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "customer_id")
	if err != nil {
		return nil, err
	}
	customer, err := h.store.GetCustomer(ctx, id)
	if err != nil {
		return textResult(failure(err, id))
	}
	return textResult(statex.ToolResult{Success: true, Customer: &customer})
}

func (h handlers) listCustomers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	filter := datastorex.ListFilter{Status: req.GetString("status", "")}
	if _, ok := req.GetArguments()["limit"]; ok {
		limit, err := req.RequireInt("limit")
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		filter.Limit = &limit
	}

	customers, err := h.store.ListCustomers(ctx, filter)
	if err != nil {
		return textResult(failure(err, 0))
	}
	return textResult(statex.ToolResult{Success: true, Count: len(customers), Customers: customers})
}

func (h handlers) updateCustomer(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "customer_id")
	if err != nil {
		return nil, err
	}
	data, ok := req.GetArguments()["data"].(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%w: data must be an object", ErrInvalidParams)
	}

	customer, err := h.store.UpdateCustomer(ctx, id, data)
	if err != nil {
		return textResult(failure(err, id))
	}
	return textResult(statex.ToolResult{
		Success:  true,
		Message:  fmt.Sprintf("Customer %d updated successfully", id),
		Customer: &customer,
	})
}

func (h handlers) createTicket(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "customer_id")
	if err != nil {
		return nil, err
	}
	issue, err := req.RequireString("issue")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	priority, err := req.RequireString("priority")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}

	ticket, err := h.store.CreateTicket(ctx, id, issue, priority)
	if err != nil {
		return textResult(failure(err, id))
	}
	return textResult(statex.ToolResult{
		Success: true,
		Message: fmt.Sprintf("Ticket %d created successfully", ticket.ID),
		Ticket:  &ticket,
	})
}

func (h handlers) customerHistory(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := requireID(req, "customer_id")
	if err != nil {
		return nil, err
	}
	tickets, err := h.store.CustomerHistory(ctx, id)
	if err != nil {
		return textResult(failure(err, id))
	}
	return textResult(statex.ToolResult{
		Success:    true,
		CustomerID: id,
		Count:      len(tickets),
		Tickets:    tickets,
	})
}

func requireID(req mcp.CallToolRequest, key string) (int64, error) {
	v, err := req.RequireFloat(key)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParams, key)
	}
	return int64(v), nil
}

func textResult(res statex.ToolResult) (*mcp.CallToolResult, error) {
	payload, err := json.Marshal(res)
	if err != nil {
		return nil, fmt.Errorf("marshal tool result: %w", err)
	}
	return mcp.NewToolResultText(string(payload)), nil
}

// failure turns a store error into the message shown to agents.
func failure(err error, customerID int64) statex.ToolResult {
	var msg string
	switch {
	case errors.Is(err, datastorex.ErrCustomerNotFound):
		msg = fmt.Sprintf("Customer with ID %d not found", customerID)
	case errors.Is(err, datastorex.ErrInvalidStatus):
		msg = `Invalid status. Must be "active" or "disabled".`
	case errors.Is(err, datastorex.ErrInvalidPriority):
		msg = `Invalid priority. Must be "low", "medium", or "high".`
	case errors.Is(err, datastorex.ErrEmptyIssue):
		msg = "Issue description is required."
	case errors.Is(err, datastorex.ErrEmptyUpdate):
		msg = "Update data must be a non-empty object"
	case errors.Is(err, datastorex.ErrNoUpdateFields):
		msg = "No valid fields to update. Allowed: name, email, phone, status."
	default:
		msg = "Database error: " + err.Error()
	}
	return statex.ToolResult{Success: false, Error: msg}
}
