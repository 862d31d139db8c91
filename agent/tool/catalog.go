package tool

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/xeipuuv/gojsonschema"
)

const (
	GetCustomer        = "get_customer"
	ListCustomers      = "list_customers"
	UpdateCustomer     = "update_customer"
	CreateTicket       = "create_ticket"
	GetCustomerHistory = "get_customer_history"
)

// Catalog returns the data tools in the order tools/list reports them.
// Enumerated values are checked by the store so callers get a readable failure result.
func Catalog() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool(GetCustomer,
			mcp.WithDescription("Retrieve a specific customer by their ID."),
			mcp.WithNumber("customer_id",
				mcp.Required(),
				mcp.Description("The unique ID of the customer to retrieve"),
			),
		),
		mcp.NewTool(ListCustomers,
			mcp.WithDescription("List customers, optionally filtered by status and limited in count."),
			mcp.WithString("status",
				mcp.Description("Optional filter by customer status: active or disabled"),
			),
			mcp.WithNumber("limit",
				mcp.Description("Maximum number of customers to return"),
			),
		),
		mcp.NewTool(UpdateCustomer,
			mcp.WithDescription("Update a customer's fields. Allowed fields: name, email, phone, status."),
			mcp.WithNumber("customer_id",
				mcp.Required(),
				mcp.Description("The unique ID of the customer to update"),
			),
			mcp.WithObject("data",
				mcp.Required(),
				mcp.Description("Fields to update (name, email, phone, status)"),
				mcp.Properties(map[string]any{
					"name":   map[string]any{"type": "string"},
					"email":  map[string]any{"type": "string"},
					"phone":  map[string]any{"type": "string"},
					"status": map[string]any{"type": "string", "description": "active or disabled"},
				}),
			),
		),
		mcp.NewTool(CreateTicket,
			mcp.WithDescription("Create a new support ticket for a customer."),
			mcp.WithNumber("customer_id",
				mcp.Required(),
				mcp.Description("The customer ID this ticket belongs to"),
			),
			mcp.WithString("issue",
				mcp.Required(),
				mcp.Description("Description of the customer's issue"),
			),
			mcp.WithString("priority",
				mcp.Required(),
				mcp.Description("Ticket priority: low, medium or high"),
			),
		),
		mcp.NewTool(GetCustomerHistory,
			mcp.WithDescription("Get all tickets for a given customer ID."),
			mcp.WithNumber("customer_id",
				mcp.Required(),
				mcp.Description("The unique ID of the customer"),
			),
		),
	}
}

func compileSchemas(tools []mcp.Tool) (map[string]*gojsonschema.Schema, error) {
	out := make(map[string]*gojsonschema.Schema, len(tools))
	for _, t := range tools {
		raw, err := json.Marshal(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("marshal %s input schema: %w", t.Name, err)
		}
		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("compile %s input schema: %w", t.Name, err)
		}
		out[t.Name] = compiled
	}
	return out, nil
}

func validateArguments(schema *gojsonschema.Schema, raw json.RawMessage) error {
	if schema == nil {
		return nil
	}
	if len(raw) == 0 || string(raw) == "null" {
		raw = json.RawMessage("{}")
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidParams, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return fmt.Errorf("%w: %v", ErrInvalidParams, msgs)
	}
	return nil
}
