package datastore

import (
	"context"
	"fmt"
	"time"

	"github.com/uptrace/bun"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

type seedTicket struct {
	issue    string
	status   string
	priority string
}

type seedCustomer struct {
	name    string
	email   string
	phone   string
	status  string
	tickets []seedTicket
}

var sampleCustomers = []seedCustomer{
	{"John Doe", "john.doe@example.com", "+1-555-0101", statex.StatusActive, []seedTicket{
		{"Cannot login to account", "open", statex.PriorityHigh},
		{"Password reset request", "resolved", statex.PriorityLow},
	}},
	{"Jane Smith", "jane.smith@example.com", "+1-555-0102", statex.StatusActive, []seedTicket{
		{"Billing discrepancy on last invoice", "in_progress", statex.PriorityMedium},
		{"Request to export account data", "resolved", statex.PriorityLow},
	}},
	{"Bob Johnson", "bob.johnson@example.com", "+1-555-0103", statex.StatusActive, []seedTicket{
		{"Question about upgrade options", "open", statex.PriorityLow},
	}},
	{"Alice Williams", "alice.w@example.com", "+1-555-0104", statex.StatusDisabled, []seedTicket{
		{"Account reactivation request", "open", statex.PriorityMedium},
	}},
	{"Charlie Brown", "charlie.brown@example.com", "+1-555-0105", statex.StatusActive, []seedTicket{
		{"Payment processing failure", "open", statex.PriorityHigh},
		{"Duplicate charge on credit card", "in_progress", statex.PriorityHigh},
	}},
	{"Diana Prince", "diana.prince@example.com", "+1-555-0106", statex.StatusActive, nil},
	{"Edward Norton", "edward.norton@example.com", "+1-555-0107", statex.StatusActive, []seedTicket{
		{"Service outage in my region", "open", statex.PriorityHigh},
	}},
	{"Fiona Green", "fiona.green@example.com", "+1-555-0108", statex.StatusDisabled, nil},
	{"George Miller", "george.miller@example.com", "+1-555-0109", statex.StatusActive, []seedTicket{
		{"Feature request: dark mode", "open", statex.PriorityLow},
	}},
	{"Hannah Lee", "hannah.lee@example.com", "+1-555-0110", statex.StatusActive, []seedTicket{
		{"Refund not received", "open", statex.PriorityMedium},
	}},
}

// SeedIfEmpty inserts the sample customers and tickets into an empty database.
func (s *Store) SeedIfEmpty(ctx context.Context) error {
	count, err := s.db.NewSelect().Model((*customerRow)(nil)).Count(ctx)
	if err != nil {
		return fmt.Errorf("count customers: %w", err)
	}
	if count > 0 {
		return nil
	}

	// older customers first so ids follow creation order
	base := s.now().Add(-time.Duration(len(sampleCustomers)) * 24 * time.Hour)
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for i, sc := range sampleCustomers {
			created := base.Add(time.Duration(i) * 24 * time.Hour)
			customer := customerRow{
				Name:      sc.name,
				Email:     sc.email,
				Phone:     sc.phone,
				Status:    sc.status,
				CreatedAt: created,
				UpdatedAt: created,
			}
			if err := tx.NewInsert().Model(&customer).Returning("*").Scan(ctx); err != nil {
				return fmt.Errorf("insert customer %q: %w", sc.name, err)
			}
			for j, st := range sc.tickets {
				ticket := ticketRow{
					CustomerID: customer.ID,
					Issue:      st.issue,
					Status:     st.status,
					Priority:   st.priority,
					CreatedAt:  created.Add(time.Duration(j+1) * time.Hour),
				}
				if _, err := tx.NewInsert().Model(&ticket).Exec(ctx); err != nil {
					return fmt.Errorf("insert ticket for %q: %w", sc.name, err)
				}
			}
		}
		return nil
	})
}
