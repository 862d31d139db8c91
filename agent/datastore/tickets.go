package datastore

import (
	"context"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

// CreateTicket opens a ticket for an existing customer.
func (s *Store) CreateTicket(ctx context.Context, customerID int64, issue, priority string) (statex.Ticket, error) {
	priority = strings.ToLower(strings.TrimSpace(priority))
	if !validPriority(priority) {
		return statex.Ticket{}, ErrInvalidPriority
	}
	issue = strings.TrimSpace(issue)
	if issue == "" {
		return statex.Ticket{}, ErrEmptyIssue
	}

	row := ticketRow{
		CustomerID: customerID,
		Issue:      issue,
		Status:     statex.TicketOpen,
		Priority:   priority,
		CreatedAt:  s.now(),
	}
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if _, err := findCustomer(ctx, tx, customerID); err != nil {
			return err
		}
		if err := tx.NewInsert().Model(&row).Returning("*").Scan(ctx); err != nil {
			return fmt.Errorf("insert ticket: %w", err)
		}
		return nil
	})
	if err != nil {
		return statex.Ticket{}, err
	}
	return row.toState(), nil
}

// CustomerHistory returns every ticket of a customer, newest first.
func (s *Store) CustomerHistory(ctx context.Context, customerID int64) ([]statex.Ticket, error) {
	if _, err := findCustomer(ctx, s.db, customerID); err != nil {
		return nil, err
	}

	var rows []ticketRow
	if err := s.db.NewSelect().
		Model(&rows).
		Where("customer_id = ?", customerID).
		OrderExpr("created_at DESC, id DESC").
		Scan(ctx); err != nil {
		return nil, fmt.Errorf("customer %d history: %w", customerID, err)
	}

	out := make([]statex.Ticket, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toState())
	}
	return out, nil
}
