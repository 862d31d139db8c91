package datastore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/uptrace/bun"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

const (
	minListLimit = 1
	maxListLimit = 500
)

type ListFilter struct {
	// Status is empty for all customers.
	Status string
	// Limit is nil for no limit; otherwise clamped to [1, 500].
	Limit *int
}

func (s *Store) GetCustomer(ctx context.Context, id int64) (statex.Customer, error) {
	row, err := findCustomer(ctx, s.db, id)
	if err != nil {
		return statex.Customer{}, err
	}
	return row.toState(), nil
}

// ListCustomers returns customers newest first.
func (s *Store) ListCustomers(ctx context.Context, filter ListFilter) ([]statex.Customer, error) {
	var rows []customerRow
	q := s.db.NewSelect().Model(&rows).OrderExpr("created_at DESC, id DESC")

	if status := strings.TrimSpace(filter.Status); status != "" {
		if !validStatus(status) {
			return nil, ErrInvalidStatus
		}
		q = q.Where("status = ?", status)
	}
	if filter.Limit != nil {
		q = q.Limit(clampLimit(*filter.Limit))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}

	out := make([]statex.Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toState())
	}
	return out, nil
}

// UpdateCustomer applies the allowed fields in data. Unknown fields are ignored.
func (s *Store) UpdateCustomer(ctx context.Context, id int64, data map[string]any) (statex.Customer, error) {
	var updated customerRow
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		row, err := findCustomer(ctx, tx, id)
		if err != nil {
			return err
		}
		if len(data) == 0 {
			return ErrEmptyUpdate
		}

		columns := make([]string, 0, len(UpdatableFields)+1)
		for _, field := range UpdatableFields {
			raw, ok := data[field]
			if !ok {
				continue
			}
			value := fmt.Sprint(raw)
			switch field {
			case "name":
				row.Name = value
			case "email":
				row.Email = value
			case "phone":
				row.Phone = value
			case "status":
				if !validStatus(value) {
					return ErrInvalidStatus
				}
				row.Status = value
			}
			columns = append(columns, field)
		}
		if len(columns) == 0 {
			return ErrNoUpdateFields
		}

		row.UpdatedAt = s.now()
		columns = append(columns, "updated_at")

		if _, err := tx.NewUpdate().Model(&row).Column(columns...).WherePK().Exec(ctx); err != nil {
			return fmt.Errorf("update customer %d: %w", id, err)
		}
		updated = row
		return nil
	})
	if err != nil {
		return statex.Customer{}, err
	}
	return updated.toState(), nil
}

func findCustomer(ctx context.Context, db bun.IDB, id int64) (customerRow, error) {
	row := customerRow{ID: id}
	if err := db.NewSelect().Model(&row).WherePK().Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customerRow{}, fmt.Errorf("%w: id=%d", ErrCustomerNotFound, id)
		}
		return customerRow{}, fmt.Errorf("get customer %d: %w", id, err)
	}
	return row, nil
}

func clampLimit(limit int) int {
	return max(minListLimit, min(limit, maxListLimit))
}
