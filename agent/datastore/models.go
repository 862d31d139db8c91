package datastore

import (
	"errors"
	"time"

	"github.com/uptrace/bun"
	statex "github.com/tanpawarit/chative-support-a2a/agent/state"
)

var (
	ErrCustomerNotFound = errors.New("customer not found")
	ErrInvalidStatus    = errors.New(`invalid status, must be "active" or "disabled"`)
	ErrInvalidPriority  = errors.New(`invalid priority, must be "low", "medium" or "high"`)
	ErrEmptyIssue       = errors.New("issue description is required")
	ErrEmptyUpdate      = errors.New("update data must be a non-empty object")
	ErrNoUpdateFields   = errors.New("no valid fields to update, allowed: name, email, phone, status")
)

// UpdatableFields are the customer columns update_customer may change, in apply order.
var UpdatableFields = []string{"name", "email", "phone", "status"}

type customerRow struct {
	bun.BaseModel `bun:"table:customers,alias:c"`

	ID        int64     `bun:"id,pk,autoincrement"`
	Name      string    `bun:"name,notnull"`
	Email     string    `bun:"email"`
	Phone     string    `bun:"phone"`
	Status    string    `bun:"status,notnull"`
	CreatedAt time.Time `bun:"created_at,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}

func (r customerRow) toState() statex.Customer {
	return statex.Customer{
		ID:        r.ID,
		Name:      r.Name,
		Email:     r.Email,
		Phone:     r.Phone,
		Status:    r.Status,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type ticketRow struct {
	bun.BaseModel `bun:"table:tickets,alias:t"`

	ID         int64     `bun:"id,pk,autoincrement"`
	CustomerID int64     `bun:"customer_id,notnull"`
	Issue      string    `bun:"issue,notnull"`
	Status     string    `bun:"status,notnull"`
	Priority   string    `bun:"priority,notnull"`
	CreatedAt  time.Time `bun:"created_at,notnull"`
}

func (r ticketRow) toState() statex.Ticket {
	return statex.Ticket{
		ID:         r.ID,
		CustomerID: r.CustomerID,
		Issue:      r.Issue,
		Status:     r.Status,
		Priority:   r.Priority,
		CreatedAt:  r.CreatedAt.UTC(),
	}
}

func validStatus(status string) bool {
	return status == statex.StatusActive || status == statex.StatusDisabled
}

func validPriority(priority string) bool {
	switch priority {
	case statex.PriorityLow, statex.PriorityMedium, statex.PriorityHigh:
		return true
	}
	return false
}
