package notification

import (
	"context"
	"database/sql"
)

// ListFilter selects notifications for dispatch or listing. A non-empty IDs
// list short-circuits every other field. MessageContains matches
// case-insensitively. Zero values mean "no constraint".
type ListFilter struct {
	IDs             []string
	Status          Status
	Type            string
	Channel         Channel
	UserID          string
	MessageContains string
}

// Repository defines persistence for notifications.
type Repository interface {
	// BulkCreate persists a batch of notifications in a single transaction.
	// Partial failure rolls the whole batch back.
	BulkCreate(ctx context.Context, notifications []*Notification) error

	// List returns all notifications matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]*Notification, error)

	// ListPage returns one page of matching notifications joined with their
	// user summary, plus the total match count.
	ListPage(ctx context.Context, filter ListFilter, page, limit int) ([]*WithUser, int, error)

	// ClaimStatus transitions id from one status to another only if the row
	// still holds the expected status. It reports whether the claim won;
	// a false result means a concurrent dispatch pass got there first.
	ClaimStatus(ctx context.Context, id string, from, to Status) (bool, error)

	// SetStatus unconditionally records the outcome of a delivery attempt.
	SetStatus(ctx context.Context, id string, status Status, sentAt sql.NullTime) error
}

// TemplateRepository defines persistence for notification templates.
type TemplateRepository interface {
	List(ctx context.Context) ([]*Template, error)
	GetByID(ctx context.Context, id string) (*Template, error)
	Update(ctx context.Context, t *Template) error
}
