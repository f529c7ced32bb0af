package user

import "context"

// Repository defines read access to users.
type Repository interface {
	GetByID(ctx context.Context, id string) (*User, error)
	ListByIDs(ctx context.Context, ids []string) ([]*User, error)
}
