package transaction

import (
	"context"
	"time"
)

// Repository defines read access to the transaction ledger. The ledger is
// written by an external import process; this service never mutates it.
type Repository interface {
	// ListByAccountCategory returns every transaction with the given account
	// classification, ordered by date descending.
	ListByAccountCategory(ctx context.Context, ac AccountCategory) ([]*Transaction, error)
	// ListByAccountCategorySince restricts the listing to transactions dated
	// at or after the given instant.
	ListByAccountCategorySince(ctx context.Context, ac AccountCategory, since time.Time) ([]*Transaction, error)
}
