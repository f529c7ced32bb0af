package rules

import (
	"context"

	"bookkeeping-notifier/internal/domain/transaction"
)

// needsNote flags description-sensitive transactions with no note. A null
// and an empty-string description are treated identically.
func needsNote(t *transaction.Transaction) bool {
	return t.MissingDescription() &&
		t.CategoryIn(
			transaction.ShoppingCategories,
			transaction.TravelCategories,
			transaction.EventCategories,
			[]transaction.Category{transaction.CategoryFoodAndDrink},
		)
}

func (e *Evaluator) evaluateMissingNotes(ctx context.Context) (map[string]*Result, error) {
	txns, err := e.listBusiness(ctx)
	if err != nil {
		return nil, err
	}
	return groupMatching(txns, needsNote), nil
}
