package rules

import (
	"context"

	"bookkeeping-notifier/internal/domain/transaction"
)

// weeklyIncomplete is the simplified violation check used by the weekly
// digest: any missing receipt per the receipt rules (without the marketplace
// merchant refinement) or any missing note.
func weeklyIncomplete(t *transaction.Transaction) bool {
	if t.MissingReceipt() {
		if t.CategoryIn(transaction.TravelCategories) {
			return true
		}
		if t.Amount > amountThreshold &&
			t.CategoryIn(
				transaction.ShoppingCategories,
				transaction.EventCategories,
				[]transaction.Category{transaction.CategoryFoodAndDrink},
			) {
			return true
		}
	}
	return needsNote(t)
}

// evaluateWeeklySummary counts a user's business transactions over the
// trailing seven days and how many of them violate the receipt or note
// rules. Users with no activity in the window get nothing.
func (e *Evaluator) evaluateWeeklySummary(ctx context.Context) (map[string]*Result, error) {
	since := e.now().AddDate(0, 0, -7)
	txns, err := e.transactions.ListByAccountCategorySince(ctx, transaction.AccountBusiness, since)
	if err != nil {
		return nil, err
	}

	type stats struct {
		total      int
		incomplete int
	}
	perUser := make(map[string]*stats)
	for _, t := range txns {
		s, ok := perUser[t.UserID]
		if !ok {
			s = &stats{}
			perUser[t.UserID] = s
		}
		s.total++
		if weeklyIncomplete(t) {
			s.incomplete++
		}
	}

	results := make(map[string]*Result, len(perUser))
	for id, s := range perUser {
		results[id] = &Result{
			Variables: map[string]any{
				"totalWeeklyTransactions": s.total,
				"incompleteTransactions":  s.incomplete,
			},
			Metadata: map[string]any{
				"totalWeeklyTransactions": s.total,
				"incompleteTransactions":  s.incomplete,
			},
			Total: s.total,
		}
	}
	return results, nil
}
