package rules

import (
	"context"

	"bookkeeping-notifier/internal/domain/transaction"
)

// needsSpecialCategoryReceipt applies the stricter receipt rules: travel and
// transportation always need a receipt; food-and-drink and event categories
// need one above the threshold.
func needsSpecialCategoryReceipt(t *transaction.Transaction) bool {
	if !t.MissingReceipt() {
		return false
	}
	switch {
	case t.CategoryIn(transaction.TravelCategories):
		return true
	case t.Category == transaction.CategoryFoodAndDrink && t.Amount > amountThreshold:
		return true
	case t.CategoryIn(transaction.EventCategories) && t.Amount > amountThreshold:
		return true
	}
	return false
}

func (e *Evaluator) evaluateSpecialCategoryReceipts(ctx context.Context) (map[string]*Result, error) {
	txns, err := e.listBusiness(ctx)
	if err != nil {
		return nil, err
	}
	return groupMatching(txns, needsSpecialCategoryReceipt), nil
}
