package rules

import (
	"context"

	"bookkeeping-notifier/internal/domain/transaction"
)

// needsMarketplaceReceipt flags likely personal-marketplace purchases above
// the threshold with no receipt attached.
func needsMarketplaceReceipt(t *transaction.Transaction) bool {
	return t.MissingReceipt() &&
		t.Amount > amountThreshold &&
		t.CategoryIn(transaction.ShoppingCategories) &&
		t.IsMarketplaceMerchant()
}

func (e *Evaluator) evaluateMarketplaceReceipts(ctx context.Context) (map[string]*Result, error) {
	txns, err := e.listBusiness(ctx)
	if err != nil {
		return nil, err
	}
	return groupMatching(txns, needsMarketplaceReceipt), nil
}
