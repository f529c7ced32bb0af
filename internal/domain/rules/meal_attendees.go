package rules

import (
	"context"
	"strings"

	"bookkeeping-notifier/internal/domain/transaction"
)

// attendeeMarker is the literal a meal description must carry to count as
// tagged. The match is case-insensitive; a missing description never
// contains it.
const attendeeMarker = "attendee"

// needsMealAttendees flags meal expenses at or above the threshold whose
// description does not name the attendees.
func needsMealAttendees(t *transaction.Transaction) bool {
	if t.Amount < amountThreshold || t.Category != transaction.CategoryFoodAndDrink {
		return false
	}
	if t.MissingDescription() {
		return true
	}
	return !strings.Contains(strings.ToLower(t.Description.String), attendeeMarker)
}

func (e *Evaluator) evaluateMealAttendees(ctx context.Context) (map[string]*Result, error) {
	txns, err := e.listBusiness(ctx)
	if err != nil {
		return nil, err
	}
	return groupMatching(txns, needsMealAttendees), nil
}
