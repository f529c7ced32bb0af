package rules

import "context"

// evaluateDailyActionItems rolls the three "missing" rules into one per-user
// digest. A user qualifies when the combined count is positive.
func (e *Evaluator) evaluateDailyActionItems(ctx context.Context) (map[string]*Result, error) {
	txns, err := e.listBusiness(ctx)
	if err != nil {
		return nil, err
	}

	type stats struct {
		missingReceipts  int
		missingNotes     int
		missingAttendees int
	}
	perUser := make(map[string]*stats)
	bump := func(id string) *stats {
		s, ok := perUser[id]
		if !ok {
			s = &stats{}
			perUser[id] = s
		}
		return s
	}

	for _, t := range txns {
		if needsMarketplaceReceipt(t) || needsSpecialCategoryReceipt(t) {
			bump(t.UserID).missingReceipts++
		}
		if needsNote(t) {
			bump(t.UserID).missingNotes++
		}
		if needsMealAttendees(t) {
			bump(t.UserID).missingAttendees++
		}
	}

	results := make(map[string]*Result, len(perUser))
	for id, s := range perUser {
		total := s.missingReceipts + s.missingNotes + s.missingAttendees
		results[id] = &Result{
			Variables: map[string]any{
				"totalActionItems": total,
				"missingReceipts":  s.missingReceipts,
				"missingNotes":     s.missingNotes,
				"missingAttendees": s.missingAttendees,
			},
			Metadata: map[string]any{
				"missingReceipts":  s.missingReceipts,
				"missingNotes":     s.missingNotes,
				"missingAttendees": s.missingAttendees,
			},
			Total: total,
		}
	}
	return results, nil
}
