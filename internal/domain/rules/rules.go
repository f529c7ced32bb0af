// Package rules evaluates the fixed eligibility rules that decide which users
// receive which notification. Each rule is a predicate over business
// transactions plus a per-user aggregation; predicates live in domain code so
// new categories and channels fail loudly at compile time.
package rules

import (
	"context"
	"fmt"
	"time"

	"bookkeeping-notifier/internal/domain/transaction"
	"bookkeeping-notifier/internal/domain/user"
)

// Type identifies one of the six built-in notification rules. Values double
// as template ids.
type Type string

const (
	TypeDailyActionItems       Type = "digest_daily_action_items"
	TypeWeeklySummary          Type = "digest_weekly_summary"
	TypeMissingNotes           Type = "notes_needed_general"
	TypeMealAttendees          Type = "notes_needed_meal_attendees"
	TypeMarketplaceReceipt     Type = "receipt_needed_marketplace"
	TypeSpecialCategoryReceipt Type = "receipt_needed_special_category"
)

// All lists every rule type, in the order the dashboard presents them.
var All = []Type{
	TypeDailyActionItems,
	TypeWeeklySummary,
	TypeMissingNotes,
	TypeMealAttendees,
	TypeMarketplaceReceipt,
	TypeSpecialCategoryReceipt,
}

// ParseType validates a notification type key from a request or a scheduler
// payload.
func ParseType(s string) (Type, error) {
	for _, t := range All {
		if Type(s) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown notification type: %q", s)
}

// amountThreshold is the dollar cutoff shared by the receipt and attendee
// rules.
const amountThreshold = 25

// Result is one user's evaluation outcome. Total is the qualifying magnitude;
// users with Total == 0 get no notification.
type Result struct {
	// Variables feed template interpolation (userName is added later by the
	// materializer, which knows the user record).
	Variables map[string]any
	// Metadata is persisted verbatim on the notification row.
	Metadata map[string]any
	// TransactionIDs lists the qualifying ledger rows, where applicable.
	TransactionIDs []string
	// DeviceToken is the user's push target, empty when none is registered.
	DeviceToken string
	Total       int
}

// Evaluator runs rule evaluations against the ledger.
type Evaluator struct {
	transactions transaction.Repository
	users        user.Repository
	now          func() time.Time
}

func NewEvaluator(tr transaction.Repository, ur user.Repository) *Evaluator {
	return &Evaluator{transactions: tr, users: ur, now: time.Now}
}

// Evaluate computes the per-user results for one rule type. A store error
// aborts the whole evaluation; partial results are never returned.
func (e *Evaluator) Evaluate(ctx context.Context, t Type) (map[string]*Result, error) {
	var (
		results map[string]*Result
		err     error
	)
	switch t {
	case TypeMarketplaceReceipt:
		results, err = e.evaluateMarketplaceReceipts(ctx)
	case TypeSpecialCategoryReceipt:
		results, err = e.evaluateSpecialCategoryReceipts(ctx)
	case TypeMissingNotes:
		results, err = e.evaluateMissingNotes(ctx)
	case TypeMealAttendees:
		results, err = e.evaluateMealAttendees(ctx)
	case TypeDailyActionItems:
		results, err = e.evaluateDailyActionItems(ctx)
	case TypeWeeklySummary:
		results, err = e.evaluateWeeklySummary(ctx)
	default:
		return nil, fmt.Errorf("unknown notification type: %q", t)
	}
	if err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", t, err)
	}

	if err := e.attachDeviceTokens(ctx, results); err != nil {
		return nil, fmt.Errorf("evaluate %s: %w", t, err)
	}

	// Digest metadata echoes the device token, matching what the dashboard
	// displays for aggregate notifications.
	if t == TypeDailyActionItems || t == TypeWeeklySummary {
		for _, r := range results {
			if r.DeviceToken != "" {
				r.Metadata["deviceToken"] = r.DeviceToken
			}
		}
	}

	return results, nil
}

// listBusiness fetches the business-classified slice of the ledger. Every
// rule only ever inspects business transactions.
func (e *Evaluator) listBusiness(ctx context.Context) ([]*transaction.Transaction, error) {
	return e.transactions.ListByAccountCategory(ctx, transaction.AccountBusiness)
}

// groupMatching buckets qualifying transactions by user and builds the
// standard count/transactionIds result shape shared by the four list rules.
func groupMatching(txns []*transaction.Transaction, match func(*transaction.Transaction) bool) map[string]*Result {
	results := make(map[string]*Result)
	for _, t := range txns {
		if !match(t) {
			continue
		}
		r, ok := results[t.UserID]
		if !ok {
			r = &Result{}
			results[t.UserID] = r
		}
		r.TransactionIDs = append(r.TransactionIDs, t.ID)
		r.Total++
	}
	for _, r := range results {
		r.Variables = map[string]any{"count": r.Total}
		r.Metadata = map[string]any{"count": r.Total, "transactionIds": r.TransactionIDs}
	}
	return results
}

// attachDeviceTokens resolves push targets for every user in the result set.
func (e *Evaluator) attachDeviceTokens(ctx context.Context, results map[string]*Result) error {
	if len(results) == 0 {
		return nil
	}
	ids := make([]string, 0, len(results))
	for id := range results {
		ids = append(ids, id)
	}
	users, err := e.users.ListByIDs(ctx, ids)
	if err != nil {
		return fmt.Errorf("list users for device tokens: %w", err)
	}
	for _, u := range users {
		if r, ok := results[u.ID]; ok && u.DeviceToken.Valid {
			r.DeviceToken = u.DeviceToken.String
		}
	}
	return nil
}
