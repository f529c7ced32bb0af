// Package memory provides in-memory implementations of the domain
// repositories. They mirror the postgres repositories' semantics and back
// the service and handler tests.
package memory

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"bookkeeping-notifier/internal/domain/notification"
	"bookkeeping-notifier/internal/domain/transaction"
	"bookkeeping-notifier/internal/domain/user"
	idb "bookkeeping-notifier/internal/infra/database"
)

// The database package's sentinel errors are shared so callers can test
// against one set regardless of backend.
var (
	ErrUserNotFound         = idb.ErrUserNotFound
	ErrTemplateNotFound     = idb.ErrTemplateNotFound
	ErrNotificationNotFound = idb.ErrNotificationNotFound
)

// --- Transactions ---

type TransactionRepository struct {
	mu   sync.RWMutex
	txns []*transaction.Transaction
}

func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{}
}

func (r *TransactionRepository) Add(txns ...*transaction.Transaction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.txns = append(r.txns, txns...)
}

func (r *TransactionRepository) ListByAccountCategory(_ context.Context, ac transaction.AccountCategory) ([]*transaction.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*transaction.Transaction
	for _, t := range r.txns {
		if t.AccountCategory == ac {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *TransactionRepository) ListByAccountCategorySince(ctx context.Context, ac transaction.AccountCategory, since time.Time) ([]*transaction.Transaction, error) {
	all, err := r.ListByAccountCategory(ctx, ac)
	if err != nil {
		return nil, err
	}
	var out []*transaction.Transaction
	for _, t := range all {
		if !t.Date.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

// --- Users ---

type UserRepository struct {
	mu    sync.RWMutex
	users map[string]*user.User
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]*user.User)}
}

func (r *UserRepository) Add(users ...*user.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		r.users[u.ID] = u
	}
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

func (r *UserRepository) ListByIDs(_ context.Context, ids []string) ([]*user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*user.User
	for _, id := range ids {
		if u, ok := r.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

// --- Templates ---

type TemplateRepository struct {
	mu        sync.RWMutex
	templates map[string]*notification.Template
}

func NewTemplateRepository() *TemplateRepository {
	return &TemplateRepository{templates: make(map[string]*notification.Template)}
}

func (r *TemplateRepository) Put(templates ...*notification.Template) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range templates {
		r.templates[t.ID] = t
	}
}

func (r *TemplateRepository) List(_ context.Context) ([]*notification.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*notification.Template, 0, len(r.templates))
	for _, t := range r.templates {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id string) (*notification.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.templates[id]
	if !ok {
		return nil, ErrTemplateNotFound
	}
	return t, nil
}

func (r *TemplateRepository) Update(_ context.Context, t *notification.Template) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.templates[t.ID]; !ok {
		return ErrTemplateNotFound
	}
	r.templates[t.ID] = t
	return nil
}

// --- Notifications ---

type NotificationRepository struct {
	mu            sync.RWMutex
	notifications map[string]*notification.Notification
	users         *UserRepository // joined summaries for ListPage
	seq           int             // creation order tiebreaker
	order         map[string]int
}

// NewNotificationRepository joins paginated listings against the given user
// repository, matching the SQL JOIN in the postgres implementation.
func NewNotificationRepository(users *UserRepository) *NotificationRepository {
	return &NotificationRepository{
		notifications: make(map[string]*notification.Notification),
		users:         users,
		order:         make(map[string]int),
	}
}

func (r *NotificationRepository) BulkCreate(_ context.Context, notifications []*notification.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range notifications {
		if n.CreatedAt.IsZero() {
			n.CreatedAt = time.Now()
		}
		r.seq++
		r.order[n.ID] = r.seq
		r.notifications[n.ID] = n
	}
	return nil
}

// Get is a test helper not present on the domain interface.
func (r *NotificationRepository) Get(id string) (*notification.Notification, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notifications[id]
	return n, ok
}

func (r *NotificationRepository) matches(n *notification.Notification, f notification.ListFilter) bool {
	if len(f.IDs) > 0 {
		for _, id := range f.IDs {
			if n.ID == id {
				return true
			}
		}
		return false
	}
	if f.Status != "" && n.Status != f.Status {
		return false
	}
	if f.Type != "" && n.Type != f.Type {
		return false
	}
	if f.Channel != "" && n.Channel != f.Channel {
		return false
	}
	if f.UserID != "" && n.UserID != f.UserID {
		return false
	}
	if f.MessageContains != "" &&
		!strings.Contains(strings.ToLower(n.Message), strings.ToLower(f.MessageContains)) {
		return false
	}
	return true
}

func (r *NotificationRepository) list(f notification.ListFilter) []*notification.Notification {
	var out []*notification.Notification
	for _, n := range r.notifications {
		if r.matches(n, f) {
			out = append(out, n)
		}
	}
	// Newest first, like the postgres ORDER BY created_at DESC.
	sort.Slice(out, func(i, j int) bool { return r.order[out[i].ID] > r.order[out[j].ID] })
	return out
}

func (r *NotificationRepository) List(_ context.Context, f notification.ListFilter) ([]*notification.Notification, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.list(f), nil
}

func (r *NotificationRepository) ListPage(ctx context.Context, f notification.ListFilter, page, limit int) ([]*notification.WithUser, int, error) {
	r.mu.RLock()
	matched := r.list(f)
	r.mu.RUnlock()

	total := len(matched)
	if page < 1 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	var out []*notification.WithUser
	for _, n := range matched[start:end] {
		nw := &notification.WithUser{Notification: *n}
		if u, err := r.users.GetByID(ctx, n.UserID); err == nil {
			nw.User = notification.UserSummary{Email: u.Email, FirstName: u.FirstName, LastName: u.LastName}
		}
		out = append(out, nw)
	}
	return out, total, nil
}

func (r *NotificationRepository) ClaimStatus(_ context.Context, id string, from, to notification.Status) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok || n.Status != from {
		return false, nil
	}
	n.Status = to
	return true, nil
}

func (r *NotificationRepository) SetStatus(_ context.Context, id string, status notification.Status, sentAt sql.NullTime) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.notifications[id]
	if !ok {
		return ErrNotificationNotFound
	}
	n.Status = status
	n.SentAt = sentAt
	return nil
}
