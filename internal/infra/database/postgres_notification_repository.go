package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"bookkeeping-notifier/internal/domain/notification"

	"github.com/lib/pq"
)

type PostgresNotificationRepository struct {
	db *sql.DB
}

func NewPostgresNotificationRepository(db *sql.DB) *PostgresNotificationRepository {
	return &PostgresNotificationRepository{db: db}
}

func (r *PostgresNotificationRepository) BulkCreate(ctx context.Context, notifications []*notification.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	txn, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction for bulk create: %w", err)
	}
	defer txn.Rollback()

	stmt, err := txn.PrepareContext(ctx, `INSERT INTO notifications
               (id, user_id, notification_type, channel, status, title, message, metadata, sent_at, created_at)
               VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NOW())`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement for bulk create: %w", err)
	}
	defer stmt.Close()

	for _, n := range notifications {
		_, err := stmt.ExecContext(ctx, n.ID, n.UserID, n.Type, n.Channel, n.Status, n.Title, n.Message, n.Metadata, n.SentAt)
		if err != nil {
			return fmt.Errorf("error executing statement for bulk create (notification for U:%s, T:%s): %w", n.UserID, n.Type, err)
		}
	}

	return txn.Commit()
}

const notificationColumns = `id, user_id, notification_type, channel, status, title, message, metadata, sent_at, created_at`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildFilter translates a ListFilter into a WHERE clause. A non-empty IDs
// list overrides every other field.
func buildFilter(f notification.ListFilter, args []any) (string, []any) {
	if len(f.IDs) > 0 {
		args = append(args, pq.Array(f.IDs))
		return fmt.Sprintf("WHERE n.id = ANY($%d)", len(args)), args
	}

	var conditions []string
	add := func(cond string, value any) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("n.status = $%d", f.Status)
	}
	if f.Type != "" {
		add("n.notification_type = $%d", f.Type)
	}
	if f.Channel != "" {
		add("n.channel = $%d", f.Channel)
	}
	if f.UserID != "" {
		add("n.user_id = $%d", f.UserID)
	}
	if f.MessageContains != "" {
		// Escape LIKE metacharacters so this is a literal substring match,
		// same as the in-memory backend.
		add("n.message ILIKE '%%' || $%d || '%%'", likeEscaper.Replace(f.MessageContains))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

func (r *PostgresNotificationRepository) List(ctx context.Context, filter notification.ListFilter) ([]*notification.Notification, error) {
	where, args := buildFilter(filter, nil)
	query := fmt.Sprintf(`SELECT %s FROM notifications n %s ORDER BY n.created_at DESC`, qualify(notificationColumns), where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*notification.Notification
	for rows.Next() {
		n := notification.Notification{}
		if err := scanNotification(rows, &n); err != nil {
			return nil, err
		}
		notifications = append(notifications, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating notification rows: %w", err)
	}
	return notifications, nil
}

func (r *PostgresNotificationRepository) ListPage(ctx context.Context, filter notification.ListFilter, page, limit int) ([]*notification.WithUser, int, error) {
	where, args := buildFilter(filter, nil)

	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM notifications n %s`, where)
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("error counting notifications: %w", err)
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit
	args = append(args, limit, offset)
	query := fmt.Sprintf(`SELECT %s, u.email, u.first_name, u.last_name
               FROM notifications n
               JOIN users u ON u.id = n.user_id
               %s
               ORDER BY n.created_at DESC
               LIMIT $%d OFFSET $%d`, qualify(notificationColumns), where, len(args)-1, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("error listing notification page: %w", err)
	}
	defer rows.Close()

	var results []*notification.WithUser
	for rows.Next() {
		nw := notification.WithUser{}
		if err := rows.Scan(
			&nw.ID, &nw.UserID, &nw.Type, &nw.Channel, &nw.Status, &nw.Title,
			&nw.Message, &nw.Metadata, &nw.SentAt, &nw.CreatedAt,
			&nw.User.Email, &nw.User.FirstName, &nw.User.LastName,
		); err != nil {
			return nil, 0, fmt.Errorf("error scanning notification page row: %w", err)
		}
		results = append(results, &nw)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating notification page rows: %w", err)
	}
	return results, total, nil
}

func (r *PostgresNotificationRepository) ClaimStatus(ctx context.Context, id string, from, to notification.Status) (bool, error) {
	query := `UPDATE notifications SET status = $1 WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, to, id, from)
	if err != nil {
		return false, fmt.Errorf("error claiming notification status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading claim result: %w", err)
	}
	return affected == 1, nil
}

func (r *PostgresNotificationRepository) SetStatus(ctx context.Context, id string, status notification.Status, sentAt sql.NullTime) error {
	query := `UPDATE notifications SET status = $1, sent_at = $2 WHERE id = $3`
	res, err := r.db.ExecContext(ctx, query, status, sentAt, id)
	if err != nil {
		return fmt.Errorf("error updating notification status: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading status update result: %w", err)
	}
	if affected == 0 {
		return ErrNotificationNotFound
	}
	return nil
}

func scanNotification(rows *sql.Rows, n *notification.Notification) error {
	if err := rows.Scan(
		&n.ID, &n.UserID, &n.Type, &n.Channel, &n.Status, &n.Title,
		&n.Message, &n.Metadata, &n.SentAt, &n.CreatedAt,
	); err != nil {
		return fmt.Errorf("error scanning notification row: %w", err)
	}
	return nil
}

// qualify prefixes each column with the notifications alias.
func qualify(columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = "n." + p
	}
	return strings.Join(parts, ", ")
}
