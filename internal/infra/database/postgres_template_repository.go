package database

import (
	"context"
	"database/sql"
	"fmt"

	"bookkeeping-notifier/internal/domain/notification"

	"github.com/lib/pq"
)

type PostgresTemplateRepository struct {
	db *sql.DB
}

func NewPostgresTemplateRepository(db *sql.DB) *PostgresTemplateRepository {
	return &PostgresTemplateRepository{db: db}
}

func (r *PostgresTemplateRepository) List(ctx context.Context) ([]*notification.Template, error) {
	query := `SELECT id, name, template, channels FROM notification_templates ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing notification templates: %w", err)
	}
	defer rows.Close()

	var templates []*notification.Template
	for rows.Next() {
		t := notification.Template{}
		var channels []string
		if err := rows.Scan(&t.ID, &t.Name, &t.Template, pq.Array(&channels)); err != nil {
			return nil, fmt.Errorf("error scanning template row: %w", err)
		}
		t.Channels = toChannels(channels)
		templates = append(templates, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating template rows: %w", err)
	}
	return templates, nil
}

func (r *PostgresTemplateRepository) GetByID(ctx context.Context, id string) (*notification.Template, error) {
	query := `SELECT id, name, template, channels FROM notification_templates WHERE id = $1`
	t := notification.Template{}
	var channels []string
	err := r.db.QueryRowContext(ctx, query, id).Scan(&t.ID, &t.Name, &t.Template, pq.Array(&channels))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrTemplateNotFound
		}
		return nil, fmt.Errorf("error getting notification template by ID: %w", err)
	}
	t.Channels = toChannels(channels)
	return &t, nil
}

func (r *PostgresTemplateRepository) Update(ctx context.Context, t *notification.Template) error {
	query := `UPDATE notification_templates
               SET name = $1, template = $2, channels = $3
               WHERE id = $4`
	channels := make([]string, 0, len(t.Channels))
	for _, c := range t.Channels {
		channels = append(channels, string(c))
	}
	res, err := r.db.ExecContext(ctx, query, t.Name, t.Template, pq.Array(channels), t.ID)
	if err != nil {
		return fmt.Errorf("error updating notification template: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading update result: %w", err)
	}
	if affected == 0 {
		return ErrTemplateNotFound
	}
	return nil
}

func toChannels(values []string) []notification.Channel {
	channels := make([]notification.Channel, 0, len(values))
	for _, v := range values {
		channels = append(channels, notification.Channel(v))
	}
	return channels
}
