package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"bookkeeping-notifier/internal/domain/transaction"
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

const transactionColumns = `id, user_id, amount, category, merchant_name, description, receipt_url, account_category, date, created_at`

func (r *PostgresTransactionRepository) ListByAccountCategory(ctx context.Context, ac transaction.AccountCategory) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
               FROM transactions WHERE account_category = $1
               ORDER BY date DESC`
	rows, err := r.db.QueryContext(ctx, query, ac)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions by account category: %w", err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func (r *PostgresTransactionRepository) ListByAccountCategorySince(ctx context.Context, ac transaction.AccountCategory, since time.Time) ([]*transaction.Transaction, error) {
	query := `SELECT ` + transactionColumns + `
               FROM transactions WHERE account_category = $1 AND date >= $2
               ORDER BY date DESC`
	rows, err := r.db.QueryContext(ctx, query, ac, since)
	if err != nil {
		return nil, fmt.Errorf("error listing transactions since %s: %w", since.Format(time.RFC3339), err)
	}
	defer rows.Close()
	return scanTransactions(rows)
}

func scanTransactions(rows *sql.Rows) ([]*transaction.Transaction, error) {
	var txns []*transaction.Transaction
	for rows.Next() {
		t := transaction.Transaction{}
		if err := rows.Scan(
			&t.ID, &t.UserID, &t.Amount, &t.Category, &t.MerchantName,
			&t.Description, &t.ReceiptURL, &t.AccountCategory, &t.Date, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("error scanning transaction row: %w", err)
		}
		txns = append(txns, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transaction rows: %w", err)
	}
	return txns, nil
}
