package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

func (r *Repository) CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (budget_id, category_id, title, description, amount_cents, date, created_by, recurring_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		t.BudgetID, t.CategoryID, t.Title, t.Description, t.Amount.Cents, t.Date, t.CreatedBy, t.RecurringID,
	)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Transaction{}, fmt.Errorf("transaction id: %w", err)
	}
	t.ID = id
	return t, nil
}

func (r *Repository) GetTransaction(ctx context.Context, id int64) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, budget_id, category_id, title, description, amount_cents, date, created_by, recurring_id
		 FROM transactions WHERE id = ?`, id)

	t, err := scanTransaction(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("scan transaction: %w", err)
	}
	return t, nil
}

func (r *Repository) ListTransactions(ctx context.Context, budgetID int64) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, budget_id, category_id, title, description, amount_cents, date, created_by, recurring_id
		 FROM transactions WHERE budget_id = ? ORDER BY date DESC, id DESC`,
		budgetID,
	)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	var txns []core.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// UpdateTransaction rewrites the mutable fields. The creator column is
// deliberately excluded: it is immutable once set.
func (r *Repository) UpdateTransaction(ctx context.Context, t core.Transaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET category_id = ?, title = ?, description = ?, amount_cents = ?, date = ?
		 WHERE id = ? AND budget_id = ?`,
		t.CategoryID, t.Title, t.Description, t.Amount.Cents, t.Date, t.ID, t.BudgetID,
	)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return requireRowAffected(res)
}

func (r *Repository) DeleteTransaction(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return requireRowAffected(res)
}

func scanTransaction(scan func(dest ...any) error) (core.Transaction, error) {
	var t core.Transaction
	var categoryID, recurringID sql.NullInt64
	err := scan(&t.ID, &t.BudgetID, &categoryID, &t.Title, &t.Description,
		&t.Amount.Cents, &t.Date, &t.CreatedBy, &recurringID)
	if err != nil {
		return core.Transaction{}, err
	}
	if categoryID.Valid {
		t.CategoryID = &categoryID.Int64
	}
	if recurringID.Valid {
		t.RecurringID = &recurringID.Int64
	}
	return t, nil
}
