package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tally/internal/core"
)

// CreateBudget inserts the budget and its initial permission grants in
// one transaction, so a budget can never exist without an owner.
func (r *Repository) CreateBudget(ctx context.Context, b core.Budget, grants []core.UserPermission) (core.Budget, error) {
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO budgets (name, description) VALUES (?, ?)`,
			b.Name, b.Description,
		)
		if err != nil {
			return fmt.Errorf("insert budget: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("budget id: %w", err)
		}
		b.ID = id

		for _, g := range grants {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO user_permissions (user_id, budget_id, level) VALUES (?, ?, ?)
				 ON CONFLICT(user_id, budget_id) DO UPDATE SET level = excluded.level`,
				g.UserID, b.ID, g.Level.String(),
			); err != nil {
				return fmt.Errorf("insert permission: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return core.Budget{}, err
	}
	return b, nil
}

func (r *Repository) GetBudget(ctx context.Context, id int64) (core.Budget, error) {
	var b core.Budget
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, description, created_at FROM budgets WHERE id = ?`, id,
	).Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Budget{}, core.ErrNotFound
	}
	if err != nil {
		return core.Budget{}, fmt.Errorf("scan budget: %w", err)
	}
	return b, nil
}

func (r *Repository) ListBudgetsByIDs(ctx context.Context, ids []int64) ([]core.Budget, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, description, created_at FROM budgets WHERE id IN (`+placeholders+`) ORDER BY name`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []core.Budget
	for rows.Next() {
		var b core.Budget
		if err := rows.Scan(&b.ID, &b.Name, &b.Description, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

func (r *Repository) UpdateBudget(ctx context.Context, b core.Budget) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE budgets SET name = ?, description = ? WHERE id = ?`,
		b.Name, b.Description, b.ID,
	)
	if err != nil {
		return fmt.Errorf("update budget: %w", err)
	}
	return requireRowAffected(res)
}

// DeleteBudget removes the budget. Categories, transactions, recurring
// templates and permissions go with it via ON DELETE CASCADE.
func (r *Repository) DeleteBudget(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete budget: %w", err)
	}
	return requireRowAffected(res)
}
