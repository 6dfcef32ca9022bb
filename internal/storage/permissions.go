package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"tally/internal/core"
)

// PermissionFilter narrows FindPermissions by user, budgets, or both.
// A nil/empty field means "don't filter on this key".
type PermissionFilter struct {
	UserID    *int64
	BudgetIDs []int64
}

func (r *Repository) FindPermissions(ctx context.Context, f PermissionFilter) ([]core.UserPermission, error) {
	query := `SELECT user_id, budget_id, level FROM user_permissions`
	var clauses []string
	var args []any

	if f.UserID != nil {
		clauses = append(clauses, `user_id = ?`)
		args = append(args, *f.UserID)
	}
	if len(f.BudgetIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?,", len(f.BudgetIDs)), ",")
		clauses = append(clauses, `budget_id IN (`+placeholders+`)`)
		for _, id := range f.BudgetIDs {
			args = append(args, id)
		}
	}
	if len(clauses) > 0 {
		query += ` WHERE ` + strings.Join(clauses, ` AND `)
	}
	query += ` ORDER BY budget_id, user_id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query permissions: %w", err)
	}
	defer rows.Close()

	var perms []core.UserPermission
	for rows.Next() {
		var p core.UserPermission
		var level string
		if err := rows.Scan(&p.UserID, &p.BudgetID, &level); err != nil {
			return nil, fmt.Errorf("scan permission: %w", err)
		}
		if p.Level, err = core.ParseLevel(level); err != nil {
			return nil, fmt.Errorf("permission for user %d on budget %d: %w", p.UserID, p.BudgetID, err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ListBudgetPermissions returns every grant on one budget.
func (r *Repository) ListBudgetPermissions(ctx context.Context, budgetID int64) ([]core.UserPermission, error) {
	return r.FindPermissions(ctx, PermissionFilter{BudgetIDs: []int64{budgetID}})
}

// ListUserPermissions returns every grant one user holds.
func (r *Repository) ListUserPermissions(ctx context.Context, userID int64) ([]core.UserPermission, error) {
	return r.FindPermissions(ctx, PermissionFilter{UserID: &userID})
}

func (r *Repository) GetPermission(ctx context.Context, userID, budgetID int64) (core.UserPermission, error) {
	var level string
	err := r.db.QueryRowContext(ctx,
		`SELECT level FROM user_permissions WHERE user_id = ? AND budget_id = ?`,
		userID, budgetID,
	).Scan(&level)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserPermission{}, core.ErrNotFound
	}
	if err != nil {
		return core.UserPermission{}, fmt.Errorf("scan permission: %w", err)
	}

	parsed, err := core.ParseLevel(level)
	if err != nil {
		return core.UserPermission{}, err
	}
	return core.UserPermission{UserID: userID, BudgetID: budgetID, Level: parsed}, nil
}

// SavePermission inserts or replaces the unique (user, budget) grant.
func (r *Repository) SavePermission(ctx context.Context, p core.UserPermission) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_permissions (user_id, budget_id, level) VALUES (?, ?, ?)
		 ON CONFLICT(user_id, budget_id) DO UPDATE SET level = excluded.level`,
		p.UserID, p.BudgetID, p.Level.String(),
	)
	if err != nil {
		return fmt.Errorf("save permission: %w", err)
	}
	return nil
}

func (r *Repository) DeletePermission(ctx context.Context, userID, budgetID int64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM user_permissions WHERE user_id = ? AND budget_id = ?`,
		userID, budgetID,
	)
	if err != nil {
		return fmt.Errorf("delete permission: %w", err)
	}
	return requireRowAffected(res)
}
