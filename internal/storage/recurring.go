package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"tally/internal/core"
)

func (r *Repository) CreateRecurring(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO recurring_transactions
		 (budget_id, category_id, title, amount_cents, interval_unit, interval_count, start_date, cursor, created_by)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rt.BudgetID, rt.CategoryID, rt.Title, rt.Amount.Cents,
		string(rt.Schedule.Unit), rt.Schedule.Every, rt.Start, nullTime(rt.Cursor), rt.CreatedBy,
	)
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("insert recurring transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("recurring transaction id: %w", err)
	}
	rt.ID = id
	return rt, nil
}

func (r *Repository) GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, budget_id, category_id, title, amount_cents, interval_unit, interval_count, start_date, cursor, created_by
		 FROM recurring_transactions WHERE id = ?`, id)

	rt, err := scanRecurring(row.Scan)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringTransaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.RecurringTransaction{}, fmt.Errorf("scan recurring transaction: %w", err)
	}
	return rt, nil
}

func (r *Repository) ListRecurring(ctx context.Context, budgetID int64) ([]core.RecurringTransaction, error) {
	return r.queryRecurring(ctx,
		`SELECT id, budget_id, category_id, title, amount_cents, interval_unit, interval_count, start_date, cursor, created_by
		 FROM recurring_transactions WHERE budget_id = ? ORDER BY title`, budgetID)
}

// ListAllRecurring returns every template across all budgets, for the
// scheduler's periodic sweep.
func (r *Repository) ListAllRecurring(ctx context.Context) ([]core.RecurringTransaction, error) {
	return r.queryRecurring(ctx,
		`SELECT id, budget_id, category_id, title, amount_cents, interval_unit, interval_count, start_date, cursor, created_by
		 FROM recurring_transactions ORDER BY id`)
}

func (r *Repository) UpdateRecurring(ctx context.Context, rt core.RecurringTransaction) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_transactions
		 SET category_id = ?, title = ?, amount_cents = ?, interval_unit = ?, interval_count = ?, start_date = ?
		 WHERE id = ? AND budget_id = ?`,
		rt.CategoryID, rt.Title, rt.Amount.Cents,
		string(rt.Schedule.Unit), rt.Schedule.Every, rt.Start, rt.ID, rt.BudgetID,
	)
	if err != nil {
		return fmt.Errorf("update recurring transaction: %w", err)
	}
	return requireRowAffected(res)
}

func (r *Repository) DeleteRecurring(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring transaction: %w", err)
	}
	return requireRowAffected(res)
}

// MaterializeOccurrences inserts the given transactions and advances
// the template's cursor in one transaction, returning the new row ids.
// The cursor guard makes a retry with a stale cursor a no-op instead of
// a duplicate batch: if another run already advanced the cursor to or
// past newCursor, nothing is written.
func (r *Repository) MaterializeOccurrences(ctx context.Context, recurringID int64, txns []core.Transaction, newCursor time.Time) ([]int64, error) {
	var ids []int64
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE recurring_transactions SET cursor = ?
			 WHERE id = ? AND (cursor IS NULL OR cursor < ?)`,
			newCursor, recurringID, newCursor,
		)
		if err != nil {
			return fmt.Errorf("advance cursor: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		if n == 0 {
			// Already materialized by a previous run.
			return nil
		}

		for _, t := range txns {
			res, err := tx.ExecContext(ctx,
				`INSERT INTO transactions (budget_id, category_id, title, description, amount_cents, date, created_by, recurring_id)
				 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
				t.BudgetID, t.CategoryID, t.Title, t.Description, t.Amount.Cents, t.Date, t.CreatedBy, t.RecurringID,
			)
			if err != nil {
				return fmt.Errorf("insert materialized transaction: %w", err)
			}
			id, err := res.LastInsertId()
			if err != nil {
				return fmt.Errorf("materialized transaction id: %w", err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *Repository) queryRecurring(ctx context.Context, query string, args ...any) ([]core.RecurringTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query recurring transactions: %w", err)
	}
	defer rows.Close()

	var templates []core.RecurringTransaction
	for rows.Next() {
		rt, err := scanRecurring(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan recurring transaction: %w", err)
		}
		templates = append(templates, rt)
	}
	return templates, rows.Err()
}

func scanRecurring(scan func(dest ...any) error) (core.RecurringTransaction, error) {
	var rt core.RecurringTransaction
	var categoryID sql.NullInt64
	var cursor sql.NullTime
	var unit string
	err := scan(&rt.ID, &rt.BudgetID, &categoryID, &rt.Title, &rt.Amount.Cents,
		&unit, &rt.Schedule.Every, &rt.Start, &cursor, &rt.CreatedBy)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.Schedule.Unit, err = core.ParseIntervalUnit(unit)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if categoryID.Valid {
		rt.CategoryID = &categoryID.Int64
	}
	if cursor.Valid {
		rt.Cursor = cursor.Time
	}
	return rt, nil
}

func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}
