// Package services composes storage, permissions, sessions and events
// into the operations the HTTP layer and the background jobs call.
// Every operation takes the acting user's ID and checks permissions
// before touching the resource, so a user cannot learn whether a budget
// exists without holding a grant on it.
package services

import (
	"context"
	"fmt"
	"time"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/log"
)

// RecurringTemplateStore is the slice of storage the scheduler needs.
type RecurringTemplateStore interface {
	ListAllRecurring(ctx context.Context) ([]core.RecurringTransaction, error)
	MaterializeOccurrences(ctx context.Context, recurringID int64, txns []core.Transaction, newCursor time.Time) ([]int64, error)
}

// RecurringProcessor turns recurring templates into concrete
// transactions. It catches up: a template whose cursor lags several
// periods behind produces one transaction per missed period in a single
// atomic batch.
type RecurringProcessor struct {
	store  RecurringTemplateStore
	events *events.Client
	logger *log.Logger
}

func NewRecurringProcessor(store RecurringTemplateStore, ev *events.Client, logger *log.Logger) *RecurringProcessor {
	return &RecurringProcessor{
		store:  store,
		events: ev,
		logger: logger.WithComponent(log.ComponentScheduler),
	}
}

// PendingOccurrences computes every occurrence of rt due at or before
// now, in date order, together with the cursor value after materializing
// them. The first due date is the start date itself when nothing has
// been materialized yet, otherwise one interval past the cursor. An
// up-to-date template yields (nil, cursor).
func PendingOccurrences(rt core.RecurringTransaction, now time.Time) ([]core.Transaction, time.Time) {
	next := rt.Start
	if !rt.Cursor.IsZero() {
		next = rt.Schedule.Next(rt.Cursor, rt.Start)
	}

	templateID := rt.ID
	cursor := rt.Cursor
	var due []core.Transaction
	for !next.After(now) {
		due = append(due, core.Transaction{
			BudgetID:    rt.BudgetID,
			CategoryID:  rt.CategoryID,
			Title:       rt.Title,
			Amount:      rt.Amount,
			Date:        next,
			CreatedBy:   rt.CreatedBy,
			RecurringID: &templateID,
		})
		cursor = next
		next = rt.Schedule.Next(next, rt.Start)
	}
	return due, cursor
}

// ProcessDue sweeps every template and materializes its pending
// occurrences. A failing template is logged and skipped so one bad row
// cannot stall the rest of the sweep. Returns the number of
// transactions created.
func (p *RecurringProcessor) ProcessDue(ctx context.Context, now time.Time) (int, error) {
	templates, err := p.store.ListAllRecurring(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring templates: %w", err)
	}

	total := 0
	for _, rt := range templates {
		due, cursor := PendingOccurrences(rt, now)
		if len(due) == 0 {
			continue
		}

		ids, err := p.store.MaterializeOccurrences(ctx, rt.ID, due, cursor)
		if err != nil {
			p.logger.ErrorContext(ctx, "materialize recurring template failed",
				"recurring_id", rt.ID,
				log.FieldBudgetID, rt.BudgetID,
				log.FieldError, err,
			)
			continue
		}
		if len(ids) == 0 {
			// Another run got there first.
			continue
		}
		total += len(ids)

		for _, id := range ids {
			if err := p.events.Publish(ctx, events.KindTransactionCreated, rt.BudgetID, id); err != nil {
				p.logger.WarnContext(ctx, "publish transaction event failed",
					log.FieldBudgetID, rt.BudgetID,
					log.FieldError, err,
				)
			}
		}

		p.logger.InfoContext(ctx, "materialized recurring occurrences",
			"recurring_id", rt.ID,
			log.FieldBudgetID, rt.BudgetID,
			log.FieldCount, len(ids),
		)
	}
	return total, nil
}
