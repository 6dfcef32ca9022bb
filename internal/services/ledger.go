package services

import (
	"context"
	"errors"
	"time"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/log"
	"tally/internal/permissions"
)

// LedgerStore persists the records that live inside a budget.
type LedgerStore interface {
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
	GetCategory(ctx context.Context, id int64) (core.Category, error)
	ListCategories(ctx context.Context, budgetID int64) ([]core.Category, error)
	UpdateCategory(ctx context.Context, c core.Category) error
	DeleteCategory(ctx context.Context, id int64) error

	CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
	GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	ListTransactions(ctx context.Context, budgetID int64) ([]core.Transaction, error)
	UpdateTransaction(ctx context.Context, t core.Transaction) error
	DeleteTransaction(ctx context.Context, id int64) error

	CreateRecurring(ctx context.Context, rt core.RecurringTransaction) (core.RecurringTransaction, error)
	GetRecurring(ctx context.Context, id int64) (core.RecurringTransaction, error)
	ListRecurring(ctx context.Context, budgetID int64) ([]core.RecurringTransaction, error)
	UpdateRecurring(ctx context.Context, rt core.RecurringTransaction) error
	DeleteRecurring(ctx context.Context, id int64) error
}

// LedgerService handles categories, transactions and recurring
// templates. Reads need READ on the owning budget, mutations need
// MANAGE; either failing surfaces as ErrNotFound so unauthorized
// callers cannot probe for existence.
type LedgerService struct {
	store    LedgerStore
	registry *permissions.Registry
	events   *events.Client
	logger   *log.Logger
}

func NewLedgerService(store LedgerStore, registry *permissions.Registry, ev *events.Client, logger *log.Logger) *LedgerService {
	return &LedgerService{
		store:    store,
		registry: registry,
		events:   ev,
		logger:   logger.WithComponent(log.ComponentApp),
	}
}

func (s *LedgerService) CreateCategory(ctx context.Context, userID int64, c core.Category) (core.Category, error) {
	if err := s.authorize(ctx, userID, c.BudgetID, core.LevelManage); err != nil {
		return core.Category{}, err
	}
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	return s.store.CreateCategory(ctx, c)
}

func (s *LedgerService) GetCategory(ctx context.Context, userID, categoryID int64) (core.Category, error) {
	c, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.authorize(ctx, userID, c.BudgetID, core.LevelRead); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *LedgerService) ListCategories(ctx context.Context, userID, budgetID int64) ([]core.Category, error) {
	if err := s.authorize(ctx, userID, budgetID, core.LevelRead); err != nil {
		return nil, err
	}
	return s.store.ListCategories(ctx, budgetID)
}

func (s *LedgerService) UpdateCategory(ctx context.Context, userID int64, c core.Category) (core.Category, error) {
	stored, err := s.store.GetCategory(ctx, c.ID)
	if err != nil {
		return core.Category{}, err
	}
	if err := s.authorize(ctx, userID, stored.BudgetID, core.LevelManage); err != nil {
		return core.Category{}, err
	}
	// A category cannot move between budgets.
	c.BudgetID = stored.BudgetID
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := s.store.UpdateCategory(ctx, c); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s *LedgerService) DeleteCategory(ctx context.Context, userID, categoryID int64) error {
	stored, err := s.store.GetCategory(ctx, categoryID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, userID, stored.BudgetID, core.LevelManage); err != nil {
		return err
	}
	return s.store.DeleteCategory(ctx, categoryID)
}

func (s *LedgerService) CreateTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	if err := s.authorize(ctx, userID, t.BudgetID, core.LevelManage); err != nil {
		return core.Transaction{}, err
	}
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.requireCategory(ctx, t.CategoryID, t.BudgetID); err != nil {
		return core.Transaction{}, err
	}
	t.CreatedBy = userID
	t.RecurringID = nil

	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, events.KindTransactionCreated, created.BudgetID, created.ID)
	return created, nil
}

func (s *LedgerService) GetTransaction(ctx context.Context, userID, txnID int64) (core.Transaction, error) {
	t, err := s.store.GetTransaction(ctx, txnID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.authorize(ctx, userID, t.BudgetID, core.LevelRead); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *LedgerService) ListTransactions(ctx context.Context, userID, budgetID int64) ([]core.Transaction, error) {
	if err := s.authorize(ctx, userID, budgetID, core.LevelRead); err != nil {
		return nil, err
	}
	return s.store.ListTransactions(ctx, budgetID)
}

// UpdateTransaction edits a transaction in place. The creator and the
// owning budget never change, whatever the request carries.
func (s *LedgerService) UpdateTransaction(ctx context.Context, userID int64, t core.Transaction) (core.Transaction, error) {
	stored, err := s.store.GetTransaction(ctx, t.ID)
	if err != nil {
		return core.Transaction{}, err
	}
	if err := s.authorize(ctx, userID, stored.BudgetID, core.LevelManage); err != nil {
		return core.Transaction{}, err
	}
	t.BudgetID = stored.BudgetID
	t.CreatedBy = stored.CreatedBy
	t.RecurringID = stored.RecurringID
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.requireCategory(ctx, t.CategoryID, t.BudgetID); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, userID, txnID int64) error {
	stored, err := s.store.GetTransaction(ctx, txnID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, userID, stored.BudgetID, core.LevelManage); err != nil {
		return err
	}
	if err := s.store.DeleteTransaction(ctx, txnID); err != nil {
		return err
	}
	s.publish(ctx, events.KindTransactionDeleted, stored.BudgetID, txnID)
	return nil
}

func (s *LedgerService) CreateRecurring(ctx context.Context, userID int64, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	if err := s.authorize(ctx, userID, rt.BudgetID, core.LevelManage); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.requireCategory(ctx, rt.CategoryID, rt.BudgetID); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.CreatedBy = userID
	rt.Cursor = time.Time{}
	return s.store.CreateRecurring(ctx, rt)
}

func (s *LedgerService) GetRecurring(ctx context.Context, userID, recurringID int64) (core.RecurringTransaction, error) {
	rt, err := s.store.GetRecurring(ctx, recurringID)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.authorize(ctx, userID, rt.BudgetID, core.LevelRead); err != nil {
		return core.RecurringTransaction{}, err
	}
	return rt, nil
}

func (s *LedgerService) ListRecurring(ctx context.Context, userID, budgetID int64) ([]core.RecurringTransaction, error) {
	if err := s.authorize(ctx, userID, budgetID, core.LevelRead); err != nil {
		return nil, err
	}
	return s.store.ListRecurring(ctx, budgetID)
}

// UpdateRecurring edits a template. The cursor is the scheduler's
// alone: edits keep the stored value, so already materialized periods
// are never re-run.
func (s *LedgerService) UpdateRecurring(ctx context.Context, userID int64, rt core.RecurringTransaction) (core.RecurringTransaction, error) {
	stored, err := s.store.GetRecurring(ctx, rt.ID)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.authorize(ctx, userID, stored.BudgetID, core.LevelManage); err != nil {
		return core.RecurringTransaction{}, err
	}
	rt.BudgetID = stored.BudgetID
	rt.CreatedBy = stored.CreatedBy
	rt.Cursor = stored.Cursor
	if err := rt.Validate(); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.requireCategory(ctx, rt.CategoryID, rt.BudgetID); err != nil {
		return core.RecurringTransaction{}, err
	}
	if err := s.store.UpdateRecurring(ctx, rt); err != nil {
		return core.RecurringTransaction{}, err
	}
	return rt, nil
}

// DeleteRecurring removes a template. Transactions it already
// materialized stay, with their recurring_id cleared by the schema.
func (s *LedgerService) DeleteRecurring(ctx context.Context, userID, recurringID int64) error {
	stored, err := s.store.GetRecurring(ctx, recurringID)
	if err != nil {
		return err
	}
	if err := s.authorize(ctx, userID, stored.BudgetID, core.LevelManage); err != nil {
		return err
	}
	return s.store.DeleteRecurring(ctx, recurringID)
}

// requireCategory checks that an optional category reference points
// inside budgetID. Missing and foreign categories get the same answer,
// so the reference cannot be used to probe other budgets.
func (s *LedgerService) requireCategory(ctx context.Context, categoryID *int64, budgetID int64) error {
	if categoryID == nil {
		return nil
	}
	c, err := s.store.GetCategory(ctx, *categoryID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Invalid("unknown category")
	}
	if err != nil {
		return err
	}
	if c.BudgetID != budgetID {
		return core.Invalid("unknown category")
	}
	return nil
}

func (s *LedgerService) authorize(ctx context.Context, userID, budgetID int64, required core.PermissionLevel) error {
	ok, err := s.registry.Authorize(ctx, userID, budgetID, required)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrNotFound
	}
	return nil
}

func (s *LedgerService) publish(ctx context.Context, kind string, budgetID, entityID int64) {
	if err := s.events.Publish(ctx, kind, budgetID, entityID); err != nil {
		s.logger.WarnContext(ctx, "publish ledger event failed",
			"kind", kind,
			log.FieldBudgetID, budgetID,
			log.FieldError, err,
		)
	}
}
