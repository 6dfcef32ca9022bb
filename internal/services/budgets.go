package services

import (
	"context"
	"errors"
	"fmt"

	"tally/internal/core"
	"tally/internal/events"
	"tally/internal/log"
	"tally/internal/permissions"
)

// BudgetStore persists budgets. GetUser is here so grant targets can be
// validated before they hit the foreign key.
type BudgetStore interface {
	CreateBudget(ctx context.Context, b core.Budget, grants []core.UserPermission) (core.Budget, error)
	GetBudget(ctx context.Context, id int64) (core.Budget, error)
	ListBudgetsByIDs(ctx context.Context, ids []int64) ([]core.Budget, error)
	UpdateBudget(ctx context.Context, b core.Budget) error
	DeleteBudget(ctx context.Context, id int64) error
	GetUser(ctx context.Context, id int64) (core.User, error)
}

// BudgetWithUsers is a budget together with its grants, which every
// budget read returns so clients can render who has access.
type BudgetWithUsers struct {
	Budget core.Budget
	Users  []core.UserPermission
}

// BudgetService owns the budget lifecycle. Access checks come first on
// every operation: a user without a grant gets ErrNotFound whether or
// not the budget exists.
type BudgetService struct {
	store    BudgetStore
	registry *permissions.Registry
	events   *events.Client
	logger   *log.Logger
}

func NewBudgetService(store BudgetStore, registry *permissions.Registry, ev *events.Client, logger *log.Logger) *BudgetService {
	return &BudgetService{
		store:    store,
		registry: registry,
		events:   ev,
		logger:   logger.WithComponent(log.ComponentApp),
	}
}

// Create stores a new budget with its initial grants. The creator
// becomes OWNER unless the requested grants already name them, and the
// final grant set must contain at least one OWNER.
func (s *BudgetService) Create(ctx context.Context, userID int64, b core.Budget, requested []core.UserPermission) (BudgetWithUsers, error) {
	if err := b.Validate(); err != nil {
		return BudgetWithUsers{}, err
	}

	grants := permissions.InitialGrants(userID, requested)
	if !hasOwner(grants) {
		return BudgetWithUsers{}, core.ErrLastOwner
	}
	for _, g := range grants {
		if g.UserID == userID {
			continue
		}
		if err := s.requireUser(ctx, g.UserID); err != nil {
			return BudgetWithUsers{}, err
		}
	}

	created, err := s.store.CreateBudget(ctx, b, grants)
	if err != nil {
		return BudgetWithUsers{}, fmt.Errorf("create budget: %w", err)
	}
	s.registry.Invalidate(created.ID)

	for i := range grants {
		grants[i].BudgetID = created.ID
	}
	s.logger.InfoContext(ctx, "budget created",
		log.FieldBudgetID, created.ID,
		log.FieldUserID, userID,
	)
	return BudgetWithUsers{Budget: created, Users: grants}, nil
}

// Get returns a budget with its grants. Requires READ.
func (s *BudgetService) Get(ctx context.Context, userID, budgetID int64) (BudgetWithUsers, error) {
	if err := s.authorize(ctx, userID, budgetID, core.LevelRead); err != nil {
		return BudgetWithUsers{}, err
	}
	b, err := s.store.GetBudget(ctx, budgetID)
	if err != nil {
		return BudgetWithUsers{}, err
	}
	users, err := s.registry.BudgetPermissions(ctx, budgetID)
	if err != nil {
		return BudgetWithUsers{}, err
	}
	return BudgetWithUsers{Budget: b, Users: users}, nil
}

// List returns every budget the user holds a grant on, each with its
// full grant set.
func (s *BudgetService) List(ctx context.Context, userID int64) ([]BudgetWithUsers, error) {
	grants, err := s.registry.UserPermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(grants) == 0 {
		return nil, nil
	}

	ids := make([]int64, 0, len(grants))
	for _, g := range grants {
		ids = append(ids, g.BudgetID)
	}
	budgets, err := s.store.ListBudgetsByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]BudgetWithUsers, 0, len(budgets))
	for _, b := range budgets {
		users, err := s.registry.BudgetPermissions(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, BudgetWithUsers{Budget: b, Users: users})
	}
	return out, nil
}

// Update changes a budget's name and description. Requires MANAGE.
func (s *BudgetService) Update(ctx context.Context, userID int64, b core.Budget) (BudgetWithUsers, error) {
	if err := s.authorize(ctx, userID, b.ID, core.LevelManage); err != nil {
		return BudgetWithUsers{}, err
	}
	if err := b.Validate(); err != nil {
		return BudgetWithUsers{}, err
	}
	if err := s.store.UpdateBudget(ctx, b); err != nil {
		return BudgetWithUsers{}, err
	}
	return s.Get(ctx, userID, b.ID)
}

// Delete removes a budget and, via the schema, everything under it.
// Requires OWNER.
func (s *BudgetService) Delete(ctx context.Context, userID, budgetID int64) error {
	if err := s.authorize(ctx, userID, budgetID, core.LevelOwner); err != nil {
		return err
	}
	if err := s.store.DeleteBudget(ctx, budgetID); err != nil {
		return err
	}
	s.registry.Invalidate(budgetID)

	if err := s.events.Publish(ctx, events.KindBudgetDeleted, budgetID, budgetID); err != nil {
		s.logger.WarnContext(ctx, "publish budget event failed",
			log.FieldBudgetID, budgetID,
			log.FieldError, err,
		)
	}
	s.logger.InfoContext(ctx, "budget deleted",
		log.FieldBudgetID, budgetID,
		log.FieldUserID, userID,
	)
	return nil
}

// Grant delegates to the registry, which enforces the actor-level and
// last-owner rules. The target user must exist.
func (s *BudgetService) Grant(ctx context.Context, actorID int64, grant core.UserPermission) error {
	if err := s.requireUser(ctx, grant.UserID); err != nil {
		return err
	}
	return s.registry.Grant(ctx, actorID, grant)
}

// Revoke delegates to the registry.
func (s *BudgetService) Revoke(ctx context.Context, actorID, userID, budgetID int64) error {
	return s.registry.Revoke(ctx, actorID, userID, budgetID)
}

func (s *BudgetService) authorize(ctx context.Context, userID, budgetID int64, required core.PermissionLevel) error {
	ok, err := s.registry.Authorize(ctx, userID, budgetID, required)
	if err != nil {
		return err
	}
	if !ok {
		// Missing budget and missing grant are indistinguishable.
		return core.ErrNotFound
	}
	return nil
}

func (s *BudgetService) requireUser(ctx context.Context, id int64) error {
	if _, err := s.store.GetUser(ctx, id); err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return core.Invalid(fmt.Sprintf("unknown user %d", id))
		}
		return fmt.Errorf("look up user %d: %w", id, err)
	}
	return nil
}

func hasOwner(grants []core.UserPermission) bool {
	for _, g := range grants {
		if g.Level == core.LevelOwner {
			return true
		}
	}
	return false
}
