// Package permissions is the authorization core: it maps (user, budget)
// pairs to a permission level and answers whether a user may perform an
// action requiring a given level.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"tally/internal/cache"
	"tally/internal/core"
	"tally/internal/log"
)

// Store persists the (user, budget, level) relation.
type Store interface {
	GetPermission(ctx context.Context, userID, budgetID int64) (core.UserPermission, error)
	ListBudgetPermissions(ctx context.Context, budgetID int64) ([]core.UserPermission, error)
	ListUserPermissions(ctx context.Context, userID int64) ([]core.UserPermission, error)
	SavePermission(ctx context.Context, p core.UserPermission) error
	DeletePermission(ctx context.Context, userID, budgetID int64) error
}

// Registry answers authorization checks and enforces the mutation rules
// for grants. Reads go through a short-TTL LRU keyed by budget; every
// mutation invalidates the budget's entry before returning, so a revoke
// in this process is visible to the next check.
type Registry struct {
	store  Store
	cache  *cache.LRU[[]core.UserPermission]
	logger *log.Logger
}

const (
	cacheSize = 512
	cacheTTL  = 30 * time.Second
)

func NewRegistry(store Store, logger *log.Logger) *Registry {
	return &Registry{
		store:  store,
		cache:  cache.New[[]core.UserPermission](cacheSize, cacheTTL),
		logger: logger.WithComponent(log.ComponentPermissions),
	}
}

// Authorize reports whether userID holds at least required on budgetID.
// A missing grant is an ordinary false, never an error.
func (r *Registry) Authorize(ctx context.Context, userID, budgetID int64, required core.PermissionLevel) (bool, error) {
	perms, err := r.budgetPermissions(ctx, budgetID)
	if err != nil {
		return false, err
	}
	for _, p := range perms {
		if p.UserID == userID {
			return p.Level.AtLeast(required), nil
		}
	}
	return false, nil
}

// BudgetPermissions lists every grant on a budget. Callers must have
// authorized the read already.
func (r *Registry) BudgetPermissions(ctx context.Context, budgetID int64) ([]core.UserPermission, error) {
	return r.budgetPermissions(ctx, budgetID)
}

// UserPermissions lists every grant a user holds, across budgets.
func (r *Registry) UserPermissions(ctx context.Context, userID int64) ([]core.UserPermission, error) {
	return r.store.ListUserPermissions(ctx, userID)
}

// InitialGrants builds the permission set for a freshly created budget:
// the requested grants, plus an unconditional OWNER grant for the
// creator unless the request already names them.
func InitialGrants(creatorID int64, requested []core.UserPermission) []core.UserPermission {
	for _, g := range requested {
		if g.UserID == creatorID {
			return requested
		}
	}
	return append(requested, core.UserPermission{UserID: creatorID, Level: core.LevelOwner})
}

// Grant creates or updates a permission. The actor needs MANAGE on the
// budget, or OWNER when the grant assigns OWNER or changes an existing
// OWNER's level. Downgrading the last OWNER fails with ErrLastOwner.
func (r *Registry) Grant(ctx context.Context, actorID int64, grant core.UserPermission) error {
	existing, err := r.store.GetPermission(ctx, grant.UserID, grant.BudgetID)
	haveExisting := err == nil
	if err != nil && !errors.Is(err, core.ErrNotFound) {
		return fmt.Errorf("look up existing grant: %w", err)
	}

	required := core.LevelManage
	if grant.Level == core.LevelOwner || (haveExisting && existing.Level == core.LevelOwner) {
		required = core.LevelOwner
	}
	if err := r.requireLevel(ctx, actorID, grant.BudgetID, required); err != nil {
		return err
	}

	if haveExisting && existing.Level == core.LevelOwner && grant.Level != core.LevelOwner {
		if err := r.requireAnotherOwner(ctx, grant.BudgetID, grant.UserID); err != nil {
			return err
		}
	}

	if err := r.store.SavePermission(ctx, grant); err != nil {
		return err
	}
	r.invalidate(grant.BudgetID)

	r.logger.InfoContext(ctx, "permission granted",
		log.FieldUserID, grant.UserID,
		log.FieldBudgetID, grant.BudgetID,
		"level", grant.Level.String(),
	)
	return nil
}

// Revoke removes a user's grant. The actor needs MANAGE, or OWNER when
// the target grant is OWNER. Removing the last OWNER fails with
// ErrLastOwner.
func (r *Registry) Revoke(ctx context.Context, actorID, userID, budgetID int64) error {
	existing, err := r.store.GetPermission(ctx, userID, budgetID)
	if errors.Is(err, core.ErrNotFound) {
		// Authorize before revealing that the grant does not exist.
		if authErr := r.requireLevel(ctx, actorID, budgetID, core.LevelManage); authErr != nil {
			return authErr
		}
		return core.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("look up grant: %w", err)
	}

	required := core.LevelManage
	if existing.Level == core.LevelOwner {
		required = core.LevelOwner
	}
	if err := r.requireLevel(ctx, actorID, budgetID, required); err != nil {
		return err
	}

	if existing.Level == core.LevelOwner {
		if err := r.requireAnotherOwner(ctx, budgetID, userID); err != nil {
			return err
		}
	}

	if err := r.store.DeletePermission(ctx, userID, budgetID); err != nil {
		return err
	}
	r.invalidate(budgetID)

	r.logger.InfoContext(ctx, "permission revoked",
		log.FieldUserID, userID,
		log.FieldBudgetID, budgetID,
	)
	return nil
}

// Invalidate drops the cached grants for a budget. Called by callers
// that mutate permissions outside the registry (budget creation).
func (r *Registry) Invalidate(budgetID int64) {
	r.invalidate(budgetID)
}

// SweepCache drops expired cache entries; wired as a periodic job.
func (r *Registry) SweepCache() int {
	return r.cache.CleanExpired()
}

func (r *Registry) requireLevel(ctx context.Context, userID, budgetID int64, required core.PermissionLevel) error {
	ok, err := r.Authorize(ctx, userID, budgetID, required)
	if err != nil {
		return err
	}
	if !ok {
		return core.ErrUnauthorized
	}
	return nil
}

// requireAnotherOwner fails with ErrLastOwner unless some user other
// than excludeUserID holds OWNER on the budget.
func (r *Registry) requireAnotherOwner(ctx context.Context, budgetID, excludeUserID int64) error {
	perms, err := r.store.ListBudgetPermissions(ctx, budgetID)
	if err != nil {
		return err
	}
	for _, p := range perms {
		if p.Level == core.LevelOwner && p.UserID != excludeUserID {
			return nil
		}
	}
	return core.ErrLastOwner
}

func (r *Registry) budgetPermissions(ctx context.Context, budgetID int64) ([]core.UserPermission, error) {
	key := cacheKey(budgetID)
	if perms, ok := r.cache.Get(key); ok {
		return perms, nil
	}
	perms, err := r.store.ListBudgetPermissions(ctx, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list budget permissions: %w", err)
	}
	r.cache.Set(key, perms)
	return perms, nil
}

func (r *Registry) invalidate(budgetID int64) {
	r.cache.Delete(cacheKey(budgetID))
}

func cacheKey(budgetID int64) string {
	return strconv.FormatInt(budgetID, 10)
}
