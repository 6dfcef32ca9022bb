package permissions

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tally/internal/core"
	"tally/internal/log"
)

type memStore struct {
	perms map[string]core.UserPermission
}

func newMemStore() *memStore {
	return &memStore{perms: make(map[string]core.UserPermission)}
}

func key(userID, budgetID int64) string {
	return fmt.Sprintf("%d/%d", userID, budgetID)
}

func (m *memStore) GetPermission(_ context.Context, userID, budgetID int64) (core.UserPermission, error) {
	if p, ok := m.perms[key(userID, budgetID)]; ok {
		return p, nil
	}
	return core.UserPermission{}, core.ErrNotFound
}

func (m *memStore) ListBudgetPermissions(_ context.Context, budgetID int64) ([]core.UserPermission, error) {
	var out []core.UserPermission
	for _, p := range m.perms {
		if p.BudgetID == budgetID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) ListUserPermissions(_ context.Context, userID int64) ([]core.UserPermission, error) {
	var out []core.UserPermission
	for _, p := range m.perms {
		if p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) SavePermission(_ context.Context, p core.UserPermission) error {
	m.perms[key(p.UserID, p.BudgetID)] = p
	return nil
}

func (m *memStore) DeletePermission(_ context.Context, userID, budgetID int64) error {
	k := key(userID, budgetID)
	if _, ok := m.perms[k]; !ok {
		return core.ErrNotFound
	}
	delete(m.perms, k)
	return nil
}

const (
	owner   int64 = 1
	manager int64 = 2
	reader  int64 = 3
	outside int64 = 4

	budget int64 = 100
)

func fixture(t *testing.T) (*Registry, *memStore) {
	t.Helper()
	store := newMemStore()
	ctx := context.Background()
	require.NoError(t, store.SavePermission(ctx, core.UserPermission{UserID: owner, BudgetID: budget, Level: core.LevelOwner}))
	require.NoError(t, store.SavePermission(ctx, core.UserPermission{UserID: manager, BudgetID: budget, Level: core.LevelManage}))
	require.NoError(t, store.SavePermission(ctx, core.UserPermission{UserID: reader, BudgetID: budget, Level: core.LevelRead}))
	return NewRegistry(store, log.New(log.DefaultConfig())), store
}

func TestAuthorize(t *testing.T) {
	r, _ := fixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		userID   int64
		required core.PermissionLevel
		want     bool
	}{
		{"owner passes owner check", owner, core.LevelOwner, true},
		{"owner passes read check", owner, core.LevelRead, true},
		{"manager passes manage check", manager, core.LevelManage, true},
		{"manager fails owner check", manager, core.LevelOwner, false},
		{"reader passes read check", reader, core.LevelRead, true},
		{"reader fails manage check", reader, core.LevelManage, false},
		{"no grant means no access", outside, core.LevelRead, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := r.Authorize(ctx, tt.userID, budget, tt.required)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAuthorizeUnknownBudget(t *testing.T) {
	r, _ := fixture(t)

	ok, err := r.Authorize(context.Background(), owner, 999, core.LevelRead)
	require.NoError(t, err, "absence of a record must not be an error")
	assert.False(t, ok)
}

func TestGrantRequiresManage(t *testing.T) {
	r, store := fixture(t)
	ctx := context.Background()

	err := r.Grant(ctx, reader, core.UserPermission{UserID: outside, BudgetID: budget, Level: core.LevelRead})
	assert.ErrorIs(t, err, core.ErrUnauthorized)
	_, err = store.GetPermission(ctx, outside, budget)
	assert.ErrorIs(t, err, core.ErrNotFound)

	require.NoError(t, r.Grant(ctx, manager, core.UserPermission{UserID: outside, BudgetID: budget, Level: core.LevelRead}))

	ok, err := r.Authorize(ctx, outside, budget, core.LevelRead)
	require.NoError(t, err)
	assert.True(t, ok, "grant must be visible to the next authorization check")
}

func TestGrantOwnerRequiresOwner(t *testing.T) {
	r, _ := fixture(t)
	ctx := context.Background()

	err := r.Grant(ctx, manager, core.UserPermission{UserID: outside, BudgetID: budget, Level: core.LevelOwner})
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	require.NoError(t, r.Grant(ctx, owner, core.UserPermission{UserID: outside, BudgetID: budget, Level: core.LevelOwner}))
}

func TestDemoteLastOwnerRejected(t *testing.T) {
	r, store := fixture(t)
	ctx := context.Background()

	before := len(store.perms)

	err := r.Grant(ctx, owner, core.UserPermission{UserID: owner, BudgetID: budget, Level: core.LevelManage})
	assert.ErrorIs(t, err, core.ErrLastOwner)

	// Table unchanged: same row count, owner still owner.
	assert.Len(t, store.perms, before)
	p, err := store.GetPermission(ctx, owner, budget)
	require.NoError(t, err)
	assert.Equal(t, core.LevelOwner, p.Level)
}

func TestRevokeLastOwnerRejected(t *testing.T) {
	r, store := fixture(t)
	ctx := context.Background()

	err := r.Revoke(ctx, owner, owner, budget)
	assert.ErrorIs(t, err, core.ErrLastOwner)

	p, err := store.GetPermission(ctx, owner, budget)
	require.NoError(t, err)
	assert.Equal(t, core.LevelOwner, p.Level)
}

func TestDemoteOwnerWithCoOwner(t *testing.T) {
	r, _ := fixture(t)
	ctx := context.Background()

	require.NoError(t, r.Grant(ctx, owner, core.UserPermission{UserID: outside, BudgetID: budget, Level: core.LevelOwner}))
	require.NoError(t, r.Grant(ctx, owner, core.UserPermission{UserID: owner, BudgetID: budget, Level: core.LevelRead}))

	ok, err := r.Authorize(ctx, owner, budget, core.LevelManage)
	require.NoError(t, err)
	assert.False(t, ok, "demotion must be visible immediately")
}

func TestRevokeOwnerRequiresOwner(t *testing.T) {
	r, _ := fixture(t)
	ctx := context.Background()

	require.NoError(t, r.Grant(ctx, owner, core.UserPermission{UserID: outside, BudgetID: budget, Level: core.LevelOwner}))

	err := r.Revoke(ctx, manager, outside, budget)
	assert.ErrorIs(t, err, core.ErrUnauthorized)

	require.NoError(t, r.Revoke(ctx, owner, outside, budget))
}

func TestRevokeInvalidatesCache(t *testing.T) {
	r, _ := fixture(t)
	ctx := context.Background()

	// Warm the cache.
	ok, err := r.Authorize(ctx, reader, budget, core.LevelRead)
	require.NoError(t, err)
	require.True(t, ok)

	require.NoError(t, r.Revoke(ctx, manager, reader, budget))

	ok, err = r.Authorize(ctx, reader, budget, core.LevelRead)
	require.NoError(t, err)
	assert.False(t, ok, "revoke must be visible to the next authorization check")
}

func TestInitialGrants(t *testing.T) {
	creator := int64(9)

	grants := InitialGrants(creator, nil)
	require.Len(t, grants, 1)
	assert.Equal(t, core.LevelOwner, grants[0].Level)
	assert.Equal(t, creator, grants[0].UserID)

	// Creator named in the request keeps the requested level.
	requested := []core.UserPermission{{UserID: creator, Level: core.LevelManage}}
	grants = InitialGrants(creator, requested)
	require.Len(t, grants, 1)
	assert.Equal(t, core.LevelManage, grants[0].Level)

	// Other users in the request don't displace the creator's owner grant.
	requested = []core.UserPermission{{UserID: 5, Level: core.LevelRead}}
	grants = InitialGrants(creator, requested)
	require.Len(t, grants, 2)
}
