package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"tally/internal/core"
)

type RepositoryTestSuite struct {
	suite.Suite
	repo *Repository
	ctx  context.Context
}

func (s *RepositoryTestSuite) SetupTest() {
	repo, err := Open(filepath.Join(s.T().TempDir(), "test.db"))
	require.NoError(s.T(), err, "failed to open test database")
	s.repo = repo
	s.ctx = context.Background()
}

func (s *RepositoryTestSuite) TearDownTest() {
	if s.repo != nil {
		s.repo.Close()
	}
}

func (s *RepositoryTestSuite) user(name string) core.User {
	u, err := s.repo.CreateUser(s.ctx, core.User{
		Username:     name,
		Email:        name + "@example.com",
		PasswordHash: "hash",
	})
	require.NoError(s.T(), err)
	return u
}

func (s *RepositoryTestSuite) budget(owner core.User, name string) core.Budget {
	b, err := s.repo.CreateBudget(s.ctx, core.Budget{Name: name},
		[]core.UserPermission{{UserID: owner.ID, BudgetID: 0, Level: core.LevelOwner}})
	require.NoError(s.T(), err)
	return b
}

func (s *RepositoryTestSuite) TestUserRoundTrip() {
	u := s.user("alice")

	byID, err := s.repo.GetUser(s.ctx, u.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "alice", byID.Username)

	byName, err := s.repo.GetUserByUsername(s.ctx, "alice")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, byName.ID)

	byEmail, err := s.repo.GetUserByUsername(s.ctx, "alice@example.com")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), u.ID, byEmail.ID)

	_, err = s.repo.GetUser(s.ctx, 9999)
	assert.ErrorIs(s.T(), err, core.ErrNotFound)
}

func (s *RepositoryTestSuite) TestBudgetCreateGrantsOwner() {
	alice := s.user("alice")
	b := s.budget(alice, "household")

	p, err := s.repo.GetPermission(s.ctx, alice.ID, b.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.LevelOwner, p.Level)
}

func (s *RepositoryTestSuite) TestBudgetDeleteCascades() {
	alice := s.user("alice")
	b := s.budget(alice, "household")

	cat, err := s.repo.CreateCategory(s.ctx, core.Category{BudgetID: b.ID, Name: "groceries"})
	require.NoError(s.T(), err)

	_, err = s.repo.CreateTransaction(s.ctx, core.Transaction{
		BudgetID:   b.ID,
		CategoryID: &cat.ID,
		Title:      "weekly shop",
		Amount:     core.Money{Cents: -4250},
		Date:       time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy:  alice.ID,
	})
	require.NoError(s.T(), err)

	_, err = s.repo.CreateRecurring(s.ctx, core.RecurringTransaction{
		BudgetID:  b.ID,
		Title:     "rent",
		Amount:    core.Money{Cents: -90000},
		Schedule:  core.Schedule{Unit: core.UnitMonthly, Every: 1},
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy: alice.ID,
	})
	require.NoError(s.T(), err)

	require.NoError(s.T(), s.repo.DeleteBudget(s.ctx, b.ID))

	txns, err := s.repo.ListTransactions(s.ctx, b.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), txns)

	cats, err := s.repo.ListCategories(s.ctx, b.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), cats)

	templates, err := s.repo.ListRecurring(s.ctx, b.ID)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), templates)

	perms, err := s.repo.FindPermissions(s.ctx, PermissionFilter{BudgetIDs: []int64{b.ID}})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), perms)
}

func (s *RepositoryTestSuite) TestFindPermissionsFilters() {
	alice := s.user("alice")
	bob := s.user("bob")
	b1 := s.budget(alice, "household")
	b2 := s.budget(bob, "vacation")

	require.NoError(s.T(), s.repo.SavePermission(s.ctx,
		core.UserPermission{UserID: alice.ID, BudgetID: b2.ID, Level: core.LevelRead}))

	byUser, err := s.repo.FindPermissions(s.ctx, PermissionFilter{UserID: &alice.ID})
	require.NoError(s.T(), err)
	assert.Len(s.T(), byUser, 2)

	byBudget, err := s.repo.FindPermissions(s.ctx, PermissionFilter{BudgetIDs: []int64{b1.ID}})
	require.NoError(s.T(), err)
	assert.Len(s.T(), byBudget, 1)

	both, err := s.repo.FindPermissions(s.ctx, PermissionFilter{UserID: &alice.ID, BudgetIDs: []int64{b2.ID}})
	require.NoError(s.T(), err)
	require.Len(s.T(), both, 1)
	assert.Equal(s.T(), core.LevelRead, both[0].Level)
}

func (s *RepositoryTestSuite) TestSavePermissionUpserts() {
	alice := s.user("alice")
	b := s.budget(alice, "household")

	require.NoError(s.T(), s.repo.SavePermission(s.ctx,
		core.UserPermission{UserID: alice.ID, BudgetID: b.ID, Level: core.LevelManage}))

	p, err := s.repo.GetPermission(s.ctx, alice.ID, b.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), core.LevelManage, p.Level)

	// Still exactly one row for the pair.
	perms, err := s.repo.FindPermissions(s.ctx, PermissionFilter{BudgetIDs: []int64{b.ID}})
	require.NoError(s.T(), err)
	assert.Len(s.T(), perms, 1)
}

func (s *RepositoryTestSuite) TestMaterializeOccurrencesAdvancesCursorAtomically() {
	alice := s.user("alice")
	b := s.budget(alice, "household")

	rt, err := s.repo.CreateRecurring(s.ctx, core.RecurringTransaction{
		BudgetID:  b.ID,
		Title:     "rent",
		Amount:    core.Money{Cents: -90000},
		Schedule:  core.Schedule{Unit: core.UnitMonthly, Every: 1},
		Start:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		CreatedBy: alice.ID,
	})
	require.NoError(s.T(), err)

	occurrence := func(d time.Time) core.Transaction {
		return core.Transaction{
			BudgetID:    b.ID,
			Title:       "rent",
			Amount:      core.Money{Cents: -90000},
			Date:        d,
			CreatedBy:   alice.ID,
			RecurringID: &rt.ID,
		}
	}

	cursor := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	batch := []core.Transaction{
		occurrence(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)),
		occurrence(cursor),
	}

	ids, err := s.repo.MaterializeOccurrences(s.ctx, rt.ID, batch, cursor)
	require.NoError(s.T(), err)
	assert.Len(s.T(), ids, 2)

	txns, err := s.repo.ListTransactions(s.ctx, b.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), txns, 2)

	stored, err := s.repo.GetRecurring(s.ctx, rt.ID)
	require.NoError(s.T(), err)
	assert.True(s.T(), stored.Cursor.Equal(cursor), "cursor = %v, want %v", stored.Cursor, cursor)

	// Retrying the same batch with the same (now stale) cursor must not
	// insert duplicates.
	ids, err = s.repo.MaterializeOccurrences(s.ctx, rt.ID, batch, cursor)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), ids)

	txns, err = s.repo.ListTransactions(s.ctx, b.ID)
	require.NoError(s.T(), err)
	assert.Len(s.T(), txns, 2)
}

func (s *RepositoryTestSuite) TestSessionExpirationOnlyMovesForward() {
	alice := s.user("alice")
	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	sess := core.Session{Token: "tok", UserID: alice.ID, Expiration: base}
	require.NoError(s.T(), s.repo.CreateSession(s.ctx, sess))

	sess.Expiration = base.Add(24 * time.Hour)
	require.NoError(s.T(), s.repo.SaveSession(s.ctx, sess))

	// An older expiration must not win.
	sess.Expiration = base.Add(-24 * time.Hour)
	require.NoError(s.T(), s.repo.SaveSession(s.ctx, sess))

	stored, err := s.repo.GetSession(s.ctx, "tok")
	require.NoError(s.T(), err)
	assert.True(s.T(), stored.Expiration.Equal(base.Add(24*time.Hour)))
}

func (s *RepositoryTestSuite) TestDeleteExpiredSessions() {
	alice := s.user("alice")
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(s.T(), s.repo.CreateSession(s.ctx,
		core.Session{Token: "live", UserID: alice.ID, Expiration: now.Add(time.Hour)}))
	require.NoError(s.T(), s.repo.CreateSession(s.ctx,
		core.Session{Token: "dead", UserID: alice.ID, Expiration: now.Add(-time.Hour)}))

	reaped, err := s.repo.DeleteExpiredSessions(s.ctx, now)
	require.NoError(s.T(), err)
	assert.EqualValues(s.T(), 1, reaped)

	_, err = s.repo.GetSession(s.ctx, "dead")
	assert.ErrorIs(s.T(), err, core.ErrNotFound)

	_, err = s.repo.GetSession(s.ctx, "live")
	assert.NoError(s.T(), err)
}

func (s *RepositoryTestSuite) TestConsumeResetToken() {
	alice := s.user("alice")

	token := core.PasswordResetToken{
		ID:         "reset-token",
		UserID:     alice.ID,
		Expiration: time.Now().Add(time.Hour),
	}
	require.NoError(s.T(), s.repo.CreateResetToken(s.ctx, token))

	require.NoError(s.T(), s.repo.ConsumeResetToken(s.ctx, token.ID, alice.ID, "newhash"))

	updated, err := s.repo.GetUser(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "newhash", updated.PasswordHash)

	// Second consumption fails and leaves the hash alone.
	err = s.repo.ConsumeResetToken(s.ctx, token.ID, alice.ID, "otherhash")
	assert.ErrorIs(s.T(), err, core.ErrInvalidToken)

	updated, err = s.repo.GetUser(s.ctx, alice.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "newhash", updated.PasswordHash)
}

func (s *RepositoryTestSuite) TestEnsureSaltIsStable() {
	salt, err := s.repo.EnsureSalt(s.ctx, "first-seed")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "first-seed", salt)

	again, err := s.repo.EnsureSalt(s.ctx, "different-seed")
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "first-seed", again, "persisted salt must never be regenerated")
}

func TestRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(RepositoryTestSuite))
}
