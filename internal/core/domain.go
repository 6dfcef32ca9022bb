package core

import (
	"strings"
	"time"
)

// Clock supplies the current time. Anything that makes time-dependent
// decisions takes one so tests can pin the clock.
type Clock func() time.Time

// SystemClock returns the wall clock in UTC.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// PermissionLevel is the ordered access level a user holds on a budget.
type PermissionLevel int

const (
	LevelRead PermissionLevel = iota
	LevelManage
	LevelOwner
)

// AtLeast reports whether l grants everything required requires.
func (l PermissionLevel) AtLeast(required PermissionLevel) bool {
	return l >= required
}

func (l PermissionLevel) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelManage:
		return "manage"
	case LevelOwner:
		return "owner"
	default:
		return "unknown"
	}
}

// ParseLevel converts the stored representation back into a level.
func ParseLevel(s string) (PermissionLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "read":
		return LevelRead, nil
	case "manage":
		return LevelManage, nil
	case "owner":
		return LevelOwner, nil
	default:
		return 0, Invalid("unknown permission level: " + s)
	}
}

type (
	User struct {
		ID           int64
		Username     string
		Email        string
		PasswordHash string
		CreatedAt    time.Time
	}

	Budget struct {
		ID          int64
		Name        string
		Description string
		CreatedAt   time.Time
	}

	// UserPermission is the (user, budget, level) relation. There is at
	// most one row per (user, budget) pair.
	UserPermission struct {
		UserID   int64
		BudgetID int64
		Level    PermissionLevel
	}

	Category struct {
		ID          int64
		BudgetID    int64
		Name        string
		Description string
	}

	Transaction struct {
		ID          int64
		BudgetID    int64
		CategoryID  *int64
		Title       string
		Description string
		Amount      Money
		Date        time.Time
		CreatedBy   int64
		RecurringID *int64
	}

	// RecurringTransaction is a template that the scheduler turns into
	// concrete transactions. Cursor is the date of the last materialized
	// occurrence; a zero Cursor means nothing has been materialized yet.
	RecurringTransaction struct {
		ID         int64
		BudgetID   int64
		CategoryID *int64
		Title      string
		Amount     Money
		Schedule   Schedule
		Start      time.Time
		Cursor     time.Time
		CreatedBy  int64
	}

	// Session is an opaque bearer token with a sliding expiration.
	Session struct {
		Token      string
		UserID     int64
		Expiration time.Time
	}

	// PasswordResetToken authorizes exactly one password change before
	// its expiration. Consuming it deletes it.
	PasswordResetToken struct {
		ID         string
		UserID     int64
		Expiration time.Time
	}
)

func (u User) Validate() error {
	if strings.TrimSpace(u.Username) == "" {
		return Invalid("username cannot be empty")
	}
	if strings.TrimSpace(u.Email) == "" {
		return Invalid("email cannot be empty")
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return Invalid("budget name cannot be empty")
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return Invalid("category name cannot be empty")
	}
	return nil
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return Invalid("transaction title cannot be empty")
	}
	if t.Date.IsZero() {
		return Invalid("transaction date cannot be zero")
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	return nil
}

func (rt RecurringTransaction) Validate() error {
	if strings.TrimSpace(rt.Title) == "" {
		return Invalid("recurring transaction title cannot be empty")
	}
	if rt.Start.IsZero() {
		return Invalid("start date cannot be zero")
	}
	if err := rt.Amount.Validate(); err != nil {
		return err
	}
	return rt.Schedule.Validate()
}
