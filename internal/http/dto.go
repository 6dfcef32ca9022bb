package http

import (
	"net/http"
	"strconv"
	"time"

	"tally/internal/core"
	"tally/internal/services"
)

const dateLayout = "2006-01-02"

type userResponse struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

type sessionResponse struct {
	Token      string `json:"token"`
	UserID     int64  `json:"user_id"`
	Expiration string `json:"expiration"`
}

type permissionBody struct {
	UserID int64  `json:"user_id"`
	Level  string `json:"level"`
}

type budgetResponse struct {
	ID          int64            `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Users       []permissionBody `json:"users"`
}

type categoryResponse struct {
	ID          int64  `json:"id"`
	BudgetID    int64  `json:"budget_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type transactionResponse struct {
	ID          int64  `json:"id"`
	BudgetID    int64  `json:"budget_id"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Date        string `json:"date"`
	CreatedBy   int64  `json:"created_by"`
	RecurringID *int64 `json:"recurring_id,omitempty"`
}

type recurringResponse struct {
	ID          int64  `json:"id"`
	BudgetID    int64  `json:"budget_id"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	Title       string `json:"title"`
	Amount      string `json:"amount"`
	AmountCents int64  `json:"amount_cents"`
	Unit        string `json:"unit"`
	Every       int    `json:"every"`
	Start       string `json:"start"`
	LastRun     string `json:"last_run,omitempty"`
	CreatedBy   int64  `json:"created_by"`
}

func toUserResponse(u core.User) userResponse {
	return userResponse{ID: u.ID, Username: u.Username, Email: u.Email}
}

func toSessionResponse(s core.Session) sessionResponse {
	return sessionResponse{
		Token:      s.Token,
		UserID:     s.UserID,
		Expiration: s.Expiration.UTC().Format(time.RFC3339),
	}
}

func toBudgetResponse(bu services.BudgetWithUsers) budgetResponse {
	users := make([]permissionBody, 0, len(bu.Users))
	for _, p := range bu.Users {
		users = append(users, permissionBody{UserID: p.UserID, Level: p.Level.String()})
	}
	return budgetResponse{
		ID:          bu.Budget.ID,
		Name:        bu.Budget.Name,
		Description: bu.Budget.Description,
		Users:       users,
	}
}

func toCategoryResponse(c core.Category) categoryResponse {
	return categoryResponse{ID: c.ID, BudgetID: c.BudgetID, Name: c.Name, Description: c.Description}
}

func toTransactionResponse(t core.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID,
		BudgetID:    t.BudgetID,
		CategoryID:  t.CategoryID,
		Title:       t.Title,
		Description: t.Description,
		Amount:      t.Amount.String(),
		AmountCents: t.Amount.Cents,
		Date:        t.Date.UTC().Format(dateLayout),
		CreatedBy:   t.CreatedBy,
		RecurringID: t.RecurringID,
	}
}

func toRecurringResponse(rt core.RecurringTransaction) recurringResponse {
	resp := recurringResponse{
		ID:          rt.ID,
		BudgetID:    rt.BudgetID,
		CategoryID:  rt.CategoryID,
		Title:       rt.Title,
		Amount:      rt.Amount.String(),
		AmountCents: rt.Amount.Cents,
		Unit:        string(rt.Schedule.Unit),
		Every:       rt.Schedule.Every,
		Start:       rt.Start.UTC().Format(dateLayout),
		CreatedBy:   rt.CreatedBy,
	}
	if !rt.Cursor.IsZero() {
		resp.LastRun = rt.Cursor.UTC().Format(dateLayout)
	}
	return resp
}

// pathID parses the named path wildcard as an entity id.
func pathID(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id < 1 {
		return 0, core.Invalid("invalid " + name + " in path")
	}
	return id, nil
}

func parseDate(s string) (time.Time, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, core.Invalid("invalid date, want YYYY-MM-DD: " + s)
	}
	return t, nil
}

func parseAmount(s string) (core.Money, error) {
	cents, err := core.ParseDecimalToCents(s)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents}, nil
}
