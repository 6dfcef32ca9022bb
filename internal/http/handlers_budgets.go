package http

import (
	"net/http"

	"tally/internal/core"
)

type budgetRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Users       []permissionBody `json:"users"`
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.budgets.List(r.Context(), userID(r))
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]budgetResponse, 0, len(budgets))
	for _, b := range budgets {
		out = append(out, toBudgetResponse(b))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	grants, err := parseGrants(req.Users)
	if err != nil {
		writeError(w, err)
		return
	}

	created, err := s.budgets.Create(r.Context(), userID(r),
		core.Budget{Name: req.Name, Description: req.Description}, grants)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toBudgetResponse(created))
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	b, err := s.budgets.Get(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(b))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req budgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	updated, err := s.budgets.Update(r.Context(), userID(r),
		core.Budget{ID: id, Name: req.Name, Description: req.Description})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toBudgetResponse(updated))
}

func (s *Server) handleDeleteBudget(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.budgets.Delete(r.Context(), userID(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleGrantPermission(w http.ResponseWriter, r *http.Request) {
	budgetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req permissionBody
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	level, err := core.ParseLevel(req.Level)
	if err != nil {
		writeError(w, err)
		return
	}

	grant := core.UserPermission{UserID: req.UserID, BudgetID: budgetID, Level: level}
	if err := s.budgets.Grant(r.Context(), userID(r), grant); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevokePermission(w http.ResponseWriter, r *http.Request) {
	budgetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}
	targetID, err := pathID(r, "userId")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.budgets.Revoke(r.Context(), userID(r), targetID, budgetID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseGrants(users []permissionBody) ([]core.UserPermission, error) {
	grants := make([]core.UserPermission, 0, len(users))
	for _, u := range users {
		level, err := core.ParseLevel(u.Level)
		if err != nil {
			return nil, err
		}
		grants = append(grants, core.UserPermission{UserID: u.UserID, Level: level})
	}
	return grants, nil
}
