package http

import (
	"net/http"

	"tally/internal/core"
)

type recurringRequest struct {
	CategoryID *int64 `json:"category_id"`
	Title      string `json:"title"`
	Amount     string `json:"amount"`
	Unit       string `json:"unit"`
	Every      int    `json:"every"`
	Start      string `json:"start"`
}

func (req recurringRequest) toDomain() (core.RecurringTransaction, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	unit, err := core.ParseIntervalUnit(req.Unit)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	start, err := parseDate(req.Start)
	if err != nil {
		return core.RecurringTransaction{}, err
	}
	return core.RecurringTransaction{
		CategoryID: req.CategoryID,
		Title:      req.Title,
		Amount:     amount,
		Schedule:   core.Schedule{Unit: unit, Every: req.Every},
		Start:      start,
	}, nil
}

func (s *Server) handleListRecurring(w http.ResponseWriter, r *http.Request) {
	budgetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	templates, err := s.ledger.ListRecurring(r.Context(), userID(r), budgetID)
	if err != nil {
		writeError(w, err)
		return
	}

	out := make([]recurringResponse, 0, len(templates))
	for _, rt := range templates {
		out = append(out, toRecurringResponse(rt))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	budgetID, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rt, err := req.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	rt.BudgetID = budgetID

	created, err := s.ledger.CreateRecurring(r.Context(), userID(r), rt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRecurringResponse(created))
}

func (s *Server) handleGetRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	rt, err := s.ledger.GetRecurring(r.Context(), userID(r), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(rt))
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req recurringRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	rt, err := req.toDomain()
	if err != nil {
		writeError(w, err)
		return
	}
	rt.ID = id

	updated, err := s.ledger.UpdateRecurring(r.Context(), userID(r), rt)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRecurringResponse(updated))
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := s.ledger.DeleteRecurring(r.Context(), userID(r), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
