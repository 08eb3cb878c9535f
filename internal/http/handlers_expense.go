package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"ledgerbook/internal/api"
	"ledgerbook/internal/core"
	"ledgerbook/internal/log"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.FromCoreList(s.ledger.List()))
}

// handleCreateExpense adds a record. A missing date defaults to today in
// core.DateLayout; a missing category defaults to core.DefaultCategory.
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	var req api.CreateRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	date := req.Date
	if date == "" {
		date = s.now().Format(core.DateLayout)
	}

	rec, err := s.ledger.Create(ctx, req.Title, req.AmountText(), req.Category, date)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			logger.WarnContext(ctx, "Rejected expense",
				log.FieldErrorType, log.ErrorTypeValidation,
				log.FieldError, err)
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "could not add expense")
		return
	}

	writeJSON(w, http.StatusCreated, api.Created{Index: 0, Record: api.FromCore(rec)})
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	idx, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}

	removed, err := s.ledger.Remove(r.Context(), idx)
	if errors.Is(err, core.ErrIndexOutOfRange) {
		log.FromContext(r.Context()).InfoContext(r.Context(), "Expense not found",
			log.FieldIndex, idx,
			log.FieldErrorType, log.ErrorTypeNotFound)
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not remove expense")
		return
	}
	writeJSON(w, http.StatusOK, api.FromCore(removed))
}
