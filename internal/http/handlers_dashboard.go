package http

import (
	"net/http"

	"ledgerbook/internal/api"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.FromOverview(s.ledger.Overview()))
}
