package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WinterWeShare/weshare/internal/middleware"
	"github.com/WinterWeShare/weshare/internal/service"
)

// SettlementHandler serves the settlement lifecycle endpoints.
type SettlementHandler struct {
	settlements *service.SettlementService
}

// NewSettlementHandler creates a SettlementHandler.
func NewSettlementHandler(settlements *service.SettlementService) *SettlementHandler {
	return &SettlementHandler{settlements: settlements}
}

// Initiate handles POST /groups/{groupId}/settlement.
func (h *SettlementHandler) Initiate(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	records, err := h.settlements.Initiate(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, records)
}

// Approve handles POST /groups/{groupId}/settlement/approve.
func (h *SettlementHandler) Approve(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	if err := h.settlements.Approve(r.Context(), middleware.UserID(r.Context()), groupID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// Cancel handles POST /groups/{groupId}/settlement/cancel.
func (h *SettlementHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	if err := h.settlements.Cancel(r.Context(), middleware.UserID(r.Context()), groupID); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

type fulfillResponse struct {
	GroupClosed bool `json:"groupClosed"`
}

// Fulfill handles POST /groups/{groupId}/settlement/fulfill.
func (h *SettlementHandler) Fulfill(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	closed, err := h.settlements.Fulfill(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fulfillResponse{GroupClosed: closed})
}

// Records handles GET /groups/{groupId}/settlement/records.
func (h *SettlementHandler) Records(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	records, err := h.settlements.ListRecords(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, records)
}

// Receipts handles GET /groups/{groupId}/settlement/receipts.
func (h *SettlementHandler) Receipts(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	receipts, err := h.settlements.ListReceipts(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, receipts)
}
