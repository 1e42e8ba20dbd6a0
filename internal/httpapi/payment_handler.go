package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/WinterWeShare/weshare/internal/middleware"
	"github.com/WinterWeShare/weshare/internal/service"
)

// PaymentHandler serves the expense and invoice endpoints.
type PaymentHandler struct {
	payments *service.PaymentService
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(payments *service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type recordPaymentRequest struct {
	Title  string  `json:"title"`
	Amount float64 `json:"amount"`
}

// Record handles POST /groups/{groupId}/payments.
func (h *PaymentHandler) Record(w http.ResponseWriter, r *http.Request) {
	var req recordPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, err)
		return
	}
	groupID := mux.Vars(r)["groupId"]
	payment, err := h.payments.RecordPayment(r.Context(), middleware.UserID(r.Context()), groupID, req.Title, req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, payment)
}

// ListGroup handles GET /groups/{groupId}/payments.
func (h *PaymentHandler) ListGroup(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	payments, err := h.payments.GetGroupPayments(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

// ListMine handles GET /groups/{groupId}/payments/mine.
func (h *PaymentHandler) ListMine(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	payments, err := h.payments.GetUserPayments(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, payments)
}

type totalResponse struct {
	Total float64 `json:"total"`
}

// Total handles GET /groups/{groupId}/total.
func (h *PaymentHandler) Total(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	total, err := h.payments.GetTotalSpent(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, totalResponse{Total: total})
}

type fairShareResponse struct {
	FairShare float64 `json:"fairShare"`
}

// FairShare handles GET /groups/{groupId}/fair-share.
func (h *PaymentHandler) FairShare(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	share, err := h.payments.GetFairShare(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, fairShareResponse{FairShare: share})
}

// Invoice handles GET /groups/{groupId}/invoice.
func (h *PaymentHandler) Invoice(w http.ResponseWriter, r *http.Request) {
	groupID := mux.Vars(r)["groupId"]
	invoice, err := h.payments.GetInvoice(r.Context(), middleware.UserID(r.Context()), groupID)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, invoice)
}
