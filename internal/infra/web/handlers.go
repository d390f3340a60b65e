package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"jobboard-billing/internal/domain"
	"jobboard-billing/internal/domain/model"
	"jobboard-billing/internal/infra/logging"
	"jobboard-billing/internal/usecase"
)

// Responses use the envelope the rest of the platform expects:
// {"success": true, "data": ...} or {"success": false, "message": "..."}.

func writeJSON(w http.ResponseWriter, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

func writeError(w http.ResponseWriter, err error) {
	code := statusFor(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": err.Error(),
	})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument), errors.Is(err, domain.ErrUnknownProduct), errors.Is(err, domain.ErrSignatureInvalid):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrPaymentNotFound), errors.Is(err, domain.ErrSubscriptionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrInvalidState), errors.Is(err, domain.ErrAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrNotImplemented):
		return http.StatusNotImplemented
	case errors.Is(err, domain.ErrProviderUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

type createPaymentIntentRequest struct {
	UserID         string                 `json:"userId"`
	Amount         int64                  `json:"amount"`
	Currency       string                 `json:"currency"`
	PaymentType    string                 `json:"paymentType"`
	JobID          *string                `json:"jobId,omitempty"`
	SubscriptionID *string                `json:"subscriptionId,omitempty"`
	Description    string                 `json:"description,omitempty"`
	Metadata       map[string]interface{} `json:"metadata,omitempty"`
}

func (s *Server) handleCreatePaymentIntent(w http.ResponseWriter, r *http.Request) {
	var req createPaymentIntentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	out, err := s.payUC.CreatePaymentIntent(r.Context(), usecase.CreatePaymentIntentRequest{
		UserID:         req.UserID,
		Amount:         req.Amount,
		Currency:       model.Currency(req.Currency),
		PaymentType:    model.PaymentType(req.PaymentType),
		JobID:          req.JobID,
		SubscriptionID: req.SubscriptionID,
		Description:    req.Description,
		Metadata:       req.Metadata,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"paymentId":    out.PaymentID,
		"clientSecret": out.ClientSecret,
		"amount":       out.Amount,
		"currency":     out.Currency,
	})
}

func (s *Server) handleConfirmPayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		PaymentIntentID string `json:"paymentIntentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.PaymentIntentID == "" {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	p, err := s.payUC.ConfirmPayment(r.Context(), req.PaymentIntentID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handlePaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, domain.ErrInvalidArgument)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	h, err := s.payUC.GetPaymentHistory(r.Context(), userID, page, limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"payments":   h.Payments,
		"pagination": h.Pagination,
	})
}

func (s *Server) handlePricing(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.Pricing())
}

type refundRequest struct {
	PaymentID   string  `json:"paymentId"`
	Amount      int64   `json:"amount,omitempty"`
	Reason      string  `json:"reason,omitempty"`
	ProcessedBy *string `json:"processedBy,omitempty"`
	Notes       *string `json:"adminNotes,omitempty"`
}

func (s *Server) handleRefund(w http.ResponseWriter, r *http.Request) {
	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	refund, err := s.refundUC.ProcessRefund(r.Context(), usecase.ProcessRefundRequest{
		PaymentID:   req.PaymentID,
		Amount:      req.Amount,
		Reason:      model.RefundReason(req.Reason),
		ProcessedBy: req.ProcessedBy,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, refund)
}

type createSubscriptionRequest struct {
	UserID          string `json:"userId"`
	Plan            string `json:"plan"`
	Currency        string `json:"currency"`
	PaymentMethodID string `json:"paymentMethodId,omitempty"`
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req createSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	out, err := s.subUC.CreateSubscription(r.Context(), req.UserID,
		model.SubscriptionPlan(req.Plan), model.Currency(req.Currency), req.PaymentMethodID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"subscriptionId": out.SubscriptionID,
		"clientSecret":   out.ClientSecret,
		"status":         out.Status,
	})
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := s.subUC.GetSubscription(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleUpdatePlan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Plan string `json:"plan"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	sub, err := s.subUC.UpdatePlan(r.Context(), chi.URLParam(r, "id"), model.SubscriptionPlan(req.Plan))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

func (s *Server) handleCancelSubscription(w http.ResponseWriter, r *http.Request) {
	cancelAtPeriodEnd, _ := strconv.ParseBool(r.URL.Query().Get("cancelAtPeriodEnd"))

	sub, err := s.subUC.CancelSubscription(r.Context(), chi.URLParam(r, "id"), cancelAtPeriodEnd)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sub)
}

// handleWebhook reads the raw body; the signature covers the exact bytes, so
// nothing upstream may parse or rewrite the payload first.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, domain.ErrInvalidArgument)
		return
	}

	if err := s.webhookUC.ProcessWebhook(r.Context(), body, r.Header.Get("Stripe-Signature")); err != nil {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Msg("webhook processing failed")
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"received": true})
}
