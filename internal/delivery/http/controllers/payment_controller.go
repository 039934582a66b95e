package controllers

import (
	"log/slog"
	"net/http"
	"net/url"

	"eventspots/internal/delivery/http/helpers"
	"eventspots/internal/delivery/http/middleware"
	"eventspots/internal/domain"
)

// CallbackParser validates and parses a raw gateway callback. Implemented by
// the payment gateway adapter; the signature check happens here, before the
// callback reaches the payment service.
type CallbackParser interface {
	ParseCallback(values url.Values) (*domain.GatewayCallback, error)
}

type PaymentController struct {
	Logger  *slog.Logger
	Service domain.PaymentService
	Parser  CallbackParser
}

func NewPaymentController(logger *slog.Logger, svc domain.PaymentService, parser CallbackParser) *PaymentController {
	return &PaymentController{
		Logger:  logger,
		Service: svc,
		Parser:  parser,
	}
}

// CallbackResponse is the data payload for the gateway callback endpoint.
type CallbackResponse struct {
	Status         string `json:"status"` // completed, failed, or already_processed
	RegistrationID string `json:"registration_id"`
}

// CallbackSuccessResponse is the success response envelope for the gateway callback (200).
type CallbackSuccessResponse struct {
	Data  CallbackResponse  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// Callback godoc
// @Summary Payment gateway callback
// @Description Receives the signed gateway callback after the customer completes or abandons payment. The endpoint is idempotent; redelivered callbacks report already_processed. Accepts both GET (customer redirect) and POST (server notification) with the parameters in the query string or form body.
// @Tags payments
// @Produce json
// @Param Order query string true "Gateway order ID"
// @Param Amount query string true "Charged amount in shekels"
// @Param CCode query string true "Gateway result code (0 = success)"
// @Param Sign query string true "HMAC signature over Order, Amount, and CCode"
// @Success 200 {object} controllers.CallbackSuccessResponse "data contains how the callback was applied"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (bad signature)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found (unknown order)"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (amount mismatch)"
// @Router /payments/callback [get]
func (c *PaymentController) Callback(w http.ResponseWriter, r *http.Request) {
	values := r.URL.Query()
	if r.Method == http.MethodPost {
		if err := r.ParseForm(); err != nil {
			helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "malformed form body")
			return
		}
		values = r.Form
	}
	cb, err := c.Parser.ParseCallback(values)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	result, err := c.Service.HandleCallback(r.Context(), cb)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	status := "failed"
	switch {
	case result.AlreadyProcessed:
		status = "already_processed"
	case result.Success:
		status = "completed"
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CallbackResponse{
		Status:         status,
		RegistrationID: result.Payment.RegistrationID,
	})
}

// GetPaymentSuccessResponse is the success response envelope for GET /registrations/{registrationID}/payment (200).
type GetPaymentSuccessResponse struct {
	Data  *domain.Payment   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GetByRegistration godoc
// @Summary Get the payment for a registration
// @Description Returns the payment linked to a registration, if any.
// @Tags payments
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.GetPaymentSuccessResponse "data contains the payment"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/payment [get]
func (c *PaymentController) GetByRegistration(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	payment, err := c.Service.GetByRegistration(r.Context(), tenant, registrationID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, payment)
}

// RefundRequest is the request body for POST /payments/{paymentID}/refund.
type RefundRequest struct {
	Amount int64  `json:"amount"` // agorot
	Reason string `json:"reason"`
}

// Validate implements Validator.
func (rr RefundRequest) Validate() []string {
	var errs []string
	if rr.Amount <= 0 {
		errs = append(errs, "amount must be positive")
	}
	return errs
}

// RefundSuccessResponse is the success response envelope for POST /payments/{paymentID}/refund (200).
type RefundSuccessResponse struct {
	Data  *domain.Payment   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// Refund godoc
// @Summary Record a refund for a completed payment
// @Description Marks a COMPLETED payment as REFUNDED with the given amount (up to the charged amount). The actual money movement happens in the gateway's dashboard; this records it.
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param paymentID path string true "Payment ID (UUID)"
// @Param body body RefundRequest true "Refund amount in agorot and optional reason"
// @Success 200 {object} controllers.RefundSuccessResponse "data contains the refunded payment"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (payment not completed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /payments/{paymentID}/refund [post]
func (c *PaymentController) Refund(w http.ResponseWriter, r *http.Request) {
	paymentID := r.PathValue("paymentID")
	if paymentID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing paymentID")
		return
	}
	var req RefundRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	payment, err := c.Service.Refund(r.Context(), tenant, paymentID, req.Amount, req.Reason)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, payment)
}
