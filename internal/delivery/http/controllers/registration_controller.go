package controllers

import (
	"log/slog"
	"net/http"

	"eventspots/internal/delivery/http/helpers"
	"eventspots/internal/delivery/http/middleware"
	"eventspots/internal/domain"
)

// RegistrationController serves the admin-side registration operations,
// including manual adds and waitlist promotion.
type RegistrationController struct {
	Logger    *slog.Logger
	Service   domain.RegistrationAdminService
	Promotion domain.PromotionService
}

func NewRegistrationController(logger *slog.Logger, svc domain.RegistrationAdminService, promotion domain.PromotionService) *RegistrationController {
	return &RegistrationController{
		Logger:    logger,
		Service:   svc,
		Promotion: promotion,
	}
}

// ListRegistrationsResponse is the data payload for GET /events/{eventID}/registrations (200).
type ListRegistrationsResponse struct {
	Registrations []*domain.Registration `json:"registrations"`
	Pagination    helpers.PaginationMeta `json:"pagination"`
}

// ListRegistrationsSuccessResponse is the success response envelope for GET /events/{eventID}/registrations (200).
type ListRegistrationsSuccessResponse struct {
	Data  ListRegistrationsResponse `json:"data"`
	Error *helpers.APIError         `json:"error"`
}

// List godoc
// @Summary List registrations for an event
// @Description Returns registrations for an event, newest first. Filter by status (CONFIRMED, WAITLIST, CANCELLED) and search by phone number or confirmation code.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param status query string false "Filter by registration status"
// @Param search query string false "Match phone number or confirmation code"
// @Param page query int false "Page number (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} controllers.ListRegistrationsSuccessResponse "data contains registrations and pagination"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [get]
func (c *RegistrationController) List(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	filter := domain.RegistrationFilter{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
	}
	params := helpers.ParsePagination(r)
	regs, total, err := c.Service.List(r.Context(), tenant, eventID, filter, params)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, ListRegistrationsResponse{
		Registrations: regs,
		Pagination:    helpers.NewPaginationMeta(params.Page, params.PageSize, total),
	})
}

// GetRegistrationSuccessResponse is the success response envelope for GET /registrations/{registrationID} (200).
type GetRegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Get godoc
// @Summary Get a registration by ID
// @Description Returns a single registration. Cross-school IDs read as not found.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.GetRegistrationSuccessResponse "data contains the registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID} [get]
func (c *RegistrationController) Get(w http.ResponseWriter, r *http.Request) {
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
	reg, err := c.Service.Get(r.Context(), tenant, registrationID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// ManualAddRequest is the request body for POST /events/{eventID}/registrations.
type ManualAddRequest struct {
	Phone      string         `json:"phone"`
	Email      string         `json:"email"`
	SpotsCount int            `json:"spots_count"`
	Data       map[string]any `json:"data"`
}

// Validate implements Validator.
func (m ManualAddRequest) Validate() []string {
	var errs []string
	if m.Phone == "" {
		errs = append(errs, "phone is required")
	}
	if m.SpotsCount < 1 {
		errs = append(errs, "spots_count must be at least 1")
	}
	return errs
}

// ManualAddSuccessResponse is the success response envelope for POST /events/{eventID}/registrations (201).
type ManualAddSuccessResponse struct {
	Data  *domain.RegistrationResult `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// ManualAdd godoc
// @Summary Add a registration on behalf of a participant
// @Description Registers a participant without going through the public form. No payment is collected; money changes hands offline. With force=true the registration is confirmed even when the event is full or closed, and the spots ledger is incremented past capacity.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param force query bool false "Confirm even when full or closed"
// @Param body body ManualAddRequest true "Registration details"
// @Success 201 {object} controllers.ManualAddSuccessResponse "data contains the registration result"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (closed event or duplicate phone)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID}/registrations [post]
func (c *RegistrationController) ManualAdd(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req ManualAddRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	force := r.URL.Query().Get("force") == "true"
	result, err := c.Service.ManualAdd(r.Context(), tenant, eventID, &domain.RegistrationRequest{
		Phone:      req.Phone,
		Email:      req.Email,
		SpotsCount: req.SpotsCount,
		Data:       req.Data,
	}, force)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, result)
}

// PromoteSuccessResponse is the success response envelope for POST /registrations/{registrationID}/promote (200).
type PromoteSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Promote godoc
// @Summary Promote a waitlisted registration
// @Description Moves a WAITLIST registration to CONFIRMED, re-validating capacity at promotion time. A promotion that would overbook is refused with 409 and triggers the overbooking alert email.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.PromoteSuccessResponse "data contains the promoted registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (not waitlisted or would overbook)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/promote [post]
func (c *RegistrationController) Promote(w http.ResponseWriter, r *http.Request) {
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
	reg, err := c.Promotion.Promote(r.Context(), tenant, registrationID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// AdminCancelRequest is the optional request body for POST /registrations/{registrationID}/cancel.
type AdminCancelRequest struct {
	Reason *string `json:"reason"`
}

// CancelRegistrationSuccessResponse is the success response envelope for POST /registrations/{registrationID}/cancel (200).
type CancelRegistrationSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Cancel godoc
// @Summary Cancel a registration
// @Description Cancels a registration as the admin. Confirmed spots are released back to the event.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Param body body AdminCancelRequest false "Optional cancellation reason"
// @Success 200 {object} controllers.CancelRegistrationSuccessResponse "data contains the cancelled registration"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already cancelled)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/cancel [post]
func (c *RegistrationController) Cancel(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return
	}
	var req AdminCancelRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !helpers.DecodeAndValidate(w, r, &req) {
			return
		}
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	reg, err := c.Service.Cancel(r.Context(), tenant, registrationID, req.Reason)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// UpdateSpotsRequest is the request body for PATCH /registrations/{registrationID}/spots.
type UpdateSpotsRequest struct {
	SpotsCount int `json:"spots_count"`
}

// Validate implements Validator.
func (u UpdateSpotsRequest) Validate() []string {
	var errs []string
	if u.SpotsCount < 1 {
		errs = append(errs, "spots_count must be at least 1")
	}
	return errs
}

// UpdateSpotsSuccessResponse is the success response envelope for PATCH /registrations/{registrationID}/spots (200).
type UpdateSpotsSuccessResponse struct {
	Data  *domain.Registration `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// UpdateSpots godoc
// @Summary Change a registration's spots count
// @Description Updates the number of spots held by a registration. For a confirmed registration the capacity ledger is adjusted; an increase that does not fit is refused.
// @Tags registrations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Param body body UpdateSpotsRequest true "New spots count"
// @Success 200 {object} controllers.UpdateSpotsSuccessResponse "data contains the updated registration"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (would exceed capacity)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID}/spots [patch]
func (c *RegistrationController) UpdateSpots(w http.ResponseWriter, r *http.Request) {
	registrationID := r.PathValue("registrationID")
	if registrationID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing registrationID")
		return
	}
	var req UpdateSpotsRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	reg, err := c.Service.UpdateSpots(r.Context(), tenant, registrationID, req.SpotsCount)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, reg)
}

// DeleteRegistrationResponse is the data payload for DELETE /registrations/{registrationID} (200).
type DeleteRegistrationResponse struct {
	Status string `json:"status"`
}

// DeleteRegistrationSuccessResponse is the success response envelope for DELETE /registrations/{registrationID} (200).
type DeleteRegistrationSuccessResponse struct {
	Data  DeleteRegistrationResponse `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// Delete godoc
// @Summary Delete a registration
// @Description Hard-deletes a registration and its payment. Confirmed spots are released back to the event. Prefer cancel, which keeps the row for the audit trail.
// @Tags registrations
// @Produce json
// @Security BearerAuth
// @Param registrationID path string true "Registration ID (UUID)"
// @Success 200 {object} controllers.DeleteRegistrationSuccessResponse "data contains status"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /registrations/{registrationID} [delete]
func (c *RegistrationController) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := c.Service.Delete(r.Context(), tenant, registrationID); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteRegistrationResponse{Status: "deleted"})
}
