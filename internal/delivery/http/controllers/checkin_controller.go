package controllers

import (
	"log/slog"
	"net/http"

	"eventspots/internal/delivery/http/helpers"
	"eventspots/internal/domain"
)

// CheckInController serves the door staff check-in flow. The event's check-in
// token in the query string is the capability; no admin session is required.
type CheckInController struct {
	Logger  *slog.Logger
	Service domain.CheckInService
}

func NewCheckInController(logger *slog.Logger, svc domain.CheckInService) *CheckInController {
	return &CheckInController{
		Logger:  logger,
		Service: svc,
	}
}

// CheckInRequest is the optional request body for check-in, naming who did it.
type CheckInRequest struct {
	CheckedInBy *string `json:"checked_in_by"`
}

// CheckInSuccessResponse is the success response envelope for the check-in endpoints (200/201).
type CheckInSuccessResponse struct {
	Data  *domain.CheckIn   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CheckIn godoc
// @Summary Check a participant in
// @Description Records an arrival for a confirmed registration. Requires the event's check-in token as a query parameter. A registration whose last check-in was undone may be checked in again.
// @Tags check-in
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param registrationID path string true "Registration ID (UUID)"
// @Param token query string true "Event check-in token"
// @Param body body CheckInRequest false "Who performed the check-in"
// @Success 201 {object} controllers.CheckInSuccessResponse "data contains the check-in record"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (bad token)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already checked in or not confirmed)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /checkin/{eventID}/registrations/{registrationID} [post]
func (c *CheckInController) CheckIn(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	registrationID := r.PathValue("registrationID")
	token := r.URL.Query().Get("token")
	if eventID == "" || registrationID == "" || token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID, registrationID, or token")
		return
	}
	var req CheckInRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !helpers.DecodeAndValidate(w, r, &req) {
			return
		}
	}
	checkIn, err := c.Service.CheckIn(r.Context(), eventID, token, registrationID, req.CheckedInBy)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, checkIn)
}

// UndoCheckInRequest is the optional request body for undoing a check-in.
type UndoCheckInRequest struct {
	UndoneBy     *string `json:"undone_by"`
	UndoneReason *string `json:"undone_reason"`
}

// UndoCheckIn godoc
// @Summary Undo a check-in
// @Description Marks the registration's latest check-in as undone. The record is kept for the audit trail.
// @Tags check-in
// @Accept json
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param registrationID path string true "Registration ID (UUID)"
// @Param token query string true "Event check-in token"
// @Param body body UndoCheckInRequest false "Who undid the check-in and why"
// @Success 200 {object} controllers.CheckInSuccessResponse "data contains the undone check-in record"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (bad token)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already undone)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /checkin/{eventID}/registrations/{registrationID}/undo [post]
func (c *CheckInController) UndoCheckIn(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	registrationID := r.PathValue("registrationID")
	token := r.URL.Query().Get("token")
	if eventID == "" || registrationID == "" || token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID, registrationID, or token")
		return
	}
	var req UndoCheckInRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !helpers.DecodeAndValidate(w, r, &req) {
			return
		}
	}
	checkIn, err := c.Service.Undo(r.Context(), eventID, token, registrationID, req.UndoneBy, req.UndoneReason)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, checkIn)
}

// StatsSuccessResponse is the success response envelope for GET /checkin/{eventID}/stats (200).
type StatsSuccessResponse struct {
	Data  *domain.CheckInStats `json:"data"`
	Error *helpers.APIError    `json:"error"`
}

// Stats godoc
// @Summary Check-in statistics for an event
// @Description Returns confirmed spots, checked-in spots, and the number of checked-in registrations.
// @Tags check-in
// @Produce json
// @Param eventID path string true "Event ID (UUID)"
// @Param token query string true "Event check-in token"
// @Success 200 {object} controllers.StatsSuccessResponse "data contains the stats"
// @Failure 403 {object} helpers.APIResponse "error.code: forbidden (bad token)"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /checkin/{eventID}/stats [get]
func (c *CheckInController) Stats(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	token := r.URL.Query().Get("token")
	if eventID == "" || token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID or token")
		return
	}
	stats, err := c.Service.Stats(r.Context(), eventID, token)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, stats)
}
