package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"eventspots/internal/delivery/http/helpers"
	"eventspots/internal/delivery/http/middleware"
	"eventspots/internal/domain"
)

type EventController struct {
	Logger  *slog.Logger
	Service domain.EventService
	BaseURL string
}

func NewEventController(logger *slog.Logger, svc domain.EventService, baseURL string) *EventController {
	return &EventController{
		Logger:  logger,
		Service: svc,
		BaseURL: baseURL,
	}
}

// CreateEventRequest is the request body for POST /events.
type CreateEventRequest struct {
	Title                     string             `json:"title"`
	Slug                      string             `json:"slug"`
	Capacity                  int                `json:"capacity"`
	MaxSpotsPerPerson         int                `json:"max_spots_per_person"`
	PaymentRequired           bool               `json:"payment_required"`
	PriceAmount               int64              `json:"price_amount"`
	IncludeProcessingFee      bool               `json:"include_processing_fee"`
	StartAt                   time.Time          `json:"start_at"`
	Location                  *string            `json:"location"`
	CancellationDeadlineHours int                `json:"cancellation_deadline_hours"`
	Fields                    []domain.FieldSpec `json:"fields"`
}

// Validate implements Validator. Returns error messages for required and format rules.
func (c CreateEventRequest) Validate() []string {
	var errs []string
	if c.Title == "" {
		errs = append(errs, "title is required")
	}
	if c.Capacity < 0 {
		errs = append(errs, "capacity cannot be negative")
	}
	if c.StartAt.IsZero() {
		errs = append(errs, "start_at is required")
	}
	if c.PaymentRequired && c.PriceAmount <= 0 {
		errs = append(errs, "price_amount must be positive for paid events")
	}
	if c.CancellationDeadlineHours < 0 {
		errs = append(errs, "cancellation_deadline_hours must be non-negative")
	}
	return errs
}

// CreateEventSuccessResponse is the success response envelope for POST /events (201).
type CreateEventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// CreateEvent godoc
// @Summary Create a new event
// @Description Creates a registerable event for the authenticated admin's school. The slug is derived from the title when omitted. A check-in link is generated for the event.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param event body CreateEventRequest true "Event data"
// @Success 201 {object} controllers.CreateEventSuccessResponse "data contains the created event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [post]
func (c *EventController) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var req CreateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event := &domain.Event{
		Title:                     req.Title,
		Slug:                      req.Slug,
		Capacity:                  req.Capacity,
		MaxSpotsPerPerson:         req.MaxSpotsPerPerson,
		PaymentRequired:           req.PaymentRequired,
		PriceAmount:               req.PriceAmount,
		IncludeProcessingFee:      req.IncludeProcessingFee,
		StartAt:                   req.StartAt,
		Location:                  req.Location,
		CancellationDeadlineHours: req.CancellationDeadlineHours,
		Fields:                    req.Fields,
	}
	if err := c.Service.CreateEvent(r.Context(), tenant, event); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, event)
}

// ListEventsSuccessResponse is the success response envelope for GET /events (200).
type ListEventsSuccessResponse struct {
	Data  []*domain.Event   `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// ListEvents godoc
// @Summary List the school's events
// @Description Returns all events belonging to the authenticated admin's school.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Success 200 {object} controllers.ListEventsSuccessResponse "data contains the events"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events [get]
func (c *EventController) ListEvents(w http.ResponseWriter, r *http.Request) {
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	events, err := c.Service.ListEvents(r.Context(), tenant)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, events)
}

// GetEventResponse is the data payload for GET /events/{eventID}. CheckInURL
// is the capability link for the door staff.
type GetEventResponse struct {
	Event      *domain.Event `json:"event"`
	CheckInURL string        `json:"check_in_url"`
}

// GetEventSuccessResponse is the success response envelope for GET /events/{eventID} (200).
type GetEventSuccessResponse struct {
	Data  GetEventResponse  `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// GetEvent godoc
// @Summary Get an event by ID
// @Description Returns the event along with its check-in link. Cross-school IDs read as not found.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.GetEventSuccessResponse "data contains the event and check-in link"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [get]
func (c *EventController) GetEvent(w http.ResponseWriter, r *http.Request) {
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
	event, err := c.Service.GetEvent(r.Context(), tenant, eventID)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, GetEventResponse{
		Event:      event,
		CheckInURL: c.BaseURL + "/checkin/" + event.ID + "?token=" + event.CheckInToken,
	})
}

// UpdateEventRequest is the request body for PATCH /events/{eventID}.
// All fields optional; omitted fields are unchanged.
type UpdateEventRequest struct {
	Title                     *string            `json:"title"`
	Status                    *string            `json:"status"`
	Capacity                  *int               `json:"capacity"`
	MaxSpotsPerPerson         *int               `json:"max_spots_per_person"`
	StartAt                   *time.Time         `json:"start_at"`
	Location                  *string            `json:"location"`
	CancellationDeadlineHours *int               `json:"cancellation_deadline_hours"`
	Fields                    []domain.FieldSpec `json:"fields"`
}

// Validate implements Validator.
func (u UpdateEventRequest) Validate() []string {
	var errs []string
	if u.Title != nil && *u.Title == "" {
		errs = append(errs, "title must not be empty")
	}
	if u.CancellationDeadlineHours != nil && *u.CancellationDeadlineHours < 0 {
		errs = append(errs, "cancellation_deadline_hours must be non-negative")
	}
	return errs
}

// UpdateEventSuccessResponse is the success response envelope for PATCH /events/{eventID} (200).
type UpdateEventSuccessResponse struct {
	Data  *domain.Event     `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// UpdateEvent godoc
// @Summary Update event details
// @Description Partially updates an event. Capacity cannot be lowered below the currently reserved spots. Status must be one of OPEN, PAUSED, CLOSED.
// @Tags events
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Param body body UpdateEventRequest true "Fields to update (all optional)"
// @Success 200 {object} controllers.UpdateEventSuccessResponse "data contains the updated event"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [patch]
func (c *EventController) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	eventID := r.PathValue("eventID")
	if eventID == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing eventID")
		return
	}
	var req UpdateEventRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	tenant, ok := middleware.TenantFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrCodeUnauthorized, "unauthorized")
		return
	}
	event, err := c.Service.UpdateEvent(r.Context(), tenant, eventID, domain.EventUpdate{
		Title:                     req.Title,
		Status:                    req.Status,
		Capacity:                  req.Capacity,
		MaxSpotsPerPerson:         req.MaxSpotsPerPerson,
		StartAt:                   req.StartAt,
		Location:                  req.Location,
		CancellationDeadlineHours: req.CancellationDeadlineHours,
		Fields:                    req.Fields,
	})
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, event)
}

// DeleteEventResponse is the data payload for DELETE /events/{eventID} (200).
type DeleteEventResponse struct {
	Status string `json:"status"`
}

// DeleteEventSuccessResponse is the success response envelope for DELETE /events/{eventID} (200).
type DeleteEventSuccessResponse struct {
	Data  DeleteEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// DeleteEvent godoc
// @Summary Delete an event
// @Description Deletes an event and all its registrations, payments, and check-ins.
// @Tags events
// @Produce json
// @Security BearerAuth
// @Param eventID path string true "Event ID (UUID)"
// @Success 200 {object} controllers.DeleteEventSuccessResponse "data contains status"
// @Failure 401 {object} helpers.APIResponse "error.code: unauthorized"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /events/{eventID} [delete]
func (c *EventController) DeleteEvent(w http.ResponseWriter, r *http.Request) {
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
	if err := c.Service.DeleteEvent(r.Context(), tenant, eventID); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, DeleteEventResponse{Status: "deleted"})
}
