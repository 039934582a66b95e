package controllers

import (
	"log/slog"
	"net/http"
	"time"

	"eventspots/internal/delivery/http/helpers"
	"eventspots/internal/domain"
)

// PublicController serves the unauthenticated registration flow: the event
// page, the registration form submission, and self-service cancellation.
type PublicController struct {
	Logger       *slog.Logger
	Events       domain.EventService
	Registration domain.AllocationService
}

func NewPublicController(logger *slog.Logger, events domain.EventService, registration domain.AllocationService) *PublicController {
	return &PublicController{
		Logger:       logger,
		Events:       events,
		Registration: registration,
	}
}

// PublicEventResponse is the public view of an event. It omits the reserved
// ledger and tokens; only whether spots remain is exposed.
type PublicEventResponse struct {
	SchoolName                string             `json:"school_name"`
	Title                     string             `json:"title"`
	Status                    string             `json:"status"`
	SpotsAvailable            int                `json:"spots_available"`
	MaxSpotsPerPerson         int                `json:"max_spots_per_person"`
	PaymentRequired           bool               `json:"payment_required"`
	PriceAmount               int64              `json:"price_amount"`
	IncludeProcessingFee      bool               `json:"include_processing_fee"`
	StartAt                   time.Time          `json:"start_at"`
	Location                  *string            `json:"location,omitempty"`
	CancellationDeadlineHours int                `json:"cancellation_deadline_hours"`
	Fields                    []domain.FieldSpec `json:"fields"`
}

// PublicEventSuccessResponse is the success response envelope for GET /p/{schoolSlug}/{eventSlug} (200).
type PublicEventSuccessResponse struct {
	Data  PublicEventResponse `json:"data"`
	Error *helpers.APIError   `json:"error"`
}

// GetEvent godoc
// @Summary Get the public event page
// @Description Returns the public view of an event by school slug and event slug. Spots available is clamped to zero so overbooked events simply read as full.
// @Tags public
// @Produce json
// @Param schoolSlug path string true "School slug"
// @Param eventSlug path string true "Event slug"
// @Success 200 {object} controllers.PublicEventSuccessResponse "data contains the public event view"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /p/{schoolSlug}/{eventSlug} [get]
func (c *PublicController) GetEvent(w http.ResponseWriter, r *http.Request) {
	schoolSlug := r.PathValue("schoolSlug")
	eventSlug := r.PathValue("eventSlug")
	if schoolSlug == "" || eventSlug == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing school or event slug")
		return
	}
	school, event, err := c.Events.PublicEvent(r.Context(), schoolSlug, eventSlug)
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	available := event.SpotsAvailable()
	if available < 0 {
		available = 0
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, PublicEventResponse{
		SchoolName:                school.Name,
		Title:                     event.Title,
		Status:                    event.Status,
		SpotsAvailable:            available,
		MaxSpotsPerPerson:         event.MaxSpotsPerPerson,
		PaymentRequired:           event.PaymentRequired,
		PriceAmount:               event.PriceAmount,
		IncludeProcessingFee:      event.IncludeProcessingFee,
		StartAt:                   event.StartAt,
		Location:                  event.Location,
		CancellationDeadlineHours: event.CancellationDeadlineHours,
		Fields:                    event.Fields,
	})
}

// RegisterRequest is the request body for POST /p/{schoolSlug}/{eventSlug}/registrations.
type RegisterRequest struct {
	Phone      string         `json:"phone"`
	Email      string         `json:"email"`
	SpotsCount int            `json:"spots_count"`
	Data       map[string]any `json:"data"`
}

// Validate implements Validator. Phone format and the per-event spots limit
// are checked by the allocation engine; only basic shape is validated here.
func (r RegisterRequest) Validate() []string {
	var errs []string
	if r.Phone == "" {
		errs = append(errs, "phone is required")
	}
	if r.SpotsCount < 1 {
		errs = append(errs, "spots_count must be at least 1")
	}
	return errs
}

// RegisterSuccessResponse is the success response envelope for the registration submission (201).
type RegisterSuccessResponse struct {
	Data  *domain.RegistrationResult `json:"data"`
	Error *helpers.APIError          `json:"error"`
}

// Register godoc
// @Summary Register for an event
// @Description Submits a registration. The engine atomically decides CONFIRMED or WAITLIST against the live capacity. For paid events the response carries the payment instruction to redirect the customer to the payment page; waitlisted registrations defer payment until promotion.
// @Tags public
// @Accept json
// @Produce json
// @Param schoolSlug path string true "School slug"
// @Param eventSlug path string true "Event slug"
// @Param body body RegisterRequest true "Registration form"
// @Success 201 {object} controllers.RegisterSuccessResponse "data contains the registration result"
// @Failure 400 {object} helpers.APIResponse "error.code: bad_request"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (closed event or duplicate phone)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /p/{schoolSlug}/{eventSlug}/registrations [post]
func (c *PublicController) Register(w http.ResponseWriter, r *http.Request) {
	schoolSlug := r.PathValue("schoolSlug")
	eventSlug := r.PathValue("eventSlug")
	if schoolSlug == "" || eventSlug == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing school or event slug")
		return
	}
	var req RegisterRequest
	if !helpers.DecodeAndValidate(w, r, &req) {
		return
	}
	result, err := c.Registration.Register(r.Context(), schoolSlug, eventSlug, &domain.RegistrationRequest{
		Phone:      req.Phone,
		Email:      req.Email,
		SpotsCount: req.SpotsCount,
		Data:       req.Data,
	})
	if err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusCreated, result)
}

// CancelRequest is the optional request body for self-service cancellation.
type CancelRequest struct {
	Reason *string `json:"reason"`
}

// CancelResponse is the data payload for POST /cancel/{token} (200).
type CancelResponse struct {
	Status string `json:"status"`
}

// CancelSuccessResponse is the success response envelope for POST /cancel/{token} (200).
type CancelSuccessResponse struct {
	Data  CancelResponse    `json:"data"`
	Error *helpers.APIError `json:"error"`
}

// Cancel godoc
// @Summary Cancel a registration by token
// @Description Customer self-service cancellation via the token from the confirmation email. Refused once the event's cancellation deadline has passed.
// @Tags public
// @Accept json
// @Produce json
// @Param token path string true "Cancellation token"
// @Param body body CancelRequest false "Optional cancellation reason"
// @Success 200 {object} controllers.CancelSuccessResponse "data contains status"
// @Failure 404 {object} helpers.APIResponse "error.code: not_found"
// @Failure 409 {object} helpers.APIResponse "error.code: conflict (already cancelled or past the deadline)"
// @Failure 500 {object} helpers.APIResponse "error.code: internal_error"
// @Router /cancel/{token} [post]
func (c *PublicController) Cancel(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	if token == "" {
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrCodeBadRequest, "missing token")
		return
	}
	var req CancelRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !helpers.DecodeAndValidate(w, r, &req) {
			return
		}
	}
	if err := c.Registration.CancelByToken(r.Context(), token, req.Reason); err != nil {
		writeServiceError(c.Logger, w, r, err)
		return
	}
	helpers.WriteJSONSuccess(w, http.StatusOK, CancelResponse{Status: "cancelled"})
}
