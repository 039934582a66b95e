package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"eventspots/internal/delivery/http/helpers"
	"eventspots/internal/delivery/http/middleware"
	"eventspots/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testLogger is a no-op logger for controller tests so we don't assert on log output.
var testLogger = slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))

// authedRequest attaches admin claims to the request context, as RequireAuth would.
func authedRequest(r *http.Request, schoolID string) *http.Request {
	return r.WithContext(middleware.SetClaims(r.Context(), &domain.TokenClaims{
		AdminID:  "admin-1",
		SchoolID: schoolID,
		Role:     domain.RoleAdmin,
	}))
}

// newJSONRequest builds a request with a JSON-encoded body.
func newJSONRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	encoded, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(method, target, bytes.NewReader(encoded))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// fakeRegAdminService implements domain.RegistrationAdminService for handler tests.
type fakeRegAdminService struct {
	listResult      []*domain.Registration
	listTotal       int
	listErr         error
	getResult       *domain.Registration
	getErr          error
	manualAddResult *domain.RegistrationResult
	manualAddErr    error
	cancelResult    *domain.Registration
	cancelErr       error
	updateResult    *domain.Registration
	updateErr       error
	deleteErr       error

	lastEventID  string
	lastFilter   domain.RegistrationFilter
	lastParams   domain.PaginationParams
	lastForce    bool
	lastRequest  *domain.RegistrationRequest
	lastNewSpots int
	lastTenant   domain.Tenant
}

func (f *fakeRegAdminService) List(_ context.Context, tenant domain.Tenant, eventID string, filter domain.RegistrationFilter, params domain.PaginationParams) ([]*domain.Registration, int, error) {
	f.lastTenant, f.lastEventID, f.lastFilter, f.lastParams = tenant, eventID, filter, params
	return f.listResult, f.listTotal, f.listErr
}

func (f *fakeRegAdminService) Get(_ context.Context, tenant domain.Tenant, registrationID string) (*domain.Registration, error) {
	f.lastTenant = tenant
	return f.getResult, f.getErr
}

func (f *fakeRegAdminService) ManualAdd(_ context.Context, tenant domain.Tenant, eventID string, req *domain.RegistrationRequest, force bool) (*domain.RegistrationResult, error) {
	f.lastTenant, f.lastEventID, f.lastRequest, f.lastForce = tenant, eventID, req, force
	return f.manualAddResult, f.manualAddErr
}

func (f *fakeRegAdminService) Cancel(_ context.Context, tenant domain.Tenant, registrationID string, reason *string) (*domain.Registration, error) {
	f.lastTenant = tenant
	return f.cancelResult, f.cancelErr
}

func (f *fakeRegAdminService) UpdateSpots(_ context.Context, tenant domain.Tenant, registrationID string, newSpots int) (*domain.Registration, error) {
	f.lastTenant, f.lastNewSpots = tenant, newSpots
	return f.updateResult, f.updateErr
}

func (f *fakeRegAdminService) Delete(_ context.Context, tenant domain.Tenant, registrationID string) error {
	f.lastTenant = tenant
	return f.deleteErr
}

// fakePromotionService implements domain.PromotionService.
type fakePromotionService struct {
	result *domain.Registration
	err    error
}

func (f *fakePromotionService) Promote(_ context.Context, tenant domain.Tenant, registrationID string) (*domain.Registration, error) {
	return f.result, f.err
}

func TestRegistrationController_List(t *testing.T) {
	svc := &fakeRegAdminService{
		listResult: []*domain.Registration{
			{ID: "reg-1", Status: domain.RegistrationConfirmed, SpotsCount: 2},
			{ID: "reg-2", Status: domain.RegistrationWaitlist, SpotsCount: 1},
		},
		listTotal: 42,
	}
	c := NewRegistrationController(testLogger, svc, &fakePromotionService{})

	req := httptest.NewRequest(http.MethodGet,
		"http://test/events/event-1/registrations?status=CONFIRMED&search=0501&page=2&page_size=10", nil)
	req.SetPathValue("eventID", "event-1")
	rr := httptest.NewRecorder()

	c.List(rr, authedRequest(req, "school-1"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "event-1", svc.lastEventID)
	assert.Equal(t, domain.RegistrationFilter{Status: "CONFIRMED", Search: "0501"}, svc.lastFilter)
	assert.Equal(t, domain.PaginationParams{Page: 2, PageSize: 10}, svc.lastParams)
	assert.Equal(t, "school-1", svc.lastTenant.SchoolID)

	var envelope struct {
		Data  ListRegistrationsResponse `json:"data"`
		Error *helpers.APIError         `json:"error"`
	}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
	require.Nil(t, envelope.Error)
	assert.Len(t, envelope.Data.Registrations, 2)
	assert.Equal(t, 42, envelope.Data.Pagination.Total)
	assert.Equal(t, 5, envelope.Data.Pagination.TotalPages)
}

func TestRegistrationController_List_Unauthenticated(t *testing.T) {
	c := NewRegistrationController(testLogger, &fakeRegAdminService{}, &fakePromotionService{})

	req := httptest.NewRequest(http.MethodGet, "http://test/events/event-1/registrations", nil)
	req.SetPathValue("eventID", "event-1")
	rr := httptest.NewRecorder()

	c.List(rr, req)

	require.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestRegistrationController_ManualAdd(t *testing.T) {
	t.Run("force flag from query reaches the service", func(t *testing.T) {
		svc := &fakeRegAdminService{
			manualAddResult: &domain.RegistrationResult{
				RegistrationID:   "reg-1",
				Status:           domain.RegistrationConfirmed,
				ConfirmationCode: "X7K2PQ",
			},
		}
		c := NewRegistrationController(testLogger, svc, &fakePromotionService{})

		body, _ := json.Marshal(ManualAddRequest{Phone: "0501234567", SpotsCount: 3})
		req := httptest.NewRequest(http.MethodPost,
			"http://test/events/event-1/registrations?force=true", bytes.NewReader(body))
		req.SetPathValue("eventID", "event-1")
		rr := httptest.NewRecorder()

		c.ManualAdd(rr, authedRequest(req, "school-1"))

		require.Equal(t, http.StatusCreated, rr.Code)
		assert.True(t, svc.lastForce)
		require.NotNil(t, svc.lastRequest)
		assert.Equal(t, "0501234567", svc.lastRequest.Phone)
		assert.Equal(t, 3, svc.lastRequest.SpotsCount)
	})

	t.Run("duplicate phone maps to 409 conflict", func(t *testing.T) {
		svc := &fakeRegAdminService{manualAddErr: domain.ErrDuplicateRegistration}
		c := NewRegistrationController(testLogger, svc, &fakePromotionService{})

		body, _ := json.Marshal(ManualAddRequest{Phone: "0501234567", SpotsCount: 1})
		req := httptest.NewRequest(http.MethodPost, "http://test/events/event-1/registrations", bytes.NewReader(body))
		req.SetPathValue("eventID", "event-1")
		rr := httptest.NewRecorder()

		c.ManualAdd(rr, authedRequest(req, "school-1"))

		require.Equal(t, http.StatusConflict, rr.Code)
		var envelope helpers.APIResponse
		require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
		require.NotNil(t, envelope.Error)
		assert.Equal(t, helpers.ErrCodeConflict, envelope.Error.Code)
	})

	t.Run("missing phone is rejected before the service", func(t *testing.T) {
		svc := &fakeRegAdminService{}
		c := NewRegistrationController(testLogger, svc, &fakePromotionService{})

		body, _ := json.Marshal(ManualAddRequest{SpotsCount: 1})
		req := httptest.NewRequest(http.MethodPost, "http://test/events/event-1/registrations", bytes.NewReader(body))
		req.SetPathValue("eventID", "event-1")
		rr := httptest.NewRecorder()

		c.ManualAdd(rr, authedRequest(req, "school-1"))

		require.Equal(t, http.StatusBadRequest, rr.Code)
		assert.Nil(t, svc.lastRequest)
	})
}

func TestRegistrationController_Promote(t *testing.T) {
	t.Run("promoted registration is returned", func(t *testing.T) {
		promo := &fakePromotionService{
			result: &domain.Registration{ID: "reg-1", Status: domain.RegistrationConfirmed},
		}
		c := NewRegistrationController(testLogger, &fakeRegAdminService{}, promo)

		req := httptest.NewRequest(http.MethodPost, "http://test/registrations/reg-1/promote", nil)
		req.SetPathValue("registrationID", "reg-1")
		rr := httptest.NewRecorder()

		c.Promote(rr, authedRequest(req, "school-1"))

		require.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("overbooking promotion maps to 409", func(t *testing.T) {
		promo := &fakePromotionService{err: domain.ErrWouldOverbook}
		c := NewRegistrationController(testLogger, &fakeRegAdminService{}, promo)

		req := httptest.NewRequest(http.MethodPost, "http://test/registrations/reg-1/promote", nil)
		req.SetPathValue("registrationID", "reg-1")
		rr := httptest.NewRecorder()

		c.Promote(rr, authedRequest(req, "school-1"))

		require.Equal(t, http.StatusConflict, rr.Code)
	})

	t.Run("cross-tenant registration maps to 404", func(t *testing.T) {
		promo := &fakePromotionService{err: domain.ErrNotFound}
		c := NewRegistrationController(testLogger, &fakeRegAdminService{}, promo)

		req := httptest.NewRequest(http.MethodPost, "http://test/registrations/reg-1/promote", nil)
		req.SetPathValue("registrationID", "reg-1")
		rr := httptest.NewRecorder()

		c.Promote(rr, authedRequest(req, "school-1"))

		require.Equal(t, http.StatusNotFound, rr.Code)
	})
}

func TestRegistrationController_UpdateSpots(t *testing.T) {
	svc := &fakeRegAdminService{
		updateResult: &domain.Registration{ID: "reg-1", SpotsCount: 4},
	}
	c := NewRegistrationController(testLogger, svc, &fakePromotionService{})

	body, _ := json.Marshal(UpdateSpotsRequest{SpotsCount: 4})
	req := httptest.NewRequest(http.MethodPatch, "http://test/registrations/reg-1/spots", bytes.NewReader(body))
	req.SetPathValue("registrationID", "reg-1")
	rr := httptest.NewRecorder()

	c.UpdateSpots(rr, authedRequest(req, "school-1"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 4, svc.lastNewSpots)
}
