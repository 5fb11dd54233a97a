package http_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/casafacile/golang_services/internal/public_api_service/middleware"
	httptransport "github.com/casafacile/golang_services/internal/public_api_service/transport/http"
	trackingapp "github.com/casafacile/golang_services/internal/tracking_service/app"
	trackingdomain "github.com/casafacile/golang_services/internal/tracking_service/domain"
)

type MockTrackingService struct {
	mock.Mock
}

func (m *MockTrackingService) CheckIn(ctx context.Context, bookingID, professionalID uuid.UUID, source trackingdomain.PositionSource) (*trackingapp.CheckInResult, error) {
	args := m.Called(ctx, bookingID, professionalID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trackingapp.CheckInResult), args.Error(1)
}

func (m *MockTrackingService) CheckOut(ctx context.Context, bookingID, professionalID uuid.UUID, source trackingdomain.PositionSource) (*trackingapp.CheckOutResult, error) {
	args := m.Called(ctx, bookingID, professionalID, source)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trackingapp.CheckOutResult), args.Error(1)
}

func (m *MockTrackingService) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*trackingdomain.TrackingRecord, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*trackingdomain.TrackingRecord), args.Error(1)
}

func newTrackingRouter(svc *MockTrackingService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	handler := httptransport.NewTrackingHandler(svc, validator.New(), time.Minute, logger)
	router := chi.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func reportedPosition() *httptransport.ReportedPosition {
	return &httptransport.ReportedPosition{
		Latitude:       45.4642,
		Longitude:      9.19,
		AccuracyMeters: 12,
		CapturedAt:     time.Now().UTC(),
	}
}

func checkInBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(httptransport.CheckInRequest{Position: reportedPosition()})
	require.NoError(t, err)
	return body
}

func checkOutBody(t *testing.T) []byte {
	t.Helper()
	body, err := json.Marshal(httptransport.CheckOutRequest{Position: reportedPosition()})
	require.NoError(t, err)
	return body
}

func TestTrackingHandler_CheckIn_Success(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	bookingID := uuid.New()
	professional := middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleProfessional}

	rec := trackingdomain.NewTrackingRecord(bookingID, professional.ID, time.Now().UTC(), 45.4642, 9.19,
		trackingdomain.GeofenceResult{DistanceMeters: 42, InRange: true})
	svc.On("CheckIn", mock.Anything, bookingID, professional.ID, mock.Anything).
		Return(&trackingapp.CheckInResult{
			Record:         rec,
			DistanceMeters: 42,
			InRange:        true,
			Notice:         trackingdomain.CheckInNotice(trackingdomain.GeofenceResult{DistanceMeters: 42, InRange: true}),
		}, nil).Once()

	req := authenticatedRequest(http.MethodPost, "/bookings/"+bookingID.String()+"/check-in", checkInBody(t), professional)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusCreated, rr.Code)
	var resp httptransport.TrackingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, bookingID, resp.BookingID)
	assert.Equal(t, 42, resp.DistanceMeters)
	assert.True(t, resp.InRange)
	assert.Equal(t, "checked_in", resp.Status)
	svc.AssertExpectations(t)
}

func TestTrackingHandler_CheckIn_CustomerForbidden(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	customer := middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleCustomer}
	req := authenticatedRequest(http.MethodPost, "/bookings/"+uuid.NewString()+"/check-in", checkInBody(t), customer)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusForbidden, rr.Code)
	svc.AssertNotCalled(t, "CheckIn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackingHandler_CheckIn_DuplicateConflict(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	bookingID := uuid.New()
	professional := middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleProfessional}
	svc.On("CheckIn", mock.Anything, bookingID, professional.ID, mock.Anything).
		Return(nil, trackingdomain.ErrAlreadyCheckedIn).Once()

	req := authenticatedRequest(http.MethodPost, "/bookings/"+bookingID.String()+"/check-in", checkInBody(t), professional)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestTrackingHandler_CheckIn_PositionPermissionDenied(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	bookingID := uuid.New()
	professional := middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleProfessional}
	svc.On("CheckIn", mock.Anything, bookingID, professional.ID, mock.Anything).
		Return(nil, trackingdomain.ErrPositionPermissionDenied).Once()

	body, _ := json.Marshal(httptransport.CheckInRequest{
		Position: &httptransport.ReportedPosition{FailureCode: "permission_denied"},
	})
	req := authenticatedRequest(http.MethodPost, "/bookings/"+bookingID.String()+"/check-in", body, professional)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusUnprocessableEntity, rr.Code)
	var resp httptransport.GenericErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp.Error, "permission")
}

func TestTrackingHandler_CheckIn_MissingPosition(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	professional := middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleProfessional}
	req := authenticatedRequest(http.MethodPost, "/bookings/"+uuid.NewString()+"/check-in", []byte(`{}`), professional)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	svc.AssertNotCalled(t, "CheckIn", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTrackingHandler_CheckOut_Success(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	bookingID := uuid.New()
	professional := middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleProfessional}

	checkInAt := time.Now().UTC().Add(-2 * time.Hour)
	rec := trackingdomain.NewTrackingRecord(bookingID, professional.ID, checkInAt, 45.4642, 9.19,
		trackingdomain.GeofenceResult{DistanceMeters: 42, InRange: true})
	require.NoError(t, rec.Complete(checkInAt.Add(2*time.Hour+15*time.Minute), 45.4643, 9.1901,
		trackingdomain.GeofenceResult{DistanceMeters: 55, InRange: true}))

	svc.On("CheckOut", mock.Anything, bookingID, professional.ID, mock.Anything).
		Return(&trackingapp.CheckOutResult{
			Record:         rec,
			DistanceMeters: 55,
			InRange:        true,
			ActualHours:    *rec.ActualHours,
		}, nil).Once()

	req := authenticatedRequest(http.MethodPost, "/bookings/"+bookingID.String()+"/check-out", checkOutBody(t), professional)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp httptransport.TrackingResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "completed", resp.Status)
	require.NotNil(t, resp.ActualHours)
	assert.InDelta(t, 2.25, *resp.ActualHours, 1e-9)
}

func TestTrackingHandler_CheckOut_WithoutCheckIn(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	bookingID := uuid.New()
	professional := middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleProfessional}
	svc.On("CheckOut", mock.Anything, bookingID, professional.ID, mock.Anything).
		Return(nil, trackingdomain.ErrNotCheckedIn).Once()

	req := authenticatedRequest(http.MethodPost, "/bookings/"+bookingID.String()+"/check-out", checkOutBody(t), professional)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusConflict, rr.Code)
}

func TestTrackingHandler_GetTracking_NotFound(t *testing.T) {
	svc := new(MockTrackingService)
	router := newTrackingRouter(svc)

	bookingID := uuid.New()
	svc.On("GetByBookingID", mock.Anything, bookingID).Return(nil, trackingdomain.ErrNotFound).Once()

	req := authenticatedRequest(http.MethodGet, "/bookings/"+bookingID.String()+"/tracking", nil,
		middleware.AuthenticatedUser{ID: uuid.New(), Role: middleware.RoleCustomer})
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
