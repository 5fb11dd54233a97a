package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chi_middleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/casafacile/golang_services/internal/public_api_service/middleware"
	"github.com/casafacile/golang_services/internal/tracking_service/adapters/position"
	trackingapp "github.com/casafacile/golang_services/internal/tracking_service/app"
	trackingdomain "github.com/casafacile/golang_services/internal/tracking_service/domain"
)

// TrackingService is the slice of the tracking application layer the handler
// needs.
type TrackingService interface {
	CheckIn(ctx context.Context, bookingID, professionalID uuid.UUID, source trackingdomain.PositionSource) (*trackingapp.CheckInResult, error)
	CheckOut(ctx context.Context, bookingID, professionalID uuid.UUID, source trackingdomain.PositionSource) (*trackingapp.CheckOutResult, error)
	GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*trackingdomain.TrackingRecord, error)
}

var _ TrackingService = (*trackingapp.TrackingService)(nil)

// TrackingHandler handles HTTP requests for geofenced check-in/check-out.
type TrackingHandler struct {
	trackingService TrackingService
	validate        *validator.Validate
	// positionMaxAge is the configured freshness window for reported fixes.
	positionMaxAge time.Duration
	logger         *slog.Logger
}

// NewTrackingHandler creates a new TrackingHandler.
func NewTrackingHandler(trackingService TrackingService, validate *validator.Validate, positionMaxAge time.Duration, logger *slog.Logger) *TrackingHandler {
	return &TrackingHandler{
		trackingService: trackingService,
		validate:        validate,
		positionMaxAge:  positionMaxAge,
		logger:          logger.With("handler", "tracking"),
	}
}

// RegisterRoutes registers tracking routes with the given router.
func (h *TrackingHandler) RegisterRoutes(r chi.Router) {
	r.Post("/bookings/{bookingID}/check-in", h.handleCheckIn)
	r.Post("/bookings/{bookingID}/check-out", h.handleCheckOut)
	r.Get("/bookings/{bookingID}/tracking", h.handleGetTracking)
}

// professionalFromContext enforces that check-in/check-out is performed by a
// professional account.
func (h *TrackingHandler) professionalFromContext(w http.ResponseWriter, r *http.Request) (middleware.AuthenticatedUser, bool) {
	authUser, ok := r.Context().Value(middleware.AuthenticatedUserContextKey).(middleware.AuthenticatedUser)
	if !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return middleware.AuthenticatedUser{}, false
	}
	if authUser.Role != middleware.RoleProfessional {
		h.logger.WarnContext(r.Context(), "Non-professional attempted tracking operation",
			"user_id", authUser.ID, "role", authUser.Role)
		respondWithError(w, http.StatusForbidden, "Only professionals can track visits")
		return middleware.AuthenticatedUser{}, false
	}
	return authUser, true
}

func (h *TrackingHandler) decodeBody(w http.ResponseWriter, r *http.Request, req any) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid request payload: "+err.Error())
		return false
	}
	defer r.Body.Close()
	return true
}

func (h *TrackingHandler) validPosition(w http.ResponseWriter, pos *ReportedPosition) bool {
	if pos == nil {
		respondWithError(w, http.StatusBadRequest, "Missing position")
		return false
	}
	if err := h.validate.Struct(pos); err != nil {
		respondWithError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

func (h *TrackingHandler) positionSource(dto ReportedPosition) *position.ReportedSource {
	return position.NewReportedSource(dto.Latitude, dto.Longitude, dto.AccuracyMeters, dto.CapturedAt, dto.FailureCode, h.positionMaxAge)
}

func (h *TrackingHandler) handleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := h.professionalFromContext(w, r)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	var req CheckInRequest
	if !h.decodeBody(w, r, &req) || !h.validPosition(w, req.Position) {
		return
	}

	result, err := h.trackingService.CheckIn(ctx, bookingID, authUser.ID, h.positionSource(*req.Position))
	if err != nil {
		h.respondTrackingError(ctx, w, logger, err, bookingID)
		return
	}

	respondWithJSON(w, http.StatusCreated,
		toTrackingResponse(result.Record, result.DistanceMeters, result.InRange, result.Notice))
}

func (h *TrackingHandler) handleCheckOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	authUser, ok := h.professionalFromContext(w, r)
	if !ok {
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	var req CheckOutRequest
	if !h.decodeBody(w, r, &req) || !h.validPosition(w, req.Position) {
		return
	}

	result, err := h.trackingService.CheckOut(ctx, bookingID, authUser.ID, h.positionSource(*req.Position))
	if err != nil {
		h.respondTrackingError(ctx, w, logger, err, bookingID)
		return
	}

	respondWithJSON(w, http.StatusOK,
		toTrackingResponse(result.Record, result.DistanceMeters, result.InRange, result.Notice))
}

func (h *TrackingHandler) handleGetTracking(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With("request_id", chi_middleware.GetReqID(ctx))

	if _, ok := ctx.Value(middleware.AuthenticatedUserContextKey).(middleware.AuthenticatedUser); !ok {
		respondWithError(w, http.StatusUnauthorized, "User not authenticated")
		return
	}

	bookingID, err := uuid.Parse(chi.URLParam(r, "bookingID"))
	if err != nil {
		respondWithError(w, http.StatusBadRequest, "Invalid booking ID format")
		return
	}

	rec, err := h.trackingService.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, trackingdomain.ErrNotFound) {
			respondWithError(w, http.StatusNotFound, "No tracking record for this booking")
			return
		}
		logger.ErrorContext(ctx, "Failed to fetch tracking record", "error", err, "booking_id", bookingID)
		respondWithError(w, http.StatusInternalServerError, "Failed to fetch tracking record")
		return
	}

	inRange := true
	distance := 0
	if rec.CheckOut != nil {
		inRange, distance = rec.CheckOut.InRange, rec.CheckOut.DistanceMeters
	} else if rec.CheckIn != nil {
		inRange, distance = rec.CheckIn.InRange, rec.CheckIn.DistanceMeters
	}
	respondWithJSON(w, http.StatusOK, toTrackingResponse(rec, distance, inRange, ""))
}

func (h *TrackingHandler) respondTrackingError(ctx context.Context, w http.ResponseWriter, logger *slog.Logger, err error, bookingID uuid.UUID) {
	switch {
	case errors.Is(err, trackingdomain.ErrNotFound):
		respondWithError(w, http.StatusNotFound, "Booking not found")
	case errors.Is(err, trackingdomain.ErrNotAssigned):
		respondWithError(w, http.StatusForbidden, "You are not assigned to this booking")
	case errors.Is(err, trackingdomain.ErrAlreadyCheckedIn):
		respondWithError(w, http.StatusConflict, "Booking already has a check-in")
	case errors.Is(err, trackingdomain.ErrNotCheckedIn):
		respondWithError(w, http.StatusConflict, "Booking has no check-in yet")
	case errors.Is(err, trackingdomain.ErrAlreadyCompleted):
		respondWithError(w, http.StatusConflict, "Visit already completed")
	case errors.Is(err, trackingdomain.ErrPositionPermissionDenied):
		respondWithError(w, http.StatusUnprocessableEntity, "Location permission denied: enable location access to track the visit")
	case errors.Is(err, trackingdomain.ErrPositionUnavailable):
		respondWithError(w, http.StatusUnprocessableEntity, "Could not determine your position: try again")
	default:
		logger.ErrorContext(ctx, "Tracking operation failed", "error", err, "booking_id", bookingID)
		respondWithError(w, http.StatusInternalServerError, "Tracking operation failed")
	}
}
