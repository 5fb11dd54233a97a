package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casafacile/golang_services/internal/tracking_service/domain"
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique constraint violations.
const uniqueViolation = "23505"

type PgTrackingRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgTrackingRepository(db *pgxpool.Pool, logger *slog.Logger) *PgTrackingRepository {
	return &PgTrackingRepository{db: db, logger: logger}
}

func (r *PgTrackingRepository) Create(ctx context.Context, rec *domain.TrackingRecord) error {
	query := `
		INSERT INTO tracking_records (
			id, booking_id, professional_id,
			check_in_at, check_in_latitude, check_in_longitude, check_in_distance_m, check_in_in_range,
			status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	ci := rec.CheckIn
	_, err := r.db.Exec(ctx, query,
		rec.ID, rec.BookingID, rec.ProfessionalID,
		ci.At, ci.Latitude, ci.Longitude, ci.DistanceMeters, ci.InRange,
		string(rec.Status), rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		// The unique index on booking_id enforces "one record per booking".
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrAlreadyCheckedIn
		}
		r.logger.ErrorContext(ctx, "Error creating tracking record", "error", err, "booking_id", rec.BookingID)
		return err
	}
	return nil
}

func (r *PgTrackingRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.TrackingRecord, error) {
	return r.getBy(ctx, "id = $1", id)
}

func (r *PgTrackingRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*domain.TrackingRecord, error) {
	return r.getBy(ctx, "booking_id = $1", bookingID)
}

func (r *PgTrackingRepository) getBy(ctx context.Context, where string, arg any) (*domain.TrackingRecord, error) {
	query := `
		SELECT id, booking_id, professional_id,
		       check_in_at, check_in_latitude, check_in_longitude, check_in_distance_m, check_in_in_range,
		       check_out_at, check_out_latitude, check_out_longitude, check_out_distance_m, check_out_in_range,
		       actual_hours, status, created_at, updated_at
		FROM tracking_records
		WHERE ` + where

	rec := &domain.TrackingRecord{}
	ci := domain.Checkpoint{}
	var (
		status       string
		checkOutAt   sql.NullTime
		checkOutLat  sql.NullFloat64
		checkOutLon  sql.NullFloat64
		checkOutDist sql.NullInt64
		checkOutIn   sql.NullBool
		actualHours  sql.NullFloat64
	)

	err := r.db.QueryRow(ctx, query, arg).Scan(
		&rec.ID, &rec.BookingID, &rec.ProfessionalID,
		&ci.At, &ci.Latitude, &ci.Longitude, &ci.DistanceMeters, &ci.InRange,
		&checkOutAt, &checkOutLat, &checkOutLon, &checkOutDist, &checkOutIn,
		&actualHours, &status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting tracking record", "error", err)
		return nil, err
	}

	rec.CheckIn = &ci
	rec.Status = domain.TrackingStatus(status)
	if checkOutAt.Valid {
		rec.CheckOut = &domain.Checkpoint{
			At:             checkOutAt.Time,
			Latitude:       checkOutLat.Float64,
			Longitude:      checkOutLon.Float64,
			DistanceMeters: int(checkOutDist.Int64),
			InRange:        checkOutIn.Bool,
		}
	}
	if actualHours.Valid {
		h := actualHours.Float64
		rec.ActualHours = &h
	}
	return rec, nil
}

func (r *PgTrackingRepository) ReplaceCheckIn(ctx context.Context, rec *domain.TrackingRecord) error {
	query := `
		UPDATE tracking_records
		SET professional_id = $1,
		    check_in_at = $2, check_in_latitude = $3, check_in_longitude = $4,
		    check_in_distance_m = $5, check_in_in_range = $6,
		    check_out_at = NULL, check_out_latitude = NULL, check_out_longitude = NULL,
		    check_out_distance_m = NULL, check_out_in_range = NULL,
		    actual_hours = NULL, status = $7, updated_at = $8
		WHERE id = $9
	`
	ci := rec.CheckIn
	tag, err := r.db.Exec(ctx, query,
		rec.ProfessionalID,
		ci.At, ci.Latitude, ci.Longitude, ci.DistanceMeters, ci.InRange,
		string(domain.StatusCheckedIn), rec.UpdatedAt, rec.ID,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error replacing check-in", "error", err, "tracking_id", rec.ID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PgTrackingRepository) Complete(ctx context.Context, rec *domain.TrackingRecord) error {
	query := `
		UPDATE tracking_records
		SET check_out_at = $1, check_out_latitude = $2, check_out_longitude = $3,
		    check_out_distance_m = $4, check_out_in_range = $5,
		    actual_hours = $6, status = $7, updated_at = $8
		WHERE id = $9 AND status = $10
	`
	co := rec.CheckOut
	tag, err := r.db.Exec(ctx, query,
		co.At, co.Latitude, co.Longitude, co.DistanceMeters, co.InRange,
		rec.ActualHours, string(domain.StatusCompleted), rec.UpdatedAt,
		rec.ID, string(domain.StatusCheckedIn),
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error completing tracking record", "error", err, "tracking_id", rec.ID)
		return err
	}
	// Guarding on the previous status keeps the transition monotonic even if
	// two check-outs race.
	if tag.RowsAffected() == 0 {
		return domain.ErrAlreadyCompleted
	}
	return nil
}
