package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/casafacile/golang_services/internal/core_domain"
	"github.com/casafacile/golang_services/internal/tracking_service/domain"
)

// PgBookingLocationRepository reads booking addresses and backfills geocoded
// coordinates. The bookings table itself is owned by the booking platform;
// only address/latitude/longitude are touched here.
type PgBookingLocationRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

func NewPgBookingLocationRepository(db *pgxpool.Pool, logger *slog.Logger) *PgBookingLocationRepository {
	return &PgBookingLocationRepository{db: db, logger: logger}
}

func (r *PgBookingLocationRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*core_domain.BookingLocation, error) {
	query := `
		SELECT id, professional_id, address, latitude, longitude
		FROM bookings
		WHERE id = $1
	`
	loc := &core_domain.BookingLocation{}
	var lat, lon sql.NullFloat64
	err := r.db.QueryRow(ctx, query, bookingID).Scan(
		&loc.BookingID, &loc.ProfessionalID, &loc.Address, &lat, &lon,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		r.logger.ErrorContext(ctx, "Error getting booking location", "error", err, "booking_id", bookingID)
		return nil, err
	}
	if lat.Valid && lon.Valid {
		loc.Coordinates = &core_domain.Coordinates{Latitude: lat.Float64, Longitude: lon.Float64}
	}
	return loc, nil
}

func (r *PgBookingLocationRepository) ListMissingCoordinates(ctx context.Context, limit int) ([]*core_domain.BookingLocation, error) {
	query := `
		SELECT id, professional_id, address, latitude, longitude
		FROM bookings
		WHERE address <> '' AND (latitude IS NULL OR longitude IS NULL)
		ORDER BY created_at ASC
		LIMIT $1
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error listing bookings with missing coordinates", "error", err)
		return nil, err
	}
	defer rows.Close()

	var out []*core_domain.BookingLocation
	for rows.Next() {
		loc := &core_domain.BookingLocation{}
		var lat, lon sql.NullFloat64
		if err := rows.Scan(&loc.BookingID, &loc.ProfessionalID, &loc.Address, &lat, &lon); err != nil {
			r.logger.ErrorContext(ctx, "Error scanning booking row", "error", err)
			return nil, err
		}
		out = append(out, loc)
	}
	if err := rows.Err(); err != nil {
		r.logger.ErrorContext(ctx, "Error iterating booking rows", "error", err)
		return nil, err
	}
	return out, nil
}

func (r *PgBookingLocationRepository) UpdateCoordinates(ctx context.Context, bookingID uuid.UUID, coords core_domain.Coordinates) error {
	query := `UPDATE bookings SET latitude = $1, longitude = $2 WHERE id = $3`
	tag, err := r.db.Exec(ctx, query, coords.Latitude, coords.Longitude, bookingID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Error updating booking coordinates", "error", err, "booking_id", bookingID)
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
