package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/casafacile/golang_services/internal/core_domain"
	"github.com/casafacile/golang_services/internal/geocoding_service/client"
)

var (
	addressesProcessedCounter = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "geocoding",
			Name:      "addresses_processed_total",
			Help:      "Total number of booking addresses processed by the backfill poller.",
		},
		[]string{"status"}, // backfilled, no_results, error
	)
	geocodeDurationHist = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "geocoding",
			Name:      "geocode_duration_seconds",
			Help:      "Duration of a single geocode lookup.",
			Buckets:   prometheus.DefBuckets,
		},
	)
)

// PollerConfig holds configuration specific to the BackfillPoller.
type PollerConfig struct {
	PollInterval time.Duration
	BatchSize    int
}

// BackfillPoller periodically looks for bookings with an address but no
// stored coordinates and resolves them through the geocoder. This is the
// async half of address resolution: check-ins also geocode on demand, the
// poller catches everything created while the geocoder was unreachable.
type BackfillPoller struct {
	bookingRepo core_domain.BookingLocationRepository
	geocoder    client.Geocoder
	logger      *slog.Logger
	config      PollerConfig
}

// NewBackfillPoller creates a new BackfillPoller instance.
func NewBackfillPoller(
	bookingRepo core_domain.BookingLocationRepository,
	geocoder client.Geocoder,
	logger *slog.Logger,
	cfg PollerConfig,
) *BackfillPoller {
	return &BackfillPoller{
		bookingRepo: bookingRepo,
		geocoder:    geocoder,
		logger:      logger,
		config:      cfg,
	}
}

// Run polls until ctx is cancelled.
func (p *BackfillPoller) Run(ctx context.Context) {
	p.logger.InfoContext(ctx, "Backfill poller starting", "interval", p.config.PollInterval, "batch_size", p.config.BatchSize)
	ticker := time.NewTicker(p.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.InfoContext(ctx, "Backfill poller stopping")
			return
		case <-ticker.C:
			if _, err := p.PollAndBackfill(ctx); err != nil {
				p.logger.ErrorContext(ctx, "Backfill poll cycle failed", "error", err)
			}
		}
	}
}

// PollAndBackfill processes one batch of bookings missing coordinates. It
// returns the number of bookings attempted in this cycle and any critical
// error; per-address geocode failures are counted and skipped, not fatal.
func (p *BackfillPoller) PollAndBackfill(ctx context.Context) (processedInLoop int, criticalErr error) {
	bookings, err := p.bookingRepo.ListMissingCoordinates(ctx, p.config.BatchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "Failed to list bookings missing coordinates", "error", err)
		return 0, fmt.Errorf("failed to list bookings missing coordinates: %w", err)
	}

	if len(bookings) == 0 {
		p.logger.DebugContext(ctx, "No bookings awaiting geocoding in this poll cycle")
		return 0, nil
	}

	p.logger.InfoContext(ctx, "Acquired bookings for geocoding", "count", len(bookings))

	for _, booking := range bookings {
		processedInLoop++

		timer := prometheus.NewTimer(geocodeDurationHist)
		coords, err := p.geocoder.Geocode(ctx, booking.Address)
		timer.ObserveDuration()

		if err != nil {
			if errors.Is(err, client.ErrNoResults) {
				// The address as entered cannot be resolved. Leave the row
				// for the customer to correct; the geofence treats a missing
				// target as in-range.
				p.logger.WarnContext(ctx, "Address not resolvable", "booking_id", booking.BookingID, "address", booking.Address)
				addressesProcessedCounter.WithLabelValues("no_results").Inc()
				continue
			}
			p.logger.ErrorContext(ctx, "Failed to geocode address", "error", err, "booking_id", booking.BookingID)
			addressesProcessedCounter.WithLabelValues("error").Inc()
			continue
		}

		if err := p.bookingRepo.UpdateCoordinates(ctx, booking.BookingID, *coords); err != nil {
			p.logger.ErrorContext(ctx, "Failed to backfill coordinates", "error", err, "booking_id", booking.BookingID)
			addressesProcessedCounter.WithLabelValues("error").Inc()
			continue
		}

		p.logger.InfoContext(ctx, "Coordinates backfilled", "booking_id", booking.BookingID,
			"latitude", coords.Latitude, "longitude", coords.Longitude)
		addressesProcessedCounter.WithLabelValues("backfilled").Inc()
	}

	return processedInLoop, nil
}
