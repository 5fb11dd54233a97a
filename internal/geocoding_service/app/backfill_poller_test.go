package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/casafacile/golang_services/internal/core_domain"
	"github.com/casafacile/golang_services/internal/geocoding_service/client"
)

type MockBookingLocationRepository struct {
	mock.Mock
}

func (m *MockBookingLocationRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*core_domain.BookingLocation, error) {
	args := m.Called(ctx, bookingID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.BookingLocation), args.Error(1)
}

func (m *MockBookingLocationRepository) ListMissingCoordinates(ctx context.Context, limit int) ([]*core_domain.BookingLocation, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*core_domain.BookingLocation), args.Error(1)
}

func (m *MockBookingLocationRepository) UpdateCoordinates(ctx context.Context, bookingID uuid.UUID, coords core_domain.Coordinates) error {
	args := m.Called(ctx, bookingID, coords)
	return args.Error(0)
}

type MockGeocoder struct {
	mock.Mock
}

func (m *MockGeocoder) Geocode(ctx context.Context, address string) (*core_domain.Coordinates, error) {
	args := m.Called(ctx, address)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core_domain.Coordinates), args.Error(1)
}

func newPoller(repo *MockBookingLocationRepository, geocoder *MockGeocoder) *BackfillPoller {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewBackfillPoller(repo, geocoder, logger, PollerConfig{
		PollInterval: time.Minute,
		BatchSize:    20,
	})
}

func pendingBooking(address string) *core_domain.BookingLocation {
	return &core_domain.BookingLocation{
		BookingID:      uuid.New(),
		ProfessionalID: uuid.New(),
		Address:        address,
	}
}

func TestPollAndBackfill_NoPendingBookings(t *testing.T) {
	repo := new(MockBookingLocationRepository)
	geocoder := new(MockGeocoder)
	poller := newPoller(repo, geocoder)

	repo.On("ListMissingCoordinates", mock.Anything, 20).Return([]*core_domain.BookingLocation{}, nil).Once()

	processed, err := poller.PollAndBackfill(context.Background())

	require.NoError(t, err)
	assert.Zero(t, processed)
	geocoder.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
}

func TestPollAndBackfill_BackfillsCoordinates(t *testing.T) {
	repo := new(MockBookingLocationRepository)
	geocoder := new(MockGeocoder)
	poller := newPoller(repo, geocoder)

	booking := pendingBooking("Via Roma 1, Milano")
	resolved := core_domain.Coordinates{Latitude: 45.4642, Longitude: 9.19}

	repo.On("ListMissingCoordinates", mock.Anything, 20).Return([]*core_domain.BookingLocation{booking}, nil).Once()
	geocoder.On("Geocode", mock.Anything, "Via Roma 1, Milano").Return(&resolved, nil).Once()
	repo.On("UpdateCoordinates", mock.Anything, booking.BookingID, resolved).Return(nil).Once()

	processed, err := poller.PollAndBackfill(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, processed)
	repo.AssertExpectations(t)
}

func TestPollAndBackfill_UnresolvableAddressIsSkipped(t *testing.T) {
	repo := new(MockBookingLocationRepository)
	geocoder := new(MockGeocoder)
	poller := newPoller(repo, geocoder)

	bad := pendingBooking("Via Sconosciuta 99")
	good := pendingBooking("Via Roma 1, Milano")
	resolved := core_domain.Coordinates{Latitude: 45.4642, Longitude: 9.19}

	repo.On("ListMissingCoordinates", mock.Anything, 20).Return([]*core_domain.BookingLocation{bad, good}, nil).Once()
	geocoder.On("Geocode", mock.Anything, "Via Sconosciuta 99").Return(nil, client.ErrNoResults).Once()
	geocoder.On("Geocode", mock.Anything, "Via Roma 1, Milano").Return(&resolved, nil).Once()
	repo.On("UpdateCoordinates", mock.Anything, good.BookingID, resolved).Return(nil).Once()

	processed, err := poller.PollAndBackfill(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, processed)
	repo.AssertNotCalled(t, "UpdateCoordinates", mock.Anything, bad.BookingID, mock.Anything)
}

func TestPollAndBackfill_GeocoderOutageIsNotCritical(t *testing.T) {
	repo := new(MockBookingLocationRepository)
	geocoder := new(MockGeocoder)
	poller := newPoller(repo, geocoder)

	booking := pendingBooking("Via Roma 1, Milano")

	repo.On("ListMissingCoordinates", mock.Anything, 20).Return([]*core_domain.BookingLocation{booking}, nil).Once()
	geocoder.On("Geocode", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused")).Once()

	processed, err := poller.PollAndBackfill(context.Background())

	require.NoError(t, err, "a geocoder outage should not stop the poller")
	assert.Equal(t, 1, processed)
	repo.AssertNotCalled(t, "UpdateCoordinates", mock.Anything, mock.Anything, mock.Anything)
}

func TestPollAndBackfill_ListFailureIsCritical(t *testing.T) {
	repo := new(MockBookingLocationRepository)
	geocoder := new(MockGeocoder)
	poller := newPoller(repo, geocoder)

	repo.On("ListMissingCoordinates", mock.Anything, 20).Return(nil, errors.New("db down")).Once()

	_, err := poller.PollAndBackfill(context.Background())

	require.Error(t, err)
}
