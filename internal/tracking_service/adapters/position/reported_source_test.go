package position

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/casafacile/golang_services/internal/tracking_service/domain"
)

func TestReportedSource_FreshFix(t *testing.T) {
	src := NewReportedSource(45.4642, 9.19, 12.5, time.Now().Add(-2*time.Second), "", 30*time.Second)

	pos, err := src.GetCurrentPosition(context.Background(), domain.DefaultPositionOptions())

	require.NoError(t, err)
	assert.Equal(t, 45.4642, pos.Coordinates.Latitude)
	assert.Equal(t, 9.19, pos.Coordinates.Longitude)
	assert.Equal(t, 12.5, pos.AccuracyMeters)
}

func TestReportedSource_PermissionDenied(t *testing.T) {
	src := NewReportedSource(0, 0, 0, time.Time{}, FailurePermissionDenied, 0)

	_, err := src.GetCurrentPosition(context.Background(), domain.DefaultPositionOptions())

	assert.ErrorIs(t, err, domain.ErrPositionPermissionDenied)
}

func TestReportedSource_GenericFailures(t *testing.T) {
	for _, code := range []string{FailureUnavailable, FailureTimeout, "something_else"} {
		src := NewReportedSource(0, 0, 0, time.Time{}, code, 0)
		_, err := src.GetCurrentPosition(context.Background(), domain.DefaultPositionOptions())
		assert.ErrorIs(t, err, domain.ErrPositionUnavailable, "code %q", code)
	}
}

func TestReportedSource_StaleFixRefused(t *testing.T) {
	// MaxStaleness is zero: a fix older than the transit allowance is a
	// cached fix and must be refused.
	src := NewReportedSource(45.0, 9.0, 5, time.Now().Add(-10*time.Minute), "", 30*time.Second)

	_, err := src.GetCurrentPosition(context.Background(), domain.DefaultPositionOptions())

	assert.ErrorIs(t, err, domain.ErrPositionUnavailable)
}

func TestReportedSource_MissingTimestampRefused(t *testing.T) {
	src := NewReportedSource(45.0, 9.0, 5, time.Time{}, "", 30*time.Second)

	_, err := src.GetCurrentPosition(context.Background(), domain.DefaultPositionOptions())

	assert.ErrorIs(t, err, domain.ErrPositionUnavailable)
}

func TestReportedSource_CancelledContext(t *testing.T) {
	src := NewReportedSource(45.0, 9.0, 5, time.Now(), "", 30*time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.GetCurrentPosition(ctx, domain.DefaultPositionOptions())

	assert.ErrorIs(t, err, domain.ErrPositionUnavailable)
}
