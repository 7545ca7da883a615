package persistence

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreaker_TripsAfterFailureRateExceeded(t *testing.T) {
	cb := NewCircuitBreaker(0.5, time.Minute, 3, 1)

	fail := func(ctx context.Context) error { return &SystemFailure{Err: errors.New("boom")} }

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, "OPEN", cb.State())

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrCallNotPermitted)
}

func TestCircuitBreaker_DataErrorsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(0.1, time.Minute, 4, 1)

	dataErr := &pgconn.PgError{Code: "23505", Message: "unique violation"}
	for i := 0; i < 10; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error { return dataErr })
	}
	assert.Equal(t, "CLOSED", cb.State())
}

func TestCircuitBreaker_RawNonDataErrorTripsLikeSystemFailure(t *testing.T) {
	cb := NewCircuitBreaker(0.5, time.Minute, 3, 1)

	// A raw, unwrapped error (e.g. RunInTransaction's own BeginTx/Commit
	// failure, which never passes through classify()) must still count as a
	// failure, not a success, even though it isn't a *SystemFailure.
	raw := errors.New("connection refused")
	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), func(ctx context.Context) error { return raw })
	}
	assert.Equal(t, "OPEN", cb.State())
}

func TestCircuitBreaker_HalfOpenProbeRecoversOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(0.5, 10*time.Millisecond, 2, 1)

	fail := func(ctx context.Context) error { return &SystemFailure{Err: errors.New("boom")} }
	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, "OPEN", cb.State())

	time.Sleep(20 * time.Millisecond)

	err := cb.Execute(context.Background(), func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", cb.State())
}

func TestCircuitBreaker_HalfOpenProbeReopensOnFailure(t *testing.T) {
	cb := NewCircuitBreaker(0.5, 10*time.Millisecond, 2, 1)

	fail := func(ctx context.Context) error { return &SystemFailure{Err: errors.New("boom")} }
	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)
	require.Equal(t, "OPEN", cb.State())

	time.Sleep(20 * time.Millisecond)

	_ = cb.Execute(context.Background(), fail)
	assert.Equal(t, "OPEN", cb.State())
}
