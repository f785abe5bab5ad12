package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(maxRetries int) Config {
	cfg := DefaultConfig()
	cfg.MaxRetries = maxRetries
	cfg.InitialDelay = time.Millisecond
	cfg.MaxDelay = 2 * time.Millisecond
	cfg.Jitter = false
	return cfg
}

func TestDoWithResult_RetriesTransientErrors(t *testing.T) {
	calls := 0
	res, err := DoWithResult(context.Background(), fastConfig(3), "listPrograms", func() (string, error) {
		calls++
		if calls < 3 {
			return "", apperrors.Unavailable(errors.New("connection reset"))
		}
		return "ok", nil
	})

	require.NoError(t, err)
	assert.Equal(t, "ok", res)
	assert.Equal(t, 3, calls)
}

func TestDoWithResult_StopsOnRejection(t *testing.T) {
	calls := 0
	_, err := DoWithResult(context.Background(), fastConfig(3), "submitApplication", func() (int, error) {
		calls++
		return 0, apperrors.NewRemoteError(apperrors.KindDuplicateEmail, 409, "Email already registered")
	})

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, apperrors.KindDuplicateEmail, apperrors.KindOf(err))
}

func TestDoWithResult_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := Do(context.Background(), fastConfig(2), "listCohorts", func() error {
		calls++
		return apperrors.Unavailable(errors.New("timeout"))
	})

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.True(t, apperrors.IsTransient(err))
}

func TestNoRetry_ReturnsErrorUnwrapped(t *testing.T) {
	want := apperrors.Unavailable(errors.New("down"))
	calls := 0
	err := Do(context.Background(), NoRetry(), "submitReceipt", func() error {
		calls++
		return want
	})

	assert.Equal(t, 1, calls)
	assert.Same(t, want, err)
}

func TestDoWithResult_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DoWithResult(ctx, fastConfig(3), "listCentres", func() (int, error) {
		t.Fatal("operation must not run with a cancelled context")
		return 0, nil
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateDelay_CapsAtMax(t *testing.T) {
	cfg := fastConfig(10)
	cfg.InitialDelay = time.Second
	cfg.MaxDelay = 3 * time.Second

	assert.Equal(t, time.Second, calculateDelay(0, cfg))
	assert.Equal(t, 2*time.Second, calculateDelay(1, cfg))
	assert.Equal(t, 3*time.Second, calculateDelay(5, cfg))
}
