package circuitbreaker

import (
	"errors"
	"testing"

	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecute_OpensOnTransientFailures(t *testing.T) {
	cb := NewCircuitBreaker(DefaultConfig("portal-api-test"))
	failing := func() (int, error) {
		return 0, apperrors.Unavailable(errors.New("503"))
	}

	for i := 0; i < 3; i++ {
		_, err := Execute(cb, failing)
		require.Error(t, err)
	}

	assert.True(t, IsCircuitOpen(cb))

	_, err := Execute(cb, func() (int, error) { return 1, nil })
	require.Error(t, err)
	assert.True(t, apperrors.IsTransient(err))
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

func TestExecute_RejectionsDoNotTrip(t *testing.T) {
	cb := NewCircuitBreaker(DefaultConfig("portal-api-rejections"))
	rejecting := func() (string, error) {
		return "", apperrors.NewRemoteError(apperrors.KindDuplicateEmail, 409, "exists")
	}

	for i := 0; i < 5; i++ {
		_, err := Execute(cb, rejecting)
		assert.Equal(t, apperrors.KindDuplicateEmail, apperrors.KindOf(err))
	}

	assert.False(t, IsCircuitOpen(cb))
}

func TestExecute_ReturnsTypedResult(t *testing.T) {
	cb := NewCircuitBreaker(DefaultConfig("portal-api-typed"))

	res, err := Execute(cb, func() ([]string, error) { return []string{"P1"}, nil })

	require.NoError(t, err)
	assert.Equal(t, []string{"P1"}, res)
}
