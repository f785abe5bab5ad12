package errors_test

import (
	"fmt"
	"testing"

	apperrors "github.com/litschool/admissions-portal/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestRemoteError_Categories(t *testing.T) {
	tests := []struct {
		kind     apperrors.Kind
		category error
	}{
		{apperrors.KindDuplicateEmail, apperrors.ErrRemoteRejection},
		{apperrors.KindValidationRejected, apperrors.ErrRemoteRejection},
		{apperrors.KindIncorrectCode, apperrors.ErrRemoteRejection},
		{apperrors.KindExpired, apperrors.ErrRemoteRejection},
		{apperrors.KindServiceUnavailable, apperrors.ErrTransient},
		{apperrors.KindRateLimited, apperrors.ErrTransient},
		{apperrors.KindUploadRejected, apperrors.ErrUpload},
		{apperrors.KindNotFound, apperrors.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := fmt.Errorf("wrapped: %w", apperrors.NewRemoteError(tt.kind, 400, "boom"))
			assert.ErrorIs(t, err, tt.category)
			assert.Equal(t, tt.kind, apperrors.KindOf(err))
			assert.Equal(t, "boom", apperrors.MessageOf(err))
		})
	}
}

func TestUnavailable_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := apperrors.Unavailable(cause)

	assert.ErrorIs(t, err, cause)
	assert.True(t, apperrors.IsTransient(err))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestHelpers(t *testing.T) {
	assert.ErrorIs(t, apperrors.UploadError("no file selected"), apperrors.ErrUpload)
	assert.ErrorIs(t, apperrors.ValidationError("email", "bad"), apperrors.ErrValidation)
	assert.Equal(t, apperrors.Kind(""), apperrors.KindOf(fmt.Errorf("plain")))
	assert.False(t, apperrors.IsTransient(nil))
}
