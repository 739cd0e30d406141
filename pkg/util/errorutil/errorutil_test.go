package errorutil

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/listing-bot/internal/domain"
)

func TestToDomainErrorMapsSentinels(t *testing.T) {
	tests := []struct {
		err    error
		code   string
		status int
	}{
		{err: fmt.Errorf("get: %w", domain.ErrNotFound), code: "NOT_FOUND", status: http.StatusNotFound},
		{err: domain.ErrAlreadyHandled, code: "ALREADY_HANDLED", status: http.StatusConflict},
		{err: domain.ErrNotPublishable, code: "NOT_PUBLISHABLE", status: http.StatusUnprocessableEntity},
		{err: NewUnauthorized("missing token"), code: "UNAUTHORIZED", status: http.StatusUnauthorized},
		{err: fiber.NewError(http.StatusForbidden, "moderator required"), code: "Forbidden", status: http.StatusForbidden},
		{err: fmt.Errorf("boom"), code: "INTERNAL_ERROR", status: http.StatusInternalServerError},
	}
	for _, tt := range tests {
		got := ToDomainError(tt.err)
		require.NotNil(t, got)
		assert.Equal(t, tt.code, got.Code, tt.err.Error())
		assert.Equal(t, tt.status, got.HTTPStatus, tt.err.Error())
	}
	assert.Nil(t, ToDomainError(nil))
}

func TestToDomainErrorValidationDetails(t *testing.T) {
	type payload struct {
		Reason string `validate:"required"`
	}
	err := validator.New().Struct(payload{})
	got := ToDomainError(err)
	assert.Equal(t, "VALIDATION_FAILED", got.Code)
	assert.Equal(t, "required", got.Details["Reason"])
}
