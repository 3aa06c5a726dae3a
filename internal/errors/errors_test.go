package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAppError(t *testing.T) {
	t.Run("Error returns formatted string", func(t *testing.T) {
		err := New(ErrCodeUserNotFound, "User not found")
		assert.Equal(t, "USER_NOT_FOUND: User not found", err.Error())
	})

	t.Run("Error with cause includes cause", func(t *testing.T) {
		cause := errors.New("database connection failed")
		err := Wrap(ErrCodeDatabase, "Database error", cause)
		assert.Contains(t, err.Error(), "DATABASE_ERROR")
		assert.Contains(t, err.Error(), "Database error")
		assert.Contains(t, err.Error(), "database connection failed")
	})

	t.Run("WithCause adds cause to error", func(t *testing.T) {
		cause := errors.New("original error")
		err := New(ErrCodeInternal, "Something went wrong").WithCause(cause)
		assert.Equal(t, cause, err.Unwrap())
	})

	t.Run("WithDetails adds details to error", func(t *testing.T) {
		details := map[string]string{"field": "nickname", "reason": "invalid format"}
		err := New(ErrCodeValidation, "Validation failed").WithDetails(details)
		assert.Equal(t, details, err.Details)
	})
}

func TestErrorConstructors(t *testing.T) {
	tests := []struct {
		name         string
		constructor  func() *AppError
		expectedCode ErrorCode
	}{
		{"Unauthenticated", func() *AppError { return Unauthenticated() }, ErrCodeUnauthorized},
		{"InvalidToken", func() *AppError { return InvalidToken("test") }, ErrCodeInvalidToken},
		{"TokenExpired", func() *AppError { return TokenExpired() }, ErrCodeTokenExpired},
		{"UserNotFound", func() *AppError { return UserNotFound() }, ErrCodeUserNotFound},
		{"RoomNotFound", func() *AppError { return RoomNotFound("chat_1_2") }, ErrCodeRoomNotFound},
		{"BusUnavailable", func() *AppError { return BusUnavailable(nil) }, ErrCodeBusUnavailable},
		{"ValidationError", func() *AppError { return ValidationError("test") }, ErrCodeValidation},
		{"InvalidInput", func() *AppError { return InvalidInput("nickname", "invalid") }, ErrCodeInvalidInput},
		{"RateLimitExceeded", func() *AppError { return RateLimitExceeded() }, ErrCodeRateLimitExceeded},
		{"Internal", func() *AppError { return Internal("test") }, ErrCodeInternal},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.constructor()
			assert.Equal(t, tc.expectedCode, err.Code)
			assert.NotEmpty(t, err.Message)
		})
	}
}

func TestRoomNotFound(t *testing.T) {
	t.Run("includes room name in message", func(t *testing.T) {
		err := RoomNotFound("chat_1_2")
		assert.Contains(t, err.Message, "chat_1_2")
	})
}

func TestBusUnavailable(t *testing.T) {
	t.Run("wraps bus error", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := BusUnavailable(cause)
		assert.Equal(t, ErrCodeBusUnavailable, err.Code)
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestDatabase(t *testing.T) {
	t.Run("wraps database error", func(t *testing.T) {
		cause := errors.New("connection refused")
		err := Database(cause)
		assert.Equal(t, ErrCodeDatabase, err.Code)
		assert.Equal(t, cause, err.Unwrap())
	})
}

func TestIsAppError(t *testing.T) {
	t.Run("returns true for AppError", func(t *testing.T) {
		err := New(ErrCodeRoomNotFound, "test")
		assert.True(t, IsAppError(err))
	})

	t.Run("returns false for standard error", func(t *testing.T) {
		err := errors.New("standard error")
		assert.False(t, IsAppError(err))
	})

	t.Run("returns true for fmt-wrapped AppError", func(t *testing.T) {
		appErr := New(ErrCodeRoomNotFound, "test")
		wrapped := fmt.Errorf("fetch history: %w", appErr)
		assert.True(t, IsAppError(wrapped))
	})
}

func TestAsAppError(t *testing.T) {
	t.Run("extracts AppError", func(t *testing.T) {
		original := New(ErrCodeUserNotFound, "User not found")
		extracted, ok := AsAppError(original)
		assert.True(t, ok)
		assert.Equal(t, original, extracted)
	})

	t.Run("returns false for non-AppError", func(t *testing.T) {
		err := errors.New("standard error")
		extracted, ok := AsAppError(err)
		assert.False(t, ok)
		assert.Nil(t, extracted)
	})
}

func TestGetCode(t *testing.T) {
	t.Run("returns code from AppError", func(t *testing.T) {
		err := TokenExpired()
		assert.Equal(t, ErrCodeTokenExpired, GetCode(err))
	})

	t.Run("returns internal for unknown error", func(t *testing.T) {
		assert.Equal(t, ErrCodeInternal, GetCode(errors.New("boom")))
	})
}
