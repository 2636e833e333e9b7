package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc/codes"
)

func TestHTTPResponse(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantDetail string
	}{
		{
			name:       "validation",
			err:        NewValidationError("q", "must be at least 2 characters"),
			wantStatus: http.StatusBadRequest,
			wantDetail: "q: must be at least 2 characters",
		},
		{
			name:       "validation without field",
			err:        NewValidationError("", "user_id is required."),
			wantStatus: http.StatusBadRequest,
			wantDetail: "user_id is required.",
		},
		{
			name:       "not found",
			err:        NewNotFoundError("conversation", "Conversation not found."),
			wantStatus: http.StatusNotFound,
			wantDetail: "Conversation not found.",
		},
		{
			name:       "already exists",
			err:        NewAlreadyExistsError("user", ""),
			wantStatus: http.StatusBadRequest,
			wantDetail: "user already exists",
		},
		{
			name:       "permission denied",
			err:        NewPermissionDeniedError("You can only access your own profile."),
			wantStatus: http.StatusForbidden,
			wantDetail: "You can only access your own profile.",
		},
		{
			name:       "unauthenticated",
			err:        ErrUnauthenticated,
			wantStatus: http.StatusUnauthorized,
			wantDetail: "authentication credentials were not provided",
		},
		{
			name:       "internal hides cause",
			err:        NewInternalError("failed to load user", errors.New("connection refused")),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "An internal error occurred",
		},
		{
			name:       "wrapped typed error",
			err:        fmt.Errorf("get message: %w", NewNotFoundError("message", "")),
			wantStatus: http.StatusNotFound,
			wantDetail: "message not found",
		},
		{
			name:       "untyped error",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantDetail: "An internal error occurred",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := HTTPResponse(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantDetail, detail)
		})
	}
}

func TestGRPCStatus(t *testing.T) {
	assert.Equal(t, codes.PermissionDenied, NewPermissionDeniedError("no").GRPCStatus().Code())
	assert.Equal(t, codes.Unauthenticated, NewUnauthenticatedError("no").GRPCStatus().Code())
	assert.Equal(t, codes.NotFound, NewNotFoundError("user", "").GRPCStatus().Code())
}

func TestIsNotFound(t *testing.T) {
	assert.True(t, IsNotFound(fmt.Errorf("wrap: %w", NewNotFoundError("user", ""))))
	assert.False(t, IsNotFound(errors.New("user not found")))
}

func TestInternalError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := NewInternalError("write failed", cause)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "write failed: disk full", err.Error())
}
