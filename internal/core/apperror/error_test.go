package apperror

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWrap(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{name: "app error passes through", err: NewNotFound("sequence", "k"), wantCode: CodeNotFound},
		{name: "wrapped app error", err: fmt.Errorf("load: %w", NewPeriodClosed("24-25")), wantCode: CodePeriodClosed},
		{name: "deadline", err: context.DeadlineExceeded, wantCode: CodeTimeout},
		{name: "canceled", err: fmt.Errorf("query: %w", context.Canceled), wantCode: CodeTimeout},
		{name: "raw storage error", err: errors.New("connection reset"), wantCode: CodeDatabase},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Wrap(tt.err)
			assert.True(t, HasCode(got, tt.wantCode), "got %v", got)
		})
	}

	assert.NoError(t, Wrap(nil))
}

func TestAllocationContention_IsRetryable(t *testing.T) {
	err := NewAllocationContention("c/b/invoice", 5).WithCause(errors.New("conflict"))

	assert.True(t, IsRetryable(err))
	assert.Equal(t, http.StatusServiceUnavailable, GetHTTPStatus(err))
	assert.Equal(t, 5, err.Details["attempts"])
	assert.Contains(t, err.Error(), "caused by: conflict")
}

func TestFieldErrors(t *testing.T) {
	err := fmt.Errorf("save: %w", NewValidationErrors(map[string]string{
		"entries[0].padding_zeros": "Must be at most 5",
	}))

	fields := FieldErrors(err)
	assert.Equal(t, "Must be at most 5", fields["entries[0].padding_zeros"])
	assert.Nil(t, FieldErrors(errors.New("plain")))
	assert.False(t, IsRetryable(err))
}
