package errors

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsWrapSentinels(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		target   error
		expected string
	}{
		{"not found", NotFoundError("/missing.html"), ErrNotFound, "/missing.html not found"},
		{"invalid input", InvalidInputError("PORT", "must be numeric"), ErrInvalidInput, "PORT: must be numeric: invalid input"},
		{"internal", InternalError("render failed"), ErrInternal, "render failed: internal error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, Is(tt.err, tt.target))
			assert.True(t, Is(fmt.Errorf("outer: %w", tt.err), tt.target))
		})
	}

	assert.False(t, Is(NotFoundError("x"), ErrInternal))
}
