package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMatchesSentinelByCode(t *testing.T) {
	err := InputValidation("length_m must be positive")
	wrapped := fmt.Errorf("assemble: %w", err)

	assert.True(t, errors.Is(wrapped, ErrInputValidation))
	assert.False(t, errors.Is(wrapped, ErrCatalogLookup))
	assert.Equal(t, CodeInputValidation, CodeOf(wrapped))
	assert.Equal(t, "length_m must be positive", ReasonOf(wrapped))
}

func TestPersistenceKeepsCauseOutOfReason(t *testing.T) {
	cause := errors.New("pq: connection refused on 10.0.0.4")
	err := Persistence(cause, "audit append failed")

	assert.True(t, IsRetryable(err))
	assert.ErrorIs(t, err, cause)
	assert.NotContains(t, ReasonOf(err), "10.0.0.4")
}

func TestUntypedErrors(t *testing.T) {
	err := errors.New("boom")
	assert.Equal(t, Code(""), CodeOf(err))
	assert.Equal(t, "internal error", ReasonOf(err))
	assert.False(t, IsRetryable(err))
}
