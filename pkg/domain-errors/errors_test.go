package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHasCode(t *testing.T) {
	t.Run("matches direct error", func(t *testing.T) {
		err := New(CodeNotFound, "gone")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through wrapping", func(t *testing.T) {
		inner := New(CodeConflict, "duplicate")
		outer := fmt.Errorf("while registering: %w", inner)
		assert.True(t, HasCode(outer, CodeConflict))
	})

	t.Run("plain errors carry no code", func(t *testing.T) {
		assert.False(t, HasCode(errors.New("boom"), CodeInternal))
	})
}

func TestCodeOf(t *testing.T) {
	assert.Equal(t, CodeValidation, CodeOf(New(CodeValidation, "bad")))
	assert.Equal(t, CodeInternal, CodeOf(errors.New("uncoded")))
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(cause, CodeInternal, "failed to load user")

	require.Error(t, err)
	assert.True(t, errors.Is(err, cause))
	assert.Contains(t, err.Error(), "failed to load user")
	assert.Contains(t, err.Error(), "connection refused")
}

func TestNewValidation_CarriesViolations(t *testing.T) {
	err := NewValidation(
		FieldViolation{Field: "name", Message: "too short"},
		FieldViolation{Field: "email", Message: "malformed"},
	)

	assert.True(t, HasCode(err, CodeValidation))
	violations := ViolationsOf(err)
	require.Len(t, violations, 2)
	assert.Equal(t, "name", violations[0].Field)
	assert.Equal(t, "email", violations[1].Field)
}

func TestViolationsOf_EmptyForNonValidation(t *testing.T) {
	assert.Empty(t, ViolationsOf(New(CodeNotFound, "gone")))
	assert.Empty(t, ViolationsOf(errors.New("plain")))
}
