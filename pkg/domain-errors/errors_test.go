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
		err := New(CodeNotFound, "subject not found")
		assert.True(t, HasCode(err, CodeNotFound))
		assert.False(t, HasCode(err, CodeConflict))
	})

	t.Run("matches through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("load: %w", New(CodeForbidden, "not a party"))
		assert.True(t, HasCode(err, CodeForbidden))
	})

	t.Run("plain errors map to internal", func(t *testing.T) {
		err := errors.New("boom")
		assert.False(t, HasCode(err, CodeInternal))
		assert.Equal(t, CodeInternal, CodeOf(err))
	})
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("unique violation")
	err := Wrap(cause, CodeConflict, "concurrent modification")

	require.ErrorIs(t, err, cause)
	assert.True(t, HasCode(err, CodeConflict))
	assert.Contains(t, err.Error(), "unique violation")
}

func TestConflictCarriesState(t *testing.T) {
	err := Conflict(CodeInvalidTransition, "cannot decide", "approved")

	assert.Equal(t, "approved", StateOf(err))
	assert.Equal(t, CategoryStateConflict, CodeOf(err).Category())
	assert.Equal(t, "", StateOf(New(CodeValidation, "x")))
}

func TestCategories(t *testing.T) {
	cases := map[Code]Category{
		CodeReasonTooShort:       CategoryValidation,
		CodeAppealAlreadyPending: CategoryStateConflict,
		CodeWindowExpired:        CategoryStateConflict,
		CodeConflict:             CategoryConcurrency,
		CodeForbidden:            CategoryAuthorization,
		CodeNotFound:             CategoryNotFound,
		Code("mystery"):          CategoryInternal,
	}
	for code, want := range cases {
		assert.Equal(t, want, code.Category(), string(code))
	}
}
