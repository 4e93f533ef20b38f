//go:build unit

package errs_test

import (
	"errors"
	"testing"

	"checkout-engine/internal/pkg/errs"

	"github.com/stretchr/testify/assert"
)

var (
	errMarker   = errors.New("marker")
	errSentinel = errs.NewReason("SOMETHING_WRONG", errs.ErrBusinessRule, "something wrong", errMarker)
)

func TestReasonError(t *testing.T) {
	t.Parallel()

	wrapped := errs.Wrap(errSentinel, "while doing work")

	t.Run("sentinel identity survives wrapping", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, wrapped, errSentinel)
		assert.True(t, errs.Is(wrapped, errSentinel))
	})

	t.Run("category and marks", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, wrapped, errs.ErrBusinessRule)
		assert.ErrorIs(t, wrapped, errMarker)
		assert.NotErrorIs(t, wrapped, errs.ErrTransient)
		assert.False(t, errs.IsRetryable(wrapped))
	})

	t.Run("reason code", func(t *testing.T) {
		t.Parallel()
		reason, ok := errs.ReasonOf(wrapped)
		assert.True(t, ok)
		assert.Equal(t, errs.Reason("SOMETHING_WRONG"), reason)

		_, ok = errs.ReasonOf(errors.New("plain"))
		assert.False(t, ok)
	})
}
