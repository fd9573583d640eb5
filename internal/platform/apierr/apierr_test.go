package apierr

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorTextFallbacks(t *testing.T) {
	cause := errors.New("dial tcp: refused")

	assert.Equal(t, "try again", Wrap(502, "upstream", "try again", cause).Error())
	assert.Equal(t, "dial tcp: refused", Wrap(502, "upstream", "", cause).Error())
	assert.Equal(t, "upstream", New(502, "upstream", "").Error())
	assert.Equal(t, "Bad Gateway", New(502, "", "").Error())
	assert.Equal(t, "api error", New(0, "", "").Error())

	var nilErr *Error
	assert.Equal(t, "", nilErr.Error())
}

func TestWrapKeepsCauseInChain(t *testing.T) {
	cause := errors.New("quota")
	err := fmt.Errorf("handler: %w", Wrap(502, "upstream_error", "The service is busy.", cause))

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "handler: The service is busy.", err.Error())
}

func TestFrom(t *testing.T) {
	wrapped := fmt.Errorf("ctx: %w", New(http.StatusConflict, "session_conflict", "busy"))
	got := From(wrapped)
	assert.Equal(t, http.StatusConflict, got.Status)
	assert.Equal(t, "session_conflict", got.Code)
	assert.Equal(t, "busy", got.Error())

	got = From(New(0, "odd", "no status"))
	assert.Equal(t, http.StatusInternalServerError, got.Status)

	plain := errors.New("boom")
	got = From(plain)
	require.NotNil(t, got)
	assert.Equal(t, http.StatusInternalServerError, got.Status)
	assert.Equal(t, "internal_error", got.Code)
	assert.Equal(t, "boom", got.Error())
	assert.ErrorIs(t, got, plain)

	assert.Equal(t, "unknown error", From(nil).Error())
}
