package simerrors

import (
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusCodePerKind(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, New(Validation, "bad input").StatusCode())
	assert.Equal(t, http.StatusUnauthorized, New(Unauthorized, "no token").StatusCode())
	assert.Equal(t, http.StatusForbidden, New(Forbidden, "not yours").StatusCode())
	assert.Equal(t, http.StatusNotFound, New(NotFound, "hidden").StatusCode())
	assert.Equal(t, http.StatusConflict, New(Conflict, "already recalled").StatusCode())
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("insufficient resources to offer")
	err := Wrap(Validation, "trade create failed", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "insufficient resources to offer")
}

func TestStatusOfDefaultsToInternalServerErrorForUnclassified(t *testing.T) {
	assert.Equal(t, http.StatusInternalServerError, StatusOf(errors.New("boom")))
}

func TestStatusOfUnwrapsClassifiedError(t *testing.T) {
	err := New(Conflict, "duplicate accept")
	assert.Equal(t, http.StatusConflict, StatusOf(err))
}
