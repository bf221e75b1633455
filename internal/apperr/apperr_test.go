package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"mess-o-midi-backend/internal/apperr"
)

func TestValidationErrorMatchesSentinel(t *testing.T) {
	err := fmt.Errorf("rename: %w", apperr.Validation("Name must be 50 characters or less"))

	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.False(t, errors.Is(err, apperr.ErrNotFound))
	assert.Equal(t, "Name must be 50 characters or less", apperr.PublicMessage(err))
}

func TestHTTPStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{nil, http.StatusOK},
		{apperr.Validation("bad"), http.StatusBadRequest},
		{fmt.Errorf("get project: %w", apperr.ErrNotFound), http.StatusNotFound},
		{apperr.ErrQuotaExceeded, http.StatusForbidden},
		{apperr.ErrConflict, http.StatusConflict},
		{fmt.Errorf("%w: timeout", apperr.ErrUpstream), http.StatusServiceUnavailable},
		{apperr.ErrStorage, http.StatusInternalServerError},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, apperr.HTTPStatus(tc.err), "%v", tc.err)
	}
}

func TestPublicMessageHidesInternalDetail(t *testing.T) {
	err := fmt.Errorf("%w: pq: connection refused", apperr.ErrStorage)
	assert.Equal(t, "internal server error", apperr.PublicMessage(err))
	assert.Equal(t, "resource not found", apperr.PublicMessage(apperr.ErrNotFound))
}
