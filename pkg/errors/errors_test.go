package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTTPStatusCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"session", fmt.Errorf("%w: abc", ErrSessionNotFound), http.StatusNotFound},
		{"asset", ErrAssetNotFound, http.StatusNotFound},
		{"snapshot", ErrSnapshotMissing, http.StatusNotFound},
		{"input", fmt.Errorf("decoding: %w", ErrInvalidInput), http.StatusBadRequest},
		{"scores", ErrMalformedScores, http.StatusBadRequest},
		{"not ready", ErrNotReady, http.StatusServiceUnavailable},
		{"corrupt", ErrCorruptAsset, http.StatusServiceUnavailable},
		{"other", fmt.Errorf("boom"), http.StatusInternalServerError},
		{"app error", New(ErrInvalidInput, http.StatusConflict, "dup"), http.StatusConflict},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatusCode(tt.err))
		})
	}
}

func TestAppErrorWraps(t *testing.T) {
	err := fmt.Errorf("loading: %w", Newf(ErrCorruptAsset, http.StatusServiceUnavailable, "node %d", 7))
	assert.True(t, Is(err, ErrCorruptAsset))
	assert.EqualError(t, err, "loading: corrupt tree asset: node 7")

	var appErr *AppError
	assert.True(t, As(err, &appErr))
	assert.Equal(t, "node 7", appErr.Message)
}
