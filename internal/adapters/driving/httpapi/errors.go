package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusFor maps a pipeline error to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var (
		chunkErr    *domain.ChunkingError
		provErr     *domain.ProviderError
		synthErr    *domain.SynthesisError
		storeErr    *domain.VectorStoreError
		maxBytesErr *http.MaxBytesError
	)
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, "body_too_large"
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, "invalid_input"
	case errors.As(err, &chunkErr):
		return http.StatusUnprocessableEntity, "chunking"
	case errors.As(err, &synthErr):
		return http.StatusBadGateway, "synthesis"
	case errors.As(err, &provErr):
		return http.StatusBadGateway, "provider"
	case errors.Is(err, domain.ErrNotReady):
		return http.StatusServiceUnavailable, "not_ready"
	case errors.As(err, &storeErr):
		return http.StatusServiceUnavailable, "vector_store"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "timeout"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func writeError(c *gin.Context, err error) {
	status, code := statusFor(err)
	c.JSON(status, errorBody{Error: errorDetail{Code: code, Message: err.Error()}})
}

func writeBadRequest(c *gin.Context, err error) {
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusBadRequest, errorBody{Error: errorDetail{Code: "invalid_input", Message: err.Error()}})
}
