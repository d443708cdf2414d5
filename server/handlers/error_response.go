package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/recommerce/asset/backends"
	"github.com/recommerce/asset/internal/pathutil"
	"github.com/recommerce/asset/session"
)

// ErrAssetNotFound is reported when a requested asset is absent.
var ErrAssetNotFound = errors.New("asset not found")

// ErrorResponse represents a standardized error response
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// SendErrorResponse sends a standardized JSON error response
func SendErrorResponse(w http.ResponseWriter, logger *zap.Logger, err error, defaultStatusCode int) {
	statusCode, errorCode := classify(err, defaultStatusCode)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Code:    errorCode,
		Message: err.Error(),
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		logger.Error("Failed to encode error response", zap.Error(err))
	}

	logger.Info("Error response sent",
		zap.String("error_code", errorCode),
		zap.Int("status_code", statusCode),
		zap.Error(err))
}

func classify(err error, defaultStatusCode int) (int, string) {
	switch {
	case errors.Is(err, ErrAssetNotFound), errors.Is(err, backends.ErrNotFound):
		return http.StatusNotFound, "ASSET_NOT_FOUND"
	case errors.Is(err, pathutil.ErrForbidden):
		return http.StatusBadRequest, "INVALID_PATH"
	case errors.Is(err, session.ErrConnection):
		return http.StatusServiceUnavailable, "BACKEND_UNAVAILABLE"
	case defaultStatusCode == http.StatusBadRequest:
		return defaultStatusCode, "BAD_REQUEST"
	default:
		return defaultStatusCode, "INTERNAL_ERROR"
	}
}

// SendJSONResponse sends a JSON response with any data structure
func SendJSONResponse(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, `{"error":"Failed to encode response"}`)
	}
}
