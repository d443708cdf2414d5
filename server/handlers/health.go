package handlers

import (
	"net/http"

	"go.uber.org/zap"
)

// HealthResponse is the JSON body of the health check.
type HealthResponse struct {
	Status           string `json:"status"`
	BackendConnected bool   `json:"backend_connected"`
}

// V1Health handles GET /health. A disconnected backend is reported as
// degraded but still answers 200, since the next request reconnects.
func V1Health(assets Assets, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		response := HealthResponse{Status: "ok", BackendConnected: true}

		if state, ok := assets.(ConnectionState); ok && !state.Connected() {
			response.Status = "degraded"
			response.BackendConnected = false
			logger.Debug("Health check with disconnected backend")
		}

		SendJSONResponse(w, response)
	}
}
