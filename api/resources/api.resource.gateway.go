package resources

import (
	"net/http"

	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
)

// GatewayHandlers serves the live registry view
type GatewayHandlers struct {
	status StatusSource
}

// @Summary Gateway status
// @Description Registered sensors with their liveness, the rule configuration and the actuator shadow
// @Tags gateway
// @Produce json
// @Success 200 {object} gateway.Status
// @Failure 503 {object} errors.APIError
// @Router /api/v1/gateway/status [get]
// @Security BearerAuth
func (h *GatewayHandlers) GetGatewayStatus(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)
	if h.status == nil {
		respondWithError(w, errors.NewNotFoundError("this process is not a gateway", nil).WithRequestID(requestID))
		return
	}

	st, err := h.status.Status(r.Context())
	if err != nil {
		apiErr := errors.NewInternalError("gateway did not answer", err).WithRequestID(requestID)
		apiErr.Type = errors.ErrorTypeUnavailable
		apiErr.Code = http.StatusServiceUnavailable
		respondWithError(w, apiErr)
		return
	}

	respondWithJSON(w, http.StatusOK, st)
}
