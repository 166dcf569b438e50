// FilePath: api/resources/resources.go
package resources

import (
	"context"
	stderrors "errors"
	"net/http"
	"strconv"

	"github.com/segmentio/encoding/json"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/gateway"
	"github.com/eval-printer/SmartHome-Demo/internal/hubservice"
)

// StatusSource provides the live gateway view
type StatusSource interface {
	Status(ctx context.Context) (gateway.Status, error)
}

// Resources holds all HTTP resource handlers
type Resources struct {
	Readings    *ReadingHandlers
	Commands    *CommandHandlers
	Gateway     *GatewayHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService, status StatusSource) *Resources {
	return &Resources{
		Readings:    &ReadingHandlers{hubservice: svc},
		Commands:    &CommandHandlers{hubservice: svc},
		Gateway:     &GatewayHandlers{status: status},
		HealthCheck: Health,
		Metrics: func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
		},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}

// @Summary Health check
// @Description Reports that the process is up and its version
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Router /v1/health [get]
func Health(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": nuts.GetVersion(),
	})
}

// Helper functions

func getLimit(r *http.Request) int {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 50
	}
	return limit
}

// toAPIError keeps classified errors and wraps everything else as internal
func toAPIError(err error, msg, requestID string) *errors.APIError {
	var apiErr *errors.APIError
	if stderrors.As(err, &apiErr) {
		return apiErr.WithRequestID(requestID)
	}
	return errors.NewInternalError(msg, err).WithRequestID(requestID)
}

func respondWithError(w http.ResponseWriter, err *errors.APIError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(err.Code)
	json.NewEncoder(w).Encode(err)
	nuts.L.Errorf("[API] %s", err.Error())
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(payload)
}
