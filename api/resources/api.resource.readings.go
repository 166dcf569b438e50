package resources

import (
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/hubservice"
)

// ReadingHandlers encapsulates the reading-related HTTP handlers
type ReadingHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary Get sensor readings
// @Description Get the newest stored readings of a sensor slot (gas, pri, fan, led, heartRate)
// @Tags sensors
// @Produce json
// @Param slot path string true "Sensor slot"
// @Param limit query int false "Maximum number of readings (default 50)"
// @Success 200 {array} models.Reading
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /api/v1/sensors/{slot}/readings [get]
// @Security BearerAuth
func (h *ReadingHandlers) GetSensorReadings(w http.ResponseWriter, r *http.Request) {
	slot := mux.Vars(r)["slot"]
	requestID := nuts.NID("req", 12)

	readings, err := h.hubservice.LatestReadings(r.Context(), slot, getLimit(r))
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to get sensor readings", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}


// @Summary List known sensors
// @Description Every sensor that registered with the gateway, with first and last sighting
// @Tags sensors
// @Produce json
// @Success 200 {array} models.KnownSensor
// @Failure 404 {object} errors.APIError
// @Router /api/v1/sensors [get]
// @Security BearerAuth
func (h *ReadingHandlers) ListKnownSensors(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	sensors, err := h.hubservice.KnownSensors(r.Context())
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list sensors", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, sensors)
}
