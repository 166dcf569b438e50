package resources

import (
	"net/http"

	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"

	"github.com/eval-printer/SmartHome-Demo/internal/hubservice"
)

// CommandHandlers encapsulates the actuator command log handlers
type CommandHandlers struct {
	hubservice *hubservice.HubService
}

// @Summary List actuator commands
// @Description Lists the newest commands the automation rules sent to an actuator (fan or led)
// @Tags actuators
// @Produce json
// @Param slot path string true "Actuator slot"
// @Param limit query int false "Maximum number of commands (default 50)"
// @Success 200 {array} models.Command
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /api/v1/actuators/{slot}/commands [get]
// @Security BearerAuth
func (h *CommandHandlers) ListActuatorCommands(w http.ResponseWriter, r *http.Request) {
	slot := mux.Vars(r)["slot"]
	requestID := nuts.NID("req", 12)

	commands, err := h.hubservice.ListCommands(r.Context(), slot, getLimit(r))
	if err != nil {
		respondWithError(w, toAPIError(err, "failed to list commands", requestID))
		return
	}

	respondWithJSON(w, http.StatusOK, commands)
}
