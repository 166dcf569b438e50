package hubservice

import (
	"context"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// RecordCommand appends an acknowledged rule command to the command log
func (s *HubService) RecordCommand(ctx context.Context, cmd models.Command) error {
	if s.Commands == nil {
		return nil
	}
	if cmd.RequestID == "" {
		return errors.NewValidationError("command without request id", nil)
	}
	return s.Commands.SaveCommand(ctx, &cmd)
}

// ListCommands returns the newest commands sent to an actuator slot
func (s *HubService) ListCommands(ctx context.Context, slot string, limit int) ([]models.Command, error) {
	if slot != models.SlotFan && slot != models.SlotLed {
		return nil, errors.NewValidationError("not an actuator slot: "+slot, nil).
			WithDetails(map[string][]string{"slots": actuatorSlots})
	}
	if s.Commands == nil {
		return nil, errors.NewNotFoundError("commands are not stored on this gateway", nil)
	}
	if limit <= 0 || limit > maxReadings {
		limit = 50
	}
	return s.Commands.ListCommands(ctx, slot, limit)
}
