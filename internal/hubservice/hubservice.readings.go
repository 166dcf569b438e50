package hubservice

import (
	"context"
	"fmt"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

const maxReadings = 500

var knownSlots = map[string]bool{
	models.SlotGas:       true,
	models.SlotFan:       true,
	models.SlotLed:       true,
	models.SlotMotion:    true,
	models.SlotHeartRate: true,
}

var (
	sensorSlots   = []string{models.SlotFan, models.SlotGas, models.SlotHeartRate, models.SlotLed, models.SlotMotion}
	actuatorSlots = []string{models.SlotFan, models.SlotLed}
)

// RecordObservation stores one reading per attribute and publishes the observation
func (s *HubService) RecordObservation(ctx context.Context, slot, uri string, state models.Representation, at time.Time) error {
	if at.IsZero() {
		at = time.Now().UTC()
	}

	if s.Readings != nil {
		for _, attr := range state.Keys() {
			reading := &models.Reading{
				Slot:       slot,
				URI:        uri,
				Attribute:  attr,
				Value:      fmt.Sprint(state[attr]),
				ObservedAt: at,
			}
			if err := s.Readings.InsertReading(ctx, reading); err != nil {
				return err
			}
		}
	}

	update := models.ObservationUpdate{
		StationID:       s.StationID,
		ObservationType: slot,
		URI:             uri,
		State:           state,
		MeasuredAt:      at,
	}
	if err := s.Publisher.Publish(ctx, update); err != nil {
		nuts.L.Warnf("[HubService] Failed to publish %s observation: %v", slot, err)
		return err
	}
	return nil
}

// LatestReadings returns the newest readings of a slot
func (s *HubService) LatestReadings(ctx context.Context, slot string, limit int) ([]models.Reading, error) {
	if !knownSlots[slot] {
		return nil, errors.NewValidationError("unknown sensor slot: "+slot, nil).
			WithDetails(map[string][]string{"slots": sensorSlots})
	}
	if s.Readings == nil {
		return nil, errors.NewNotFoundError("readings are not stored on this gateway", nil)
	}
	if limit <= 0 || limit > maxReadings {
		limit = 50
	}
	return s.Readings.LatestBySlot(ctx, slot, limit)
}
