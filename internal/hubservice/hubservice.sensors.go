package hubservice

import (
	"context"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// SensorRegistered remembers a registration
func (s *HubService) SensorRegistered(ctx context.Context, name, address string) error {
	if s.Sensors == nil {
		return nil
	}
	return s.Sensors.Upsert(ctx, name, address, time.Now().UTC())
}

// SensorLiveness stores whether a known sensor is live. Sensors that never
// registered through this gateway are ignored.
func (s *HubService) SensorLiveness(ctx context.Context, name string, active bool) error {
	if s.Sensors == nil {
		return nil
	}
	err := s.Sensors.SetActive(ctx, name, active, time.Now().UTC())
	if errors.IsNotFound(err) {
		return nil
	}
	return err
}

// KnownSensors lists every sensor that ever registered
func (s *HubService) KnownSensors(ctx context.Context) ([]models.KnownSensor, error) {
	if s.Sensors == nil {
		return nil, errors.NewNotFoundError("sensors are not stored on this gateway", nil)
	}
	return s.Sensors.List(ctx)
}
