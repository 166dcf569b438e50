package hubservice

import (
	"github.com/eval-printer/SmartHome-Demo/internal/cleanup"
	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/events"
	"github.com/eval-printer/SmartHome-Demo/internal/repository"
)

// HubService contains all repositories and service-wide dependencies of the gateway.
// The repositories are nil when no database is configured.
type HubService struct {
	Readings  repository.ReadingRepository
	Rules     repository.RuleRepository
	Commands  repository.CommandRepository
	Sensors   repository.SensorRepository
	Publisher events.Publisher
	Cleanup   *cleanup.CleanupService
	StationID string
}

// New creates a new HubService instance
func New(
	readings repository.ReadingRepository,
	rules repository.RuleRepository,
	commands repository.CommandRepository,
	sensors repository.SensorRepository,
	publisher events.Publisher,
	stationID string,
) *HubService {
	svc := &HubService{
		Readings:  readings,
		Rules:     rules,
		Commands:  commands,
		Sensors:   sensors,
		Publisher: publisher,
		StationID: stationID,
	}
	if readings != nil && commands != nil {
		svc.Cleanup = cleanup.New(readings, commands)
	}
	return svc
}

// Persistent reports whether readings and commands are stored
func (s *HubService) Persistent() bool {
	return s.Readings != nil && s.Commands != nil
}

// Validate checks that the repositories are either all set or all absent
func (s *HubService) Validate() error {
	if s.Publisher == nil {
		return ErrMissingDependency("publisher")
	}
	set := 0
	for _, ok := range []bool{s.Readings != nil, s.Rules != nil, s.Commands != nil, s.Sensors != nil} {
		if ok {
			set++
		}
	}
	if set != 0 && set != 4 {
		switch {
		case s.Readings == nil:
			return ErrMissingDependency("readings")
		case s.Rules == nil:
			return ErrMissingDependency("rules")
		case s.Sensors == nil:
			return ErrMissingDependency("sensors")
		default:
			return ErrMissingDependency("commands")
		}
	}
	return nil
}

func ErrMissingDependency(name string) error {
	return errors.NewInternalError("missing dependency: "+name, nil)
}
