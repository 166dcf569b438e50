// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// ReadingRepository stores observed sensor values
type ReadingRepository interface {
	InsertReading(ctx context.Context, reading *models.Reading) error
	LatestBySlot(ctx context.Context, slot string, limit int) ([]models.Reading, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// RuleRepository persists the automation rule configuration
type RuleRepository interface {
	database.Repository
	Load(ctx context.Context) (*models.RuleConfig, error)
	Save(ctx context.Context, cfg models.RuleConfig) error
}

// CommandRepository keeps a log of actuator commands issued by rules
type CommandRepository interface {
	SaveCommand(ctx context.Context, cmd *models.Command) error
	ListCommands(ctx context.Context, slot string, limit int) ([]models.Command, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// SensorRepository remembers every sensor that registered with the gateway
type SensorRepository interface {
	Upsert(ctx context.Context, name, address string, at time.Time) error
	Get(ctx context.Context, name string) (*models.KnownSensor, error)
	List(ctx context.Context) ([]models.KnownSensor, error)
	SetActive(ctx context.Context, name string, active bool, at time.Time) error
}
