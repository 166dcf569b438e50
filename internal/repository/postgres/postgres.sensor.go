// FilePath: internal/repository/postgres/postgres.sensor.go
package postgres

import (
	"context"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

type SensorRepo struct {
	PostgresBaseRepo
}

func NewSensorRepository(db database.DB) *SensorRepo {
	repo := &PostgresBaseRepo{db: db}
	return &SensorRepo{PostgresBaseRepo: *repo}
}

// Upsert records a registration. The first sighting is kept on re-registration.
func (r *SensorRepo) Upsert(ctx context.Context, name, address string, at time.Time) error {
	query := `
		INSERT INTO sensors (name, address, active, first_seen, last_seen, updated_at)
		VALUES ($1, $2, TRUE, $3, $3, $3)
		ON CONFLICT (name) DO UPDATE SET
			address = EXCLUDED.address,
			active = TRUE,
			last_seen = EXCLUDED.last_seen,
			updated_at = EXCLUDED.updated_at`

	_, err := r.exec(ctx, "failed to upsert sensor", query, name, address, at)
	return err
}

func (r *SensorRepo) Get(ctx context.Context, name string) (*models.KnownSensor, error) {
	sensor := &models.KnownSensor{}
	query := `SELECT * FROM sensors WHERE name = $1`

	if err := r.get(ctx, "sensor not found", sensor, query, name); err != nil {
		return nil, err
	}
	return sensor, nil
}

func (r *SensorRepo) List(ctx context.Context) ([]models.KnownSensor, error) {
	sensors := []models.KnownSensor{}
	query := `SELECT * FROM sensors ORDER BY name`

	if err := r.selectAll(ctx, "failed to list sensors", &sensors, query); err != nil {
		return nil, err
	}
	return sensors, nil
}

// SetActive flips the liveness flag. last_seen only moves forward while active.
func (r *SensorRepo) SetActive(ctx context.Context, name string, active bool, at time.Time) error {
	query := `
		UPDATE sensors SET
			active = $1,
			last_seen = CASE WHEN $1 THEN $2 ELSE last_seen END,
			updated_at = $2
		WHERE name = $3`

	result, err := r.exec(ctx, "failed to update sensor", query, active, at, name)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("sensor not found", nil)
	}

	return nil
}
