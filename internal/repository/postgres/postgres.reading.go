// FilePath: internal/repository/postgres/postgres.reading.go
package postgres

import (
	"context"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type ReadingRepo struct {
	PostgresBaseRepo
}

func NewReadingRepository(db database.DB) *ReadingRepo {
	repo := &PostgresBaseRepo{db: db}
	return &ReadingRepo{PostgresBaseRepo: *repo}
}

func (r *ReadingRepo) InsertReading(ctx context.Context, reading *models.Reading) error {
	if reading.ID == "" {
		reading.ID = nuts.NID("rdg", 16)
	}
	query := `
		INSERT INTO readings (id, slot, uri, attribute, value, observed_at)
		VALUES (:id, :slot, :uri, :attribute, :value, :observed_at)`

	return r.namedExec(ctx, "failed to insert reading", query, reading)
}

func (r *ReadingRepo) LatestBySlot(ctx context.Context, slot string, limit int) ([]models.Reading, error) {
	if limit <= 0 {
		limit = 50
	}
	readings := []models.Reading{}
	query := `SELECT * FROM readings WHERE slot = $1 ORDER BY observed_at DESC LIMIT $2`

	if err := r.selectAll(ctx, "failed to list readings", &readings, query, slot, limit); err != nil {
		return nil, err
	}
	return readings, nil
}

func (r *ReadingRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return r.deleteRows(ctx, "failed to prune readings", `DELETE FROM readings WHERE observed_at < $1`, before)
}
