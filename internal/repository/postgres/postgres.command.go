// FilePath: internal/repository/postgres/postgres.command.go
package postgres

import (
	"context"
	"time"

	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

type CommandRepo struct {
	PostgresBaseRepo
}

func NewCommandRepository(db database.DB) *CommandRepo {
	repo := &PostgresBaseRepo{db: db}
	return &CommandRepo{PostgresBaseRepo: *repo}
}

func (r *CommandRepo) SaveCommand(ctx context.Context, cmd *models.Command) error {
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now().UTC()
	}
	query := `
		INSERT INTO commands (request_id, slot, uri, rule, delta, issued_at)
		VALUES (:request_id, :slot, :uri, :rule, :delta, :issued_at)`

	return r.namedExec(ctx, "failed to store command", query, cmd)
}

func (r *CommandRepo) ListCommands(ctx context.Context, slot string, limit int) ([]models.Command, error) {
	if limit <= 0 {
		limit = 50
	}
	commands := []models.Command{}
	query := `SELECT * FROM commands WHERE slot = $1 ORDER BY issued_at DESC LIMIT $2`

	if err := r.selectAll(ctx, "failed to list commands", &commands, query, slot, limit); err != nil {
		return nil, err
	}
	return commands, nil
}

func (r *CommandRepo) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	return r.deleteRows(ctx, "failed to prune commands", `DELETE FROM commands WHERE issued_at < $1`, before)
}
