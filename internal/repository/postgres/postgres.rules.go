// FilePath: internal/repository/postgres/postgres.rules.go
package postgres

import (
	"context"

	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

type RuleRepo struct {
	PostgresBaseRepo
}

func NewRuleRepository(db database.DB) *RuleRepo {
	repo := &PostgresBaseRepo{db: db}
	return &RuleRepo{PostgresBaseRepo: *repo}
}

// Load returns the stored rule configuration or a not found error when none was saved yet.
func (r *RuleRepo) Load(ctx context.Context) (*models.RuleConfig, error) {
	cfg := &models.RuleConfig{}
	query := `SELECT density, heart_rate, kitchen_monitor, crazy_jumping FROM rule_config WHERE id = 1`

	if err := r.get(ctx, "rule config not stored", cfg, query); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (r *RuleRepo) Save(ctx context.Context, cfg models.RuleConfig) error {
	tx, err := r.BeginTx(ctx)
	if err != nil {
		return err
	}
	// a no-op once committed
	defer tx.Rollback()

	query := `
		INSERT INTO rule_config (id, density, heart_rate, kitchen_monitor, crazy_jumping, updated_at)
		VALUES (1, $1, $2, $3, $4, now())
		ON CONFLICT (id) DO UPDATE SET
			density = EXCLUDED.density,
			heart_rate = EXCLUDED.heart_rate,
			kitchen_monitor = EXCLUDED.kitchen_monitor,
			crazy_jumping = EXCLUDED.crazy_jumping,
			updated_at = EXCLUDED.updated_at`

	if _, err := tx.ExecContext(ctx, query, cfg.Density, cfg.HeartRate, cfg.KitchenMonitor, cfg.CrazyJumping); err != nil {
		return errors.NewDatabaseError("failed to save rule config", err)
	}
	return r.Commit(tx)
}
