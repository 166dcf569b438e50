package postgres

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/database"
	"github.com/eval-printer/SmartHome-Demo/internal/errors"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

// openTestDB connects to the database named by SMARTHOME_TEST_PG_* and resets the tables.
func openTestDB(t *testing.T) database.DB {
	t.Helper()
	host := os.Getenv("SMARTHOME_TEST_PG_HOST")
	if host == "" {
		t.Skip("SMARTHOME_TEST_PG_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("SMARTHOME_TEST_PG_PORT"))
	if port == 0 {
		port = 5432
	}
	db, err := database.NewPostgresDB(config.PostgresConfig{
		Host:     host,
		Port:     port,
		User:     os.Getenv("SMARTHOME_TEST_PG_USER"),
		Password: os.Getenv("SMARTHOME_TEST_PG_PASSWORD"),
		DBName:   os.Getenv("SMARTHOME_TEST_PG_DBNAME"),
		SSLMode:  "disable",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, database.Migrate(ctx, db))
	_, err = db.GetDB().ExecContext(ctx, `TRUNCATE readings, rule_config, commands, sensors`)
	require.NoError(t, err)
	return db
}

func TestRuleRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewRuleRepository(db)
	ctx := context.Background()

	_, err := repo.Load(ctx)
	assert.True(t, errors.IsNotFound(err))

	cfg := models.DefaultRuleConfig()
	cfg.KitchenMonitor = true
	cfg.Density = 65
	require.NoError(t, repo.Save(ctx, cfg))
	cfg.HeartRate = 120
	require.NoError(t, repo.Save(ctx, cfg))

	got, err := repo.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, cfg, *got)
}

func TestReadingRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewReadingRepository(db)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Second)

	for i, v := range []string{"60", "75", "80"} {
		require.NoError(t, repo.InsertReading(ctx, &models.Reading{
			Slot:       models.SlotGas,
			URI:        models.URIGas,
			Attribute:  models.AttrDensity,
			Value:      v,
			ObservedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	got, err := repo.LatestBySlot(ctx, models.SlotGas, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "80", got[0].Value)
	assert.Equal(t, "75", got[1].Value)
}

func TestCommandRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewCommandRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.SaveCommand(ctx, &models.Command{
		RequestID: "cmd_1",
		Slot:      models.SlotFan,
		URI:       models.URIFan,
		Rule:      "gas",
		Delta:     models.Representation{models.AttrFanState: models.FanOn},
	}))

	got, err := repo.ListCommands(ctx, models.SlotFan, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, models.FanOn, got[0].Delta[models.AttrFanState])
	assert.False(t, got[0].IssuedAt.IsZero())
}

func TestDeleteOlderThan(t *testing.T) {
	db := openTestDB(t)
	readings := NewReadingRepository(db)
	commands := NewCommandRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, readings.InsertReading(ctx, &models.Reading{
		Slot: models.SlotGas, URI: models.URIGas, Attribute: models.AttrDensity, Value: "10",
		ObservedAt: now.Add(-48 * time.Hour),
	}))
	require.NoError(t, readings.InsertReading(ctx, &models.Reading{
		Slot: models.SlotGas, URI: models.URIGas, Attribute: models.AttrDensity, Value: "20",
		ObservedAt: now,
	}))
	require.NoError(t, commands.SaveCommand(ctx, &models.Command{
		RequestID: "cmd_old", Slot: models.SlotFan, URI: models.URIFan, Rule: "gas",
		Delta:    models.Representation{models.AttrFanState: models.FanOff},
		IssuedAt: now.Add(-48 * time.Hour),
	}))

	n, err := readings.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = commands.DeleteOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	left, err := readings.LatestBySlot(ctx, models.SlotGas, 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "20", left[0].Value)
}

func TestSensorRepo(t *testing.T) {
	db := openTestDB(t)
	repo := NewSensorRepository(db)
	ctx := context.Background()
	first := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Upsert(ctx, "gas", "http://10.0.0.5:8080/oic/res?rt=intel.gas", first))
	require.NoError(t, repo.SetActive(ctx, "gas", false, first.Add(time.Minute)))

	got, err := repo.Get(ctx, "gas")
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.True(t, got.LastSeen.Equal(first))

	later := first.Add(time.Hour)
	require.NoError(t, repo.Upsert(ctx, "gas", "http://10.0.0.6:8080/oic/res?rt=intel.gas", later))
	got, err = repo.Get(ctx, "gas")
	require.NoError(t, err)
	assert.True(t, got.Active)
	assert.Equal(t, "http://10.0.0.6:8080/oic/res?rt=intel.gas", got.Address)
	assert.True(t, got.FirstSeen.Equal(first))
	assert.True(t, got.LastSeen.Equal(later))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	err = repo.SetActive(ctx, "fan", true, later)
	assert.True(t, errors.IsNotFound(err))
}
