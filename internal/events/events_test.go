package events

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
)

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "home.gas", RoutingKey("home", models.SlotGas))
	assert.Equal(t, "flat_3b.heartRate", RoutingKey("flat.3b", models.SlotHeartRate))
	assert.Equal(t, "home.fan", RoutingKey("", models.SlotFan))
}

func TestNewPublisherWithoutDSN(t *testing.T) {
	p, err := NewPublisher(config.AMQPConfig{})
	require.NoError(t, err)
	assert.IsType(t, NopPublisher{}, p)
	assert.NoError(t, p.Publish(context.Background(), models.ObservationUpdate{StationID: "home"}))
	assert.NoError(t, p.Close())
}
