package redis

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eval-printer/SmartHome-Demo/internal/config"
	"github.com/eval-printer/SmartHome-Demo/internal/models"
	"github.com/eval-printer/SmartHome-Demo/internal/transport"
)

// newTestDirectory connects to the Redis named by SMARTHOME_TEST_REDIS_HOST/PORT.
func newTestDirectory(t *testing.T) *Directory {
	t.Helper()
	host := os.Getenv("SMARTHOME_TEST_REDIS_HOST")
	if host == "" {
		t.Skip("SMARTHOME_TEST_REDIS_HOST not set")
	}
	port, _ := strconv.Atoi(os.Getenv("SMARTHOME_TEST_REDIS_PORT"))
	if port == 0 {
		port = 6379
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	client, err := NewClient(ctx, config.RedisConfig{Host: host, Port: port, DB: 15})
	require.NoError(t, err)
	require.NoError(t, client.FlushDB(ctx).Err())
	t.Cleanup(func() { client.Close() })
	return NewDirectory(client)
}

func collect(t *testing.T, d *Directory, q transport.Query) []models.ResourceInfo {
	t.Helper()
	ch, err := d.Find(context.Background(), q)
	require.NoError(t, err)
	var out []models.ResourceInfo
	for info := range ch {
		out = append(out, info)
	}
	return out
}

func TestAdvertiseFindWithdraw(t *testing.T) {
	d := newTestDirectory(t)
	ctx := context.Background()
	gas := models.ResourceInfo{URI: models.URIGas, Types: []string{models.TypeGas}, Host: "http://10.0.0.2:8080"}
	fan := models.ResourceInfo{URI: models.URIFan, Types: []string{models.TypeFan}, Host: "http://10.0.0.3:8080"}

	require.NoError(t, d.Advertise(ctx, gas))
	require.NoError(t, d.Advertise(ctx, gas))
	require.NoError(t, d.Advertise(ctx, fan))

	assert.Equal(t, []models.ResourceInfo{gas}, collect(t, d, transport.Query{ResourceType: models.TypeGas}))
	assert.Len(t, collect(t, d, transport.Query{}), 2)
	assert.Equal(t, []models.ResourceInfo{fan}, collect(t, d, transport.Query{Host: fan.Host}))

	require.NoError(t, d.Withdraw(ctx, gas))
	assert.Empty(t, collect(t, d, transport.Query{ResourceType: models.TypeGas}))
}

func TestAnnouncements(t *testing.T) {
	d := newTestDirectory(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ann := d.Announcements(ctx)
	// Give the subscription time to attach before publishing.
	time.Sleep(100 * time.Millisecond)
	led := models.ResourceInfo{URI: models.URILed, Types: []string{models.TypeIntel}, Host: "http://10.0.0.4:8080"}
	require.NoError(t, d.Advertise(ctx, led))

	select {
	case got := <-ann:
		assert.Equal(t, led, got)
	case <-time.After(2 * time.Second):
		t.Fatal("announcement not received")
	}
}
