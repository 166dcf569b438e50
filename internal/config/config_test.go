package config

import (
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "http://127.0.0.1:8080", cfg.Server.AdvertiseAddress)
	assert.Equal(t, 5*time.Second, cfg.Gateway.ResetTimeout)
	assert.Equal(t, 4*time.Second, cfg.Gateway.ActiveInterval)
	assert.Equal(t, 2*time.Second, cfg.Gateway.PresenceInterval)
	assert.Equal(t, 1500*time.Millisecond, cfg.Device.SampleInterval)
	assert.Equal(t, TransportREST, cfg.Transport.Mode)
	assert.Equal(t, DirectoryPeers, cfg.Transport.Directory)
	assert.Empty(t, cfg.Database.Postgres.Host)
}

func TestLoadFromEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("SMARTHOME_GATEWAY__STATION_ID", "kitchen")
	t.Setenv("SMARTHOME_SERVER__PORT", "9000")
	t.Setenv("SMARTHOME_DEVICE__KIND", "gas")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "kitchen", cfg.Gateway.StationID)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.Equal(t, "gas", cfg.Device.Kind)
}

func TestFlagsOverride(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	fs := pflag.NewFlagSet("device", pflag.ContinueOnError)
	require.NoError(t, BindFlags(fs))
	require.NoError(t, fs.Parse([]string{"--kind=led", "--port=8083", "--advertise=http://10.0.0.4:8083"}))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "led", cfg.Device.Kind)
	assert.Equal(t, 8083, cfg.Server.Port)
	assert.Equal(t, "http://10.0.0.4:8083", cfg.Server.AdvertiseAddress)
}

func TestValidateConfig(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server:    ServerConfig{Port: 8080},
			Gateway:   GatewayConfig{ResetTimeout: 5 * time.Second, ActiveInterval: 4 * time.Second, RequestTimeout: time.Second},
			Transport: TransportConfig{Mode: TransportREST, Directory: DirectoryPeers},
		}
	}
	require.NoError(t, validateConfig(valid()))

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad port", func(c *Config) { c.Server.Port = 0 }},
		{"bad mode", func(c *Config) { c.Transport.Mode = "coap" }},
		{"redis without host", func(c *Config) { c.Transport.Directory = DirectoryRedis }},
		{"active check after reset", func(c *Config) { c.Gateway.ActiveInterval = 6 * time.Second }},
		{"unknown device", func(c *Config) { c.Device.Kind = "toaster" }},
		{"keycloak without realm", func(c *Config) { c.Keycloak.URL = "http://kc" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, validateConfig(cfg))
		})
	}
}
