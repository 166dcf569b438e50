package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds all configuration for the gateway and device processes
type Config struct {
	Server     ServerConfig
	Gateway    GatewayConfig
	Device     DeviceConfig
	Transport  TransportConfig
	Database   DatabaseConfig
	Keycloak   KeycloakConfig
	Redis      RedisConfig
	AMQP       AMQPConfig
	Bluetooth  BluetoothConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Host            string        `mapstructure:"host"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	// AdvertiseAddress is the base URL peers use to reach this process.
	AdvertiseAddress string `mapstructure:"advertise_address"`
}

type GatewayConfig struct {
	StationID        string        `mapstructure:"station_id"`
	ResetTimeout     time.Duration `mapstructure:"reset_timeout"`
	ActiveInterval   time.Duration `mapstructure:"active_interval"`
	PresenceInterval time.Duration `mapstructure:"presence_interval"`
	RequestTimeout   time.Duration `mapstructure:"request_timeout"`
}

type DeviceConfig struct {
	Kind             string        `mapstructure:"kind"`
	Name             string        `mapstructure:"name"`
	GatewayAddress   string        `mapstructure:"gateway_address"`
	SampleInterval   time.Duration `mapstructure:"sample_interval"`
	RegisterAttempts uint          `mapstructure:"register_attempts"`
	RegisterDelay    time.Duration `mapstructure:"register_delay"`
}

type TransportConfig struct {
	Mode      string   `mapstructure:"mode"`
	Directory string   `mapstructure:"directory"`
	Peers     []string `mapstructure:"peers"`
}

type DatabaseConfig struct {
	Postgres PostgresConfig `mapstructure:"postgres"`
	// Retention is how long readings and commands are kept; zero keeps everything.
	Retention       time.Duration `mapstructure:"retention"`
	CleanupInterval time.Duration `mapstructure:"cleanup_interval"`
}

type PostgresConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

type KeycloakConfig struct {
	URL          string `mapstructure:"url"`
	Realm        string `mapstructure:"realm"`
	ClientID     string `mapstructure:"client_id"`
	ClientSecret string `mapstructure:"client_secret"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AMQPConfig struct {
	DSN      string `mapstructure:"dsn"`
	Exchange string `mapstructure:"exchange"`
	TLS      bool   `mapstructure:"tls"`
}

type BluetoothConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Simulate bool   `mapstructure:"simulate"`
	DeviceID int    `mapstructure:"device_id"`
	Address  string `mapstructure:"address"`
}

type MonitoringConfig struct {
	LogLevel string `mapstructure:"log_level"`
}

// Transport modes and directory backends.
const (
	TransportREST     = "rest"
	TransportLoopback = "loopback"
	DirectoryPeers    = "peers"
	DirectoryRedis    = "redis"
)

var deviceKinds = map[string]bool{"fan": true, "gas": true, "pir": true, "led": true}

// BindFlags exposes the most used settings as command line flags. Flags take
// precedence over environment and config file values.
func BindFlags(fs *pflag.FlagSet) error {
	fs.Int("port", 8080, "HTTP listen port")
	fs.String("advertise", "", "base URL peers use to reach this process")
	fs.String("kind", "", "device kind: fan, gas, pir or led")
	fs.String("gateway", "", "gateway discovery address")
	fs.StringSlice("peers", nil, "peer base URLs used for discovery")

	bindings := map[string]string{
		"server.port":              "port",
		"server.advertise_address": "advertise",
		"device.kind":              "kind",
		"device.gateway_address":   "gateway",
		"transport.peers":          "peers",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

// Load initializes configuration from environment variables and config file
func Load() (*Config, error) {
	viper.SetEnvPrefix("SMARTHOME")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__"))
	viper.AutomaticEnv()

	// Set defaults
	setDefaults()

	// Load config file if exists
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if config.Server.AdvertiseAddress == "" {
		config.Server.AdvertiseAddress = fmt.Sprintf("http://%s:%d", advertiseHost(config.Server.Host), config.Server.Port)
	}

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("config validation error: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.read_timeout", "15s")
	viper.SetDefault("server.write_timeout", "15s")
	viper.SetDefault("server.shutdown_timeout", "10s")
	viper.SetDefault("server.advertise_address", "")

	// Gateway defaults
	viper.SetDefault("gateway.station_id", "home")
	viper.SetDefault("gateway.reset_timeout", "5s")
	viper.SetDefault("gateway.active_interval", "4s")
	viper.SetDefault("gateway.presence_interval", "2s")
	viper.SetDefault("gateway.request_timeout", "3s")

	// Device defaults
	viper.SetDefault("device.kind", "")
	viper.SetDefault("device.name", "")
	viper.SetDefault("device.gateway_address", "/oic/res?rt=gw.sensor")
	viper.SetDefault("device.sample_interval", "1500ms")
	viper.SetDefault("device.register_attempts", 10)
	viper.SetDefault("device.register_delay", "2s")

	// Transport defaults
	viper.SetDefault("transport.mode", TransportREST)
	viper.SetDefault("transport.directory", DirectoryPeers)
	viper.SetDefault("transport.peers", []string{})

	// Database defaults
	viper.SetDefault("database.postgres.port", 5432)
	viper.SetDefault("database.postgres.sslmode", "disable")
	viper.SetDefault("database.retention", "168h")
	viper.SetDefault("database.cleanup_interval", "1h")

	// Redis defaults
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)

	// AMQP defaults
	viper.SetDefault("amqp.dsn", "")
	viper.SetDefault("amqp.exchange", "smarthome.observations")

	// Bluetooth defaults
	viper.SetDefault("bluetooth.enabled", false)
	viper.SetDefault("bluetooth.simulate", false)
	viper.SetDefault("bluetooth.device_id", -1)
	viper.SetDefault("bluetooth.address", "")

	// Keycloak, Postgres and Redis are optional
	viper.SetDefault("keycloak.url", "")
	viper.SetDefault("keycloak.realm", "")
	viper.SetDefault("keycloak.client_id", "")
	viper.SetDefault("keycloak.client_secret", "")
	viper.SetDefault("database.postgres.host", "")
	viper.SetDefault("database.postgres.user", "smarthome")
	viper.SetDefault("database.postgres.password", "")
	viper.SetDefault("database.postgres.dbname", "smarthome")
	viper.SetDefault("redis.host", "")
	viper.SetDefault("redis.password", "")

	// Monitoring defaults
	viper.SetDefault("monitoring.log_level", "info")
}

func validateConfig(config *Config) error {
	if config.Server.Port <= 0 || config.Server.Port > 65535 {
		return fmt.Errorf("server port %d out of range", config.Server.Port)
	}
	switch config.Transport.Mode {
	case TransportREST, TransportLoopback:
	default:
		return fmt.Errorf("unknown transport mode %q", config.Transport.Mode)
	}
	switch config.Transport.Directory {
	case DirectoryPeers:
	case DirectoryRedis:
		if config.Redis.Host == "" {
			return fmt.Errorf("redis host is required for the redis directory")
		}
	default:
		return fmt.Errorf("unknown directory backend %q", config.Transport.Directory)
	}
	if config.Gateway.ActiveInterval >= config.Gateway.ResetTimeout {
		return fmt.Errorf("gateway active_interval (%s) must be shorter than reset_timeout (%s)",
			config.Gateway.ActiveInterval, config.Gateway.ResetTimeout)
	}
	if config.Gateway.RequestTimeout <= 0 {
		return fmt.Errorf("gateway request_timeout must be positive")
	}
	if config.Device.Kind != "" && !deviceKinds[config.Device.Kind] {
		return fmt.Errorf("unknown device kind %q", config.Device.Kind)
	}
	if config.Database.Retention > 0 && config.Database.CleanupInterval <= 0 {
		return fmt.Errorf("database cleanup_interval must be positive when retention is set")
	}
	if config.Keycloak.URL != "" && config.Keycloak.Realm == "" {
		return fmt.Errorf("keycloak realm is required when keycloak URL is set")
	}
	return nil
}

func advertiseHost(host string) string {
	if host == "" || host == "0.0.0.0" {
		return "127.0.0.1"
	}
	return host
}
