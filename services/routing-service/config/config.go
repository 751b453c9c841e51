package config

import (
	"fmt"
	"strings"
	"time"

	sharedConfig "github.com/Tanmoy095/ShipBroker/shared/config"
	"github.com/spf13/viper"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// RoutingConfig holds the routing service settings on top of the shared
// infrastructure config.
type RoutingConfig struct {
	*sharedConfig.CommonConfig

	HTTP_ADDR string
	GRPC_ADDR string

	STORE_BACKEND string // postgres | memory
	SEED_FILE     string // loaded into the memory store at startup

	TEMPORAL_HOST_PORT     string
	TASK_QUEUE             string
	ORDER_WORKFLOW_ENABLED bool

	AGGREGATOR_API_URL   string
	AGGREGATOR_API_TOKEN string

	// Treat the organization tobacco setting as a tobacco declaration
	// even when the order carries no controlled substance.
	FORCE_TOBACCO_VIA_SETTINGS bool

	TRACKING_QUEUE string
	CORS_ORIGINS   []string

	// Label metering. A zero interval disables it.
	USAGE_FLUSH_INTERVAL time.Duration
	USAGE_WORKERS        int

	LOG_LEVEL  string
	LOG_FORMAT string
}

// Load reads env vars over an optional YAML file over defaults.
func Load(configFile string) (*RoutingConfig, error) {
	v, err := sharedConfig.NewViper(configFile)
	if err != nil {
		return nil, err
	}
	setDefaults(v)

	cfg := &RoutingConfig{
		CommonConfig: sharedConfig.LoadCommonConfig(v),

		HTTP_ADDR: v.GetString("HTTP_ADDR"),
		GRPC_ADDR: v.GetString("GRPC_ADDR"),

		STORE_BACKEND: strings.ToLower(v.GetString("STORE_BACKEND")),
		SEED_FILE:     v.GetString("SEED_FILE"),

		TEMPORAL_HOST_PORT:     v.GetString("TEMPORAL_HOST_PORT"),
		TASK_QUEUE:             v.GetString("TASK_QUEUE"),
		ORDER_WORKFLOW_ENABLED: v.GetBool("ORDER_WORKFLOW_ENABLED"),

		AGGREGATOR_API_URL:   v.GetString("AGGREGATOR_API_URL"),
		AGGREGATOR_API_TOKEN: v.GetString("AGGREGATOR_API_TOKEN"),

		FORCE_TOBACCO_VIA_SETTINGS: v.GetBool("FORCE_TOBACCO_VIA_SETTINGS"),

		TRACKING_QUEUE: v.GetString("TRACKING_QUEUE"),
		CORS_ORIGINS:   splitList(v.GetString("CORS_ORIGINS")),

		USAGE_FLUSH_INTERVAL: v.GetDuration("USAGE_FLUSH_INTERVAL"),
		USAGE_WORKERS:        v.GetInt("USAGE_WORKERS"),

		LOG_LEVEL:  v.GetString("LOG_LEVEL"),
		LOG_FORMAT: v.GetString("LOG_FORMAT"),
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":50051")
	v.SetDefault("STORE_BACKEND", StorePostgres)
	v.SetDefault("TEMPORAL_HOST_PORT", "localhost:7233")
	v.SetDefault("TASK_QUEUE", "ORDER_TASK_QUEUE")
	v.SetDefault("ORDER_WORKFLOW_ENABLED", false)
	v.SetDefault("KAFKA_TOPIC", "order-events")
	v.SetDefault("TRACKING_QUEUE", "tracking-events")
	v.SetDefault("CORS_ORIGINS", "*")
	v.SetDefault("USAGE_FLUSH_INTERVAL", "30s")
	v.SetDefault("USAGE_WORKERS", 2)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate rejects combinations the service cannot start with.
func (c *RoutingConfig) Validate() error {
	switch c.STORE_BACKEND {
	case StorePostgres:
		if c.DB_USER == "" || c.DB_NAME == "" {
			return fmt.Errorf("DB_USER and DB_NAME are required for the %s store", StorePostgres)
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.STORE_BACKEND)
	}
	if c.USAGE_FLUSH_INTERVAL < 0 {
		return fmt.Errorf("USAGE_FLUSH_INTERVAL must not be negative")
	}
	if c.ORDER_WORKFLOW_ENABLED && c.TEMPORAL_HOST_PORT == "" {
		return fmt.Errorf("TEMPORAL_HOST_PORT is required when ORDER_WORKFLOW_ENABLED is set")
	}
	return nil
}
