// shared/config/config.go
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// CommonConfig holds infrastructure details used by MULTIPLE services
type CommonConfig struct {
	//Database (PostgreSQL) config
	DB_USER     string
	DB_PASSWORD string
	DB_NAME     string
	DB_HOST     string
	DB_PORT     string
	//Kafka config
	KAFKA_TOPIC  string
	KAFKA_BROKER string // comma separated
	//RabbitMQ config
	RABBITMQ_USER     string
	RABBITMQ_PASSWORD string
	RABBITMQ_HOST     string
	RABBITMQ_PORT     string
}

// NewViper returns a viper instance reading environment variables and,
// when configFile is set, a YAML file underneath them. Env always wins.
func NewViper(configFile string) (*viper.Viper, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("RABBITMQ_HOST", "localhost")
	v.SetDefault("RABBITMQ_PORT", "5672")

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFile, err)
		}
	}
	return v, nil
}

// LoadCommonConfig returns the shared infrastructure config
func LoadCommonConfig(v *viper.Viper) *CommonConfig {
	return &CommonConfig{
		DB_USER:     v.GetString("DB_USER"),
		DB_PASSWORD: v.GetString("DB_PASSWORD"),
		DB_HOST:     v.GetString("DB_HOST"),
		DB_PORT:     v.GetString("DB_PORT"),
		DB_NAME:     v.GetString("DB_NAME"),

		KAFKA_TOPIC:  v.GetString("KAFKA_TOPIC"),
		KAFKA_BROKER: v.GetString("KAFKA_BROKER"),

		RABBITMQ_USER:     v.GetString("RABBITMQ_USER"),
		RABBITMQ_PASSWORD: v.GetString("RABBITMQ_PASSWORD"),
		RABBITMQ_HOST:     v.GetString("RABBITMQ_HOST"),
		RABBITMQ_PORT:     v.GetString("RABBITMQ_PORT"),
	}
}

// GetDBURL formats the config into a PostgreSQL connection string
func (c *CommonConfig) GetDBURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DB_USER, c.DB_PASSWORD, c.DB_HOST, c.DB_PORT, c.DB_NAME)
}

// GetRabbitMQURL formats the config into a RabbitMQ connection string
func (c *CommonConfig) GetRabbitMQURL() string {
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.RABBITMQ_USER, c.RABBITMQ_PASSWORD, c.RABBITMQ_HOST, c.RABBITMQ_PORT)
}

// KafkaBrokers splits KAFKA_BROKER; empty means Kafka is not configured.
func (c *CommonConfig) KafkaBrokers() []string {
	var brokers []string
	for _, b := range strings.Split(c.KAFKA_BROKER, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}
