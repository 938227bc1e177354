package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Remote   RemoteConfig   `yaml:"remote"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Booking  BookingConfig  `yaml:"booking"`
	Worker   WorkerConfig   `yaml:"worker"`
}

type HTTPConfig struct {
	Address    string `yaml:"address"`
	SwaggerDir string `yaml:"swagger_dir"`
}

// RemoteConfig selects and authenticates against the reservation backend.
type RemoteConfig struct {
	Env            string `yaml:"env"` // prod, qa or dev
	Currency       string `yaml:"currency"`
	Language       string `yaml:"language"`
	Origin         string `yaml:"origin"`
	BodyHashKey    string `yaml:"body_hash_key"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers        []string `yaml:"brokers"`
	ActionsTopic   string   `yaml:"actions_topic"`
	PurchasesTopic string   `yaml:"purchases_topic"`
	GroupID        string   `yaml:"group_id"`
}

type BookingConfig struct {
	FavoritesLimit     int `yaml:"favorites_limit"`
	PersistTTLMinutes  int `yaml:"persist_ttl_minutes"`
	UpsellCooldownDays int `yaml:"upsell_cooldown_days"`
}

type WorkerConfig struct {
	StaleSagaSweepMinutes int `yaml:"stale_saga_sweep_minutes"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}
