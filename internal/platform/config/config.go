// Package config loads service configuration from environment variables with
// sane defaults, so main stays lean.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Asset    AssetConfig    `mapstructure:"asset"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Compose  ComposeConfig  `mapstructure:"compose"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// RedisConfig enables the verification cache when URL is set.
type RedisConfig struct {
	URL string `mapstructure:"url"`
}

// KafkaConfig enables audit publishing when brokers are set.
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type AssetConfig struct {
	FetchTimeout time.Duration `mapstructure:"fetch_timeout"`
}

type AuthConfig struct {
	SigningKey string `mapstructure:"signing_key"`
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
}

// ComposeConfig points at an optional TTF covering the local script.
type ComposeConfig struct {
	UnicodeFontPath string `mapstructure:"unicode_font_path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	JSON  bool   `mapstructure:"json"`
}

// Load reads configuration from SERVER_*, DATABASE_*, REDIS_*, KAFKA_*,
// ASSET_*, AUTH_*, COMPOSE_*, and LOG_* environment variables.
func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.password", "postgres")
	v.SetDefault("database.dbname", "landcert")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("redis.url", "")
	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic", "landcert.audit")

	v.SetDefault("asset.fetch_timeout", 5*time.Second)

	v.SetDefault("auth.signing_key", "dev-secret-change-in-production")
	v.SetDefault("auth.issuer", "landcert")
	v.SetDefault("auth.audience", "landcert-admin")

	v.SetDefault("compose.unicode_font_path", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}
