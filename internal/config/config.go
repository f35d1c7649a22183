package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// EnvPrefix namespaces environment overrides, e.g. KAIZEN_SERVER_PORT
const EnvPrefix = "KAIZEN"

// Config holds all application configuration
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Workflow WorkflowConfig `mapstructure:"workflow"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// RedisConfig holds the settings cache connection. Disabled means settings
// are read straight from the database.
type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// WorkflowConfig holds approval workflow configuration
type WorkflowConfig struct {
	QuestionnairePath string `mapstructure:"questionnaire_path"`
	DefaultHodLimit   int64  `mapstructure:"default_hod_limit"`
	DefaultAgmLimit   int64  `mapstructure:"default_agm_limit"`
	Currency          string `mapstructure:"currency"`
}

// StorageConfig holds file storage configuration
type StorageConfig struct {
	SheetDir string `mapstructure:"sheet_dir"`
}

// Load loads configuration from file and environment variables.
// A .env file next to the working directory is applied first when present.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err := gotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)

	// Database defaults. SQLite serialises writers; one connection keeps
	// immediate transactions from queueing on the busy timeout.
	v.SetDefault("database.path", "data/kaizen.db")
	v.SetDefault("database.max_open_conns", 1)
	v.SetDefault("database.max_idle_conns", 1)
	v.SetDefault("database.conn_max_lifetime", 5*time.Minute)
	v.SetDefault("database.migrations_dir", "migrations")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")

	// Redis defaults
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 5*time.Minute)

	// Workflow defaults
	v.SetDefault("workflow.questionnaire_path", "")
	v.SetDefault("workflow.default_hod_limit", 50000)
	v.SetDefault("workflow.default_agm_limit", 100000)
	v.SetDefault("workflow.currency", "INR")

	v.SetDefault("storage.sheet_dir", "data/approval_sheets")
}

// bindEnvVars binds unprefixed environment variables commonly set by deployments
func bindEnvVars(v *viper.Viper) {
	_ = v.BindEnv("redis.password", EnvPrefix+"_REDIS_PASSWORD", "REDIS_PASSWORD")
	_ = v.BindEnv("database.path", EnvPrefix+"_DATABASE_PATH", "DATABASE_PATH")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d is out of range", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("server.mode must be debug, release or test, got %q", c.Server.Mode)
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}

	if c.Workflow.DefaultHodLimit < 0 || c.Workflow.DefaultAgmLimit < 0 {
		return fmt.Errorf("workflow cost limits must not be negative")
	}
	if c.Workflow.DefaultHodLimit > c.Workflow.DefaultAgmLimit {
		return fmt.Errorf("workflow.default_hod_limit must not exceed workflow.default_agm_limit")
	}
	if len(c.Workflow.Currency) != 3 {
		return fmt.Errorf("workflow.currency must be a three-letter code")
	}

	if c.Storage.SheetDir == "" {
		return fmt.Errorf("storage.sheet_dir is required")
	}

	return nil
}
