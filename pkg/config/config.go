package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	AuthModeJWT      = "jwt"
	AuthModeFirebase = "firebase"
)

type Config struct {
	Port string `yaml:"port"`
	Env  string `yaml:"env"`

	AuthMode                string `yaml:"auth_mode"`
	JWTSecret               string `yaml:"jwt_secret"`
	FirebaseCredentialsPath string `yaml:"firebase_credentials_path"`

	DatabaseDriver  string `yaml:"database_driver"`
	PostgresConnStr string `yaml:"postgres_conn_str"`
	SQLitePath      string `yaml:"sqlite_path"`
	MongoURI        string `yaml:"mongo_uri"`
	MongoDatabase   string `yaml:"mongo_database"`

	Events  Events  `yaml:"events"`
	Repair  Repair  `yaml:"repair"`
	Logging Logging `yaml:"logging"`
}

// Events configures the Redis stream consumers
type Events struct {
	RedisURL         string        `yaml:"redis_url"`
	IdentityStream   string        `yaml:"identity_stream"`
	FriendshipStream string        `yaml:"friendship_stream"`
	Group            string        `yaml:"group"`
	Consumer         string        `yaml:"consumer"`
	MaxDeliveries    int           `yaml:"max_deliveries"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	BlockTimeout     time.Duration `yaml:"block_timeout"`
}

// Repair configures the periodic counter repair job. Zero interval disables it.
type Repair struct {
	Interval  time.Duration `yaml:"interval"`
	BatchSize int           `yaml:"batch_size"`
}

type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func defaults() *Config {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "social-1"
	}
	return &Config{
		Port:           "8080",
		Env:            "development",
		AuthMode:       AuthModeJWT,
		DatabaseDriver: "postgres",
		SQLitePath:     "social.db",
		MongoDatabase:  "socialmedia",
		Events: Events{
			RedisURL:         "redis://localhost:6379/0",
			IdentityStream:   "social.identity.v1",
			FriendshipStream: "social.friendship.v1",
			Group:            "social-service",
			Consumer:         hostname,
			MaxDeliveries:    5,
			RetryDelay:       2 * time.Second,
			BlockTimeout:     5 * time.Second,
		},
		Repair: Repair{
			BatchSize: 200,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file named by
// CONFIG_FILE and finally the environment (including a .env file if present).
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, assuming environment variables are set.")
	}

	cfg := defaults()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	cfg.Port = getEnv("PORT", cfg.Port)
	cfg.Env = getEnv("ENV", cfg.Env)
	cfg.AuthMode = getEnv("AUTH_MODE", cfg.AuthMode)
	cfg.JWTSecret = getEnv("JWT_SECRET", cfg.JWTSecret)
	cfg.FirebaseCredentialsPath = getEnv("FIREBASE_CREDENTIALS_PATH", cfg.FirebaseCredentialsPath)

	cfg.DatabaseDriver = getEnv("DATABASE_DRIVER", cfg.DatabaseDriver)
	cfg.PostgresConnStr = getEnv("POSTGRES_CONN_STR", cfg.PostgresConnStr)
	cfg.SQLitePath = getEnv("SQLITE_PATH", cfg.SQLitePath)
	cfg.MongoURI = getEnv("MONGO_URI", cfg.MongoURI)
	cfg.MongoDatabase = getEnv("MONGO_DATABASE", cfg.MongoDatabase)

	cfg.Events.RedisURL = getEnv("REDIS_URL", cfg.Events.RedisURL)
	cfg.Events.IdentityStream = getEnv("IDENTITY_STREAM", cfg.Events.IdentityStream)
	cfg.Events.FriendshipStream = getEnv("FRIENDSHIP_STREAM", cfg.Events.FriendshipStream)
	cfg.Events.Group = getEnv("CONSUMER_GROUP", cfg.Events.Group)
	cfg.Events.Consumer = getEnv("CONSUMER_NAME", cfg.Events.Consumer)

	cfg.Logging.Level = getEnv("LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Format = getEnv("LOG_FORMAT", cfg.Logging.Format)

	var err error
	if cfg.Events.MaxDeliveries, err = getEnvInt("MAX_DELIVERIES", cfg.Events.MaxDeliveries); err != nil {
		return err
	}
	if cfg.Events.RetryDelay, err = getEnvDuration("RETRY_DELAY", cfg.Events.RetryDelay); err != nil {
		return err
	}
	if cfg.Repair.Interval, err = getEnvDuration("REPAIR_INTERVAL", cfg.Repair.Interval); err != nil {
		return err
	}
	if cfg.Repair.BatchSize, err = getEnvInt("REPAIR_BATCH_SIZE", cfg.Repair.BatchSize); err != nil {
		return err
	}
	return nil
}

// Validate checks everything the HTTP server needs
func (c *Config) Validate() error {
	switch c.AuthMode {
	case AuthModeJWT:
		if c.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_MODE=%s", AuthModeJWT)
		}
	case AuthModeFirebase:
		if c.FirebaseCredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_MODE=%s", AuthModeFirebase)
		}
	default:
		return fmt.Errorf("unknown AUTH_MODE %q", c.AuthMode)
	}
	return c.ValidateStorage()
}

// ValidateStorage checks the database and stream settings only. The ops CLI
// uses it since it never authenticates requests.
func (c *Config) ValidateStorage() error {
	switch c.DatabaseDriver {
	case "postgres":
		if c.PostgresConnStr == "" {
			return fmt.Errorf("POSTGRES_CONN_STR environment variable not set")
		}
	case "sqlite":
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH environment variable not set")
		}
	default:
		return fmt.Errorf("unknown DATABASE_DRIVER %q", c.DatabaseDriver)
	}

	if c.MongoURI == "" {
		return fmt.Errorf("MONGO_URI environment variable not set")
	}
	if c.Events.MaxDeliveries < 1 {
		return fmt.Errorf("MAX_DELIVERIES must be at least 1")
	}
	if c.Repair.BatchSize < 1 {
		return fmt.Errorf("REPAIR_BATCH_SIZE must be at least 1")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
