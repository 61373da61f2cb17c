package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	gormlogger "gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Events.IdentityStream != "social.identity.v1" {
		t.Errorf("expected default identity stream, got %q", cfg.Events.IdentityStream)
	}
	if cfg.Events.MaxDeliveries != 5 {
		t.Errorf("expected 5 max deliveries, got %d", cfg.Events.MaxDeliveries)
	}
	if cfg.Repair.Interval != 0 {
		t.Errorf("expected repair to be disabled by default, got %s", cfg.Repair.Interval)
	}
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "social.yaml")
	content := `
port: "9000"
database_driver: sqlite
sqlite_path: /tmp/social.db
events:
  max_deliveries: 3
  retry_delay: 250ms
repair:
  interval: 10m
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("expected env to override file port, got %q", cfg.Port)
	}
	if cfg.DatabaseDriver != "sqlite" || cfg.SQLitePath != "/tmp/social.db" {
		t.Errorf("expected sqlite settings from file, got %q %q", cfg.DatabaseDriver, cfg.SQLitePath)
	}
	if cfg.Events.MaxDeliveries != 3 {
		t.Errorf("expected 3 max deliveries, got %d", cfg.Events.MaxDeliveries)
	}
	if cfg.Events.RetryDelay != 250*time.Millisecond {
		t.Errorf("expected 250ms retry delay, got %s", cfg.Events.RetryDelay)
	}
	if cfg.Repair.Interval != 10*time.Minute {
		t.Errorf("expected 10m repair interval, got %s", cfg.Repair.Interval)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected debug level, got %q", cfg.Logging.Level)
	}
	if err := cfg.ValidateStorage(); err != nil {
		t.Errorf("expected storage config to be valid: %v", err)
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("REPAIR_INTERVAL", "often")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for unparsable REPAIR_INTERVAL")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid jwt", func(c *Config) {}, false},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"firebase without credentials", func(c *Config) { c.AuthMode = AuthModeFirebase }, true},
		{"unknown auth mode", func(c *Config) { c.AuthMode = "basic" }, true},
		{"missing postgres dsn", func(c *Config) { c.PostgresConnStr = "" }, true},
		{"unknown driver", func(c *Config) { c.DatabaseDriver = "mysql" }, true},
		{"missing mongo", func(c *Config) { c.MongoURI = "" }, true},
		{"zero deliveries", func(c *Config) { c.Events.MaxDeliveries = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaults()
			cfg.JWTSecret = "secret"
			cfg.PostgresConnStr = "postgres://localhost/social"
			cfg.MongoURI = "mongodb://localhost:27017"
			tt.mutate(cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestInitSQLiteUsesGormConfig(t *testing.T) {
	cfg := &Config{
		DatabaseDriver: "sqlite",
		SQLitePath:     filepath.Join(t.TempDir(), "social.db"),
	}

	db, err := initSQL(cfg)
	if err != nil {
		t.Fatalf("initSQL failed: %v", err)
	}
	closeSQL(db)

	if db.Logger == nil || db.Logger == gormlogger.Default {
		t.Error("expected the warn level gorm logger, got gorm's default")
	}
}
