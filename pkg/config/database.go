package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/anonto42/nano-midea/social/internal/repositories"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DB holds the store connections
type DB struct {
	SQL      *gorm.DB
	Driver   string
	Mongo    *mongo.Client
	Database *mongo.Database
	Redis    *redis.Client
}

// InitDB opens the relational store, MongoDB and Redis and verifies each with a ping
func InitDB(ctx context.Context, cfg *Config) (*DB, error) {
	sqlDB, err := initSQL(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", cfg.DatabaseDriver, err)
	}

	mongoClient, err := initMongo(ctx, cfg.MongoURI)
	if err != nil {
		closeSQL(sqlDB)
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	redisClient, err := initRedis(ctx, cfg.Events.RedisURL)
	if err != nil {
		closeSQL(sqlDB)
		_ = mongoClient.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &DB{
		SQL:      sqlDB,
		Driver:   cfg.DatabaseDriver,
		Mongo:    mongoClient,
		Database: mongoClient.Database(cfg.MongoDatabase),
		Redis:    redisClient,
	}, nil
}

func initSQL(cfg *Config) (*gorm.DB, error) {
	gormCfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Warn)}

	var (
		db  *gorm.DB
		err error
	)
	switch cfg.DatabaseDriver {
	case repositories.DriverPostgres:
		db, err = gorm.Open(postgres.Open(cfg.PostgresConnStr), gormCfg)
	case repositories.DriverSQLite:
		db, err = repositories.OpenSQLite(cfg.SQLitePath, gormCfg)
	default:
		err = fmt.Errorf("unknown driver %q", cfg.DatabaseDriver)
	}
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err = sqlDB.Ping(); err != nil {
		return nil, err
	}
	return db, nil
}

func initMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return client, nil
}

func initRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func closeSQL(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Close closes every connection and reports all failures
func (db *DB) Close() error {
	var errs []error
	if db.SQL != nil {
		if err := closeSQL(db.SQL); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", db.Driver, err))
		}
	}
	if db.Mongo != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := db.Mongo.Disconnect(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close mongo: %w", err))
		}
	}
	if db.Redis != nil {
		if err := db.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	return errors.Join(errs...)
}
