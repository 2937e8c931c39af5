package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/emilythestrangee/stackit/backend/internal/config"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	// It returns an error if the connection cannot be closed.
	Close() error
	GetDB() *gorm.DB
}

// Store is the postgres Entity Store.
type Store struct {
	repo

	db     *gorm.DB
	dbName string
	log    *zap.Logger
}

var (
	_ forum.Store = (*Store)(nil)
	_ Service     = (*Store)(nil)
)

func gormLogLevel(level string) logger.LogLevel {
	switch level {
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	case "info":
		return logger.Info
	}
	return logger.Warn
}

// Open connects, migrates and configures the connection pool.
func Open(cfg config.DatabaseConfig, log *zap.Logger) (*Store, error) {
	return OpenDSN(cfg.DSN(), cfg, log)
}

func OpenDSN(dsn string, cfg config.DatabaseConfig, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// Configure GORM logger
	gormLogger := logger.New(
		zap.NewStdLog(log.Named("gorm")),
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormLogLevel(cfg.LogLevel),
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	log.Info("database connected", zap.String("dbname", cfg.DBName))

	if err := Migrate(db); err != nil {
		return nil, err
	}
	log.Info("database migrations completed")

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get database instance: %w", err)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	sqlDB.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbName: cfg.DBName, log: log}
	s.repo = repo{db: db}
	return s, nil
}

func (s *Store) GetDB() *gorm.DB {
	return s.db
}

// Atomic runs fn in one transaction. Rows read through tx are locked FOR UPDATE.
func (s *Store) Atomic(ctx context.Context, fn func(tx forum.Repository) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(repo{db: tx, lock: true})
	})
	return mapContention(err)
}

// Health checks the health of the database connection by pinging the database.
func (s *Store) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	stats := make(map[string]string)

	// Get underlying SQL DB
	sqlDB, err := s.db.DB()
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db error: %v", err)
		return stats
	}

	// Ping the database
	err = sqlDB.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		return stats
	}

	// Database is up
	stats["status"] = "up"
	stats["message"] = "It's healthy"
	stats["driver"] = "postgres"

	// Get database stats
	dbStats := sqlDB.Stats()
	stats["open_connections"] = fmt.Sprintf("%d", dbStats.OpenConnections)
	stats["in_use"] = fmt.Sprintf("%d", dbStats.InUse)
	stats["idle"] = fmt.Sprintf("%d", dbStats.Idle)

	return stats
}

// Close closes the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}

	s.log.Info("disconnected from database", zap.String("dbname", s.dbName))
	return sqlDB.Close()
}
