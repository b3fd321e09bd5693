package database

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/config"
)

// maskPassword masks the password in a database URL for safe logging
func maskPassword(url string) string {
	re := regexp.MustCompile(`(postgres(?:ql)?://[^:]+:)([^@]+)(@.+)`)
	return re.ReplaceAllString(url, "${1}****${3}")
}

// NewConnection opens the pool with the configured driver and verifies it
func NewConnection(cfg config.DatabaseConfig, logger *logrus.Logger) (*sqlx.DB, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	var (
		db  *sqlx.DB
		err error
	)
	switch cfg.Driver {
	case "pgx":
		db, err = connectPgx(cfg.URL, logger)
	default:
		db, err = connectPq(cfg.URL, logger)
	}
	if err != nil {
		return nil, err
	}

	// Configure connection pool for better stability with connection poolers
	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxIdleConnections)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxLifetime / 2)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

func connectPq(url string, logger *logrus.Logger) (*sqlx.DB, error) {
	// Connection poolers reject multi-result binds without the simple protocol
	connectionURL := url
	if !strings.Contains(connectionURL, "prefer_simple_protocol") && strings.Contains(connectionURL, ":6543") {
		connectionURL = appendParam(connectionURL, "prefer_simple_protocol=true")
	}

	logger.WithField("url", maskPassword(connectionURL)).Info("Connecting with lib/pq driver")

	db, err := sqlx.Connect("postgres", connectionURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func connectPgx(url string, logger *logrus.Logger) (*sqlx.DB, error) {
	pgxConfig, err := pgx.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Transaction-mode poolers (port 6543) drop prepared statements between transactions
	usingPooler := strings.Contains(url, ":6543")
	if usingPooler {
		pgxConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol
	}

	logger.WithFields(logrus.Fields{
		"url":             maskPassword(url),
		"simple_protocol": usingPooler,
	}).Info("Connecting with pgx driver")

	connStr := stdlib.RegisterConnConfig(pgxConfig)
	db, err := sqlx.Connect("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

func appendParam(url, param string) string {
	separator := "?"
	if strings.Contains(url, "?") {
		separator = "&"
	}
	return url + separator + param
}
