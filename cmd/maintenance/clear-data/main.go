package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/staynest/rental-backend/internal/config"
	"github.com/staynest/rental-backend/internal/database"
)

// tables holds transactional data only; properties and promotions are catalog data
var tables = []string{
	"audit_logs",
	"payment_audits",
	"provider_events",
	"host_payouts",
	"host_ledgers",
	"booking_payments",
	"reviews",
	"bookings",
	"property_availability",
}

func main() {
	var dbURLFlag string
	var driver string
	var keepCalendar bool
	flag.StringVar(&dbURLFlag, "database-url", "", "PostgreSQL connection string (overrides DATABASE_URL)")
	flag.StringVar(&driver, "driver", "postgres", "database driver: postgres or pgx")
	flag.BoolVar(&keepCalendar, "keep-calendar", false, "keep property_availability rows (bookable flags are reset instead)")
	flag.Parse()

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Try loading .env from current working directory (optional)
	_ = godotenv.Load()

	dbURL := dbURLFlag
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL")
	}
	if dbURL == "" {
		logger.Fatal("DATABASE_URL is not set and -database-url was not provided")
	}

	// Build minimal database config without loading full app config
	dbCfg := config.DatabaseConfig{
		URL:                dbURL,
		Driver:             driver,
		MaxConnections:     5,
		MaxIdleConnections: 2,
	}

	db, err := database.NewConnection(dbCfg, logger)
	if err != nil {
		logger.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	targets := tables
	if keepCalendar {
		targets = tables[:len(tables)-1]
	}

	logger.WithField("tables", targets).Info("Connected to database. Truncating tables...")

	tx, err := db.Beginx()
	if err != nil {
		logger.Fatalf("failed to begin transaction: %v", err)
	}
	if _, err := tx.Exec(database.TruncateStatement(targets)); err != nil {
		tx.Rollback()
		logger.Fatalf("failed to truncate tables: %v", err)
	}
	if keepCalendar {
		if _, err := tx.Exec(`UPDATE property_availability SET is_available = TRUE, blocked_reason = NULL`); err != nil {
			tx.Rollback()
			logger.Fatalf("failed to reset calendar: %v", err)
		}
	}
	if err := tx.Commit(); err != nil {
		logger.Fatalf("failed to commit: %v", err)
	}

	logger.Info("All data cleared successfully (tables truncated, identities reset).")

	// Verify by printing row counts for each table
	fmt.Println("Post-clear row counts:")
	for _, t := range tables {
		var count int
		if err := db.QueryRow(fmt.Sprintf("SELECT COUNT(*) FROM %s", t)).Scan(&count); err != nil {
			fmt.Printf("  %s: error: %v\n", t, err)
			continue
		}
		fmt.Printf("  %s: %d\n", t, count)
	}
}
