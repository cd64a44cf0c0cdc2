package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/appetiteclub/coordinator/cmd/utils/internal/commands"
	"github.com/aquamarinepk/aqm"
)

const (
	appName    = "coordinator-utils"
	appVersion = "0.2.0"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	config, err := aqm.LoadConfig("UTILS", os.Args[2:])
	if err != nil {
		log.Fatalf("Cannot load config: %v", err)
	}

	logLevel, _ := config.GetString("log.level")
	if logLevel == "" {
		logLevel = "info"
	}
	logger := aqm.NewLogger(logLevel)

	ctx := context.Background()
	command := os.Args[1]

	switch command {
	case "seed-tables":
		if err := commands.SeedTables(ctx, config, logger); err != nil {
			log.Fatalf("❌ Table seeding failed: %v", err)
		}
		logger.Info("✅ Table seeding completed successfully")

	case "reset-db":
		if err := commands.ResetDB(ctx, config, logger); err != nil {
			log.Fatalf("❌ Database reset failed: %v", err)
		}
		logger.Info("✅ Database reset completed successfully")

	case "anomalies":
		if err := commands.Anomalies(ctx, config, logger, os.Stdout); err != nil {
			log.Fatalf("❌ Reading anomalies failed: %v", err)
		}

	case "version":
		fmt.Printf("%s version %s\n", appName, appVersion)

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - Order/table coordinator utility commands

Usage:
  %s <command> [options]

Commands:
  seed-tables  Create the default floor (existing table numbers are kept)
  reset-db     Delete all tables, orders, carts and addresses (USE WITH CAUTION)
  anomalies    Drain paid orders whose table needs an operator
  version      Print version information
  help         Show this help message

Environment Variables:
  UTILS_DB_DRIVER        Storage driver: mongo or postgres (default: mongo)
  UTILS_DB_MONGO_URL     MongoDB connection URL (default: mongodb://localhost:27017/?replicaSet=rs0)
  UTILS_DB_POSTGRES_URL  Postgres connection URL
  UTILS_NATS_URL         NATS server URL (default: nats://localhost:4222)
  UTILS_LOG_LEVEL        Log level: debug, info, error (default: info)

Examples:
  %s seed-tables
  UTILS_DB_DRIVER=postgres %s reset-db
  %s anomalies

`, appName, appName, appName, appName, appName)
}
