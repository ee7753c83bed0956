package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"octarcade/internal/config"
	"octarcade/internal/database"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]

	if command == "create" {
		if len(os.Args) < 3 {
			log.Fatal("Usage: migrate create <migration_name>")
		}
		createMigration(migrationsPath(), os.Args[2])
		return
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	db, err := sql.Open("pgx", cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	dir := migrationsPath()

	switch command {
	case "up":
		log.Println("Running migrations...")
		if err := database.RunMigrations(db, dir); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}
		log.Println("Migrations completed successfully")

	case "down":
		log.Println("Rolling back last migration...")
		if err := database.RollbackMigration(db, dir); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		log.Println("Rollback completed successfully")

	case "version":
		version, dirty, err := database.GetMigrationVersion(db, dir)
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		if dirty {
			log.Printf("Current version: %d (DIRTY - needs manual intervention)", version)
		} else {
			log.Printf("Current version: %d", version)
		}

	default:
		log.Printf("Unknown command: %s", command)
		printUsage()
		os.Exit(1)
	}
}

func migrationsPath() string {
	if val := os.Getenv("MIGRATIONS_PATH"); val != "" {
		return val
	}
	return "./migrations"
}

// createMigration writes the next numbered up/down pair. Versions are taken
// from the highest existing prefix, so gaps and stray files are tolerated.
func createMigration(dir, name string) {
	files, err := os.ReadDir(dir)
	if err != nil {
		log.Fatalf("Failed to read migrations directory: %v", err)
	}

	nextVersion := 1
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		prefix, _, ok := strings.Cut(file.Name(), "_")
		if !ok {
			continue
		}
		if v, err := strconv.Atoi(prefix); err == nil && v >= nextVersion {
			nextVersion = v + 1
		}
	}

	upFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.up.sql", nextVersion, name))
	downFile := filepath.Join(dir, fmt.Sprintf("%06d_%s.down.sql", nextVersion, name))

	upContent := fmt.Sprintf("-- Migration: %s\n-- Created: %s\n\n-- Add your SQL here\n", name, time.Now().UTC().Format(time.RFC3339))
	if err := os.WriteFile(upFile, []byte(upContent), 0644); err != nil {
		log.Fatalf("Failed to create up migration: %v", err)
	}
	downContent := fmt.Sprintf("-- Rollback: %s\n\n-- Add your rollback SQL here\n", name)
	if err := os.WriteFile(downFile, []byte(downContent), 0644); err != nil {
		log.Fatalf("Failed to create down migration: %v", err)
	}

	log.Printf("Created migration files:")
	log.Printf("   - %s", upFile)
	log.Printf("   - %s", downFile)
}

func printUsage() {
	fmt.Println("Database Migration Tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  migrate up              Run all pending migrations")
	fmt.Println("  migrate down            Rollback the last migration")
	fmt.Println("  migrate version         Show current migration version")
	fmt.Println("  migrate create <name>   Create a new migration file")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  DB_HOST                 Database host (default: localhost)")
	fmt.Println("  DB_PORT                 Database port (default: 5432)")
	fmt.Println("  DB_DATABASE             Database name (default: octarcade)")
	fmt.Println("  DB_USERNAME             Database user (default: postgres)")
	fmt.Println("  DB_PASSWORD             Database password (default: postgres)")
	fmt.Println("  DB_SCHEMA               Database schema (default: public)")
	fmt.Println("  MIGRATIONS_PATH         Path to migrations (default: ./migrations)")
}
