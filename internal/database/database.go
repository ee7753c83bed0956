package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/jackc/pgx/v5/stdlib"

	"octarcade/internal/config"
	"octarcade/internal/game"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	Health() map[string]string

	// SaveTransactions archives settled crash transactions. Rows already
	// stored under the same event id are skipped.
	SaveTransactions(ctx context.Context, txs []game.Transaction) error

	// TopPlayers ranks players by total profit over the whole archive.
	TopPlayers(ctx context.Context, n int) ([]game.LeaderboardEntry, error)

	// DB exposes the pool for migrations.
	DB() *sql.DB

	// Close terminates the database connection.
	Close() error
}

type service struct {
	db *sql.DB
}

var dbInstance *service

// New opens the pool once per process and reuses it afterwards.
func New(cfg config.DatabaseConfig) Service {
	if dbInstance != nil {
		return dbInstance
	}
	db, err := sql.Open("pgx", cfg.DSN())
	if err != nil {
		log.Fatal(err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	dbInstance = &service{db: db}
	return dbInstance
}

func (s *service) DB() *sql.DB {
	return s.db
}

// Health checks the health of the database connection by pinging the database.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)

	err := s.db.PingContext(ctx)
	if err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Printf("[DB] Health check failed: %v", err)
		return stats
	}

	stats["status"] = "up"
	stats["message"] = "It's healthy"

	dbStats := s.db.Stats()
	stats["open_connections"] = strconv.Itoa(dbStats.OpenConnections)
	stats["in_use"] = strconv.Itoa(dbStats.InUse)
	stats["idle"] = strconv.Itoa(dbStats.Idle)
	stats["wait_count"] = strconv.FormatInt(dbStats.WaitCount, 10)
	stats["wait_duration"] = dbStats.WaitDuration.String()
	stats["max_idle_closed"] = strconv.FormatInt(dbStats.MaxIdleClosed, 10)
	stats["max_lifetime_closed"] = strconv.FormatInt(dbStats.MaxLifetimeClosed, 10)

	if dbStats.OpenConnections > 40 {
		stats["message"] = "The database is experiencing heavy load."
	}
	if dbStats.WaitCount > 1000 {
		stats["message"] = "The database has a high number of wait events, indicating potential bottlenecks."
	}

	return stats
}

const insertTransaction = `
INSERT INTO transactions (event_id, player, amount, payout, profit, multiplier, won, settled_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (event_id) DO NOTHING`

func (s *service) SaveTransactions(ctx context.Context, txs []game.Transaction) error {
	if len(txs) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertTransaction)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, t := range txs {
		// Amounts fit numeric(20,0); they are sent as text to keep the full uint64 range.
		if _, err := stmt.ExecContext(ctx,
			t.EventID, t.Player,
			strconv.FormatUint(t.Amount, 10), strconv.FormatUint(t.Payout, 10),
			t.Profit, int64(t.Multiplier), t.Won, t.Timestamp,
		); err != nil {
			return fmt.Errorf("insert %s: %w", t.EventID, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

const topPlayers = `
SELECT player, SUM(profit)::bigint AS profit, COUNT(*) AS games
FROM transactions
GROUP BY player
ORDER BY profit DESC, games DESC, player ASC
LIMIT $1`

func (s *service) TopPlayers(ctx context.Context, n int) ([]game.LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}
	rows, err := s.db.QueryContext(ctx, topPlayers, n)
	if err != nil {
		return nil, fmt.Errorf("query top players: %w", err)
	}
	defer rows.Close()

	out := make([]game.LeaderboardEntry, 0, n)
	for rows.Next() {
		var e game.LeaderboardEntry
		if err := rows.Scan(&e.Player, &e.Profit, &e.Games); err != nil {
			return nil, fmt.Errorf("scan top players: %w", err)
		}
		e.Rank = len(out) + 1
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database connection.
func (s *service) Close() error {
	log.Println("[DB] Disconnected from database")
	dbInstance = nil
	return s.db.Close()
}

func newMigrate(db *sql.DB, migrationsPath string) (*migrate.Migrate, error) {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return nil, fmt.Errorf("migration driver: %w", err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+migrationsPath, "postgres", driver)
	if err != nil {
		return nil, fmt.Errorf("migration source: %w", err)
	}
	return m, nil
}

// RunMigrations applies every pending migration.
func RunMigrations(db *sql.DB, migrationsPath string) error {
	m, err := newMigrate(db, migrationsPath)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate up: %w", err)
	}
	log.Println("[DB] Migrations applied")
	return nil
}

// RollbackMigration reverts the most recent migration.
func RollbackMigration(db *sql.DB, migrationsPath string) error {
	m, err := newMigrate(db, migrationsPath)
	if err != nil {
		return err
	}
	if err := m.Steps(-1); err != nil {
		return fmt.Errorf("migrate down: %w", err)
	}
	return nil
}

func GetMigrationVersion(db *sql.DB, migrationsPath string) (uint, bool, error) {
	m, err := newMigrate(db, migrationsPath)
	if err != nil {
		return 0, false, err
	}
	version, dirty, err := m.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}
