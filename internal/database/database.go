package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"Daybook_V0.1/internal/schedule"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

// Service represents a service that interacts with a database.
type Service interface {
	// Health returns a map of health status information.
	// The keys and values in the map are service-specific.
	Health() map[string]string

	// Close terminates the database connection.
	Close()

	// Migrate creates the tables the application needs.
	Migrate(ctx context.Context) error

	// DocumentStore reads and merge-writes JSONB documents in this pool.
	schedule.DocumentStore
}

// Params are the connection settings, read from the BLUEPRINT_DB_* variables.
type Params struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	Schema   string
}

// DSN builds the pgx connection string.
func (p Params) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable&search_path=%s",
		p.Username, p.Password, p.Host, p.Port, p.Database, p.Schema)
}

type service struct {
	*PostgresDocuments
	dbpool   *pgxpool.Pool
	database string
}

// NewService opens the pool and verifies the connection.
func NewService(ctx context.Context, p Params) (Service, error) {
	dbpool, err := pgxpool.New(ctx, p.DSN())
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dbpool.Ping(pingCtx); err != nil {
		dbpool.Close()
		return nil, fmt.Errorf("unable to reach database %s: %w", p.Database, err)
	}

	log.Info().Str("database", p.Database).Msg("Connected to database")

	return &service{
		PostgresDocuments: NewPostgresDocuments(dbpool),
		dbpool:            dbpool,
		database:          p.Database,
	}, nil
}

func (s *service) Migrate(ctx context.Context) error {
	if _, err := s.dbpool.Exec(ctx, documentsDDL); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

// Health checks the health of the database connection.
func (s *service) Health() map[string]string {
	ctx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	stats := make(map[string]string)
	stats["driver"] = "postgres"

	if err := s.dbpool.Ping(ctx); err != nil {
		stats["status"] = "down"
		stats["error"] = fmt.Sprintf("db down: %v", err)
		log.Error().Err(err).Msg("db down")
		return stats
	}

	poolStats := s.dbpool.Stat()
	stats["status"] = "up"
	stats["total_conns"] = strconv.Itoa(int(poolStats.TotalConns()))
	stats["idle_conns"] = strconv.Itoa(int(poolStats.IdleConns()))
	stats["acquired_conns"] = strconv.Itoa(int(poolStats.AcquiredConns()))
	stats["max_conns"] = strconv.Itoa(int(poolStats.MaxConns()))
	stats["acquire_count"] = strconv.FormatInt(poolStats.AcquireCount(), 10)
	stats["acquire_duration_ms"] = strconv.FormatInt(poolStats.AcquireDuration().Milliseconds(), 10)
	stats["empty_acquire_count"] = strconv.FormatInt(poolStats.EmptyAcquireCount(), 10)

	if poolStats.AcquiredConns() > (poolStats.MaxConns() * 8 / 10) { // 80% capacity
		stats["message"] = "The database connection pool is experiencing heavy load."
	}
	if poolStats.EmptyAcquireCount() > 0 {
		stats["message"] = "The application has tried to acquire a connection from an empty pool. Consider increasing max connections."
	}

	return stats
}

// Close closes the database connection.
func (s *service) Close() {
	log.Info().Str("database", s.database).Msg("Disconnected from database")
	s.dbpool.Close()
}
