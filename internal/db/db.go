package db

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// DB wraps the postgres connection pool.
type DB struct {
	*sql.DB
	logger *zap.Logger
}

// New opens a postgres pool. When the first ping fails and the connection
// string does not pick an sslmode, it retries once with sslmode=disable,
// which is what a local postgres container expects.
func New(ctx context.Context, connectionString string, logger *zap.Logger) (*DB, error) {
	if connectionString == "" {
		return nil, fmt.Errorf("database connection string is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	sqlDB, err := open(ctx, connectionString)
	if err != nil && !strings.Contains(strings.ToLower(connectionString), "sslmode") {
		logger.Info("retrying database connection with SSL disabled")
		sqlDB, err = open(ctx, withSSLDisabled(connectionString))
	}
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(10)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return &DB{DB: sqlDB, logger: logger}, nil
}

func open(ctx context.Context, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return sqlDB, nil
}

func withSSLDisabled(dsn string) string {
	if strings.Contains(dsn, "?") {
		return dsn + "&sslmode=disable"
	}
	if strings.Contains(dsn, "://") {
		return dsn + "?sslmode=disable"
	}
	// key=value form
	return dsn + " sslmode=disable"
}

// HealthCheck verifies the database connection is healthy
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.DB.Close()
}

// Migration is one numbered SQL file, e.g. 001_transcripts.sql.
type Migration struct {
	Number int
	Name   string
	SQL    string
}

// RunMigrations applies every not-yet-applied migration in dir, each in its
// own transaction, and records it in schema_migrations.
func (db *DB) RunMigrations(ctx context.Context, dir string) error {
	migrations, err := ReadMigrations(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}
	if len(migrations) == 0 {
		db.logger.Info("no migrations found", zap.String("dir", dir))
		return nil
	}

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ DEFAULT NOW()
		)`); err != nil {
		return fmt.Errorf("failed to create migration table: %w", err)
	}

	for _, m := range migrations {
		var count int
		if err := db.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM schema_migrations WHERE version = $1", m.Number,
		).Scan(&count); err != nil {
			return fmt.Errorf("failed to check migration status: %w", err)
		}
		if count > 0 {
			continue
		}

		db.logger.Info("applying migration", zap.Int("version", m.Number), zap.String("name", m.Name))
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, m.SQL); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to execute migration %d: %w", m.Number, err)
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO schema_migrations (version, name) VALUES ($1, $2)", m.Number, m.Name,
		); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to record migration: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration: %w", err)
		}
	}
	return nil
}

// ReadMigrations lists NNN_name.sql files in dir sorted by number. Files
// without a numeric prefix are ignored.
func ReadMigrations(dir string) ([]Migration, error) {
	var migrations []Migration
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(path, ".sql") {
			return nil
		}
		number, name, ok := strings.Cut(d.Name(), "_")
		if !ok {
			return nil
		}
		n, err := strconv.Atoi(number)
		if err != nil {
			return nil
		}
		b, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", d.Name(), err)
		}
		migrations = append(migrations, Migration{
			Number: n,
			Name:   strings.TrimSuffix(name, ".sql"),
			SQL:    string(b),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(migrations, func(i, j int) bool {
		return migrations[i].Number < migrations[j].Number
	})
	return migrations, nil
}
