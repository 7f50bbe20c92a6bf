// Copyright © 2018 One Concern

// Package postgres implements an object store in a PostgreSQL table
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"embed"
	"io"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/oneconcern/eris/pkg/storage"
	"github.com/oneconcern/eris/pkg/storage/status"
	"go.uber.org/zap"

	_ "github.com/lib/pq" // migrations run on database/sql
)

//go:embed migrations/*.sql
var migrations embed.FS

var (
	_ storage.Store = &Store{}
	_ io.Closer     = &Store{}
)

// Config holds the settings of the postgres store
type Config struct {
	ConnectionString string
	MaxConnections   int32
	ConnectTimeout   time.Duration
	// SkipMigrations leaves the schema untouched, e.g. when it is managed by a DBA
	SkipMigrations bool
}

// Store keeps objects in the eris_objects table
type Store struct {
	pool *pgxpool.Pool
	cfg  Config
	l    *zap.Logger
}

// New connects to the database and brings the schema up to date
func New(ctx context.Context, cfg Config, l *zap.Logger) (*Store, error) {
	if cfg.ConnectionString == "" {
		return nil, status.ErrInvalidResource.WrapMessage("postgres connection string is required")
	}
	if cfg.MaxConnections == 0 {
		cfg.MaxConnections = 10
	}
	if cfg.ConnectTimeout == 0 {
		cfg.ConnectTimeout = 30 * time.Second
	}
	if l == nil {
		l = zap.NewNop()
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.ConnectionString)
	if err != nil {
		return nil, status.ErrInvalidResource.Wrap(err)
	}
	poolConfig.MaxConns = cfg.MaxConnections
	poolConfig.MaxConnIdleTime = 30 * time.Minute

	timeoutCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(timeoutCtx, poolConfig)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	if err := pool.Ping(timeoutCtx); err != nil {
		pool.Close()
		return nil, status.ErrStorageAPI.Wrap(err)
	}

	s := &Store{pool: pool, cfg: cfg, l: l.With(zap.String("store", "postgres"))}
	if !cfg.SkipMigrations {
		if err := s.migrate(); err != nil {
			pool.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *Store) migrate() error {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return err
	}
	db, err := sql.Open("postgres", s.cfg.ConnectionString)
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	defer func() { _ = db.Close() }()

	driver, err := migratepg.WithInstance(db, &migratepg.Config{})
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return status.ErrStorageAPI.Wrap(err)
	}
	version, _, _ := m.Version()
	s.l.Debug("schema up to date", zap.Uint("version", version))
	return nil
}

// Close the connection pool
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) String() string {
	return "postgres://" + s.pool.Config().ConnConfig.Host + "/" + s.pool.Config().ConnConfig.Database
}

func (s *Store) Has(ctx context.Context, key string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM eris_objects WHERE key = $1)`, key).Scan(&exists)
	if err != nil {
		return false, status.ErrStorageAPI.Wrap(err)
	}
	return exists, nil
}

func (s *Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var data []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM eris_objects WHERE key = $1`, key).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil, status.ErrNotFound.WrapMessage(key)
	}
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *Store) Put(ctx context.Context, key string, rdr io.Reader) error {
	data, err := io.ReadAll(rdr)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO eris_objects (key, data) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET data = EXCLUDED.data`, key, data)
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM eris_objects WHERE key = $1`, key); err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	return nil
}

func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM eris_objects ORDER BY key`)
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	keys, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, status.ErrStorageAPI.Wrap(err)
	}
	return keys, nil
}

func (s *Store) Clear(ctx context.Context) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM eris_objects`)
	if err != nil {
		return status.ErrStorageAPI.Wrap(err)
	}
	s.l.Info("cleared objects", zap.Int64("objects", tag.RowsAffected()))
	return nil
}
