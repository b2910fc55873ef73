package tenant

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PoolConfig holds the sizing knobs for a Pool, mirroring the teacher's
// internal/config environment-variable conventions (VC_DB_* style names,
// generalized here to PULSE_DB_*).
type PoolConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Pool wraps a *sql.DB sized for one process. Every caller that needs to
// run tenant-scoped work must go through WithTenant or WithOperator rather
// than querying Pool.DB directly, or row-level security has nothing to
// key off of.
type Pool struct {
	DB *sql.DB
}

// NewPool opens a connection pool against Postgres via lib/pq and applies
// the configured sizing knobs.
func NewPool(cfg PoolConfig) (*Pool, error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("tenant: open pool: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("tenant: ping pool: %w", err)
	}

	return &Pool{DB: db}, nil
}

// Close closes the underlying connection pool.
func (p *Pool) Close() error {
	return p.DB.Close()
}
