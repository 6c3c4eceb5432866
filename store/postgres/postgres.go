package postgres

import (
	"context"
	"database/sql"

	"github.com/juju/errors"
	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
	"github.com/warriorguo/dagflow/store"
)

var (
	_ store.Store  = &pgStore{}
	_ store.Closer = &pgStore{}
)

// reports and trace records share one table, told apart by prefix
const (
	createTableSQL = `
		CREATE TABLE IF NOT EXISTS dagflow_store (
			prefix     VARCHAR(512) NOT NULL,
			key        VARCHAR(255) NOT NULL,
			value      BYTEA,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (prefix, key)
		);
		CREATE INDEX IF NOT EXISTS idx_dagflow_store_prefix ON dagflow_store(prefix);`

	getSQL    = `SELECT value FROM dagflow_store WHERE prefix = $1 AND key = $2`
	removeSQL = `DELETE FROM dagflow_store WHERE prefix = $1 AND key = $2`
	listSQL   = `SELECT key FROM dagflow_store WHERE prefix = $1 ORDER BY key`
	upsertSQL = `
		INSERT INTO dagflow_store (prefix, key, value, updated_at)
		VALUES ($1, $2, $3, CURRENT_TIMESTAMP)
		ON CONFLICT (prefix, key)
		DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`
)

type pgStore struct {
	db *sql.DB
}

// NewPostgresStore connects, checks the server answers and makes sure the table exists.
func NewPostgresStore(ctx context.Context, config *Config) (store.Store, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.Trace(err)
	}

	db, err := sql.Open("postgres", config.DSN())
	if err != nil {
		return nil, errors.Annotatef(err, "open postgres %s:%d", config.Host, config.Port)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.Annotatef(err, "ping postgres %s:%d", config.Host, config.Port)
	}

	s, err := NewPostgresStoreWithDB(ctx, db)
	if err != nil {
		db.Close()
		return nil, errors.Trace(err)
	}
	log.Infof("report store on postgres %s:%d/%s", config.Host, config.Port, config.Database)
	return s, nil
}

// NewPostgresStoreWithDB reuses a connection owned by the caller.
func NewPostgresStoreWithDB(ctx context.Context, db *sql.DB) (store.Store, error) {
	if db == nil {
		return nil, errors.BadRequestf("db cannot be nil")
	}
	if _, err := db.ExecContext(ctx, createTableSQL); err != nil {
		return nil, errors.Annotatef(err, "create table")
	}
	return &pgStore{db: db}, nil
}

// Get returns nil without error when the key does not exist.
func (p *pgStore) Get(ctx context.Context, prefix, key string) ([]byte, error) {
	var value []byte
	err := p.db.QueryRowContext(ctx, getSQL, prefix, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return value, errors.Annotatef(err, "get %s%s", prefix, key)
}

func (p *pgStore) Set(ctx context.Context, prefix, key string, value []byte) error {
	_, err := p.db.ExecContext(ctx, upsertSQL, prefix, key, value)
	return errors.Annotatef(err, "set %s%s", prefix, key)
}

func (p *pgStore) Remove(ctx context.Context, prefix, key string) error {
	_, err := p.db.ExecContext(ctx, removeSQL, prefix, key)
	return errors.Annotatef(err, "remove %s%s", prefix, key)
}

func (p *pgStore) List(ctx context.Context, prefix string, iterator func(key string) bool) error {
	rows, err := p.db.QueryContext(ctx, listSQL, prefix)
	if err != nil {
		return errors.Annotatef(err, "list %s", prefix)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return errors.Annotatef(err, "scan key of %s", prefix)
		}
		if !iterator(key) {
			break
		}
	}
	return errors.Annotatef(rows.Err(), "list %s", prefix)
}

func (p *pgStore) Close() error {
	return p.db.Close()
}
