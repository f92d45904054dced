package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/lib/pq"

	"github.com/gundb/gun-go/internal/graph"
	"github.com/gundb/gun-go/internal/gunerr"
)

// Postgres is an optional relational storage adapter for deployments that
// already run Postgres for other state (spec §6 domain stack). Grounded on
// the teacher's internal/gvisor.DatabaseStateManager use of
// database/sql + lib/pq, repurposed from savepoint management to a plain
// soul -> JSON column store.
type Postgres struct {
	db *sql.DB
}

// NewPostgres connects to dbURL and ensures the gun_nodes table exists.
func NewPostgres(dbURL string) (*Postgres, error) {
	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.NewPostgres", err)
	}
	if err := db.Ping(); err != nil {
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.NewPostgres", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, err = db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS gun_nodes (
			soul TEXT PRIMARY KEY,
			data JSONB NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`)
	if err != nil {
		db.Close()
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.NewPostgres", err)
	}

	return &Postgres{db: db}, nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Get(soul string) (*graph.Node, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var payload []byte
	err := p.db.QueryRowContext(ctx, `SELECT data FROM gun_nodes WHERE soul = $1`, soul).Scan(&payload)
	if err == sql.ErrNoRows {
		return nil, gunerr.New(gunerr.KindNotFound, "storage.Postgres.Get", "soul not found: "+soul)
	}
	if err != nil {
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.Postgres.Get", err)
	}

	n := &graph.Node{}
	if err := json.Unmarshal(payload, n); err != nil {
		return nil, gunerr.Wrap(gunerr.KindStorage, "storage.Postgres.Get", err)
	}
	return n, nil
}

func (p *Postgres) Put(soul string, node *graph.Node) error {
	payload, err := json.Marshal(node)
	if err != nil {
		return gunerr.Wrap(gunerr.KindStorage, "storage.Postgres.Put", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO gun_nodes (soul, data, updated_at) VALUES ($1, $2, now())
		ON CONFLICT (soul) DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		soul, payload)
	if err != nil {
		return gunerr.Wrap(gunerr.KindStorage, "storage.Postgres.Put", err)
	}
	return nil
}

func (p *Postgres) Has(soul string) (bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var exists bool
	err := p.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM gun_nodes WHERE soul = $1)`, soul).Scan(&exists)
	if err != nil {
		return false, gunerr.Wrap(gunerr.KindStorage, "storage.Postgres.Has", err)
	}
	return exists, nil
}
