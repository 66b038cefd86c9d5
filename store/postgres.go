package store

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore keeps every collection in one JSONB table.
//
// Tables:
//
//	documents(id uuid, collection text, data jsonb, created_at timestamptz)
type PostgresStore struct {
	pool *pgxpool.Pool
	name string
}

// NewPostgresStore opens a pool on dsn and creates the documents table.
func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres pool: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		collection TEXT NOT NULL,
		data JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create documents table: %w", err)
	}
	if _, err := pool.Exec(ctx, `CREATE INDEX IF NOT EXISTS documents_collection_created
		ON documents (collection, created_at)`); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create documents index: %w", err)
	}
	return &PostgresStore{pool: pool, name: databaseFromDSN(dsn)}, nil
}

func (p *PostgresStore) Insert(ctx context.Context, collection string, doc map[string]any) (string, error) {
	stored, err := withoutID(doc)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(stored)
	if err != nil {
		return "", err
	}
	id := uuid.New()
	if _, err := p.pool.Exec(ctx,
		`INSERT INTO documents (id, collection, data) VALUES ($1, $2, $3)`,
		id, collection, b,
	); err != nil {
		return "", err
	}
	return id.String(), nil
}

func (p *PostgresStore) Find(ctx context.Context, collection string, filter map[string]any, limit int) ([]map[string]any, error) {
	query := `SELECT id::text, data FROM documents WHERE collection = $1`
	args := []any{collection}
	if len(filter) > 0 {
		b, err := json.Marshal(filter)
		if err != nil {
			return nil, err
		}
		// Containment on a flat object is per-key equality.
		query += ` AND data @> $2::jsonb`
		args = append(args, string(b))
	}
	query += ` ORDER BY created_at, id`
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	result := []map[string]any{}
	for rows.Next() {
		var id string
		var raw []byte
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}
		var doc map[string]any
		if err := json.Unmarshal(raw, &doc); err != nil {
			return nil, err
		}
		doc[IDField] = id
		result = append(result, doc)
	}
	return result, rows.Err()
}

func (p *PostgresStore) ListCollections(ctx context.Context) ([]string, error) {
	rows, err := p.pool.Query(ctx, `SELECT DISTINCT collection FROM documents ORDER BY collection`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (p *PostgresStore) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *PostgresStore) Name() string { return p.name }

func (p *PostgresStore) Close(context.Context) error {
	p.pool.Close()
	return nil
}

// databaseFromDSN extracts the database name from a URL-style DSN.
func databaseFromDSN(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil || u.Scheme == "" {
		return "postgres"
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		return name
	}
	return "postgres"
}
