// Package store persists parsed FLR files to PostgreSQL.
//
// Each imported file becomes one row in flr_files and one row per record in
// flr_records. Records are bulk loaded with COPY inside a single
// transaction, so a failed import leaves nothing behind.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/JonMunkholm/flr/internal/core"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotConfigured is returned when an import is requested without a database.
var ErrNotConfigured = errors.New("storage not configured")

// Schema creates the tables used by the store.
const Schema = `
CREATE TABLE IF NOT EXISTS flr_files (
	id          uuid PRIMARY KEY,
	name        text NOT NULL,
	schema_name text NOT NULL,
	stacks      integer NOT NULL,
	records     integer NOT NULL,
	imported_at timestamptz NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS flr_records (
	file_id  uuid NOT NULL REFERENCES flr_files(id) ON DELETE CASCADE,
	stack_no integer NOT NULL,
	position integer NOT NULL,
	role     text NOT NULL,
	kind     text NOT NULL,
	line     text NOT NULL,
	fields   jsonb,
	PRIMARY KEY (file_id, stack_no, position)
);
`

var recordColumns = []string{"file_id", "stack_no", "position", "role", "kind", "line", "fields"}

// Tx is the part of pgx.Tx the store uses.
type Tx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// DB is the part of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Store saves and lists imported files.
type Store struct {
	db    DB
	begin func(ctx context.Context) (Tx, error)
	now   func() time.Time
}

// New creates a store backed by pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{
		db: pool,
		begin: func(ctx context.Context) (Tx, error) {
			return pool.Begin(ctx)
		},
		now: time.Now,
	}
}

// PoolOptions tune the connection pool built by Connect.
type PoolOptions struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect parses url, opens a pool and pings the database.
func Connect(ctx context.Context, url string, opts PoolOptions) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, ErrNotConfigured
	}
	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = int32(opts.MaxConns)
	}
	if opts.MinConns > 0 {
		cfg.MinConns = int32(opts.MinConns)
	}
	if opts.MaxConnLifetime > 0 {
		cfg.MaxConnLifetime = opts.MaxConnLifetime
	}
	if opts.MaxConnIdleTime > 0 {
		cfg.MaxConnIdleTime = opts.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the store tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("create tables: %w", err)
	}
	return nil
}

// FileSummary describes an imported file.
type FileSummary struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Schema     string    `json:"schema"`
	Stacks     int       `json:"stacks"`
	Records    int       `json:"records"`
	ImportedAt time.Time `json:"imported_at"`
}

// SaveFile stores every record of f under a new file id.
func (s *Store) SaveFile(ctx context.Context, name, schemaName string, f *core.File) (uuid.UUID, error) {
	id := uuid.New()
	rows, err := Rows(id, f)
	if err != nil {
		return uuid.Nil, err
	}

	tx, err := s.begin(ctx)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx) // No-op if already committed

	_, err = tx.Exec(ctx,
		`INSERT INTO flr_files (id, name, schema_name, stacks, records, imported_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		pgtype.UUID{Bytes: id, Valid: true}, name, schemaName, f.Len(), len(rows), s.now(),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert file: %w", err)
	}

	n, err := tx.CopyFrom(ctx, pgx.Identifier{"flr_records"}, recordColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return uuid.Nil, fmt.Errorf("copy records: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return uuid.Nil, fmt.Errorf("commit import: %w", err)
	}

	slog.Info("file imported", "id", id, "name", name, "schema", schemaName, "stacks", f.Len(), "records", n)
	return id, nil
}

// ListFiles returns the most recent imports first.
func (s *Store) ListFiles(ctx context.Context, limit int) ([]FileSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(ctx,
		`SELECT id, name, schema_name, stacks, records, imported_at FROM flr_files ORDER BY imported_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	var out []FileSummary
	for rows.Next() {
		var (
			fs FileSummary
			id pgtype.UUID
		)
		if err := rows.Scan(&id, &fs.Name, &fs.Schema, &fs.Stacks, &fs.Records, &fs.ImportedAt); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		fs.ID = uuid.UUID(id.Bytes)
		out = append(out, fs)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	return out, nil
}

// fieldValuer is implemented by records that can expose their fields.
type fieldValuer interface {
	Values() map[string]any
}

// Rows flattens f into flr_records rows in file order. Positions are
// 1-based within each stack and count the header, body and footer.
func Rows(id uuid.UUID, f *core.File) ([][]any, error) {
	fileID := pgtype.UUID{Bytes: id, Valid: true}
	var rows [][]any

	add := func(stackNo, pos int, role string, e *core.Entry) error {
		line, err := e.Type.Codec().Encode(e.Record)
		if err != nil {
			return fmt.Errorf("encode %s record in stack %d: %w", e.Kind(), stackNo, err)
		}
		var fields []byte
		if v, ok := e.Record.(fieldValuer); ok {
			if fields, err = json.Marshal(v.Values()); err != nil {
				return fmt.Errorf("marshal %s record in stack %d: %w", e.Kind(), stackNo, err)
			}
		}
		rows = append(rows, []any{fileID, stackNo, pos, role, e.Kind(), line, fields})
		return nil
	}

	for i, st := range f.Stacks() {
		stackNo, pos := i+1, 0
		if st.Header != nil {
			pos++
			if err := add(stackNo, pos, "header", st.Header); err != nil {
				return nil, err
			}
		}
		for j := range st.Body {
			pos++
			if err := add(stackNo, pos, "body", &st.Body[j]); err != nil {
				return nil, err
			}
		}
		if st.Footer != nil {
			pos++
			if err := add(stackNo, pos, "footer", st.Footer); err != nil {
				return nil, err
			}
		}
	}
	return rows, nil
}
