package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/salesmerge/internal/core"
)

const createTable = `CREATE TABLE IF NOT EXISTS merge_history (
	id          TEXT PRIMARY KEY,
	output_name TEXT NOT NULL,
	sort_key    TEXT NOT NULL,
	file_names  TEXT[] NOT NULL,
	total_rows  INTEGER NOT NULL,
	forced      BOOLEAN NOT NULL DEFAULT FALSE,
	client_ip   TEXT,
	user_agent  TEXT,
	repair_version TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// Tables created before the user agent and repair version were recorded.
const addColumns = `ALTER TABLE merge_history
	ADD COLUMN IF NOT EXISTS user_agent TEXT,
	ADD COLUMN IF NOT EXISTS repair_version TEXT NOT NULL DEFAULT ''`

const createIndex = `CREATE INDEX IF NOT EXISTS merge_history_created_at_idx
	ON merge_history (created_at DESC)`

// PostgresStore persists merges in the merge_history table.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool. Call Migrate before first use.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Connect opens a pool for databaseURL, verifies it and creates the table.
func Connect(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return store, nil
}

// Migrate creates the merge_history table when missing.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{createTable, addColumns, createIndex} {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate merge_history: %w", err)
		}
	}
	return nil
}

// Close releases the pool.
func (p *PostgresStore) Close() {
	p.pool.Close()
}

// Record inserts rec.
func (p *PostgresStore) Record(ctx context.Context, rec core.MergeRecord) error {
	clientIP := pgtype.Text{String: rec.ClientIP, Valid: rec.ClientIP != ""}
	userAgent := pgtype.Text{String: rec.UserAgent, Valid: rec.UserAgent != ""}
	createdAt := pgtype.Timestamptz{Time: rec.CreatedAt, Valid: !rec.CreatedAt.IsZero()}

	fileNames := rec.FileNames
	if fileNames == nil {
		fileNames = []string{}
	}

	_, err := p.pool.Exec(ctx,
		`INSERT INTO merge_history
			(id, output_name, sort_key, file_names, total_rows, forced,
			 client_ip, user_agent, repair_version, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, COALESCE($10, NOW()))`,
		rec.ID, rec.OutputName, rec.SortKey, fileNames, rec.TotalRows, rec.Forced,
		clientIP, userAgent, rec.RepairVersion, createdAt,
	)
	if err != nil {
		return fmt.Errorf("insert merge_history: %w", err)
	}
	return nil
}

// Recent returns up to limit merges, newest first.
func (p *PostgresStore) Recent(ctx context.Context, limit int) ([]core.MergeRecord, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}

	rows, err := p.pool.Query(ctx,
		`SELECT id, output_name, sort_key, file_names, total_rows, forced,
			client_ip, user_agent, repair_version, created_at
		FROM merge_history
		ORDER BY created_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]core.MergeRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

func scanRecord(rows pgx.Rows) (core.MergeRecord, error) {
	var (
		rec       core.MergeRecord
		totalRows int32
		clientIP  pgtype.Text
		userAgent pgtype.Text
		createdAt pgtype.Timestamptz
	)

	err := rows.Scan(
		&rec.ID, &rec.OutputName, &rec.SortKey, &rec.FileNames,
		&totalRows, &rec.Forced, &clientIP, &userAgent, &rec.RepairVersion, &createdAt,
	)
	if err != nil {
		return core.MergeRecord{}, err
	}

	rec.TotalRows = int(totalRows)
	if clientIP.Valid {
		rec.ClientIP = clientIP.String
	}
	if userAgent.Valid {
		rec.UserAgent = userAgent.String
	}
	rec.CreatedAt = createdAt.Time
	return rec, nil
}
