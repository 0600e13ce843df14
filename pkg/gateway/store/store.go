// Package store persists call records to Postgres. Persistence is optional:
// a nil *Store is a no-op so the relay runs unchanged without a database.
package store

import (
	"context"
	"embed"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/oklog/ulid/v2"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

type Store struct {
	pool *pgxpool.Pool
}

// CallRecord is one call session's persisted row.
type CallRecord struct {
	ID            string
	SessionID     string
	StreamSid     string
	StartedAt     time.Time
	EndedAt       *time.Time
	Outcome       string
	FramesIn      int64
	FramesOut     int64
	FramesDropped int64
	BargeIns      int64
	FunctionCalls int64
}

// Open connects, migrates, and returns the store.
func Open(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening call-record pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pinging call-record database: %w", err)
	}
	if err := migrate(pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

func migrate(pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("configuring migrations: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("migrating call-record schema: %w", err)
	}
	return nil
}

func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// StartCall inserts the in-progress row and returns its id.
func (s *Store) StartCall(ctx context.Context, sessionID string) (string, error) {
	if s == nil || s.pool == nil {
		return "", nil
	}
	id := ulid.Make().String()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO call_records (id, session_id, started_at) VALUES ($1, $2, now())`,
		id, sessionID)
	if err != nil {
		return "", fmt.Errorf("recording call start: %w", err)
	}
	return id, nil
}

// SetStreamSid fills in the stream identifier once the telephony leg reports it.
func (s *Store) SetStreamSid(ctx context.Context, id, streamSid string) error {
	if s == nil || s.pool == nil || id == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE call_records SET stream_sid = $2 WHERE id = $1`,
		id, streamSid)
	if err != nil {
		return fmt.Errorf("recording stream sid: %w", err)
	}
	return nil
}

// EndCall closes out a call row with its outcome and final counters.
func (s *Store) EndCall(ctx context.Context, id, outcome string, framesIn, framesOut, framesDropped, bargeIns, functionCalls int64) error {
	if s == nil || s.pool == nil || id == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`UPDATE call_records
		 SET ended_at = now(), outcome = $2,
		     frames_in = $3, frames_out = $4, frames_dropped = $5,
		     barge_ins = $6, function_calls = $7
		 WHERE id = $1`,
		id, outcome, framesIn, framesOut, framesDropped, bargeIns, functionCalls)
	if err != nil {
		return fmt.Errorf("recording call end: %w", err)
	}
	return nil
}

// RecentCalls lists the newest call rows for the operational endpoint.
func (s *Store) RecentCalls(ctx context.Context, limit int) ([]CallRecord, error) {
	if s == nil || s.pool == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, stream_sid, started_at, ended_at, outcome,
		        frames_in, frames_out, frames_dropped, barge_ins, function_calls
		 FROM call_records ORDER BY started_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing call records: %w", err)
	}
	defer rows.Close()

	var records []CallRecord
	for rows.Next() {
		var r CallRecord
		if err := rows.Scan(&r.ID, &r.SessionID, &r.StreamSid, &r.StartedAt, &r.EndedAt, &r.Outcome,
			&r.FramesIn, &r.FramesOut, &r.FramesDropped, &r.BargeIns, &r.FunctionCalls); err != nil {
			return nil, fmt.Errorf("scanning call record: %w", err)
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// Ping reports database health for the readiness endpoint.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}
