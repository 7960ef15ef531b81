package sessions

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"framecast/internal/config"
)

// Store manages the encode session journal backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the session journal.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "sessions.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the journal file location.
func (s *Store) Path() string {
	return s.path
}

// Create inserts a new receiving session and returns it.
func (s *Store) Create(ctx context.Context, frameRate, declaredFrames int) (*Session, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO encode_sessions (
            id, frame_rate, declared_frames, status, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?)`,
		id,
		frameRate,
		declaredFrames,
		StatusReceiving,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert session: %w", err)
	}
	return s.GetByID(ctx, id)
}

// UpdateProgress records the frames and bytes received so far.
func (s *Store) UpdateProgress(ctx context.Context, id string, frames int, bytes int64) error {
	return s.update(ctx, id,
		"received_frames = ?, bytes_received = ?",
		frames, bytes)
}

// MarkEncoding transitions a session to the encoding state once its input
// stream is complete.
func (s *Store) MarkEncoding(ctx context.Context, id string, frames int, bytes int64) error {
	return s.update(ctx, id,
		"status = ?, received_frames = ?, bytes_received = ?",
		StatusEncoding, frames, bytes)
}

// MarkCompleted finalizes a session with the artifact size.
func (s *Store) MarkCompleted(ctx context.Context, id string, artifactBytes int64) error {
	return s.update(ctx, id,
		"status = ?, artifact_bytes = ?, error = NULL",
		StatusCompleted, artifactBytes)
}

// MarkFailed finalizes a session with the terminal error.
func (s *Store) MarkFailed(ctx context.Context, id string, message string) error {
	return s.update(ctx, id,
		"status = ?, error = ?",
		StatusFailed, strings.TrimSpace(message))
}

func (s *Store) update(ctx context.Context, id, setClause string, args ...any) error {
	query := fmt.Sprintf(
		"UPDATE encode_sessions SET %s, updated_at = ? WHERE id = ?", setClause)
	args = append(args, time.Now().UTC().Format(time.RFC3339Nano), id)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update session %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("session %s not found", id)
	}
	return nil
}

// GetByID fetches one session.
func (s *Store) GetByID(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id)
	return scanSession(row)
}

// List returns sessions newest first, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Session, error) {
	query := selectColumns
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY created_at DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*Session
	for rows.Next() {
		item, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

// Stats returns session counts per status.
func (s *Store) Stats(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT status, COUNT(1) FROM encode_sessions GROUP BY status")
	if err != nil {
		return nil, fmt.Errorf("session stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[string]int, len(allStatuses))
	for _, status := range allStatuses {
		stats[string(status)] = 0
	}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// ClearFinished removes completed and failed sessions.
func (s *Store) ClearFinished(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM encode_sessions WHERE status IN (?, ?)",
		StatusCompleted, StatusFailed)
	if err != nil {
		return 0, fmt.Errorf("clear finished sessions: %w", err)
	}
	return res.RowsAffected()
}

// PruneOlderThan removes finished sessions last touched before cutoff.
// Retention only; in-flight sessions are never pruned.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM encode_sessions WHERE status IN (?, ?) AND updated_at < ?",
		StatusCompleted, StatusFailed, cutoff.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return 0, fmt.Errorf("prune sessions: %w", err)
	}
	return res.RowsAffected()
}

const selectColumns = `SELECT
    id, frame_rate, declared_frames, received_frames,
    bytes_received, artifact_bytes, status, error, created_at, updated_at
FROM encode_sessions`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (*Session, error) {
	var item Session
	var errMsg sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(
		&item.ID,
		&item.FrameRate,
		&item.DeclaredFrames,
		&item.ReceivedFrames,
		&item.BytesReceived,
		&item.ArtifactBytes,
		&item.Status,
		&errMsg,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("scan session: %w", err)
	}

	item.ErrorMessage = errMsg.String
	if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		item.CreatedAt = ts
	}
	if ts, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		item.UpdatedAt = ts
	}
	return &item, nil
}
