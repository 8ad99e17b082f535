package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/minilabo/minilab-core/internal/io"
)

const (
	defaultLimit = 50
	maxLimit     = 200
)

// Entry is one persisted remote update, as returned by queries.
type Entry struct {
	ID        int64    `json:"id"`
	ChannelID string   `json:"channel_id"`
	MAC       string   `json:"mac,omitempty"`
	IP        string   `json:"ip,omitempty"`
	Hostname  string   `json:"hostname,omitempty"`
	Raw       *float64 `json:"raw,omitempty"`
	Value     *float64 `json:"value,omitempty"`
	Unit      string   `json:"unit,omitempty"`
	CreatedAt string   `json:"created_at"`
}

// SQLiteRepository persists accepted remote updates to SQLite. It
// implements io.UpdateRecorder, so the channel registry can feed it
// directly from the network path.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a repository over an open connection and
// initialises the schema.
//
// Parameters:
//   - db: Open SQLite connection used for queries
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
//   - error: If schema initialisation fails
func NewSQLiteRepository(db *sql.DB) (*SQLiteRepository, error) {
	repo := &SQLiteRepository{db: db}
	if err := repo.initSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

// initSchema creates the remote_updates table if it does not exist.
// The schema is additive and small; no migration framework is needed.
func (r *SQLiteRepository) initSchema() error {
	_, err := r.db.Exec(`
		CREATE TABLE IF NOT EXISTS remote_updates (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			channel_id TEXT NOT NULL,
			mac        TEXT NOT NULL DEFAULT '',
			ip         TEXT NOT NULL DEFAULT '',
			hostname   TEXT NOT NULL DEFAULT '',
			raw        REAL,
			value      REAL,
			unit       TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_remote_updates_channel
			ON remote_updates (channel_id, created_at);
	`)
	if err != nil {
		return fmt.Errorf("initialising remote_updates schema: %w", err)
	}
	return nil
}

// RecordRemoteUpdate inserts one accepted remote update.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - rec: The accepted update as stamped by the registry
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) RecordRemoteUpdate(ctx context.Context, rec io.RemoteUpdateRecord) error {
	if rec.ChannelID == "" {
		return fmt.Errorf("channel id is required")
	}
	at := rec.At
	if at.IsZero() {
		at = time.Now()
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO remote_updates (channel_id, mac, ip, hostname, raw, value, unit, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ChannelID,
		rec.MAC,
		rec.IP,
		rec.Hostname,
		nullableFloat(rec.Raw),
		nullableFloat(rec.Value),
		rec.Unit,
		at.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("inserting remote update: %w", err)
	}
	return nil
}

// List returns recent updates for a channel, ordered newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - channelID: Registry channel identifier
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: Entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) List(ctx context.Context, channelID string, limit int) ([]Entry, error) {
	if channelID == "" {
		return nil, fmt.Errorf("channel id is required")
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, channel_id, mac, ip, hostname, raw, value, unit, created_at
		 FROM remote_updates
		 WHERE channel_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		channelID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying remote updates: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		var entry Entry
		var raw, value sql.NullFloat64

		if err := rows.Scan(&entry.ID, &entry.ChannelID, &entry.MAC, &entry.IP,
			&entry.Hostname, &raw, &value, &entry.Unit, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning remote update: %w", err)
		}
		if raw.Valid {
			v := raw.Float64
			entry.Raw = &v
		}
		if value.Valid {
			v := value.Float64
			entry.Value = &v
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating remote updates: %w", err)
	}
	return entries, nil
}

// Prune deletes updates older than the given duration.
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339Nano)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM remote_updates WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting remote updates: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}

func nullableFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}
