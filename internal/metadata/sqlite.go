package metadata

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/starford/haven/internal/apperr"
	"github.com/starford/haven/internal/models"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS article_metadata (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'draft',
	publish_date TEXT,
	sources      TEXT NOT NULL DEFAULT '[]',
	word_goal    INTEGER NOT NULL DEFAULT 1000,
	updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

// SQLiteStore persists overlay records in a single SQLite table.
type SQLiteStore struct {
	conn *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("metadata: open db: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metadata: ping: %w: %w", apperr.ErrIO, err)
	}
	if _, err := conn.Exec(schemaSQL); err != nil {
		conn.Close()
		return nil, fmt.Errorf("metadata: apply schema: %w", err)
	}
	return &SQLiteStore{conn: conn}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

// LoadAll returns every persisted record.
func (s *SQLiteStore) LoadAll() (map[string]models.Metadata, error) {
	rows, err := s.conn.Query(`SELECT id, status, publish_date, sources, word_goal FROM article_metadata`)
	if err != nil {
		return nil, fmt.Errorf("metadata: load all: %w: %w", apperr.ErrIO, err)
	}
	defer rows.Close()

	out := make(map[string]models.Metadata)
	for rows.Next() {
		var (
			id, status, sourcesJSON string
			publish                 sql.NullString
			goal                    int
		)
		if err := rows.Scan(&id, &status, &publish, &sourcesJSON, &goal); err != nil {
			return nil, err
		}
		md := models.Metadata{Status: models.Status(status), WordGoal: goal, Sources: []string{}}
		if publish.Valid && publish.String != "" {
			d, err := models.ParseDate(publish.String)
			if err != nil {
				return nil, fmt.Errorf("metadata: row %s: %w", id, err)
			}
			md.PublishDate = &d
		}
		if err := json.Unmarshal([]byte(sourcesJSON), &md.Sources); err != nil {
			return nil, fmt.Errorf("metadata: row %s sources: %w", id, err)
		}
		if md.Sources == nil {
			md.Sources = []string{}
		}
		out[id] = md
	}
	return out, rows.Err()
}

// Put inserts or replaces the record for id.
func (s *SQLiteStore) Put(id string, md models.Metadata) error {
	sourcesJSON, err := json.Marshal(md.Sources)
	if err != nil {
		return err
	}
	var publish sql.NullString
	if md.PublishDate != nil {
		publish = sql.NullString{String: md.PublishDate.Format(time.RFC3339Nano), Valid: true}
	}
	_, err = s.conn.Exec(`
		INSERT INTO article_metadata (id, status, publish_date, sources, word_goal, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status       = excluded.status,
			publish_date = excluded.publish_date,
			sources      = excluded.sources,
			word_goal    = excluded.word_goal,
			updated_at   = excluded.updated_at
	`, id, string(md.Status), publish, string(sourcesJSON), md.WordGoal, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("metadata: upsert %s: %w: %w", id, apperr.ErrIO, err)
	}
	return nil
}

// Delete removes the record for id if present.
func (s *SQLiteStore) Delete(id string) error {
	if _, err := s.conn.Exec(`DELETE FROM article_metadata WHERE id = ?`, id); err != nil {
		return fmt.Errorf("metadata: delete %s: %w: %w", id, apperr.ErrIO, err)
	}
	return nil
}
