// Package history keeps a per-document transcript of questions, answers and
// the passages each answer cited, so a reopened document shows its recent
// conversation.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/csheth/citeview/internal/backend"
)

// DefaultLimit is how many exchanges are replayed when a document is reopened.
const DefaultLimit = 10

// Exchange is one question and the reply it got.
type Exchange struct {
	ID           int64               `yaml:"-"`
	DocumentID   string              `yaml:"-"`
	DocumentName string              `yaml:"-"`
	Question     string              `yaml:"question"`
	Answer       string              `yaml:"answer"`
	References   []backend.Reference `yaml:"references,omitempty"`
	Failed       bool                `yaml:"failed,omitempty"`
	AskedAt      time.Time           `yaml:"asked_at"`
}

// Store is a SQLite-backed transcript store.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrap(err, "creating history directory")
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, errors.Wrap(err, "opening history database")
	}
	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "creating history schema")
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			last_opened TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS exchanges (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			document_id TEXT NOT NULL,
			question TEXT NOT NULL,
			answer TEXT NOT NULL,
			refs TEXT,
			failed INTEGER NOT NULL DEFAULT 0,
			asked_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_exchanges_document ON exchanges(document_id, id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// TouchDocument records that the document id (shown as name) was opened.
func (s *Store) TouchDocument(ctx context.Context, id, name string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, name, last_opened) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name = excluded.name, last_opened = excluded.last_opened`,
		id, name, time.Now().UTC().Format(time.RFC3339Nano))
	return errors.Wrap(err, "recording document")
}

// Append stores ex and returns it with its ID set.
func (s *Store) Append(ctx context.Context, ex Exchange) (Exchange, error) {
	if ex.DocumentID == "" {
		return ex, errors.New("exchange has no document")
	}
	if ex.AskedAt.IsZero() {
		ex.AskedAt = time.Now().UTC()
	}
	refs, err := json.Marshal(ex.References)
	if err != nil {
		return ex, errors.Wrap(err, "encoding references")
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO exchanges (document_id, question, answer, refs, failed, asked_at) VALUES (?, ?, ?, ?, ?, ?)`,
		ex.DocumentID, ex.Question, ex.Answer, string(refs), ex.Failed, ex.AskedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return ex, errors.Wrap(err, "inserting exchange")
	}
	ex.ID, err = res.LastInsertId()
	return ex, errors.Wrap(err, "reading exchange id")
}

// Recent returns the last limit exchanges for a document, oldest first.
func (s *Store) Recent(ctx context.Context, documentID string, limit int) ([]Exchange, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, question, answer, refs, failed, asked_at FROM (
			SELECT * FROM exchanges WHERE document_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, documentID, limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying exchanges")
	}
	defer rows.Close()
	return scanExchanges(rows)
}

// Document is a document that has a transcript.
type Document struct {
	ID         string     `yaml:"id"`
	Name       string     `yaml:"name"`
	LastOpened time.Time  `yaml:"last_opened"`
	Exchanges  []Exchange `yaml:"exchanges"`
}

// Documents lists known documents, most recently opened first.
func (s *Store) Documents(ctx context.Context) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, last_opened FROM documents ORDER BY last_opened DESC`)
	if err != nil {
		return nil, errors.Wrap(err, "querying documents")
	}
	defer rows.Close()
	var docs []Document
	for rows.Next() {
		var d Document
		var opened string
		if err := rows.Scan(&d.ID, &d.Name, &opened); err != nil {
			return nil, errors.Wrap(err, "scanning document")
		}
		d.LastOpened, _ = time.Parse(time.RFC3339Nano, opened)
		docs = append(docs, d)
	}
	return docs, errors.Wrap(rows.Err(), "iterating documents")
}

func scanExchanges(rows *sql.Rows) ([]Exchange, error) {
	var out []Exchange
	for rows.Next() {
		var ex Exchange
		var refs sql.NullString
		var asked string
		if err := rows.Scan(&ex.ID, &ex.DocumentID, &ex.Question, &ex.Answer, &refs, &ex.Failed, &asked); err != nil {
			return nil, errors.Wrap(err, "scanning exchange")
		}
		if refs.Valid && refs.String != "" && refs.String != "null" {
			if err := json.Unmarshal([]byte(refs.String), &ex.References); err != nil {
				return nil, errors.Wrapf(err, "decoding references of exchange %d", ex.ID)
			}
		}
		ex.AskedAt, _ = time.Parse(time.RFC3339Nano, asked)
		out = append(out, ex)
	}
	return out, errors.Wrap(rows.Err(), "iterating exchanges")
}
