package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ericksa/legalese/internal/clause"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a document does not exist.
var ErrNotFound = errors.New("document not found")

// Store persists analysed documents and their clauses in SQLite.
type Store struct {
	db *sql.DB
}

// Document is a stored document with its clause results in document order.
type Document struct {
	ID        int64           `json:"document_id"`
	UserID    string          `json:"user_id"`
	Filename  string          `json:"filename"`
	Content   string          `json:"content"`
	CreatedAt time.Time       `json:"created_at"`
	Results   []clause.Result `json:"results"`
}

// DocumentSummary is a listing row without content.
type DocumentSummary struct {
	ID          int64     `json:"id"`
	UserID      string    `json:"user_id"`
	Filename    string    `json:"filename"`
	ClauseCount int       `json:"clause_count"`
	CreatedAt   time.Time `json:"created_at"`
}

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id TEXT NOT NULL,
	filename TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_documents_user ON documents(user_id);
CREATE TABLE IF NOT EXISTS clauses (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	position INTEGER NOT NULL,
	text TEXT NOT NULL,
	risk_level TEXT NOT NULL,
	explanation TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_clauses_document ON clauses(document_id, position);
`

// Open opens (or creates) the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// A single connection keeps ":memory:" databases coherent and serialises writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// SaveAnalysis stores a document and its ordered clause results in one transaction.
func (s *Store) SaveAnalysis(ctx context.Context, userID, filename, content string, results []clause.Result) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		"INSERT INTO documents (user_id, filename, content, created_at) VALUES (?, ?, ?, ?)",
		userID, filename, content, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("insert document: %w", err)
	}
	docID, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO clauses (document_id, position, text, risk_level, explanation) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return 0, fmt.Errorf("prepare clause insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range results {
		if _, err := stmt.ExecContext(ctx, docID, i, r.Text, r.Risk.String(), r.Explanation); err != nil {
			return 0, fmt.Errorf("insert clause %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return docID, nil
}

// ListDocuments returns the documents owned by userID, newest first.
func (s *Store) ListDocuments(ctx context.Context, userID string) ([]DocumentSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT d.id, d.user_id, d.filename, d.created_at, COUNT(c.id)
		FROM documents d LEFT JOIN clauses c ON c.document_id = d.id
		WHERE d.user_id = ?
		GROUP BY d.id
		ORDER BY d.id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()

	docs := []DocumentSummary{}
	for rows.Next() {
		var d DocumentSummary
		if err := rows.Scan(&d.ID, &d.UserID, &d.Filename, &d.CreatedAt, &d.ClauseCount); err != nil {
			return nil, err
		}
		docs = append(docs, d)
	}
	return docs, rows.Err()
}

// GetDocument loads a document with its clauses.
func (s *Store) GetDocument(ctx context.Context, id int64) (*Document, error) {
	var d Document
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, filename, content, created_at FROM documents WHERE id = ?", id).
		Scan(&d.ID, &d.UserID, &d.Filename, &d.Content, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get document %d: %w", id, err)
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT text, risk_level, explanation FROM clauses WHERE document_id = ? ORDER BY position", id)
	if err != nil {
		return nil, fmt.Errorf("get clauses for %d: %w", id, err)
	}
	defer rows.Close()

	d.Results = []clause.Result{}
	for rows.Next() {
		var r clause.Result
		var level string
		if err := rows.Scan(&r.Text, &level, &r.Explanation); err != nil {
			return nil, err
		}
		if r.Risk, err = clause.ParseRisk(level); err != nil {
			return nil, err
		}
		d.Results = append(d.Results, r)
	}
	return &d, rows.Err()
}
