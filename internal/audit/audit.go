package audit

import (
	"database/sql"
	"encoding/json"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Auditor records tool invocations. A nil or disabled Auditor is a no-op.
type Auditor struct {
	db     *sql.DB
	logger *zap.Logger
}

type AuditEntry struct {
	ID        int64     `json:"id"`
	Tool      string    `json:"tool"`
	Input     string    `json:"input"`
	Output    string    `json:"output"`
	Error     string    `json:"error,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// NewAuditor opens the audit database at path. Failures are logged and yield a
// disabled Auditor; auditing never blocks request handling.
func NewAuditor(path string, logger *zap.Logger) *Auditor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if path == "" {
		return &Auditor{logger: logger}
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		logger.Warn("Failed to open audit DB", zap.String("path", path), zap.Error(err))
		return &Auditor{logger: logger}
	}
	db.SetMaxOpenConns(1)
	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS audit_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		tool TEXT NOT NULL,
		input TEXT,
		output TEXT,
		error TEXT,
		timestamp DATETIME NOT NULL
	)`)
	if err != nil {
		logger.Warn("Failed to create audit table", zap.Error(err))
		db.Close()
		return &Auditor{logger: logger}
	}
	return &Auditor{db: db, logger: logger}
}

// Enabled reports whether entries are being written.
func (a *Auditor) Enabled() bool {
	return a != nil && a.db != nil
}

func (a *Auditor) Log(tool string, input json.RawMessage, output []byte, err error) {
	if !a.Enabled() {
		return
	}
	var errStr string
	if err != nil {
		errStr = err.Error()
	}
	_, err = a.db.Exec(
		"INSERT INTO audit_log (tool, input, output, error, timestamp) VALUES (?, ?, ?, ?, ?)",
		tool, string(input), string(output), errStr, time.Now().UTC(),
	)
	if err != nil {
		a.logger.Warn("Failed to write audit log", zap.String("tool", tool), zap.Error(err))
	}
}

func (a *Auditor) GetLogs(limit int) ([]AuditEntry, error) {
	if !a.Enabled() {
		return nil, nil
	}
	rows, err := a.db.Query("SELECT id, tool, input, output, error, timestamp FROM audit_log ORDER BY id DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []AuditEntry
	for rows.Next() {
		var e AuditEntry
		if err := rows.Scan(&e.ID, &e.Tool, &e.Input, &e.Output, &e.Error, &e.Timestamp); err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (a *Auditor) Close() {
	if a.Enabled() {
		a.db.Close()
	}
}
