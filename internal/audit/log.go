package audit

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const defaultDBPath = ".runmeta/audit.sqlite"

// Logger appends extraction events to a SQLite-backed audit trail. A nil
// Logger discards events, so callers can wire auditing unconditionally.
type Logger struct {
	DBPath string
}

// NewLogger returns a Logger bound to the provided DB path. An empty path
// falls back to RUNMETA_AUDIT_DB, then to .runmeta/audit.sqlite under the
// working directory.
func NewLogger(dbPath string) *Logger {
	return &Logger{DBPath: dbPath}
}

// LogEvent records one event with a JSON payload.
func (l *Logger) LogEvent(eventType string, payload any) error {
	if l == nil {
		return nil
	}
	path, err := resolveDBPath(l.DBPath)
	if err != nil {
		return err
	}
	return appendEvent(path, eventType, payload)
}

func resolveDBPath(dbPath string) (string, error) {
	if dbPath == "" {
		dbPath = os.Getenv("RUNMETA_AUDIT_DB")
	}
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	absPath, err := filepath.Abs(dbPath)
	if err != nil {
		return "", fmt.Errorf("resolve audit db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return "", fmt.Errorf("ensure audit db dir: %w", err)
	}
	return absPath, nil
}

func appendEvent(dbPath string, eventType string, payload any) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return fmt.Errorf("open audit db: %w", err)
	}
	defer func() {
		_ = db.Close()
	}()

	if err := ensureSchema(db); err != nil {
		return err
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = db.Exec(
		"INSERT INTO extractions (ts, type, payload_json) VALUES (?, ?, ?)",
		time.Now().UTC(),
		eventType,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

func ensureSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS extractions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts DATETIME NOT NULL,
			type TEXT NOT NULL,
			payload_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	return nil
}
