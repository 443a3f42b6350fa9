// Package updatelog provides a durable append-only journal of update
// payloads, one sequence per document GUID, backed by SQLite. It exists for
// tooling and debugging workflows: record the updates a replica emits, then
// replay them later against a fresh replica to reconstruct or inspect its
// state. The engine itself never depends on it.
package updatelog

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"

	_ "github.com/mattn/go-sqlite3"

	"github.com/quiltdb/quilt"
)

//go:embed schema.sql
var schemaSQL string

// Log is an append-only journal of update payloads keyed by document GUID.
// Uses SQLite with WAL mode for concurrent read access.
type Log struct {
	db *sql.DB
}

// Open creates or opens a journal database at the given path. Applies
// required pragmas and the schema automatically; safe to call on an
// existing journal.
func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit connections.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	slog.Debug("journal open", "path", path)
	return &Log{db: db}, nil
}

// Close closes the database connection.
func (l *Log) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Append records one update payload for a document and returns its sequence
// number. Sequence numbers start at 1 and are dense per document.
func (l *Log) Append(ctx context.Context, docGUID string, payload []byte) (int64, error) {
	if docGUID == "" {
		return 0, fmt.Errorf("doc guid is required")
	}
	if len(payload) == 0 {
		return 0, fmt.Errorf("payload is required")
	}

	var seq int64
	err := l.db.QueryRowContext(ctx,
		`INSERT INTO updates (doc_guid, seq, payload)
		 VALUES (?, 1 + COALESCE((SELECT MAX(seq) FROM updates WHERE doc_guid = ?), 0), ?)
		 RETURNING seq`,
		docGUID, docGUID, payload,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("append update: %w", err)
	}
	slog.Debug("update appended", "doc", docGUID, "seq", seq, "bytes", len(payload))
	return seq, nil
}

// Updates returns every payload recorded for a document in sequence order.
func (l *Log) Updates(ctx context.Context, docGUID string) ([][]byte, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT payload FROM updates WHERE doc_guid = ? ORDER BY seq`,
		docGUID,
	)
	if err != nil {
		return nil, fmt.Errorf("query updates: %w", err)
	}
	defer rows.Close()

	var payloads [][]byte
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan update: %w", err)
		}
		payloads = append(payloads, payload)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate updates: %w", err)
	}
	return payloads, nil
}

// Docs returns every document GUID present in the journal, sorted.
func (l *Log) Docs(ctx context.Context) ([]string, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT DISTINCT doc_guid FROM updates ORDER BY doc_guid`,
	)
	if err != nil {
		return nil, fmt.Errorf("query docs: %w", err)
	}
	defer rows.Close()

	var guids []string
	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			return nil, fmt.Errorf("scan doc guid: %w", err)
		}
		guids = append(guids, guid)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate docs: %w", err)
	}
	return guids, nil
}

// Replay applies a document's journaled updates in order to a fresh replica
// and returns it. A payload the journal accepted but the engine rejects
// fails the replay with the offending sequence number.
func (l *Log) Replay(ctx context.Context, docGUID string) (*quilt.Doc, error) {
	payloads, err := l.Updates(ctx, docGUID)
	if err != nil {
		return nil, err
	}
	doc := quilt.New()
	for i, payload := range payloads {
		if err := quilt.ApplyUpdate(doc, payload); err != nil {
			return nil, fmt.Errorf("replay seq %d: %w", i+1, err)
		}
	}
	slog.Info("replay complete", "doc", docGUID, "updates", len(payloads), "pending", doc.PendingBlocks())
	return doc, nil
}
