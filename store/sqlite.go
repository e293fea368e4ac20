package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"
	_ "github.com/mattn/go-sqlite3"

	"github.com/lvillar/certkit"
)

const schema = `
CREATE TABLE IF NOT EXISTS certificates (
	cert_id         TEXT PRIMARY KEY,
	recipient_name  TEXT NOT NULL,
	course_name     TEXT NOT NULL,
	issue_date      TEXT NOT NULL,
	signature       TEXT NOT NULL,
	data_hash       TEXT NOT NULL,
	additional_data TEXT NOT NULL DEFAULT '{}',
	created_at      TEXT NOT NULL
);
`

// SQLite persists records in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the certificate database at
// path.
func OpenSQLite(path string) (*SQLite, error) {
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000&_foreign_keys=ON", path)

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: creating schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Put inserts a record. A primary-key conflict maps to
// certkit.ErrDuplicateID so callers can regenerate the id and retry.
func (s *SQLite) Put(ctx context.Context, rec *certkit.CertificateRecord) error {
	extra, err := json.Marshal(rec.AdditionalData)
	if err != nil {
		return fmt.Errorf("store: encoding additional data: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO certificates
			(cert_id, recipient_name, course_name, issue_date, signature, data_hash, additional_data, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.CertID, rec.RecipientName, rec.CourseName, rec.IssueDate,
		rec.Signature, rec.DataHash, string(extra), rec.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) &&
			(sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
				sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique) {
			return certkit.ErrDuplicateID
		}
		return fmt.Errorf("store: inserting %s: %w", rec.CertID, err)
	}
	return nil
}

// Get fetches a record by id.
func (s *SQLite) Get(ctx context.Context, certID string) (*certkit.CertificateRecord, error) {
	var (
		rec       certkit.CertificateRecord
		extra     string
		createdAt string
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT cert_id, recipient_name, course_name, issue_date, signature, data_hash, additional_data, created_at
		FROM certificates WHERE cert_id = ?`, certID,
	).Scan(&rec.CertID, &rec.RecipientName, &rec.CourseName, &rec.IssueDate,
		&rec.Signature, &rec.DataHash, &extra, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, certkit.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("store: querying %s: %w", certID, err)
	}

	if err := json.Unmarshal([]byte(extra), &rec.AdditionalData); err != nil {
		return nil, fmt.Errorf("store: decoding additional data for %s: %w", certID, err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		rec.CreatedAt = t
	}
	return &rec, nil
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	return s.db.Close()
}
