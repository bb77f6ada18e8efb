package server

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/existflow/ironhabit/internal/model"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrDocumentNotFound = errors.New("document not found")
)

// Document is one stored document of a user's collection.
type Document struct {
	ID        string
	Data      string
	Sealed    bool
	Seq       int64
	UpdatedAt time.Time
}

// DocumentStore persists anonymous users, their sessions and their
// per-collection documents.
type DocumentStore interface {
	CreateAnonymousUser(ctx context.Context) (model.Session, error)
	GetSession(ctx context.Context, token string) (model.Session, error)
	UpsertDocument(ctx context.Context, userID, collection string, doc Document) error
	ListDocuments(ctx context.Context, userID, collection string) ([]Document, error)
	DeleteDocument(ctx context.Context, userID, collection, docID string) error
	Ping(ctx context.Context) error
	Close() error
}

// SQLStore implements DocumentStore on Postgres or SQLite.
type SQLStore struct {
	db       *sql.DB
	postgres bool
}

// OpenStore opens the database named by dbURL. postgres:// and
// postgresql:// URLs use lib/pq; sqlite://<path> (or sqlite://:memory:)
// uses the embedded SQLite driver.
func OpenStore(dbURL string) (*SQLStore, error) {
	var (
		driver, dsn string
		postgres    bool
	)
	switch {
	case strings.HasPrefix(dbURL, "postgres://"), strings.HasPrefix(dbURL, "postgresql://"):
		driver, dsn, postgres = "postgres", dbURL, true
	case strings.HasPrefix(dbURL, "sqlite://"):
		driver, dsn = "sqlite", strings.TrimPrefix(dbURL, "sqlite://")
	default:
		return nil, fmt.Errorf("unsupported database url %q", dbURL)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, err
	}
	if !postgres {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLStore{db: db, postgres: postgres}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// rebind rewrites ? placeholders as $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Ping checks the database connection.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// CreateAnonymousUser creates a user with no credentials and a session for it.
func (s *SQLStore) CreateAnonymousUser(ctx context.Context) (model.Session, error) {
	token, err := generateToken()
	if err != nil {
		return model.Session{}, err
	}

	now := time.Now().UTC()
	session := model.Session{
		UserID:    uuid.NewString(),
		Token:     token,
		CreatedAt: now,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Session{}, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO users (id, anonymous, created_at) VALUES (?, ?, ?)`),
		session.UserID, true, now.Format(time.RFC3339Nano),
	); err != nil {
		return model.Session{}, fmt.Errorf("insert user: %w", err)
	}

	if _, err := tx.ExecContext(ctx, s.rebind(`
		INSERT INTO sessions (token, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)`),
		session.Token, session.UserID, "", now.Format(time.RFC3339Nano),
	); err != nil {
		return model.Session{}, fmt.Errorf("insert session: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.Session{}, err
	}
	return session, nil
}

// GetSession looks up a bearer token.
func (s *SQLStore) GetSession(ctx context.Context, token string) (model.Session, error) {
	var expiresAt, createdAt string
	session := model.Session{Token: token}

	err := s.db.QueryRowContext(ctx, s.rebind(`
		SELECT user_id, expires_at, created_at FROM sessions WHERE token = ?`),
		token,
	).Scan(&session.UserID, &expiresAt, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Session{}, ErrSessionNotFound
	}
	if err != nil {
		return model.Session{}, err
	}

	session.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	if expiresAt != "" {
		session.ExpiresAt, _ = time.Parse(time.RFC3339Nano, expiresAt)
	}
	return session, nil
}

// UpsertDocument replaces the document doc.ID of the collection. The
// document moves to the end of the collection order.
func (s *SQLStore) UpsertDocument(ctx context.Context, userID, collection string, doc Document) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.ExecContext(ctx, s.rebind(`
		INSERT INTO documents (user_id, collection, doc_id, data, sealed, seq, updated_at)
		VALUES (?, ?, ?, ?, ?,
			(SELECT COALESCE(MAX(seq), 0) + 1 FROM documents WHERE user_id = ? AND collection = ?), ?)
		ON CONFLICT (user_id, collection, doc_id) DO UPDATE SET
			data = excluded.data,
			sealed = excluded.sealed,
			seq = excluded.seq,
			updated_at = excluded.updated_at`),
		userID, collection, doc.ID, doc.Data, doc.Sealed,
		userID, collection, now,
	)
	if err != nil {
		return fmt.Errorf("upsert document: %w", err)
	}
	return nil
}

// ListDocuments returns the collection in upsert order.
func (s *SQLStore) ListDocuments(ctx context.Context, userID, collection string) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT doc_id, data, sealed, seq, updated_at
		FROM documents
		WHERE user_id = ? AND collection = ?
		ORDER BY seq ASC, doc_id ASC`),
		userID, collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var (
			doc       Document
			updatedAt string
		)
		if err := rows.Scan(&doc.ID, &doc.Data, &doc.Sealed, &doc.Seq, &updatedAt); err != nil {
			return nil, err
		}
		doc.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// DeleteDocument removes one document.
func (s *SQLStore) DeleteDocument(ctx context.Context, userID, collection, docID string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`
		DELETE FROM documents WHERE user_id = ? AND collection = ? AND doc_id = ?`),
		userID, collection, docID,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDocumentNotFound
	}
	return nil
}

func generateToken() (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(tokenBytes), nil
}
