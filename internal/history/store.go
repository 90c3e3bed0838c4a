// ============================================================================
// Vorleser - Text-to-Speech Client
// ============================================================================
//
// Package:     history
// Description: SQLite log of finished generations
// Author:      Mike Stoffels
// Created:     2026-09-24
// License:     MIT
// ============================================================================

package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	_ "github.com/mattn/go-sqlite3"

	vorerr "github.com/msto63/vorleser/pkg/core/error"
)

// previewRunes is the length of the stored text preview
const previewRunes = 80

// Generation is one finished synthesis run
type Generation struct {
	ID        int64
	SessionID string
	CreatedAt time.Time
	Voice     string
	Rate      int
	Pitch     int
	Chunks    int
	Words     int
	Preview   string
	SavedPath string
}

// Store persists generations in SQLite
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Open opens or creates the database at path
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, vorerr.Wrap(err, "failed to create directory").WithCode(vorerr.CodeDatabaseError)
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to open database").WithCode(vorerr.CodeDatabaseError)
	}

	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, vorerr.Wrap(err, "failed to initialize schema").WithCode(vorerr.CodeDatabaseError)
	}
	return s, nil
}

// initSchema creates the necessary tables
func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS generations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL,
		voice TEXT NOT NULL,
		rate INTEGER NOT NULL DEFAULT 0,
		pitch INTEGER NOT NULL DEFAULT 0,
		chunks INTEGER NOT NULL DEFAULT 0,
		words INTEGER NOT NULL DEFAULT 0,
		preview TEXT NOT NULL DEFAULT '',
		saved_path TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_generations_created ON generations(created_at DESC);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Record inserts g and returns its id
func (s *Store) Record(ctx context.Context, g Generation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if g.CreatedAt.IsZero() {
		g.CreatedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO generations (session_id, created_at, voice, rate, pitch, chunks, words, preview, saved_path)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, g.SessionID, g.CreatedAt.UTC(), g.Voice, g.Rate, g.Pitch, g.Chunks, g.Words, Preview(g.Preview), g.SavedPath)
	if err != nil {
		return 0, vorerr.Wrap(err, "failed to record generation").WithCode(vorerr.CodeDatabaseError)
	}

	return result.LastInsertId()
}

// MarkSaved stores the export path of generation id
func (s *Store) MarkSaved(ctx context.Context, id int64, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.db.ExecContext(ctx, `UPDATE generations SET saved_path = ? WHERE id = ?`, path, id)
	if err != nil {
		return vorerr.Wrap(err, "failed to update generation").WithCode(vorerr.CodeDatabaseError)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return vorerr.Newf("generation not found: %d", id).WithCode(vorerr.CodeNotFound)
	}
	return nil
}

// List returns the newest generations first
func (s *Store) List(ctx context.Context, limit int) ([]Generation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, session_id, created_at, voice, rate, pitch, chunks, words, preview, saved_path
		FROM generations
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, vorerr.Wrap(err, "failed to list generations").WithCode(vorerr.CodeDatabaseError)
	}
	defer rows.Close()

	var out []Generation
	for rows.Next() {
		var g Generation
		if err := rows.Scan(&g.ID, &g.SessionID, &g.CreatedAt, &g.Voice, &g.Rate, &g.Pitch,
			&g.Chunks, &g.Words, &g.Preview, &g.SavedPath); err != nil {
			return nil, vorerr.Wrap(err, "failed to scan generation").WithCode(vorerr.CodeDatabaseError)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// Close closes the database
func (s *Store) Close() error {
	return s.db.Close()
}

// Preview shortens text to a single-line preview
func Preview(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	if utf8.RuneCountInString(text) <= previewRunes {
		return text
	}
	r := []rune(text)
	return string(r[:previewRunes-1]) + "…"
}
