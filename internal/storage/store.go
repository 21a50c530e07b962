// Package storage keeps the last scene of each room in a local SQLite file
// so a board can be reopened offline.
//
// Saved elements are stripped of version fields. Loading re-seeds them
// through state.Restore, so a loaded scene always starts a fresh version
// history.
package storage

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang/glog"
	_ "github.com/mattn/go-sqlite3"

	"LocalBoard/internal/state"
)

//go:embed schema.sql
var schemaSQL string

var ErrNoSnapshot = errors.New("no saved scene")

type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to execute schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

// Save replaces the stored scene of room. Deleted elements are not kept.
func (s *Store) Save(ctx context.Context, room string, elements []state.Element) error {
	out := make([]state.Element, 0, len(elements))
	for _, el := range elements {
		if el.IsDeleted {
			continue
		}
		out = append(out, el.Stripped())
	}
	data, err := json.Marshal(out)
	if err != nil {
		return fmt.Errorf("encode scene: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO scenes (room_id, elements, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET elements = excluded.elements, updated_at = excluded.updated_at`,
		room, string(data), time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("save scene %s: %w", room, err)
	}
	glog.V(1).Infof("[Storage] saved %d elements for %s", len(out), room)
	return nil
}

// Load returns the stored scene of room with fresh versions.
func (s *Store) Load(ctx context.Context, room string) ([]state.Element, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT elements FROM scenes WHERE room_id = ?`, room).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w for room %s", ErrNoSnapshot, room)
	}
	if err != nil {
		return nil, fmt.Errorf("load scene %s: %w", room, err)
	}
	var elements []state.Element
	if err := json.Unmarshal([]byte(data), &elements); err != nil {
		return nil, fmt.Errorf("decode scene %s: %w", room, err)
	}
	return state.Restore(elements), nil
}

// Saved describes one stored room.
type Saved struct {
	Room      string
	UpdatedAt time.Time
}

// Rooms lists the stored rooms, most recently saved first.
func (s *Store) Rooms(ctx context.Context) ([]Saved, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT room_id, updated_at FROM scenes ORDER BY updated_at DESC, room_id`)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	defer rows.Close()

	var out []Saved
	for rows.Next() {
		var (
			room string
			ms   int64
		)
		if err := rows.Scan(&room, &ms); err != nil {
			return nil, err
		}
		out = append(out, Saved{Room: room, UpdatedAt: time.UnixMilli(ms)})
	}
	return out, rows.Err()
}

func (s *Store) Delete(ctx context.Context, room string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM scenes WHERE room_id = ?`, room)
	if err != nil {
		return fmt.Errorf("delete scene %s: %w", room, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w for room %s", ErrNoSnapshot, room)
	}
	return nil
}
