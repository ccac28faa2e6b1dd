// Package tickets is a mock issue tracker backed by an in-memory SQLite database.
package tickets

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const timeFormat = time.RFC3339

// DefaultLimit caps search results when the filter sets no limit.
const DefaultLimit = 10

// ErrNotFound is returned when a ticket key does not exist.
var ErrNotFound = errors.New("ticket not found")

// Ticket is one tracker record.
type Ticket struct {
	Key         string
	Summary     string
	Description string
	Status      string
	Assignee    string
	Reporter    string
	Type        string
	Priority    string
	Labels      string
	Created     time.Time
	Updated     time.Time
}

// Filter narrows a search. Empty fields match everything. Status and priority
// match exactly, ignoring case; assignee matches a substring; topic matches
// the summary, description or labels.
type Filter struct {
	Status   string
	Assignee string
	Priority string
	Topic    string
	Limit    int
}

// Store holds tickets in SQLite.
type Store struct {
	db *sql.DB
}

// Open creates an in-memory store. With seed set it is populated with the
// sample tickets.
func Open(ctx context.Context, seed bool) (*Store, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// Every pooled connection would otherwise get its own empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	s := &Store{db: db}
	if seed {
		for _, t := range SampleTickets() {
			if err := s.Add(ctx, t); err != nil {
				db.Close()
				return nil, fmt.Errorf("seed tickets: %w", err)
			}
		}
	}
	return s, nil
}

const schema = `
CREATE TABLE tickets (
	key         TEXT PRIMARY KEY,
	summary     TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	assignee    TEXT NOT NULL DEFAULT 'Unassigned',
	reporter    TEXT NOT NULL DEFAULT '',
	issue_type  TEXT NOT NULL DEFAULT 'Task',
	priority    TEXT NOT NULL DEFAULT 'Medium',
	labels      TEXT NOT NULL DEFAULT '',
	created     TEXT NOT NULL,
	updated     TEXT NOT NULL
);
CREATE INDEX idx_tickets_created ON tickets(created DESC);
`

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Add inserts a ticket.
func (s *Store) Add(ctx context.Context, t Ticket) error {
	if strings.TrimSpace(t.Key) == "" {
		return errors.New("ticket key is required")
	}
	if t.Assignee == "" {
		t.Assignee = "Unassigned"
	}
	if t.Created.IsZero() {
		t.Created = time.Now().UTC()
	}
	if t.Updated.IsZero() {
		t.Updated = t.Created
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO tickets (key, summary, description, status, assignee, reporter, issue_type, priority, labels, created, updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.Key, t.Summary, t.Description, t.Status, t.Assignee, t.Reporter, t.Type, t.Priority, t.Labels,
		t.Created.UTC().Format(timeFormat), t.Updated.UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert ticket %s: %w", t.Key, err)
	}
	return nil
}

// Get returns a ticket by key.
func (s *Store) Get(ctx context.Context, key string) (*Ticket, error) {
	row := s.db.QueryRowContext(ctx, selectColumns+` WHERE key = ? COLLATE NOCASE`, key)
	t, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("get ticket %s: %w", key, err)
	}
	return t, nil
}

// Search returns tickets matching f, newest first.
func (s *Store) Search(ctx context.Context, f Filter) ([]Ticket, error) {
	var (
		where []string
		args  []any
	)
	if v := strings.TrimSpace(f.Status); v != "" {
		where = append(where, "status = ? COLLATE NOCASE")
		args = append(args, v)
	}
	if v := strings.TrimSpace(f.Assignee); v != "" {
		where = append(where, "assignee LIKE ?")
		args = append(args, "%"+v+"%")
	}
	if v := strings.TrimSpace(f.Priority); v != "" {
		where = append(where, "priority = ? COLLATE NOCASE")
		args = append(args, v)
	}
	if v := strings.TrimSpace(f.Topic); v != "" {
		where = append(where, "(summary LIKE ? OR description LIKE ? OR labels LIKE ?)")
		pattern := "%" + v + "%"
		args = append(args, pattern, pattern, pattern)
	}

	query := selectColumns
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	query += " ORDER BY created DESC, key LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("search tickets: %w", err)
	}
	defer rows.Close()

	var out []Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tickets: %w", err)
	}
	return out, nil
}

const selectColumns = `SELECT key, summary, description, status, assignee, reporter, issue_type, priority, labels, created, updated FROM tickets`

type scanner interface {
	Scan(dest ...any) error
}

func scanTicket(s scanner) (*Ticket, error) {
	var (
		t                Ticket
		created, updated string
	)
	if err := s.Scan(&t.Key, &t.Summary, &t.Description, &t.Status, &t.Assignee, &t.Reporter, &t.Type, &t.Priority, &t.Labels, &created, &updated); err != nil {
		return nil, err
	}
	var err error
	if t.Created, err = time.Parse(timeFormat, created); err != nil {
		return nil, fmt.Errorf("parse created: %w", err)
	}
	if t.Updated, err = time.Parse(timeFormat, updated); err != nil {
		return nil, fmt.Errorf("parse updated: %w", err)
	}
	return &t, nil
}
