// Package catalog keeps a local SQLite index of analyses and the raw URLs
// the listing system resolves for them.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"time"

	_ "modernc.org/sqlite"

	"tracekit/internal/manifest"
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("catalog: analysis not found")

// ErrNoID is returned when a manifest has no analysis.id to key the entry.
var ErrNoID = errors.New("catalog: manifest has no analysis.id")

// Entry is one indexed analysis.
type Entry struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Subtitle     string    `json:"subtitle,omitempty"`
	Author       string    `json:"author,omitempty"`
	Networks     []string  `json:"networks"`
	RangeStart   string    `json:"range_start,omitempty"`
	RangeEnd     string    `json:"range_end,omitempty"`
	AnalysisDate string    `json:"analysis_date,omitempty"`
	DataSource   string    `json:"data_source,omitempty"`
	RawURL       string    `json:"raw_url,omitempty"`
	Root         string    `json:"root"`
	Status       string    `json:"status,omitempty"`
	Errors       int       `json:"errors"`
	Warnings     int       `json:"warnings"`
	IndexedAt    time.Time `json:"indexed_at"`
}

// ListOptions filter List.
type ListOptions struct {
	// Network keeps only analyses covering this network.
	Network string
}

// Store persists entries.
type Store interface {
	Upsert(ctx context.Context, e Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, opts ListOptions) ([]Entry, error)
	Close() error
}

// FromManifest builds an entry for the analysis at root. RawURL is left
// empty when the manifest lacks the fields to build it.
func FromManifest(m *manifest.Manifest, root string) (Entry, error) {
	if m.Analysis == nil || m.Analysis.ID == "" {
		return Entry{}, ErrNoID
	}
	e := Entry{
		ID:       m.Analysis.ID,
		Title:    m.Analysis.Title,
		Subtitle: m.Analysis.Subtitle,
		Root:     root,
		Networks: []string{},
	}
	if md := m.Metadata; md != nil {
		e.Author = md.Author
		e.Networks = append(e.Networks, md.Networks...)
		e.RangeStart = md.TimestampRange.Start
		e.RangeEnd = md.TimestampRange.End
		e.AnalysisDate = md.AnalysisDate
		e.DataSource = md.DataSource
	}
	if u, err := m.RawURL(); err == nil {
		e.RawURL = u
	}
	return e, nil
}

// SQLStore implements Store with SQLite.
type SQLStore struct {
	db *sql.DB
}

var _ Store = (*SQLStore)(nil)

// Open opens or creates the catalog at path and runs migrations. The parent
// directory is created if needed. ":memory:" opens a private in-memory DB.
func Open(path string) (*SQLStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create catalog dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes writers.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	s := &SQLStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	var tables int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tables)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tables == 0 {
		if _, err := s.db.Exec(schemaV1); err != nil {
			return fmt.Errorf("create schema: %w", err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_version(version) VALUES(?)", currentSchemaVersion); err != nil {
			return fmt.Errorf("set schema version: %w", err)
		}
		return nil
	}

	var v int
	if err := s.db.QueryRow("SELECT version FROM schema_version LIMIT 1").Scan(&v); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if v != currentSchemaVersion {
		return fmt.Errorf("unknown catalog schema version %d", v)
	}
	return nil
}

// Close closes the database.
func (s *SQLStore) Close() error { return s.db.Close() }

// Upsert inserts e or replaces the entry with the same id.
func (s *SQLStore) Upsert(ctx context.Context, e Entry) error {
	if e.ID == "" {
		return ErrNoID
	}
	if e.IndexedAt.IsZero() {
		e.IndexedAt = time.Now()
	}
	networks, err := json.Marshal(nonNil(e.Networks))
	if err != nil {
		return fmt.Errorf("encode networks: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO analyses (id, title, subtitle, author, networks, range_start, range_end,
			analysis_date, data_source, raw_url, root, status, errors, warnings, indexed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, subtitle=excluded.subtitle, author=excluded.author,
			networks=excluded.networks, range_start=excluded.range_start, range_end=excluded.range_end,
			analysis_date=excluded.analysis_date, data_source=excluded.data_source,
			raw_url=excluded.raw_url, root=excluded.root, status=excluded.status,
			errors=excluded.errors, warnings=excluded.warnings, indexed_at=excluded.indexed_at`,
		e.ID, e.Title, e.Subtitle, e.Author, string(networks), e.RangeStart, e.RangeEnd,
		e.AnalysisDate, e.DataSource, e.RawURL, e.Root, e.Status, e.Errors, e.Warnings,
		e.IndexedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert analysis %s: %w", e.ID, err)
	}
	return nil
}

const selectColumns = `SELECT id, title, subtitle, author, networks, range_start, range_end,
	analysis_date, data_source, raw_url, root, status, errors, warnings, indexed_at FROM analyses`

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc scanner) (Entry, error) {
	var e Entry
	var subtitle, author, start, end, date, src, raw, status sql.NullString
	var networks, indexedAt string
	if err := sc.Scan(&e.ID, &e.Title, &subtitle, &author, &networks, &start, &end,
		&date, &src, &raw, &e.Root, &status, &e.Errors, &e.Warnings, &indexedAt); err != nil {
		return Entry{}, err
	}
	e.Subtitle, e.Author = subtitle.String, author.String
	e.RangeStart, e.RangeEnd, e.AnalysisDate = start.String, end.String, date.String
	e.DataSource, e.RawURL, e.Status = src.String, raw.String, status.String
	if err := json.Unmarshal([]byte(networks), &e.Networks); err != nil {
		return Entry{}, fmt.Errorf("decode networks of %s: %w", e.ID, err)
	}
	e.Networks = nonNil(e.Networks)
	t, err := time.Parse(time.RFC3339, indexedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("decode indexed_at of %s: %w", e.ID, err)
	}
	e.IndexedAt = t
	return e, nil
}

// Get returns the entry with id, or ErrNotFound.
func (s *SQLStore) Get(ctx context.Context, id string) (*Entry, error) {
	e, err := scanEntry(s.db.QueryRowContext(ctx, selectColumns+" WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get analysis %s: %w", id, err)
	}
	return &e, nil
}

// List returns entries, newest analysis first.
func (s *SQLStore) List(ctx context.Context, opts ListOptions) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, selectColumns+" ORDER BY analysis_date DESC, id")
	if err != nil {
		return nil, fmt.Errorf("list analyses: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("list analyses: %w", err)
		}
		if opts.Network != "" && !slices.Contains(e.Networks, opts.Network) {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
