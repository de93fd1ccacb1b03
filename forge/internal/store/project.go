package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hazyhaar/locforge/dbopen"
	"github.com/hazyhaar/locforge/locator"
)

var (
	// ErrVersionConflict is returned by Update when the stored version differs
	// from the caller's.
	ErrVersionConflict = errors.New("store: version conflict")
	// ErrNotFound is returned by Update for an unknown id.
	ErrNotFound = errors.New("store: not found")
)

// Config is the target of code generation for a project.
type Config struct {
	BaseURL   string `json:"base_url"`
	Language  string `json:"language"`  // "go"
	Framework string `json:"framework"` // "playwright"
	Package   string `json:"package,omitempty"`
}

// Source is the HTML a page was inferred from, kept for documentation.
type Source struct {
	Page string `json:"page"`
	URL  string `json:"url"`
	HTML string `json:"html,omitempty"`
}

// Project is a saved framework: the pages and tests inferred from one or
// more URLs plus the code generation config.
type Project struct {
	ID        string                   `json:"id"`
	Name      string                   `json:"name"`
	Version   int                      `json:"version"`
	Config    Config                   `json:"config"`
	Pages     []locator.PageDefinition `json:"pages"`
	Tests     []locator.TestCase       `json:"tests"`
	Sources   []Source                 `json:"sources,omitempty"`
	CreatedAt int64                    `json:"created_at"`
	UpdatedAt int64                    `json:"updated_at"`
}

const projectColumns = `id, name, version, config, pages, tests, sources, created_at, updated_at`

// Insert stores a new project. The caller supplies the id; version and
// timestamps are assigned here.
func (s *Store) Insert(ctx context.Context, p *Project) error {
	cfg, pages, tests, sources, err := encode(p)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	p.Version = 1
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err = dbopen.Exec(ctx, s.DB, `
		INSERT INTO frameworks (`+projectColumns+`)
		VALUES (?,?,?,?,?,?,?,?,?)`,
		p.ID, p.Name, p.Version, cfg, pages, tests, sources, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("store: insert %s: %w", p.ID, err)
	}
	return nil
}

// Get retrieves a project by id. Returns (nil, nil) when absent.
func (s *Store) Get(ctx context.Context, id string) (*Project, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM frameworks WHERE id = ?`, id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// GetByName retrieves a project by its unique name. Returns (nil, nil) when
// absent.
func (s *Store) GetByName(ctx context.Context, name string) (*Project, error) {
	row := s.DB.QueryRowContext(ctx, `SELECT `+projectColumns+` FROM frameworks WHERE name = ?`, name)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

// List returns all projects, most recently updated first.
func (s *Store) List(ctx context.Context) ([]*Project, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+projectColumns+` FROM frameworks ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Project
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Update replaces a project's content. p.Version must equal the stored
// version; on success it is incremented and UpdatedAt refreshed.
func (s *Store) Update(ctx context.Context, p *Project) error {
	cfg, pages, tests, sources, err := encode(p)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()
	return dbopen.RunTx(ctx, s.DB, func(tx *sql.Tx) error {
		var current int
		err := tx.QueryRowContext(ctx, `SELECT version FROM frameworks WHERE id = ?`, p.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if current != p.Version {
			return fmt.Errorf("%w: have %d, stored %d", ErrVersionConflict, p.Version, current)
		}
		_, err = tx.ExecContext(ctx, `
			UPDATE frameworks SET name = ?, version = ?, config = ?, pages = ?, tests = ?,
			       sources = ?, updated_at = ?
			WHERE id = ?`,
			p.Name, current+1, cfg, pages, tests, sources, now, p.ID,
		)
		if err != nil {
			return fmt.Errorf("store: update %s: %w", p.ID, err)
		}
		p.Version = current + 1
		p.UpdatedAt = now
		return nil
	})
}

// Delete removes a project. Reports whether a row was deleted.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	res, err := dbopen.Exec(ctx, s.DB, `DELETE FROM frameworks WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	return n > 0, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProject(sc scanner) (*Project, error) {
	p := &Project{}
	var cfg, pages, tests, sources string
	if err := sc.Scan(&p.ID, &p.Name, &p.Version, &cfg, &pages, &tests, &sources, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		raw string
		dst any
	}{
		{cfg, &p.Config},
		{pages, &p.Pages},
		{tests, &p.Tests},
		{sources, &p.Sources},
	} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("store: decode %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func encode(p *Project) (cfg, pages, tests, sources string, err error) {
	parts := make([]string, 4)
	for i, v := range []any{p.Config, nonNil(p.Pages), nonNil(p.Tests), nonNil(p.Sources)} {
		b, err := json.Marshal(v)
		if err != nil {
			return "", "", "", "", fmt.Errorf("store: encode %s: %w", p.ID, err)
		}
		parts[i] = string(b)
	}
	return parts[0], parts[1], parts[2], parts[3], nil
}

// nonNil keeps nil slices encoded as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
