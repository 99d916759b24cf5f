package providerstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/kilianp07/modai/core/module"
)

// SQLiteConfig is the nested config of providerstore.sqlite.
type SQLiteConfig struct {
	// Path of the database file; ":memory:" keeps data in memory.
	Path string `json:"path"`
}

// SQLiteStore persists providers in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite is the module constructor for providerstore.sqlite.
func NewSQLite(_ module.Dependencies, conf map[string]any) (module.Module, error) {
	var c SQLiteConfig
	if err := module.Decode(conf, &c); err != nil {
		return nil, err
	}
	if c.Path == "" {
		c.Path = "modai.db"
	}
	return OpenSQLiteStore(c.Path)
}

// OpenSQLiteStore opens or creates the database at path and ensures schema.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS model_providers (
        id TEXT PRIMARY KEY,
        name TEXT NOT NULL UNIQUE,
        url TEXT NOT NULL,
        properties TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        updated_at INTEGER NOT NULL
    );`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close releases the database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

const selectProvider = `SELECT id, name, url, properties, created_at, updated_at FROM model_providers`

func (s *SQLiteStore) ListProviders(ctx context.Context, limit, offset int) ([]Provider, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx, selectProvider+` ORDER BY rowid LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []Provider{}
	for rows.Next() {
		p, err := scanProvider(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, p)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) Provider(ctx context.Context, id string) (Provider, error) {
	return scanProvider(s.db.QueryRowContext(ctx, selectProvider+` WHERE id = ?`, id))
}

func (s *SQLiteStore) AddProvider(ctx context.Context, name, url string, properties map[string]any) (Provider, error) {
	name, url, err := validate(name, url)
	if err != nil {
		return Provider{}, err
	}
	props, err := encodeProperties(properties)
	if err != nil {
		return Provider{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Provider{}, err
	}
	defer func() { _ = tx.Rollback() }()
	if taken, err := nameExists(ctx, tx, name, ""); err != nil {
		return Provider{}, err
	} else if taken {
		return Provider{}, ErrNameTaken
	}
	now := s.now()
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO model_providers (id, name, url, properties, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		id, name, url, string(props), now.UnixNano(), now.UnixNano()); err != nil {
		return Provider{}, fmt.Errorf("insert provider: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return Provider{}, err
	}
	return s.Provider(ctx, id)
}

func (s *SQLiteStore) UpdateProvider(ctx context.Context, id, name, url string, properties map[string]any) (Provider, error) {
	name, url, err := validate(name, url)
	if err != nil {
		return Provider{}, err
	}
	props, err := encodeProperties(properties)
	if err != nil {
		return Provider{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Provider{}, err
	}
	defer func() { _ = tx.Rollback() }()
	if taken, err := nameExists(ctx, tx, name, id); err != nil {
		return Provider{}, err
	} else if taken {
		return Provider{}, ErrNameTaken
	}
	res, err := tx.ExecContext(ctx,
		`UPDATE model_providers SET name = ?, url = ?, properties = ?, updated_at = ? WHERE id = ?`,
		name, url, string(props), s.now().UnixNano(), id)
	if err != nil {
		return Provider{}, fmt.Errorf("update provider: %w", err)
	}
	if n, err := res.RowsAffected(); err != nil {
		return Provider{}, err
	} else if n == 0 {
		return Provider{}, ErrNotFound
	}
	if err := tx.Commit(); err != nil {
		return Provider{}, err
	}
	return s.Provider(ctx, id)
}

func (s *SQLiteStore) DeleteProvider(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM model_providers WHERE id = ?`, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProvider(row rowScanner) (Provider, error) {
	var p Provider
	var props []byte
	var created, updated int64
	err := row.Scan(&p.ID, &p.Name, &p.URL, &props, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Provider{}, ErrNotFound
	}
	if err != nil {
		return Provider{}, err
	}
	if p.Properties, err = decodeProperties(props); err != nil {
		return Provider{}, err
	}
	p.CreatedAt = time.Unix(0, created).UTC()
	p.UpdatedAt = time.Unix(0, updated).UTC()
	return p, nil
}

func nameExists(ctx context.Context, tx *sql.Tx, name, except string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM model_providers WHERE name = ? AND id != ?`, name, except).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
