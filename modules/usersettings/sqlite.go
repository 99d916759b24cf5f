package usersettings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kilianp07/modai/core/module"
)

// SQLiteConfig is the nested config of usersettings.sqlite.
type SQLiteConfig struct {
	// Path of the database file; ":memory:" keeps data in memory.
	Path string `json:"path"`
}

// SQLiteStore persists settings in a SQLite database, one row per user and
// module name.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite is the module constructor for usersettings.sqlite.
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
	schema := `CREATE TABLE IF NOT EXISTS user_settings (
        user_id TEXT NOT NULL,
        module_name TEXT NOT NULL,
        setting_data TEXT NOT NULL,
        created_at INTEGER NOT NULL,
        updated_at INTEGER NOT NULL,
        PRIMARY KEY (user_id, module_name)
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

type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *SQLiteStore) Settings(ctx context.Context, userID string) (Settings, error) {
	if err := validateUserID(userID); err != nil {
		return nil, err
	}
	return selectSettings(ctx, s.db, userID)
}

func selectSettings(ctx context.Context, q querier, userID string) (Settings, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT module_name, setting_data FROM user_settings WHERE user_id = ?`, userID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	out := Settings{}
	for rows.Next() {
		var name string
		var raw []byte
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, err
		}
		data, err := decode(raw)
		if err != nil {
			return nil, err
		}
		out[name] = data
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ModuleSettings(ctx context.Context, userID, moduleName string) (map[string]any, error) {
	if err := validateKey(userID, moduleName); err != nil {
		return nil, err
	}
	var raw []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT setting_data FROM user_settings WHERE user_id = ? AND module_name = ?`,
		userID, moduleName).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, err
	}
	return decode(raw)
}

func (s *SQLiteStore) UpdateSettings(ctx context.Context, userID string, settings Settings) (Settings, error) {
	if err := validateSettings(userID, settings); err != nil {
		return nil, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()
	now := s.now().UnixNano()
	for name, data := range settings {
		b, err := encode(data)
		if err != nil {
			return nil, err
		}
		if err := upsert(ctx, tx, userID, name, b, now); err != nil {
			return nil, err
		}
	}
	out, err := selectSettings(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	return out, tx.Commit()
}

func (s *SQLiteStore) UpdateModuleSettings(ctx context.Context, userID, moduleName string, data map[string]any) (map[string]any, error) {
	if err := validateKey(userID, moduleName); err != nil {
		return nil, err
	}
	b, err := encode(data)
	if err != nil {
		return nil, err
	}
	if err := upsert(ctx, s.db, userID, moduleName, b, s.now().UnixNano()); err != nil {
		return nil, err
	}
	return decode(b)
}

func upsert(ctx context.Context, q querier, userID, moduleName string, data []byte, now int64) error {
	_, err := q.ExecContext(ctx, `INSERT INTO user_settings (user_id, module_name, setting_data, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?)
        ON CONFLICT(user_id, module_name) DO UPDATE SET
            setting_data = excluded.setting_data,
            updated_at = excluded.updated_at`,
		userID, moduleName, string(data), now, now)
	if err != nil {
		return fmt.Errorf("upsert settings %s: %w", moduleName, err)
	}
	return nil
}

func (s *SQLiteStore) DeleteSettings(ctx context.Context, userID string) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM user_settings WHERE user_id = ?`, userID)
	return err
}

func (s *SQLiteStore) DeleteModuleSettings(ctx context.Context, userID, moduleName string) error {
	if err := validateKey(userID, moduleName); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM user_settings WHERE user_id = ? AND module_name = ?`, userID, moduleName)
	return err
}

func (s *SQLiteStore) HasSettings(ctx context.Context, userID string) (bool, error) {
	if err := validateUserID(userID); err != nil {
		return false, err
	}
	var n int
	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM user_settings WHERE user_id = ?`, userID).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
