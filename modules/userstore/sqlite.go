package userstore

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

// SQLiteConfig is the nested config of userstore.sqlite.
type SQLiteConfig struct {
	// Path of the database file; ":memory:" keeps data in memory.
	Path string `json:"path"`
}

// SQLiteStore persists users in a SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite is the module constructor for userstore.sqlite.
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
	// a single connection keeps ":memory:" databases shared and serializes writes
	db.SetMaxOpenConns(1)
	schema := `CREATE TABLE IF NOT EXISTS users (
        id TEXT PRIMARY KEY,
        email TEXT NOT NULL UNIQUE,
        full_name TEXT NOT NULL DEFAULT '',
        created_at INTEGER NOT NULL,
        updated_at INTEGER NOT NULL
    );
    CREATE TABLE IF NOT EXISTS user_credentials (
        user_id TEXT PRIMARY KEY,
        password_hash TEXT NOT NULL,
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

func (s *SQLiteStore) CreateUser(ctx context.Context, email, fullName string) (User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return User{}, err
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback() }()
	if taken, err := emailExists(ctx, tx, email); err != nil {
		return User{}, err
	} else if taken {
		return User{}, ErrEmailTaken
	}
	now := s.now()
	u := User{ID: uuid.NewString(), Email: email, FullName: fullName, CreatedAt: now, UpdatedAt: now}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO users (id, email, full_name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.FullName, now.UnixNano(), now.UnixNano()); err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}
	return u, tx.Commit()
}

func (s *SQLiteStore) UserByID(ctx context.Context, id string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) UserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM users WHERE email = ?`, email))
}

func (s *SQLiteStore) ListUsers(ctx context.Context, limit, offset int) ([]User, error) {
	if limit <= 0 {
		limit = -1
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM users ORDER BY rowid LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	res := []User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, u)
	}
	return res, rows.Err()
}

func (s *SQLiteStore) UpdateUser(ctx context.Context, id string, upd UserUpdate) (User, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return User{}, err
	}
	defer func() { _ = tx.Rollback() }()
	u, err := scanUser(tx.QueryRowContext(ctx,
		`SELECT id, email, full_name, created_at, updated_at FROM users WHERE id = ?`, id))
	if err != nil {
		return User{}, err
	}
	if upd.Email != nil {
		email, err := normalizeEmail(*upd.Email)
		if err != nil {
			return User{}, err
		}
		if email != u.Email {
			if taken, err := emailExists(ctx, tx, email); err != nil {
				return User{}, err
			} else if taken {
				return User{}, ErrEmailTaken
			}
		}
		u.Email = email
	}
	if upd.FullName != nil {
		u.FullName = *upd.FullName
	}
	u.UpdatedAt = s.now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET email = ?, full_name = ?, updated_at = ? WHERE id = ?`,
		u.Email, u.FullName, u.UpdatedAt.UnixNano(), id); err != nil {
		return User{}, fmt.Errorf("update user: %w", err)
	}
	return u, tx.Commit()
}

func (s *SQLiteStore) DeleteUser(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_credentials WHERE user_id = ?`, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) SetPassword(ctx context.Context, userID, passwordHash string) error {
	if _, err := s.UserByID(ctx, userID); err != nil {
		return err
	}
	now := s.now().UnixNano()
	_, err := s.db.ExecContext(ctx, `INSERT INTO user_credentials (user_id, password_hash, created_at, updated_at)
        VALUES (?, ?, ?, ?)
        ON CONFLICT(user_id) DO UPDATE SET
            password_hash = excluded.password_hash,
            updated_at = excluded.updated_at`,
		userID, passwordHash, now, now)
	return err
}

func (s *SQLiteStore) Credentials(ctx context.Context, userID string) (Credentials, error) {
	var c Credentials
	var created, updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT user_id, password_hash, created_at, updated_at FROM user_credentials WHERE user_id = ?`, userID).
		Scan(&c.UserID, &c.PasswordHash, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Credentials{}, ErrNotFound
	}
	if err != nil {
		return Credentials{}, err
	}
	c.CreatedAt = time.Unix(0, created).UTC()
	c.UpdatedAt = time.Unix(0, updated).UTC()
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	var created, updated int64
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, ErrNotFound
	}
	if err != nil {
		return User{}, err
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	u.UpdatedAt = time.Unix(0, updated).UTC()
	return u, nil
}

func emailExists(ctx context.Context, tx *sql.Tx, email string) (bool, error) {
	var n int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM users WHERE email = ?`, email).Scan(&n); err != nil {
		return false, err
	}
	return n > 0, nil
}
