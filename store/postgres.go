package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq" // PostgreSQL driver
)

// uniqueViolation is the Postgres SQLSTATE for a unique constraint failure.
const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            SERIAL PRIMARY KEY,
    name          VARCHAR(120) NOT NULL,
    email         VARCHAR(120) NOT NULL UNIQUE,
    password_hash VARCHAR(255) NOT NULL,
    year          VARCHAR(20),
    department    VARCHAR(120),
    bio           TEXT,
    tags          JSONB NOT NULL DEFAULT '[]',
    interests     JSONB NOT NULL DEFAULT '[]',
    personality   VARCHAR(50),
    created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const userColumns = `id, name, email, password_hash, year, department, bio, tags, interests, personality, created_at`

// Postgres is a Store on top of database/sql and lib/pq.
type Postgres struct {
	db *sql.DB
}

// Open connects to dsn and checks the connection.
func Open(ctx context.Context, dsn string) (*Postgres, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Postgres{db: db}, nil
}

// NewPostgres wraps an existing handle.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// DB exposes the underlying handle.
func (p *Postgres) DB() *sql.DB { return p.db }

// Close closes the connection pool.
func (p *Postgres) Close() error { return p.db.Close() }

// Migrate creates the users table when it does not exist yet.
func (p *Postgres) Migrate(ctx context.Context) error {
	if _, err := p.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *User) error {
	u.Email = normalizeEmail(u.Email)
	tags, err := encodeLabels(u.Tags)
	if err != nil {
		return err
	}
	interests, err := encodeLabels(u.Interests)
	if err != nil {
		return err
	}

	err = p.db.QueryRowContext(ctx, `
		INSERT INTO users (name, email, password_hash, year, department, bio, tags, interests, personality)
		VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)
		RETURNING id, created_at
	`, u.Name, u.Email, u.PasswordHash, u.Year, u.Department, u.Bio, tags, interests, u.Personality,
	).Scan(&u.ID, &u.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrEmailExists
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.Tags = nonNil(u.Tags)
	u.Interests = nonNil(u.Interests)
	return nil
}

// Seed upserts users in one transaction, keyed by email, and returns their
// ids in input order. With truncate set the table is emptied first, in the
// same transaction, so a failed seed leaves the old rows in place.
func (p *Postgres) Seed(ctx context.Context, users []User, truncate bool) ([]int, error) {
	ids := make([]int, 0, len(users))
	err := withTx(ctx, p.db, func(tx *sql.Tx) error {
		if truncate {
			if _, err := tx.ExecContext(ctx, `TRUNCATE TABLE users RESTART IDENTITY CASCADE`); err != nil {
				return fmt.Errorf("truncate users: %w", err)
			}
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO users (name, email, password_hash, year, department, bio, tags, interests, personality)
			VALUES ($1, $2, $3, $4, $5, $6, $7::jsonb, $8::jsonb, $9)
			ON CONFLICT (email) DO UPDATE SET
				name = EXCLUDED.name,
				password_hash = EXCLUDED.password_hash,
				tags = EXCLUDED.tags,
				interests = EXCLUDED.interests,
				personality = EXCLUDED.personality
			RETURNING id`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for i, u := range users {
			tags, err := encodeLabels(u.Tags)
			if err != nil {
				return err
			}
			interests, err := encodeLabels(u.Interests)
			if err != nil {
				return err
			}
			var id int
			if err := stmt.QueryRowContext(ctx, u.Name, normalizeEmail(u.Email), u.PasswordHash, u.Year, u.Department, u.Bio,
				tags, interests, u.Personality).Scan(&id); err != nil {
				return fmt.Errorf("seed user %d (%s): %w", i, u.Email, err)
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (p *Postgres) UserByID(ctx context.Context, id int) (User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return u, err
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, normalizeEmail(email))
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
	}
	return u, err
}

func (p *Postgres) UsersByIDs(ctx context.Context, ids []int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	keys := make([]int64, len(ids))
	for i, id := range ids {
		keys[i] = int64(id)
	}

	rows, err := p.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	byID := make(map[int]User, len(ids))
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		byID[u.ID] = u
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}

	out := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := byID[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (p *Postgres) ListUsersExcluding(ctx context.Context, id int) ([]User, error) {
	// ORDER BY id keeps tie-breaks in ranking deterministic.
	rows, err := p.db.QueryContext(ctx, `SELECT `+userColumns+` FROM users WHERE id <> $1 ORDER BY id ASC`, id)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return out, nil
}

func (p *Postgres) UpdateUser(ctx context.Context, id int, patch UserPatch) (User, error) {
	var updated User
	err := withTx(ctx, p.db, func(tx *sql.Tx) error {
		row := tx.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id)
		current, err := scanUser(row)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("user %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		updated = current.Apply(patch)
		tags, err := encodeLabels(updated.Tags)
		if err != nil {
			return err
		}
		interests, err := encodeLabels(updated.Interests)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			UPDATE users
			SET name = $2, year = $3, department = $4, bio = $5,
			    tags = $6::jsonb, interests = $7::jsonb, personality = $8
			WHERE id = $1
		`, id, updated.Name, updated.Year, updated.Department, updated.Bio, tags, interests, updated.Personality)
		if err != nil {
			return fmt.Errorf("update user %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return User{}, err
	}
	return updated, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(s scanner) (User, error) {
	var u User
	var tags, interests []byte
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Year, &u.Department, &u.Bio,
		&tags, &interests, &u.Personality, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, err
		}
		return User{}, fmt.Errorf("scan user: %w", err)
	}
	u.Tags = decodeLabels(tags)
	u.Interests = decodeLabels(interests)
	return u, nil
}

// encodeLabels renders labels as a JSON array string for a JSONB column.
func encodeLabels(labels []string) (string, error) {
	b, err := json.Marshal(nonNil(labels))
	if err != nil {
		return "", fmt.Errorf("encode labels: %w", err)
	}
	return string(b), nil
}

// decodeLabels tolerates NULL or malformed columns by returning an empty list.
func decodeLabels(raw []byte) []string {
	if len(raw) == 0 {
		return []string{}
	}
	var out []string
	if err := json.Unmarshal(raw, &out); err != nil {
		return []string{}
	}
	return nonNil(out)
}

// withTx runs fn in a read-committed transaction, committing on success and
// rolling back on error or panic.
func withTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}
