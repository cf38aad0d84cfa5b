package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"budgeting/internal/core"
	applog "budgeting/internal/log"
)

type SQLiteRepository struct {
	db     *sql.DB
	logger *applog.Logger
}

var _ Repository = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *applog.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = applog.Discard()
	}
	logger = logger.WithComponent(applog.ComponentStorage)

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; serialize on a single connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	version, err := RunMigrations(dbPath)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	logger.Info("SQLite store ready", "db_path", dbPath, "schema_version", version)

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const selectItems = `
SELECT id, name, value, tags
FROM line_items
WHERE user_id = ? AND month = ? AND category = ?`

func (r *SQLiteRepository) List(ctx context.Context, scope core.Scope) ([]core.LineItem, error) {
	rows, err := r.db.QueryContext(ctx, selectItems+` ORDER BY position`,
		scope.UserID, string(scope.Month), string(scope.Category))
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var out []core.LineItem
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it.InScope(scope))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	if out == nil {
		out = []core.LineItem{}
	}
	return out, nil
}

func (r *SQLiteRepository) Upsert(ctx context.Context, scope core.Scope, item core.LineItem) (core.LineItem, error) {
	item, err := normalize(scope, item)
	if err != nil {
		return core.LineItem{}, err
	}
	id, err := upsert(ctx, r.db, scope, item)
	if err != nil {
		return core.LineItem{}, err
	}
	item.ID = id
	return item, nil
}

func (r *SQLiteRepository) UpsertMany(ctx context.Context, scope core.Scope, items []core.LineItem) error {
	normalized := make([]core.LineItem, len(items))
	for i, it := range items {
		n, err := normalize(scope, it)
		if err != nil {
			return err
		}
		normalized[i] = n
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, it := range normalized {
		if _, err := upsert(ctx, tx, scope, it); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit bulk upsert: %w", err)
	}
	r.logger.DebugContext(ctx, "Bulk upsert committed",
		applog.NewFields().WithScope(scope).WithCount(len(items)).ToSlice()...)
	return nil
}

func (r *SQLiteRepository) Update(ctx context.Context, scope core.Scope, key string, patch core.Patch) (core.LineItem, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := lookup(ctx, tx, scope, key)
	if err != nil {
		return core.LineItem{}, err
	}
	updated := patch.Apply(cur)
	if updated.Tags == nil {
		updated.Tags = []string{}
	}
	tags, err := json.Marshal(updated.Tags)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("encode tags: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE line_items SET value = ?, tags = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		updated.Value, string(tags), updated.ID)
	if err != nil {
		return core.LineItem{}, fmt.Errorf("update item: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return core.LineItem{}, fmt.Errorf("commit update: %w", err)
	}
	return updated, nil
}

func (r *SQLiteRepository) Delete(ctx context.Context, scope core.Scope, key string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	cur, err := lookup(ctx, tx, scope, key)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM line_items WHERE id = ?`, cur.ID); err != nil {
		return fmt.Errorf("delete item: %w", err)
	}
	return tx.Commit()
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// upsert writes item by name. New rows get a fresh id and the next position
// in the scope; existing rows keep both.
func upsert(ctx context.Context, q execQuerier, scope core.Scope, item core.LineItem) (string, error) {
	tags, err := json.Marshal(item.Tags)
	if err != nil {
		return "", fmt.Errorf("encode tags: %w", err)
	}
	var id string
	err = q.QueryRowContext(ctx, `
INSERT INTO line_items (id, user_id, month, category, name, value, tags, position)
VALUES (?, ?, ?, ?, ?, ?, ?,
    (SELECT COALESCE(MAX(position), 0) + 1 FROM line_items WHERE user_id = ? AND month = ? AND category = ?))
ON CONFLICT (user_id, month, category, name) DO UPDATE SET
    value = excluded.value,
    tags = excluded.tags,
    updated_at = CURRENT_TIMESTAMP
RETURNING id`,
		uuid.NewString(), scope.UserID, string(scope.Month), string(scope.Category),
		item.Name, item.Value, string(tags),
		scope.UserID, string(scope.Month), string(scope.Category),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("upsert item %q: %w", item.Name, err)
	}
	return id, nil
}

// lookup finds the row addressed by key, preferring an id match.
func lookup(ctx context.Context, q execQuerier, scope core.Scope, key string) (core.LineItem, error) {
	row := q.QueryRowContext(ctx, selectItems+` AND (id = ? OR name = ?) ORDER BY (id = ?) DESC LIMIT 1`,
		scope.UserID, string(scope.Month), string(scope.Category), key, key, key)
	it, err := scanItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.LineItem{}, ErrNotFound
	}
	if err != nil {
		return core.LineItem{}, err
	}
	return it.InScope(scope), nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanItem(s scanner) (core.LineItem, error) {
	var (
		it   core.LineItem
		tags string
	)
	if err := s.Scan(&it.ID, &it.Name, &it.Value, &tags); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.LineItem{}, err
		}
		return core.LineItem{}, fmt.Errorf("scan item: %w", err)
	}
	it.Tags = []string{}
	if err := json.Unmarshal([]byte(tags), &it.Tags); err != nil {
		return core.LineItem{}, fmt.Errorf("decode tags of %q: %w", it.Name, err)
	}
	it.Value = core.CoerceFloat(it.Value)
	return it, nil
}
