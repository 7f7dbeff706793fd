package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hyperjump/imi/internal/models"
)

// SQLiteStorage implements ItemStore using SQLite.
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteStorage{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS items (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		tags TEXT,
		path TEXT NOT NULL DEFAULT '',
		metadata TEXT,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS idx_items_path ON items(path);
	`
	_, err := db.Exec(schema)
	return err
}

// PutItems upserts items in a single transaction.
func (s *SQLiteStorage) PutItems(ctx context.Context, items ...models.Item) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO items (id, title, description, tags, path, metadata, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			description = excluded.description,
			tags = excluded.tags,
			path = excluded.path,
			metadata = excluded.metadata,
			updated_at = excluded.updated_at`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, it := range items {
		if it.ID == "" {
			return fmt.Errorf("item %q has no id", it.Title)
		}
		tagsJSON, err := json.Marshal(it.Tags)
		if err != nil {
			return fmt.Errorf("failed to marshal tags: %w", err)
		}
		metadataJSON, err := json.Marshal(it.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, it.ID, it.Title, it.Description, string(tagsJSON), it.Path, string(metadataJSON), now); err != nil {
			return fmt.Errorf("failed to store item %s: %w", it.ID, err)
		}
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (models.Item, error) {
	var it models.Item
	var tagsJSON, metadataJSON sql.NullString
	if err := row.Scan(&it.ID, &it.Title, &it.Description, &tagsJSON, &it.Path, &metadataJSON); err != nil {
		return models.Item{}, err
	}
	if tagsJSON.Valid && tagsJSON.String != "" {
		if err := json.Unmarshal([]byte(tagsJSON.String), &it.Tags); err != nil {
			return models.Item{}, fmt.Errorf("failed to unmarshal tags of %s: %w", it.ID, err)
		}
	}
	if metadataJSON.Valid && metadataJSON.String != "" {
		if err := json.Unmarshal([]byte(metadataJSON.String), &it.Metadata); err != nil {
			return models.Item{}, fmt.Errorf("failed to unmarshal metadata of %s: %w", it.ID, err)
		}
	}
	return it, nil
}

// GetItem returns an item by ID.
func (s *SQLiteStorage) GetItem(ctx context.Context, id string) (models.Item, error) {
	it, err := scanItem(s.db.QueryRowContext(ctx,
		`SELECT id, title, description, tags, path, metadata FROM items WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.Item{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return it, err
}

// DeleteItem removes an item by ID. It returns ErrNotFound if no row matched.
func (s *SQLiteStorage) DeleteItem(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM items WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListItems returns all items ordered by ID.
func (s *SQLiteStorage) ListItems(ctx context.Context) ([]models.Item, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, description, tags, path, metadata FROM items ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []models.Item
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// CountItems returns the number of stored items.
func (s *SQLiteStorage) CountItems(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM items`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}
