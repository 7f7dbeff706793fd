// Package storage persists corpus items.
package storage

import (
	"context"
	"errors"

	"github.com/hyperjump/imi/internal/models"
)

// ErrNotFound is returned when no item has the requested ID.
var ErrNotFound = errors.New("item not found")

// ItemStore defines item persistence operations.
type ItemStore interface {
	// PutItems inserts or replaces items by ID in one transaction.
	PutItems(ctx context.Context, items ...models.Item) error
	GetItem(ctx context.Context, id string) (models.Item, error)
	DeleteItem(ctx context.Context, id string) error
	// ListItems returns every item ordered by ID.
	ListItems(ctx context.Context) ([]models.Item, error)
	CountItems(ctx context.Context) (int64, error)
	Close() error
}
