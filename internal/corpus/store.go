package corpus

import (
	"context"

	"github.com/hyperjump/imi/internal/models"
	"github.com/hyperjump/imi/internal/storage"
)

// StoreLoader reads every item from an item store.
type StoreLoader struct {
	Store storage.ItemStore
}

// Load lists the store's items.
func (l StoreLoader) Load(ctx context.Context) ([]models.Item, error) {
	return l.Store.ListItems(ctx)
}
