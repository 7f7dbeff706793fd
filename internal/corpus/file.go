package corpus

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/hyperjump/imi/internal/models"
	"gopkg.in/yaml.v3"
)

// itemNamespace scopes the name-based UUIDs given to items that have no ID.
var itemNamespace = uuid.MustParse("6f1c5a0e-3f7b-4d2a-9b8e-2c4d5e6f7a8b")

// FileLoader reads a list of items from a YAML or JSON file (chosen by extension).
type FileLoader struct {
	Path string
}

// Load parses the file. Items without an ID get a name-based UUID derived from their
// title and description, so the ID is stable across reloads.
func (l FileLoader) Load(ctx context.Context) ([]models.Item, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(l.Path)
	if err != nil {
		return nil, fmt.Errorf("read corpus file: %w", err)
	}
	items, err := ParseItems(data, filepath.Ext(l.Path))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", l.Path, err)
	}
	return items, nil
}

// ParseItems decodes a JSON (ext ".json") or YAML item list and fills in missing IDs.
func ParseItems(data []byte, ext string) ([]models.Item, error) {
	var items []models.Item
	if strings.EqualFold(ext, ".json") {
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, err
		}
	} else if err := yaml.Unmarshal(data, &items); err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == "" {
			items[i].ID = DeriveID(items[i])
		}
	}
	return items, nil
}

// DeriveID returns a deterministic UUID for an item from its title and description.
func DeriveID(it models.Item) string {
	return uuid.NewSHA1(itemNamespace, []byte(it.Title+"\x00"+it.Description)).String()
}
