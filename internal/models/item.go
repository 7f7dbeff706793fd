// Package models defines the searchable item and the search request/response shapes.
package models

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Item is one searchable entry of the corpus.
type Item struct {
	ID          string            `json:"id" yaml:"id" db:"id"`
	Title       string            `json:"title" yaml:"title" db:"title"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty" db:"description"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty" db:"tags"`
	Path        string            `json:"path,omitempty" yaml:"path,omitempty" db:"path"`
	Metadata    map[string]string `json:"metadata,omitempty" yaml:"metadata,omitempty" db:"metadata"`
}

// Text returns the text that represents the item for embedding: title, description and
// tags, one per line, skipping empty parts.
func (it Item) Text() string {
	parts := make([]string, 0, 3)
	if s := strings.TrimSpace(it.Title); s != "" {
		parts = append(parts, s)
	}
	if s := strings.TrimSpace(it.Description); s != "" {
		parts = append(parts, s)
	}
	if len(it.Tags) > 0 {
		parts = append(parts, strings.Join(it.Tags, " "))
	}
	return strings.Join(parts, "\n")
}

// ItemKey identifies an item's embedding: its ID plus a digest of its text, so an
// item whose text changes under the same ID never reuses the old vector.
func ItemKey(it Item) string {
	sum := sha256.Sum256([]byte(it.Text()))
	return it.ID + "@" + hex.EncodeToString(sum[:8])
}

// ItemText is Item.Text as a plain function.
func ItemText(it Item) string {
	return it.Text()
}
