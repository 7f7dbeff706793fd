// Package fileid derives stable item IDs from file locations.
package fileid

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
)

const prefix = "file:"

// ForPath returns a stable item ID for path inside root. The ID depends only on the
// slash-separated path relative to root, so moving the whole corpus keeps its IDs.
// If path is not under root the cleaned absolute path is hashed instead.
func ForPath(root, path string) string {
	key := filepath.Clean(path)
	if rel, err := filepath.Rel(filepath.Clean(root), key); err == nil && rel != ".." && !hasParentPrefix(rel) {
		key = filepath.ToSlash(rel)
	}
	sum := sha256.Sum256([]byte(key))
	return prefix + hex.EncodeToString(sum[:16])
}

func hasParentPrefix(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
