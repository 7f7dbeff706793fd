package utils

import (
	"path/filepath"
	"strings"
)

// HasExtension reports whether path ends in one of extensions. Matching ignores case and
// a leading dot, so "txt" and ".TXT" are the same. An empty list matches everything.
func HasExtension(path string, extensions []string) bool {
	if len(extensions) == 0 {
		return true
	}
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	for _, e := range extensions {
		if strings.TrimPrefix(strings.ToLower(e), ".") == ext {
			return true
		}
	}
	return false
}
