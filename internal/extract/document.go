package extract

import (
	"fmt"

	"github.com/lu4p/cat"
)

// extractDocument reads OpenDocument text and RTF files.
func extractDocument(path string) (string, error) {
	text, err := cat.File(path)
	if err != nil {
		return "", fmt.Errorf("extract document: %w", err)
	}
	return text, nil
}
