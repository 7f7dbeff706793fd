package extract

import (
	"bytes"
	"fmt"

	"github.com/ledongthuc/pdf"
)

// extractPDF collects page text in order until limit runes have been gathered.
// Pages without a content stream are skipped.
func extractPDF(content []byte, limit int) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	var b limitedBuilder
	b.limit = limit
	for n := 1; n <= r.NumPage() && !b.full(); n++ {
		p := r.Page(n)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("pdf page %d: %w", n, err)
		}
		b.line(text)
	}
	return b.String(), nil
}
