package extract

import (
	"strings"
	"unicode/utf8"
)

// limitedBuilder accumulates non-blank lines until it holds limit runes.
type limitedBuilder struct {
	strings.Builder
	limit int
	runes int
}

func (b *limitedBuilder) line(s string) {
	s = strings.TrimSpace(s)
	if s == "" || b.full() {
		return
	}
	if b.Len() > 0 {
		b.WriteByte('\n')
		b.runes++
	}
	b.WriteString(s)
	b.runes += utf8.RuneCountInString(s)
}

func (b *limitedBuilder) full() bool {
	return b.limit > 0 && b.runes >= b.limit
}
