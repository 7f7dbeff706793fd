package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// xmlText says which elements of an XML document part carry readable text. Element names
// are matched on their local part, so the namespace prefix does not matter.
type xmlText struct {
	// text elements contribute their character data, including nested elements.
	text map[string]bool
	// line elements end a line of output when they close.
	line map[string]bool
	// space elements stand for whitespace (tabs, breaks, repeated spaces).
	space map[string]bool
}

func names(ss ...string) map[string]bool {
	m := make(map[string]bool, len(ss))
	for _, s := range ss {
		m[s] = true
	}
	return m
}

func openPackage(content []byte) (*zip.Reader, error) {
	zr, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("not a zip package: %w", err)
	}
	return zr, nil
}

func findPart(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// extractParts streams the text of each part in order until limit runes are collected.
func extractParts(parts []*zip.File, spec xmlText, limit int) (string, error) {
	var b limitedBuilder
	b.limit = limit
	for _, f := range parts {
		if b.full() {
			break
		}
		rc, err := f.Open()
		if err != nil {
			return "", fmt.Errorf("open %s: %w", f.Name, err)
		}
		err = readXMLText(rc, spec, &b)
		rc.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", f.Name, err)
		}
	}
	return b.String(), nil
}

func readXMLText(r io.Reader, spec xmlText, b *limitedBuilder) error {
	dec := xml.NewDecoder(r)
	var cur strings.Builder
	depth := 0
	for !b.full() {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return err
		}
		switch t := tok.(type) {
		case xml.StartElement:
			if spec.text[t.Name.Local] {
				depth++
			} else if spec.space[t.Name.Local] {
				cur.WriteByte(' ')
			}
		case xml.EndElement:
			if spec.text[t.Name.Local] && depth > 0 {
				depth--
			}
			if spec.line[t.Name.Local] {
				b.line(cur.String())
				cur.Reset()
			}
		case xml.CharData:
			if depth > 0 {
				cur.Write(t)
			}
		}
	}
	b.line(cur.String())
	return nil
}
