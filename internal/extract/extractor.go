// Package extract turns document files into plain text for embedding.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

var (
	// ErrUnsupportedFormat is returned for binary formats that have no text extractor.
	ErrUnsupportedFormat = errors.New("unsupported document format")
	// ErrPathRequired is returned by ExtractBytes for formats that can only be read from disk.
	ErrPathRequired = errors.New("format requires a file path")
)

// binaryExtensions are formats that must never be embedded as raw bytes.
var binaryExtensions = map[string]bool{
	".doc": true, ".xls": true, ".ppt": true, ".odg": true,
	".zip": true, ".gz": true, ".tgz": true, ".tar": true, ".7z": true, ".rar": true,
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".webp": true, ".bmp": true, ".ico": true,
	".mp3": true, ".mp4": true, ".wav": true, ".mov": true,
	".exe": true, ".dll": true, ".so": true, ".bin": true, ".onnx": true, ".db": true, ".sqlite": true,
}

// sniffLen is how much of an unknown file is checked for NUL bytes before it is
// accepted as text.
const sniffLen = 8000

// DefaultMaxChars bounds extracted text so one large document cannot dominate an
// embedding request.
const DefaultMaxChars = 8000

// Extractor extracts plain text from document files.
type Extractor struct {
	maxChars int
}

// NewExtractor returns an Extractor that truncates output to maxChars runes.
// maxChars <= 0 uses DefaultMaxChars.
func NewExtractor(maxChars int) *Extractor {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Extractor{maxChars: maxChars}
}

// Extract reads the file at path and returns its text content.
// .odt and .rtf are read by path; everything else goes through ExtractBytes.
func (e *Extractor) Extract(path string) (string, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".odt" || ext == ".rtf" {
		text, err := extractDocument(path)
		if err != nil {
			return "", err
		}
		return e.truncate(text), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file: %w", err)
	}
	return e.ExtractBytes(content, ext)
}

// ExtractBytes extracts text from content based on the given extension, which should
// include the leading dot (e.g. ".pdf"). Unknown extensions are treated as plain text
// unless the content looks binary.
func (e *Extractor) ExtractBytes(content []byte, ext string) (string, error) {
	var (
		text string
		err  error
	)
	switch strings.ToLower(ext) {
	case ".pdf":
		text, err = extractPDF(content, e.maxChars)
	case ".xlsx":
		text, err = extractExcel(content, e.maxChars)
	case ".docx":
		text, err = extractDOCX(content, e.maxChars)
	case ".pptx":
		text, err = extractPPTX(content, e.maxChars)
	case ".odp", ".ods":
		text, err = extractODF(content, e.maxChars)
	case ".odt", ".rtf":
		return "", fmt.Errorf("%w: %s", ErrPathRequired, ext)
	default:
		if binaryExtensions[strings.ToLower(ext)] || looksBinary(content) {
			return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
		}
		text = strings.ToValidUTF8(string(content), "\uFFFD")
	}
	if err != nil {
		return "", err
	}
	return e.truncate(text), nil
}

func looksBinary(content []byte) bool {
	if len(content) > sniffLen {
		content = content[:sniffLen]
	}
	return bytes.IndexByte(content, 0) >= 0
}

func (e *Extractor) truncate(text string) string {
	text = strings.TrimSpace(text)
	if utf8.RuneCountInString(text) <= e.maxChars {
		return text
	}
	return string([]rune(text)[:e.maxChars])
}
