package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
)

const (
	contentTypesPart = "[Content_Types].xml"
	docxDefaultPart  = "word/document.xml"
	docxMainType     = "application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"
	pptxSlidePrefix  = "ppt/slides/slide"
	odfContentPart   = "content.xml"
)

var (
	// w:t runs inside w:p paragraphs; a:t runs inside a:p paragraphs.
	ooxmlText = xmlText{text: names("t"), line: names("p"), space: names("tab", "br", "cr")}
	odfText   = xmlText{text: names("p", "h"), line: names("p", "h"), space: names("s", "tab", "line-break")}
)

// extractDOCX reads the main document part named in [Content_Types].xml, falling back
// to word/document.xml.
func extractDOCX(content []byte, limit int) (string, error) {
	zr, err := openPackage(content)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	name := docxMainPart(zr)
	part := findPart(zr, name)
	if part == nil {
		return "", fmt.Errorf("extract DOCX: %s not found", name)
	}
	text, err := extractParts([]*zip.File{part}, ooxmlText, limit)
	if err != nil {
		return "", fmt.Errorf("extract DOCX: %w", err)
	}
	return text, nil
}

type contentTypes struct {
	Overrides []struct {
		PartName    string `xml:"PartName,attr"`
		ContentType string `xml:"ContentType,attr"`
	} `xml:"Override"`
}

func docxMainPart(zr *zip.Reader) string {
	f := findPart(zr, contentTypesPart)
	if f == nil {
		return docxDefaultPart
	}
	rc, err := f.Open()
	if err != nil {
		return docxDefaultPart
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return docxDefaultPart
	}
	var ct contentTypes
	if err := xml.Unmarshal(data, &ct); err != nil {
		return docxDefaultPart
	}
	for _, o := range ct.Overrides {
		if o.ContentType == docxMainType && o.PartName != "" {
			return strings.TrimPrefix(o.PartName, "/")
		}
	}
	return docxDefaultPart
}

// extractPPTX reads every slide in slide-number order, one line per paragraph.
func extractPPTX(content []byte, limit int) (string, error) {
	zr, err := openPackage(content)
	if err != nil {
		return "", fmt.Errorf("extract PPTX: %w", err)
	}
	type slide struct {
		n int
		f *zip.File
	}
	var slides []slide
	for _, f := range zr.File {
		num, ok := strings.CutPrefix(f.Name, pptxSlidePrefix)
		if !ok {
			continue
		}
		num, ok = strings.CutSuffix(num, ".xml")
		if !ok {
			continue
		}
		n, err := strconv.Atoi(num)
		if err != nil {
			continue
		}
		slides = append(slides, slide{n, f})
	}
	sort.Slice(slides, func(i, j int) bool { return slides[i].n < slides[j].n })

	parts := make([]*zip.File, len(slides))
	for i, s := range slides {
		parts[i] = s.f
	}
	text, err := extractParts(parts, ooxmlText, limit)
	if err != nil {
		return "", fmt.Errorf("extract PPTX: %w", err)
	}
	return text, nil
}

// extractODF reads content.xml of an OpenDocument package. It serves presentations and
// spreadsheets; each paragraph, heading and spreadsheet cell becomes one line.
func extractODF(content []byte, limit int) (string, error) {
	zr, err := openPackage(content)
	if err != nil {
		return "", fmt.Errorf("extract ODF: %w", err)
	}
	part := findPart(zr, odfContentPart)
	if part == nil {
		return "", fmt.Errorf("extract ODF: %s not found", odfContentPart)
	}
	text, err := extractParts([]*zip.File{part}, odfText, limit)
	if err != nil {
		return "", fmt.Errorf("extract ODF: %w", err)
	}
	return text, nil
}
