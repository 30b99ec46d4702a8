// Package loader turns files on disk into embeddable text chunks.
package loader

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/lu4p/cat"
	"golang.org/x/text/unicode/norm"
)

// Chunk is one embeddable unit of a document. Source is the absolute path
// of the file the chunk came from.
type Chunk struct {
	Text   string
	Source string
}

// Load reads the file at path and returns its text split into chunks.
//
// Extraction depends on the file extension: PDFs and office formats go
// through dedicated extractors, everything else is treated as plain UTF-8
// text. A file that extracts to nothing yields zero chunks and no error.
func Load(path string) ([]Chunk, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", path, err)
	}

	text, err := extract(abs)
	if err != nil {
		return nil, err
	}

	text = norm.NFC.String(text)

	var chunks []Chunk
	for _, piece := range SplitText(text) {
		chunks = append(chunks, Chunk{Text: piece, Source: abs})
	}
	return chunks, nil
}

func extract(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return extractPDF(path)
	case ".docx", ".odt", ".rtf":
		text, err := cat.File(path)
		if err != nil {
			return "", fmt.Errorf("cannot extract text from %s: %w", path, err)
		}
		return text, nil
	default:
		return extractPlain(path)
	}
}

func extractPDF(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	r, err := pdf.NewReader(bytes.NewReader(b), int64(len(b)))
	if err != nil {
		return "", fmt.Errorf("cannot open PDF %s: %w", path, err)
	}

	var buf bytes.Buffer
	numPages := r.NumPage()
	for i := 1; i <= numPages; i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("cannot extract PDF page %d of %s: %w", i, path, err)
		}
		buf.WriteString(text)
		if i < numPages {
			buf.WriteByte('\n')
		}
	}
	return buf.String(), nil
}

func extractPlain(path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("cannot read %s: %w", path, err)
	}
	if bytes.IndexByte(b, 0) >= 0 {
		return "", fmt.Errorf("cannot load %s: binary content", path)
	}
	return string(b), nil
}
