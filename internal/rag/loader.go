// Package rag loads documents, splits them into chunks and retrieves the
// chunks relevant to a query.
package rag

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/tmc/langchaingo/schema"
)

// Document is a piece of text with its metadata and retrieval score.
type Document = schema.Document

// Load reads a text or PDF file into documents. PDFs yield one document
// per page with text; everything else is read as a single UTF-8 document.
func Load(path string) ([]schema.Document, error) {
	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return LoadPDF(path)
	}
	doc, err := LoadText(path)
	if err != nil {
		return nil, err
	}
	return []schema.Document{doc}, nil
}

// LoadText reads a UTF-8 text file. Invalid UTF-8 is an error.
func LoadText(path string) (schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Document{}, fmt.Errorf("read %s: %w", path, err)
	}
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return schema.Document{}, fmt.Errorf("read %s: file is not valid UTF-8", path)
	}
	return schema.Document{
		PageContent: string(data),
		Metadata:    map[string]any{"source": path},
	}, nil
}

// LoadPDF extracts the plain text of every page.
func LoadPDF(path string) ([]schema.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf %s: %w", path, err)
	}

	var docs []schema.Document
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("pdf %s page %d: %w", path, i, err)
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		docs = append(docs, schema.Document{
			PageContent: text,
			Metadata:    map[string]any{"source": path, "page": i},
		})
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("pdf %s: no extractable text", path)
	}
	return docs, nil
}
