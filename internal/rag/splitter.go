package rag

import (
	"fmt"
	"iter"
	"maps"
	"slices"

	"github.com/tmc/langchaingo/schema"
	"github.com/tmc/langchaingo/textsplitter"
)

// Splitter cuts text into chunks. textsplitter.TextSplitter has the same shape.
type Splitter interface {
	SplitText(text string) ([]string, error)
}

var _ textsplitter.TextSplitter = (*FixedWindow)(nil)

// FixedWindow cuts text into windows of Size characters where each window
// after the first starts Size-Overlap characters after the previous one.
// It knows nothing about words or sentences.
type FixedWindow struct {
	size    int
	overlap int
}

// NewFixedWindow requires 0 <= overlap < size.
func NewFixedWindow(size, overlap int) (*FixedWindow, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap must be in [0, %d), got %d", size, overlap)
	}
	return &FixedWindow{size: size, overlap: overlap}, nil
}

func (f *FixedWindow) Size() int    { return f.size }
func (f *FixedWindow) Overlap() int { return f.overlap }

// Chunks yields windows lazily. The last window ends at the end of text
// and may be shorter than Size; empty text yields nothing.
func (f *FixedWindow) Chunks(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		runes := []rune(text)
		step := f.size - f.overlap
		for start := 0; start < len(runes); start += step {
			end := min(start+f.size, len(runes))
			if !yield(string(runes[start:end])) {
				return
			}
			if end == len(runes) {
				return
			}
		}
	}
}

// SplitText materializes Chunks.
func (f *FixedWindow) SplitText(text string) ([]string, error) {
	return slices.Collect(f.Chunks(text)), nil
}

// NewRecursive returns langchaingo's recursive character splitter, which
// prefers paragraph, line and word boundaries.
func NewRecursive(size, overlap int) (Splitter, error) {
	if size <= 0 || overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("invalid chunk size %d / overlap %d", size, overlap)
	}
	return textsplitter.NewRecursiveCharacter(
		textsplitter.WithChunkSize(size),
		textsplitter.WithChunkOverlap(overlap),
	), nil
}

// NewSplitter selects "fixed" or "recursive".
func NewSplitter(kind string, size, overlap int) (Splitter, error) {
	switch kind {
	case "fixed":
		f, err := NewFixedWindow(size, overlap)
		if err != nil {
			return nil, err
		}
		return f, nil
	case "recursive", "":
		return NewRecursive(size, overlap)
	default:
		return nil, fmt.Errorf("unknown splitter %q (want fixed or recursive)", kind)
	}
}

// SplitDocuments splits every document and numbers the chunks in order.
// Chunk metadata copies the source metadata and adds "chunk".
func SplitDocuments(s Splitter, docs []schema.Document) ([]schema.Document, error) {
	var out []schema.Document
	for _, doc := range docs {
		parts, err := s.SplitText(doc.PageContent)
		if err != nil {
			return nil, fmt.Errorf("split: %w", err)
		}
		for _, part := range parts {
			meta := maps.Clone(doc.Metadata)
			if meta == nil {
				meta = map[string]any{}
			}
			meta["chunk"] = len(out)
			out = append(out, schema.Document{PageContent: part, Metadata: meta})
		}
	}
	return out, nil
}
