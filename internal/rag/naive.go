package rag

import (
	"regexp"
	"strings"

	"github.com/tmc/langchaingo/schema"
)

var wordPattern = regexp.MustCompile(`[\p{L}\p{N}\p{M}_]+`)

// Tokens returns the set of lower-cased word-character runs in text.
func Tokens(text string) map[string]struct{} {
	words := wordPattern.FindAllString(strings.ToLower(text), -1)
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

// Overlap is the number of distinct tokens two sets share.
func Overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for w := range a {
		if _, ok := b[w]; ok {
			n++
		}
	}
	return n
}

// Match is the chunk picked by BestMatch.
type Match struct {
	Index    int
	Score    int
	Document schema.Document
}

// BestMatch returns the chunk sharing the most distinct words with query.
// Ties go to the earliest chunk. When nothing overlaps the first chunk is
// returned with score 0; ok is false only when chunks is empty.
func BestMatch(chunks []schema.Document, query string) (m Match, ok bool) {
	if len(chunks) == 0 {
		return Match{}, false
	}
	q := Tokens(query)
	best, bestScore := 0, 0
	for i, c := range chunks {
		if score := Overlap(q, Tokens(c.PageContent)); score > bestScore {
			best, bestScore = i, score
		}
	}
	doc := chunks[best]
	doc.Score = float32(bestScore)
	return Match{Index: best, Score: bestScore, Document: doc}, true
}
