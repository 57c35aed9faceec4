package toon

import (
	"regexp"
	"strings"
)

var fencePattern = regexp.MustCompile("(?s)```[ \t]*[A-Za-z]*[ \t]*\r?\n(.*?)```")

// StripFence returns the body of the first fenced block (```toon or bare ```)
// in text, or the trimmed text when there is none.
func StripFence(text string) string {
	if m := fencePattern.FindStringSubmatch(text); m != nil {
		return strings.Trim(m[1], "\r\n")
	}
	return strings.TrimSpace(text)
}
