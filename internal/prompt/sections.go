package prompt

import "strings"

// Section is one titled block of a composed prompt.
type Section struct {
	Title   string
	Content string
}

// Sections renders blocks as "### Title\n\ncontent", separated by blank
// lines. Empty blocks are skipped; an empty title renders the content bare.
func Sections(list ...Section) string {
	var out strings.Builder
	n := 0
	for _, s := range list {
		content := strings.TrimSpace(s.Content)
		if content == "" {
			continue
		}
		if n > 0 {
			out.WriteString("\n\n")
		}
		if s.Title != "" {
			out.WriteString("### ")
			out.WriteString(s.Title)
			out.WriteString("\n\n")
		}
		out.WriteString(content)
		n++
	}
	return out.String()
}
