package types

// Snippet contains the source lines around a diagnostic span.
type Snippet struct {
	Before   string `json:"before,omitempty"` // text from the start of the first context line up to the span
	Matching string `json:"matching"`         // the spanned text
	After    string `json:"after,omitempty"`  // text from the span to the end of the last context line
}

// ExtractSnippet extracts the span [start, end) of content with the given
// number of context lines before and after it. The line containing the span is
// always included in full; lines=0 means only that line.
// Returns independent copies so storing the snippet does not pin content.
func ExtractSnippet(content []byte, start, end int, lines int) Snippet {
	if start < 0 || start > len(content) || end < start || end > len(content) {
		return Snippet{}
	}
	if lines < 0 {
		lines = 0
	}

	return Snippet{
		Before:   string(content[lineStartBefore(content, start, lines):start]),
		Matching: string(content[start:end]),
		After:    string(content[end:lineEndAfter(content, end, lines)]),
	}
}

// lineStartBefore walks backward from start and returns the offset of the
// beginning of the line that lies `lines` lines above the line holding start.
func lineStartBefore(content []byte, start, lines int) int {
	newlines := 0
	for pos := start - 1; pos >= 0; pos-- {
		if content[pos] == '\n' {
			if newlines == lines {
				return pos + 1
			}
			newlines++
		}
	}
	return 0
}

// lineEndAfter walks forward from end and returns the offset just past the end
// of the line that lies `lines` lines below the line holding end (newline excluded).
func lineEndAfter(content []byte, end, lines int) int {
	newlines := 0
	for pos := end; pos < len(content); pos++ {
		if content[pos] == '\n' {
			if newlines == lines {
				return pos
			}
			newlines++
		}
	}
	return len(content)
}
