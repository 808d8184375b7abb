package types

import "unicode/utf8"

// ComputeLineColumn computes line and column numbers from a byte offset in content.
// Lines and columns are 1-indexed (first line is 1, first column is 1).
// Columns count characters, so a multi-byte rune advances the column by one.
func ComputeLineColumn(content []byte, byteOffset int) (line, column int) {
	line = 1
	column = 1
	for i := 0; i < byteOffset && i < len(content); {
		if content[i] == '\n' {
			line++
			column = 1
			i++
			continue
		}
		_, size := utf8.DecodeRune(content[i:])
		i += size
		column++
	}
	return line, column
}

// LocationFor builds a Location for the byte range [start, end) of content.
// Out-of-range offsets are clamped to the content bounds.
func LocationFor(content []byte, start, end int) Location {
	start = clamp(start, 0, len(content))
	end = clamp(end, start, len(content))

	startLine, startCol := ComputeLineColumn(content, start)
	endLine, endCol := ComputeLineColumn(content, end)

	return Location{
		Offset: OffsetSpan{Start: int64(start), End: int64(end)},
		Source: SourceSpan{
			Start: SourcePoint{Line: startLine, Column: startCol},
			End:   SourcePoint{Line: endLine, Column: endCol},
		},
	}
}

// CharOffset converts a byte offset into a character offset.
func CharOffset(content []byte, byteOffset int) int {
	byteOffset = clamp(byteOffset, 0, len(content))
	return utf8.RuneCount(content[:byteOffset])
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
