package parser

import (
	"bytes"
	"regexp"
	"strings"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// ScriptBlock is the body of one <script> element in a single-file
// component (.vue, .svelte). Start and End are byte offsets into the
// component source.
type ScriptBlock struct {
	Start int
	End   int
	Lang  string
}

var langAttr = regexp.MustCompile(`(?i)\slang\s*=\s*["']?([a-z]+)`)

// Dialect returns the grammar for the block's lang attribute.
func (b ScriptBlock) Dialect() types.Dialect {
	switch strings.ToLower(b.Lang) {
	case "ts", "typescript":
		return types.DialectTS
	case "tsx":
		return types.DialectTSX
	default:
		return types.DialectJS
	}
}

// IsComponent reports whether path is a single-file component whose script
// blocks must be extracted before parsing.
func IsComponent(path string) bool {
	lower := strings.ToLower(path)
	return strings.HasSuffix(lower, ".vue") || strings.HasSuffix(lower, ".svelte")
}

// ScriptBlocks finds every <script> element body in src. Markup comments
// are skipped and self-closing or external scripts yield no block.
func ScriptBlocks(src []byte) []ScriptBlock {
	var blocks []ScriptBlock
	for i := 0; i < len(src); i++ {
		if src[i] != '<' {
			continue
		}
		rest := src[i:]
		if bytes.HasPrefix(rest, []byte("<!--")) {
			end := bytes.Index(rest[4:], []byte("-->"))
			if end < 0 {
				break
			}
			i += 4 + end + 2
			continue
		}
		if !hasPrefixFold(rest, "<script") || len(rest) <= len("<script") {
			continue
		}
		if c := rest[len("<script")]; c != '>' && c != '/' && !isSpace(c) {
			continue
		}

		tagEnd := tagClose(src, i+len("<script"))
		if tagEnd < 0 {
			break
		}
		tag := src[i:tagEnd]
		if bytes.HasSuffix(tag, []byte("/")) {
			i = tagEnd
			continue
		}

		start := tagEnd + 1
		end := indexFold(src[start:], "</script")
		if end < 0 {
			end = len(src)
		} else {
			end += start
		}

		block := ScriptBlock{Start: start, End: end}
		if m := langAttr.FindSubmatch(tag); m != nil {
			block.Lang = string(m[1])
		}
		blocks = append(blocks, block)
		i = end
	}
	return blocks
}

// tagClose returns the index of the `>` ending the tag whose attributes
// start at i, honoring quoted attribute values.
func tagClose(src []byte, i int) int {
	var quote byte
	for ; i < len(src); i++ {
		c := src[i]
		switch {
		case quote != 0:
			if c == quote {
				quote = 0
			}
		case c == '"' || c == '\'':
			quote = c
		case c == '>':
			return i
		}
	}
	return -1
}

func hasPrefixFold(b []byte, prefix string) bool {
	return len(b) >= len(prefix) && strings.EqualFold(string(b[:len(prefix)]), prefix)
}

func indexFold(b []byte, needle string) int {
	for i := 0; i+len(needle) <= len(b); i++ {
		if b[i] == '<' && hasPrefixFold(b[i:], needle) {
			return i
		}
	}
	return -1
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '\f'
}
