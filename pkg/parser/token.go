package parser

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokTemplate
	tokNumber
	tokRegex
	tokPunct
)

func (k tokenKind) String() string {
	switch k {
	case tokIdent:
		return "identifier"
	case tokString:
		return "string"
	case tokTemplate:
		return "template"
	case tokNumber:
		return "number"
	case tokRegex:
		return "regular expression"
	case tokPunct:
		return "punctuator"
	default:
		return "end of file"
	}
}

// token is one significant lexeme. For strings, value holds the decoded
// literal; for identifiers and punctuators it holds the source text.
type token struct {
	kind     tokenKind
	start    int
	end      int
	value    string
	nlBefore bool

	// closesHead marks the `)` that ends an if, while, for or with head.
	closesHead bool
}

func (t token) is(kind tokenKind, value string) bool {
	return t.kind == kind && t.value == value
}

func (t token) isPunct(value string) bool {
	return t.is(tokPunct, value)
}

func (t token) isIdent(value string) bool {
	return t.is(tokIdent, value)
}

// keywords after which a `/` starts a regular expression literal.
var regexKeywords = map[string]struct{}{
	"return":     {},
	"typeof":     {},
	"instanceof": {},
	"in":         {},
	"of":         {},
	"new":        {},
	"delete":     {},
	"void":       {},
	"throw":      {},
	"case":       {},
	"default":    {},
	"do":         {},
	"else":       {},
	"yield":      {},
	"await":      {},
	"extends":    {},
}
