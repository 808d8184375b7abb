package parser

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// opener is an unclosed bracket; ch '$' marks a template substitution.
type opener struct {
	ch  byte
	off int
}

type lexer struct {
	cur   cursor
	cfg   Config
	toks  []token
	stack []opener
	nl    bool

	// parens holds one entry per open parenthesis; true when it opens the
	// head of an if, while, for or with statement.
	parens []bool

	// jsx is the stack of JSX contexts; empty means plain code.
	jsx []jsxFrame
}

type jsxMode int

const (
	// jsxCode is an expression container: `{...}` in a tag or in children.
	jsxCode jsxMode = iota
	// jsxTag is the inside of `<name ...>` or `</name>`.
	jsxTag
	// jsxChildren is the text between an opening and a closing tag.
	jsxChildren
)

type jsxFrame struct {
	mode    jsxMode
	closing bool // jsxTag: a closing tag
	depth   int  // jsxCode: len(stack) while its brace is open
}

// tokenize splits src into significant tokens, dropping whitespace and
// comments. JSX child text is skipped without being lexed. In JSX grammars
// only braces are balanced, and a quote or slash that does not start a
// complete literal on its line is read as punctuation.
func tokenize(src []byte, cfg Config) ([]token, error) {
	lx := &lexer{cur: cursor{src: src}, cfg: cfg}
	lx.skipHashbang()

	for {
		if lx.inJSXText() {
			lx.skipJSXText()
		} else if err := lx.skipTrivia(); err != nil {
			return nil, err
		}
		if lx.cur.eof() {
			break
		}
		if err := lx.next(); err != nil {
			return nil, err
		}
	}

	if n := len(lx.stack); n > 0 {
		top := lx.stack[n-1]
		if top.ch == '$' {
			return nil, &SyntaxError{Offset: top.off, Msg: "unterminated template literal"}
		}
		return nil, &SyntaxError{Offset: top.off, Msg: fmt.Sprintf("unclosed %q", top.ch)}
	}
	return lx.toks, nil
}

func (lx *lexer) next() error {
	c := &lx.cur
	ch := c.peek()

	if lx.cfg.JSX {
		if handled, err := lx.nextJSX(); handled {
			return err
		}
	}

	switch {
	case isIdentStart(ch) || ch >= utf8.RuneSelf:
		lx.scanIdent()
	case isDigit(ch) || (ch == '.' && isDigit(c.peekAt(1))):
		lx.scanNumber()
	case ch == '"' || ch == '\'':
		return lx.scanString(ch)
	case ch == '`':
		return lx.scanTemplate(c.off, false)
	case ch == '/':
		if lx.regexAllowed() {
			return lx.scanRegex()
		}
		lx.emitPunct(c.off, 1)
	case ch == '}':
		if n := len(lx.stack); n > 0 && lx.stack[n-1].ch == '$' {
			lx.stack = lx.stack[:n-1]
			return lx.scanTemplate(c.off, true)
		}
		return lx.closeBracket('{', '}')
	case ch == ')':
		head := false
		if n := len(lx.parens); n > 0 {
			head = lx.parens[n-1]
			lx.parens = lx.parens[:n-1]
		}
		if err := lx.closeBracket('(', ')'); err != nil {
			return err
		}
		lx.toks[len(lx.toks)-1].closesHead = head
	case ch == ']':
		return lx.closeBracket('[', ']')
	case ch == '{' || ch == '(' || ch == '[':
		if ch == '(' {
			lx.parens = append(lx.parens, lx.statementHead())
		}
		if lx.tracked(ch) {
			lx.stack = append(lx.stack, opener{ch: ch, off: c.off})
		}
		lx.emitPunct(c.off, 1)
	default:
		return lx.scanPunct()
	}
	return nil
}

func (lx *lexer) emit(kind tokenKind, start int, value string) {
	lx.toks = append(lx.toks, token{
		kind:     kind,
		start:    start,
		end:      lx.cur.off,
		value:    value,
		nlBefore: lx.nl,
	})
	lx.nl = false
}

func (lx *lexer) emitPunct(start, n int) {
	lx.cur.off = start + n
	lx.emit(tokPunct, start, string(lx.cur.src[start:start+n]))
}

// tracked reports whether an opening bracket takes part in balancing.
func (lx *lexer) tracked(ch byte) bool {
	return ch == '{' || !lx.cfg.JSX
}

func (lx *lexer) closeBracket(open, close byte) error {
	start := lx.cur.off
	if lx.tracked(open) {
		n := len(lx.stack)
		if n == 0 || lx.stack[n-1].ch != open {
			return &SyntaxError{Offset: start, Msg: fmt.Sprintf("unexpected %q", close)}
		}
		lx.stack = lx.stack[:n-1]
	}
	lx.emitPunct(start, 1)
	return nil
}

// regexAllowed decides whether a `/` at the cursor begins a regular
// expression literal, based on the previous significant token.
func (lx *lexer) regexAllowed() bool {
	if len(lx.toks) == 0 {
		return true
	}
	if lx.cfg.JSX && lx.cur.peekAt(1) == '>' {
		// self-closing tag
		return false
	}
	prev := lx.toks[len(lx.toks)-1]
	if lx.cfg.JSX && prev.isPunct("<") && prev.end == lx.cur.off {
		return false
	}
	return lx.operandExpected()
}

// operandExpected reports whether the previous token leaves the parser
// expecting the start of an expression.
func (lx *lexer) operandExpected() bool {
	if len(lx.toks) == 0 {
		return true
	}
	prev := lx.toks[len(lx.toks)-1]
	switch prev.kind {
	case tokIdent:
		_, ok := regexKeywords[prev.value]
		return ok
	case tokPunct:
		switch prev.value {
		case ")":
			return prev.closesHead
		case "]", "++", "--":
			return false
		}
		return true
	default:
		return false
	}
}

// statementHead reports whether a `(` at the cursor opens the head of a
// control statement, after which a `/` starts a regular expression.
func (lx *lexer) statementHead() bool {
	n := len(lx.toks)
	if n == 0 {
		return false
	}
	prev := lx.toks[n-1]
	if prev.kind != tokIdent {
		return false
	}
	if n > 1 && (lx.toks[n-2].isPunct(".") || lx.toks[n-2].isPunct("?.")) {
		return false
	}
	switch prev.value {
	case "if", "while", "for", "with":
		return true
	}
	return false
}

func (lx *lexer) skipHashbang() {
	c := &lx.cur
	if b0, b1, ok := c.peek2(); ok && b0 == '#' && b1 == '!' {
		for !c.eof() && c.peek() != '\n' {
			c.bump()
		}
	}
}

func (lx *lexer) skipTrivia() error {
	c := &lx.cur
	for !c.eof() {
		ch := c.peek()
		switch {
		case ch == '\n' || ch == '\r':
			lx.nl = true
			c.bump()
		case ch == ' ' || ch == '\t' || ch == '\v' || ch == '\f':
			c.bump()
		case ch == '/' && c.peekAt(1) == '/':
			for !c.eof() && c.peek() != '\n' && c.peek() != '\r' {
				c.bump()
			}
		case ch == '/' && c.peekAt(1) == '*':
			start := c.off
			c.off += 2
			for {
				if c.eof() {
					return &SyntaxError{Offset: start, Msg: "unterminated comment"}
				}
				if b0, b1, ok := c.peek2(); ok && b0 == '*' && b1 == '/' {
					c.off += 2
					break
				}
				if b := c.bump(); b == '\n' || b == '\r' {
					lx.nl = true
				}
			}
		case ch >= utf8.RuneSelf:
			r, size := utf8.DecodeRune(c.src[c.off:])
			if r == '\u2028' || r == '\u2029' {
				lx.nl = true
			} else if !unicode.IsSpace(r) && r != '\ufeff' {
				return nil
			}
			c.off += size
		default:
			return nil
		}
	}
	return nil
}

func (lx *lexer) scanIdent() {
	c := &lx.cur
	start := c.off
	for !c.eof() {
		ch := c.peek()
		if ch < utf8.RuneSelf {
			if !isIdentPart(ch) {
				break
			}
			c.bump()
			continue
		}
		r, size := utf8.DecodeRune(c.src[c.off:])
		if unicode.IsSpace(r) || r == '\ufeff' {
			break
		}
		c.off += size
	}
	lx.emit(tokIdent, start, string(c.src[start:c.off]))
}

func (lx *lexer) scanNumber() {
	c := &lx.cur
	start := c.off
	hex := c.peek() == '0' && (c.peekAt(1) == 'x' || c.peekAt(1) == 'X')
	for !c.eof() {
		ch := c.peek()
		if isIdentPart(ch) || ch == '.' {
			c.bump()
			continue
		}
		if (ch == '+' || ch == '-') && !hex {
			if p := c.src[c.off-1]; p == 'e' || p == 'E' {
				c.bump()
				continue
			}
		}
		break
	}
	lx.emit(tokNumber, start, string(c.src[start:c.off]))
}

func (lx *lexer) scanString(quote byte) error {
	c := &lx.cur
	start := c.off
	c.bump()

	var b strings.Builder
	for {
		if c.eof() {
			return lx.unterminated(start, "unterminated string literal")
		}
		ch := c.peek()
		switch {
		case ch == quote:
			c.bump()
			lx.emit(tokString, start, b.String())
			return nil
		case ch == '\n' || ch == '\r':
			return lx.unterminated(start, "unterminated string literal")
		case ch == '\\':
			if !lx.scanEscape(&b) {
				return lx.unterminated(start, "unterminated string literal")
			}
		default:
			b.WriteByte(c.bump())
		}
	}
}

// unterminated handles a literal that never closes: an error in strict
// grammars, a lone punctuator in JSX grammars.
func (lx *lexer) unterminated(start int, msg string) error {
	if !lx.cfg.JSX {
		return &SyntaxError{Offset: start, Msg: msg}
	}
	lx.emitPunct(start, 1)
	return nil
}

// scanEscape decodes one escape sequence into b. It reports false when the
// input ends inside the escape.
func (lx *lexer) scanEscape(b *strings.Builder) bool {
	c := &lx.cur
	c.bump()
	if c.eof() {
		return false
	}
	e := c.bump()
	switch e {
	case 'n':
		b.WriteByte('\n')
	case 't':
		b.WriteByte('\t')
	case 'r':
		b.WriteByte('\r')
	case 'b':
		b.WriteByte('\b')
	case 'f':
		b.WriteByte('\f')
	case 'v':
		b.WriteByte('\v')
	case '0':
		if isDigit(c.peek()) {
			b.WriteByte(e)
		} else {
			b.WriteByte(0)
		}
	case '\r':
		c.eat('\n')
	case '\n':
	case 'x':
		if r, ok := lx.hexRune(2); ok {
			b.WriteRune(r)
		} else {
			b.WriteByte(e)
		}
	case 'u':
		if c.eat('{') {
			start := c.off
			for !c.eof() && isHex(c.peek()) {
				c.bump()
			}
			v, err := strconv.ParseUint(string(c.src[start:c.off]), 16, 32)
			if err == nil && c.eat('}') && v <= unicode.MaxRune {
				b.WriteRune(rune(v))
			} else {
				b.WriteByte(e)
				c.off = start - 1
			}
		} else if r, ok := lx.hexRune(4); ok {
			b.WriteRune(r)
		} else {
			b.WriteByte(e)
		}
	default:
		b.WriteByte(e)
	}
	return true
}

func (lx *lexer) hexRune(n int) (rune, bool) {
	c := &lx.cur
	if c.off+n > len(c.src) {
		return 0, false
	}
	v, err := strconv.ParseUint(string(c.src[c.off:c.off+n]), 16, 32)
	if err != nil {
		return 0, false
	}
	c.off += n
	return rune(v), true
}

// scanTemplate reads a template chunk starting at a backtick, or at the `}`
// closing a substitution when resume is set. A chunk ends at the closing
// backtick or at the next `${`.
func (lx *lexer) scanTemplate(start int, resume bool) error {
	c := &lx.cur
	c.off = start + 1
	for {
		if c.eof() {
			if resume {
				return &SyntaxError{Offset: start, Msg: "unterminated template literal"}
			}
			return lx.unterminated(start, "unterminated template literal")
		}
		ch := c.bump()
		switch {
		case ch == '\\':
			c.bump()
		case ch == '`':
			lx.emit(tokTemplate, start, "")
			return nil
		case ch == '$' && c.peek() == '{':
			c.bump()
			lx.stack = append(lx.stack, opener{ch: '$', off: c.off - 2})
			lx.emit(tokTemplate, start, "")
			return nil
		}
	}
}

func (lx *lexer) scanRegex() error {
	c := &lx.cur
	start := c.off
	c.bump()
	inClass := false
	for {
		if c.eof() {
			return lx.unterminated(start, "unterminated regular expression")
		}
		ch := c.bump()
		switch ch {
		case '\n', '\r':
			return lx.unterminated(start, "unterminated regular expression")
		case '\\':
			if n := c.peek(); n == '\n' || n == '\r' || c.eof() {
				return lx.unterminated(start, "unterminated regular expression")
			}
			c.bump()
		case '[':
			inClass = true
		case ']':
			inClass = false
		case '/':
			if !inClass {
				for !c.eof() && isIdentPart(c.peek()) {
					c.bump()
				}
				lx.emit(tokRegex, start, string(c.src[start:c.off]))
				return nil
			}
		}
	}
}

func (lx *lexer) scanPunct() error {
	c := &lx.cur
	start := c.off
	b0 := c.peek()
	b1 := c.peekAt(1)

	switch {
	case b0 == '.' && b1 == '.' && c.peekAt(2) == '.':
		lx.emitPunct(start, 3)
	case b0 == '?' && b1 == '.' && !isDigit(c.peekAt(2)):
		lx.emitPunct(start, 2)
	case b0 == '=' && b1 == '>':
		lx.emitPunct(start, 2)
	case (b0 == '+' || b0 == '-') && b1 == b0:
		lx.emitPunct(start, 2)
	case b0 == '@' && !lx.cfg.Decorators && !lx.cfg.JSX:
		return &SyntaxError{Offset: start, Msg: "decorators are not enabled"}
	default:
		lx.emitPunct(start, 1)
	}
	return nil
}

// ===== HELPERS =====

func isIdentStart(ch byte) bool {
	return ch == '$' || ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

func isHex(ch byte) bool {
	return isDigit(ch) || (ch >= 'a' && ch <= 'f') || (ch >= 'A' && ch <= 'F')
}
