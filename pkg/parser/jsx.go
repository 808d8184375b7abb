package parser

import "bytes"

func (lx *lexer) jsxTop() (jsxFrame, bool) {
	if n := len(lx.jsx); n > 0 {
		return lx.jsx[n-1], true
	}
	return jsxFrame{}, false
}

func (lx *lexer) pushJSX(f jsxFrame) {
	lx.jsx = append(lx.jsx, f)
}

func (lx *lexer) popJSX() {
	if n := len(lx.jsx); n > 0 {
		lx.jsx = lx.jsx[:n-1]
	}
}

func (lx *lexer) inJSXText() bool {
	f, ok := lx.jsxTop()
	return ok && f.mode == jsxChildren
}

// skipJSXText advances over child text up to the next `<` or `{`.
func (lx *lexer) skipJSXText() {
	c := &lx.cur
	for !c.eof() {
		switch c.peek() {
		case '<', '{':
			return
		case '\n', '\r':
			lx.nl = true
		}
		c.bump()
	}
}

// nextJSX lexes the token at the cursor when it opens, continues or closes a
// JSX construct. It reports false when the token is ordinary code.
func (lx *lexer) nextJSX() (bool, error) {
	c := &lx.cur
	ch := c.peek()
	f, inJSX := lx.jsxTop()

	switch {
	case inJSX && f.mode == jsxChildren:
		if ch == '{' {
			lx.openContainer()
			return true, nil
		}
		closing := c.peekAt(1) == '/'
		lx.emitPunct(c.off, 1)
		if closing {
			lx.emitPunct(c.off, 1)
		}
		lx.pushJSX(jsxFrame{mode: jsxTag, closing: closing})
		return true, nil

	case inJSX && f.mode == jsxTag:
		switch {
		case ch == '>':
			lx.emitPunct(c.off, 1)
			lx.popJSX()
			if !f.closing {
				lx.pushJSX(jsxFrame{mode: jsxChildren})
			} else if lx.inJSXText() {
				lx.popJSX()
			}
			return true, nil
		case ch == '/' && c.peekAt(1) == '>':
			lx.emitPunct(c.off, 2)
			lx.popJSX()
			return true, nil
		case ch == '{':
			lx.openContainer()
			return true, nil
		case ch == '"' || ch == '\'':
			return true, lx.scanAttrString(ch)
		}
		return false, nil

	case ch == '<' && lx.tagAhead():
		lx.emitPunct(c.off, 1)
		lx.pushJSX(jsxFrame{mode: jsxTag})
		return true, nil

	case ch == '}' && inJSX && f.mode == jsxCode && f.depth == len(lx.stack):
		if err := lx.closeBracket('{', '}'); err != nil {
			return true, err
		}
		lx.popJSX()
		return true, nil
	}
	return false, nil
}

// openContainer lexes the `{` of a JSX expression container.
func (lx *lexer) openContainer() {
	lx.stack = append(lx.stack, opener{ch: '{', off: lx.cur.off})
	lx.emitPunct(lx.cur.off, 1)
	lx.pushJSX(jsxFrame{mode: jsxCode, depth: len(lx.stack)})
}

// tagAhead reports whether the `<` at the cursor opens a JSX element rather
// than comparing or starting TypeScript type parameters.
func (lx *lexer) tagAhead() bool {
	c := &lx.cur
	n := c.peekAt(1)
	if n != '>' && !isIdentStart(n) {
		return false
	}
	if !lx.operandExpected() {
		return false
	}
	if n == '>' || !lx.cfg.TypeScript {
		return true
	}

	i := c.off + 1
	for i < len(c.src) && isIdentPart(c.src[i]) {
		i++
	}
	for i < len(c.src) && (c.src[i] == ' ' || c.src[i] == '\t') {
		i++
	}
	rest := c.src[i:]
	switch {
	case bytes.HasPrefix(rest, []byte(",")),
		bytes.HasPrefix(rest, []byte("extends ")),
		bytes.HasPrefix(rest, []byte("=")) && !bytes.HasPrefix(rest, []byte("=>")),
		bytes.HasPrefix(rest, []byte(">(")):
		// <T,>() => ..., <T extends U>, <T = D>, <T>(x: T) => T
		return false
	}
	return true
}

// scanAttrString reads a JSX attribute value. Attribute strings have no
// escapes and may span lines.
func (lx *lexer) scanAttrString(quote byte) error {
	c := &lx.cur
	start := c.off
	end := bytes.IndexByte(c.src[start+1:], quote)
	if end < 0 {
		return lx.unterminated(start, "unterminated string literal")
	}
	c.off = start + 1 + end + 1
	lx.emit(tokString, start, string(c.src[start+1:c.off-1]))
	return nil
}
