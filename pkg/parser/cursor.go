package parser

// cursor is a byte position in the source being lexed.
type cursor struct {
	src []byte
	off int
}

func (c *cursor) eof() bool {
	return c.off >= len(c.src)
}

// peek returns the current byte, or 0 at EOF.
func (c *cursor) peek() byte {
	if c.eof() {
		return 0
	}
	return c.src[c.off]
}

// peek2 returns the current and next byte.
func (c *cursor) peek2() (b0, b1 byte, ok bool) {
	if c.off+1 >= len(c.src) {
		return 0, 0, false
	}
	return c.src[c.off], c.src[c.off+1], true
}

// peekAt returns the byte n positions ahead, or 0 past the end.
func (c *cursor) peekAt(n int) byte {
	if c.off+n >= len(c.src) {
		return 0
	}
	return c.src[c.off+n]
}

// bump advances one byte and returns it.
func (c *cursor) bump() byte {
	if c.eof() {
		return 0
	}
	b := c.src[c.off]
	c.off++
	return b
}

// eat consumes b if it is the current byte.
func (c *cursor) eat(b byte) bool {
	if !c.eof() && c.src[c.off] == b {
		c.off++
		return true
	}
	return false
}
