package parser

import (
	"fmt"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

type itemParser struct {
	toks  []token
	cfg   Config
	items []Item
}

// collectItems walks the token stream and records every module item, in
// source order.
func collectItems(toks []token, cfg Config) ([]Item, error) {
	p := &itemParser{toks: toks, cfg: cfg}

	for i := 0; i < len(toks); i++ {
		t := toks[i]
		if t.kind != tokIdent || p.memberAccess(i) {
			continue
		}

		var (
			last int
			err  error
		)
		switch t.value {
		case "import":
			last, err = p.parseImport(i)
		case "export":
			last, err = p.parseExport(i)
		case "require":
			last = p.parseRequire(i)
		default:
			continue
		}
		if err != nil {
			return nil, err
		}
		i = last
	}
	return p.items, nil
}

// tok returns the token at i, or an EOF token positioned after the last one.
func (p *itemParser) tok(i int) token {
	if i >= 0 && i < len(p.toks) {
		return p.toks[i]
	}
	end := 0
	if n := len(p.toks); n > 0 {
		end = p.toks[n-1].end
	}
	return token{kind: tokEOF, start: end, end: end}
}

func (p *itemParser) memberAccess(i int) bool {
	prev := p.tok(i - 1)
	return prev.isPunct(".") || prev.isPunct("?.")
}

// statementStart reports whether the token at i can begin a declaration.
func (p *itemParser) statementStart(i int) bool {
	if i == 0 || p.toks[i].nlBefore {
		return true
	}
	prev := p.toks[i-1]
	return prev.isPunct(";") || prev.isPunct("{") || prev.isPunct("}") || prev.isIdent("export")
}

func (p *itemParser) add(kind ItemKind, lit token, typeOnly bool, bindings []Binding) {
	p.items = append(p.items, Item{
		Kind:      kind,
		Specifier: lit.value,
		Span:      types.OffsetSpan{Start: int64(lit.start), End: int64(lit.end)},
		TypeOnly:  typeOnly,
		Bindings:  bindings,
	})
}

func (p *itemParser) errorAt(t token, format string, args ...any) error {
	return &SyntaxError{Offset: t.start, Msg: fmt.Sprintf(format, args...)}
}

func (p *itemParser) unexpected(t token, want string) error {
	if t.kind == tokEOF {
		return p.errorAt(t, "expected %s, found end of file", want)
	}
	return p.errorAt(t, "expected %s, found %s %q", want, t.kind, t.value)
}

func (p *itemParser) requireTypeScript(t token, what string) error {
	if p.cfg.TypeScript {
		return nil
	}
	return p.errorAt(t, "%s are only valid in TypeScript", what)
}

// parseImport handles every form starting with the `import` keyword and
// returns the index of the last token it consumed.
func (p *itemParser) parseImport(i int) (int, error) {
	next := p.tok(i + 1)

	switch {
	case next.isPunct("("):
		arg := p.tok(i + 2)
		if arg.kind == tokString && (p.tok(i+3).isPunct(")") || p.tok(i+3).isPunct(",")) {
			p.add(ItemDynamicImport, arg, p.tok(i-1).isIdent("typeof"), nil)
			return i + 2, nil
		}
		return i + 1, nil
	case next.isPunct("."):
		// import.meta
		return i + 1, nil
	case !p.statementStart(i):
		return i, nil
	case next.kind == tokString:
		p.add(ItemImport, next, false, nil)
		return i + 1, nil
	case next.kind == tokIdent || next.isPunct("{") || next.isPunct("*"):
		return p.parseImportDecl(i)
	default:
		return i, nil
	}
}

func (p *itemParser) parseImportDecl(i int) (int, error) {
	j := i + 1
	typeOnly := false
	if p.tok(j).isIdent("type") && p.declTypeModifier(j) {
		if err := p.requireTypeScript(p.tok(j), "type-only imports"); err != nil {
			return 0, err
		}
		typeOnly = true
		j++
	}

	var bindings []Binding
	t := p.tok(j)
	switch {
	case t.kind == tokIdent:
		if p.tok(j + 1).isPunct("=") {
			return p.parseImportEquals(i, j, typeOnly)
		}
		bindings = append(bindings, Binding{Name: t.value})
		j++
		if p.tok(j).isPunct(",") {
			j++
			more, next, err := p.parseClause(j)
			if err != nil {
				return 0, err
			}
			bindings = append(bindings, more...)
			j = next
		}
	case t.isPunct("*") || t.isPunct("{"):
		more, next, err := p.parseClause(j)
		if err != nil {
			return 0, err
		}
		bindings = more
		j = next
	default:
		return 0, p.unexpected(t, "import clause")
	}

	lit, last, err := p.expectFrom(j)
	if err != nil {
		return 0, err
	}
	p.add(ItemImport, lit, typeOnly, bindings)
	return last, nil
}

// declTypeModifier reports whether the `type` at j modifies the whole
// declaration rather than naming a default binding called `type`.
func (p *itemParser) declTypeModifier(j int) bool {
	next := p.tok(j + 1)
	switch {
	case next.isPunct("{") || next.isPunct("*"):
		return true
	case next.isIdent("from"):
		// `import type from "x"` is a default binding named type.
		return p.tok(j+2).kind != tokString
	case next.kind == tokIdent:
		return true
	default:
		return false
	}
}

// bindingTypeModifier reports whether the `type` at j modifies the binding
// that follows it inside braces.
func (p *itemParser) bindingTypeModifier(j int) bool {
	next := p.tok(j + 1)
	switch {
	case next.kind == tokString:
		return true
	case next.isIdent("as"):
		// `type as x` renames `type`; `type as`, `type as as x` mark `as`.
		after := p.tok(j + 2)
		return after.isPunct(",") || after.isPunct("}") || after.isIdent("as")
	case next.kind == tokIdent:
		return true
	default:
		return false
	}
}

// parseClause reads `* as ns` or `{ ... }` starting at j.
func (p *itemParser) parseClause(j int) ([]Binding, int, error) {
	t := p.tok(j)
	switch {
	case t.isPunct("*"):
		if !p.tok(j + 1).isIdent("as") {
			return nil, 0, p.unexpected(p.tok(j+1), "`as`")
		}
		name := p.tok(j + 2)
		if name.kind != tokIdent {
			return nil, 0, p.unexpected(name, "namespace name")
		}
		return []Binding{{Name: name.value}}, j + 3, nil
	case t.isPunct("{"):
		return p.parseNamed(j)
	default:
		return nil, 0, p.unexpected(t, "`*` or `{`")
	}
}

// parseNamed reads a braced specifier list and returns the index after `}`.
func (p *itemParser) parseNamed(j int) ([]Binding, int, error) {
	bindings := []Binding{}
	j++
	for {
		if p.tok(j).isPunct("}") {
			return bindings, j + 1, nil
		}
		b, next, err := p.parseSpecifier(j)
		if err != nil {
			return nil, 0, err
		}
		bindings = append(bindings, b)

		sep := p.tok(next)
		switch {
		case sep.isPunct(","):
			j = next + 1
		case sep.isPunct("}"):
			return bindings, next + 1, nil
		default:
			return nil, 0, p.unexpected(sep, "`,` or `}`")
		}
	}
}

func (p *itemParser) parseSpecifier(j int) (Binding, int, error) {
	t := p.tok(j)
	typeOnly := false
	if t.isIdent("type") && p.bindingTypeModifier(j) {
		if err := p.requireTypeScript(t, "type-only specifiers"); err != nil {
			return Binding{}, 0, err
		}
		typeOnly = true
		j++
		t = p.tok(j)
	}

	if t.kind != tokIdent && t.kind != tokString {
		return Binding{}, 0, p.unexpected(t, "binding name")
	}
	name := t.value
	j++

	if p.tok(j).isIdent("as") {
		alias := p.tok(j + 1)
		if alias.kind != tokIdent && alias.kind != tokString {
			return Binding{}, 0, p.unexpected(alias, "binding name")
		}
		name = alias.value
		j += 2
	}
	return Binding{Name: name, TypeOnly: typeOnly}, j, nil
}

func (p *itemParser) parseImportEquals(i, j int, typeOnly bool) (int, error) {
	if err := p.requireTypeScript(p.tok(i), "import assignments"); err != nil {
		return 0, err
	}
	name := p.tok(j)
	k := j + 2
	if p.tok(k).isIdent("require") && p.tok(k+1).isPunct("(") &&
		p.tok(k+2).kind == tokString && p.tok(k+3).isPunct(")") {
		p.add(ItemImportEquals, p.tok(k+2), typeOnly, []Binding{{Name: name.value}})
		return k + 3, nil
	}
	// `import A = B.C` aliases a namespace and references no module.
	return j + 1, nil
}

func (p *itemParser) parseExport(i int) (int, error) {
	if !p.statementStart(i) {
		return i, nil
	}

	j := i + 1
	typeOnly := false
	if p.tok(j).isIdent("type") && (p.tok(j+1).isPunct("{") || p.tok(j+1).isPunct("*")) {
		if err := p.requireTypeScript(p.tok(j), "type-only exports"); err != nil {
			return 0, err
		}
		typeOnly = true
		j++
	}

	t := p.tok(j)
	switch {
	case t.isPunct("*"):
		j++
		var bindings []Binding
		if p.tok(j).isIdent("as") {
			name := p.tok(j + 1)
			if name.kind != tokIdent && name.kind != tokString {
				return 0, p.unexpected(name, "export name")
			}
			bindings = []Binding{{Name: name.value}}
			j += 2
		}
		lit, last, err := p.expectFrom(j)
		if err != nil {
			return 0, err
		}
		p.add(ItemExportFrom, lit, typeOnly, bindings)
		return last, nil

	case t.isPunct("{"):
		bindings, next, err := p.parseNamed(j)
		if err != nil {
			return 0, err
		}
		if !p.tok(next).isIdent("from") {
			// local export list
			return next - 1, nil
		}
		lit, last, err := p.expectFrom(next)
		if err != nil {
			return 0, err
		}
		p.add(ItemExportFrom, lit, typeOnly, bindings)
		return last, nil

	default:
		return i, nil
	}
}

func (p *itemParser) parseRequire(i int) int {
	if p.tok(i - 1).isIdent("function") {
		return i
	}
	if p.tok(i+1).isPunct("(") && p.tok(i+2).kind == tokString && p.tok(i+3).isPunct(")") {
		p.add(ItemRequire, p.tok(i+2), false, nil)
		return i + 3
	}
	return i
}

// expectFrom reads `from "<specifier>"` at j and returns the literal and its
// index.
func (p *itemParser) expectFrom(j int) (token, int, error) {
	if !p.tok(j).isIdent("from") {
		return token{}, 0, p.unexpected(p.tok(j), "`from`")
	}
	lit := p.tok(j + 1)
	if lit.kind != tokString {
		return token{}, 0, p.unexpected(lit, "module specifier")
	}
	return lit, j + 1, nil
}
