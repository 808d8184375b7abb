package diagnostic

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
	"golang.org/x/term"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// styles holds the color formatters for human output.
type styles struct {
	kind    *color.Color
	message *color.Color
	arrow   *color.Color
	gutter  *color.Color
	label   *color.Color
	help    *color.Color
	summary *color.Color
}

func newStyles(enabled bool) *styles {
	s := &styles{
		kind:    color.New(color.Bold, color.FgHiRed),
		message: color.New(color.Bold),
		arrow:   color.New(color.FgHiBlue),
		gutter:  color.New(color.FgHiBlue),
		label:   color.New(color.FgHiRed),
		help:    color.New(color.FgCyan),
		summary: color.New(color.Bold),
	}
	for _, c := range []*color.Color{s.kind, s.message, s.arrow, s.gutter, s.label, s.help, s.summary} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return s
}

// ColorEnabled decides whether to color output for mode "auto", "always"
// or "never". Auto colors only a terminal and honors NO_COLOR.
func ColorEnabled(mode string, f *os.File) bool {
	switch mode {
	case "always":
		return true
	case "never":
		return false
	default:
		if os.Getenv("NO_COLOR") != "" || f == nil {
			return false
		}
		return term.IsTerminal(int(f.Fd()))
	}
}

// Renderer writes diagnostics with annotated source snippets.
type Renderer struct {
	w     io.Writer
	root  string
	style *styles
}

// NewRenderer returns a renderer writing to w. Paths under root are shown
// relative to it.
func NewRenderer(w io.Writer, colorEnabled bool, root string) *Renderer {
	return &Renderer{w: w, root: root, style: newStyles(colorEnabled)}
}

// Render writes one diagnostic:
//
//	error[package-not-found]: cannot import package `lodash` because it is not a dependency
//	  --> src/x.ts:1:21
//	   |
//	 1 | import { map } from "lodash";
//	   |                     ^^^^^^^^ package imported here
//	   |
//	   = help: add `lodash` to the dependencies of `pkg-a`
func (r *Renderer) Render(d *types.Diagnostic) error {
	s := r.style
	var b strings.Builder

	fmt.Fprintf(&b, "%s%s\n", s.kind.Sprintf("error[%s]", d.Kind), s.message.Sprint(": "+d.Message))

	start := d.Location.Source.Start
	located := start.Line > 0 && (d.Snippet.Matching != "" || d.Snippet.Before != "" || d.Snippet.After != "")
	if !located {
		fmt.Fprintf(&b, "  %s %s\n", s.arrow.Sprint("-->"), r.displayPath(d.Path))
		if d.Label != "" {
			fmt.Fprintf(&b, "   %s %s\n", s.gutter.Sprint("="), d.Label)
		}
		r.writeHelp(&b, d, "   ")
		r.writeStale(&b, d, "   ")
		b.WriteString("\n")
		_, err := io.WriteString(r.w, b.String())
		return err
	}

	text := strings.TrimSuffix(d.Snippet.Before+d.Snippet.Matching+d.Snippet.After, "\n")
	lines := strings.Split(text, "\n")
	firstLine := start.Line - strings.Count(d.Snippet.Before, "\n")
	width := len(strconv.Itoa(firstLine + len(lines) - 1))
	pad := strings.Repeat(" ", width)

	fmt.Fprintf(&b, "%s%s %s:%d:%d\n", pad, s.arrow.Sprint("-->"), r.displayPath(d.Path), start.Line, start.Column)
	fmt.Fprintf(&b, "%s %s\n", pad, s.gutter.Sprint("|"))

	for i, line := range lines {
		line = strings.TrimSuffix(line, "\r")
		n := firstLine + i
		fmt.Fprintf(&b, "%*d %s %s\n", width, n, s.gutter.Sprint("|"), expandTabs(line))
		if n == start.Line {
			prefix, marked := markerParts(line, d)
			fmt.Fprintf(&b, "%s %s %s%s", pad, s.gutter.Sprint("|"),
				strings.Repeat(" ", prefix), s.label.Sprint(strings.Repeat("^", marked)))
			if d.Label != "" {
				fmt.Fprintf(&b, " %s", s.label.Sprint(d.Label))
			}
			b.WriteString("\n")
		}
	}
	fmt.Fprintf(&b, "%s %s\n", pad, s.gutter.Sprint("|"))
	r.writeHelp(&b, d, pad+" ")
	r.writeStale(&b, d, pad+" ")
	b.WriteString("\n")

	_, err := io.WriteString(r.w, b.String())
	return err
}

// RenderReport writes every diagnostic of a report followed by a summary.
func (r *Renderer) RenderReport(report *types.Report) error {
	for _, d := range report.Diagnostics() {
		if err := r.Render(d); err != nil {
			return err
		}
	}
	return r.Summary(report)
}

// Summary writes the one-line result of a run.
func (r *Renderer) Summary(report *types.Report) error {
	msg := fmt.Sprintf("Checked %d files in %d packages", report.FileCount(), len(report.Packages))
	count := report.Count()
	var line string
	switch count {
	case 0:
		line = fmt.Sprintf("%s: no boundary violations\n", msg)
	case 1:
		line = fmt.Sprintf("%s: 1 issue found\n", msg)
	default:
		line = fmt.Sprintf("%s: %d issues found\n", msg, count)
	}
	_, err := io.WriteString(r.w, r.style.summary.Sprint(line))
	return err
}

// ===== HELPERS =====

func (r *Renderer) writeHelp(b *strings.Builder, d *types.Diagnostic, indent string) {
	if d.Help == "" {
		return
	}
	fmt.Fprintf(b, "%s%s %s\n", indent, r.style.gutter.Sprint("="), r.style.help.Sprint("help: "+d.Help))
}

func (r *Renderer) writeStale(b *strings.Builder, d *types.Diagnostic, indent string) {
	if !d.Stale {
		return
	}
	fmt.Fprintf(b, "%s%s %s\n", indent, r.style.gutter.Sprint("="),
		r.style.help.Sprint("note: file changed since this run was stored; the snippet shows the checked text"))
}

func (r *Renderer) displayPath(path string) string {
	if r.root == "" {
		return path
	}
	rel, err := filepath.Rel(r.root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

// markerParts returns the display width before the span on its first line
// and the width of the span on that line (at least 1).
func markerParts(line string, d *types.Diagnostic) (prefix, marked int) {
	col := d.Location.Source.Start.Column - 1
	runes := []rune(line)
	if col > len(runes) {
		col = len(runes)
	}
	prefix = utf8.RuneCountInString(expandTabs(string(runes[:col])))

	matching, _, _ := strings.Cut(d.Snippet.Matching, "\n")
	marked = utf8.RuneCountInString(expandTabs(matching))
	if marked == 0 {
		marked = 1
	}
	return prefix, marked
}

func expandTabs(s string) string {
	return strings.ReplaceAll(s, "\t", "    ")
}
