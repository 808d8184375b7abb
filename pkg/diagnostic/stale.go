package diagnostic

import (
	"os"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// MarkStale compares every diagnostic of a stored report with the file it
// was computed against and sets Stale when the file changed or is gone.
// Diagnostics without a BlobID are left alone. It returns the number of
// diagnostics marked.
func MarkStale(report *types.Report) int {
	type file struct {
		content  []byte
		readable bool
	}
	files := make(map[string]file)

	marked := 0
	for _, d := range report.Diagnostics() {
		if d.BlobID.IsZero() {
			continue
		}
		f, seen := files[d.Path]
		if !seen {
			content, err := os.ReadFile(d.Path)
			f = file{content: content, readable: err == nil}
			files[d.Path] = f
		}
		if !f.readable || !d.BlobID.Matches(f.content) {
			d.Stale = true
			marked++
		}
	}
	return marked
}
