package diagnostic

import (
	"sync"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// Collector accumulates the diagnostics of one package. Each discovered
// file owns a slot, so files may be processed concurrently while the
// collected order stays discovery order, then in-file order.
type Collector struct {
	mu    sync.Mutex
	slots [][]*types.Diagnostic
}

// NewCollector returns a collector with one slot per file.
func NewCollector(files int) *Collector {
	return &Collector{slots: make([][]*types.Diagnostic, files)}
}

// Add appends diagnostics to a file's slot. Slots past the initial count
// grow the collector.
func (c *Collector) Add(slot int, diags ...*types.Diagnostic) {
	if len(diags) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for slot >= len(c.slots) {
		c.slots = append(c.slots, nil)
	}
	c.slots[slot] = append(c.slots[slot], diags...)
}

// Diagnostics returns everything collected, in slot order.
func (c *Collector) Diagnostics() []*types.Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []*types.Diagnostic{}
	for _, s := range c.slots {
		out = append(out, s...)
	}
	return out
}

// Len returns the number of diagnostics collected.
func (c *Collector) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, s := range c.slots {
		n += len(s)
	}
	return n
}
