package store

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/praetorian-inc/perimeter/pkg/types"
)

// runRecord holds one run in memory.
type runRecord struct {
	root     string
	created  time.Time
	packages map[int]*types.PackageReport // keyed by seq
}

// MemoryStore implements Store using in-memory data structures.
type MemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	runs   map[int64]*runRecord
}

// NewMemory creates a new in-memory store.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		nextID: 1,
		runs:   make(map[int64]*runRecord),
	}
}

// AddRun starts a run.
func (m *MemoryStore) AddRun(root string, at time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextID
	m.nextID++
	m.runs[id] = &runRecord{root: root, created: at.UTC(), packages: make(map[int]*types.PackageReport)}
	return id, nil
}

// AddPackage stores a copy of a package report.
func (m *MemoryStore) AddPackage(runID int64, seq int, p *types.PackageReport) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	run, ok := m.runs[runID]
	if !ok {
		return fmt.Errorf("run %d not found", runID)
	}
	if _, exists := run.packages[seq]; exists {
		return fmt.Errorf("package %d of run %d already stored", seq, runID)
	}
	run.packages[seq] = copyPackage(p)
	return nil
}

// GetRun rebuilds the report of a run.
func (m *MemoryStore) GetRun(runID int64) (*types.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	run, ok := m.runs[runID]
	if !ok {
		return nil, fmt.Errorf("run %d not found", runID)
	}

	report := &types.Report{Root: run.root}
	for _, seq := range sortedSeqs(run.packages) {
		report.Packages = append(report.Packages, copyPackage(run.packages[seq]))
	}
	return report, nil
}

// LatestRun returns the most recent run ID.
func (m *MemoryStore) LatestRun() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if len(m.runs) == 0 {
		return 0, ErrNoRuns
	}
	return m.nextID - 1, nil
}

// Runs lists the stored runs, oldest first.
func (m *MemoryStore) Runs() ([]Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var runs []Run
	for id := int64(1); id < m.nextID; id++ {
		rec, ok := m.runs[id]
		if !ok {
			continue
		}
		r := Run{ID: id, Root: rec.root, CreatedAt: rec.created, Packages: len(rec.packages)}
		for _, p := range rec.packages {
			r.Diagnostics += len(p.Diagnostics)
		}
		runs = append(runs, r)
	}
	return runs, nil
}

// Close is a no-op for the memory store.
func (m *MemoryStore) Close() error {
	return nil
}

func sortedSeqs(packages map[int]*types.PackageReport) []int {
	seqs := make([]int, 0, len(packages))
	for seq := range packages {
		seqs = append(seqs, seq)
	}
	sort.Ints(seqs)
	return seqs
}

// copyPackage detaches a report from the caller. Source text is dropped to
// match what the SQLite store keeps.
func copyPackage(p *types.PackageReport) *types.PackageReport {
	c := *p
	c.Diagnostics = make([]*types.Diagnostic, len(p.Diagnostics))
	for i, d := range p.Diagnostics {
		dc := *d
		dc.Source = ""
		c.Diagnostics[i] = &dc
	}
	return &c
}
