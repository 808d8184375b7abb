package types

// PackageReport holds the diagnostics of one package, in file discovery order
// then in-file visitation order.
type PackageReport struct {
	Package     string        `json:"package"`
	Dir         string        `json:"dir"`
	Files       int           `json:"files"`
	Diagnostics []*Diagnostic `json:"diagnostics"`
}

// Report is the result of one run, packages in workspace order.
type Report struct {
	Root     string           `json:"root"`
	Packages []*PackageReport `json:"packages"`
}

// Diagnostics flattens the report in package, file, then visitation order.
func (r *Report) Diagnostics() []*Diagnostic {
	var all []*Diagnostic
	for _, p := range r.Packages {
		all = append(all, p.Diagnostics...)
	}
	return all
}

// Count returns the total number of diagnostics.
func (r *Report) Count() int {
	n := 0
	for _, p := range r.Packages {
		n += len(p.Diagnostics)
	}
	return n
}

// FileCount returns the number of files checked across all packages.
func (r *Report) FileCount() int {
	n := 0
	for _, p := range r.Packages {
		n += p.Files
	}
	return n
}
