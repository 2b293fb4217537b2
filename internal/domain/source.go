package domain

// LineRange is a half-open range of 1-based tip line numbers.
type LineRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// Overlaps reports whether r shares at least one line with [start, end).
func (r LineRange) Overlaps(start, end int) bool {
	return r.Start < end && start < r.End
}

// SourceCommit is one of the branch's original commits, together with what
// it touched: every path it changed and, per path, the tip lines it was the
// last to write.
type SourceCommit struct {
	ID      RevisionID             `json:"id"`
	Message string                 `json:"message"`
	Paths   []string               `json:"paths"`
	Lines   map[string][]LineRange `json:"lines,omitempty"`
}

// Subject is the first line of the commit message.
func (c SourceCommit) Subject() string { return Subject(c.Message) }

// TouchesPath reports whether the commit changed path.
func (c SourceCommit) TouchesPath(path string) bool {
	for _, p := range c.Paths {
		if p == path {
			return true
		}
	}
	return false
}

// TouchesLines reports whether the commit last wrote any tip line in
// [start, end) of path.
func (c SourceCommit) TouchesLines(path string, start, end int) bool {
	for _, r := range c.Lines[path] {
		if r.Overlaps(start, end) {
			return true
		}
	}
	return false
}
