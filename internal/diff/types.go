// Package diff models unified diffs as files, hunks and classified lines.
package diff

// LineKind classifies one line of a hunk body.
type LineKind int

const (
	LineContext LineKind = iota
	LineAdded
	LineRemoved
)

func (k LineKind) String() string {
	switch k {
	case LineAdded:
		return "added"
	case LineRemoved:
		return "removed"
	default:
		return "context"
	}
}

// Line is one hunk line without its +/-/space marker.
// OldLine is 0 for added lines, NewLine is 0 for removed lines. Both are 0 when the line
// came from a diff without hunk headers.
type Line struct {
	Kind    LineKind
	Text    string
	OldLine int
	NewLine int
}

// Hunk is one @@ section of a file diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Lines    []Line
}

// FileDiff is the change to one file.
type FileDiff struct {
	OldPath string
	NewPath string
	IsNew   bool
	Deleted bool
	Renamed bool
	Hunks   []Hunk

	// Text is the unified diff of this file alone.
	Text string
}

// Path returns the most relevant path for the file: the old path when it was deleted.
func (f *FileDiff) Path() string {
	if f.Deleted {
		return f.OldPath
	}
	return f.NewPath
}

// Lines returns every hunk line of the file in diff order.
func (f *FileDiff) Lines() []Line {
	var out []Line
	for _, h := range f.Hunks {
		out = append(out, h.Lines...)
	}
	return out
}

// AddedLines returns the new-file line numbers of added lines.
func (f *FileDiff) AddedLines() []int {
	var out []int
	for _, h := range f.Hunks {
		for _, l := range h.Lines {
			if l.Kind == LineAdded {
				out = append(out, l.NewLine)
			}
		}
	}
	return out
}

// ParsedDiff is a parsed multi-file diff.
type ParsedDiff struct {
	Files []FileDiff
}

// File returns the diff of the file at path, matching either side.
func (d *ParsedDiff) File(path string) (*FileDiff, bool) {
	for i := range d.Files {
		f := &d.Files[i]
		if f.NewPath == path || f.OldPath == path {
			return f, true
		}
	}
	return nil, false
}
