package diff

import (
	"fmt"
	"strings"

	godiff "github.com/sourcegraph/go-diff/diff"
)

// GitDiffParser parses unified git diffs into structured data
type GitDiffParser struct{}

// NewGitDiffParser creates a new GitDiffParser
func NewGitDiffParser() *GitDiffParser {
	return &GitDiffParser{}
}

// Parse parses a unified diff string into a ParsedDiff
func (p *GitDiffParser) Parse(diffContent string) (*ParsedDiff, error) {
	if strings.TrimSpace(diffContent) == "" {
		return &ParsedDiff{Files: []FileDiff{}}, nil
	}

	fileDiffs, err := godiff.ParseMultiFileDiff([]byte(diffContent))
	if err != nil {
		return nil, fmt.Errorf("failed to parse diff: %w", err)
	}

	result := &ParsedDiff{
		Files: make([]FileDiff, 0, len(fileDiffs)),
	}
	for _, fd := range fileDiffs {
		result.Files = append(result.Files, p.parseFileDiff(fd))
	}
	return result, nil
}

// parseFileDiff converts a go-diff FileDiff to our FileDiff
func (p *GitDiffParser) parseFileDiff(fd *godiff.FileDiff) FileDiff {
	f := FileDiff{
		OldPath: cleanPath(fd.OrigName),
		NewPath: cleanPath(fd.NewName),
		Hunks:   make([]Hunk, 0, len(fd.Hunks)),
	}

	if fd.OrigName == "/dev/null" || fd.OrigName == "" {
		f.IsNew = true
		f.OldPath = ""
	}
	if fd.NewName == "/dev/null" || fd.NewName == "" {
		f.Deleted = true
		f.NewPath = ""
	}
	if f.OldPath != "" && f.NewPath != "" && f.OldPath != f.NewPath {
		f.Renamed = true
	}

	for _, hunk := range fd.Hunks {
		f.Hunks = append(f.Hunks, p.parseHunk(hunk))
	}
	if text, err := godiff.PrintFileDiff(fd); err == nil {
		f.Text = string(text)
	}
	return f
}

// parseHunk converts a go-diff Hunk to our Hunk, numbering each line on both sides.
func (p *GitDiffParser) parseHunk(hunk *godiff.Hunk) Hunk {
	h := Hunk{
		OldStart: int(hunk.OrigStartLine),
		OldLines: int(hunk.OrigLines),
		NewStart: int(hunk.NewStartLine),
		NewLines: int(hunk.NewLines),
	}

	oldLine, newLine := h.OldStart, h.NewStart
	oldSeen, newSeen := 0, 0
	body := strings.TrimSuffix(string(hunk.Body), "\n")
	for _, raw := range strings.Split(body, "\n") {
		if oldSeen >= h.OldLines && newSeen >= h.NewLines {
			break
		}
		if raw == "" {
			// editors strip the space from blank context lines
			raw = " "
		}
		text := strings.TrimSuffix(raw[1:], "\r")
		switch raw[0] {
		case '+':
			h.Lines = append(h.Lines, Line{Kind: LineAdded, Text: text, NewLine: newLine})
			newLine++
			newSeen++
		case '-':
			h.Lines = append(h.Lines, Line{Kind: LineRemoved, Text: text, OldLine: oldLine})
			oldLine++
			oldSeen++
		case ' ':
			h.Lines = append(h.Lines, Line{Kind: LineContext, Text: text, OldLine: oldLine, NewLine: newLine})
			oldLine++
			newLine++
			oldSeen++
			newSeen++
		case '\\':
			// "\ No newline at end of file"
		}
	}
	return h
}

// cleanPath removes the a/ or b/ prefix from git diff paths
func cleanPath(path string) string {
	if path == "" || path == "/dev/null" {
		return path
	}
	if strings.HasPrefix(path, "a/") || strings.HasPrefix(path, "b/") {
		return path[2:]
	}
	return path
}

// ParseGitDiff is a convenience function to parse a git diff string
func ParseGitDiff(diffContent string) (*ParsedDiff, error) {
	return NewGitDiffParser().Parse(diffContent)
}

// Lines returns every changed or context line of a diff. Text that go-diff cannot read as a
// multi-file diff (a bare hunk, a pasted snippet) is scanned line by line for +/- markers.
func Lines(diffText string) []Line {
	if parsed, err := ParseGitDiff(diffText); err == nil && len(parsed.Files) > 0 {
		var out []Line
		for i := range parsed.Files {
			out = append(out, parsed.Files[i].Lines()...)
		}
		if len(out) > 0 {
			return out
		}
	}
	return rawLines(diffText)
}

func rawLines(diffText string) []Line {
	var out []Line
	for _, raw := range strings.Split(diffText, "\n") {
		raw = strings.TrimSuffix(raw, "\r")
		switch {
		case strings.HasPrefix(raw, "+++"), strings.HasPrefix(raw, "---"),
			strings.HasPrefix(raw, "@@"), strings.HasPrefix(raw, "diff "), strings.HasPrefix(raw, "index "):
			continue
		case strings.HasPrefix(raw, "+"):
			out = append(out, Line{Kind: LineAdded, Text: raw[1:]})
		case strings.HasPrefix(raw, "-"):
			out = append(out, Line{Kind: LineRemoved, Text: raw[1:]})
		case strings.HasPrefix(raw, " "):
			out = append(out, Line{Kind: LineContext, Text: raw[1:]})
		}
	}
	return out
}

// ReconstructOriginal reverse-applies a file diff to the new file contents and returns the
// old contents. It reports false when the hunks do not line up with after, or when the file
// did not exist before the change.
func ReconstructOriginal(after string, fd *FileDiff) (string, bool) {
	if fd == nil || fd.IsNew {
		return "", false
	}

	trailingNewline := after == "" || strings.HasSuffix(after, "\n")
	var current []string
	if after != "" {
		current = strings.Split(strings.TrimSuffix(after, "\n"), "\n")
	}

	var old []string
	cursor := 0
	for _, h := range fd.Hunks {
		start := h.NewStart - 1
		if h.NewLines == 0 {
			start = h.NewStart
		}
		if start < cursor || start > len(current) {
			return "", false
		}
		old = append(old, current[cursor:start]...)
		cursor = start

		for _, l := range h.Lines {
			switch l.Kind {
			case LineRemoved:
				old = append(old, l.Text)
			case LineAdded, LineContext:
				if cursor >= len(current) || !sameLine(current[cursor], l.Text) {
					return "", false
				}
				if l.Kind == LineContext {
					old = append(old, current[cursor])
				}
				cursor++
			}
		}
	}
	old = append(old, current[cursor:]...)

	if len(old) == 0 {
		return "", true
	}
	out := strings.Join(old, "\n")
	if trailingNewline {
		out += "\n"
	}
	return out, true
}

func sameLine(a, b string) bool {
	return strings.TrimRight(a, " \t\r") == strings.TrimRight(b, " \t\r")
}

// IsSourceFile checks if the file is a source code file (not generated, vendor, etc.)
func IsSourceFile(path string) bool {
	skipPrefixes := []string{
		"vendor/",
		"node_modules/",
		".git/",
		"testdata/",
	}
	for _, prefix := range skipPrefixes {
		if strings.HasPrefix(path, prefix) || strings.Contains(path, "/"+prefix) {
			return false
		}
	}

	skipSuffixes := []string{
		".sum",
		".lock",
		".min.js",
		".min.css",
		".map",
		".pb.go",
		"_generated.go",
		"-lock.json", // package-lock.json, etc.
	}
	for _, suffix := range skipSuffixes {
		if strings.HasSuffix(path, suffix) {
			return false
		}
	}
	return true
}

// FilterSourceFiles returns only source code files from a ParsedDiff
func FilterSourceFiles(d *ParsedDiff) *ParsedDiff {
	filtered := &ParsedDiff{
		Files: make([]FileDiff, 0, len(d.Files)),
	}
	for _, f := range d.Files {
		if IsSourceFile(f.Path()) {
			filtered.Files = append(filtered.Files, f)
		}
	}
	return filtered
}
