package compare

// Summary provides an overview of a change list
type Summary struct {
	TotalChanges    int            `json:"totalChanges" yaml:"totalChanges"`
	BreakingChanges int            `json:"breakingChanges" yaml:"breakingChanges"`
	Modified        int            `json:"modified" yaml:"modified"`
	Added           int            `json:"added" yaml:"added"`
	Removed         int            `json:"removed" yaml:"removed"`
	BySeverity      map[string]int `json:"bySeverity" yaml:"bySeverity"`
	SemverAdvice    string         `json:"semverAdvice" yaml:"semverAdvice"` // "major", "minor", "patch"
}

// Summarize counts changes by type and severity and suggests a version bump.
func Summarize(changes []ContractChange) Summary {
	s := Summary{
		TotalChanges: len(changes),
		BySeverity:   make(map[string]int),
	}
	for _, c := range changes {
		s.BySeverity[string(c.Details.Severity)]++
		switch c.ChangeType {
		case ChangeBreaking:
			s.BreakingChanges++
		case ChangeModified:
			s.Modified++
		case ChangeAdded:
			s.Added++
		case ChangeRemoved:
			s.Removed++
		}
	}
	s.SemverAdvice = semverAdvice(s)
	return s
}

func semverAdvice(s Summary) string {
	if s.BreakingChanges > 0 || s.Removed > 0 {
		return "major"
	}
	if s.Added > 0 || s.Modified > 0 {
		return "minor"
	}
	return "patch"
}

// HasBreaking reports whether any change is breaking.
func HasBreaking(changes []ContractChange) bool {
	for _, c := range changes {
		if c.IsBreaking() {
			return true
		}
	}
	return false
}

// Count returns the number of changes of type t.
func Count(changes []ContractChange, t ChangeType) int {
	n := 0
	for _, c := range changes {
		if c.ChangeType == t {
			n++
		}
	}
	return n
}
