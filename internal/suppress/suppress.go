// Package suppress loads the operator's list of accepted changes and filters them out of a report.
package suppress

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/bmatcuk/doublestar/v4"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
)

// Rule accepts changes to one endpoint, or to every endpoint whose path matches a glob.
type Rule struct {
	Method string `toml:"method"` // empty or "*" matches any verb
	Path   string `toml:"path"`   // normalized path or doublestar glob, e.g. "/internal/**"
	Reason string `toml:"reason"`
	Type   string `toml:"type"` // optional change type; empty matches any
}

// File is the on-disk shape: a list of [[suppress]] tables.
type File struct {
	Suppress []Rule `toml:"suppress"`
}

// Suppressed is a change that a rule removed from the report.
type Suppressed struct {
	Change compare.ContractChange `json:"change" yaml:"change"`
	Reason string                 `json:"reason" yaml:"reason"`
}

// Set is a validated rule list. The zero value suppresses nothing.
type Set struct {
	rules []Rule
}

// Load reads a suppressions file. A missing file is an empty set.
func Load(path string) (*Set, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return &Set{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read suppressions file: %w", err)
	}
	return Parse(string(data))
}

// Parse decodes and validates suppressions TOML.
func Parse(data string) (*Set, error) {
	var f File
	if _, err := toml.Decode(data, &f); err != nil {
		return nil, fmt.Errorf("parse suppressions file: %w", err)
	}

	rules := make([]Rule, 0, len(f.Suppress))
	for i, r := range f.Suppress {
		norm, err := normalize(r)
		if err != nil {
			return nil, fmt.Errorf("suppress[%d]: %w", i, err)
		}
		rules = append(rules, norm)
	}
	return &Set{rules: rules}, nil
}

func normalize(r Rule) (Rule, error) {
	if strings.TrimSpace(r.Reason) == "" {
		return r, fmt.Errorf("reason is required")
	}
	if strings.TrimSpace(r.Path) == "" {
		return r, fmt.Errorf("path is required")
	}

	switch m := strings.TrimSpace(r.Method); m {
	case "", "*":
		r.Method = ""
	default:
		parsed, ok := contract.ParseMethod(m)
		if !ok {
			return r, fmt.Errorf("unknown method %q", r.Method)
		}
		r.Method = string(parsed)
	}

	if r.Type != "" {
		t := compare.ChangeType(strings.ToUpper(strings.TrimSpace(r.Type)))
		switch t {
		case compare.ChangeAdded, compare.ChangeRemoved, compare.ChangeModified, compare.ChangeBreaking:
			r.Type = string(t)
		default:
			return r, fmt.Errorf("unknown change type %q", r.Type)
		}
	}

	if isGlob(r.Path) {
		r.Path = braceEscaper.Replace(r.Path)
		if !doublestar.ValidatePattern(r.Path) {
			return r, fmt.Errorf("invalid path glob %q", r.Path)
		}
	} else {
		r.Path = contract.NormalizePath(r.Path)
	}
	return r, nil
}

var braceEscaper = strings.NewReplacer("{", `\{`, "}", `\}`)

// isGlob reports whether a path uses glob syntax. Braces stay literal so "{id}" placeholders
// are not mistaken for alternation.
func isGlob(p string) bool {
	return strings.ContainsAny(p, "*?[")
}

// Len returns the number of rules.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.rules)
}

// Match returns the first rule accepting c.
func (s *Set) Match(c compare.ContractChange) (Rule, bool) {
	if s == nil {
		return Rule{}, false
	}
	path := contract.NormalizePath(c.Endpoint)
	for _, r := range s.rules {
		if r.Method != "" && r.Method != string(c.Method) {
			continue
		}
		if r.Type != "" && r.Type != string(c.ChangeType) {
			continue
		}
		if isGlob(r.Path) {
			if ok, _ := doublestar.Match(r.Path, path); !ok {
				continue
			}
		} else if r.Path != path {
			continue
		}
		return r, true
	}
	return Rule{}, false
}

// Apply splits changes into those still reported and those a rule accepted. Order is kept.
func (s *Set) Apply(changes []compare.ContractChange) ([]compare.ContractChange, []Suppressed) {
	kept := make([]compare.ContractChange, 0, len(changes))
	var suppressed []Suppressed
	for _, c := range changes {
		if r, ok := s.Match(c); ok {
			suppressed = append(suppressed, Suppressed{Change: c, Reason: r.Reason})
			continue
		}
		kept = append(kept, c)
	}
	return kept, suppressed
}
