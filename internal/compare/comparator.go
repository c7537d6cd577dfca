package compare

import (
	"fmt"
	"strings"

	"apiguard/internal/contract"
)

// contractSet is an identity-indexed view of a contract list that remembers input order.
// The first occurrence of a repeated identity wins.
type contractSet struct {
	order []contract.Key
	byKey map[contract.Key]contract.Contract
}

func newContractSet(cs []contract.Contract) contractSet {
	s := contractSet{byKey: make(map[contract.Key]contract.Contract, len(cs))}
	for _, c := range cs {
		k := c.Key()
		if _, dup := s.byKey[k]; dup {
			continue
		}
		s.order = append(s.order, k)
		s.byKey[k] = c
	}
	return s
}

func (s contractSet) has(k contract.Key) bool {
	_, ok := s.byKey[k]
	return ok
}

// keySet is an immutable-by-convention set of identities passed between phases.
type keySet map[contract.Key]bool

func (s keySet) with(k contract.Key) keySet {
	out := make(keySet, len(s)+1)
	for existing := range s {
		out[existing] = true
	}
	out[k] = true
	return out
}

// Compare classifies every endpoint identity of before and after. Phases run in a fixed
// order (placeholder renames, path changes, removals, additions, modifications) and the
// output follows it, each phase in input order. Nil or empty lists mean "no prior state" and are never an error.
func Compare(before, after []contract.Contract) []ContractChange {
	b := newContractSet(before)
	a := newContractSet(after)

	changes, consumed, produced := detectPlaceholderRenames(b, a)
	renames, consumed, produced := detectPathChanges(b, a, consumed, produced)
	changes = append(changes, renames...)
	changes = append(changes, detectRemovals(b, a, consumed)...)
	changes = append(changes, detectAdditions(b, a, produced)...)
	changes = append(changes, detectModifications(b, a)...)
	if changes == nil {
		changes = []ContractChange{}
	}
	return changes
}

// detectPlaceholderRenames pairs each new identity with a vanished before identity of the
// same verb that serves the same URLs, which is what renaming only a placeholder does. The
// pair is diffed like any other surviving endpoint, with before's path parameters taking
// after's names by position.
func detectPlaceholderRenames(b, a contractSet) ([]ContractChange, keySet, keySet) {
	var changes []ContractChange
	consumed := keySet{}
	produced := keySet{}

	for _, ak := range a.order {
		if b.has(ak) {
			continue
		}
		for _, bk := range b.order {
			if bk.Method != ak.Method || consumed[bk] || a.has(bk) {
				continue
			}
			if !contract.SameShape(bk.Path, ak.Path) {
				continue
			}
			before, after := b.byKey[bk], a.byKey[ak]
			note := Modification{Text: fmt.Sprintf("path placeholder renamed from %s to %s", bk.Path, ak.Path)}
			mods := append([]Modification{note}, Diff(renamePathParams(before, bk.Path, ak.Path), after)...)
			changes = append(changes, classifyModified(ak, before, after, mods))
			consumed = consumed.with(bk)
			produced = produced.with(ak)
			break
		}
	}
	return changes, consumed, produced
}

// renamePathParams returns a copy of c whose path parameters are renamed from the
// placeholders of from to the placeholders of to, position by position.
func renamePathParams(c contract.Contract, from, to string) contract.Contract {
	oldNames := contract.PathParams(from)
	newNames := contract.PathParams(to)
	rename := make(map[string]string, len(oldNames))
	for i := range oldNames {
		if i < len(newNames) {
			rename[oldNames[i]] = newNames[i]
		}
	}
	out := c
	out.Parameters = make([]contract.Parameter, len(c.Parameters))
	for i, p := range c.Parameters {
		if name, ok := rename[p.Name]; ok && p.Location == contract.LocationPath {
			p.Name = name
		}
		out.Parameters[i] = p
	}
	return out
}

// detectPathChanges pairs each new identity with the first unmatched, vanished before
// identity of the same verb whose path is similar. It returns the consumed before
// identities and the after identities produced so far.
func detectPathChanges(b, a contractSet, consumed, produced keySet) ([]ContractChange, keySet, keySet) {
	var changes []ContractChange

	for _, ak := range a.order {
		if b.has(ak) || produced[ak] {
			continue
		}
		for _, bk := range b.order {
			if bk.Method != ak.Method || consumed[bk] || a.has(bk) {
				continue
			}
			if !contract.SimilarPaths(bk.Path, ak.Path) {
				continue
			}
			before, after := b.byKey[bk], a.byKey[ak]
			changes = append(changes, ContractChange{
				Endpoint:   ak.Path,
				Method:     ak.Method,
				ChangeType: ChangeBreaking,
				Details: Details{
					Reason:   fmt.Sprintf("path changed from %s to %s", bk.Path, ak.Path),
					Severity: SeverityCritical,
					Before:   cloneContract(&before),
					After:    cloneContract(&after),
				},
			})
			consumed = consumed.with(bk)
			produced = produced.with(ak)
			break
		}
	}
	return changes, consumed, produced
}

func detectRemovals(b, a contractSet, consumed keySet) []ContractChange {
	var changes []ContractChange
	for _, bk := range b.order {
		if consumed[bk] || a.has(bk) {
			continue
		}
		before := b.byKey[bk]
		changes = append(changes, ContractChange{
			Endpoint:   bk.Path,
			Method:     bk.Method,
			ChangeType: ChangeBreaking,
			Details: Details{
				Reason:   "endpoint removed",
				Severity: SeverityCritical,
				Before:   cloneContract(&before),
			},
		})
	}
	return changes
}

func detectAdditions(b, a contractSet, produced keySet) []ContractChange {
	var changes []ContractChange
	for _, ak := range a.order {
		if produced[ak] || b.has(ak) {
			continue
		}
		after := a.byKey[ak]
		changes = append(changes, ContractChange{
			Endpoint:   ak.Path,
			Method:     ak.Method,
			ChangeType: ChangeAdded,
			Details: Details{
				Reason:   "endpoint added",
				Severity: SeverityLow,
				After:    cloneContract(&after),
			},
		})
	}
	return changes
}

func detectModifications(b, a contractSet) []ContractChange {
	var changes []ContractChange
	for _, ak := range a.order {
		before, ok := b.byKey[ak]
		if !ok {
			continue
		}
		after := a.byKey[ak]
		mods := Diff(before, after)
		if len(mods) == 0 {
			continue
		}
		changes = append(changes, classifyModified(ak, before, after, mods))
	}
	return changes
}

// classifyModified turns the differences of a surviving endpoint into one record: BREAKING
// when any difference breaks callers, MODIFIED otherwise.
func classifyModified(ak contract.Key, before, after contract.Contract, mods []Modification) ContractChange {
	var breaking, all []string
	for _, m := range mods {
		all = append(all, m.Text)
		if m.Breaking {
			breaking = append(breaking, m.Text)
		}
	}
	change := ContractChange{
		Endpoint: ak.Path,
		Method:   ak.Method,
		Details: Details{
			Before:        cloneContract(&before),
			After:         cloneContract(&after),
			Modifications: all,
		},
	}
	if len(breaking) > 0 {
		change.ChangeType = ChangeBreaking
		change.Details.Severity = SeverityCritical
		change.Details.Reason = strings.Join(breaking, "; ")
	} else {
		change.ChangeType = ChangeModified
		change.Details.Severity = SeverityMedium
		change.Details.Reason = strings.Join(all, "; ")
	}
	return change
}

// Modification is one structural difference between two versions of an endpoint.
type Modification struct {
	Text     string
	Breaking bool
}

// Diff lists the structural differences between two versions of the same endpoint.
// Comparing a contract with itself yields nothing. A repeated parameter name counts once,
// as its first declaration.
func Diff(before, after contract.Contract) []Modification {
	before.Parameters = uniqueParams(before.Parameters)
	after.Parameters = uniqueParams(after.Parameters)

	var mods []Modification
	add := func(breaking bool, format string, args ...any) {
		mods = append(mods, Modification{Text: fmt.Sprintf(format, args...), Breaking: breaking})
	}

	for _, bp := range before.Parameters {
		if _, ok := after.Parameter(bp.Name); ok {
			continue
		}
		if bp.Required {
			add(true, "required parameter '%s' removed", bp.Name)
		} else {
			add(false, "optional parameter '%s' removed", bp.Name)
		}
	}
	for _, ap := range after.Parameters {
		if _, ok := before.Parameter(ap.Name); ok {
			continue
		}
		if ap.Required {
			add(true, "required parameter '%s' added", ap.Name)
		} else {
			add(false, "optional parameter '%s' added", ap.Name)
		}
	}
	for _, ap := range after.Parameters {
		bp, ok := before.Parameter(ap.Name)
		if !ok {
			continue
		}
		if bp.HasType() && ap.HasType() && bp.Type != ap.Type {
			add(true, "parameter '%s' type changed from %s to %s", ap.Name, bp.Type, ap.Type)
		}
		if bp.Location != ap.Location && bp.Location != "" && ap.Location != "" {
			add(true, "parameter '%s' moved from %s to %s", ap.Name, bp.Location, ap.Location)
		}
		switch {
		case !bp.Required && ap.Required:
			add(true, "parameter '%s' became required", ap.Name)
		case bp.Required && !ap.Required:
			add(false, "parameter '%s' became optional", ap.Name)
		}
	}
	if before.HasReturnType() && after.HasReturnType() && before.ReturnType != after.ReturnType {
		add(true, "return type changed from %s to %s", before.ReturnType, after.ReturnType)
	}
	return mods
}

func uniqueParams(params []contract.Parameter) []contract.Parameter {
	seen := make(map[string]bool, len(params))
	out := make([]contract.Parameter, 0, len(params))
	for _, p := range params {
		if seen[p.Name] {
			continue
		}
		seen[p.Name] = true
		out = append(out, p)
	}
	return out
}
