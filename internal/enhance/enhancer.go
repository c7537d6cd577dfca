// Package enhance promotes changes to BREAKING from the text of a unified diff when no
// trustworthy "before" contracts exist and the comparison saw every endpoint as new.
package enhance

import (
	"strings"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
	"apiguard/internal/diff"
)

// Enhance re-examines changes against diffText. Only endpoints in endpointsInDiff ("METHOD
// /path" keys) are considered, or, when that set is empty, endpoints the diff mentions.
// Changes already BREAKING and changes out of scope are returned as they were. The input
// slice is not modified.
func Enhance(changes []compare.ContractChange, diffText string, endpointsInDiff []string) []compare.ContractChange {
	out := make([]compare.ContractChange, len(changes))
	for i, c := range changes {
		out[i] = c.Clone()
	}
	if strings.TrimSpace(diffText) == "" {
		return out
	}

	lines := annotate(diff.Lines(diffText))
	inScope := scopeFor(endpointsInDiff, diffText, lines)

	var findings []finding
	findings = append(findings, addedRequiredParams(lines)...)
	findings = append(findings, renamedRoutes(lines)...)
	findings = append(findings, responseTypeChanges(lines)...)
	if len(findings) == 0 {
		return out
	}

	for i := range out {
		c := &out[i]
		if c.IsBreaking() || !inScope(*c) {
			continue
		}
		key := c.Key()
		var reasons []string
		seen := make(map[string]bool)
		for _, f := range findings {
			if !f.appliesTo(key.Method, key.Path) {
				continue
			}
			reason := f.describe(key.Method, key.Path)
			if seen[reason] {
				continue
			}
			seen[reason] = true
			reasons = append(reasons, reason)
		}
		if len(reasons) == 0 {
			continue
		}
		c.ChangeType = compare.ChangeBreaking
		c.Details.Severity = compare.SeverityCritical
		c.Details.Reason = strings.Join(reasons, "; ")
		c.Details.Modifications = append(c.Details.Modifications, reasons...)
	}
	return out
}

// scopeFor returns the predicate deciding which changes the diff may reclassify.
func scopeFor(endpointsInDiff []string, diffText string, lines []annotatedLine) func(compare.ContractChange) bool {
	if len(endpointsInDiff) > 0 {
		keys := make(map[string]bool, len(endpointsInDiff))
		for _, e := range endpointsInDiff {
			if k, ok := contract.ParseKey(e); ok {
				keys[k.String()] = true
			}
		}
		return func(c compare.ContractChange) bool {
			return keys[c.Key().String()]
		}
	}

	return func(c compare.ContractChange) bool {
		key := c.Key()
		if key.Path != "/" && strings.Contains(diffText, c.Endpoint) {
			return true
		}
		for _, l := range lines {
			if l.decl != nil && declares(*l.decl, key.Method, key.Path) {
				return true
			}
		}
		return false
	}
}
