package output

import (
	"sort"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
	"apiguard/internal/storage"
)

// SortChanges returns changes ordered by type priority, endpoint ASC, method order.
// The input is not modified.
func SortChanges(changes []compare.ContractChange) []compare.ContractChange {
	out := append([]compare.ContractChange(nil), changes...)
	sort.SliceStable(out, func(i, j int) bool {
		// Primary: type priority
		pi, pj := GetChangeTypePriority(out[i].ChangeType), GetChangeTypePriority(out[j].ChangeType)
		if pi != pj {
			return pi < pj
		}
		// Secondary: endpoint ASC
		if out[i].Endpoint != out[j].Endpoint {
			return out[i].Endpoint < out[j].Endpoint
		}
		// Tertiary: method order
		return methodRank(out[i].Method) < methodRank(out[j].Method)
	})
	return out
}

// SortRecords orders persisted changes by file ASC, then as SortChanges does.
func SortRecords(records []storage.ChangeRecord) []storage.ChangeRecord {
	out := append([]storage.ChangeRecord(nil), records...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].File != out[j].File {
			return out[i].File < out[j].File
		}
		a, b := out[i].Change, out[j].Change
		if pa, pb := GetChangeTypePriority(a.ChangeType), GetChangeTypePriority(b.ChangeType); pa != pb {
			return pa < pb
		}
		if a.Endpoint != b.Endpoint {
			return a.Endpoint < b.Endpoint
		}
		return methodRank(a.Method) < methodRank(b.Method)
	})
	return out
}

func methodRank(m contract.Method) int {
	for i, known := range contract.Methods {
		if m == known {
			return i
		}
	}
	return len(contract.Methods)
}
