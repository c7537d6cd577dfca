package output

import "apiguard/internal/compare"

// ChangeTypePriority defines the ordering priority for change types
// Lower numbers have higher priority (sorted first)
var ChangeTypePriority = map[compare.ChangeType]int{
	compare.ChangeBreaking: 1,
	compare.ChangeRemoved:  2,
	compare.ChangeModified: 3,
	compare.ChangeAdded:    4,
}

// GetChangeTypePriority returns the priority for a given change type
// Unknown types sort last
func GetChangeTypePriority(t compare.ChangeType) int {
	if priority, ok := ChangeTypePriority[t]; ok {
		return priority
	}
	return len(ChangeTypePriority) + 1
}
