// Package compare classifies endpoint contracts across two versions as added, removed,
// modified or breaking.
package compare

import "apiguard/internal/contract"

// ChangeType is the classification of one endpoint across versions.
type ChangeType string

const (
	ChangeAdded    ChangeType = "ADDED"
	ChangeRemoved  ChangeType = "REMOVED"
	ChangeModified ChangeType = "MODIFIED"
	ChangeBreaking ChangeType = "BREAKING"
)

// Severity grades a change for reporting
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityMedium   Severity = "MEDIUM"
	SeverityCritical Severity = "CRITICAL"
)

// Details explains a classification.
type Details struct {
	Reason        string             `json:"reason" yaml:"reason"`
	Severity      Severity           `json:"severity" yaml:"severity"`
	Before        *contract.Contract `json:"before,omitempty" yaml:"before,omitempty"`
	After         *contract.Contract `json:"after,omitempty" yaml:"after,omitempty"`
	Modifications []string           `json:"modifications,omitempty" yaml:"modifications,omitempty"`
}

// ContractChange is the result of comparing one endpoint identity across versions.
// A path change is keyed to the new identity.
type ContractChange struct {
	Endpoint   string          `json:"endpoint" yaml:"endpoint"`
	Method     contract.Method `json:"method" yaml:"method"`
	ChangeType ChangeType      `json:"changeType" yaml:"changeType"`
	Details    Details         `json:"details" yaml:"details"`
}

// Key returns the endpoint identity the change is recorded under.
func (c ContractChange) Key() contract.Key {
	return contract.Key{Method: c.Method, Path: contract.NormalizePath(c.Endpoint)}
}

// IsBreaking reports whether the change is expected to break existing callers.
func (c ContractChange) IsBreaking() bool {
	return c.ChangeType == ChangeBreaking
}

// Clone returns a deep copy so callers can reclassify without touching the original.
func (c ContractChange) Clone() ContractChange {
	out := c
	out.Details.Before = cloneContract(c.Details.Before)
	out.Details.After = cloneContract(c.Details.After)
	if c.Details.Modifications != nil {
		out.Details.Modifications = append([]string(nil), c.Details.Modifications...)
	}
	return out
}

func cloneContract(c *contract.Contract) *contract.Contract {
	if c == nil {
		return nil
	}
	cp := *c
	if c.Parameters != nil {
		cp.Parameters = append([]contract.Parameter(nil), c.Parameters...)
	}
	return &cp
}
