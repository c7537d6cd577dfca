package output

import (
	"apiguard/internal/compare"
	"apiguard/internal/contract"
	"apiguard/internal/risk"
	"apiguard/internal/storage"
)

// ContractListing is the contracts extracted from one file
type ContractListing struct {
	File      string              `json:"file"`
	Style     contract.Style      `json:"style"`
	Contracts []contract.Contract `json:"contracts"`
}

// ChangeSet is the result of comparing two versions of one file
type ChangeSet struct {
	Before  string                   `json:"before"`
	After   string                   `json:"after"`
	Changes []compare.ContractChange `json:"changes"`
	Summary compare.Summary          `json:"summary"`
	Risk    risk.RiskScore           `json:"risk"`
}

// RunChanges is the stored change list of one run
type RunChanges struct {
	RunID   string                 `json:"runId"`
	Records []storage.ChangeRecord `json:"changes"`
	Summary compare.Summary        `json:"summary"`
}
