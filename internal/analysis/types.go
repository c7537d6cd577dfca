// Package analysis runs the per-file detection pipeline: extract, pick a baseline, compare,
// enhance, suppress, find consumers, persist and score.
package analysis

import (
	"context"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
	apierrors "apiguard/internal/errors"
	"apiguard/internal/risk"
	"apiguard/internal/suppress"
)

// Consumer is one call site of an endpoint outside the file that declares it.
type Consumer struct {
	FilePath   string `json:"filePath" yaml:"filePath"`
	LineNumber int    `json:"lineNumber" yaml:"lineNumber"`
	SourceRepo string `json:"sourceRepo,omitempty" yaml:"sourceRepo,omitempty"`
}

// Insight is a narrative assessment of a change list from an outside analysis.
type Insight struct {
	Summary         string   `json:"summary" yaml:"summary"`
	Risks           []string `json:"risks" yaml:"risks"`
	Recommendations []string `json:"recommendations" yaml:"recommendations"`
}

// ConsumerFinder locates callers of an endpoint.
type ConsumerFinder interface {
	FindConsumers(ctx context.Context, method contract.Method, path string) ([]Consumer, error)
}

// ChangeStore persists the changes classified for a file.
type ChangeStore interface {
	SaveChanges(ctx context.Context, runID, file string, changes []compare.ContractChange) error
}

// SnapshotStore keeps the last known contract list per file.
type SnapshotStore interface {
	LatestSnapshot(ctx context.Context, file string) ([]contract.Contract, bool, error)
	SaveSnapshot(ctx context.Context, file, contentHash string, contracts []contract.Contract) error
}

// InsightProvider produces an Insight for a file's changes.
type InsightProvider interface {
	Insights(ctx context.Context, changes []compare.ContractChange, consumers []Consumer) (*Insight, error)
}

// BeforeSource records where a file's baseline contracts came from.
type BeforeSource string

const (
	BeforeExplicit      BeforeSource = "explicit"
	BeforeSnapshot      BeforeSource = "snapshot"
	BeforeReconstructed BeforeSource = "reconstructed"
	BeforeNewFile       BeforeSource = "new-file"
	BeforeDiffOnly      BeforeSource = "diff-only"
)

// FileInput is one file to analyze.
type FileInput struct {
	Path  string
	After string
	// Before is used only when HasBefore is set.
	Before    string
	HasBefore bool
	// DiffText is this file's unified diff, if any.
	DiffText string
	IsNew    bool
	Deleted  bool
	// Err is set when the file could not be loaded; the file is reported, not analyzed.
	Err *apierrors.Error
}

// Request is one analysis run.
type Request struct {
	// RunID is generated when empty.
	RunID string
	Files []FileInput
}

// EndpointConsumers lists the callers found for one changed endpoint.
type EndpointConsumers struct {
	Endpoint  string     `json:"endpoint" yaml:"endpoint"`
	Consumers []Consumer `json:"consumers" yaml:"consumers"`
}

// FileResult is the outcome for one file.
type FileResult struct {
	File         string                   `json:"file" yaml:"file"`
	BeforeSource BeforeSource             `json:"beforeSource,omitempty" yaml:"beforeSource,omitempty"`
	Contracts    []contract.Contract      `json:"contracts" yaml:"contracts"`
	Changes      []compare.ContractChange `json:"changes" yaml:"changes"`
	Suppressed   []suppress.Suppressed    `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	Consumers    []EndpointConsumers      `json:"consumers,omitempty" yaml:"consumers,omitempty"`
	Insight      *Insight                 `json:"insight,omitempty" yaml:"insight,omitempty"`
	Risk         risk.RiskScore           `json:"risk" yaml:"risk"`
	Warnings     []string                 `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Error        *apierrors.Error         `json:"error,omitempty" yaml:"error,omitempty"`
}

// ConsumerCount returns the number of distinct call sites across all changed endpoints.
func (r FileResult) ConsumerCount() int {
	return len(uniqueConsumers(r.Consumers))
}

// Report is the outcome of a run. Files appear in request order.
type Report struct {
	RunID       string                `json:"runId" yaml:"runId"`
	Files       []FileResult          `json:"files" yaml:"files"`
	Summary     compare.Summary       `json:"summary" yaml:"summary"`
	Risk        risk.RiskScore        `json:"risk" yaml:"risk"`
	Suppressed  []suppress.Suppressed `json:"suppressed,omitempty" yaml:"suppressed,omitempty"`
	HasBreaking bool                  `json:"hasBreaking" yaml:"hasBreaking"`
}

// Changes returns every reported change across files in file order.
func (r *Report) Changes() []compare.ContractChange {
	var out []compare.ContractChange
	for _, f := range r.Files {
		out = append(out, f.Changes...)
	}
	return out
}

func uniqueConsumers(groups []EndpointConsumers) []Consumer {
	type site struct {
		repo, file string
		line       int
	}
	seen := make(map[site]bool)
	var out []Consumer
	for _, g := range groups {
		for _, c := range g.Consumers {
			k := site{c.SourceRepo, c.FilePath, c.LineNumber}
			if seen[k] {
				continue
			}
			seen[k] = true
			out = append(out, c)
		}
	}
	return out
}
