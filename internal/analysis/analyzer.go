package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"apiguard/internal/compare"
	"apiguard/internal/contract"
	"apiguard/internal/diff"
	"apiguard/internal/enhance"
	apierrors "apiguard/internal/errors"
	"apiguard/internal/risk"
	"apiguard/internal/slogutil"
	"apiguard/internal/storage"
	"apiguard/internal/suppress"
)

// Options configures an Analyzer. Nil collaborators are skipped.
type Options struct {
	Concurrency  int
	MaxFileBytes int64

	Consumers    ConsumerFinder
	Changes      ChangeStore
	Snapshots    SnapshotStore
	Insights     InsightProvider
	Suppressions *suppress.Set

	// SaveSnapshots records each file's after contracts as its new baseline.
	SaveSnapshots bool

	Logger *slog.Logger
}

// Analyzer runs requests. It is safe for concurrent use if its collaborators are.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
}

// New creates an Analyzer.
func New(opts Options) *Analyzer {
	if opts.Concurrency < 1 {
		opts.Concurrency = 1
	}
	logger := opts.Logger
	if logger == nil {
		logger = slogutil.NewDiscardLogger()
	}
	return &Analyzer{opts: opts, logger: logger}
}

// Analyze processes every file in req. Per-file failures are recorded on that file's result;
// only cancellation of ctx fails the run.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	runID := req.RunID
	if runID == "" {
		runID = storage.NewRunID()
	}
	logger := a.logger.With("run", runID)
	logger.Info("Starting analysis", "files", len(req.Files))

	results := make([]FileResult, len(req.Files))

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(a.opts.Concurrency)
	for i, in := range req.Files {
		i, in := i, in
		g.Go(func() error {
			if err := gCtx.Err(); err != nil {
				return err
			}
			results[i] = a.analyzeFile(gCtx, logger, runID, in)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	report := assemble(runID, results)
	logger.Info("Analysis complete",
		"changes", report.Summary.TotalChanges,
		"breaking", report.Summary.BreakingChanges,
		"risk", report.Risk.Level,
	)
	return report, nil
}

func assemble(runID string, results []FileResult) *Report {
	report := &Report{RunID: runID, Files: results}

	var (
		all       []compare.ContractChange
		consumers []EndpointConsumers
		external  int
	)
	for _, r := range results {
		all = append(all, r.Changes...)
		consumers = append(consumers, r.Consumers...)
		report.Suppressed = append(report.Suppressed, r.Suppressed...)
		external += r.Risk.Breakdown.ExternalSignalCount
	}

	report.Summary = compare.Summarize(all)
	report.Risk = risk.Score(all, len(uniqueConsumers(consumers)), external)
	report.HasBreaking = compare.HasBreaking(all)
	return report
}

func (a *Analyzer) analyzeFile(ctx context.Context, logger *slog.Logger, runID string, in FileInput) FileResult {
	logger = logger.With("file", in.Path)
	res := FileResult{File: in.Path, Changes: []compare.ContractChange{}}

	err := in.Err
	if err == nil {
		err = a.checkSize(in)
	}
	if err != nil {
		logger.Warn("Skipping file", "error", err)
		res.Error = err
		res.Contracts = []contract.Contract{}
		res.Risk = risk.Score(nil, 0, 0)
		return res
	}

	after := contract.Extract(in.Path, in.After)
	if after == nil {
		after = []contract.Contract{}
	}
	res.Contracts = after

	before, source := a.baseline(ctx, logger, in, &res)
	res.BeforeSource = source
	logger.Debug("Baseline selected", "source", source, "before", len(before), "after", len(after))

	changes := compare.Compare(before, after)
	if source == BeforeDiffOnly && in.DiffText != "" {
		changes = enhance.Enhance(changes, in.DiffText, enhance.EndpointsInDiff(after, in.DiffText))
	}

	changes, res.Suppressed = a.opts.Suppressions.Apply(changes)
	res.Changes = changes

	res.Consumers = a.findConsumers(ctx, logger, changes, &res)
	flat := uniqueConsumers(res.Consumers)

	external := 0
	if a.opts.Insights != nil && len(changes) > 0 {
		insight, err := a.opts.Insights.Insights(ctx, changes, flat)
		if err != nil {
			a.warn(logger, &res, "insights unavailable", err)
		} else if insight != nil {
			res.Insight = insight
			external = len(insight.Risks)
		}
	}

	a.persist(ctx, logger, runID, in, after, &res)

	res.Risk = risk.Score(changes, len(flat), external)
	return res
}

func (a *Analyzer) checkSize(in FileInput) *apierrors.Error {
	limit := a.opts.MaxFileBytes
	if limit <= 0 {
		return nil
	}
	for _, part := range []struct {
		what string
		n    int
	}{{"source", len(in.After)}, {"baseline", len(in.Before)}, {"diff", len(in.DiffText)}} {
		if int64(part.n) > limit {
			return apierrors.New(apierrors.InputTooLarge,
				fmt.Sprintf("%s %s is %d bytes, limit is %d", in.Path, part.what, part.n, limit)).
				WithDetails(map[string]int64{"size": int64(part.n), "limit": limit})
		}
	}
	return nil
}

// baseline picks the before contracts: explicit text, then a stored snapshot, then the file
// reconstructed from its diff. Without any of those the file is new or diff-only.
func (a *Analyzer) baseline(ctx context.Context, logger *slog.Logger, in FileInput, res *FileResult) ([]contract.Contract, BeforeSource) {
	if in.HasBefore {
		return contract.Extract(in.Path, in.Before), BeforeExplicit
	}

	if a.opts.Snapshots != nil {
		snap, ok, err := a.opts.Snapshots.LatestSnapshot(ctx, in.Path)
		switch {
		case err != nil:
			a.warn(logger, res, "snapshot lookup failed", err)
		case ok:
			return snap, BeforeSnapshot
		}
	}

	if in.IsNew {
		return nil, BeforeNewFile
	}

	if in.DiffText != "" {
		if fd := fileDiffFor(in); fd != nil {
			if original, ok := diff.ReconstructOriginal(in.After, fd); ok {
				return contract.Extract(in.Path, original), BeforeReconstructed
			}
			logger.Debug("Diff does not apply to the current file, falling back to diff-only")
		}
	}
	return nil, BeforeDiffOnly
}

func fileDiffFor(in FileInput) *diff.FileDiff {
	parsed, err := diff.ParseGitDiff(in.DiffText)
	if err != nil || len(parsed.Files) == 0 {
		return nil
	}
	if fd, ok := parsed.File(in.Path); ok {
		return fd
	}
	if len(parsed.Files) == 1 {
		return &parsed.Files[0]
	}
	return nil
}

func (a *Analyzer) findConsumers(ctx context.Context, logger *slog.Logger, changes []compare.ContractChange, res *FileResult) []EndpointConsumers {
	if a.opts.Consumers == nil {
		return nil
	}
	var out []EndpointConsumers
	for _, c := range changes {
		if c.ChangeType == compare.ChangeAdded {
			continue
		}
		found, err := a.opts.Consumers.FindConsumers(ctx, c.Method, c.Endpoint)
		if err != nil {
			a.warn(logger, res, "consumer scan failed",
				apierrors.Wrap(apierrors.ConsumerScanFailed, "find consumers of "+c.Key().String(), err))
			return out
		}
		if len(found) > 0 {
			out = append(out, EndpointConsumers{Endpoint: c.Key().String(), Consumers: found})
		}
	}
	return out
}

func (a *Analyzer) persist(ctx context.Context, logger *slog.Logger, runID string, in FileInput, after []contract.Contract, res *FileResult) {
	if a.opts.Changes != nil && len(res.Changes) > 0 {
		if err := a.opts.Changes.SaveChanges(ctx, runID, in.Path, res.Changes); err != nil {
			a.warn(logger, res, "saving changes failed",
				apierrors.Wrap(apierrors.StorageUnavailable, "save changes", err))
		}
	}
	if a.opts.SaveSnapshots && a.opts.Snapshots != nil && !in.Deleted {
		hash := storage.ContentHash([]byte(in.After))
		if err := a.opts.Snapshots.SaveSnapshot(ctx, in.Path, hash, after); err != nil {
			a.warn(logger, res, "saving snapshot failed",
				apierrors.Wrap(apierrors.StorageUnavailable, "save snapshot", err))
		}
	}
}

func (a *Analyzer) warn(logger *slog.Logger, res *FileResult, msg string, err error) {
	logger.Warn(msg, "error", err)
	res.Warnings = append(res.Warnings, fmt.Sprintf("%s: %v", msg, err))
}
