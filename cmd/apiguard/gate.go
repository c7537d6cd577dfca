package main

import (
	"fmt"
	"strings"

	apierrors "apiguard/internal/errors"
	"apiguard/internal/risk"
)

// gateError fails a command after its output was written, for CI.
type gateError struct {
	reason string
}

func (e *gateError) Error() string { return e.reason }

// gate decides whether a finished run fails. An empty failOn fails on any breaking change;
// "never" disables the gate; a level name fails when the risk level reaches it.
func gate(failOn string, hasBreaking bool, score risk.RiskScore) error {
	switch strings.ToLower(strings.TrimSpace(failOn)) {
	case "":
		if hasBreaking {
			return &gateError{reason: "breaking changes found"}
		}
		return nil
	case "never", "none":
		return nil
	}

	if err := checkFailOn(failOn); err != nil {
		return err
	}
	threshold, _ := risk.ParseLevel(failOn)
	if score.Level.AtLeast(threshold) {
		return &gateError{reason: fmt.Sprintf("risk %s (%.1f) reaches --fail-on %s", score.Level, score.Score, threshold)}
	}
	return nil
}

// checkFailOn validates a --fail-on value before any work is done.
func checkFailOn(failOn string) error {
	switch strings.ToLower(strings.TrimSpace(failOn)) {
	case "", "never", "none":
		return nil
	}
	if _, ok := risk.ParseLevel(failOn); !ok {
		return apierrors.New(apierrors.ConfigInvalid,
			fmt.Sprintf("invalid --fail-on %q (want low, medium, high, critical or never)", failOn))
	}
	return nil
}
