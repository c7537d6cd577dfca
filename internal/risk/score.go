// Package risk turns a change list and consumer counts into a bounded risk score.
package risk

import (
	"fmt"
	"math"
	"strings"

	"apiguard/internal/compare"
)

// Level is a fixed severity band over the score.
type Level string

const (
	LevelLow      Level = "LOW"
	LevelMedium   Level = "MEDIUM"
	LevelHigh     Level = "HIGH"
	LevelCritical Level = "CRITICAL"
)

// levelRank orders levels for threshold comparisons.
var levelRank = map[Level]int{LevelLow: 0, LevelMedium: 1, LevelHigh: 2, LevelCritical: 3}

// ParseLevel resolves a level name case-insensitively.
func ParseLevel(s string) (Level, bool) {
	l := Level(strings.ToUpper(strings.TrimSpace(s)))
	_, ok := levelRank[l]
	return l, ok
}

// AtLeast reports whether l is at or above threshold.
func (l Level) AtLeast(threshold Level) bool {
	return levelRank[l] >= levelRank[threshold]
}

const (
	MaxScore = 10.0

	breakingWeight = 3.0
	modifiedWeight = 1.5
	addedWeight    = 0.5

	// externalWeight and externalCap bound how much an outside analysis may add to the base.
	externalWeight = 0.5
	externalCap    = 2.0
)

// Breakdown lists the inputs a score was computed from.
type Breakdown struct {
	BreakingChanges     int `json:"breakingChanges" yaml:"breakingChanges"`
	ModifiedChanges     int `json:"modifiedChanges" yaml:"modifiedChanges"`
	AddedChanges        int `json:"addedChanges" yaml:"addedChanges"`
	ConsumerCount       int `json:"consumerCount" yaml:"consumerCount"`
	ExternalSignalCount int `json:"externalSignalCount" yaml:"externalSignalCount"`
}

// RiskScore is the risk of shipping a change list.
type RiskScore struct {
	Score       float64   `json:"score" yaml:"score"` // 0.0 - 10.0
	Level       Level     `json:"level" yaml:"level"`
	Breakdown   Breakdown `json:"breakdown" yaml:"breakdown"`
	Explanation string    `json:"explanation" yaml:"explanation"`
}

// Score rates changes given how many consumers call the affected endpoints and how many
// risks another analysis surfaced. Negative counts count as zero.
func Score(changes []compare.ContractChange, consumerCount, externalSignalCount int) RiskScore {
	b := Breakdown{
		BreakingChanges:     compare.Count(changes, compare.ChangeBreaking),
		ModifiedChanges:     compare.Count(changes, compare.ChangeModified),
		AddedChanges:        compare.Count(changes, compare.ChangeAdded),
		ConsumerCount:       max(consumerCount, 0),
		ExternalSignalCount: max(externalSignalCount, 0),
	}

	base := breakingWeight*float64(b.BreakingChanges) +
		modifiedWeight*float64(b.ModifiedChanges) +
		addedWeight*float64(b.AddedChanges)
	base += math.Min(externalWeight*float64(b.ExternalSignalCount), externalCap)

	multiplier := consumerMultiplier(b.ConsumerCount)
	raw := base * multiplier
	score := math.Min(raw, MaxScore)
	level := levelFor(score)

	return RiskScore{
		Score:       score,
		Level:       level,
		Breakdown:   b,
		Explanation: explain(level, b, multiplier, raw),
	}
}

func consumerMultiplier(consumers int) float64 {
	switch {
	case consumers > 10:
		return 1.5
	case consumers > 5:
		return 1.3
	case consumers > 0:
		return 1.1
	default:
		return 1.0
	}
}

func levelFor(score float64) Level {
	switch {
	case score >= 7.5:
		return LevelCritical
	case score >= 5.5:
		return LevelHigh
	case score >= 3.5:
		return LevelMedium
	default:
		return LevelLow
	}
}

func explain(level Level, b Breakdown, multiplier, raw float64) string {
	parts := []string{
		fmt.Sprintf("%d breaking, %d modified, %d added", b.BreakingChanges, b.ModifiedChanges, b.AddedChanges),
	}
	if b.ConsumerCount > 0 {
		parts = append(parts, fmt.Sprintf("%d consumer(s) (x%.1f)", b.ConsumerCount, multiplier))
	}
	if b.ExternalSignalCount > 0 {
		parts = append(parts, fmt.Sprintf("%d external signal(s)", b.ExternalSignalCount))
	}
	if raw > MaxScore {
		parts = append(parts, fmt.Sprintf("capped from %.2f", raw))
	}
	return fmt.Sprintf("%s risk: %s", level, strings.Join(parts, "; "))
}
