package pipeline

import "github.com/evildarkarchon/scanner111/internal/analyzer"

// SeverityWeights weights each analyzer severity level's contribution to
// a request's composite score: a weighted-sum-then-threshold formula
// (S = w1*Critical + w2*Error + w3*Warning + w4*Info) applied to the
// four analyzer.Severity levels counted across one request's results.
type SeverityWeights struct {
	Critical float64
	Error    float64
	Warning  float64
	Info     float64
}

// DefaultSeverityWeights mirrors the relative ordering of
// analyzer.Severity without attempting to be load-bearing: any single
// Critical outweighs any number of Info results.
func DefaultSeverityWeights() SeverityWeights {
	return SeverityWeights{Critical: 1000, Error: 100, Warning: 10, Info: 1}
}

// SeverityThresholds classifies a composite score back into an overall
// analyzer.Severity, evaluated highest-to-lowest.
type SeverityThresholds struct {
	Critical float64
	Error    float64
	Warning  float64
}

// DefaultSeverityThresholds crosses into a category the moment a single
// result of that level is present, given DefaultSeverityWeights.
func DefaultSeverityThresholds() SeverityThresholds {
	return SeverityThresholds{Critical: 1000, Error: 100, Warning: 10}
}

// ComputeCompositeSeverity sums weighted counts of each severity level
// across results, counting only successful results (a failed analyzer's
// Severity reflects its own error, not a finding).
func ComputeCompositeSeverity(results []analyzer.Result, weights SeverityWeights) float64 {
	var score float64
	for _, r := range results {
		if !r.Success {
			continue
		}
		switch r.Severity {
		case analyzer.SeverityCritical:
			score += weights.Critical
		case analyzer.SeverityError:
			score += weights.Error
		case analyzer.SeverityWarning:
			score += weights.Warning
		default:
			score += weights.Info
		}
	}
	return score
}

// ClassifySeverity maps a composite score to an overall analyzer.Severity
// using thresholds evaluated highest-to-lowest.
func ClassifySeverity(score float64, thresholds SeverityThresholds) analyzer.Severity {
	switch {
	case score >= thresholds.Critical:
		return analyzer.SeverityCritical
	case score >= thresholds.Error:
		return analyzer.SeverityError
	case score >= thresholds.Warning:
		return analyzer.SeverityWarning
	default:
		return analyzer.SeverityInfo
	}
}

// OverallSeverity is sugar for ComputeCompositeSeverity followed by
// ClassifySeverity using the default weights and thresholds.
func OverallSeverity(results []analyzer.Result) analyzer.Severity {
	return ClassifySeverity(ComputeCompositeSeverity(results, DefaultSeverityWeights()), DefaultSeverityThresholds())
}
