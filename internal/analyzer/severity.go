package analyzer

import (
	"fmt"
	"math"
)

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityModerate Severity = "moderate"
	SeverityLow      Severity = "low"
)

// Severities lists every severity from most to least severe.
var Severities = []Severity{SeverityCritical, SeverityHigh, SeverityModerate, SeverityLow}

// Rank orders severities for sorting: critical is 0, low is 3. Unknown
// values sort last.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityHigh:
		return 1
	case SeverityModerate:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// AtLeast reports whether s is as severe as other or more.
func (s Severity) AtLeast(other Severity) bool {
	return s.Rank() <= other.Rank()
}

func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(s); v {
	case SeverityCritical, SeverityHigh, SeverityModerate, SeverityLow:
		return v, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// roundHalfUp rounds halves toward positive infinity, so -2.5 becomes -2.
func roundHalfUp(x float64) float64 {
	return math.Floor(x + 0.5)
}
