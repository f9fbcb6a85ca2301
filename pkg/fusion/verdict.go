package fusion

import "math"

// Severity bands a risk score into an operator-facing urgency level.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// Verdict is the final classification result for one request.
type Verdict struct {
	IsPhishing  bool        `json:"is_phishing"`
	Confidence  float64     `json:"confidence"`
	RiskScore   int         `json:"risk_score"`
	Severity    Severity    `json:"severity"`
	Explanation Explanation `json:"explanation"`
}

// riskScore derives the 0-100 risk from the label-relative confidence.
// Confidence belongs to the predicted label, so a confident benign result
// maps to a low risk and a confident phishing result to a high one.
func riskScore(isPhishing bool, confidence float64) int {
	p := confidence
	if !isPhishing {
		p = 1 - confidence
	}
	r := int(math.Round(p * 100))
	if r < 0 {
		return 0
	}
	if r > 100 {
		return 100
	}
	return r
}

// severityFor bands a risk score. Applied exactly once, as the final step,
// so severity always agrees with the final risk score regardless of what
// any cascade rule proposed along the way.
func severityFor(risk int) Severity {
	switch {
	case risk >= 70:
		return SeverityHigh
	case risk >= 40:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// finalize seals an outcome into a verdict: clamp confidence, derive risk,
// band severity last.
func finalize(o outcome, expl Explanation) Verdict {
	conf := clamp(o.confidence, 0, 1)
	risk := riskScore(o.isPhishing, conf)
	return Verdict{
		IsPhishing:  o.isPhishing,
		Confidence:  conf,
		RiskScore:   risk,
		Severity:    severityFor(risk),
		Explanation: expl,
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
