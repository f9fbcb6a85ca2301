package fusion

import (
	"github.com/phishguard-io/phishguard/pkg/indicators"
	"github.com/phishguard-io/phishguard/pkg/textproc"
)

// NestedURLVerdict is the classification of one URL found inside an email
// or SMS body, produced by running the URL cascade on it.
type NestedURLVerdict struct {
	URL        string `json:"url"`
	IsPhishing bool   `json:"is_phishing"`
	RiskScore  int    `json:"risk_score"`
}

// Explanation is the audit trail of one verdict: every signal the cascade
// consulted, projected into a bounded payload. It is assembled after the
// cascade fires and never mutated afterward; nothing here is recomputed or
// re-decided.
type Explanation struct {
	ContentType string `json:"content_type"`

	RedFlags   []string `json:"red_flags"`
	GreenFlags []string `json:"green_flags"`
	RedScore   int      `json:"red_score"`
	GreenScore int      `json:"green_score"`

	KeywordsFound        []string `json:"keywords_found,omitempty"`
	HighPriorityKeywords []string `json:"high_priority_keywords,omitempty"`

	SuspiciousURLs []NestedURLVerdict `json:"suspicious_urls,omitempty"`

	Stats textproc.Statistics `json:"text_stats"`

	// RawConfidence is the scorer's untouched probability;
	// AdjustedConfidence is what the cascade settled on. Equal only when
	// the fallback rule fired with a zero flag differential.
	RawConfidence      float64 `json:"ml_confidence"`
	AdjustedConfidence float64 `json:"adjusted_confidence"`
	MLLabel            string  `json:"ml_label,omitempty"`

	// AnalysisMethod names the cascade rule that decided the verdict.
	AnalysisMethod string `json:"analysis_method"`

	// Meta-flags, explanation-only. They summarize the counts above and
	// never participate in the cascade.
	MultipleRedFlags bool `json:"multiple_red_flags"`
	LowRiskOverall   bool `json:"low_risk_overall"`
}

const (
	maxExplainedKeywords = 10
	maxExplainedURLs     = 5
)

// buildExplanation projects the evaluated flags, artifacts, and cascade
// outcome into the response explanation. Pure projection: truncation is the
// only transformation applied.
func buildExplanation(contentType string, fs indicators.FlagSet, arts indicators.Artifacts,
	nested []NestedURLVerdict, rawConf float64, mlLabel string, o outcome) Explanation {

	return Explanation{
		ContentType:          contentType,
		RedFlags:             fs.TriggeredRed(),
		GreenFlags:           fs.TriggeredGreen(),
		RedScore:             fs.RedScore(),
		GreenScore:           fs.GreenScore(),
		KeywordsFound:        truncate(arts.Keywords, maxExplainedKeywords),
		HighPriorityKeywords: truncate(arts.HighPriorityKeywords, maxExplainedKeywords),
		SuspiciousURLs:       truncateNested(nested, maxExplainedURLs),
		Stats:                arts.Stats,
		RawConfidence:        rawConf,
		AdjustedConfidence:   o.confidence,
		MLLabel:              mlLabel,
		AnalysisMethod:       o.rule,
		MultipleRedFlags:     arts.MultipleRedFlags,
		LowRiskOverall:       arts.LowRiskOverall,
	}
}

func truncate(items []string, limit int) []string {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}

func truncateNested(items []NestedURLVerdict, limit int) []NestedURLVerdict {
	if len(items) > limit {
		return items[:limit]
	}
	return items
}
