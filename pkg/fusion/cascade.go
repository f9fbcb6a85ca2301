package fusion

import (
	"github.com/phishguard-io/phishguard/pkg/indicators"
	"github.com/phishguard-io/phishguard/pkg/scorer"
)

// outcome is what a cascade rule decides: label, confidence, and the rule
// name recorded as the analysis method.
type outcome struct {
	isPhishing bool
	confidence float64
	rule       string
}

// rule is one guarded entry in a cascade. Guards are pure predicates over
// the evidence; the first true guard wins and later rules are skipped. The
// ordering of each rule table is the decision procedure: hard evidence
// first, aggregate trust second, ML arbitration last.
type rule[E any] struct {
	name    string
	guard   func(*E) bool
	outcome func(*E) outcome
}

// runCascade evaluates rules in order and returns the first firing outcome.
// Every table ends in an always-true fallback, so a rule always fires.
func runCascade[E any](rules []rule[E], ev *E) outcome {
	for _, r := range rules {
		if r.guard(ev) {
			o := r.outcome(ev)
			o.rule = r.name
			return o
		}
	}
	// Unreachable while the fallback rule stays in the table.
	return outcome{rule: "no_rule_fired"}
}

func phishing(conf float64) outcome { return outcome{isPhishing: true, confidence: conf} }
func benign(conf float64) outcome   { return outcome{isPhishing: false, confidence: conf} }

// scaled returns base plus step per unit of evidence above the rule's
// threshold, capped. Keeps confidence monotone in the flag count so more
// evidence never reads as less risk.
func scaled(base, step float64, units int, limit float64) float64 {
	if units < 0 {
		units = 0
	}
	conf := base + step*float64(units)
	if conf > limit {
		return limit
	}
	return conf
}

func flagOn(flags []indicators.Flag, name string) bool {
	for _, f := range flags {
		if f.Name == name {
			return f.Value
		}
	}
	return false
}

// =============================================================================
// EMAIL CASCADE
// =============================================================================

// emailEvidence is everything the email cascade consults, precomputed once
// so guards stay cheap and side-effect free.
type emailEvidence struct {
	red, green   int
	keywords     int
	highPriority int
	urlCount     int

	senderTrusted    bool
	suspiciousSender bool
	urgency          bool
	genericGreeting  bool
	personalGreeting bool
	sensitiveRequest bool
	loginStyleLinks  bool

	nested          []NestedURLVerdict
	anyNestedPhish  bool // any nested URL labeled phishing
	highRiskNested  bool // nested phishing at risk >= 70

	ml scorer.Result
}

func buildEmailEvidence(fs indicators.FlagSet, arts indicators.Artifacts,
	nested []NestedURLVerdict, ml scorer.Result) *emailEvidence {

	ev := &emailEvidence{
		red:              fs.RedScore(),
		green:            fs.GreenScore(),
		keywords:         len(arts.Keywords),
		highPriority:     len(arts.HighPriorityKeywords),
		urlCount:         len(arts.URLs),
		senderTrusted:    flagOn(fs.Green, "trusted_sender_domain"),
		urgency:          flagOn(fs.Red, "urgency_language") || flagOn(fs.Red, "urgent_subject"),
		genericGreeting:  flagOn(fs.Red, "generic_greeting"),
		personalGreeting: flagOn(fs.Green, "personalized_greeting"),
		sensitiveRequest: flagOn(fs.Red, "sensitive_info_request"),
		loginStyleLinks:  flagOn(fs.Red, "login_style_link"),
		nested:           nested,
		ml:               ml,
	}
	ev.suspiciousSender = flagOn(fs.Red, "lookalike_sender_domain") ||
		flagOn(fs.Red, "suspicious_sender_tld")
	for _, n := range nested {
		if n.IsPhishing {
			ev.anyNestedPhish = true
			if n.RiskScore >= 70 {
				ev.highRiskNested = true
			}
		}
	}
	return ev
}

// emailCascade is the email decision procedure. Order is the contract:
// nested-URL and keyword overrides outrank the graduated benign patterns,
// which outrank the red-flag overrides, which outrank the ML fallback.
var emailCascade = []rule[emailEvidence]{
	{
		name:  "nested_url_high_risk",
		guard: func(e *emailEvidence) bool { return e.highRiskNested },
		outcome: func(e *emailEvidence) outcome { return phishing(0.95) },
	},
	{
		name: "high_priority_keywords",
		guard: func(e *emailEvidence) bool {
			return e.highPriority >= 2 && !e.senderTrusted
		},
		outcome: func(e *emailEvidence) outcome {
			return phishing(scaled(0.90, 0.01, e.highPriority-2, 0.97))
		},
	},
	{
		name: "trusted_sender_strong",
		guard: func(e *emailEvidence) bool {
			return e.senderTrusted && e.green >= 12 && e.red <= 5 &&
				e.keywords <= 3 && !e.anyNestedPhish
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.90) },
	},
	{
		name: "benign_pattern_strong",
		guard: func(e *emailEvidence) bool {
			return e.green >= 10 && e.red <= 4 && !e.anyNestedPhish &&
				!e.sensitiveRequest && e.keywords <= 3 && !e.urgency
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.88) },
	},
	{
		name: "benign_pattern_moderate",
		guard: func(e *emailEvidence) bool {
			return e.green >= 8 && e.red <= 4 && !e.anyNestedPhish &&
				!e.sensitiveRequest && e.keywords <= 3
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.85) },
	},
	{
		name: "benign_pattern_relaxed",
		guard: func(e *emailEvidence) bool {
			return e.green >= 8 && e.red <= 5 && !e.anyNestedPhish && !e.sensitiveRequest
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.82) },
	},
	{
		name: "benign_pattern_basic",
		guard: func(e *emailEvidence) bool {
			return e.green >= 6 && e.red <= 2 && !e.anyNestedPhish
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.80) },
	},
	{
		name: "benign_pattern_minimal",
		guard: func(e *emailEvidence) bool {
			return e.green >= 5 && e.red <= 1 && e.keywords == 0
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.80) },
	},
	{
		name:  "red_flag_override",
		guard: func(e *emailEvidence) bool { return e.red >= 3 },
		outcome: func(e *emailEvidence) outcome {
			return phishing(scaled(0.80, 0.01, e.red-3, 0.94))
		},
	},
	{
		name: "overwhelming_evidence",
		guard: func(e *emailEvidence) bool {
			return e.red >= 15 || e.keywords > 3
		},
		outcome: func(e *emailEvidence) outcome { return phishing(0.85) },
	},
	{
		name: "green_dominance",
		guard: func(e *emailEvidence) bool {
			return e.green >= 15 && e.red <= 3
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.80) },
	},
	{
		name: "trusted_personal",
		guard: func(e *emailEvidence) bool {
			return e.senderTrusted && e.personalGreeting &&
				!e.sensitiveRequest && e.urlCount == 0
		},
		outcome: func(e *emailEvidence) outcome { return benign(0.90) },
	},
	{
		name: "suspicious_composite",
		guard: func(e *emailEvidence) bool {
			return e.suspiciousSender && e.urgency && e.genericGreeting && e.loginStyleLinks
		},
		outcome: func(e *emailEvidence) outcome { return phishing(0.90) },
	},
	{
		name:  "ml_fallback",
		guard: func(e *emailEvidence) bool { return true },
		outcome: func(e *emailEvidence) outcome {
			return mlAdjusted(e.ml, e.green, e.red, 0.02)
		},
	},
}

// mlAdjusted nudges the scorer's confidence by the flag differential: green
// dominance strengthens a benign prediction and weakens a phishing one,
// red dominance the reverse. The label itself is never flipped here.
func mlAdjusted(ml scorer.Result, green, red int, step float64) outcome {
	diff := float64(green-red) * step
	conf := ml.Confidence
	if ml.IsPhishing {
		conf -= diff
	} else {
		conf += diff
	}
	return outcome{isPhishing: ml.IsPhishing, confidence: clamp(conf, 0.1, 0.99)}
}

// =============================================================================
// SMS CASCADE
// =============================================================================

type smsEvidence struct {
	red, green     int
	anyNestedPhish bool
	ml             scorer.Result
}

func buildSMSEvidence(fs indicators.FlagSet, nested []NestedURLVerdict, ml scorer.Result) *smsEvidence {
	ev := &smsEvidence{red: fs.RedScore(), green: fs.GreenScore(), ml: ml}
	for _, n := range nested {
		if n.IsPhishing {
			ev.anyNestedPhish = true
			break
		}
	}
	return ev
}

// smsCascade mirrors the email procedure at SMS scale: any phishing link is
// decisive on its own because an SMS carries almost no exonerating context.
var smsCascade = []rule[smsEvidence]{
	{
		name:    "nested_url_phishing",
		guard:   func(e *smsEvidence) bool { return e.anyNestedPhish },
		outcome: func(e *smsEvidence) outcome { return phishing(0.95) },
	},
	{
		name:  "red_flag_override",
		guard: func(e *smsEvidence) bool { return e.red > 8 },
		outcome: func(e *smsEvidence) outcome {
			return phishing(scaled(0.85, 0.01, e.red-9, 0.94))
		},
	},
	{
		name: "green_dominance",
		guard: func(e *smsEvidence) bool {
			return e.green > 15 && e.red < 3
		},
		outcome: func(e *smsEvidence) outcome { return benign(0.85) },
	},
	{
		name:  "ml_fallback",
		guard: func(e *smsEvidence) bool { return true },
		outcome: func(e *smsEvidence) outcome {
			return mlAdjusted(e.ml, e.green, e.red, 0.01)
		},
	},
}

// =============================================================================
// URL CASCADE
// =============================================================================

type urlEvidence struct {
	red, green int
	trusted    bool
	ml         scorer.Result
}

func buildURLEvidence(fs indicators.FlagSet, ml scorer.Result) *urlEvidence {
	return &urlEvidence{
		red:     fs.RedScore(),
		green:   fs.GreenScore(),
		trusted: flagOn(fs.Green, "trusted_domain"),
		ml:      ml,
	}
}

var urlCascade = []rule[urlEvidence]{
	{
		name:  "overwhelming_red_flags",
		guard: func(e *urlEvidence) bool { return e.red >= 7 },
		outcome: func(e *urlEvidence) outcome {
			return phishing(scaled(0.95, 0.005, e.red-7, 0.99))
		},
	},
	{
		name:  "strong_red_flags",
		guard: func(e *urlEvidence) bool { return e.red >= 5 },
		outcome: func(e *urlEvidence) outcome {
			return phishing(scaled(0.85, 0.01, e.red-5, 0.94))
		},
	},
	{
		name: "trusted_domain",
		guard: func(e *urlEvidence) bool {
			return e.trusted && e.green >= 30 && e.red <= 2
		},
		outcome: func(e *urlEvidence) outcome { return benign(0.90) },
	},
	{
		name: "green_dominance",
		guard: func(e *urlEvidence) bool {
			return e.green >= 35 && e.red <= 3
		},
		outcome: func(e *urlEvidence) outcome { return benign(0.80) },
	},
	{
		name:  "discounted_ml",
		guard: func(e *urlEvidence) bool { return e.red >= 3 },
		outcome: func(e *urlEvidence) outcome {
			// Moderate red evidence erodes trust in a benign prediction
			// but adds nothing to a phishing one.
			if e.ml.IsPhishing {
				return outcome{isPhishing: true, confidence: e.ml.Confidence}
			}
			return outcome{isPhishing: false, confidence: e.ml.Confidence * 0.7}
		},
	},
	{
		name:  "ml_fallback",
		guard: func(e *urlEvidence) bool { return true },
		outcome: func(e *urlEvidence) outcome {
			return outcome{isPhishing: e.ml.IsPhishing, confidence: e.ml.Confidence}
		},
	},
}
