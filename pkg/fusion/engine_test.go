package fusion

import (
	"errors"
	"testing"

	"github.com/phishguard-io/phishguard/pkg/indicators"
	"github.com/phishguard-io/phishguard/pkg/scorer"
)

// Deterministic scorer stubs. The cascade is the unit under test; the
// statistical model is replaced with fixed predictions.
type stubText struct {
	res scorer.Result
	err error
}

func (s stubText) Classify(string) (scorer.Result, error) { return s.res, s.err }

type stubURL struct {
	res scorer.Result
	err error
}

func (s stubURL) Classify([]float32) (scorer.Result, error) { return s.res, s.err }

func benignStub() scorer.Result {
	return scorer.Result{Label: "legitimate", IsPhishing: false, Confidence: 0.6}
}

func phishingStub() scorer.Result {
	return scorer.Result{Label: "phishing", IsPhishing: true, Confidence: 0.7}
}

func newTestService(text scorer.Result) *Service {
	return NewService(
		stubText{res: text},
		stubText{res: text},
		stubURL{res: benignStub()},
	)
}

func TestPhishingEmailScenario(t *testing.T) {
	svc := newTestService(phishingStub())
	v, err := svc.ClassifyEmail(indicators.EmailInput{
		Subject:     "URGENT: Verify Your Account Now!",
		SenderEmail: "security@fake-bank.tk",
		Content: `Dear Customer,

We detected unusual activity. Your account has been suspended.
You must verify your identity immediately within 24 hours.

Click here: http://secure-verify-account.tk/login

Enter your password to confirm.`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsPhishing {
		t.Fatal("verdict is benign, want phishing")
	}
	if v.Severity != SeverityHigh {
		t.Errorf("severity = %s, want high", v.Severity)
	}
	if v.Explanation.RedScore < 15 {
		t.Errorf("red score = %d (%v), want >= 15", v.Explanation.RedScore, v.Explanation.RedFlags)
	}
	if len(v.Explanation.SuspiciousURLs) != 1 || !v.Explanation.SuspiciousURLs[0].IsPhishing {
		t.Errorf("nested URL verdicts = %+v, want one phishing", v.Explanation.SuspiciousURLs)
	}
	if v.Explanation.AnalysisMethod != "nested_url_high_risk" {
		t.Errorf("analysis method = %s, want nested_url_high_risk", v.Explanation.AnalysisMethod)
	}
}

func TestBenignOrderEmailScenario(t *testing.T) {
	svc := newTestService(benignStub())
	v, err := svc.ClassifyEmail(indicators.EmailInput{
		Subject:       "Your Order #12345 has shipped",
		SenderEmail:   "orders@amazon.com",
		SenderDisplay: "Amazon Orders",
		Content: `Hi Jordan,

Thank you for your purchase. Your order #12345 has shipped and tracking
information is available in your account dashboard.

Best regards,
Customer Service`,
	})
	if err != nil {
		t.Fatal(err)
	}
	if v.IsPhishing {
		t.Fatalf("verdict is phishing (%v), want benign", v.Explanation.RedFlags)
	}
	if v.Severity != SeverityLow {
		t.Errorf("severity = %s (risk %d), want low", v.Severity, v.RiskScore)
	}
	if v.Explanation.AnalysisMethod != "trusted_sender_strong" {
		t.Errorf("analysis method = %s, want trusted_sender_strong", v.Explanation.AnalysisMethod)
	}
}

func TestScamSMSScenario(t *testing.T) {
	svc := newTestService(benignStub())
	v, err := svc.ClassifySMS("CONGRATULATIONS! You've won a $1000 Walmart gift card. Claim now: bit.ly/claim-prize-now")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsPhishing {
		t.Fatalf("verdict is benign (%v), want phishing", v.Explanation.GreenFlags)
	}
	if v.Explanation.RedScore <= 8 {
		t.Errorf("red score = %d (%v), want > 8", v.Explanation.RedScore, v.Explanation.RedFlags)
	}
	if v.Severity != SeverityHigh {
		t.Errorf("severity = %s (risk %d), want high", v.Severity, v.RiskScore)
	}
}

func TestTrustedURLScenario(t *testing.T) {
	svc := newTestService(benignStub())
	v, err := svc.ClassifyURL("https://github.com/settings/security")
	if err != nil {
		t.Fatal(err)
	}
	if v.IsPhishing {
		t.Fatalf("verdict is phishing (%v), want benign", v.Explanation.RedFlags)
	}
	if v.Severity != SeverityLow {
		t.Errorf("severity = %s, want low", v.Severity)
	}
	if v.Explanation.GreenScore < 30 {
		t.Errorf("green score = %d, want >= 30", v.Explanation.GreenScore)
	}
	if v.Explanation.AnalysisMethod != "trusted_domain" {
		t.Errorf("analysis method = %s, want trusted_domain", v.Explanation.AnalysisMethod)
	}
}

func TestIPLoginURLScenario(t *testing.T) {
	svc := newTestService(benignStub())
	v, err := svc.ClassifyURL("http://192.168.1.1/paypal-login.php")
	if err != nil {
		t.Fatal(err)
	}
	if !v.IsPhishing {
		t.Fatalf("verdict is benign, want phishing (%v)", v.Explanation.RedFlags)
	}
	if v.Severity != SeverityHigh {
		t.Errorf("severity = %s (risk %d), want high", v.Severity, v.RiskScore)
	}
	found := false
	for _, f := range v.Explanation.RedFlags {
		if f == "has_ip_address" {
			found = true
		}
	}
	if !found {
		t.Errorf("has_ip_address not in red flags: %v", v.Explanation.RedFlags)
	}
}

func TestSeverityBandingInvariant(t *testing.T) {
	tests := []struct {
		risk int
		want Severity
	}{
		{0, SeverityLow}, {39, SeverityLow},
		{40, SeverityMedium}, {69, SeverityMedium},
		{70, SeverityHigh}, {100, SeverityHigh},
	}
	for _, tt := range tests {
		if got := severityFor(tt.risk); got != tt.want {
			t.Errorf("severityFor(%d) = %s, want %s", tt.risk, got, tt.want)
		}
	}
}

func TestRiskScoreDerivation(t *testing.T) {
	tests := []struct {
		isPhishing bool
		conf       float64
		want       int
	}{
		{true, 0.95, 95},
		{true, 0.5, 50},
		{false, 0.9, 10},
		{false, 0.85, 15},
		{false, 0.6, 40},
	}
	for _, tt := range tests {
		if got := riskScore(tt.isPhishing, tt.conf); got != tt.want {
			t.Errorf("riskScore(%v, %v) = %d, want %d", tt.isPhishing, tt.conf, got, tt.want)
		}
	}
}

func TestVerdictSeverityAlwaysMatchesRisk(t *testing.T) {
	// Final banding wins no matter what confidence a rule produced.
	for _, conf := range []float64{0.0, 0.3, 0.55, 0.71, 0.95, 1.0} {
		for _, phish := range []bool{true, false} {
			v := finalize(outcome{isPhishing: phish, confidence: conf}, Explanation{})
			if v.Severity != severityFor(v.RiskScore) {
				t.Errorf("severity %s disagrees with risk %d", v.Severity, v.RiskScore)
			}
			if v.RiskScore < 0 || v.RiskScore > 100 {
				t.Errorf("risk %d out of range", v.RiskScore)
			}
		}
	}
}

func TestEmailCascadeOrderPrecedence(t *testing.T) {
	// Overlapping guards: a trusted sender with moderate red flags
	// satisfies both trusted_sender_strong (rule 3) and red_flag_override
	// (rule 9). The earlier rule must win.
	ev := &emailEvidence{
		red: 4, green: 14, keywords: 2,
		senderTrusted: true,
		ml:            benignStub(),
	}
	o := runCascade(emailCascade, ev)
	if o.rule != "trusted_sender_strong" {
		t.Errorf("rule fired = %s, want trusted_sender_strong", o.rule)
	}
	if o.isPhishing {
		t.Error("outcome is phishing, want benign")
	}

	// A high-risk nested URL outranks everything, including green dominance.
	ev = &emailEvidence{
		red: 0, green: 30,
		senderTrusted:  true,
		anyNestedPhish: true,
		highRiskNested: true,
		ml:             benignStub(),
	}
	o = runCascade(emailCascade, ev)
	if o.rule != "nested_url_high_risk" || !o.isPhishing {
		t.Errorf("rule fired = %s (phishing=%v), want nested_url_high_risk phishing", o.rule, o.isPhishing)
	}
}

func TestExactlyOneRuleFires(t *testing.T) {
	// The fallback guard is always true, so every evidence shape resolves
	// to exactly one named rule.
	shapes := []*emailEvidence{
		{ml: benignStub()},
		{red: 40, ml: benignStub()},
		{green: 40, ml: benignStub()},
		{red: 2, green: 2, keywords: 1, ml: phishingStub()},
	}
	for i, ev := range shapes {
		o := runCascade(emailCascade, ev)
		if o.rule == "" || o.rule == "no_rule_fired" {
			t.Errorf("shape %d: no rule fired", i)
		}
	}
}

func TestRedFlagMonotonicity(t *testing.T) {
	// Above the override threshold, more red flags never lower the risk.
	prevRisk := 0
	for red := 3; red <= 40; red++ {
		ev := &emailEvidence{red: red, ml: benignStub()}
		o := runCascade(emailCascade, ev)
		if !o.isPhishing {
			t.Fatalf("red=%d: outcome benign, want phishing", red)
		}
		v := finalize(o, Explanation{})
		if v.RiskScore < prevRisk {
			t.Errorf("red=%d: risk %d < previous %d", red, v.RiskScore, prevRisk)
		}
		prevRisk = v.RiskScore
	}
}

func TestURLCascadeDiscountsBenignML(t *testing.T) {
	// Moderate red evidence discounts a benign prediction by 0.7 and
	// leaves a phishing prediction untouched.
	ev := &urlEvidence{red: 3, green: 20, ml: scorer.Result{Label: "legitimate", Confidence: 0.9}}
	o := runCascade(urlCascade, ev)
	if o.rule != "discounted_ml" {
		t.Fatalf("rule fired = %s, want discounted_ml", o.rule)
	}
	if o.confidence != 0.9*0.7 {
		t.Errorf("confidence = %v, want %v", o.confidence, 0.9*0.7)
	}

	ev = &urlEvidence{red: 3, ml: scorer.Result{Label: "phishing", IsPhishing: true, Confidence: 0.9}}
	o = runCascade(urlCascade, ev)
	if o.confidence != 0.9 {
		t.Errorf("phishing confidence = %v, want untouched 0.9", o.confidence)
	}
}

func TestMLFallbackAdjustment(t *testing.T) {
	// Benign prediction with green dominance gains confidence.
	o := mlAdjusted(scorer.Result{Label: "legitimate", Confidence: 0.6}, 10, 2, 0.02)
	if o.isPhishing {
		t.Fatal("label flipped, must never happen in fallback")
	}
	want := 0.6 + 8*0.02
	if o.confidence != want {
		t.Errorf("confidence = %v, want %v", o.confidence, want)
	}

	// Phishing prediction with green dominance loses confidence.
	o = mlAdjusted(scorer.Result{Label: "phishing", IsPhishing: true, Confidence: 0.6}, 10, 2, 0.02)
	if o.confidence != 0.6-8*0.02 {
		t.Errorf("confidence = %v, want %v", o.confidence, 0.6-8*0.02)
	}

	// Clamped to [0.1, 0.99].
	o = mlAdjusted(scorer.Result{Label: "phishing", IsPhishing: true, Confidence: 0.2}, 40, 0, 0.02)
	if o.confidence != 0.1 {
		t.Errorf("confidence = %v, want clamp floor 0.1", o.confidence)
	}
	o = mlAdjusted(scorer.Result{Label: "legitimate", Confidence: 0.9}, 40, 0, 0.02)
	if o.confidence != 0.99 {
		t.Errorf("confidence = %v, want clamp ceiling 0.99", o.confidence)
	}
}

func TestIdempotence(t *testing.T) {
	svc := newTestService(benignStub())
	in := indicators.EmailInput{
		Subject: "Team offsite agenda", SenderEmail: "lead@github.com",
		Content: "Hi Sam,\n\nAgenda attached for Thursday.\n\nBest regards,\nAlex",
	}
	first, err := svc.ClassifyEmail(in)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		again, err := svc.ClassifyEmail(in)
		if err != nil {
			t.Fatal(err)
		}
		if again.IsPhishing != first.IsPhishing || again.Confidence != first.Confidence ||
			again.RiskScore != first.RiskScore || again.Severity != first.Severity {
			t.Fatalf("run %d verdict %+v differs from first %+v", i, again, first)
		}
	}
}

func TestValidationErrors(t *testing.T) {
	svc := newTestService(benignStub())
	if _, err := svc.ClassifyEmail(indicators.EmailInput{Content: "  "}); KindOf(err) != KindValidation {
		t.Errorf("empty email err = %v, want validation", err)
	}
	if _, err := svc.ClassifySMS(""); KindOf(err) != KindValidation {
		t.Errorf("empty sms err = %v, want validation", err)
	}
	if _, err := svc.ClassifyURL(""); KindOf(err) != KindValidation {
		t.Errorf("empty url err = %v, want validation", err)
	}
}

func TestArtifactUnavailable(t *testing.T) {
	svc := NewService(nil, nil, nil)
	if svc.Ready("email") || svc.Ready("sms") || svc.Ready("url") {
		t.Error("nil scorers must report not ready")
	}
	if _, err := svc.ClassifyEmail(indicators.EmailInput{Content: "x"}); KindOf(err) != KindArtifactUnavailable {
		t.Errorf("err = %v, want artifact unavailable", err)
	}
	if _, err := svc.ClassifyURL("https://example.com"); KindOf(err) != KindArtifactUnavailable {
		t.Errorf("err = %v, want artifact unavailable", err)
	}
}

func TestScoringFailureAbortsRequest(t *testing.T) {
	boom := errors.New("tensor shape mismatch")
	svc := NewService(stubText{err: boom}, stubText{err: boom}, stubURL{res: benignStub()})
	_, err := svc.ClassifyEmail(indicators.EmailInput{Content: "hello there, quick question about the meeting"})
	if KindOf(err) != KindScoring {
		t.Fatalf("err = %v, want scoring failure", err)
	}
	if !errors.Is(err, boom) {
		t.Error("cause not preserved in chain")
	}
}

func TestNestedScoringFailureAbsorbed(t *testing.T) {
	// A broken URL model must not fail an email request; the nested
	// verdict is simply dropped.
	svc := NewService(
		stubText{res: benignStub()},
		stubText{res: benignStub()},
		stubURL{err: errors.New("model corrupt")},
	)
	v, err := svc.ClassifyEmail(indicators.EmailInput{
		Content:     "Hi Pat,\n\nNotes from today are at https://github.com/team/notes\n\nBest regards",
		SenderEmail: "colleague@github.com",
	})
	if err != nil {
		t.Fatalf("outer request failed: %v", err)
	}
	if len(v.Explanation.SuspiciousURLs) != 0 {
		t.Errorf("nested verdicts = %+v, want none", v.Explanation.SuspiciousURLs)
	}
}

func TestMetaFlagsAreExplanationOnly(t *testing.T) {
	// The meta-flags summarize counts for the explanation; they are not in
	// either vocabulary and cannot feed back into the cascade counts.
	svc := newTestService(benignStub())
	v, err := svc.ClassifyURL("http://secure-verify-account.tk/login")
	if err != nil {
		t.Fatal(err)
	}
	if !v.Explanation.MultipleRedFlags {
		t.Error("MultipleRedFlags = false, want true")
	}
	for _, name := range v.Explanation.RedFlags {
		if name == "multiple_red_flags" || name == "low_risk_overall" {
			t.Errorf("meta-flag %q leaked into the flag vocabulary", name)
		}
	}
	if v.Explanation.RedScore != len(v.Explanation.RedFlags) {
		t.Errorf("red score %d != triggered red flags %d", v.Explanation.RedScore, len(v.Explanation.RedFlags))
	}
}

func TestExplanationTruncation(t *testing.T) {
	expl := buildExplanation("email", indicators.FlagSet{}, indicators.Artifacts{
		Keywords: []string{"a", "b", "c", "d", "e", "f", "g", "h", "i", "j", "k", "l"},
	}, nil, 0.5, "legitimate", outcome{rule: "ml_fallback", confidence: 0.5})
	if len(expl.KeywordsFound) != maxExplainedKeywords {
		t.Errorf("keywords = %d, want %d", len(expl.KeywordsFound), maxExplainedKeywords)
	}
}

func TestExplanationRecordsRawAndAdjustedConfidence(t *testing.T) {
	svc := newTestService(benignStub())
	v, err := svc.ClassifyURL("https://github.com/settings/security")
	if err != nil {
		t.Fatal(err)
	}
	if v.Explanation.RawConfidence != 0.6 {
		t.Errorf("raw confidence = %v, want stub 0.6", v.Explanation.RawConfidence)
	}
	if v.Explanation.AdjustedConfidence != 0.90 {
		t.Errorf("adjusted confidence = %v, want rule value 0.90", v.Explanation.AdjustedConfidence)
	}
}
