// Package fusion implements the hybrid decision engine: it fuses the
// rule-based indicator flags with the statistical scorer's prediction
// through a strictly ordered cascade of guarded rules, one cascade per
// content type, and derives the final verdict, risk score, and severity.
package fusion

import (
	"log"
	"strings"

	"github.com/phishguard-io/phishguard/pkg/indicators"
	"github.com/phishguard-io/phishguard/pkg/scorer"
	"github.com/phishguard-io/phishguard/pkg/telemetry"
)

// TextScorer classifies raw text content. *scorer.TextModel satisfies it;
// tests substitute deterministic stubs.
type TextScorer interface {
	Classify(text string) (scorer.Result, error)
}

// URLScorer classifies a URL feature vector.
type URLScorer interface {
	Classify(features []float32) (scorer.Result, error)
}

// Service is the classification engine. Constructed once at startup with
// whichever scorers loaded; a nil scorer marks that content type degraded.
// All state is read-only after construction, so concurrent requests need
// no synchronization here.
type Service struct {
	email TextScorer
	sms   TextScorer
	url   URLScorer
}

// NewService wires the per-type scorers into an engine. Nil entries are
// allowed and reported through Ready.
func NewService(email, sms TextScorer, url URLScorer) *Service {
	return &Service{email: email, sms: sms, url: url}
}

// Ready reports whether the given content type ("email", "sms", "url") has
// a loaded classifier artifact.
func (s *Service) Ready(contentType string) bool {
	switch contentType {
	case "email":
		return s.email != nil
	case "sms":
		return s.sms != nil
	case "url":
		return s.url != nil
	}
	return false
}

// ClassifyEmail runs the full email pipeline: validate, extract flags,
// classify nested URLs, score, cascade, explain.
func (s *Service) ClassifyEmail(in indicators.EmailInput) (Verdict, error) {
	if strings.TrimSpace(in.Content) == "" {
		return Verdict{}, validationErr("email content is required")
	}
	if s.email == nil {
		return Verdict{}, artifactErr("email", scorer.ErrUnavailable)
	}

	fs, arts, _ := indicators.ExtractEmail(in)
	nested := s.classifyNested(arts.URLs)

	ml, err := s.email.Classify(in.Subject + " " + in.Content)
	if err != nil {
		return Verdict{}, scoringErr("email", err)
	}

	ev := buildEmailEvidence(fs, arts, nested, ml)
	o := runCascade(emailCascade, ev)
	expl := buildExplanation("email", fs, arts, nested, ml.Confidence, ml.Label, o)
	v := finalize(o, expl)
	telemetry.GlobalClient.Track("classify", map[string]interface{}{
		"content_type": "email", "rule": o.rule, "risk": v.RiskScore,
	})
	return v, nil
}

// ClassifySMS runs the SMS pipeline.
func (s *Service) ClassifySMS(content string) (Verdict, error) {
	if strings.TrimSpace(content) == "" {
		return Verdict{}, validationErr("sms content is required")
	}
	if s.sms == nil {
		return Verdict{}, artifactErr("sms", scorer.ErrUnavailable)
	}

	fs, arts, _ := indicators.ExtractSMS(content)
	nested := s.classifyNested(arts.URLs)

	ml, err := s.sms.Classify(content)
	if err != nil {
		return Verdict{}, scoringErr("sms", err)
	}

	ev := buildSMSEvidence(fs, nested, ml)
	o := runCascade(smsCascade, ev)
	expl := buildExplanation("sms", fs, arts, nested, ml.Confidence, ml.Label, o)
	v := finalize(o, expl)
	telemetry.GlobalClient.Track("classify", map[string]interface{}{
		"content_type": "sms", "rule": o.rule, "risk": v.RiskScore,
	})
	return v, nil
}

// ClassifyURL runs the URL pipeline.
func (s *Service) ClassifyURL(raw string) (Verdict, error) {
	if strings.TrimSpace(raw) == "" {
		return Verdict{}, validationErr("url is required")
	}
	if s.url == nil {
		return Verdict{}, artifactErr("url", scorer.ErrUnavailable)
	}

	v, _, err := s.classifyURL(raw)
	if err != nil {
		return Verdict{}, err
	}
	telemetry.GlobalClient.Track("classify", map[string]interface{}{
		"content_type": "url", "rule": v.Explanation.AnalysisMethod, "risk": v.RiskScore,
	})
	return v, nil
}

// classifyURL is the shared URL fusion path, used both for top-level URL
// requests and for nested links inside email/SMS bodies.
func (s *Service) classifyURL(raw string) (Verdict, outcome, error) {
	fs, arts, feats := indicators.ExtractURL(raw)

	ml, err := s.url.Classify(feats.Vector())
	if err != nil {
		return Verdict{}, outcome{}, scoringErr("url", err)
	}

	ev := buildURLEvidence(fs, ml)
	o := runCascade(urlCascade, ev)
	expl := buildExplanation("url", fs, arts, nil, ml.Confidence, ml.Label, o)
	return finalize(o, expl), o, nil
}

// classifyNested runs the URL cascade over each embedded link. The list is
// already capped by the extractor. Nested failures are absorbed: a link we
// cannot score contributes no verdict rather than failing the outer
// request, and a missing URL artifact degrades all nested verdicts.
func (s *Service) classifyNested(urls []string) []NestedURLVerdict {
	if len(urls) == 0 || s.url == nil {
		return nil
	}
	verdicts := make([]NestedURLVerdict, 0, len(urls))
	for _, u := range urls {
		v, _, err := s.classifyURL(u)
		if err != nil {
			log.Printf("[FUSION] nested url %q skipped: %v", u, err)
			continue
		}
		verdicts = append(verdicts, NestedURLVerdict{
			URL:        u,
			IsPhishing: v.IsPhishing,
			RiskScore:  v.RiskScore,
		})
	}
	return verdicts
}
