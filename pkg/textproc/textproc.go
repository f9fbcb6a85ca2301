// Package textproc provides the text normalization pipeline shared by the
// indicator extractors and the scorer adapter: canonicalization, tokenization,
// stopword filtering, stemming, URL extraction, and text statistics.
//
// The output contract matters more than linguistic fidelity here: the trained
// classifier artifacts were fitted on this exact pipeline, so any change to
// normalization or stemming invalidates the vectorizer vocabulary.
package textproc

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Pre-compiled patterns, compiled once at package init.
var (
	reURL        = regexp.MustCompile(`(?i)\bhttps?://[^\s<>"')\]]+|\bwww\.[^\s<>"')\]]+|\b[a-z0-9][a-z0-9.-]*\.[a-z]{2,}/[^\s<>"')\]]+`)
	reEmailAddr  = regexp.MustCompile(`\S+@\S+`)
	reDigits     = regexp.MustCompile(`\d+`)
	reWhitespace = regexp.MustCompile(`\s+`)
	reNonWord    = regexp.MustCompile(`[^\w\s.,!?]`)
	reToken      = regexp.MustCompile(`[a-z]+`)

	// Defanged notation used in threat reports: hxxp://evil[.]com[:]8080
	defangReplacer = strings.NewReplacer(
		"[.]", ".", "(.)", ".", "{.}", ".",
		"[:]", ":", "(:)", ":",
		"[@]", "@",
		"hxxps://", "https://", "hxxp://", "http://",
		"hXXps://", "https://", "hXXp://", "http://",
	)
)

// Canonicalize applies NFKC normalization and lowercasing. NFKC folds
// fullwidth and compatibility characters that phishing text uses to slip
// past naive keyword matching.
func Canonicalize(text string) string {
	return strings.ToLower(norm.NFKC.String(text))
}

// NormalizeDefanged rewrites defanged URL notation back to parseable form.
// Must run before any URL extraction or parsing.
func NormalizeDefanged(text string) string {
	return defangReplacer.Replace(text)
}

// ExtractURLs returns the URLs found in text, in order of appearance,
// de-duplicated. Defanged notation is normalized first.
func ExtractURLs(text string) []string {
	text = NormalizeDefanged(text)
	matches := reURL.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.TrimRight(m, ".,;!?")
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		urls = append(urls, m)
	}
	return urls
}

// Clean normalizes raw text for tokenization: canonicalize, mask email
// addresses and numbers, strip most punctuation, collapse whitespace.
func Clean(text string) string {
	text = Canonicalize(text)
	text = reEmailAddr.ReplaceAllString(text, "emailaddr")
	text = reDigits.ReplaceAllString(text, "number")
	text = reNonWord.ReplaceAllString(text, "")
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// Tokenize splits cleaned text into lowercase alphabetic tokens.
func Tokenize(text string) []string {
	return reToken.FindAllString(text, -1)
}

// Preprocess runs the full pipeline: clean, tokenize, drop stopwords, stem.
// The result is the whitespace-joined token sequence consumed by the
// vectorizer artifact.
func Preprocess(text string) string {
	tokens := Tokenize(Clean(text))
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if stopwords[tok] {
			continue
		}
		out = append(out, Stem(tok))
	}
	return strings.Join(out, " ")
}

// Stem applies light suffix stripping. Not a full Porter stemmer: the
// training pipeline and this implementation agree on these rules, which is
// the only property the vectorizer contract requires.
func Stem(word string) string {
	if len(word) <= 3 {
		return word
	}
	switch {
	case strings.HasSuffix(word, "ies") && len(word) > 4:
		return word[:len(word)-3] + "i"
	case strings.HasSuffix(word, "sses"):
		return word[:len(word)-2]
	case strings.HasSuffix(word, "ss"):
		return word
	case strings.HasSuffix(word, "s") && !strings.HasSuffix(word, "us"):
		word = word[:len(word)-1]
	}
	if len(word) > 4 {
		switch {
		case strings.HasSuffix(word, "ing") && len(word) > 5:
			word = word[:len(word)-3]
		case strings.HasSuffix(word, "ed") && len(word) > 4:
			word = word[:len(word)-2]
		case strings.HasSuffix(word, "ly"):
			word = word[:len(word)-2]
		case strings.HasSuffix(word, "ment") && len(word) > 6:
			word = word[:len(word)-4]
		}
	}
	return word
}

// Statistics captures the surface features of a piece of text that feed
// derived artifacts and explanations.
type Statistics struct {
	Length           int     `json:"length"`
	WordCount        int     `json:"word_count"`
	UppercaseRatio   float64 `json:"uppercase_ratio"`
	DigitCount       int     `json:"digit_count"`
	SpecialCharCount int     `json:"special_char_count"`
	URLCount         int     `json:"url_count"`
	KeywordCount     int     `json:"keyword_count"`
}

// ComputeStatistics returns the statistics of raw (un-normalized) text.
// Uppercase ratio is computed on the raw text; everything that needs
// case-insensitive matching canonicalizes internally.
func ComputeStatistics(text string) Statistics {
	stats := Statistics{
		Length:    len(text),
		WordCount: len(strings.Fields(text)),
		URLCount:  len(ExtractURLs(text)),
	}
	upper := 0
	for _, r := range text {
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			stats.DigitCount++
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			stats.SpecialCharCount++
		}
	}
	if stats.Length > 0 {
		stats.UppercaseRatio = float64(upper) / float64(stats.Length)
	}
	stats.KeywordCount = len(MatchedKeywords(text))
	return stats
}

// MatchedKeywords returns the phishing keywords present in text, in the
// fixed vocabulary order. Membership is substring-based over the
// canonicalized text, matching the behavior the flag thresholds were tuned
// against.
func MatchedKeywords(text string) []string {
	lower := Canonicalize(text)
	var found []string
	for _, kw := range PhishingKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}

// MatchedHighPriorityKeywords returns the subset of matched keywords that
// carry override weight in the email cascade.
func MatchedHighPriorityKeywords(text string) []string {
	lower := Canonicalize(text)
	var found []string
	for _, kw := range HighPriorityKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}
