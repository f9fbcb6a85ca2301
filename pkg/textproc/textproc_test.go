package textproc

import (
	"reflect"
	"testing"
)

func TestCanonicalizeFoldsFullwidth(t *testing.T) {
	// NFKC folds fullwidth forms used to dodge keyword matching.
	got := Canonicalize("ＵＲＧＥＮＴ Verify")
	if got != "urgent verify" {
		t.Errorf("Canonicalize = %q, want %q", got, "urgent verify")
	}
}

func TestNormalizeDefanged(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"hxxp://evil[.]com", "http://evil.com"},
		{"hxxps://bad[.]site[:]8080", "https://bad.site:8080"},
		{"user[@]evil.com", "user@evil.com"},
		{"https://fine.example", "https://fine.example"},
	}
	for _, tt := range tests {
		if got := NormalizeDefanged(tt.in); got != tt.want {
			t.Errorf("NormalizeDefanged(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractURLs(t *testing.T) {
	text := "See https://a.example/one and http://b.example/two, also https://a.example/one again. " +
		"Bare form: www.c.example/three and evil[.]com/four"
	got := ExtractURLs(text)
	want := []string{
		"https://a.example/one",
		"http://b.example/two",
		"www.c.example/three",
		"evil.com/four",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractURLs = %v, want %v", got, want)
	}
}

func TestExtractURLsNone(t *testing.T) {
	if got := ExtractURLs("no links here at all"); got != nil {
		t.Errorf("ExtractURLs = %v, want nil", got)
	}
}

func TestCleanMasksAddressesAndNumbers(t *testing.T) {
	got := Clean("Contact me at bob@example.com about invoice 12345!")
	want := "contact me at emailaddr about invoice number!"
	if got != want {
		t.Errorf("Clean = %q, want %q", got, want)
	}
}

func TestStem(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"running", "runn"},
		{"verified", "verifi"},
		{"accounts", "account"},
		{"policies", "polici"},
		{"quickly", "quick"},
		{"class", "class"},
		{"us", "us"},
		{"cat", "cat"},
	}
	for _, tt := range tests {
		if got := Stem(tt.in); got != tt.want {
			t.Errorf("Stem(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPreprocessDropsStopwords(t *testing.T) {
	got := Preprocess("You must verify the account")
	// "you", "the" are stopwords; "must" is not in the set.
	want := "must verify account"
	if got != want {
		t.Errorf("Preprocess = %q, want %q", got, want)
	}
}

func TestComputeStatistics(t *testing.T) {
	stats := ComputeStatistics("FREE $500 now! Visit http://win.example/claim")
	if stats.URLCount != 1 {
		t.Errorf("URLCount = %d, want 1", stats.URLCount)
	}
	if stats.DigitCount != 3 {
		t.Errorf("DigitCount = %d, want 3", stats.DigitCount)
	}
	if stats.UppercaseRatio <= 0 {
		t.Error("UppercaseRatio should be positive")
	}
	if stats.WordCount != 5 {
		t.Errorf("WordCount = %d, want 5", stats.WordCount)
	}
}

func TestMatchedKeywordsOrderAndSubset(t *testing.T) {
	text := "Please VERIFY your account password before it expires"
	got := MatchedKeywords(text)
	// Reported in vocabulary order, not text order.
	want := []string{"verify", "account", "password", "expire"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchedKeywords = %v, want %v", got, want)
	}
}

func TestMatchedHighPriorityKeywords(t *testing.T) {
	text := "We noticed unusual activity. Verify your account or it will be suspended."
	got := MatchedHighPriorityKeywords(text)
	want := []string{"verify your account", "suspended", "unusual activity"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("MatchedHighPriorityKeywords = %v, want %v", got, want)
	}
}

func TestStatisticsEmptyInput(t *testing.T) {
	stats := ComputeStatistics("")
	if stats.Length != 0 || stats.WordCount != 0 || stats.UppercaseRatio != 0 {
		t.Errorf("empty input stats = %+v, want zero values", stats)
	}
}
