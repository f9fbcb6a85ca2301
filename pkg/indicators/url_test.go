package indicators

import (
	"strings"
	"testing"
)

func flagValue(flags []Flag, name string) (bool, bool) {
	for _, f := range flags {
		if f.Name == name {
			return f.Value, true
		}
	}
	return false, false
}

func assertFlag(t *testing.T, flags []Flag, name string, want bool) {
	t.Helper()
	got, ok := flagValue(flags, name)
	if !ok {
		t.Fatalf("flag %q not in vocabulary", name)
	}
	if got != want {
		t.Errorf("flag %q = %v, want %v", name, got, want)
	}
}

func TestURLVocabularySize(t *testing.T) {
	fs, _, _ := ExtractURL("https://example.com")
	if len(fs.Red) != 40 {
		t.Errorf("red vocabulary size = %d, want 40", len(fs.Red))
	}
	if len(fs.Green) != 40 {
		t.Errorf("green vocabulary size = %d, want 40", len(fs.Green))
	}
}

func TestURLVocabularyDeterministicOrder(t *testing.T) {
	a, _, _ := ExtractURL("https://github.com")
	b, _, _ := ExtractURL("http://192.168.1.1/paypal-login.php")
	for i := range a.Red {
		if a.Red[i].Name != b.Red[i].Name {
			t.Fatalf("red[%d] name differs across inputs: %q vs %q", i, a.Red[i].Name, b.Red[i].Name)
		}
	}
	for i := range a.Green {
		if a.Green[i].Name != b.Green[i].Name {
			t.Fatalf("green[%d] name differs across inputs: %q vs %q", i, a.Green[i].Name, b.Green[i].Name)
		}
	}
}

func TestURLRedFlags(t *testing.T) {
	tests := []struct {
		name string
		url  string
		red  []string // flags that must be true
		off  []string // flags that must be false
	}{
		{
			name: "private ip credential page",
			url:  "http://192.168.1.1/paypal-login.php",
			red: []string{
				"has_ip_address", "private_ip_host", "not_https",
				"brand_outside_domain", "login_keyword", "script_login_page",
			},
			off: []string{"suspicious_tld", "url_shortener", "punycode_host"},
		},
		{
			name: "credential harvest on free tld",
			url:  "http://secure-verify-account.tk/login",
			red: []string{
				"not_https", "suspicious_tld", "hyphenated_domain",
				"login_keyword", "verify_keyword", "account_keyword",
				"secure_keyword", "multiple_suspicious_words",
				"many_suspicious_words",
			},
			off: []string{"has_ip_address", "at_symbol"},
		},
		{
			name: "shortener",
			url:  "http://bit.ly/2claim",
			red:  []string{"url_shortener", "not_https"},
			off:  []string{"suspicious_tld", "many_subdomains"},
		},
		{
			name: "leetspeak typosquat",
			url:  "https://paypa1-secure.com/verify",
			red:  []string{"typosquatted_brand", "hyphenated_domain", "verify_keyword"},
			off:  []string{"has_ip_address", "not_https"},
		},
		{
			name: "at symbol redirect",
			url:  "https://google.com@evil.example/path",
			red:  []string{"at_symbol"},
		},
		{
			name: "defanged report sample",
			url:  "hxxp://evil[.]com/payload.exe",
			red:  []string{"defanged_input", "executable_in_path", "not_https"},
		},
		{
			name: "misleading tld position",
			url:  "http://paypal.com.secure.account-check.ru/signin",
			red: []string{
				"misleading_tld_position", "brand_outside_domain",
				"many_subdomains", "login_keyword",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, _, _ := ExtractURL(tt.url)
			for _, name := range tt.red {
				assertFlag(t, fs.Red, name, true)
			}
			for _, name := range tt.off {
				assertFlag(t, fs.Red, name, false)
			}
		})
	}
}

func TestURLGreenFlagsTrustedDomain(t *testing.T) {
	fs, arts, _ := ExtractURL("https://github.com/settings/security")
	if got := fs.RedScore(); got != 0 {
		t.Errorf("red score = %d (%v), want 0", got, fs.TriggeredRed())
	}
	if got := fs.GreenScore(); got < 30 {
		t.Errorf("green score = %d, want >= 30", got)
	}
	assertFlag(t, fs.Green, "uses_https", true)
	assertFlag(t, fs.Green, "trusted_domain", true)
	assertFlag(t, fs.Green, "clean_tld", true)
	if !arts.LowRiskOverall {
		t.Error("LowRiskOverall = false, want true")
	}
	if arts.MultipleRedFlags {
		t.Error("MultipleRedFlags = true, want false")
	}
}

func TestURLUnparseableInput(t *testing.T) {
	fs, _, feats := ExtractURL("http://")
	assertFlag(t, fs.Red, "unparseable", true)
	assertFlag(t, fs.Green, "no_ip_address", false)
	if feats.SubdomainCount != 0 {
		t.Errorf("SubdomainCount = %d, want 0", feats.SubdomainCount)
	}
}

func TestURLFeatureVector(t *testing.T) {
	_, _, feats := ExtractURL("http://192.168.1.1:8080/login?user=a&pass=b")
	if !feats.HasIP {
		t.Error("HasIP = false, want true")
	}
	if feats.IsHTTPS {
		t.Error("IsHTTPS = true, want false")
	}
	if !feats.HasPort {
		t.Error("HasPort = false, want true")
	}
	if feats.EqualsCount != 2 {
		t.Errorf("EqualsCount = %d, want 2", feats.EqualsCount)
	}
	if feats.QuestionCount != 1 {
		t.Errorf("QuestionCount = %d, want 1", feats.QuestionCount)
	}
	vec := feats.Vector()
	if len(vec) != 14 {
		t.Fatalf("vector length = %d, want 14", len(vec))
	}
	if vec[1] != 1 { // has_ip position
		t.Errorf("vector[1] = %v, want 1", vec[1])
	}
}

func TestURLSubdomainCountMatchesTraining(t *testing.T) {
	// Trained model convention: subdomains = host dots - 1, so a bare
	// registered domain counts as zero.
	tests := []struct {
		url  string
		want int
	}{
		{"https://example.com", 0},
		{"https://mail.example.com", 1},
		{"https://a.b.example.com", 2},
	}
	for _, tt := range tests {
		_, _, feats := ExtractURL(tt.url)
		if feats.SubdomainCount != tt.want {
			t.Errorf("SubdomainCount(%q) = %d, want %d", tt.url, feats.SubdomainCount, tt.want)
		}
	}
}

func TestURLSchemeDefaulting(t *testing.T) {
	ctx := BuildURLContext("example.com/page")
	if !strings.HasPrefix(ctx.Normalized, "http://") {
		t.Errorf("Normalized = %q, want http:// prefix", ctx.Normalized)
	}
	if ctx.Host != "example.com" {
		t.Errorf("Host = %q, want example.com", ctx.Host)
	}
}

func TestURLTrustedSubdomainMatch(t *testing.T) {
	ctx := BuildURLContext("https://mail.google.com/inbox")
	if !ctx.Trusted {
		t.Error("mail.google.com should match trusted suffix google.com")
	}
	ctx = BuildURLContext("https://notgoogle.com")
	if ctx.Trusted {
		t.Error("notgoogle.com must not match google.com")
	}
}
