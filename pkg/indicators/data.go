package indicators

// =============================================================================
// SHARED LOOKUP TABLES
// Fixed allow/deny lists consulted by the extractors. These are part of the
// detection contract: changing them shifts flag counts and therefore cascade
// outcomes, so treat edits like threshold changes.
// =============================================================================

// trustedDomains is the allow-list of registered domains considered
// legitimate senders and link targets. Matching is exact or dot-suffix
// ("mail.google.com" matches "google.com").
var trustedDomains = []string{
	"google.com", "youtube.com", "facebook.com", "amazon.com",
	"wikipedia.org", "twitter.com", "instagram.com", "linkedin.com",
	"microsoft.com", "apple.com", "github.com", "stackoverflow.com",
	"paypal.com", "netflix.com", "walmart.com",
}

// brandDomains maps impersonated brand tokens to their real registered
// domain. Typosquat detection normalizes leetspeak digits before matching
// these tokens against hostnames.
var brandDomains = map[string]string{
	"google":        "google.com",
	"facebook":      "facebook.com",
	"amazon":        "amazon.com",
	"paypal":        "paypal.com",
	"apple":         "apple.com",
	"microsoft":     "microsoft.com",
	"netflix":       "netflix.com",
	"walmart":       "walmart.com",
	"github":        "github.com",
	"linkedin":      "linkedin.com",
	"instagram":     "instagram.com",
	"bankofamerica": "bankofamerica.com",
	"wellsfargo":    "wellsfargo.com",
	"chase":         "chase.com",
}

// shortenerDomains are URL shortening services. A shortened link hides its
// destination, which is a red flag in unsolicited content.
var shortenerDomains = []string{
	"bit.ly", "tinyurl.com", "goo.gl", "t.co", "ow.ly", "is.gd",
	"buff.ly", "rebrand.ly", "cutt.ly", "shorturl.at", "rb.gy", "tiny.cc",
}

// suspiciousTLDs are top-level domains with free or near-free registration
// that dominate phishing feeds.
var suspiciousTLDs = []string{
	"tk", "ml", "ga", "cf", "gq", "xyz", "top", "buzz", "club",
	"work", "click", "loan", "zip", "country",
}

// freeHostingDomains host arbitrary user content under a shared domain,
// a common home for credential-harvesting pages.
var freeHostingDomains = []string{
	"000webhostapp.com", "weebly.com", "wixsite.com", "blogspot.com",
	"repl.co", "netlify.app", "web.app", "firebaseapp.com",
}

// freemailDomains are consumer mail providers. Legitimate corporate mail
// does not originate from them while claiming a brand identity.
var freemailDomains = []string{
	"gmail.com", "yahoo.com", "hotmail.com", "outlook.com", "aol.com",
	"icloud.com", "mail.com", "protonmail.com",
}

// urlSuspiciousWords are tokens whose presence anywhere in a URL correlates
// with credential harvesting. Membership is substring-based over the
// lowercased URL.
var urlSuspiciousWords = []string{
	"login", "signin", "verify", "account", "update", "secure",
	"banking", "confirm", "suspend", "restricted", "webscr", "cmd",
	"ebayisapi",
}

// leetReplacer folds common digit/symbol substitutions back to letters so
// typosquats like "paypa1" or "amaz0n" match their brand token.
var leetPairs = map[rune]rune{
	'0': 'o', '1': 'l', '3': 'e', '4': 'a', '5': 's', '7': 't',
	'@': 'a', '$': 's',
}

func unleet(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if sub, ok := leetPairs[r]; ok {
			out = append(out, sub)
			continue
		}
		out = append(out, r)
	}
	return string(out)
}
