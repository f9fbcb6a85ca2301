package indicators

import (
	"net"
	"net/url"
	"regexp"
	"strings"

	"github.com/phishguard-io/phishguard/pkg/textproc"
)

var (
	reIPHost       = regexp.MustCompile(`^\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}$`)
	reConsonantRun = regexp.MustCompile(`[bcdfghjklmnpqrstvwxz]{5,}`)
	reMidTLD       = regexp.MustCompile(`\.(com|net|org)\.`)
	reWhitespace2  = regexp.MustCompile(`\s`)
)

// URLContext is the precomputed evaluation context for the URL vocabulary.
// Built once per URL; every predicate reads from it.
type URLContext struct {
	Raw        string // input as given
	Normalized string // defang-normalized, scheme-ensured
	Lower      string // lowercased Normalized

	Host             string
	RegisteredDomain string // last two host labels ("mail.google.com" -> "google.com")
	TLD              string
	Path             string
	Query            string
	Port             string

	IsIP       bool
	PrivateIP  bool
	Subdomains int
	ParseOK    bool

	Defanged      bool
	HadWhitespace bool

	// Special-character counts over the full normalized URL, in the same
	// convention the feature vector uses.
	Dots, Dashes, Ats, Slashes, Questions, Equals, Underscores int

	SuspiciousWords int
	Trusted         bool
	UnleetHost      string
}

// URLFeatures is the fixed-order numeric feature vector consumed by the URL
// scorer artifact. Field order is the wire contract with the trained model;
// never reorder.
type URLFeatures struct {
	URLLength           int  `json:"url_length"`
	HasIP               bool `json:"has_ip"`
	IsHTTPS             bool `json:"is_https"`
	SubdomainCount      int  `json:"subdomain_count"`
	HasPort             bool `json:"has_port"`
	SuspiciousWordCount int  `json:"suspicious_word_count"`
	IsTrusted           bool `json:"is_trusted"`
	DotCount            int  `json:"dot_count"`
	DashCount           int  `json:"dash_count"`
	AtCount             int  `json:"at_count"`
	SlashCount          int  `json:"slash_count"`
	QuestionCount       int  `json:"question_count"`
	EqualsCount         int  `json:"equals_count"`
	UnderscoreCount     int  `json:"underscore_count"`
}

// Vector returns the feature values in contract order, ready for scaling.
func (f URLFeatures) Vector() []float32 {
	return []float32{
		float32(f.URLLength), b2f(f.HasIP), b2f(f.IsHTTPS),
		float32(f.SubdomainCount), b2f(f.HasPort),
		float32(f.SuspiciousWordCount), b2f(f.IsTrusted),
		float32(f.DotCount), float32(f.DashCount), float32(f.AtCount),
		float32(f.SlashCount), float32(f.QuestionCount),
		float32(f.EqualsCount), float32(f.UnderscoreCount),
	}
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

// BuildURLContext parses and normalizes a raw URL into its evaluation
// context. Parsing never fails hard: an unparseable input yields a context
// with ParseOK=false and safe zero values, and the vocabulary flags it.
func BuildURLContext(raw string) *URLContext {
	ctx := &URLContext{Raw: raw}
	trimmed := strings.TrimSpace(raw)
	ctx.HadWhitespace = reWhitespace2.MatchString(trimmed)

	normalized := textproc.NormalizeDefanged(trimmed)
	ctx.Defanged = normalized != trimmed
	if !strings.HasPrefix(normalized, "http://") && !strings.HasPrefix(normalized, "https://") {
		normalized = "http://" + normalized
	}
	ctx.Normalized = normalized
	ctx.Lower = strings.ToLower(normalized)

	ctx.Dots = strings.Count(normalized, ".")
	ctx.Dashes = strings.Count(normalized, "-")
	ctx.Ats = strings.Count(normalized, "@")
	ctx.Slashes = strings.Count(normalized, "/")
	ctx.Questions = strings.Count(normalized, "?")
	ctx.Equals = strings.Count(normalized, "=")
	ctx.Underscores = strings.Count(normalized, "_")

	for _, w := range urlSuspiciousWords {
		if strings.Contains(ctx.Lower, w) {
			ctx.SuspiciousWords++
		}
	}

	parsed, err := url.Parse(normalized)
	if err != nil || parsed.Hostname() == "" {
		return ctx
	}
	ctx.ParseOK = true
	ctx.Host = strings.ToLower(parsed.Hostname())
	ctx.Port = parsed.Port()
	ctx.Path = parsed.Path
	ctx.Query = parsed.RawQuery
	ctx.UnleetHost = unleet(ctx.Host)

	if reIPHost.MatchString(ctx.Host) {
		ctx.IsIP = true
		if ip := net.ParseIP(ctx.Host); ip != nil {
			ctx.PrivateIP = ip.IsPrivate() || ip.IsLoopback()
		}
	} else {
		labels := strings.Split(ctx.Host, ".")
		if len(labels) >= 2 {
			ctx.RegisteredDomain = strings.Join(labels[len(labels)-2:], ".")
			ctx.TLD = labels[len(labels)-1]
		}
		if dots := strings.Count(ctx.Host, "."); dots > 0 {
			ctx.Subdomains = dots - 1
		}
	}

	ctx.Trusted = isTrustedDomain(ctx.Host)
	return ctx
}

// Features projects the context onto the scorer's feature vector.
func (c *URLContext) Features() URLFeatures {
	return URLFeatures{
		URLLength:           len(c.Normalized),
		HasIP:               c.IsIP,
		IsHTTPS:             strings.HasPrefix(c.Lower, "https://"),
		SubdomainCount:      c.Subdomains,
		HasPort:             c.Port != "",
		SuspiciousWordCount: c.SuspiciousWords,
		IsTrusted:           c.Trusted,
		DotCount:            c.Dots,
		DashCount:           c.Dashes,
		AtCount:             c.Ats,
		SlashCount:          c.Slashes,
		QuestionCount:       c.Questions,
		EqualsCount:         c.Equals,
		UnderscoreCount:     c.Underscores,
	}
}

// ExtractURL evaluates the URL vocabulary against a raw URL and returns the
// flags, derived artifacts, and the scorer feature vector.
func ExtractURL(raw string) (FlagSet, Artifacts, URLFeatures) {
	ctx := BuildURLContext(raw)
	fs := FlagSet{
		Red:   evaluate(urlRedIndicators, ctx),
		Green: evaluate(urlGreenIndicators, ctx),
	}
	arts := Artifacts{
		URLs:  []string{raw},
		Stats: textproc.Statistics{Length: len(raw), URLCount: 1},
	}
	red, green := fs.RedScore(), fs.GreenScore()
	arts.MultipleRedFlags = red >= urlMultiRedThreshold
	arts.LowRiskOverall = green >= 30 && red <= 2
	return fs, arts, ctx.Features()
}

// urlMultiRedThreshold is the red count at which the explanation-only
// "multiple red flags" meta-flag fires for URLs.
const urlMultiRedThreshold = 5

func isTrustedDomain(host string) bool {
	for _, d := range trustedDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func isShortener(host string) bool {
	for _, d := range shortenerDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func hasSuspiciousTLD(tld string) bool {
	for _, t := range suspiciousTLDs {
		if tld == t {
			return true
		}
	}
	return false
}

func isFreeHosting(host string) bool {
	for _, d := range freeHostingDomains {
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

// brandAbuse reports whether a brand token appears anywhere in the URL while
// the registered domain is not that brand's real domain.
func brandAbuse(c *URLContext) bool {
	for token, real := range brandDomains {
		if strings.Contains(c.Lower, token) && c.RegisteredDomain != real {
			return true
		}
	}
	return false
}

// typosquat reports whether the leetspeak-normalized host contains a brand
// token without being the brand's real domain.
func typosquat(c *URLContext) bool {
	if c.UnleetHost == "" {
		return false
	}
	for token, real := range brandDomains {
		if strings.Contains(c.UnleetHost, token) &&
			c.RegisteredDomain != real && c.Host != real {
			return true
		}
	}
	return false
}

func domainLabel(c *URLContext) string {
	if c.RegisteredDomain == "" {
		return ""
	}
	return strings.SplitN(c.RegisteredDomain, ".", 2)[0]
}

func containsAnyDigit(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

var cleanTLDs = map[string]bool{
	"com": true, "org": true, "net": true, "edu": true, "gov": true,
	"io": true, "dev": true,
}

// =============================================================================
// URL RED FLAG VOCABULARY (40)
// Ordered, closed. Names are the public explanation vocabulary.
// =============================================================================

var urlRedIndicators = []indicator[URLContext]{
	{"has_ip_address", func(c *URLContext) bool { return c.IsIP }},
	{"private_ip_host", func(c *URLContext) bool { return c.PrivateIP }},
	{"not_https", func(c *URLContext) bool { return !strings.HasPrefix(c.Lower, "https://") }},
	{"suspicious_tld", func(c *URLContext) bool { return hasSuspiciousTLD(c.TLD) }},
	{"url_shortener", func(c *URLContext) bool { return isShortener(c.Host) }},
	{"typosquatted_brand", typosquat},
	{"brand_outside_domain", brandAbuse},
	{"excessive_length", func(c *URLContext) bool { return len(c.Normalized) > 75 }},
	{"very_long_url", func(c *URLContext) bool { return len(c.Normalized) > 120 }},
	{"many_subdomains", func(c *URLContext) bool { return c.Subdomains >= 3 }},
	{"at_symbol", func(c *URLContext) bool { return c.Ats > 0 }},
	{"double_slash_redirect", func(c *URLContext) bool { return strings.Contains(c.Path, "//") }},
	{"hyphenated_domain", func(c *URLContext) bool { return strings.Contains(c.RegisteredDomain, "-") }},
	{"many_hyphens", func(c *URLContext) bool { return c.Dashes >= 3 }},
	{"digits_in_domain", func(c *URLContext) bool { return containsAnyDigit(domainLabel(c)) }},
	{"many_dots", func(c *URLContext) bool { return c.Dots >= 5 }},
	{"nonstandard_port", func(c *URLContext) bool { return c.Port != "" && c.Port != "80" && c.Port != "443" }},
	{"login_keyword", func(c *URLContext) bool {
		return strings.Contains(c.Lower, "login") || strings.Contains(c.Lower, "signin")
	}},
	{"verify_keyword", func(c *URLContext) bool {
		return strings.Contains(c.Lower, "verify") || strings.Contains(c.Lower, "confirm")
	}},
	{"account_keyword", func(c *URLContext) bool { return strings.Contains(c.Lower, "account") }},
	{"secure_keyword", func(c *URLContext) bool { return strings.Contains(c.Lower, "secure") }},
	{"banking_keyword", func(c *URLContext) bool { return strings.Contains(c.Lower, "bank") }},
	{"update_keyword", func(c *URLContext) bool { return strings.Contains(c.Lower, "update") }},
	{"legacy_paypal_markers", func(c *URLContext) bool {
		return strings.Contains(c.Lower, "webscr") || strings.Contains(c.Lower, "ebayisapi")
	}},
	{"multiple_suspicious_words", func(c *URLContext) bool { return c.SuspiciousWords >= 2 }},
	{"many_suspicious_words", func(c *URLContext) bool { return c.SuspiciousWords >= 4 }},
	{"percent_encoding", func(c *URLContext) bool { return strings.Contains(c.Normalized, "%") }},
	{"many_query_params", func(c *URLContext) bool { return c.Equals >= 3 }},
	{"credential_query_param", func(c *URLContext) bool {
		q := strings.ToLower(c.Query)
		return strings.Contains(q, "user=") || strings.Contains(q, "pass") ||
			strings.Contains(q, "pwd") || strings.Contains(q, "token=")
	}},
	{"executable_in_path", func(c *URLContext) bool {
		p := strings.ToLower(c.Path)
		return strings.HasSuffix(p, ".exe") || strings.HasSuffix(p, ".scr") ||
			strings.HasSuffix(p, ".apk") || strings.HasSuffix(p, ".bat")
	}},
	{"script_login_page", func(c *URLContext) bool {
		p := strings.ToLower(c.Path)
		hasScript := strings.HasSuffix(p, ".php") || strings.HasSuffix(p, ".asp") ||
			strings.HasSuffix(p, ".jsp") || strings.HasSuffix(p, ".cgi")
		hasCred := strings.Contains(c.Lower, "login") || strings.Contains(c.Lower, "verify") ||
			strings.Contains(c.Lower, "signin")
		return hasScript && hasCred
	}},
	{"punycode_host", func(c *URLContext) bool { return strings.Contains(c.Host, "xn--") }},
	{"misleading_tld_position", func(c *URLContext) bool { return reMidTLD.MatchString(c.Host) }},
	{"free_hosting_domain", func(c *URLContext) bool { return isFreeHosting(c.Host) }},
	{"underscore_in_host", func(c *URLContext) bool { return strings.Contains(c.Host, "_") }},
	{"many_underscores", func(c *URLContext) bool { return c.Underscores >= 2 }},
	{"embedded_whitespace", func(c *URLContext) bool { return c.HadWhitespace }},
	{"defanged_input", func(c *URLContext) bool { return c.Defanged }},
	{"unparseable", func(c *URLContext) bool { return !c.ParseOK }},
	{"random_looking_domain", func(c *URLContext) bool { return reConsonantRun.MatchString(domainLabel(c)) }},
}

// =============================================================================
// URL GREEN FLAG VOCABULARY (40)
// Mostly structural absences: a clean, trusted URL should light up most of
// this table, which is what the benign cascade thresholds assume.
// =============================================================================

var urlGreenIndicators = []indicator[URLContext]{
	{"uses_https", func(c *URLContext) bool { return strings.HasPrefix(c.Lower, "https://") }},
	{"trusted_domain", func(c *URLContext) bool { return c.Trusted }},
	{"no_ip_address", func(c *URLContext) bool { return c.ParseOK && !c.IsIP }},
	{"named_host", func(c *URLContext) bool { return c.RegisteredDomain != "" }},
	{"no_at_symbol", func(c *URLContext) bool { return c.Ats == 0 }},
	{"no_port", func(c *URLContext) bool { return c.Port == "" }},
	{"short_url", func(c *URLContext) bool { return len(c.Normalized) <= 54 }},
	{"moderate_length", func(c *URLContext) bool { return len(c.Normalized) <= 75 }},
	{"few_subdomains", func(c *URLContext) bool { return c.ParseOK && c.Subdomains <= 1 }},
	{"no_subdomains", func(c *URLContext) bool { return c.ParseOK && c.Subdomains == 0 }},
	{"clean_tld", func(c *URLContext) bool { return cleanTLDs[c.TLD] }},
	{"no_hyphens_in_domain", func(c *URLContext) bool {
		return c.RegisteredDomain != "" && !strings.Contains(c.RegisteredDomain, "-")
	}},
	{"no_digits_in_domain", func(c *URLContext) bool {
		return c.RegisteredDomain != "" && !containsAnyDigit(domainLabel(c))
	}},
	{"few_dots", func(c *URLContext) bool { return c.Dots <= 3 }},
	{"no_percent_encoding", func(c *URLContext) bool { return !strings.Contains(c.Normalized, "%") }},
	{"no_query", func(c *URLContext) bool { return c.Questions == 0 }},
	{"few_query_params", func(c *URLContext) bool { return c.Equals <= 1 }},
	{"no_credential_params", func(c *URLContext) bool {
		q := strings.ToLower(c.Query)
		return !strings.Contains(q, "pass") && !strings.Contains(q, "pwd") &&
			!strings.Contains(q, "user=")
	}},
	{"shallow_path", func(c *URLContext) bool { return c.Slashes <= 4 }},
	{"no_suspicious_words", func(c *URLContext) bool { return c.SuspiciousWords == 0 }},
	{"at_most_one_suspicious_word", func(c *URLContext) bool { return c.SuspiciousWords <= 1 }},
	{"not_shortened", func(c *URLContext) bool { return c.ParseOK && !isShortener(c.Host) }},
	{"no_executable_extension", func(c *URLContext) bool {
		p := strings.ToLower(c.Path)
		return !strings.HasSuffix(p, ".exe") && !strings.HasSuffix(p, ".scr") &&
			!strings.HasSuffix(p, ".apk") && !strings.HasSuffix(p, ".bat")
	}},
	{"no_script_login_page", func(c *URLContext) bool {
		p := strings.ToLower(c.Path)
		return !(strings.HasSuffix(p, ".php") && strings.Contains(c.Lower, "login"))
	}},
	{"alphabetic_domain", func(c *URLContext) bool {
		label := domainLabel(c)
		if label == "" {
			return false
		}
		for _, r := range label {
			if r < 'a' || r > 'z' {
				return false
			}
		}
		return true
	}},
	{"no_underscores", func(c *URLContext) bool { return c.Underscores == 0 }},
	{"no_punycode", func(c *URLContext) bool { return !strings.Contains(c.Host, "xn--") }},
	{"standard_scheme", func(c *URLContext) bool {
		return strings.HasPrefix(c.Lower, "http://") || strings.HasPrefix(c.Lower, "https://")
	}},
	{"no_whitespace", func(c *URLContext) bool { return !c.HadWhitespace }},
	{"not_defanged", func(c *URLContext) bool { return !c.Defanged }},
	{"no_double_slash_redirect", func(c *URLContext) bool { return !strings.Contains(c.Path, "//") }},
	{"no_brand_impersonation", func(c *URLContext) bool { return !typosquat(c) && !brandAbuse(c) }},
	{"readable_domain", func(c *URLContext) bool {
		return c.RegisteredDomain != "" && !reConsonantRun.MatchString(domainLabel(c))
	}},
	{"no_misleading_tld", func(c *URLContext) bool { return !reMidTLD.MatchString(c.Host) }},
	{"no_free_hosting", func(c *URLContext) bool { return c.ParseOK && !isFreeHosting(c.Host) }},
	{"short_domain_label", func(c *URLContext) bool {
		label := domainLabel(c)
		return label != "" && len(label) <= 12
	}},
	{"few_hyphens", func(c *URLContext) bool { return c.Dashes <= 1 }},
	{"normal_dot_count", func(c *URLContext) bool { return c.Dots >= 1 && c.Dots <= 2 }},
	{"established_tld", func(c *URLContext) bool { return c.TLD != "" && !hasSuspiciousTLD(c.TLD) }},
	{"no_redirect_param", func(c *URLContext) bool {
		q := strings.ToLower(c.Query)
		return !strings.Contains(q, "redirect") && !strings.Contains(q, "url=") &&
			!strings.Contains(q, "next=")
	}},
}
