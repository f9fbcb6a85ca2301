package indicators

import (
	"regexp"
	"strings"

	"github.com/phishguard-io/phishguard/pkg/textproc"
)

// EmailInput is the raw material for email analysis. Content is required;
// the header fields are optional and degrade the header-based flags to
// false when absent.
type EmailInput struct {
	Content       string `json:"content"`
	Subject       string `json:"subject"`
	SenderEmail   string `json:"sender_email"`
	SenderDisplay string `json:"sender_display"`
}

var (
	rePersonalGreeting = regexp.MustCompile(`\b(?:Dear|Hi|Hello)\s+[A-Z][a-z]+`)
	reOrderReference   = regexp.MustCompile(`(?i)\b(?:order|invoice|ticket|case|confirmation)\s*#?\s*\d+`)
	reCapsWord         = regexp.MustCompile(`\b[A-Z]{3,}\b`)
	reDoubleExtension  = regexp.MustCompile(`(?i)\.\w{2,4}\.(exe|scr|js|bat|vbs)\b`)
	reRepeatPunct      = regexp.MustCompile(`[!?]{2,}`)
	reSenderAddr       = regexp.MustCompile(`^([^@\s]+)@([^@\s]+)$`)
)

// Phrase lists consulted by the email and SMS vocabularies. Matching is
// substring-based over canonicalized text.
var (
	urgencyPhrases = []string{
		"urgent", "immediately", "right away", "act now", "as soon as possible",
		"action required", "attention required", "respond now",
	}
	deadlinePhrases = []string{
		"within 24 hours", "within 48 hours", "expires", "expire",
		"today only", "before it's too late", "deadline",
	}
	pressurePhrases = []string{
		"act now", "don't delay", "last chance", "final notice",
		"final warning", "limited time", "hurry",
	}
	threatPhrases = []string{
		"legal action", "will be terminated", "will be deleted",
		"permanently closed", "law enforcement", "lawsuit", "prosecution",
	}
	suspensionPhrases = []string{
		"suspended", "account will be closed", "deactivated", "locked",
		"on hold", "restricted",
	}
	genericGreetings = []string{
		"dear customer", "dear user", "dear member", "dear sir",
		"dear madam", "valued customer", "dear account holder",
		"dear client",
	}
	sensitivePhrases = []string{
		"password", "social security", "ssn", "credit card number",
		"card number", "bank account number", "pin number", "security code",
		"cvv", "date of birth", "mother's maiden name",
	}
	verificationPhrases = []string{
		"verify your", "confirm your", "validate your", "re-verify",
		"reconfirm",
	}
	securityAlertPhrases = []string{
		"security alert", "unusual activity", "suspicious activity",
		"unauthorized", "unrecognized sign-in", "unrecognized login",
		"security notice",
	}
	rewardPhrases = []string{
		"winner", "you have won", "you've won", "prize", "congratulations",
		"lottery", "jackpot", "sweepstake",
	}
	moneyPhrases = []string{
		"wire transfer", "send money", "western union", "moneygram",
		"payment of $", "transfer of $", "processing fee", "advance fee",
	}
	cryptoPhrases = []string{
		"bitcoin", "btc wallet", "cryptocurrency", "crypto wallet",
		"ethereum",
	}
	deliveryScamPhrases = []string{
		"package could not be delivered", "delivery failed",
		"parcel is on hold", "shipment is pending", "customs fee",
		"redelivery fee", "missed delivery",
	}
	clickPhrases = []string{
		"click here", "click below", "click the link", "click this link",
		"follow the link", "tap here",
	}
	attachmentPhrases = []string{
		".zip", ".exe", ".scr", ".iso", ".rar", ".js attachment",
		"see attached invoice", "open the attachment",
	}
)

func containsAny(haystack string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(haystack, p) {
			return true
		}
	}
	return false
}

// EmailContext is the precomputed evaluation context for the email
// vocabulary. Text fields hold canonicalized copies; RawContent keeps the
// original casing for case-sensitive checks.
type EmailContext struct {
	RawContent string
	RawSubject string

	Content  string // canonicalized body
	Subject  string // canonicalized subject
	Combined string // subject + body, canonicalized

	SenderLocal   string
	SenderDomain  string
	SenderTLD     string
	SenderDisplay string // canonicalized
	SenderTrusted bool
	SenderFreemail bool

	URLs     []string
	LinkCtxs []*URLContext

	Keywords     []string
	HighPriority []string
	Stats        textproc.Statistics
	CapsWords    int
	Defanged     bool
}

// BuildEmailContext normalizes an email into its evaluation context.
func BuildEmailContext(in EmailInput) *EmailContext {
	ctx := &EmailContext{
		RawContent: in.Content,
		RawSubject: in.Subject,
		Content:    textproc.Canonicalize(in.Content),
		Subject:    textproc.Canonicalize(in.Subject),
	}
	ctx.Combined = strings.TrimSpace(ctx.Subject + " " + ctx.Content)
	ctx.SenderDisplay = textproc.Canonicalize(in.SenderDisplay)

	if m := reSenderAddr.FindStringSubmatch(strings.ToLower(strings.TrimSpace(in.SenderEmail))); m != nil {
		ctx.SenderLocal = m[1]
		ctx.SenderDomain = m[2]
		if i := strings.LastIndex(ctx.SenderDomain, "."); i >= 0 {
			ctx.SenderTLD = ctx.SenderDomain[i+1:]
		}
		ctx.SenderTrusted = isTrustedDomain(ctx.SenderDomain)
		for _, d := range freemailDomains {
			if ctx.SenderDomain == d {
				ctx.SenderFreemail = true
				break
			}
		}
	}

	normalized := textproc.NormalizeDefanged(in.Content)
	ctx.Defanged = normalized != in.Content
	ctx.URLs = capURLs(textproc.ExtractURLs(in.Content))
	ctx.LinkCtxs = make([]*URLContext, len(ctx.URLs))
	for i, u := range ctx.URLs {
		ctx.LinkCtxs[i] = BuildURLContext(u)
	}

	full := in.Subject + " " + in.Content
	ctx.Keywords = textproc.MatchedKeywords(full)
	ctx.HighPriority = textproc.MatchedHighPriorityKeywords(full)
	ctx.Stats = textproc.ComputeStatistics(in.Content)
	ctx.CapsWords = len(reCapsWord.FindAllString(in.Content, -1))
	return ctx
}

// anyLink reports whether any extracted link satisfies pred. False when the
// email has no links.
func (c *EmailContext) anyLink(pred func(*URLContext) bool) bool {
	for _, lc := range c.LinkCtxs {
		if pred(lc) {
			return true
		}
	}
	return false
}

// everyLink reports whether every extracted link satisfies pred. Vacuously
// true when the email has no links: a linkless email cannot have a bad link.
func (c *EmailContext) everyLink(pred func(*URLContext) bool) bool {
	for _, lc := range c.LinkCtxs {
		if !pred(lc) {
			return false
		}
	}
	return true
}

func loginStyleLink(lc *URLContext) bool {
	return strings.Contains(lc.Lower, "login") || strings.Contains(lc.Lower, "signin") ||
		strings.Contains(lc.Lower, "verify")
}

// senderLookalike reports a leetspeak or lookalike brand impersonation in
// the sender domain.
func senderLookalike(c *EmailContext) bool {
	if c.SenderDomain == "" || c.SenderTrusted {
		return false
	}
	folded := unleet(c.SenderDomain)
	for token, real := range brandDomains {
		if strings.Contains(folded, token) && c.SenderDomain != real &&
			!strings.HasSuffix(c.SenderDomain, "."+real) {
			return true
		}
	}
	return false
}

// freemailBrandClaim fires when a consumer-mail sender claims a brand
// identity in the display name or message body.
func freemailBrandClaim(c *EmailContext) bool {
	if !c.SenderFreemail {
		return false
	}
	for token := range brandDomains {
		if strings.Contains(c.SenderDisplay, token) || strings.Contains(c.Subject, token) {
			return true
		}
	}
	return false
}

func displayBrandMismatch(c *EmailContext) bool {
	if c.SenderDisplay == "" || c.SenderDomain == "" {
		return false
	}
	for token, real := range brandDomains {
		if strings.Contains(c.SenderDisplay, token) &&
			c.SenderDomain != real && !strings.HasSuffix(c.SenderDomain, "."+real) {
			return true
		}
	}
	return false
}

func senderDigits(c *EmailContext) int {
	n := 0
	for _, r := range c.SenderLocal {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// =============================================================================
// EMAIL RED FLAG VOCABULARY (40)
// =============================================================================

var emailRedIndicators = []indicator[EmailContext]{
	{"urgent_subject", func(c *EmailContext) bool { return containsAny(c.Subject, urgencyPhrases) }},
	{"subject_exclamation", func(c *EmailContext) bool { return strings.Contains(c.RawSubject, "!") }},
	{"subject_all_caps_word", func(c *EmailContext) bool { return reCapsWord.MatchString(c.RawSubject) }},
	{"urgency_language", func(c *EmailContext) bool { return containsAny(c.Content, urgencyPhrases) }},
	{"deadline_pressure", func(c *EmailContext) bool { return containsAny(c.Combined, deadlinePhrases) }},
	{"pressure_tactics", func(c *EmailContext) bool { return containsAny(c.Combined, pressurePhrases) }},
	{"threat_language", func(c *EmailContext) bool { return containsAny(c.Combined, threatPhrases) }},
	{"account_suspension", func(c *EmailContext) bool { return containsAny(c.Combined, suspensionPhrases) }},
	{"generic_greeting", func(c *EmailContext) bool { return containsAny(c.Content, genericGreetings) }},
	{"sensitive_info_request", func(c *EmailContext) bool { return containsAny(c.Combined, sensitivePhrases) }},
	{"credential_form_language", func(c *EmailContext) bool {
		return strings.Contains(c.Content, "enter your") &&
			(strings.Contains(c.Content, "password") || strings.Contains(c.Content, "credential") ||
				strings.Contains(c.Content, "card"))
	}},
	{"verification_request", func(c *EmailContext) bool { return containsAny(c.Combined, verificationPhrases) }},
	{"security_alert_language", func(c *EmailContext) bool { return containsAny(c.Combined, securityAlertPhrases) }},
	{"reward_bait", func(c *EmailContext) bool { return containsAny(c.Combined, rewardPhrases) }},
	{"gift_card_bait", func(c *EmailContext) bool { return strings.Contains(c.Combined, "gift card") }},
	{"money_request", func(c *EmailContext) bool { return containsAny(c.Combined, moneyPhrases) }},
	{"crypto_mention", func(c *EmailContext) bool { return containsAny(c.Combined, cryptoPhrases) }},
	{"tax_refund_bait", func(c *EmailContext) bool {
		return strings.Contains(c.Combined, "tax refund") || strings.Contains(c.Combined, "irs ") ||
			strings.Contains(c.Combined, "hmrc")
	}},
	{"delivery_scam", func(c *EmailContext) bool { return containsAny(c.Combined, deliveryScamPhrases) }},
	{"suspicious_attachment", func(c *EmailContext) bool { return containsAny(c.Content, attachmentPhrases) }},
	{"double_extension_attachment", func(c *EmailContext) bool { return reDoubleExtension.MatchString(c.RawContent) }},
	{"click_here_language", func(c *EmailContext) bool { return containsAny(c.Content, clickPhrases) }},
	{"contains_urls", func(c *EmailContext) bool { return len(c.URLs) > 0 }},
	{"multiple_urls", func(c *EmailContext) bool { return len(c.URLs) > 3 }},
	{"http_only_links", func(c *EmailContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return !strings.HasPrefix(lc.Lower, "https://") })
	}},
	{"suspicious_tld_link", func(c *EmailContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return hasSuspiciousTLD(lc.TLD) })
	}},
	{"ip_literal_link", func(c *EmailContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return lc.IsIP })
	}},
	{"shortened_link", func(c *EmailContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return isShortener(lc.Host) })
	}},
	{"login_style_link", func(c *EmailContext) bool { return c.anyLink(loginStyleLink) }},
	{"obfuscated_link", func(c *EmailContext) bool {
		return c.anyLink(func(lc *URLContext) bool {
			return lc.Ats > 0 || strings.Contains(lc.Host, "xn--")
		})
	}},
	{"defanged_content", func(c *EmailContext) bool { return c.Defanged }},
	{"lookalike_sender_domain", senderLookalike},
	{"suspicious_sender_tld", func(c *EmailContext) bool { return hasSuspiciousTLD(c.SenderTLD) }},
	{"freemail_brand_claim", freemailBrandClaim},
	{"display_name_brand_mismatch", displayBrandMismatch},
	{"digits_in_sender", func(c *EmailContext) bool { return senderDigits(c) >= 2 }},
	{"excessive_punctuation", func(c *EmailContext) bool {
		return reRepeatPunct.MatchString(c.RawContent) || reRepeatPunct.MatchString(c.RawSubject)
	}},
	{"high_uppercase_ratio", func(c *EmailContext) bool { return c.Stats.UppercaseRatio > 0.3 }},
	{"all_caps_words_body", func(c *EmailContext) bool { return c.CapsWords >= 2 }},
	{"keyword_overload", func(c *EmailContext) bool { return len(c.Keywords) > 5 }},
}

// =============================================================================
// EMAIL GREEN FLAG VOCABULARY (40)
// Absence-heavy: a short, calm, trusted email should clear most of these.
// Link checks are vacuously true when the email carries no links.
// =============================================================================

var emailGreenIndicators = []indicator[EmailContext]{
	{"trusted_sender_domain", func(c *EmailContext) bool { return c.SenderTrusted }},
	{"sender_present", func(c *EmailContext) bool { return c.SenderDomain != "" }},
	{"display_matches_domain", func(c *EmailContext) bool {
		if c.SenderDisplay == "" || c.SenderDomain == "" {
			return false
		}
		for _, word := range strings.Fields(c.SenderDisplay) {
			if len(word) >= 4 && strings.Contains(c.SenderDomain, word) {
				return true
			}
		}
		return false
	}},
	{"personalized_greeting", func(c *EmailContext) bool {
		return rePersonalGreeting.MatchString(c.RawContent) &&
			!containsAny(c.Content, genericGreetings)
	}},
	{"order_reference", func(c *EmailContext) bool {
		return reOrderReference.MatchString(c.RawSubject) || reOrderReference.MatchString(c.RawContent)
	}},
	{"tracking_reference", func(c *EmailContext) bool { return strings.Contains(c.Content, "tracking") }},
	{"unsubscribe_option", func(c *EmailContext) bool { return strings.Contains(c.Content, "unsubscribe") }},
	{"signature_block", func(c *EmailContext) bool {
		return strings.Contains(c.Content, "regards") || strings.Contains(c.Content, "sincerely") ||
			strings.Contains(c.Content, "thank you") || strings.Contains(c.Content, "best,")
	}},
	{"no_urls", func(c *EmailContext) bool { return len(c.URLs) == 0 }},
	{"all_links_https", func(c *EmailContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return strings.HasPrefix(lc.Lower, "https://") })
	}},
	{"all_links_trusted", func(c *EmailContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return lc.Trusted })
	}},
	{"no_shortened_links", func(c *EmailContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return !isShortener(lc.Host) })
	}},
	{"no_suspicious_tld_links", func(c *EmailContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return !hasSuspiciousTLD(lc.TLD) })
	}},
	{"no_ip_links", func(c *EmailContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return !lc.IsIP })
	}},
	{"no_login_style_links", func(c *EmailContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return !loginStyleLink(lc) })
	}},
	{"no_urgency", func(c *EmailContext) bool { return !containsAny(c.Combined, urgencyPhrases) }},
	{"no_pressure_tactics", func(c *EmailContext) bool { return !containsAny(c.Combined, pressurePhrases) }},
	{"no_threat_language", func(c *EmailContext) bool { return !containsAny(c.Combined, threatPhrases) }},
	{"no_suspension_language", func(c *EmailContext) bool { return !containsAny(c.Combined, suspensionPhrases) }},
	{"no_sensitive_request", func(c *EmailContext) bool { return !containsAny(c.Combined, sensitivePhrases) }},
	{"no_credential_form", func(c *EmailContext) bool { return !strings.Contains(c.Content, "enter your") }},
	{"no_verification_request", func(c *EmailContext) bool { return !containsAny(c.Combined, verificationPhrases) }},
	{"no_reward_bait", func(c *EmailContext) bool { return !containsAny(c.Combined, rewardPhrases) }},
	{"no_money_request", func(c *EmailContext) bool { return !containsAny(c.Combined, moneyPhrases) }},
	{"no_gift_card_bait", func(c *EmailContext) bool { return !strings.Contains(c.Combined, "gift card") }},
	{"no_crypto_mention", func(c *EmailContext) bool { return !containsAny(c.Combined, cryptoPhrases) }},
	{"no_delivery_scam", func(c *EmailContext) bool { return !containsAny(c.Combined, deliveryScamPhrases) }},
	{"no_suspicious_attachment", func(c *EmailContext) bool { return !containsAny(c.Content, attachmentPhrases) }},
	{"no_click_here", func(c *EmailContext) bool { return !containsAny(c.Content, clickPhrases) }},
	{"low_uppercase_ratio", func(c *EmailContext) bool { return c.Stats.UppercaseRatio <= 0.2 }},
	{"no_caps_shouting", func(c *EmailContext) bool { return c.CapsWords < 2 }},
	{"measured_punctuation", func(c *EmailContext) bool {
		return !reRepeatPunct.MatchString(c.RawContent) && strings.Count(c.RawContent, "!") <= 3
	}},
	{"few_keywords", func(c *EmailContext) bool { return len(c.Keywords) <= 3 }},
	{"no_generic_greeting", func(c *EmailContext) bool { return !containsAny(c.Content, genericGreetings) }},
	{"professional_tone", func(c *EmailContext) bool {
		return c.Stats.UppercaseRatio <= 0.2 && !reRepeatPunct.MatchString(c.RawContent) &&
			!containsAny(c.Combined, urgencyPhrases)
	}},
	{"moderate_length", func(c *EmailContext) bool { return c.Stats.Length >= 40 && c.Stats.Length <= 5000 }},
	{"subject_present", func(c *EmailContext) bool { return strings.TrimSpace(c.RawSubject) != "" }},
	{"subject_calm", func(c *EmailContext) bool {
		return strings.TrimSpace(c.RawSubject) != "" && !strings.Contains(c.RawSubject, "!") &&
			!containsAny(c.Subject, urgencyPhrases)
	}},
	{"no_deadline_pressure", func(c *EmailContext) bool { return !containsAny(c.Combined, deadlinePhrases) }},
	{"no_freemail_brand_claim", func(c *EmailContext) bool { return !freemailBrandClaim(c) }},
}

// ExtractEmail evaluates the email vocabulary and returns the flags plus
// the derived artifacts the fusion engine consumes.
func ExtractEmail(in EmailInput) (FlagSet, Artifacts, *EmailContext) {
	ctx := BuildEmailContext(in)
	fs := FlagSet{
		Red:   evaluate(emailRedIndicators, ctx),
		Green: evaluate(emailGreenIndicators, ctx),
	}
	arts := Artifacts{
		URLs:                 ctx.URLs,
		Keywords:             ctx.Keywords,
		HighPriorityKeywords: ctx.HighPriority,
		Stats:                ctx.Stats,
	}
	red, green := fs.RedScore(), fs.GreenScore()
	arts.MultipleRedFlags = red >= emailMultiRedThreshold
	arts.LowRiskOverall = green >= 15 && red <= 3
	return fs, arts, ctx
}

// emailMultiRedThreshold is the red count at which the explanation-only
// "multiple red flags" meta-flag fires for emails.
const emailMultiRedThreshold = 5
