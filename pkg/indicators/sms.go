package indicators

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/phishguard-io/phishguard/pkg/textproc"
)

var (
	reMoneyAmount   = regexp.MustCompile(`[$£€]\s?\d+`)
	reLongDigitRun  = regexp.MustCompile(`\d{8,}`)
	rePremiumRate   = regexp.MustCompile(`\b1?-?900[-\s]?\d{3}`)
	reLeetWord      = regexp.MustCompile(`[a-z][013$@][a-z]`)
	reTextShortcuts = regexp.MustCompile(`\b(?:u|ur|pls|plz|txt|2day|gr8|w8)\b`)
	reReplyBait     = regexp.MustCompile(`\breply\s+(?:yes|y|now|asap|1)\b`)
	reNowWord       = regexp.MustCompile(`\bnow\b`)
)

var (
	smsClaimPhrases = []string{
		"claim your", "to claim", "claim now", "collect your",
	}
	smsJobPhrases = []string{
		"work from home", "earn $", "job offer", "hiring now",
		"part-time opportunity",
	}
	smsGovPhrases = []string{
		"irs", "hmrc", "social security administration", "tax authority",
		"government grant",
	}
	smsOTPPhrases = []string{
		"otp", "one-time password", "one time password", "verification code",
		"security code",
	}
	smsFeePhrases = []string{
		"small fee", "processing fee", "fee of", "release fee",
		"redelivery fee",
	}
	smsAccountPhrases = []string{
		"account has been", "account is", "account suspended",
		"account locked", "account on hold", "account issue",
		"account problem",
	}
)

// SMSContext is the precomputed evaluation context for the SMS vocabulary.
type SMSContext struct {
	Raw     string
	Content string // canonicalized

	URLs     []string
	LinkCtxs []*URLContext

	Keywords     []string
	HighPriority []string
	Stats        textproc.Statistics
	CapsWords    int
	Exclamations int
	Defanged     bool
}

// BuildSMSContext normalizes an SMS message into its evaluation context.
func BuildSMSContext(content string) *SMSContext {
	ctx := &SMSContext{
		Raw:     content,
		Content: textproc.Canonicalize(content),
	}
	normalized := textproc.NormalizeDefanged(content)
	ctx.Defanged = normalized != content
	ctx.URLs = capURLs(textproc.ExtractURLs(content))
	ctx.LinkCtxs = make([]*URLContext, len(ctx.URLs))
	for i, u := range ctx.URLs {
		ctx.LinkCtxs[i] = BuildURLContext(u)
	}
	ctx.Keywords = textproc.MatchedKeywords(content)
	ctx.HighPriority = textproc.MatchedHighPriorityKeywords(content)
	ctx.Stats = textproc.ComputeStatistics(content)
	ctx.CapsWords = len(reCapsWord.FindAllString(content, -1))
	ctx.Exclamations = strings.Count(content, "!")
	return ctx
}

func (c *SMSContext) anyLink(pred func(*URLContext) bool) bool {
	for _, lc := range c.LinkCtxs {
		if pred(lc) {
			return true
		}
	}
	return false
}

func (c *SMSContext) everyLink(pred func(*URLContext) bool) bool {
	for _, lc := range c.LinkCtxs {
		if !pred(lc) {
			return false
		}
	}
	return true
}

func smsUrgency(c *SMSContext) bool {
	return containsAny(c.Content, urgencyPhrases) || reNowWord.MatchString(c.Content)
}

func smsPrize(c *SMSContext) bool    { return containsAny(c.Content, rewardPhrases) }
func smsHasMoney(c *SMSContext) bool { return reMoneyAmount.MatchString(c.Raw) }

// =============================================================================
// SMS RED FLAG VOCABULARY (40)
// SMS phishing compresses the whole playbook into 160 characters, so the
// vocabulary leans on tone (caps, exclamations, shortcuts) and on
// combination flags pairing a lure with a link.
// =============================================================================

var smsRedIndicators = []indicator[SMSContext]{
	{"all_caps_words", func(c *SMSContext) bool { return c.CapsWords >= 1 }},
	{"excessive_caps", func(c *SMSContext) bool { return c.Stats.UppercaseRatio > 0.3 }},
	{"prize_language", smsPrize},
	{"congratulations_opener", func(c *SMSContext) bool {
		return strings.HasPrefix(c.Content, "congratulations") || strings.HasPrefix(c.Content, "congrats")
	}},
	{"money_amount", smsHasMoney},
	{"gift_card_bait", func(c *SMSContext) bool { return strings.Contains(c.Content, "gift card") }},
	{"claim_instruction", func(c *SMSContext) bool { return containsAny(c.Content, smsClaimPhrases) }},
	{"urgency_language", smsUrgency},
	{"shortened_link", func(c *SMSContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return isShortener(lc.Host) })
	}},
	{"contains_url", func(c *SMSContext) bool { return len(c.URLs) > 0 }},
	{"free_offer", func(c *SMSContext) bool { return strings.Contains(c.Content, "free ") }},
	{"lottery_language", func(c *SMSContext) bool {
		return strings.Contains(c.Content, "lottery") || strings.Contains(c.Content, "sweepstake") ||
			strings.Contains(c.Content, "jackpot") || strings.Contains(c.Content, "lucky winner")
	}},
	{"account_problem", func(c *SMSContext) bool { return containsAny(c.Content, smsAccountPhrases) }},
	{"bank_impersonation", func(c *SMSContext) bool {
		return strings.Contains(c.Content, "bank") &&
			(len(c.URLs) > 0 || containsAny(c.Content, verificationPhrases))
	}},
	{"delivery_problem", func(c *SMSContext) bool {
		if containsAny(c.Content, deliveryScamPhrases) {
			return true
		}
		return (strings.Contains(c.Content, "package") || strings.Contains(c.Content, "parcel")) &&
			len(c.URLs) > 0
	}},
	{"verify_request", func(c *SMSContext) bool { return containsAny(c.Content, verificationPhrases) }},
	{"sensitive_info_request", func(c *SMSContext) bool { return containsAny(c.Content, sensitivePhrases) }},
	{"call_to_action_link", func(c *SMSContext) bool {
		if containsAny(c.Content, clickPhrases) {
			return true
		}
		return len(c.URLs) > 0 &&
			(strings.Contains(c.Content, "click") || strings.Contains(c.Content, "visit ") ||
				strings.Contains(c.Content, "go to "))
	}},
	{"premium_rate_number", func(c *SMSContext) bool { return rePremiumRate.MatchString(c.Raw) }},
	{"reply_bait", func(c *SMSContext) bool { return reReplyBait.MatchString(c.Content) }},
	{"government_impersonation", func(c *SMSContext) bool { return containsAny(c.Content, smsGovPhrases) }},
	{"suspicious_tld_link", func(c *SMSContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return hasSuspiciousTLD(lc.TLD) })
	}},
	{"ip_link", func(c *SMSContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return lc.IsIP })
	}},
	{"http_link", func(c *SMSContext) bool {
		return c.anyLink(func(lc *URLContext) bool { return !strings.HasPrefix(lc.Lower, "https://") })
	}},
	{"exclamation_marks", func(c *SMSContext) bool { return c.Exclamations >= 1 }},
	{"multiple_exclamations", func(c *SMSContext) bool { return c.Exclamations >= 3 }},
	{"grammar_shortcuts", func(c *SMSContext) bool { return reTextShortcuts.MatchString(c.Content) }},
	{"expiry_pressure", func(c *SMSContext) bool { return containsAny(c.Content, deadlinePhrases) }},
	{"otp_phishing", func(c *SMSContext) bool {
		return containsAny(c.Content, smsOTPPhrases) &&
			(strings.Contains(c.Content, "share") || strings.Contains(c.Content, "send") ||
				strings.Contains(c.Content, "provide") || len(c.URLs) > 0)
	}},
	{"job_scam", func(c *SMSContext) bool { return containsAny(c.Content, smsJobPhrases) }},
	{"crypto_bait", func(c *SMSContext) bool { return containsAny(c.Content, cryptoPhrases) }},
	{"fee_request", func(c *SMSContext) bool { return containsAny(c.Content, smsFeePhrases) }},
	{"threat_language", func(c *SMSContext) bool { return containsAny(c.Content, threatPhrases) }},
	{"impersonal_greeting", func(c *SMSContext) bool { return containsAny(c.Content, genericGreetings) }},
	{"long_number_string", func(c *SMSContext) bool { return reLongDigitRun.MatchString(c.Raw) }},
	{"mixed_leetspeak", func(c *SMSContext) bool { return reLeetWord.MatchString(c.Content) }},
	{"account_verification_link", func(c *SMSContext) bool { return c.anyLink(loginStyleLink) }},
	{"prize_with_link", func(c *SMSContext) bool { return smsPrize(c) && len(c.URLs) > 0 }},
	{"money_with_link", func(c *SMSContext) bool { return smsHasMoney(c) && len(c.URLs) > 0 }},
	{"urgency_with_link", func(c *SMSContext) bool { return smsUrgency(c) && len(c.URLs) > 0 }},
}

// =============================================================================
// SMS GREEN FLAG VOCABULARY (40)
// A plain conversational message should clear nearly all of these, which is
// what the benign SMS cascade threshold (green > 15, red < 3) assumes.
// =============================================================================

var smsGreenIndicators = []indicator[SMSContext]{
	{"no_urls", func(c *SMSContext) bool { return len(c.URLs) == 0 }},
	{"no_money_amount", func(c *SMSContext) bool { return !smsHasMoney(c) }},
	{"no_prize_language", func(c *SMSContext) bool { return !smsPrize(c) }},
	{"no_urgency", func(c *SMSContext) bool { return !smsUrgency(c) }},
	{"no_sensitive_request", func(c *SMSContext) bool { return !containsAny(c.Content, sensitivePhrases) }},
	{"no_caps_words", func(c *SMSContext) bool { return c.CapsWords == 0 }},
	{"no_exclamations", func(c *SMSContext) bool { return c.Exclamations == 0 }},
	{"no_shortened_link", func(c *SMSContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return !isShortener(lc.Host) })
	}},
	{"conversational_length", func(c *SMSContext) bool { return c.Stats.Length > 0 && c.Stats.Length <= 160 }},
	{"personal_tone", func(c *SMSContext) bool {
		return (strings.Contains(c.Content, "hi ") || strings.Contains(c.Content, "hey") ||
			strings.Contains(c.Content, "hello")) && !containsAny(c.Content, genericGreetings)
	}},
	{"no_leetspeak", func(c *SMSContext) bool { return !reLeetWord.MatchString(c.Content) }},
	{"sentence_case", func(c *SMSContext) bool {
		runes := []rune(strings.TrimSpace(c.Raw))
		return len(runes) > 0 && unicode.IsUpper(runes[0]) && c.Stats.UppercaseRatio <= 0.2
	}},
	{"no_call_to_action", func(c *SMSContext) bool { return !containsAny(c.Content, clickPhrases) }},
	{"no_gift_card", func(c *SMSContext) bool { return !strings.Contains(c.Content, "gift card") }},
	{"no_lottery", func(c *SMSContext) bool {
		return !strings.Contains(c.Content, "lottery") && !strings.Contains(c.Content, "jackpot")
	}},
	{"no_delivery_scam", func(c *SMSContext) bool { return !containsAny(c.Content, deliveryScamPhrases) }},
	{"no_threats", func(c *SMSContext) bool { return !containsAny(c.Content, threatPhrases) }},
	{"no_otp_request", func(c *SMSContext) bool { return !containsAny(c.Content, smsOTPPhrases) }},
	{"no_premium_number", func(c *SMSContext) bool { return !rePremiumRate.MatchString(c.Raw) }},
	{"no_government_claims", func(c *SMSContext) bool { return !containsAny(c.Content, smsGovPhrases) }},
	{"no_job_offer", func(c *SMSContext) bool { return !containsAny(c.Content, smsJobPhrases) }},
	{"no_crypto", func(c *SMSContext) bool { return !containsAny(c.Content, cryptoPhrases) }},
	{"no_expiry_pressure", func(c *SMSContext) bool { return !containsAny(c.Content, deadlinePhrases) }},
	{"no_account_problem", func(c *SMSContext) bool { return !containsAny(c.Content, smsAccountPhrases) }},
	{"no_bank_mention", func(c *SMSContext) bool { return !strings.Contains(c.Content, "bank") }},
	{"balanced_punctuation", func(c *SMSContext) bool { return c.Exclamations <= 1 }},
	{"moderate_digits", func(c *SMSContext) bool { return c.Stats.DigitCount <= 6 }},
	{"no_impersonal_greeting", func(c *SMSContext) bool { return !containsAny(c.Content, genericGreetings) }},
	{"no_fee_request", func(c *SMSContext) bool { return !containsAny(c.Content, smsFeePhrases) }},
	{"https_links_only", func(c *SMSContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return strings.HasPrefix(lc.Lower, "https://") })
	}},
	{"no_suspicious_tld_links", func(c *SMSContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return !hasSuspiciousTLD(lc.TLD) })
	}},
	{"no_ip_links", func(c *SMSContext) bool {
		return c.everyLink(func(lc *URLContext) bool { return !lc.IsIP })
	}},
	{"short_message", func(c *SMSContext) bool { return c.Stats.Length > 0 && c.Stats.Length <= 320 }},
	{"has_lowercase_text", func(c *SMSContext) bool {
		return strings.IndexFunc(c.Raw, unicode.IsLower) >= 0
	}},
	{"no_verification_request", func(c *SMSContext) bool { return !containsAny(c.Content, verificationPhrases) }},
	{"no_reply_bait", func(c *SMSContext) bool { return !reReplyBait.MatchString(c.Content) }},
	{"plain_language", func(c *SMSContext) bool { return len(c.Keywords) <= 1 }},
	{"no_free_offer", func(c *SMSContext) bool { return !strings.Contains(c.Content, "free ") }},
	{"no_claim_instruction", func(c *SMSContext) bool { return !containsAny(c.Content, smsClaimPhrases) }},
	{"no_grammar_shortcuts", func(c *SMSContext) bool { return !reTextShortcuts.MatchString(c.Content) }},
}

// ExtractSMS evaluates the SMS vocabulary and returns the flags plus the
// derived artifacts the fusion engine consumes.
func ExtractSMS(content string) (FlagSet, Artifacts, *SMSContext) {
	ctx := BuildSMSContext(content)
	fs := FlagSet{
		Red:   evaluate(smsRedIndicators, ctx),
		Green: evaluate(smsGreenIndicators, ctx),
	}
	arts := Artifacts{
		URLs:                 ctx.URLs,
		Keywords:             ctx.Keywords,
		HighPriorityKeywords: ctx.HighPriority,
		Stats:                ctx.Stats,
	}
	red, green := fs.RedScore(), fs.GreenScore()
	arts.MultipleRedFlags = red >= smsMultiRedThreshold
	arts.LowRiskOverall = green > 15 && red < 3
	return fs, arts, ctx
}

// smsMultiRedThreshold is the red count at which the explanation-only
// "multiple red flags" meta-flag fires for SMS.
const smsMultiRedThreshold = 4
