package textproc

// PhishingKeywords is the closed keyword vocabulary counted by the text
// statistics and surfaced in explanations. Order is fixed: matched keyword
// lists are reported in this order.
var PhishingKeywords = []string{
	"urgent", "verify", "account", "suspended", "confirm", "password",
	"click", "link", "winner", "prize", "congratulations", "free",
	"limited", "expire", "update", "security", "alert", "warning",
	"bank", "credit", "card", "paypal", "amazon", "apple", "microsoft",
	"login", "signin", "verification", "locked", "unusual",
}

// HighPriorityKeywords are the keywords that, in combination, can override
// the statistical classifier on their own (email cascade rule 2). Each one
// is a direct request for action on credentials or money.
var HighPriorityKeywords = []string{
	"verify your account", "verify your identity", "confirm your identity",
	"suspended", "account will be closed", "unusual activity",
	"enter your password", "update your payment", "confirm your password",
	"claim your prize", "wire transfer", "gift card",
}

// stopwords is a compact English stopword set. The training pipeline used
// the same set; keep in sync with the vectorizer artifacts.
var stopwords = map[string]bool{
	"a": true, "an": true, "and": true, "are": true, "as": true, "at": true,
	"be": true, "been": true, "but": true, "by": true, "can": true,
	"do": true, "for": true, "from": true, "had": true, "has": true,
	"have": true, "he": true, "her": true, "his": true, "i": true,
	"if": true, "in": true, "is": true, "it": true, "its": true,
	"me": true, "my": true, "no": true, "not": true, "of": true,
	"on": true, "or": true, "our": true, "she": true, "so": true,
	"that": true, "the": true, "their": true, "them": true, "they": true,
	"this": true, "to": true, "was": true, "we": true, "were": true,
	"will": true, "with": true, "you": true, "your": true,
}
