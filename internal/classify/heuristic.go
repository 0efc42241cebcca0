package classify

import (
	"strings"

	"github.com/linnemanlabs/sift/internal/mail"
)

const (
	baselineScore  = 5.0
	securityScore  = 9.0
	medicalScore   = 8.0
	financialScore = 7.5
	vipScore       = 8.0
	personalScore  = 6.5

	// safeToDelete requires the final score to sit below this line.
	deleteSafeBelow = 4.0
)

// Sender local-part and service-name fragments typical of bulk marketing
// senders. Matched against the full lowercased sender address.
var marketingSenderPatterns = []string{
	"deals", "offers", "promo", "marketing", "newsletter",
	"sales", "noreply", "no-reply", "donotreply", "notify",
	"notifications", "updates", "fitness", "events",
}

// Domains used almost exclusively for bulk mail delivery.
var marketingDomains = []string{
	"amazonses.com", "mailchimp.com", "sendgrid.net", "constantcontact.com",
	"facebookmail.com", "linkedin.com", "twitter.com", "pinterest.com",
	"groupon.com", "retailmenot.com",
}

var marketingKeywords = []string{
	"% off", "percent off", "sale", "discount", "deal of", "free shipping",
	"limited time", "act now", "buy now", "shop now", "clearance",
	"coupon", "promo code", "unsubscribe", "special offer",
}

var newsletterKeywords = []string{
	"newsletter", "digest", "weekly update", "monthly update", "subscription",
}

var socialKeywords = []string{
	"friend request", "new follower", "mentioned you", "tagged you",
	"liked your", "commented on", "connection request",
}

var safetyKeywords = []string{
	"security", "password", "verify", "verification", "suspicious",
	"login", "sign-in", "sign in", "two-factor", "2fa", "fraud",
	"bank", "banking", "unauthorized",
}

var medicalKeywords = []string{
	"test results", "lab results", "prescription", "appointment", "doctor",
	"medical", "clinic", "pharmacy", "diagnosis", "patient",
}

var financialKeywords = []string{
	"invoice", "statement", "payment", "receipt", "tax",
	"direct deposit", "wire transfer", "transaction", "billing",
}

// Consumer mail providers; a sender here is probably a person.
var personalDomains = []string{
	"gmail.com", "googlemail.com", "yahoo.com", "hotmail.com",
	"outlook.com", "icloud.com", "protonmail.com", "me.com",
}

// Heuristic is the deterministic fallback classifier. It never performs I/O
// and never fails.
type Heuristic struct{}

// NewHeuristic creates the pattern-based classifier.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Classify scores a message from sender, subject and body patterns alone.
func (h *Heuristic) Classify(m *mail.Message, cfg *mail.AnalysisConfig) *mail.ImportanceScore {
	score := baselineScore
	category := mail.CategoryOther
	var reasons []string
	override := false

	sender := strings.ToLower(m.Sender)
	text := strings.ToLower(m.Subject + " " + m.TextBody)
	full := sender + " " + text

	if matchAny(sender, marketingSenderPatterns) {
		score -= 3.0
		category = mail.CategoryPromotional
		reasons = append(reasons, "sender matches marketing service pattern")
	}
	// Demotes as much as a sender-pattern match so a domain-only hit still
	// lands in the safe-to-delete band.
	if domain := m.SenderDomain(); domain != "" && contains(marketingDomains, domain) {
		score -= 3.0
		category = mail.CategoryPromotional
		reasons = append(reasons, "sender domain is a bulk mail service")
	}

	switch {
	case matchAny(text, socialKeywords):
		score -= 2.0
		category = mail.CategorySocial
		reasons = append(reasons, "contains social media notification keywords")
	case matchAny(text, newsletterKeywords):
		score -= 2.0
		category = mail.CategoryNewsletter
		reasons = append(reasons, "contains newsletter keywords")
	case matchAny(text, marketingKeywords):
		score -= 2.0
		if category == mail.CategoryOther {
			category = mail.CategoryPromotional
		}
		reasons = append(reasons, "contains aggressive marketing keywords")
	}

	// Protected categories trump every demotion above. Safety beats medical
	// beats financial.
	switch {
	case matchAny(full, safetyKeywords):
		score = securityScore
		category = mail.CategorySecurity
		override = cfg.EnableSafetyOverride
		reasons = append(reasons, "contains security-related keywords")
	case matchAny(full, medicalKeywords):
		score = medicalScore
		category = mail.CategoryMedical
		override = cfg.EnableSafetyOverride
		reasons = append(reasons, "contains medical keywords")
	case matchAny(full, financialKeywords):
		score = financialScore
		category = mail.CategoryFinancial
		override = cfg.EnableSafetyOverride
		reasons = append(reasons, "contains financial keywords")
	default:
		if isVIP(m, cfg) {
			if score < vipScore {
				score = vipScore
			}
			category = mail.CategoryPersonal
			reasons = append(reasons, "sender is on the VIP list")
		} else if domain := m.SenderDomain(); contains(personalDomains, domain) {
			if score < personalScore {
				score = personalScore
			}
			if category == mail.CategoryOther {
				category = mail.CategoryPersonal
			}
			reasons = append(reasons, "sender uses a personal mail provider")
		}
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	if len(reasons) == 0 {
		reasons = append(reasons, "no matching patterns, baseline score")
	}

	return &mail.ImportanceScore{
		Score:          score,
		Level:          mail.LevelForScore(score, override),
		SafeToDelete:   score < deleteSafeBelow && !override,
		SafetyOverride: override,
		Reasons:        reasons,
		Category:       category,
	}
}

func isVIP(m *mail.Message, cfg *mail.AnalysisConfig) bool {
	sender := strings.ToLower(m.Sender)
	for _, vip := range cfg.VIPSenders {
		if vip != "" && strings.Contains(sender, strings.ToLower(vip)) {
			return true
		}
	}
	domain := m.SenderDomain()
	for _, vip := range cfg.VIPDomains {
		if vip != "" && domain == strings.ToLower(vip) {
			return true
		}
	}
	return false
}

func matchAny(text string, patterns []string) bool {
	for _, p := range patterns {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}

func contains(set []string, s string) bool {
	for _, v := range set {
		if v == s {
			return true
		}
	}
	return false
}
