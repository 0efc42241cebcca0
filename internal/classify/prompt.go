package classify

import (
	"fmt"

	"github.com/linnemanlabs/sift/internal/mail"
)

const (
	importanceBodyLimit = 1000
	summaryBodyLimit    = 2000
)

// buildImportancePrompt embeds the message and an explicit trash/keep
// taxonomy mirroring the heuristic's categories.
func buildImportancePrompt(m *mail.Message) string {
	return fmt.Sprintf(`You are an aggressive email importance analyzer. Your job is to identify emails that are truly TRASH and safe to delete.

Email Details:
- From: %s
- Subject: %s
- Date: %s
- Content: %s

TRASH EMAIL CATEGORIES (safe_to_delete=true, low scores):
- Marketing and promotional emails (sales, deals, coupons) -> "promotional"
- Newsletters and subscription digests -> "newsletter"
- Social media notifications -> "social"
- Automated service notifications with no action required -> "automated"

KEEP EMAILS (safe_to_delete=false, high scores):
- Security alerts, password resets, account notifications -> "security"
- Banking, payments, invoices, tax documents -> "financial"
- Medical communications, healthcare -> "medical"
- Direct personal communications -> "personal"
- Anything else that does not fit -> "other"

BE AGGRESSIVE: if it looks like marketing trash, score it 1-3 and mark safe_to_delete=true.
BE CONSERVATIVE: only for security/financial/medical emails, set safety_override=true.

Respond with exactly one JSON object in this format:
{
    "importance_score": <number 0-10>,
    "importance_level": "<CRITICAL|HIGH|MEDIUM|LOW|SPAM>",
    "safe_to_delete": <true|false>,
    "safety_override": <true|false>,
    "reasons": ["reason 1", "reason 2"],
    "email_category": "<category>"
}`,
		m.Sender, m.Subject, m.Date, truncateBody(m.TextBody, importanceBodyLimit))
}

// buildSummaryPrompt asks for a short summary with key points.
func buildSummaryPrompt(m *mail.Message) string {
	return fmt.Sprintf(`Summarize this email concisely in 1-2 sentences and extract key points.

Email:
From: %s
Subject: %s
Content: %s

Respond with exactly one JSON object in this format:
{
    "summary": "<1-2 sentence summary>",
    "key_points": ["point 1", "point 2"],
    "sentiment": "<positive|negative|neutral|urgent>",
    "urgency_indicators": ["indicator 1"]
}`,
		m.Sender, m.Subject, truncateBody(m.TextBody, summaryBodyLimit))
}

func truncateBody(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
