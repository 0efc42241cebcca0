package classify

import (
	"testing"

	"github.com/linnemanlabs/sift/internal/mail"
)

func testConfig() *mail.AnalysisConfig {
	cfg := &mail.AnalysisConfig{
		ImportanceModel:      "test-model",
		SummaryModel:         "test-model",
		MaxBatchSize:         10,
		EnableSafetyOverride: true,
	}
	cfg.Normalize()
	return cfg
}

func msg(sender, subject, body string) *mail.Message {
	return &mail.Message{
		ID:       "m-1",
		Sender:   sender,
		Subject:  subject,
		TextBody: body,
		Snippet:  body,
	}
}

func TestHeuristic_MarketingSenders(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	tests := []struct {
		name   string
		sender string
		body   string
	}{
		{"amazon deals", "deals@amazon.com", "Shop now and save big on summer items! Free shipping included."},
		{"netflix noreply", "noreply@netflix.com", "Check out these new shows and movies we think you'll love."},
		{"gym fitness", "fitness@gym.com", "Join now for 50% off your first month! Limited time fitness deal."},
		{"bulk domain", "hello@facebookmail.com", "You have notifications waiting."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := h.Classify(msg(tt.sender, "update", tt.body), testConfig())

			if s.Score > 2 {
				t.Errorf("score = %v, want <= 2", s.Score)
			}
			if !s.SafeToDelete {
				t.Error("expected safe_to_delete = true")
			}
			if s.SafetyOverride {
				t.Error("expected safety_override = false")
			}
			if len(s.Reasons) == 0 {
				t.Error("expected at least one reason")
			}
		})
	}
}

func TestHeuristic_PromotionalScenario(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	s := h.Classify(msg("deals@amazon.com", "50% OFF Summer Sale - Limited Time!",
		"Shop now and save big on summer items! Free shipping included."), testConfig())

	if s.Score > 2 {
		t.Errorf("score = %v, want <= 2", s.Score)
	}
	if s.Category != mail.CategoryPromotional {
		t.Errorf("category = %q, want %q", s.Category, mail.CategoryPromotional)
	}
	if !s.SafeToDelete {
		t.Error("expected safe_to_delete = true")
	}
}

func TestHeuristic_SecurityScenario(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	s := h.Classify(msg("security@bank.com", "Security Alert: Login from new device",
		"We detected a login from a new device. Please verify your identity."), testConfig())

	if s.Score < 7 {
		t.Errorf("score = %v, want >= 7", s.Score)
	}
	if !s.SafetyOverride {
		t.Error("expected safety_override = true")
	}
	if s.SafeToDelete {
		t.Error("expected safe_to_delete = false")
	}
	if s.Category != mail.CategorySecurity {
		t.Errorf("category = %q, want %q", s.Category, mail.CategorySecurity)
	}
	if s.Level != mail.LevelCritical {
		t.Errorf("level = %q, want %q", s.Level, mail.LevelCritical)
	}
}

func TestHeuristic_SafetyBeatsMarketing(t *testing.T) {
	t.Parallel()

	// marketing sender plus security keywords: safety wins
	h := NewHeuristic()
	s := h.Classify(msg("deals@shop.com", "Sale! Also, verify your password",
		"50% off everything. Please verify your password to continue."), testConfig())

	if s.Score < 7 {
		t.Errorf("score = %v, want >= 7", s.Score)
	}
	if !s.SafetyOverride {
		t.Error("expected safety_override = true despite marketing match")
	}
	if s.SafeToDelete {
		t.Error("expected safe_to_delete = false")
	}
	if s.Category != mail.CategorySecurity {
		t.Errorf("category = %q, want %q", s.Category, mail.CategorySecurity)
	}
}

func TestHeuristic_MedicalAndFinancial(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()

	med := h.Classify(msg("doctor@hospital.com", "Test results available - Please review",
		"Your recent lab test results are now available for review."), testConfig())
	if med.Score < 7 {
		t.Errorf("medical score = %v, want >= 7", med.Score)
	}
	if med.Category != mail.CategoryMedical {
		t.Errorf("medical category = %q, want %q", med.Category, mail.CategoryMedical)
	}
	if med.SafeToDelete {
		t.Error("medical mail should not be deletable")
	}

	fin := h.Classify(msg("billing@utility.com", "Your monthly invoice",
		"Your invoice for March is attached. Amount due on the 15th."), testConfig())
	if fin.Score < 7 {
		t.Errorf("financial score = %v, want >= 7", fin.Score)
	}
	if fin.Category != mail.CategoryFinancial {
		t.Errorf("financial category = %q, want %q", fin.Category, mail.CategoryFinancial)
	}
}

func TestHeuristic_MedicalBeatsFinancial(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	s := h.Classify(msg("office@clinic.com", "Appointment reminder and invoice",
		"Your appointment is Tuesday. The invoice for your last visit is attached."), testConfig())

	if s.Category != mail.CategoryMedical {
		t.Errorf("category = %q, want %q (medical precedence)", s.Category, mail.CategoryMedical)
	}
}

func TestHeuristic_PersonalDomain(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	s := h.Classify(msg("john.doe@gmail.com", "Re: Project discussion",
		"Thanks for the meeting today. As discussed, let's sync again on Friday."), testConfig())

	if s.Score < 5 {
		t.Errorf("score = %v, want >= 5", s.Score)
	}
	if s.SafeToDelete {
		t.Error("personal mail should not be deletable")
	}
	if s.Category != mail.CategoryPersonal {
		t.Errorf("category = %q, want %q", s.Category, mail.CategoryPersonal)
	}
}

func TestHeuristic_VIPSender(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.VIPSenders = []string{"boss@corp.com"}

	h := NewHeuristic()
	s := h.Classify(msg("boss@corp.com", "quick question", "Do you have a minute?"), cfg)

	if s.Score < 8 {
		t.Errorf("score = %v, want >= 8 for VIP sender", s.Score)
	}
	if s.SafetyOverride {
		t.Error("VIP boost must not set the safety override")
	}
	if s.SafeToDelete {
		t.Error("VIP mail should not be deletable")
	}
}

func TestHeuristic_NewsletterAndSocialCategories(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()

	news := h.Classify(msg("team@startup.io", "Our weekly digest",
		"Here is this week's newsletter with everything that happened."), testConfig())
	if news.Category != mail.CategoryNewsletter {
		t.Errorf("category = %q, want %q", news.Category, mail.CategoryNewsletter)
	}

	social := h.Classify(msg("friends@network.example", "Someone mentioned you",
		"Alex mentioned you in a comment."), testConfig())
	if social.Category != mail.CategorySocial {
		t.Errorf("category = %q, want %q", social.Category, mail.CategorySocial)
	}
}

func TestHeuristic_SafetyOverrideDisabled(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.EnableSafetyOverride = false

	h := NewHeuristic()
	s := h.Classify(msg("security@bank.com", "Security Alert",
		"Please verify your password."), cfg)

	if s.SafetyOverride {
		t.Error("safety override should stay false when disabled")
	}
	// the high score still protects the message
	if s.SafeToDelete {
		t.Error("expected safe_to_delete = false from score alone")
	}
	if s.Level != mail.LevelCritical {
		t.Errorf("level = %q, want CRITICAL from score 9", s.Level)
	}
}

func TestHeuristic_Deterministic(t *testing.T) {
	t.Parallel()

	h := NewHeuristic()
	m := msg("deals@amazon.com", "50% OFF", "sale sale sale")
	a := h.Classify(m, testConfig())
	b := h.Classify(m, testConfig())

	if a.Score != b.Score || a.Level != b.Level || a.Category != b.Category {
		t.Errorf("classification not deterministic: %+v vs %+v", a, b)
	}
}
