package priority

import (
	"testing"

	"github.com/inbox-snapshot/internal/types"
)

func TestScoreBaseline(t *testing.T) {
	res := Score(Input{SenderEmail: "someone@example.com"})

	if res.Score != 0.5 {
		t.Errorf("Expected baseline score 0.5, got %v", res.Score)
	}
	if res.Label != types.PriorityMedium {
		t.Errorf("Expected medium label, got %s", res.Label)
	}
	if len(res.Factors) != 0 {
		t.Errorf("Expected no factors, got %v", res.Factors)
	}
}

func TestScoreMarkedImportant(t *testing.T) {
	res := Score(Input{
		Labels:      []string{LabelImportant},
		SenderEmail: "boss@example.com",
	})

	if res.Score != 1.0 {
		t.Errorf("Expected score 1.0, got %v", res.Score)
	}
	if res.Label != types.PriorityUrgent {
		t.Errorf("Expected urgent label, got %s", res.Label)
	}
	if !containsFactor(res.Factors, FactorMarkedImportant) {
		t.Errorf("Expected marked-important factor, got %v", res.Factors)
	}
}

func TestScoreStarred(t *testing.T) {
	res := Score(Input{
		Labels:      []string{LabelStarred},
		SenderEmail: "friend@example.com",
	})

	if res.Score != 0.85 {
		t.Errorf("Expected score 0.85, got %v", res.Score)
	}
	if res.Label != types.PriorityUrgent {
		t.Errorf("Expected urgent label at 0.85, got %s", res.Label)
	}
}

func TestScorePromotionsClampsStarred(t *testing.T) {
	// Rule 3's min clamp applies after rules 1-2, so a starred promotional
	// message still lands at 0.3.
	res := Score(Input{
		Labels:      []string{LabelStarred, LabelCategoryPromotions},
		SenderEmail: "deals@shop.example.com",
	})

	if res.Score != 0.3 {
		t.Errorf("Expected promotions clamp to 0.3, got %v", res.Score)
	}
	if res.Label != types.PriorityLow {
		t.Errorf("Expected low label, got %s", res.Label)
	}
	if !containsFactor(res.Factors, FactorStarred) || !containsFactor(res.Factors, FactorPromotions) {
		t.Errorf("Expected both factors recorded, got %v", res.Factors)
	}
}

func TestScoreCategoryUpdates(t *testing.T) {
	res := Score(Input{
		Labels:      []string{LabelCategoryUpdates},
		SenderEmail: "noreply@service.example.com",
	})

	if res.Score != 0.4 {
		t.Errorf("Expected score 0.4, got %v", res.Score)
	}
	if res.Label != types.PriorityMedium {
		t.Errorf("Expected medium label at exactly 0.4, got %s", res.Label)
	}
}

func TestScoreCategoryPersonal(t *testing.T) {
	res := Score(Input{
		Labels:      []string{LabelCategoryPersonal},
		SenderEmail: "mom@example.com",
	})

	if res.Score != 0.7 {
		t.Errorf("Expected score 0.7, got %v", res.Score)
	}
	if res.Label != types.PriorityHigh {
		t.Errorf("Expected high label, got %s", res.Label)
	}
}

func TestScoreHighPriorityHeaders(t *testing.T) {
	res := Score(Input{
		Headers:     HeaderHints{Importance: "high"},
		SenderEmail: "alerts@example.com",
	})
	if res.Score != 0.8 {
		t.Errorf("Expected 0.8 for high importance header, got %v", res.Score)
	}

	res = Score(Input{
		Headers:     HeaderHints{Priority: "urgent"},
		SenderEmail: "alerts@example.com",
	})
	if res.Score != 0.8 {
		t.Errorf("Expected 0.8 for urgent priority header, got %v", res.Score)
	}

	res = Score(Input{
		Headers:     HeaderHints{XPriority: "1 (Highest)"},
		SenderEmail: "alerts@example.com",
	})
	if res.Score != 0.9 {
		t.Errorf("Expected 0.9 for X-Priority 1, got %v", res.Score)
	}
	if !containsFactor(res.Factors, FactorXPriorityHigh) {
		t.Errorf("Expected x-priority-high factor, got %v", res.Factors)
	}

	res = Score(Input{
		Headers:     HeaderHints{XPriority: "3"},
		SenderEmail: "alerts@example.com",
	})
	if res.Score != 0.5 {
		t.Errorf("Expected baseline for X-Priority 3, got %v", res.Score)
	}
}

func TestScoreTrustedDomainBonus(t *testing.T) {
	res := Score(Input{SenderEmail: "notifications@github.com"})

	if res.Score != 0.6 {
		t.Errorf("Expected 0.6 with trusted-domain bonus, got %v", res.Score)
	}
	if !containsFactor(res.Factors, FactorTrustedDomain) {
		t.Errorf("Expected trusted-domain factor, got %v", res.Factors)
	}
	if !res.IsImportant() {
		t.Error("Expected 0.6 to cross the importance threshold")
	}
}

func TestScoreTrustedDomainBonusCapped(t *testing.T) {
	res := Score(Input{
		Labels:      []string{LabelImportant},
		SenderEmail: "security@google.com",
	})

	if res.Score != 1.0 {
		t.Errorf("Expected bonus capped at 1.0, got %v", res.Score)
	}
}

func TestScoreLargeEmailBonus(t *testing.T) {
	res := Score(Input{
		SenderEmail:  "reports@example.com",
		SizeEstimate: 60000,
	})

	if res.Score != 0.55 {
		t.Errorf("Expected 0.55 with large-email bonus, got %v", res.Score)
	}
	if !containsFactor(res.Factors, FactorLargeEmail) {
		t.Errorf("Expected large-email factor, got %v", res.Factors)
	}

	// Exactly at the threshold gets no bonus.
	res = Score(Input{
		SenderEmail:  "reports@example.com",
		SizeEstimate: 50000,
	})
	if res.Score != 0.5 {
		t.Errorf("Expected no bonus at exactly 50000 bytes, got %v", res.Score)
	}
}

func TestLabelForScoreBoundaries(t *testing.T) {
	cases := []struct {
		score float64
		label types.PriorityLabel
	}{
		{1.0, types.PriorityUrgent},
		{0.85, types.PriorityUrgent},
		{0.84, types.PriorityHigh},
		{0.70, types.PriorityHigh},
		{0.69, types.PriorityMedium},
		{0.40, types.PriorityMedium},
		{0.39, types.PriorityLow},
		{0.0, types.PriorityLow},
	}

	for _, c := range cases {
		if got := LabelForScore(c.score); got != c.label {
			t.Errorf("LabelForScore(%v) = %s, expected %s", c.score, got, c.label)
		}
	}
}

func TestDomain(t *testing.T) {
	cases := []struct {
		email  string
		domain string
	}{
		{"user@Example.COM", "example.com"},
		{"user@sub.example.com", "sub.example.com"},
		{"invalid", ""},
		{"trailing@", ""},
	}

	for _, c := range cases {
		if got := Domain(c.email); got != c.domain {
			t.Errorf("Domain(%q) = %q, expected %q", c.email, got, c.domain)
		}
	}
}

func containsFactor(factors []string, want string) bool {
	for _, f := range factors {
		if f == want {
			return true
		}
	}
	return false
}
