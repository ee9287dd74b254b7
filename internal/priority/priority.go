// Package priority implements the multi-factor priority scoring engine.
//
// Scoring is a pure function over mailbox signals: labels, header hints, the
// sender address and a size estimate. It performs no I/O and is deterministic
// for a given input. Rules apply in a fixed order and clamp the score with
// max/min rather than assignment, so later rules tighten earlier ones instead
// of silently overriding them.
package priority

import (
	"math"
	"regexp"
	"strings"

	"github.com/inbox-snapshot/internal/types"
)

// Mailbox labels recognized by the scoring rules.
const (
	LabelImportant          = "IMPORTANT"
	LabelStarred            = "STARRED"
	LabelCategoryPromotions = "CATEGORY_PROMOTIONS"
	LabelCategoryUpdates    = "CATEGORY_UPDATES"
	LabelCategoryPersonal   = "CATEGORY_PERSONAL"
)

// Factor names recorded when a rule fires.
const (
	FactorMarkedImportant    = "marked-important"
	FactorStarred            = "starred"
	FactorPromotions         = "category-promotions"
	FactorUpdates            = "category-updates"
	FactorPersonal           = "category-personal"
	FactorHighPriorityHeader = "high-priority-header"
	FactorXPriorityHigh      = "x-priority-high"
	FactorTrustedDomain      = "trusted-domain"
	FactorLargeEmail         = "large-email"
)

// largeEmailThreshold is the size estimate in bytes above which a message
// receives the large-email bonus.
const largeEmailThreshold = 50000

// importantThreshold is the score at or above which a message is considered
// important where a boolean is exposed.
const importantThreshold = 0.6

var xPriorityHigh = regexp.MustCompile(`^[1-2]`)

// trustedDomains is the curated allowlist of major provider and platform
// domains that receive a small score bonus.
var trustedDomains = map[string]bool{
	"google.com":     true,
	"gmail.com":      true,
	"apple.com":      true,
	"microsoft.com":  true,
	"amazon.com":     true,
	"github.com":     true,
	"gitlab.com":     true,
	"slack.com":      true,
	"stripe.com":     true,
	"paypal.com":     true,
	"linkedin.com":   true,
	"atlassian.com":  true,
	"salesforce.com": true,
	"zoom.us":        true,
	"dropbox.com":    true,
	"notion.so":      true,
}

// HeaderHints carries the optional priority-related header values of a message.
type HeaderHints struct {
	Importance string `json:"importance,omitempty"`
	Priority   string `json:"priority,omitempty"`
	XPriority  string `json:"xPriority,omitempty"`
}

// Input is the set of mailbox signals scoring operates on.
type Input struct {
	Labels       []string
	Headers      HeaderHints
	SenderEmail  string
	SizeEstimate int
}

// Result carries the computed score, its label and the contributing factors.
type Result struct {
	Score   float64             `json:"score"`
	Label   types.PriorityLabel `json:"label"`
	Factors []string            `json:"factors"`
}

// IsImportant reports whether the score crosses the importance threshold.
func (r Result) IsImportant() bool {
	return r.Score >= importantThreshold
}

// Score computes the priority of a message from its mailbox signals.
func Score(in Input) Result {
	labels := make(map[string]bool, len(in.Labels))
	for _, l := range in.Labels {
		labels[strings.ToUpper(strings.TrimSpace(l))] = true
	}

	score := 0.5
	var factors []string

	// Rule 1: explicit importance marker
	if labels[LabelImportant] {
		score = math.Max(score, 1.0)
		factors = append(factors, FactorMarkedImportant)
	}

	// Rule 2: starred
	if labels[LabelStarred] {
		score = math.Max(score, 0.85)
		factors = append(factors, FactorStarred)
	}

	// Rule 3: category labels, mutually exclusive in this priority
	switch {
	case labels[LabelCategoryPromotions]:
		score = math.Min(score, 0.3)
		factors = append(factors, FactorPromotions)
	case labels[LabelCategoryUpdates]:
		score = math.Min(score, 0.4)
		factors = append(factors, FactorUpdates)
	case labels[LabelCategoryPersonal]:
		score = math.Max(score, 0.7)
		factors = append(factors, FactorPersonal)
	}

	// Rule 4: header-derived importance
	importance := strings.ToLower(strings.TrimSpace(in.Headers.Importance))
	priorityHeader := strings.ToLower(strings.TrimSpace(in.Headers.Priority))
	if importance == "high" || priorityHeader == "urgent" {
		score = math.Max(score, 0.8)
		factors = append(factors, FactorHighPriorityHeader)
	}
	if xPriorityHigh.MatchString(strings.TrimSpace(in.Headers.XPriority)) {
		score = math.Max(score, 0.9)
		factors = append(factors, FactorXPriorityHigh)
	}

	// Rule 5: trusted-domain bonus
	if trustedDomains[Domain(in.SenderEmail)] {
		score = math.Min(score+0.1, 1.0)
		factors = append(factors, FactorTrustedDomain)
	}

	// Rule 6: large-message bonus
	if in.SizeEstimate > largeEmailThreshold {
		score = math.Min(score+0.05, 1.0)
		factors = append(factors, FactorLargeEmail)
	}

	score = math.Round(score*100) / 100

	return Result{
		Score:   score,
		Label:   LabelForScore(score),
		Factors: factors,
	}
}

// LabelForScore maps a score in [0,1] to its priority label. The mapping is
// the single source of truth; a persisted label must never disagree with its
// score.
func LabelForScore(score float64) types.PriorityLabel {
	switch {
	case score >= 0.85:
		return types.PriorityUrgent
	case score >= 0.70:
		return types.PriorityHigh
	case score >= 0.40:
		return types.PriorityMedium
	default:
		return types.PriorityLow
	}
}

// Domain extracts the lowercase domain part of an email address.
func Domain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}
