package assistant

import (
	"strings"

	"github.com/rs/zerolog"
)

var diagnosisPhrases = []string{
	"diagnose", "diagnosis", "what disease", "what condition",
	"am i sick", "do i have", "is it cancer", "prescribe",
}

var blockedReplyPhrases = []string{
	"diagnose you with",
	"you have been diagnosed",
	"this confirms you have",
	"take this medication",
	"stop taking your",
	"i prescribe",
	"your treatment should be",
}

// SafetyVerdict is the result of scanning a query for diagnosis-seeking language.
type SafetyVerdict struct {
	Safe  bool
	Flags []string
}

// Guard performs the pre- and post-call safety checks.
type Guard struct {
	disclaimer string
	logger     zerolog.Logger
}

func NewGuard(disclaimer string, logger zerolog.Logger) *Guard {
	return &Guard{disclaimer: disclaimer, logger: logger}
}

// Disclaimer returns the text appended to patient replies.
func (g *Guard) Disclaimer() string {
	return g.disclaimer
}

// CheckInput flags diagnosis-seeking phrases. The query is never modified.
func (g *Guard) CheckInput(query string) SafetyVerdict {
	flags := matchPhrases(query, diagnosisPhrases)
	return SafetyVerdict{Safe: len(flags) == 0, Flags: flags}
}

// CheckOutput reports blocked phrases in a patient-tier reply and logs a
// warning for each one. The reply itself is left untouched.
func (g *Guard) CheckOutput(reply string, tier AudienceTier) []string {
	if tier != TierPatient {
		return nil
	}
	hits := matchPhrases(reply, blockedReplyPhrases)
	for _, phrase := range hits {
		g.logger.Warn().
			Str("pattern", phrase).
			Str("tier", tier.String()).
			Msg("blocked pattern detected in model reply")
	}
	return hits
}

// ApplyDisclaimer appends the disclaimer to patient-tier replies.
func (g *Guard) ApplyDisclaimer(reply string, tier AudienceTier) string {
	if tier == TierClinician {
		return reply
	}
	return withDisclaimer(reply, g.disclaimer)
}

// Sanitize runs CheckOutput then ApplyDisclaimer.
func (g *Guard) Sanitize(reply string, tier AudienceTier) string {
	g.CheckOutput(reply, tier)
	return g.ApplyDisclaimer(reply, tier)
}

func withDisclaimer(reply, disclaimer string) string {
	if disclaimer == "" {
		return reply
	}
	return reply + "\n\n" + disclaimer
}

func matchPhrases(text string, phrases []string) []string {
	lower := strings.ToLower(text)
	var hits []string
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			hits = append(hits, p)
		}
	}
	return hits
}
