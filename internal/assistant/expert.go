package assistant

import (
	"strings"

	"github.com/rs/zerolog"
)

// Category is the expert domain a query is routed to.
type Category string

const (
	CategoryLabAnalysis   Category = "lab_analysis"
	CategoryMedication    Category = "medication"
	CategoryRadiology     Category = "radiology"
	CategoryGeneralHealth Category = "general_health"
)

// expertProfile holds the trigger keywords for a routable category.
type expertProfile struct {
	category Category
	keywords []string
}

// routable is scanned in order; on equal scores the earlier entry wins.
// general_health has no keywords and is the fallback.
var routable = []expertProfile{
	{
		category: CategoryLabAnalysis,
		keywords: []string{
			"lab", "blood", "test", "result", "hemoglobin", "glucose",
			"cholesterol", "cbc", "metabolic", "panel", "range",
			"normal", "abnormal", "level", "count", "wbc", "rbc",
			"platelet", "creatinine", "bilirubin", "ast", "alt",
		},
	},
	{
		category: CategoryMedication,
		keywords: []string{
			"medication", "drug", "prescription", "dosage", "dose",
			"side effect", "interaction", "pill", "tablet", "capsule",
			"mg", "twice daily", "pharmacy", "refill", "generic",
		},
	},
	{
		category: CategoryRadiology,
		keywords: []string{
			"x-ray", "xray", "ct scan", "ct", "mri", "ultrasound",
			"imaging", "radiology", "scan", "finding", "impression",
			"opacity", "lesion", "nodule", "mass", "fracture",
		},
	},
}

// Categories lists every category, fallback last.
func Categories() []Category {
	return []Category{CategoryLabAnalysis, CategoryMedication, CategoryRadiology, CategoryGeneralHealth}
}

// RoutingDecision is the outcome of routing one query.
type RoutingDecision struct {
	Category Category
	Score    int
	Tier     AudienceTier
	Prompt   string
}

// Router picks an expert category by keyword substring counting.
type Router struct {
	logger zerolog.Logger
}

func NewRouter(logger zerolog.Logger) *Router {
	return &Router{logger: logger}
}

// Route classifies query for the given tier. hasDocument is only logged.
func (r *Router) Route(query string, tier AudienceTier, hasDocument bool) RoutingDecision {
	category, score := classify(query)

	r.logger.Debug().
		Str("category", string(category)).
		Int("score", score).
		Str("tier", tier.String()).
		Bool("has_document", hasDocument).
		Msg("expert routed")

	return RoutingDecision{
		Category: category,
		Score:    score,
		Tier:     tier,
		Prompt:   SystemPrompt(category, tier),
	}
}

func classify(query string) (Category, int) {
	q := strings.ToLower(query)
	best, bestScore := CategoryGeneralHealth, 0
	for _, p := range routable {
		score := 0
		for _, kw := range p.keywords {
			if strings.Contains(q, kw) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = p.category, score
		}
	}
	return best, bestScore
}
