package prdgen

// Framework identifies the document structure used for synthesis.
type Framework string

const (
	FrameworkScopedFeature Framework = "scoped-feature"
	FrameworkBigBet        Framework = "big-bet"
	FrameworkLeanMVP       Framework = "lean-mvp"
)

// DefaultFramework is the fallback when classification cannot produce a
// single known identifier. Classification failures are resolved here, never
// surfaced as errors.
const DefaultFramework = FrameworkScopedFeature

// Frameworks returns all known frameworks in presentation order.
func Frameworks() []Framework {
	return []Framework{FrameworkScopedFeature, FrameworkBigBet, FrameworkLeanMVP}
}

// Valid reports whether f is a known framework.
func (f Framework) Valid() bool {
	switch f {
	case FrameworkScopedFeature, FrameworkBigBet, FrameworkLeanMVP:
		return true
	}
	return false
}

// DisplayName returns the human-readable framework name.
func (f Framework) DisplayName() string {
	switch f {
	case FrameworkScopedFeature:
		return "Scoped Feature PRD"
	case FrameworkBigBet:
		return "Big Bet PR/FAQ"
	case FrameworkLeanMVP:
		return "Lean MVP One-Pager"
	default:
		return string(f)
	}
}

// Criteria returns the selection criteria text for the framework, used in
// classification prompts and framework pickers.
func (f Framework) Criteria() string {
	switch f {
	case FrameworkScopedFeature:
		return "A well-understood feature or improvement to an existing product. Scope is narrow, the users and context are known, and the open questions are about requirements, edge cases, and rollout."
	case FrameworkBigBet:
		return "An ambitious new product or initiative whose success depends on a compelling future narrative. The document works backwards from a press release and anticipates customer and internal questions."
	case FrameworkLeanMVP:
		return "An early-stage idea with major unvalidated assumptions. The goal is to define the smallest experiment that tests the riskiest assumption and a plan for learning from it."
	default:
		return ""
	}
}

// Template returns the ordered section titles the framework's documents are
// built from. The returned slice is a copy; templates are fixed.
func (f Framework) Template() []string {
	var titles []string
	switch f {
	case FrameworkScopedFeature:
		titles = []string{
			"Problem Statement",
			"Target Users & Personas",
			"Goals & Success Metrics",
			"Non-Goals",
			"User Stories / Jobs to Be Done",
			"Functional Requirements",
			"Non-Functional Requirements",
			"UX & Design Considerations",
			"Dependencies & Risks",
			"Open Questions",
			"Timeline & Phases",
		}
	case FrameworkBigBet:
		titles = []string{
			"Press Release",
			"Customer FAQ",
			"Internal FAQ",
			"Goals & Success Metrics",
			"Non-Goals",
			"Functional Requirements",
			"Dependencies & Risks",
			"Timeline & Phases",
		}
	case FrameworkLeanMVP:
		titles = []string{
			"Problem Statement",
			"Riskiest Assumptions",
			"Target Users & Personas",
			"MVP Scope",
			"Success Metrics",
			"Out of Scope",
			"Learning Plan",
		}
	}
	out := make([]string, len(titles))
	copy(out, titles)
	return out
}
