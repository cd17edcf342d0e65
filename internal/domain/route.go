package domain

import "strings"

// RouteDecision is the classifier's verdict for a single turn.
type RouteDecision string

const (
	RoutePolicy      RouteDecision = "POLICY"
	RouteTimeoff     RouteDecision = "TIMEOFF"
	RouteUnsupported RouteDecision = "UNSUPPORTED"
)

// ParseRouteDecision maps raw classifier output onto a RouteDecision.
// The match is strict: after trimming and uppercasing, anything that is not
// exactly one of the three labels collapses to RouteUnsupported. Partial or
// fuzzy matches are deliberately not attempted; ambiguity always takes the
// safe branch.
func ParseRouteDecision(raw string) RouteDecision {
	switch RouteDecision(strings.ToUpper(strings.TrimSpace(raw))) {
	case RoutePolicy:
		return RoutePolicy
	case RouteTimeoff:
		return RouteTimeoff
	default:
		return RouteUnsupported
	}
}
