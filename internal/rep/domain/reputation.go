package domain

// Source identifies how a reputation was derived.
type Source string

const (
	// SourceDatabase means the canonical record matched exactly.
	SourceDatabase Source = "database"
	// SourceVariant means an alias, parent domain, or TLD substitution matched.
	SourceVariant Source = "variant"
	// SourceFallback means no record matched and the heuristic scorer was used.
	SourceFallback Source = "fallback"
)

// Confidence constants for the provenance of a lookup result. Derived
// matches (variant or heuristic) always rank below an exact canonical hit.
const (
	ConfidenceExact   = 1.0
	ConfidenceDerived = 0.8
)

// Reputation is the caller-facing expansion of a lookup. Domain preserves
// the original, unnormalized input form so callers can correlate results.
type Reputation struct {
	Domain      string   `json:"domain"`
	Score       int      `json:"score"`
	Category    Category `json:"category"`
	Bias        Bias     `json:"bias,omitempty"`
	LastUpdated int64    `json:"last_updated,omitempty"`
	Variants    []string `json:"variants,omitempty"`
	Confidence  float64  `json:"confidence"`
	Source      Source   `json:"source"`
}

// OutcomeKind tags how a store lookup resolved.
type OutcomeKind int

const (
	// OutcomeHit is an exact canonical-key match.
	OutcomeHit OutcomeKind = iota
	// OutcomeVariant is an alias or derived-variant match.
	OutcomeVariant
	// OutcomeFallback carries a heuristic-derived record.
	OutcomeFallback
)

// Outcome is the tagged result of resolving a canonical domain against the
// store and heuristic pipeline. The facade consumes it exhaustively; there
// is no error branch on the lookup path.
type Outcome struct {
	Kind   OutcomeKind
	Record Record
}

// Expand converts an outcome into the caller-facing Reputation, stamping
// the original input form and the source-appropriate confidence.
func (o Outcome) Expand(original string) Reputation {
	rep := Reputation{
		Domain:      original,
		Score:       o.Record.Score,
		Category:    o.Record.Category,
		Bias:        o.Record.Bias,
		LastUpdated: o.Record.LastUpdated,
		Variants:    o.Record.Variants,
	}
	switch o.Kind {
	case OutcomeHit:
		rep.Confidence = ConfidenceExact
		rep.Source = SourceDatabase
	case OutcomeVariant:
		rep.Confidence = ConfidenceDerived
		rep.Source = SourceVariant
	default:
		rep.Confidence = ConfidenceDerived
		rep.Source = SourceFallback
	}
	return rep
}

// SafeDefault is the reputation returned when a lookup cannot be completed
// at all (for example a malformed URL). The facade never surfaces errors to
// lookup callers; it degrades to this value instead.
func SafeDefault(original string) Reputation {
	return Reputation{
		Domain:     original,
		Score:      50,
		Category:   CategoryUnknown,
		Confidence: ConfidenceDerived,
		Source:     SourceFallback,
	}
}
