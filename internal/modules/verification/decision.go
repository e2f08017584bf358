package verification

import (
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
)

type Confidence string

const (
	ConfidenceHigh    Confidence = "HIGH"
	ConfidenceMedium  Confidence = "MEDIUM"
	ConfidenceLow     Confidence = "LOW"
	ConfidenceVeryLow Confidence = "VERY_LOW"
)

type VerdictKind string

const (
	VerdictMatch   VerdictKind = "match"
	VerdictNoMatch VerdictKind = "no_match"
	// VerdictExpectedNotRegistered means the scheduled medication has no
	// catalog entry at all. It is a configuration gap, not a wrong pill.
	VerdictExpectedNotRegistered VerdictKind = "expected_not_registered"
)

// Candidate is one catalog entry the probe is ranked against.
type Candidate struct {
	ID      uuid.UUID
	Name    string
	OwnerID uuid.UUID
	Vector  []float64
}

// Context narrows the candidate set. ExpectedPillID wins over ExpectedName;
// OwnerID optionally pre-filters a full-catalog comparison.
type Context struct {
	ExpectedPillID *uuid.UUID
	ExpectedName   string
	OwnerID        *uuid.UUID
}

func (c Context) hasExpectation() bool {
	return c.ExpectedPillID != nil || strings.TrimSpace(c.ExpectedName) != ""
}

// Ranked is a scored candidate retained for diagnostics.
type Ranked struct {
	ID         uuid.UUID   `json:"id"`
	Name       string      `json:"name"`
	Scores     ScoreBundle `json:"scores"`
	Confidence Confidence  `json:"confidence"`
}

type Verdict struct {
	Kind        VerdictKind `json:"kind"`
	PillID      uuid.UUID   `json:"pill_id,omitempty"`
	PillName    string      `json:"pill_name,omitempty"`
	Scores      ScoreBundle `json:"scores"`
	Confidence  Confidence  `json:"confidence"`
	Threshold   float64     `json:"threshold"`
	Unambiguous bool        `json:"unambiguous"`
	// Alternatives holds the runners-up when the match is ambiguous.
	Alternatives []Ranked `json:"alternatives,omitempty"`
	// Suggestions holds the top candidates on a no-match, for diagnostics.
	Suggestions []Ranked `json:"suggestions,omitempty"`
	// Skipped counts candidates whose vectors were incomparable with the
	// probe (length mismatch or empty). They never read as a low score.
	Skipped int `json:"skipped,omitempty"`
}

// Engine ranks candidate pills against a probe vector and emits a verdict.
// It never mutates state and is safe for concurrent use.
type Engine struct {
	cal Calibration
}

func NewEngine(cal Calibration) *Engine {
	return &Engine{cal: cal}
}

func (e *Engine) Decide(probe []float64, candidates []Candidate, dctx Context) Verdict {
	restricted := restrict(candidates, dctx)
	if len(restricted) == 0 && dctx.hasExpectation() {
		return Verdict{Kind: VerdictExpectedNotRegistered, Confidence: ConfidenceVeryLow}
	}

	ranked, skipped := e.rank(probe, restricted)
	return e.classify(ranked, skipped)
}

func restrict(candidates []Candidate, dctx Context) []Candidate {
	if dctx.ExpectedPillID != nil {
		out := make([]Candidate, 0, 1)
		for _, c := range candidates {
			if c.ID == *dctx.ExpectedPillID {
				out = append(out, c)
			}
		}
		return out
	}
	if name := strings.TrimSpace(dctx.ExpectedName); name != "" {
		var out []Candidate
		for _, c := range candidates {
			if strings.EqualFold(c.Name, name) {
				out = append(out, c)
			}
		}
		return out
	}
	if dctx.OwnerID != nil {
		var out []Candidate
		for _, c := range candidates {
			if c.OwnerID == *dctx.OwnerID {
				out = append(out, c)
			}
		}
		return out
	}
	return candidates
}

// rank scores the probe against every candidate, dropping incomparable ones.
// Sort is stable so equal combined scores keep catalog order and the first
// encountered wins.
func (e *Engine) rank(probe []float64, candidates []Candidate) ([]Ranked, int) {
	ranked := make([]Ranked, 0, len(candidates))
	skipped := 0
	for _, c := range candidates {
		bundle, ok := e.cal.Score(probe, c.Vector)
		if !ok {
			skipped++
			continue
		}
		ranked = append(ranked, Ranked{
			ID:         c.ID,
			Name:       c.Name,
			Scores:     bundle,
			Confidence: e.cal.confidenceOf(bundle.Combined),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Scores.Combined > ranked[j].Scores.Combined
	})
	return ranked, skipped
}

func (e *Engine) classify(ranked []Ranked, skipped int) Verdict {
	if len(ranked) == 0 {
		return Verdict{Kind: VerdictNoMatch, Confidence: ConfidenceVeryLow, Skipped: skipped}
	}

	best := ranked[0]
	top := ranked
	if len(top) > 3 {
		top = top[:3]
	}

	threshold := e.cal.BaseThreshold
	if math.Abs(best.Scores.Cosine) > e.cal.HighConfidenceCosine {
		threshold = e.cal.StrictThreshold
	}

	if best.Scores.Combined < threshold {
		return Verdict{
			Kind:        VerdictNoMatch,
			Scores:      best.Scores,
			Confidence:  best.Confidence,
			Threshold:   threshold,
			Suggestions: top,
			Skipped:     skipped,
		}
	}

	gap := 0.0
	if len(ranked) > 1 {
		gap = best.Scores.Combined - ranked[1].Scores.Combined
	}
	unambiguous := gap > e.cal.AmbiguityGap

	var alternatives []Ranked
	if !unambiguous && len(top) > 1 {
		alternatives = top[1:]
	}

	return Verdict{
		Kind:         VerdictMatch,
		PillID:       best.ID,
		PillName:     best.Name,
		Scores:       best.Scores,
		Confidence:   best.Confidence,
		Threshold:    threshold,
		Unambiguous:  unambiguous,
		Alternatives: alternatives,
		Skipped:      skipped,
	}
}

func (cal Calibration) confidenceOf(combined float64) Confidence {
	switch {
	case combined >= cal.HighBand:
		return ConfidenceHigh
	case combined >= cal.MediumBand:
		return ConfidenceMedium
	case combined >= cal.LowBand:
		return ConfidenceLow
	default:
		return ConfidenceVeryLow
	}
}
