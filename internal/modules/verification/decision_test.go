package verification

import (
	"testing"

	"github.com/google/uuid"
)

func ranked(id, name string, combined, cosine float64) Ranked {
	cal := DefaultCalibration()
	return Ranked{
		ID:         uuid.NewSHA1(uuid.NameSpaceOID, []byte(id)),
		Name:       name,
		Scores:     ScoreBundle{Cosine: cosine, NormalizedEuclidean: combined, Combined: combined},
		Confidence: cal.confidenceOf(combined),
	}
}

func TestClassify_ClearWinner(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	rs := []Ranked{
		ranked("p1", "Aspirin", 0.80, 0.70),
		ranked("p2", "Ibuprofen", 0.55, 0.50),
	}

	v := e.classify(rs, 0)
	if v.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match", v.Kind)
	}
	if v.PillName != "Aspirin" {
		t.Fatalf("pill = %q, want Aspirin", v.PillName)
	}
	if !v.Unambiguous {
		t.Fatalf("gap 0.25 should be unambiguous")
	}
	if len(v.Alternatives) != 0 {
		t.Fatalf("unambiguous match should carry no alternatives, got %d", len(v.Alternatives))
	}
	if v.Confidence != ConfidenceHigh {
		t.Fatalf("confidence = %v, want HIGH", v.Confidence)
	}
}

func TestClassify_AmbiguousWinner(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	rs := []Ranked{
		ranked("p1", "Aspirin", 0.68, 0.70),
		ranked("p2", "Ibuprofen", 0.62, 0.60),
	}

	v := e.classify(rs, 0)
	if v.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match", v.Kind)
	}
	if v.Unambiguous {
		t.Fatalf("gap 0.06 should be ambiguous")
	}
	if len(v.Alternatives) != 1 || v.Alternatives[0].Name != "Ibuprofen" {
		t.Fatalf("alternatives = %+v, want [Ibuprofen]", v.Alternatives)
	}
}

func TestClassify_GapBoundaryIsExclusive(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	rs := []Ranked{
		ranked("p1", "A", 0.80, 0.70),
		ranked("p2", "B", 0.70, 0.60),
	}

	v := e.classify(rs, 0)
	if v.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match", v.Kind)
	}
	if v.Unambiguous {
		t.Fatalf("gap of exactly 0.10 must not count as unambiguous")
	}
}

func TestClassify_AdaptiveThreshold(t *testing.T) {
	e := NewEngine(DefaultCalibration())

	// Confident cosine: held to the strict 0.70 bar, 0.68 fails it.
	strict := e.classify([]Ranked{ranked("p1", "A", 0.68, 0.80)}, 0)
	if strict.Kind != VerdictNoMatch {
		t.Fatalf("kind = %v, want no_match under strict threshold", strict.Kind)
	}
	if strict.Threshold != 0.70 {
		t.Fatalf("threshold = %v, want 0.70", strict.Threshold)
	}

	// Uncertain cosine: base 0.65 bar, the same combined score passes.
	base := e.classify([]Ranked{ranked("p1", "A", 0.68, 0.70)}, 0)
	if base.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match under base threshold", base.Kind)
	}
	if base.Threshold != 0.65 {
		t.Fatalf("threshold = %v, want 0.65", base.Threshold)
	}
}

func TestClassify_ThresholdMonotonicity(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	second := ranked("p2", "B", 0.40, 0.40)

	matched := false
	for combined := 0.40; combined <= 1.0; combined += 0.01 {
		v := e.classify([]Ranked{ranked("p1", "A", combined, 0.60), second}, 0)
		if matched && v.Kind != VerdictMatch {
			t.Fatalf("raising combined to %v flipped a match back to %v", combined, v.Kind)
		}
		if v.Kind == VerdictMatch {
			matched = true
		}
	}
	if !matched {
		t.Fatalf("sweep never produced a match")
	}
}

func TestClassify_NoMatchCarriesSuggestions(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	rs := []Ranked{
		ranked("p1", "A", 0.50, 0.40),
		ranked("p2", "B", 0.45, 0.40),
		ranked("p3", "C", 0.30, 0.20),
		ranked("p4", "D", 0.10, 0.10),
	}

	v := e.classify(rs, 0)
	if v.Kind != VerdictNoMatch {
		t.Fatalf("kind = %v, want no_match", v.Kind)
	}
	if len(v.Suggestions) != 3 {
		t.Fatalf("suggestions = %d, want top 3", len(v.Suggestions))
	}
	if v.Suggestions[0].Name != "A" || v.Suggestions[2].Name != "C" {
		t.Fatalf("suggestions out of order: %+v", v.Suggestions)
	}
	if v.Confidence != ConfidenceLow {
		t.Fatalf("confidence = %v, want LOW for 0.50", v.Confidence)
	}
}

func TestDecide_ExpectedPillNotRegistered(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	expected := uuid.New()
	candidates := []Candidate{
		{ID: uuid.New(), Name: "Aspirin", Vector: []float64{1, 0, 0}},
	}

	v := e.Decide([]float64{1, 0, 0}, candidates, Context{ExpectedPillID: &expected})
	if v.Kind != VerdictExpectedNotRegistered {
		t.Fatalf("kind = %v, want expected_not_registered", v.Kind)
	}
}

func TestDecide_ExpectedNameRestriction(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	aspirin := Candidate{ID: uuid.New(), Name: "Aspirin", Vector: []float64{1, 0, 0}}
	decoy := Candidate{ID: uuid.New(), Name: "Ibuprofen", Vector: []float64{1, 0.01, 0}}

	// The decoy scores higher against this probe, but the name restriction
	// must keep it out of the candidate set entirely.
	v := e.Decide([]float64{1, 0.01, 0}, []Candidate{aspirin, decoy}, Context{ExpectedName: "aspirin"})
	if v.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match", v.Kind)
	}
	if v.PillID != aspirin.ID {
		t.Fatalf("matched %v, want the name-restricted candidate", v.PillID)
	}
}

func TestDecide_SkipsIncomparableCandidates(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	good := Candidate{ID: uuid.New(), Name: "Aspirin", Vector: []float64{1, 0, 0}}
	short := Candidate{ID: uuid.New(), Name: "Broken", Vector: []float64{1, 0}}

	v := e.Decide([]float64{1, 0, 0}, []Candidate{good, short}, Context{})
	if v.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match", v.Kind)
	}
	if v.Skipped != 1 {
		t.Fatalf("skipped = %d, want 1", v.Skipped)
	}
	if v.PillID != good.ID {
		t.Fatalf("matched %v, want the comparable candidate", v.PillID)
	}
}

func TestDecide_OwnerPrefilter(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	owner := uuid.New()
	mine := Candidate{ID: uuid.New(), Name: "Mine", OwnerID: owner, Vector: []float64{0, 1, 0}}
	theirs := Candidate{ID: uuid.New(), Name: "Theirs", OwnerID: uuid.New(), Vector: []float64{0, 1, 0}}

	v := e.Decide([]float64{0, 1, 0}, []Candidate{theirs, mine}, Context{OwnerID: &owner})
	if v.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match", v.Kind)
	}
	if v.PillID != mine.ID {
		t.Fatalf("matched %v, want the owner-filtered candidate", v.PillID)
	}
}

func TestDecide_StableTieBreak(t *testing.T) {
	e := NewEngine(DefaultCalibration())
	first := Candidate{ID: uuid.New(), Name: "First", Vector: []float64{1, 1}}
	second := Candidate{ID: uuid.New(), Name: "Second", Vector: []float64{1, 1}}

	v := e.Decide([]float64{1, 1}, []Candidate{first, second}, Context{})
	if v.Kind != VerdictMatch {
		t.Fatalf("kind = %v, want match", v.Kind)
	}
	if v.PillID != first.ID {
		t.Fatalf("equal scores must keep the first encountered, got %v", v.PillName)
	}
}
