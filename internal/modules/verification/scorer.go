package verification

import (
	"gonum.org/v1/gonum/floats"
)

// ScoreBundle carries the individual similarity metrics for one probe/candidate
// pair. Combined is the weighted blend the decision engine ranks on.
type ScoreBundle struct {
	Cosine              float64 `json:"cosine"`
	NormalizedEuclidean float64 `json:"euclidean"`
	Combined            float64 `json:"combined"`
}

// Calibration holds the empirically tuned constants of the matcher. They are
// named values rather than inline literals so they can be recalibrated without
// touching control flow.
type Calibration struct {
	// Blend weights. Cosine dominates because it is scale-invariant to the
	// lighting and exposure differences between registration and verification
	// photos; the Euclidean term penalizes large absolute deviation that
	// cosine alone can mask.
	CosineWeight    float64
	EuclideanWeight float64

	// Acceptance thresholds on the combined score. The strict threshold
	// applies when the extractor reports a clean separation (|cosine| above
	// HighConfidenceCosine); an uncertain cosine signal is not held to the
	// stricter bar, which would only amplify false negatives.
	BaseThreshold        float64
	StrictThreshold      float64
	HighConfidenceCosine float64

	// A match is unambiguous when the combined score beats the runner-up by
	// more than AmbiguityGap (exclusive boundary).
	AmbiguityGap float64

	// Confidence band floors.
	HighBand   float64
	MediumBand float64
	LowBand    float64
}

func DefaultCalibration() Calibration {
	return Calibration{
		CosineWeight:         0.7,
		EuclideanWeight:      0.3,
		BaseThreshold:        0.65,
		StrictThreshold:      0.70,
		HighConfidenceCosine: 0.75,
		AmbiguityGap:         0.10,
		HighBand:             0.75,
		MediumBand:           0.60,
		LowBand:              0.45,
	}
}

// Score computes the similarity bundle for two feature vectors. ok=false is
// the incomparable sentinel: absent vectors, unequal lengths, or a zero norm.
// Mismatched lengths are never reported as a low numeric score.
func (cal Calibration) Score(a, b []float64) (ScoreBundle, bool) {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return ScoreBundle{}, false
	}
	na := floats.Norm(a, 2)
	nb := floats.Norm(b, 2)
	if na == 0 || nb == 0 {
		return ScoreBundle{}, false
	}
	cosine := floats.Dot(a, b) / (na * nb)
	euclid := 1 / (1 + floats.Distance(a, b, 2))
	return ScoreBundle{
		Cosine:              cosine,
		NormalizedEuclidean: euclid,
		Combined:            cal.CosineWeight*cosine + cal.EuclideanWeight*euclid,
	}, true
}
