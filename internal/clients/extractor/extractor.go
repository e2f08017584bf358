package extractor

import "context"

// Result is a registration-grade extraction: the stored vector plus the
// extractor's self-reported quality metadata.
type Result struct {
	Vector       []float64 `json:"vector"`
	Confidence   float64   `json:"confidence"`
	FeatureCount int       `json:"feature_count"`
}

// Client turns raw image bytes into a fixed-length feature vector. The model
// itself is an external black box; implementations only differ in where the
// inference runs.
type Client interface {
	// Extract produces the single verification-time probe vector.
	Extract(ctx context.Context, image []byte) ([]float64, error)
	// ExtractForRegistration produces the sturdier registration vector
	// (implementations may average multiple passes over the same image).
	ExtractForRegistration(ctx context.Context, image []byte) (*Result, error)
}
