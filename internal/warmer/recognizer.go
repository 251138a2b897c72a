package warmer

import "context"

// AlwaysPredictRecognizer is the reference PatternRecognizer: it always
// signals a prediction, so Phase 3 runs whenever it is wired in rather
// than left nil. Real deployments needing actual pattern recognition
// (e.g. scoring session recency/frequency before committing to a
// prediction) should replace it; it ignores sessionID by design.
type AlwaysPredictRecognizer struct{}

// Predict always returns true.
func (AlwaysPredictRecognizer) Predict(ctx context.Context, sessionID string) bool {
	return true
}
