package survey

// DefaultSuppressionThreshold is the minimum result-set size released in
// production mode. Result sets below it are withheld entirely.
const DefaultSuppressionThreshold = 5

// Suppressor withholds small result sets to reduce re-identification risk.
// It is a blunt k-anonymity-style policy stub, not a real disclosure-control
// algorithm: in test mode everything passes; in production mode a result set
// smaller than Threshold is replaced with an empty one.
type Suppressor struct {
	Threshold int
	TestMode  bool
}

// NewSuppressor returns a suppressor with the default threshold.
func NewSuppressor(testMode bool) Suppressor {
	return Suppressor{Threshold: DefaultSuppressionThreshold, TestMode: testMode}
}

// Apply returns the rows unchanged in test mode or when the set holds at
// least Threshold rows; otherwise it returns an empty, non-nil slice.
// A set of exactly Threshold rows passes.
func (s Suppressor) Apply(rows []Record) []Record {
	if s.TestMode || len(rows) >= s.Threshold {
		return rows
	}
	return []Record{}
}

// Suppressed reports whether Apply would withhold a set of n rows.
func (s Suppressor) Suppressed(n int) bool {
	return !s.TestMode && n < s.Threshold
}
