package credential

import "math"

// Score computes the credential security score on a 0..100 scale.
//
// The formula is informational, not a security proof: it grows monotonically
// with the segment count and the number of covered layers, and callers must
// not branch on exact values.
func Score(segmentCount, layerCount int) float64 {
	if segmentCount < 1 {
		return 0
	}
	s := math.Log2(float64(segmentCount))*3.5 + float64(layerCount)*5
	if s > 100 {
		return 100
	}
	return s
}
