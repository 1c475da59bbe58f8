package verify

import "math"

// shannonBitsPerByte estimates the Shannon entropy of b in bits per byte.
//
// This is a coarse heuristic, not a randomness test suite; it catches
// grossly non-random entropy segments (zeroed, repeated, structured), which
// is all the pipeline asks of it.
func shannonBitsPerByte(b []byte) float64 {
	if len(b) == 0 {
		return 0
	}
	var counts [256]int
	for _, v := range b {
		counts[v]++
	}
	total := float64(len(b))
	entropy := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}
