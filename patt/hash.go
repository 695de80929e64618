package patt

import "math"

// timeHash turns a rational cycle position into a deterministic float64 in
// [0, 1), used by degradeBy/scramble/choice so that randomised combinators
// are a pure function of time (spec.md §4.1.1 determinism, §4.1.3
// degrade_by/scramble "reproducible").
func timeHash(x float64) float64 {
	// xorshift-style mix on the bit pattern of x, same trick used to turn a
	// float seed into a well-distributed 64-bit value without pulling in a
	// PRNG dependency on the query hot path.
	bits := math.Float64bits(x*1e6 + 0.5)
	bits ^= bits >> 33
	bits *= 0xff51afd7ed558ccd
	bits ^= bits >> 33
	bits *= 0xc4ceb9fe1a85ec53
	bits ^= bits >> 33
	return float64(bits%1_000_000) / 1_000_000.0
}

// hashAt combines a cycle position with an extra integer salt (e.g. a slot
// index) before hashing, for combinators that need independent randomness
// per sub-event within the same instant.
func hashAt(pos float64, salt int64) float64 {
	return timeHash(pos*31 + float64(salt)*104729)
}
