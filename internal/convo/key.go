package convo

// PairKey derives the canonical conversation id for two participant ids.
// The two ids are sorted lexicographically and joined with "-", so the
// result is identical no matter which side computes it: PairKey(a, b) ==
// PairKey(b, a). The gateway derives conversation ids the same way.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "-" + b
}
