package similarity

// sequenceRatio is a strutil.StringMetric implementing the
// Ratcliff/Obershelp ratio: twice the matched character count over the
// combined length, where matches are the longest common substring plus
// whatever matches recursively in the pieces to either side of it.
type sequenceRatio struct{}

// Compare returns the sequence ratio between a and b in [0,1].
func (sequenceRatio) Compare(a, b string) float64 {
	ra := []rune(a)
	rb := []rune(b)

	if len(ra) == 0 && len(rb) == 0 {
		return 1
	}
	if len(ra) == 0 || len(rb) == 0 {
		return 0
	}

	return 2 * float64(matchingRunes(ra, rb)) / float64(len(ra)+len(rb))
}

func matchingRunes(a, b []rune) int {
	aStart, bStart, size := longestCommonSubstring(a, b)
	if size == 0 {
		return 0
	}

	total := size
	total += matchingRunes(a[:aStart], b[:bStart])
	total += matchingRunes(a[aStart+size:], b[bStart+size:])
	return total
}

// longestCommonSubstring finds the longest run of runes common to a and
// b, preferring the earliest position on ties.
func longestCommonSubstring(a, b []rune) (aStart, bStart, size int) {
	prev := make([]int, len(b)+1)
	curr := make([]int, len(b)+1)

	for i := range a {
		for j := range b {
			if a[i] != b[j] {
				curr[j+1] = 0
				continue
			}
			curr[j+1] = prev[j] + 1
			if curr[j+1] > size {
				size = curr[j+1]
				aStart = i + 1 - size
				bStart = j + 1 - size
			}
		}
		prev, curr = curr, prev
	}

	return aStart, bStart, size
}
