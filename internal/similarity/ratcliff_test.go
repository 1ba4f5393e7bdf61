package similarity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSequenceRatio(t *testing.T) {
	metric := sequenceRatio{}

	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{name: "identical", a: "abcd", b: "abcd", want: 1},
		{name: "both empty", a: "", b: "", want: 1},
		{name: "one empty", a: "abcd", b: "", want: 0},
		// "bcd" matches, 2*3/(4+4)
		{name: "shifted overlap", a: "abcd", b: "bcde", want: 0.75},
		{name: "prefix match", a: "alpha beta gamma", b: "alpha beta gamma delta", want: 0.8421},
		{name: "sorted token keys of near-duplicates", a: "for office payment supplies", b: "office purchase supplies", want: 0.7451},
		{name: "sorted token keys of unrelated texts", a: "bill electricity", b: "for office payment supplies", want: 0.1860},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, metric.Compare(tt.a, tt.b), 0.0001)
			assert.InDelta(t, tt.want, metric.Compare(tt.b, tt.a), 0.0001)
		})
	}
}

func TestLongestCommonSubstring(t *testing.T) {
	aStart, bStart, size := longestCommonSubstring([]rune("abcd"), []rune("bcde"))
	assert.Equal(t, 1, aStart)
	assert.Equal(t, 0, bStart)
	assert.Equal(t, 3, size)

	_, _, size = longestCommonSubstring([]rune("xyz"), []rune("abc"))
	assert.Equal(t, 0, size)
}
