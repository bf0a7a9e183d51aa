package community

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChoose(t *testing.T) {
	options := []Weighted[string]{
		{Value: "one", Weight: 0.5},
		{Value: "never", Weight: 0},
		{Value: "two", Weight: 0.3},
		{Value: "three", Weight: 0.2},
	}

	tests := []struct {
		draw float64
		want string
	}{
		{0.0, "one"},
		{0.49, "one"},
		{0.5, "two"},
		{0.79, "two"},
		{0.8, "three"},
		{0.999999, "three"},
	}
	for _, tt := range tests {
		r := &scriptedRand{t: t, floats: []float64{tt.draw}}
		assert.Equal(t, tt.want, Choose(r, options), "draw %v", tt.draw)
	}
}

func TestRoll(t *testing.T) {
	assert.True(t, Roll(&scriptedRand{t: t, floats: []float64{0.1}}, 0.3))
	assert.False(t, Roll(&scriptedRand{t: t, floats: []float64{0.3}}, 0.3))
	// degenerate probabilities do not consume a draw
	assert.False(t, Roll(&scriptedRand{t: t}, 0))
	assert.True(t, Roll(&scriptedRand{t: t}, 1))
}

func TestSampleDistinct(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	items := []int{1, 2, 3, 4, 5}

	for i := 0; i < 500; i++ {
		k := r.IntN(7) - 1
		got := Sample(r, items, k)

		want := min(max(k, 0), len(items))
		require.Len(t, got, want)

		seen := map[int]bool{}
		for _, v := range got {
			assert.False(t, seen[v], "duplicate %d in %v", v, got)
			seen[v] = true
		}
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, items, "input must not be reordered")
}
