package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRatio(t *testing.T) {
	tests := []struct {
		name     string
		a, b     string
		expected float64
	}{
		{"identical", "coffee", "coffee", 100},
		{"both empty", "", "", 0},
		{"one empty", "coffee", "", 0},
		{"completely different same length", "aaaa", "bbbb", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Ratio{}.Score(tt.a, tt.b))
		})
	}

	t.Run("single edit on ten runes scores 90", func(t *testing.T) {
		assert.InDelta(t, 90, Ratio{}.Score("aaaaaaaaaa", "aaaaaaaaab"), 0.01)
	})

	t.Run("symmetric", func(t *testing.T) {
		assert.Equal(t, Ratio{}.Score("joe's coffee", "joes coffee"), Ratio{}.Score("joes coffee", "joe's coffee"))
	})
}

func TestTokenSortRatio(t *testing.T) {
	t.Run("word order does not matter", func(t *testing.T) {
		assert.Equal(t, float64(100), TokenSortRatio{}.Score("coffee joe's", "joe's coffee"))
	})

	t.Run("still penalizes different tokens", func(t *testing.T) {
		score := TokenSortRatio{}.Score("joe's coffee", "joe's bakery")
		assert.Less(t, score, float64(100))
		assert.Greater(t, score, float64(0))
	})
}

func TestTokenSetRatio(t *testing.T) {
	t.Run("subset of tokens scores high", func(t *testing.T) {
		score := TokenSetRatio{}.Score("123 main street", "123 main street springfield il")
		assert.Equal(t, float64(100), score)
	})

	t.Run("empty side scores zero", func(t *testing.T) {
		assert.Equal(t, float64(0), TokenSetRatio{}.Score("", "123 main street"))
	})

	t.Run("disjoint tokens score low", func(t *testing.T) {
		score := TokenSetRatio{}.Score("alpha beta", "gamma delta")
		assert.Less(t, score, float64(50))
	})

	t.Run("duplicate tokens collapse", func(t *testing.T) {
		assert.Equal(t, float64(100), TokenSetRatio{}.Score("main main street", "main street"))
	})
}
