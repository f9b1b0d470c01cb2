package scanner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStringSimilarity_Identical(t *testing.T) {
	assert.Equal(t, 1.0, StringSimilarity("Widget Pro", "Widget Pro"))
	assert.Equal(t, 1.0, StringSimilarity("", ""), "two empty strings are identical")
}

func TestStringSimilarity_Disjoint(t *testing.T) {
	assert.Equal(t, 0.0, StringSimilarity("abc", ""))
	assert.Equal(t, 0.0, StringSimilarity("", "abc"))
	assert.Equal(t, 0.0, StringSimilarity("abc", "xyz"))
}

func TestStringSimilarity_EditDistance(t *testing.T) {
	// levenshtein("kitten", "sitting") = 3, maxLen = 7
	got := StringSimilarity("kitten", "sitting")
	assert.InDelta(t, 1.0-3.0/7.0, got, 1e-9)

	// single character typo in a 10-char name
	got = StringSimilarity("Widget Pro", "Widget Prx")
	assert.InDelta(t, 0.9, got, 1e-9)
}

func TestStringSimilarity_Unicode(t *testing.T) {
	// rune-based distance, not byte-based
	got := StringSimilarity("产品名称", "产品名字")
	assert.InDelta(t, 0.75, got, 1e-9)
}

func TestStringSimilarity_Range(t *testing.T) {
	cases := [][2]string{
		{"a", "ab"}, {"short", "a much longer name"}, {"same", "same"},
	}
	for _, c := range cases {
		got := StringSimilarity(c[0], c[1])
		assert.GreaterOrEqual(t, got, 0.0)
		assert.LessOrEqual(t, got, 1.0)
	}
}
