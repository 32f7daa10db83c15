package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Company X launches: new AI model!", "company x launches new ai model"},
		{"  Café   Déjà-vu ", "cafe deja vu"},
		{"ＦＵＬＬＷＩＤＴＨ ２０２５", "fullwidth 2025"},
		{"", ""},
		{"!!! ...", ""},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Normalize(tt.in), tt.in)
	}
}

func TestSimilarity(t *testing.T) {
	a := Normalize("Company X launches new AI model")
	b := Normalize("Company X launches new AI model today")

	assert.InDelta(t, 1-6.0/37.0, Similarity(a, b), 1e-9)
	assert.Greater(t, Similarity(a, b), 0.8)
	assert.Equal(t, 1.0, Similarity(a, a))
	assert.Equal(t, Similarity(a, b), Similarity(b, a))
	assert.Less(t, Similarity(a, Normalize("Central bank holds rates steady")), 0.5)
	assert.Zero(t, Similarity("", ""))
	assert.Zero(t, Similarity("abc", ""))
}

func TestLevenshtein(t *testing.T) {
	assert.Equal(t, 3, levenshtein([]rune("kitten"), []rune("sitting")))
	assert.Equal(t, 3, levenshtein([]rune("sitting"), []rune("kitten")))
	assert.Equal(t, 0, levenshtein([]rune("same"), []rune("same")))
	assert.Equal(t, 4, levenshtein([]rune("four"), []rune("")))
}
