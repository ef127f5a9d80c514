package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quorumhq/nameplate/pkg/roster"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"", "abc", 3},
		{"abc", "", 3},
		{"kitten", "sitting", 3},
		{"jon smith", "john smith", 1},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, levenshtein(tt.a, tt.b), "levenshtein(%q, %q)", tt.a, tt.b)
		assert.Equal(t, tt.want, levenshtein(tt.b, tt.a), "levenshtein(%q, %q)", tt.b, tt.a)
	}
}

func TestTokenSortRatio(t *testing.T) {
	tests := []struct {
		name string
		a, b string
		want int
	}{
		{"identical", "John Smith", "John Smith", 100},
		{"token order ignored", "Smith, John", "John Smith", 100},
		{"case and accents ignored", "JOSÉ garcía", "Jose Garcia", 100},
		{"one letter off", "Jon Smith", "John Smith", 90},
		{"partial name", "John", "John Smith", 40},
		{"empty side", "", "John Smith", 0},
		{"punctuation only", "...", "John Smith", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tokenSortRatio(tt.a, tt.b))
		})
	}
}

func TestFuzzyCandidatesOrderingAndAliases(t *testing.T) {
	entries := []roster.Entry{
		{DisplayName: "Sarah Chen", Email: "sarah.chen@corp.com"},
		{DisplayName: "John Smith", Email: "john.smith@corp.com", Aliases: []string{"Jon"}},
	}

	got := fuzzyCandidates("Jon Smith", entries)
	assert.Len(t, got, 2)
	assert.Equal(t, "john.smith@corp.com", got[0].entry.Email)
	assert.Equal(t, 90, got[0].score)
	assert.Greater(t, got[0].score, got[1].score)
}

func TestFuzzyCandidatesBestAcrossNames(t *testing.T) {
	entries := []roster.Entry{
		{DisplayName: "Robert Wilson", Email: "robert.wilson@corp.com", Aliases: []string{"Bob"}},
	}

	// The alias scores 100 even though the display name scores low.
	got := fuzzyCandidates("Bob", entries)
	assert.Equal(t, 100, got[0].score)
}
