package roster

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"lowercases", "John Smith", "john smith"},
		{"strips diacritics", "José García", "jose garcia"},
		{"punctuation separates", "O'Brien, Dr.", "o brien dr"},
		{"collapses whitespace", "  John   Smith  ", "john smith"},
		{"hyphenated", "Mary-Jane Watson", "mary jane watson"},
		{"empty", "", ""},
		{"only punctuation", "...", ""},
		{"digits kept", "Agent 47", "agent 47"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestNormalizeEquatesVariants(t *testing.T) {
	// Every matching stage keys on the same normal form.
	assert.Equal(t, Normalize("José"), Normalize("jose"))
	assert.Equal(t, Normalize("JOHN  SMITH"), Normalize("john smith"))
	assert.Equal(t, Normalize("smith, john"), "smith john")
}

func TestTokens(t *testing.T) {
	// Input order is preserved; matchers that want order independence sort
	// their own copies.
	assert.Equal(t, []string{"smith", "john"}, Tokens("Smith, John"))
	assert.Equal(t, []string{"mary", "jane"}, Tokens("Mary-Jane"))
	assert.Nil(t, Tokens("  .  "))
}

func TestEntryNames(t *testing.T) {
	e := Entry{
		DisplayName: "John Smith",
		Email:       "john.smith@corp.com",
		Aliases:     []string{"Jon", "Johnny"},
	}
	assert.Equal(t, []string{"John Smith", "Jon", "Johnny"}, e.Names())
}

func TestFindByEmail(t *testing.T) {
	entries := []Entry{
		{DisplayName: "John Smith", Email: "john.smith@corp.com"},
		{DisplayName: "Sarah Chen", Email: "sarah.chen@corp.com"},
	}

	assert.NotNil(t, FindByEmail(entries, "SARAH.CHEN@corp.com"))
	assert.Nil(t, FindByEmail(entries, "nobody@corp.com"))
}
