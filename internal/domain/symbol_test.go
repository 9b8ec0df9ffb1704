package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCanonicalSymbol(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{"known crypto", "BTC", true},
		{"known fx pair", "USDTRY", true},
		{"lowercase rejected", "btc", false},
		{"unknown symbol", "ZZZZ", false},
		{"too long", "ABCDEFGHIJKLM", false},
		{"empty string", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsCanonicalSymbol(tt.input))
		})
	}
}

func TestExtractSymbols(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "single known symbol",
			text:     "BTC rallies past resistance",
			expected: []string{"BTC"},
		},
		{
			name:     "dedupes repeats preserving first-seen order",
			text:     "ETH up, BTC up, ETH up again",
			expected: []string{"ETH", "BTC"},
		},
		{
			name:     "ignores unknown tokens",
			text:     "FOOBAR is not a symbol but BTC is",
			expected: []string{"BTC"},
		},
		{
			name:     "no symbols present",
			text:     "nothing relevant here",
			expected: nil,
		},
		{
			name:     "case-insensitive match normalizes to uppercase",
			text:     "btc is trending",
			expected: []string{"BTC"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractSymbols(tt.text))
		})
	}
}

func TestRegisterSymbolExtendsVocabulary(t *testing.T) {
	assert.False(t, IsCanonicalSymbol("NEWCOIN"))
	RegisterSymbol("newcoin")
	assert.True(t, IsCanonicalSymbol("NEWCOIN"))
}
