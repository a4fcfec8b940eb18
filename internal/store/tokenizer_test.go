package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuleTokenizer_TagsTokens(t *testing.T) {
	// Given: the default rule tokenizer
	tok := NewRuleTokenizer(nil)

	// When: tokenizing mixed text
	tokens, err := tok.Tokenize(context.Background(), "The parseHTTPRequest handler, in 2024!")

	// Then: words are split, lowercased and tagged
	require.NoError(t, err)
	assert.Equal(t, []Token{
		{Form: "the", Tag: TagParticle},
		{Form: "parse", Tag: TagNoun},
		{Form: "http", Tag: TagNoun},
		{Form: "request", Tag: TagNoun},
		{Form: "handler", Tag: TagNoun},
		{Form: ",", Tag: TagPunctuation},
		{Form: "in", Tag: TagParticle},
		{Form: "2024", Tag: TagNumeral},
		{Form: "!", Tag: TagPunctuation},
	}, tokens)
}

func TestRuleTokenizer_Deterministic(t *testing.T) {
	tok := NewRuleTokenizer(nil)
	text := "snake_case_name and 한국어 문서 검색"

	a, err := tok.Tokenize(context.Background(), text)
	require.NoError(t, err)
	b, err := tok.Tokenize(context.Background(), text)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Contains(t, a, Token{Form: "snake", Tag: TagNoun})
	assert.Contains(t, a, Token{Form: "한국어", Tag: TagNoun})
}

func TestTagFilter_KeepsContentClasses(t *testing.T) {
	// Given: tokens of every class
	tokens := []Token{
		{Form: "검색", Tag: "NNG"},
		{Form: "을", Tag: "JKO"},
		{Form: "하", Tag: "VV"},
		{Form: "다", Tag: "EF"},
		{Form: "빠르게", Tag: "MAG"},
		{Form: ".", Tag: "SF"},
	}

	// When: filtering with the default prefixes
	got := NewTagFilter(nil).Filter(tokens)

	// Then: particles, endings and symbols are dropped
	assert.Equal(t, []string{"검색", "하", "빠르게"}, got)
}

func TestTagFilter_CustomPrefixes(t *testing.T) {
	tokens := []Token{{Form: "a", Tag: "NNG"}, {Form: "b", Tag: "JX"}, {Form: "c", Tag: "VV"}}

	got := NewTagFilter([]string{"N", "V", "J"}).Filter(tokens)

	assert.Equal(t, []string{"a", "b", "c"}, got)
}

func TestTagFilter_ZeroValueUsesDefaults(t *testing.T) {
	var f TagFilter
	got := f.Filter([]Token{{Form: "x", Tag: "NNP"}, {Form: "y", Tag: "JX"}})
	assert.Equal(t, []string{"x"}, got)
}

func TestSplitCamelCase(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"getUserById", []string{"get", "User", "By", "Id"}},
		{"HTTPHandler", []string{"HTTP", "Handler"}},
		{"parseHTTPRequest", []string{"parse", "HTTP", "Request"}},
		{"simple", []string{"simple"}},
		{"", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitCamelCase(tt.input))
		})
	}
}

func TestSplitCodeToken_SnakeCase(t *testing.T) {
	assert.Equal(t, []string{"max", "Retry", "count"}, SplitCodeToken("max_Retry__count"))
}
