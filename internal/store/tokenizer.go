package store

import (
	"context"
	"strings"
	"unicode"
)

// Token is one morpheme produced by a morphological tokenizer.
// Tags follow the Sejong-style tagset used by Korean analyzers:
// N* nouns, V* verbs and adjectives, M* modifiers, J* particles,
// E* endings, S* symbols and numerals.
type Token struct {
	Form string
	Tag  string
}

// Tokenizer splits text into tagged tokens.
// Implementations must be safe for concurrent use.
type Tokenizer interface {
	Tokenize(ctx context.Context, text string) ([]Token, error)
}

// DefaultKeepTags are the tag prefixes of content-bearing word classes.
var DefaultKeepTags = []string{"N", "V", "M"}

// TagFilter keeps the forms of tokens whose tag starts with one of its prefixes.
type TagFilter struct {
	prefixes []string
}

// NewTagFilter creates a filter. An empty prefix list falls back to DefaultKeepTags.
func NewTagFilter(prefixes []string) TagFilter {
	if len(prefixes) == 0 {
		prefixes = DefaultKeepTags
	}
	p := make([]string, len(prefixes))
	copy(p, prefixes)
	return TagFilter{prefixes: p}
}

// Filter returns the surface forms of the kept tokens, in order.
func (f TagFilter) Filter(tokens []Token) []string {
	prefixes := f.prefixes
	if len(prefixes) == 0 {
		prefixes = DefaultKeepTags
	}
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		for _, p := range prefixes {
			if strings.HasPrefix(t.Tag, p) {
				out = append(out, t.Form)
				break
			}
		}
	}
	return out
}

// Tags emitted by RuleTokenizer.
const (
	TagNoun        = "NNG"
	TagNumeral     = "NR"
	TagParticle    = "JX"
	TagPunctuation = "SF"
)

// defaultStopWords are function words tagged as particles by RuleTokenizer.
var defaultStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "by", "for", "from", "in", "is",
	"it", "of", "on", "or", "that", "the", "this", "to", "was", "with",
}

// RuleTokenizer is a deterministic rule-based tokenizer used when no
// morphological analyzer is configured. Words are split on non letter/digit
// runes and on camelCase / snake_case boundaries, then lowercased.
// Function words are tagged as particles so the default TagFilter drops them.
type RuleTokenizer struct {
	stopWords map[string]struct{}
}

// Verify interface implementation at compile time
var _ Tokenizer = (*RuleTokenizer)(nil)

// NewRuleTokenizer creates a RuleTokenizer. Nil stopWords selects the built-in list.
func NewRuleTokenizer(stopWords []string) *RuleTokenizer {
	if stopWords == nil {
		stopWords = defaultStopWords
	}
	return &RuleTokenizer{stopWords: BuildStopWordMap(stopWords)}
}

// Tokenize implements Tokenizer. It never fails.
func (t *RuleTokenizer) Tokenize(_ context.Context, text string) ([]Token, error) {
	var tokens []Token

	var word strings.Builder
	flush := func() {
		if word.Len() == 0 {
			return
		}
		for _, part := range SplitCodeToken(word.String()) {
			tokens = append(tokens, t.tag(strings.ToLower(part)))
		}
		word.Reset()
	}

	for _, r := range text {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_':
			word.WriteRune(r)
		case unicode.IsPunct(r) || unicode.IsSymbol(r):
			flush()
			tokens = append(tokens, Token{Form: string(r), Tag: TagPunctuation})
		default:
			flush()
		}
	}
	flush()

	return tokens, nil
}

func (t *RuleTokenizer) tag(form string) Token {
	if _, stop := t.stopWords[form]; stop {
		return Token{Form: form, Tag: TagParticle}
	}
	isNumber := true
	for _, r := range form {
		if !unicode.IsDigit(r) {
			isNumber = false
			break
		}
	}
	if isNumber {
		return Token{Form: form, Tag: TagNumeral}
	}
	return Token{Form: form, Tag: TagNoun}
}

// SplitCodeToken splits camelCase and snake_case identifiers.
func SplitCodeToken(token string) []string {
	var result []string

	if strings.Contains(token, "_") {
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, SplitCamelCase(part)...)
			}
		}
		return result
	}

	return SplitCamelCase(token)
}

// SplitCamelCase splits camelCase and PascalCase identifiers.
// Examples:
//   - "getUserById" -> ["get", "User", "By", "Id"]
//   - "HTTPHandler" -> ["HTTP", "Handler"]
//   - "parseHTTPRequest" -> ["parse", "HTTP", "Request"]
func SplitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])

			// Split if previous is lowercase OR next is lowercase (handles acronyms)
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// BuildStopWordMap converts a slice of stop words to a map for efficient lookup.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}
