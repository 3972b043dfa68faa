package sentiment

import (
	"strings"
	"unicode"
)

// Phrase hits weigh more than single words.
const (
	WordWeight   = 1.0
	PhraseWeight = 5.0
)

// Lexicon holds the word and phrase lists used for scoring.
type Lexicon struct {
	PositiveWords   []string
	NegativeWords   []string
	PositivePhrases []string
	NegativePhrases []string
}

// Scorer turns a free-text comment into a normalized sentiment value.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	positive        map[string]struct{}
	negative        map[string]struct{}
	positivePhrases []string
	negativePhrases []string
}

// NewScorer builds a scorer from lex. Words and phrases are lower-cased.
func NewScorer(lex Lexicon) *Scorer {
	return &Scorer{
		positive:        wordSet(lex.PositiveWords),
		negative:        wordSet(lex.NegativeWords),
		positivePhrases: phraseList(lex.PositivePhrases),
		negativePhrases: phraseList(lex.NegativePhrases),
	}
}

// Score returns (word hits + phrase hits) / token count, or 0 for text with
// no tokens.
//
// Each token adds +1 or -1 when it is a known positive or negative word.
// Each sentence (split on '.', '!' and '?') adds +5 when it contains any
// positive phrase and -5 when it contains any negative phrase.
func (s *Scorer) Score(comment string) float64 {
	tokens := Tokenize(comment)
	if len(tokens) == 0 {
		return 0
	}

	total := 0.0
	for _, tok := range tokens {
		if _, ok := s.positive[tok]; ok {
			total += WordWeight
		} else if _, ok := s.negative[tok]; ok {
			total -= WordWeight
		}
	}

	for _, sentence := range Sentences(comment) {
		if containsAny(sentence, s.positivePhrases) {
			total += PhraseWeight
		}
		if containsAny(sentence, s.negativePhrases) {
			total -= PhraseWeight
		}
	}

	return total / float64(len(tokens))
}

// Tokenize lower-cases text and splits it on anything that is not a letter,
// digit or underscore.
func Tokenize(text string) []string {
	var tokens []string
	var current strings.Builder

	for _, r := range text {
		if isWordRune(r) {
			current.WriteRune(unicode.ToLower(r))
			continue
		}
		if current.Len() > 0 {
			tokens = append(tokens, current.String())
			current.Reset()
		}
	}

	if current.Len() > 0 {
		tokens = append(tokens, current.String())
	}

	return tokens
}

// Sentences lower-cases text and splits it on sentence terminators. Runs of
// whitespace inside a sentence collapse to one space; empty sentences are
// dropped.
func Sentences(text string) []string {
	parts := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})

	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.Join(strings.Fields(p), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}

func containsAny(sentence string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(sentence, p) {
			return true
		}
	}
	return false
}

func wordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			set[w] = struct{}{}
		}
	}
	return set
}

func phraseList(phrases []string) []string {
	out := make([]string, 0, len(phrases))
	for _, p := range phrases {
		p = strings.Join(strings.Fields(strings.ToLower(p)), " ")
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
