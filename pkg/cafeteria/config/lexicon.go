package config

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cognicore/cafeteria/pkg/cafeteria/sentiment"
)

// Lexicon is the YAML shape of a sentiment lexicon file.
type Lexicon struct {
	// Extend merges the lists below into the built-in lexicon instead of
	// replacing it.
	Extend          bool     `yaml:"extend"`
	PositiveWords   []string `yaml:"positive_words"`
	NegativeWords   []string `yaml:"negative_words"`
	PositivePhrases []string `yaml:"positive_phrases"`
	NegativePhrases []string `yaml:"negative_phrases"`
}

// LoadLexicon loads a sentiment lexicon from a YAML file
func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, err
	}

	return &lex, nil
}

// Sentiment converts the file contents into a scorer lexicon.
func (l *Lexicon) Sentiment() sentiment.Lexicon {
	out := sentiment.Lexicon{
		PositiveWords:   l.PositiveWords,
		NegativeWords:   l.NegativeWords,
		PositivePhrases: l.PositivePhrases,
		NegativePhrases: l.NegativePhrases,
	}
	if !l.Extend {
		return out
	}

	def := sentiment.DefaultLexicon()
	return sentiment.Lexicon{
		PositiveWords:   merge(def.PositiveWords, out.PositiveWords),
		NegativeWords:   merge(def.NegativeWords, out.NegativeWords),
		PositivePhrases: merge(def.PositivePhrases, out.PositivePhrases),
		NegativePhrases: merge(def.NegativePhrases, out.NegativePhrases),
	}
}

func merge(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, w := range list {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			out = append(out, w)
		}
	}
	return out
}
