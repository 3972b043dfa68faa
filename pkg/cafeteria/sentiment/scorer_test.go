package sentiment

import (
	"math"
	"reflect"
	"testing"
)

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestScoreNoRecognizedWords(t *testing.T) {
	s := NewScorer(DefaultLexicon())
	for _, c := range []string{"", "   ", "!!! ... ???", "the rice was served at noon", "12 34"} {
		if got := s.Score(c); got != 0 {
			t.Errorf("Score(%q) = %v, want 0", c, got)
		}
	}
}

func TestScoreWordsAndPhrases(t *testing.T) {
	s := NewScorer(DefaultLexicon())
	cases := []struct {
		comment string
		want    float64
	}{
		// amazing (+1) and the "absolutely amazing" phrase (+5) over 2 tokens
		{"absolutely amazing", 3},
		// terrible is a negative word (-1) and a negative phrase (-5)
		{"terrible", -6},
		{"GREAT", 1},
		// second sentence carries "not good" (-5); two "good" words (+2); 5 tokens
		{"Good food. Not good service!", -0.6},
		// both positive phrases in one sentence count once
		{"very good and really good", 1.4},
		// lists match independently within a sentence
		{"loved it but too salty", 0},
	}
	for _, c := range cases {
		if got := s.Score(c.comment); !approx(got, c.want) {
			t.Errorf("Score(%q) = %v, want %v", c.comment, got, c.want)
		}
	}
}

func TestScorePhrasePerSentence(t *testing.T) {
	s := NewScorer(Lexicon{PositivePhrases: []string{"must try"}})
	// two sentences each containing the phrase: +10 over 4 tokens
	if got := s.Score("Must try! must try."); !approx(got, 2.5) {
		t.Errorf("got %v, want 2.5", got)
	}
}

func TestScoreBalancedFeedbackScenario(t *testing.T) {
	s := NewScorer(DefaultLexicon())
	mean := (s.Score("absolutely amazing") + s.Score("terrible")) / 2
	if !approx(mean, -1.5) {
		t.Errorf("mean = %v, want -1.5", mean)
	}
}

func TestScoreCustomLexiconNormalized(t *testing.T) {
	s := NewScorer(Lexicon{PositiveWords: []string{" Yum "}, NegativePhrases: []string{"  NO   thanks "}})
	if got := s.Score("yum yum"); !approx(got, 1) {
		t.Errorf("Score(yum yum) = %v", got)
	}
	if got := s.Score("no   thanks"); !approx(got, -2.5) {
		t.Errorf("Score(no thanks) = %v", got)
	}
}

func TestScoreAlwaysFinite(t *testing.T) {
	s := NewScorer(DefaultLexicon())
	for _, c := range []string{"", "?", "bad bad bad bad", "best. best! best?"} {
		got := s.Score(c)
		if math.IsNaN(got) || math.IsInf(got, 0) {
			t.Errorf("Score(%q) not finite: %v", c, got)
		}
	}
}

func TestTokenize(t *testing.T) {
	got := Tokenize("Didn't like_it, 2x!  Café")
	want := []string{"didn", "t", "like_it", "2x", "café"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Tokenize = %v, want %v", got, want)
	}
	if len(Tokenize("...")) != 0 {
		t.Error("punctuation only should yield no tokens")
	}
}

func TestSentences(t *testing.T) {
	got := Sentences("Too  SALTY. Loved it!!  Why?")
	want := []string{"too salty", "loved it", "why"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sentences = %v, want %v", got, want)
	}
}
