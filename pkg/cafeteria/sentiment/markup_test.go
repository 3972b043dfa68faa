package sentiment

import "testing"

func TestStripMarkup(t *testing.T) {
	cases := map[string]string{
		"plain text stays":                          "plain text stays",
		"<p>Really <b>good</b></p><p>paneer</p>":    "Really good paneer",
		"too salty &amp; oily":                      "too salty & oily",
		"ok<script>alert('x')</script> meal":        "ok meal",
		"line one<br/>line two":                     "line one line two",
		"<style>p{color:red}</style>fresh and warm": "fresh and warm",
	}
	for in, want := range cases {
		if got := StripMarkup(in); got != want {
			t.Errorf("StripMarkup(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStripMarkupThenScore(t *testing.T) {
	s := NewScorer(DefaultLexicon())
	if got := s.Score(StripMarkup("<i>great</i>")); got != 1 {
		t.Errorf("markup should not dilute the score, got %v", got)
	}
}
