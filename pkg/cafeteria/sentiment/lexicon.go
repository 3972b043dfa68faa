package sentiment

// DefaultLexicon returns the built-in cafeteria vocabulary. Deployments can
// replace it with a YAML lexicon (see config.LoadLexicon).
func DefaultLexicon() Lexicon {
	return Lexicon{
		PositiveWords: []string{
			"good", "great", "excellent", "amazing", "awesome", "tasty", "delicious",
			"fresh", "love", "loved", "like", "liked", "enjoyed", "nice", "perfect",
			"yummy", "wonderful", "fantastic", "best", "flavorful", "crispy", "soft",
			"satisfying", "superb", "authentic",
		},
		NegativeWords: []string{
			"bad", "terrible", "awful", "horrible", "bland", "cold", "stale", "worst",
			"hate", "hated", "disgusting", "salty", "oily", "soggy", "raw", "burnt",
			"overcooked", "undercooked", "poor", "tasteless", "spoiled", "dislike",
			"hard", "rubbery", "inedible",
		},
		PositivePhrases: []string{
			"absolutely amazing", "really good", "very good", "very tasty", "loved it",
			"would eat again", "must try", "well cooked", "perfectly cooked",
			"just like home", "outstanding",
		},
		NegativePhrases: []string{
			"terrible", "not good", "not tasty", "not fresh", "too salty", "too oily",
			"too spicy", "never again", "waste of money", "not worth", "inedible",
			"made me sick",
		},
	}
}
