package config

import (
	"fmt"

	"github.com/cognicore/cafeteria/pkg/cafeteria/sentiment"
)

// Loader loads all configuration files and constructs components
type Loader struct {
	ConfigPath string
	// LexiconPath overrides lexicon.path from the config.
	LexiconPath string
}

// Components holds all loaded configuration components
type Components struct {
	Config *Config
	Scorer *sentiment.Scorer
}

// Load reads all configuration files and returns initialized components
func (l *Loader) Load() (*Components, error) {
	cfg, err := Load(l.ConfigPath)
	if err != nil {
		return nil, err
	}

	lexPath := l.LexiconPath
	if lexPath == "" {
		lexPath = cfg.Lexicon.Path
	}

	lex := sentiment.DefaultLexicon()
	if lexPath != "" {
		file, err := LoadLexicon(lexPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		lex = file.Sentiment()
		cfg.Lexicon.Path = lexPath
	}

	return &Components{
		Config: cfg,
		Scorer: sentiment.NewScorer(lex),
	}, nil
}
