package qacache

import "time"

// Time-sensitive handling policies.
const (
	// PolicyBypass never reads or writes the cache for time-sensitive questions.
	PolicyBypass = "bypass"
	// PolicyShortTTL matches time-sensitive questions like any other and persists them with ShortTTL.
	PolicyShortTTL = "short_ttl"
)

// Config holds runtime knobs for the question cache.
type Config struct {
	Matching      MatchingConfig
	LongTTL       time.Duration
	ShortTTL      time.Duration
	TimeSensitive TimeSensitiveConfig
	Semantic      SemanticConfig
	AsyncPersist  bool
	TopTrending   int
}

// MatchingConfig holds the scoring policy constants.
type MatchingConfig struct {
	FuzzyThreshold float64
	LexicalFloor   float64
	CandidateLimit int
	CosineFloor    float64
	OverlapFloor   float64
	CosineWeight   float64
	OverlapWeight  float64
}

// TimeSensitiveConfig controls the volatile-topic classifier.
type TimeSensitiveConfig struct {
	Policy   string
	Keywords []string
}

// SemanticConfig toggles embedding lookups.
type SemanticConfig struct {
	Enabled    bool
	Dimensions int
}

// DefaultMatching returns the design defaults.
func DefaultMatching() MatchingConfig {
	return MatchingConfig{
		FuzzyThreshold: 0.85,
		LexicalFloor:   0.55,
		CandidateLimit: 25,
		CosineFloor:    0.90,
		OverlapFloor:   0.35,
		CosineWeight:   0.75,
		OverlapWeight:  0.25,
	}
}

// DefaultConfig returns a Config with every policy constant at its design default.
func DefaultConfig() Config {
	return Config{
		Matching: DefaultMatching(),
		LongTTL:  30 * 24 * time.Hour,
		ShortTTL: 10 * time.Minute,
		TimeSensitive: TimeSensitiveConfig{
			Policy: PolicyBypass,
		},
		Semantic:    SemanticConfig{Enabled: true},
		TopTrending: 10,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Matching == (MatchingConfig{}) {
		c.Matching = def.Matching
	}
	if c.Matching.CandidateLimit <= 0 {
		c.Matching.CandidateLimit = def.Matching.CandidateLimit
	}
	if c.LongTTL <= 0 {
		c.LongTTL = def.LongTTL
	}
	if c.ShortTTL <= 0 {
		c.ShortTTL = def.ShortTTL
	}
	if c.TimeSensitive.Policy == "" {
		c.TimeSensitive.Policy = PolicyBypass
	}
	if c.TopTrending <= 0 {
		c.TopTrending = def.TopTrending
	}
	return c
}
