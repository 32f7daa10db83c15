package config

import "time"

// DefaultPolicy returns a fresh policy with the built-in values.
func DefaultPolicy() *Policy {
	return &Policy{
		Extraction: ExtractionPolicy{
			MaxAttempts:       3,
			BackoffBase:       5 * time.Minute,
			BackoffMultiplier: 6,
			MinContentLength:  100,
			FetchTimeout:      10 * time.Second,
			Workers:           4,
			SkipDomains:       []string{},
			EnhancedDomains: []string{
				"timesofindia.indiatimes.com",
				"theverge.com",
				"techcrunch.com",
				"anthropic.com",
			},
		},
		Selection: SelectionPolicy{
			MinContentLength:    100,
			RecencyScale:        10,
			SimilarityThreshold: 0.8,
			DefaultSourceWeight: 0,
			SourceWeights:       map[string]float64{},
			Keywords:            map[string]float64{},
			Topics: []TopicPolicy{
				{
					Name:          "tech",
					CategoryHints: []string{"tech", "technology", "ai", "startups"},
					Keywords:      techKeywords(),
				},
				{
					Name:          "finance",
					CategoryHints: []string{"finance", "business", "markets", "economy", "money"},
					Keywords:      financeKeywords(),
				},
				{
					Name:          "world",
					CategoryHints: []string{"world", "international", "global", "geopolitics", "politics"},
					Keywords:      worldKeywords(),
				},
			},
		},
		Ingest: IngestPolicy{
			ChunkSize: 500,
		},
		Run: RunDefaults{
			Window:       10 * time.Hour,
			MaxBatch:     80,
			MaxPasses:    10,
			PerSourceCap: 5,
			FinalSize:    10,
			Retention:    18 * time.Hour,
		},
	}
}

func techKeywords() map[string]float64 {
	return map[string]float64{
		"openai": 2, "anthropic": 2, "google": 1, "microsoft": 1, "apple": 1,
		"nvidia": 1.5, "tesla": 0.8, "ai": 0.8, "llm": 1, "chip": 0.8, "gpu": 0.8,
		"cyber": 1, "security": 1, "breach": 1.2, "startup": 0.7, "funding": 0.9,
	}
}

func financeKeywords() map[string]float64 {
	return map[string]float64{
		"stocks": 1.2, "equities": 1.2, "bond": 1, "bonds": 1, "yield": 1, "yields": 1,
		"forex": 1, "currency": 0.8, "rupee": 0.8, "dollar": 0.8, "oil": 0.8, "gold": 0.8,
		"inflation": 1.2, "cpi": 1.2, "gdp": 1.1, "interest rate": 1.2, "rates": 0.8,
		"fed": 1.2, "central bank": 1.2, "earnings": 1, "revenue": 0.6, "ipo": 0.8,
		"crypto": 0.8, "bitcoin": 0.8,
	}
}

func worldKeywords() map[string]float64 {
	return map[string]float64{
		"election": 0.8, "war": 1, "ceasefire": 1, "sanction": 1, "trade": 0.8,
		"tariff": 0.8, "diplomat": 0.6, "border": 0.6,
	}
}
