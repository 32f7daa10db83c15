package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/extraction"
	"github.com/DjordjeVuckovic/news-digest/internal/selection"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultPolicy_IsValid(t *testing.T) {
	p := DefaultPolicy()
	require.NoError(t, p.Validate())

	ep := p.ExtractionPolicy()
	assert.Equal(t, 5*time.Minute, ep.Backoff(1))
	assert.Equal(t, 30*time.Minute, ep.Backoff(2))
	assert.True(t, ep.EnhancedDomains.Match("www.techcrunch.com"))
	assert.False(t, ep.SkipDomains.Match("techcrunch.com"))

	params := p.SelectionParams()
	assert.Equal(t, 2.0, params.Keywords["openai"])
	assert.Equal(t, 1.2, params.Keywords["central bank"])
	require.Len(t, params.Topics, 3)
	assert.Equal(t, "tech", params.Topics[0].Name)
}

func TestDefaultPolicy_ReturnsFreshMaps(t *testing.T) {
	a := DefaultPolicy()
	a.Selection.Topics[0].Keywords["openai"] = 99

	assert.Equal(t, 2.0, DefaultPolicy().Selection.Topics[0].Keywords["openai"])
}

func TestLoadPolicy(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr error
		anyErr  bool
		check   func(t *testing.T, p *Policy)
	}{
		{
			name: "empty document keeps defaults",
			yaml: "",
			check: func(t *testing.T, p *Policy) {
				assert.Equal(t, DefaultPolicy(), p)
			},
		},
		{
			name: "overrides durations and lists",
			yaml: `
extraction:
  max_attempts: 2
  backoff_base: 1m
  fetch_timeout: 3s
  skip_domains: [paywalled.example]
  enhanced_domains: []
run:
  window: 24h
  final_size: 5
`,
			check: func(t *testing.T, p *Policy) {
				assert.Equal(t, 2, p.Extraction.MaxAttempts)
				assert.Equal(t, time.Minute, p.Extraction.BackoffBase)
				assert.Equal(t, 3*time.Second, p.Extraction.FetchTimeout)
				assert.Equal(t, 6.0, p.Extraction.BackoffMultiplier)
				assert.Equal(t, []string{"paywalled.example"}, p.Extraction.SkipDomains)
				assert.Empty(t, p.Extraction.EnhancedDomains)
				assert.Equal(t, 24*time.Hour, p.Run.Window)
				assert.Equal(t, 5, p.Run.FinalSize)
				assert.Equal(t, 5, p.Run.PerSourceCap)
			},
		},
		{
			name: "keywords merge with defaults",
			yaml: `
selection:
  keywords:
    openai: 5
    quantum: 1.5
  source_weights:
    Reuters: 0.5
`,
			check: func(t *testing.T, p *Policy) {
				params := p.SelectionParams()
				assert.Equal(t, 5.0, params.Keywords["openai"])
				assert.Equal(t, 1.5, params.Keywords["quantum"])
				assert.Equal(t, 1.2, params.Keywords["inflation"])
				assert.Equal(t, 0.5, params.SourceWeights["Reuters"])
			},
		},
		{
			name:   "unknown field",
			yaml:   "extraction:\n  retries: 3\n",
			anyErr: true,
		},
		{
			name:    "invalid multiplier",
			yaml:    "extraction:\n  backoff_multiplier: 1\n",
			wantErr: extraction.ErrInvalidBackoffMultiplier,
		},
		{
			name:    "invalid threshold",
			yaml:    "selection:\n  similarity_threshold: 1.5\n",
			wantErr: selection.ErrInvalidSimilarityThreshold,
		},
		{
			name:    "topic without name",
			yaml:    "selection:\n  topics:\n    - category_hints: [sport]\n",
			wantErr: ErrTopicMissingName,
		},
		{
			name:    "negative keyword",
			yaml:    "selection:\n  keywords:\n    spam: -1\n",
			wantErr: ErrNegativeKeywordWeight,
		},
		{
			name:    "zero final size",
			yaml:    "run:\n  final_size: 0\n",
			wantErr: ErrInvalidFinalSize,
		},
		{
			name:    "zero chunk size",
			yaml:    "ingest:\n  chunk_size: 0\n",
			wantErr: ErrInvalidChunkSize,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := LoadPolicy(strings.NewReader(tt.yaml))

			if tt.anyErr {
				assert.Error(t, err)
				return
			}
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, p)
		})
	}
}

func TestToParams_KeepsHighestTopicWeight(t *testing.T) {
	s := SelectionPolicy{
		SimilarityThreshold: 0.8,
		Keywords:            map[string]float64{"chip": 0.5},
		Topics: []TopicPolicy{
			{Name: "a", Keywords: map[string]float64{"chip": 2}},
			{Name: "b", Keywords: map[string]float64{"chip": 1}},
		},
	}

	assert.Equal(t, 2.0, s.toParams().Keywords["chip"])
}

func TestLoadPolicyFile(t *testing.T) {
	p, err := LoadPolicyFile("")
	require.NoError(t, err)
	assert.Equal(t, DefaultPolicy(), p)

	path := filepath.Join(t.TempDir(), "policy.yaml")
	require.NoError(t, os.WriteFile(path, []byte("extraction:\n  workers: 8\n"), 0o600))

	p, err = LoadPolicyFile(path)
	require.NoError(t, err)
	assert.Equal(t, 8, p.Extraction.Workers)

	_, err = LoadPolicyFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRunDefaults_Requests(t *testing.T) {
	run := DefaultPolicy().Run

	drain := run.DrainRequest()
	assert.Equal(t, 10*time.Hour, drain.Window)
	assert.Equal(t, 80, drain.MaxBatch)
	assert.Equal(t, 10, drain.MaxPasses)
	assert.Zero(t, drain.MaxAttempts)

	sel := run.SelectionRequest()
	require.NoError(t, sel.Validate())
	assert.Equal(t, 5, sel.PerSourceCap)
	assert.Equal(t, 10, sel.FinalSize)
}
