// Package config holds the engine policy: retry, fetch and selection settings loaded from YAML.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/extraction"
	"github.com/DjordjeVuckovic/news-digest/internal/selection"
	"gopkg.in/yaml.v3"
)

// Policy validation errors.
var (
	ErrInvalidWindow         = errors.New("run.window must be positive")
	ErrInvalidMaxBatch       = errors.New("run.max_batch must be at least 1")
	ErrInvalidMaxPasses      = errors.New("run.max_passes must be at least 1")
	ErrInvalidPerSourceCap   = errors.New("run.per_source_cap must be at least 1")
	ErrInvalidFinalSize      = errors.New("run.final_size must be at least 1")
	ErrInvalidRetention      = errors.New("run.retention must be positive")
	ErrInvalidChunkSize      = errors.New("ingest.chunk_size must be at least 1")
	ErrTopicMissingName      = errors.New("selection.topics[].name is required")
	ErrNegativeKeywordWeight = errors.New("keyword weights must not be negative")
)

// Policy is the complete engine configuration. It is passed explicitly into constructors.
type Policy struct {
	Extraction ExtractionPolicy `yaml:"extraction"`
	Selection  SelectionPolicy  `yaml:"selection"`
	Ingest     IngestPolicy     `yaml:"ingest"`
	Run        RunDefaults      `yaml:"run"`
}

type ExtractionPolicy struct {
	MaxAttempts       int           `yaml:"max_attempts"`
	BackoffBase       time.Duration `yaml:"backoff_base"`
	BackoffMultiplier float64       `yaml:"backoff_multiplier"`
	MinContentLength  int           `yaml:"min_content_length"`
	FetchTimeout      time.Duration `yaml:"fetch_timeout"`
	Workers           int           `yaml:"workers"`
	SkipDomains       []string      `yaml:"skip_domains"`
	EnhancedDomains   []string      `yaml:"enhanced_domains"`
}

type SelectionPolicy struct {
	MinContentLength    int                `yaml:"min_content_length"`
	RecencyScale        float64            `yaml:"recency_scale"`
	SimilarityThreshold float64            `yaml:"similarity_threshold"`
	DefaultSourceWeight float64            `yaml:"default_source_weight"`
	SourceWeights       map[string]float64 `yaml:"source_weights"`
	// Keywords score on their own; topic keywords are added to them.
	Keywords map[string]float64 `yaml:"keywords"`
	Topics   []TopicPolicy      `yaml:"topics"`
}

type TopicPolicy struct {
	Name          string             `yaml:"name"`
	CategoryHints []string           `yaml:"category_hints"`
	Keywords      map[string]float64 `yaml:"keywords"`
}

type IngestPolicy struct {
	ChunkSize int `yaml:"chunk_size"`
}

// RunDefaults are the values the CLI and API use when a request leaves them out.
type RunDefaults struct {
	Window       time.Duration `yaml:"window"`
	MaxBatch     int           `yaml:"max_batch"`
	MaxPasses    int           `yaml:"max_passes"`
	PerSourceCap int           `yaml:"per_source_cap"`
	FinalSize    int           `yaml:"final_size"`
	Retention    time.Duration `yaml:"retention"`
}

// LoadPolicy decodes YAML over DefaultPolicy, so absent keys keep their defaults.
// Maps are merged with the default entries, lists replace them.
func LoadPolicy(r io.Reader) (*Policy, error) {
	p := DefaultPolicy()

	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(p); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse policy YAML: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("invalid policy: %w", err)
	}
	return p, nil
}

// LoadPolicyFile loads the policy at path, or the defaults when path is empty.
func LoadPolicyFile(path string) (*Policy, error) {
	if path == "" {
		return DefaultPolicy(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open policy file: %w", err)
	}
	defer f.Close()

	return LoadPolicy(f)
}

func (p *Policy) Validate() error {
	if err := p.Extraction.toPolicy().Validate(); err != nil {
		return err
	}
	if err := p.Selection.toParams().Validate(); err != nil {
		return err
	}
	if err := p.Selection.validate(); err != nil {
		return err
	}
	if p.Ingest.ChunkSize < 1 {
		return ErrInvalidChunkSize
	}
	return p.Run.validate()
}

func (s SelectionPolicy) validate() error {
	for _, w := range s.Keywords {
		if w < 0 {
			return ErrNegativeKeywordWeight
		}
	}
	for _, t := range s.Topics {
		if t.Name == "" {
			return ErrTopicMissingName
		}
		for _, w := range t.Keywords {
			if w < 0 {
				return ErrNegativeKeywordWeight
			}
		}
	}
	return nil
}

func (r RunDefaults) validate() error {
	switch {
	case r.Window <= 0:
		return ErrInvalidWindow
	case r.MaxBatch < 1:
		return ErrInvalidMaxBatch
	case r.MaxPasses < 1:
		return ErrInvalidMaxPasses
	case r.PerSourceCap < 1:
		return ErrInvalidPerSourceCap
	case r.FinalSize < 1:
		return ErrInvalidFinalSize
	case r.Retention <= 0:
		return ErrInvalidRetention
	}
	return nil
}

// ExtractionPolicy converts the extraction section for extraction.NewController.
func (p *Policy) ExtractionPolicy() extraction.Policy {
	return p.Extraction.toPolicy()
}

// SelectionParams converts the selection section for selection.NewSelector.
func (p *Policy) SelectionParams() selection.Params {
	return p.Selection.toParams()
}

func (e ExtractionPolicy) toPolicy() extraction.Policy {
	return extraction.Policy{
		MaxAttempts:       e.MaxAttempts,
		BackoffBase:       e.BackoffBase,
		BackoffMultiplier: e.BackoffMultiplier,
		MinContentLength:  e.MinContentLength,
		FetchTimeout:      e.FetchTimeout,
		Workers:           e.Workers,
		SkipDomains:       extraction.NewDomainSet(e.SkipDomains...),
		EnhancedDomains:   extraction.NewDomainSet(e.EnhancedDomains...),
	}
}

// toParams flattens topic keywords into the scoring keywords. A term listed more than once
// keeps its highest weight.
func (s SelectionPolicy) toParams() selection.Params {
	keywords := make(map[string]float64, len(s.Keywords))
	merge := func(kw map[string]float64) {
		for k, w := range kw {
			if cur, ok := keywords[k]; !ok || w > cur {
				keywords[k] = w
			}
		}
	}
	merge(s.Keywords)

	topics := make([]selection.Topic, 0, len(s.Topics))
	for _, t := range s.Topics {
		merge(t.Keywords)
		topics = append(topics, selection.Topic{
			Name:          t.Name,
			CategoryHints: t.CategoryHints,
			Keywords:      t.Keywords,
		})
	}

	weights := make(map[string]float64, len(s.SourceWeights))
	for k, v := range s.SourceWeights {
		weights[k] = v
	}

	return selection.Params{
		MinContentLength:    s.MinContentLength,
		RecencyScale:        s.RecencyScale,
		SimilarityThreshold: s.SimilarityThreshold,
		DefaultSourceWeight: s.DefaultSourceWeight,
		SourceWeights:       weights,
		Keywords:            keywords,
		Topics:              topics,
	}
}

// PassRequest is a single extraction pass over the default window.
func (r RunDefaults) PassRequest() extraction.PassRequest {
	return extraction.PassRequest{Window: r.Window, MaxBatch: r.MaxBatch}
}

func (r RunDefaults) DrainRequest() extraction.DrainRequest {
	return extraction.DrainRequest{PassRequest: r.PassRequest(), MaxPasses: r.MaxPasses}
}

func (r RunDefaults) SelectionRequest() selection.Request {
	return selection.Request{Window: r.Window, PerSourceCap: r.PerSourceCap, FinalSize: r.FinalSize}
}
