package selection

import (
	"errors"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
)

const OtherTopic = "other"

var (
	ErrInvalidSimilarityThreshold = errors.New("similarity threshold must be in (0, 1]")
	ErrInvalidRecencyScale        = errors.New("recency scale must not be negative")
	ErrInvalidMinContentLength    = errors.New("min content length must not be negative")
)

// Params is the scoring configuration of the selector.
type Params struct {
	MinContentLength    int
	RecencyScale        float64
	SimilarityThreshold float64
	DefaultSourceWeight float64
	SourceWeights       map[string]float64
	// Keywords maps a term to the weight it adds when found in title or content.
	Keywords map[string]float64
	// Topics are tried in order when labelling a pick.
	Topics []Topic
}

// Topic labels a record by category hints first, then by keyword weight in the title.
type Topic struct {
	Name          string
	CategoryHints []string
	Keywords      map[string]float64
}

func (p Params) Validate() error {
	if p.SimilarityThreshold <= 0 || p.SimilarityThreshold > 1 {
		return ErrInvalidSimilarityThreshold
	}
	if p.RecencyScale < 0 {
		return ErrInvalidRecencyScale
	}
	if p.MinContentLength < 0 {
		return ErrInvalidMinContentLength
	}
	return nil
}

type Request struct {
	Window       time.Duration
	PerSourceCap int
	FinalSize    int
}

func (r Request) Validate() error {
	if r.Window <= 0 {
		return apperr.NewValidation("window must be positive")
	}
	if r.PerSourceCap < 1 {
		return apperr.NewValidation("per-source cap must be at least 1")
	}
	if r.FinalSize < 1 {
		return apperr.NewValidation("final size must be at least 1")
	}
	return nil
}
