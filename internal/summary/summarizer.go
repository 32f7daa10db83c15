package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BulletCount is the number of bullets every summary carries.
const BulletCount = 3

var (
	ErrEmptyOneLiner    = errors.New("summary one-liner is empty")
	ErrWrongBulletCount = fmt.Errorf("summary must have exactly %d bullets", BulletCount)
	ErrEmptyBullet      = errors.New("summary bullet is empty")
)

type Summary struct {
	OneLiner string   `json:"one_liner"`
	Bullets  []string `json:"bullets"`
}

// Validate trims the summary in place and checks its shape.
func (s *Summary) Validate() error {
	s.OneLiner = strings.TrimSpace(s.OneLiner)
	if s.OneLiner == "" {
		return ErrEmptyOneLiner
	}
	if len(s.Bullets) != BulletCount {
		return fmt.Errorf("%w, got %d", ErrWrongBulletCount, len(s.Bullets))
	}
	for i, b := range s.Bullets {
		s.Bullets[i] = strings.TrimSpace(b)
		if s.Bullets[i] == "" {
			return ErrEmptyBullet
		}
	}
	return nil
}

// Summarizer condenses an article into a one-liner and three bullets.
type Summarizer interface {
	Summarize(ctx context.Context, title, text string) (*Summary, error)
}
