package extraction

import (
	"errors"
	"math"
	"strings"
	"time"
)

var (
	ErrInvalidMaxAttempts       = errors.New("max attempts must be at least 1")
	ErrInvalidBackoffBase       = errors.New("backoff base must be positive")
	ErrInvalidBackoffMultiplier = errors.New("backoff multiplier must be greater than 1")
	ErrInvalidFetchTimeout      = errors.New("fetch timeout must be positive")
	ErrInvalidWorkers           = errors.New("workers must be at least 1")
)

// Policy is the retry and fetch configuration of the controller.
type Policy struct {
	MaxAttempts       int
	BackoffBase       time.Duration
	BackoffMultiplier float64
	MinContentLength  int
	FetchTimeout      time.Duration
	Workers           int
	SkipDomains       DomainSet
	EnhancedDomains   DomainSet
}

func (p Policy) Validate() error {
	if p.MaxAttempts < 1 {
		return ErrInvalidMaxAttempts
	}
	if p.BackoffBase <= 0 {
		return ErrInvalidBackoffBase
	}
	if p.BackoffMultiplier <= 1 {
		return ErrInvalidBackoffMultiplier
	}
	if p.FetchTimeout <= 0 {
		return ErrInvalidFetchTimeout
	}
	if p.Workers < 1 {
		return ErrInvalidWorkers
	}
	return nil
}

// Backoff is the wait after the n-th failed attempt: base * multiplier^(n-1).
func (p Policy) Backoff(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := float64(p.BackoffBase) * math.Pow(p.BackoffMultiplier, float64(n-1))
	if d >= math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// UseEnhanced decides the fetch path for a record that has already failed attempts times.
// Enhanced domains get the enhanced path first; every domain gets it on the last allowed attempt.
func (p Policy) UseEnhanced(domain string, attempts, maxAttempts int) bool {
	if attempts+1 >= maxAttempts {
		return true
	}
	return attempts == 0 && p.EnhancedDomains.Match(domain)
}

// DomainSet matches hosts by exact name or parent domain.
type DomainSet map[string]struct{}

func NewDomainSet(domains ...string) DomainSet {
	s := make(DomainSet, len(domains))
	for _, d := range domains {
		d = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(d)), "www.")
		if d != "" {
			s[d] = struct{}{}
		}
	}
	return s
}

// Match reports whether domain or one of its parents is in the set.
func (s DomainSet) Match(domain string) bool {
	if len(s) == 0 || domain == "" {
		return false
	}
	domain = strings.TrimPrefix(strings.ToLower(domain), "www.")
	for {
		if _, ok := s[domain]; ok {
			return true
		}
		i := strings.IndexByte(domain, '.')
		if i < 0 {
			return false
		}
		domain = domain[i+1:]
	}
}

func (s DomainSet) List() []string {
	out := make([]string, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	return out
}
