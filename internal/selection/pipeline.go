package selection

import (
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/DjordjeVuckovic/news-digest/internal/domain/record"
)

// Pick is one ranked record.
type Pick struct {
	Record record.Record
	Score  float64
	Topic  string
	Rank   int

	title string
}

func (p Pick) Reason() string {
	return fmt.Sprintf("rank=%d;score=%.4f;topic=%s", p.Rank, p.Score, p.Topic)
}

func (p Pick) Selection() record.Selection {
	return record.Selection{Score: p.Score, Rank: p.Rank, Reason: p.Reason()}
}

// Rank runs the selection pipeline over extracted records. It does no I/O and is
// deterministic for identical input and now.
func Rank(records []record.Record, params Params, perSourceCap, finalSize int, now time.Time) []Pick {
	candidates := filterCandidates(records, params.MinContentLength)
	scored := score(candidates, params, now)
	capped := capPerSource(scored, perSourceCap)
	unique := suppressNearDuplicates(capped, params.SimilarityThreshold)
	return truncate(unique, finalSize)
}

// filterCandidates drops records without enough content to summarize.
func filterCandidates(records []record.Record, minLength int) []record.Record {
	out := make([]record.Record, 0, len(records))
	for _, r := range records {
		text, ok := r.ContentText()
		if !ok || utf8.RuneCountInString(text) < minLength {
			continue
		}
		out = append(out, r)
	}
	return out
}

type term struct {
	text   string
	weight float64
}

// compileTerms normalizes keywords once and fixes their order so float sums are reproducible.
func compileTerms(keywords map[string]float64) []term {
	out := make([]term, 0, len(keywords))
	for kw, w := range keywords {
		if t := Normalize(kw); t != "" {
			out = append(out, term{text: t, weight: w})
		}
	}
	slices.SortFunc(out, func(a, b term) int { return strings.Compare(a.text, b.text) })
	return out
}

type compiledTopic struct {
	name  string
	hints []string
	terms []term
}

func compileTopics(topics []Topic) []compiledTopic {
	out := make([]compiledTopic, 0, len(topics))
	for _, t := range topics {
		ct := compiledTopic{name: t.Name, terms: compileTerms(t.Keywords)}
		for _, h := range t.CategoryHints {
			if n := Normalize(h); n != "" {
				ct.hints = append(ct.hints, n)
			}
		}
		out = append(out, ct)
	}
	return out
}

func score(records []record.Record, params Params, now time.Time) []Pick {
	keywords := compileTerms(params.Keywords)
	topics := compileTopics(params.Topics)

	out := make([]Pick, 0, len(records))
	for _, r := range records {
		title := Normalize(r.Title)
		text, _ := r.ContentText()
		paddedTitle := pad(title)
		paddedBody := pad(Normalize(text))

		s := recencyTerm(r, params.RecencyScale, now) +
			keywordTerm(paddedTitle, paddedBody, keywords) +
			sourceWeightTerm(r.SourceName, params)

		out = append(out, Pick{
			Record: r,
			Score:  s,
			Topic:  classify(paddedTitle, r.Category, topics),
			title:  title,
		})
	}
	return out
}

// recencyTerm is scale/(1+ageHours); future timestamps count as age zero.
func recencyTerm(r record.Record, scale float64, now time.Time) float64 {
	age := now.Sub(r.ReferenceTime()).Hours()
	if age < 0 {
		age = 0
	}
	return scale / (1 + age)
}

// keywordTerm adds each keyword's weight once if it appears in title or body.
func keywordTerm(paddedTitle, paddedBody string, keywords []term) float64 {
	var sum float64
	for _, kw := range keywords {
		if containsTerm(paddedTitle, kw.text) || containsTerm(paddedBody, kw.text) {
			sum += kw.weight
		}
	}
	return sum
}

func sourceWeightTerm(source string, params Params) float64 {
	if w, ok := params.SourceWeights[source]; ok {
		return w
	}
	return params.DefaultSourceWeight
}

func classify(paddedTitle, category string, topics []compiledTopic) string {
	if cat := Normalize(category); cat != "" {
		paddedCat := pad(cat)
		for _, t := range topics {
			for _, hint := range t.hints {
				if containsTerm(paddedCat, hint) {
					return t.name
				}
			}
		}
	}

	best, bestWeight := OtherTopic, 0.0
	for _, t := range topics {
		var w float64
		for _, kw := range t.terms {
			if containsTerm(paddedTitle, kw.text) {
				w += kw.weight
			}
		}
		if w > bestWeight {
			best, bestWeight = t.name, w
		}
	}
	return best
}

// compare orders by score descending, then newer publishedAt (missing last), then lower ID.
func compare(a, b Pick) int {
	if a.Score != b.Score {
		if a.Score > b.Score {
			return -1
		}
		return 1
	}

	pa, pb := a.Record.PublishedAt, b.Record.PublishedAt
	switch {
	case pa != nil && pb == nil:
		return -1
	case pa == nil && pb != nil:
		return 1
	case pa != nil && pb != nil && !pa.Equal(*pb):
		if pa.After(*pb) {
			return -1
		}
		return 1
	}

	switch {
	case a.Record.ID < b.Record.ID:
		return -1
	case a.Record.ID > b.Record.ID:
		return 1
	}
	return 0
}

func sorted(picks []Pick) []Pick {
	out := slices.Clone(picks)
	slices.SortFunc(out, compare)
	return out
}

// capPerSource keeps the best perSourceCap picks of every source, returned in global order.
func capPerSource(picks []Pick, perSourceCap int) []Pick {
	taken := make(map[string]int)
	out := make([]Pick, 0, len(picks))
	for _, p := range sorted(picks) {
		if taken[p.Record.SourceName] >= perSourceCap {
			continue
		}
		taken[p.Record.SourceName]++
		out = append(out, p)
	}
	return out
}

// suppressNearDuplicates greedily accepts picks in global order and rejects any whose
// title is more similar than threshold to an accepted title.
func suppressNearDuplicates(picks []Pick, threshold float64) []Pick {
	out := make([]Pick, 0, len(picks))
	for _, p := range sorted(picks) {
		duplicate := false
		for _, accepted := range out {
			if Similarity(p.title, accepted.title) > threshold {
				duplicate = true
				break
			}
		}
		if !duplicate {
			out = append(out, p)
		}
	}
	return out
}

// truncate keeps the first n picks and assigns ranks from 1.
func truncate(picks []Pick, n int) []Pick {
	out := sorted(picks)
	if len(out) > n {
		out = out[:n]
	}
	for i := range out {
		out[i].Rank = i + 1
	}
	return out
}
