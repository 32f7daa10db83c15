package record

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode_RoundTripsEveryVariant(t *testing.T) {
	next := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		state  ExtractionState
		status Status
	}{
		{"pending", Pending{}, StatusPending},
		{"transient", Pending{NextEligibleAt: &next}, StatusFailedTransient},
		{"ok", Ok{ContentText: "body"}, StatusOk},
		{"permanent", FailedPermanent{}, StatusFailedPermanent},
		{"skipped", Skipped{}, StatusSkipped},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := Decode(Encode(tt.state))
			require.NoError(t, err)
			assert.Equal(t, tt.state, decoded)
			assert.Equal(t, tt.status, decoded.Status())
		})
	}
}

func TestEncode_OnlyOkCarriesContentAndOnlyPendingCarriesTimestamp(t *testing.T) {
	next := time.Now()

	ok := Encode(Ok{ContentText: "x"})
	assert.NotNil(t, ok.ContentText)
	assert.Nil(t, ok.NextEligibleAt)

	pending := Encode(Pending{NextEligibleAt: &next})
	assert.Nil(t, pending.ContentText)
	assert.NotNil(t, pending.NextEligibleAt)
	assert.Equal(t, "pending", *pending.StoredState)

	for _, s := range []ExtractionState{FailedPermanent{}, Skipped{}} {
		cols := Encode(s)
		assert.Nil(t, cols.ContentText)
		assert.Nil(t, cols.NextEligibleAt)
	}
}

func TestDecode_NullStateIsPending(t *testing.T) {
	s, err := Decode(Columns{})
	require.NoError(t, err)
	assert.Equal(t, Pending{}, s)
}

func TestDecode_Rejects(t *testing.T) {
	okState := "ok"
	_, err := Decode(Columns{StoredState: &okState})
	assert.Error(t, err, "ok without content")

	bogus := "exploded"
	_, err = Decode(Columns{StoredState: &bogus})
	assert.Error(t, err)
}

func TestEligibleAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	assert.True(t, EligibleAt(Pending{}, now))
	assert.True(t, EligibleAt(Pending{NextEligibleAt: &past}, now))
	assert.True(t, EligibleAt(Pending{NextEligibleAt: &now}, now))
	assert.False(t, EligibleAt(Pending{NextEligibleAt: &future}, now))
	assert.False(t, EligibleAt(Ok{ContentText: "x"}, now))
	assert.False(t, EligibleAt(Skipped{}, now))
	assert.False(t, EligibleAt(FailedPermanent{}, now))
}

func TestDomain(t *testing.T) {
	assert.Equal(t, "techcrunch.com", Domain("https://www.TechCrunch.com/2025/01/x"))
	assert.Equal(t, "news.google.com", Domain("https://news.google.com/rss/articles/abc"))
	assert.Equal(t, "", Domain("not a url"))
}

func TestRawRecord_Normalize(t *testing.T) {
	r := RawRecord{URL: "  https://a.example/x ", Title: " T "}.Normalize()
	assert.Equal(t, "https://a.example/x", r.URL)
	assert.Equal(t, "T", r.Title)
	assert.Equal(t, UnknownSource, r.SourceName)
}
