package record

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending         Status = "pending"
	StatusOk              Status = "ok"
	StatusFailedTransient Status = "failed_transient"
	StatusFailedPermanent Status = "failed_permanent"
	StatusSkipped         Status = "skipped"
)

// ExtractionState is a closed set of variants: Pending, Ok, FailedPermanent and Skipped.
// Only Pending carries a retry timestamp and only Ok carries content, so an ok record
// with a pending timestamp cannot be built.
type ExtractionState interface {
	Status() Status
	isExtractionState()
}

// Pending is eligible for extraction once NextEligibleAt has passed.
// A non-nil NextEligibleAt means the last attempt failed transiently.
type Pending struct {
	NextEligibleAt *time.Time
}

type Ok struct {
	ContentText string
}

type FailedPermanent struct{}

type Skipped struct{}

func (p Pending) Status() Status {
	if p.NextEligibleAt != nil {
		return StatusFailedTransient
	}
	return StatusPending
}

func (Ok) Status() Status              { return StatusOk }
func (FailedPermanent) Status() Status { return StatusFailedPermanent }
func (Skipped) Status() Status         { return StatusSkipped }

func (Pending) isExtractionState()         {}
func (Ok) isExtractionState()              {}
func (FailedPermanent) isExtractionState() {}
func (Skipped) isExtractionState()         {}

// IsTerminal reports whether the extraction controller will never touch the state again.
func IsTerminal(s ExtractionState) bool {
	switch s.(type) {
	case Ok, FailedPermanent, Skipped:
		return true
	default:
		return false
	}
}

// EligibleAt reports whether a record in state s may be attempted at now.
func EligibleAt(s ExtractionState, now time.Time) bool {
	p, ok := s.(Pending)
	if !ok {
		return false
	}
	return p.NextEligibleAt == nil || !p.NextEligibleAt.After(now)
}

// Columns is the flat persisted form of a state.
// StoredState is nil only for rows written before the state column existed; it decodes as pending.
type Columns struct {
	StoredState    *string
	NextEligibleAt *time.Time
	ContentText    *string
}

// Encode flattens a state into its persisted columns.
// Transient failures are stored as "pending" with a retry timestamp.
func Encode(s ExtractionState) Columns {
	var stored string
	var cols Columns

	switch v := s.(type) {
	case Pending:
		stored = string(StatusPending)
		if v.NextEligibleAt != nil {
			t := v.NextEligibleAt.UTC()
			cols.NextEligibleAt = &t
		}
	case Ok:
		stored = string(StatusOk)
		text := v.ContentText
		cols.ContentText = &text
	case FailedPermanent:
		stored = string(StatusFailedPermanent)
	case Skipped:
		stored = string(StatusSkipped)
	default:
		stored = string(StatusPending)
	}

	cols.StoredState = &stored
	return cols
}

// Decode rebuilds a state from persisted columns.
func Decode(cols Columns) (ExtractionState, error) {
	status := StatusPending
	if cols.StoredState != nil && *cols.StoredState != "" {
		status = Status(*cols.StoredState)
	}

	switch status {
	case StatusPending, StatusFailedTransient:
		return Pending{NextEligibleAt: cols.NextEligibleAt}, nil
	case StatusOk:
		if cols.ContentText == nil {
			return nil, fmt.Errorf("record state %q has no content text", status)
		}
		return Ok{ContentText: *cols.ContentText}, nil
	case StatusFailedPermanent:
		return FailedPermanent{}, nil
	case StatusSkipped:
		return Skipped{}, nil
	default:
		return nil, fmt.Errorf("unknown record state %q", status)
	}
}

// StoredStatus is the value written to the state column for s.
func StoredStatus(s ExtractionState) string {
	return *Encode(s).StoredState
}
