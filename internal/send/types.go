package send

import (
	"time"

	"github.com/shopspring/decimal"

	"rhystmorgan/zterm/internal/validation"
)

// State is the position of a Form in the submission workflow.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateValidating:
		return "Validating"
	case StateSubmitting:
		return "Submitting"
	case StateSucceeded:
		return "Succeeded"
	case StateFailed:
		return "Failed"
	default:
		return "Unknown"
	}
}

// Submission is a frozen copy of a draft that passed validation and was
// handed to the backend.
type Submission struct {
	ID           uint64
	Address      string
	Category     validation.Category
	Amount       decimal.Decimal
	Fee          decimal.Decimal
	Memo         *string
	DispatchedAt time.Time
}

// Outcome is the result of one submission. Exactly one of TxID and Err is
// meaningful.
type Outcome struct {
	TxID string
	Err  error
}

// Succeeded reports whether the backend returned a usable transaction id.
func (o Outcome) Succeeded() bool {
	return o.Err == nil && o.TxID != ""
}

// Observer is notified of submission lifecycle events. Callbacks run
// synchronously and must not call back into the Form.
type Observer interface {
	SubmissionDispatched(sub Submission)
	SubmissionResolved(sub Submission, outcome Outcome)
}

// Snapshot is a read-only copy of the form for rendering.
type Snapshot struct {
	Draft      validation.Draft
	Category   validation.Category
	Validation validation.ValidationResult
	State      State
	InFlight   bool
	LastError  string
	LastTxID   string
	Fee        decimal.Decimal
	Spendable  decimal.Decimal
	HasBalance bool
}

// CanSubmit reports whether a dispatch would currently be accepted.
func (s Snapshot) CanSubmit() bool {
	return !s.InFlight && s.State != StateSucceeded && s.Validation.IsValid
}

// MemoVisible reports whether the memo field applies to the current address.
func (s Snapshot) MemoVisible() bool {
	return s.Category.MemoPermitted()
}
