package validation

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Draft holds the raw form values of a transaction being composed.
type Draft struct {
	Address string
	Amount  string
	Memo    string
}

// IsEmpty reports whether no field has been filled in.
func (d Draft) IsEmpty() bool {
	return d.Address == "" && d.Amount == "" && d.Memo == ""
}

// Category classifies the draft's address. It is recomputed on every call.
func (d Draft) Category() Category {
	return Classify(d.Address)
}

// OutgoingMemo returns the memo to send, or nil when the address does not
// take memos or the memo is blank.
func (d Draft) OutgoingMemo() *string {
	if !d.Category().MemoPermitted() || d.Memo == "" {
		return nil
	}
	memo := d.Memo
	return &memo
}

// DraftValidator validates complete drafts against a fee and balance.
type DraftValidator struct {
	strictAddresses bool
}

// NewDraftValidator creates a DraftValidator. When strict is set, addresses
// must also pass VerifyChecksum.
func NewDraftValidator(strict bool) *DraftValidator {
	return &DraftValidator{strictAddresses: strict}
}

// Validate performs every field check and collects the failures.
func (v *DraftValidator) Validate(d Draft, fee, spendable decimal.Decimal) ValidationResult {
	result := ValidationResult{
		IsValid:     true,
		ValidatedAt: time.Now(),
	}

	fail := func(err error) {
		var vErr *ValidationError
		if errors.As(err, &vErr) {
			result.Errors = append(result.Errors, *vErr)
		}
		result.IsValid = false
	}

	category, err := ValidateAddress(d.Address)
	if err != nil {
		fail(err)
	} else if v.strictAddresses {
		if err := VerifyChecksum(d.Address); err != nil {
			fail(err)
		}
	}

	if _, err := ValidateAmount(AmountRequest{Amount: d.Amount, Fee: fee, Spendable: spendable}); err != nil {
		fail(err)
	}

	if category.MemoPermitted() {
		if err := ValidateMemo(d.Memo); err != nil {
			fail(err)
		}
	}

	return result
}
