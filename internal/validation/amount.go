package validation

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ZecDecimals is the number of fractional digits in one ZEC (1 zatoshi = 1e-8 ZEC).
const ZecDecimals = 8

var amountPattern = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)$`)

// AmountRequest is the amount half of a draft together with the fee and the
// balance it is checked against. Amount is the raw text the user typed.
type AmountRequest struct {
	Amount    string
	Fee       decimal.Decimal
	Spendable decimal.Decimal
}

// ParseAmount parses a non-negative decimal literal in major units.
func ParseAmount(text string) (decimal.Decimal, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return decimal.Zero, newError(FieldAmount, ErrorEmptyAmount, "amount cannot be empty")
	}

	if !amountPattern.MatchString(text) {
		return decimal.Zero, newError(FieldAmount, ErrorNotANumber, "invalid amount format")
	}

	amount, err := decimal.NewFromString(text)
	if err != nil {
		return decimal.Zero, newError(FieldAmount, ErrorNotANumber, "invalid amount format")
	}

	if !amount.Equal(amount.Truncate(ZecDecimals)) {
		return decimal.Zero, newError(FieldAmount, ErrorTooManyDecimals,
			fmt.Sprintf("amount cannot have more than %d decimal places", ZecDecimals))
	}

	return amount, nil
}

// ValidateAmount checks that the amount parses, is positive and, together
// with the fee, fits in the spendable balance.
func ValidateAmount(req AmountRequest) (decimal.Decimal, error) {
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return decimal.Zero, err
	}

	if !amount.IsPositive() {
		return decimal.Zero, newError(FieldAmount, ErrorNonPositiveAmount, "amount must be greater than 0")
	}

	total := amount.Add(req.Fee)
	if total.GreaterThan(req.Spendable) {
		return decimal.Zero, newError(FieldAmount, ErrorInsufficientBalance,
			fmt.Sprintf("insufficient balance (need %s, have %s)", total.String(), req.Spendable.String()))
	}

	return amount, nil
}

// MaxSendable is the largest amount that still leaves room for the fee.
func MaxSendable(fee, spendable decimal.Decimal) decimal.Decimal {
	remaining := spendable.Sub(fee)
	if remaining.IsNegative() {
		return decimal.Zero
	}
	return remaining
}

// ToZatoshi converts a ZEC amount to integer zatoshi, truncating anything
// below the smallest unit.
func ToZatoshi(amount decimal.Decimal) int64 {
	return amount.Shift(ZecDecimals).IntPart()
}

// FromZatoshi converts integer zatoshi to a ZEC amount.
func FromZatoshi(zatoshi int64) decimal.Decimal {
	return decimal.New(zatoshi, -ZecDecimals)
}
