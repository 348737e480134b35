package validation

import (
	"fmt"
	"unicode/utf8"
)

// MaxMemoLength is the longest memo accepted, counted in characters.
const MaxMemoLength = 512

// ValidateMemo checks the memo length. Whether a memo is sent at all is
// decided by the address category, not here.
func ValidateMemo(memo string) error {
	if n := utf8.RuneCountInString(memo); n > MaxMemoLength {
		return newError(FieldMemo, ErrorMemoTooLong,
			fmt.Sprintf("memo too long (%d characters, max %d)", n, MaxMemoLength))
	}
	return nil
}
