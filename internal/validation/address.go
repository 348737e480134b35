package validation

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
)

// Category is the transaction type implied by a recipient address.
type Category int

const (
	CategoryInvalid Category = iota
	CategoryTransparent
	CategoryShielded
)

func (c Category) String() string {
	switch c {
	case CategoryTransparent:
		return "Transparent"
	case CategoryShielded:
		return "Shielded"
	default:
		return "Invalid"
	}
}

// MemoPermitted reports whether a memo may accompany a send to this category.
func (c Category) MemoPermitted() bool {
	return c == CategoryShielded
}

const (
	TransparentPrefix = "t1"
	SaplingPrefix     = "zs"
	SproutPrefix      = "zc"

	MinTransparentLength = 34
	MinShieldedLength    = 60
)

// Zcash mainnet P2PKH version bytes (t1...)
var transparentVersion = [2]byte{0x1C, 0xB8}

// Classify determines the address category from prefix and length alone.
func Classify(raw string) Category {
	switch {
	case raw == "":
		return CategoryInvalid
	case strings.HasPrefix(raw, TransparentPrefix) && len(raw) >= MinTransparentLength:
		return CategoryTransparent
	case (strings.HasPrefix(raw, SaplingPrefix) || strings.HasPrefix(raw, SproutPrefix)) && len(raw) >= MinShieldedLength:
		return CategoryShielded
	default:
		return CategoryInvalid
	}
}

// ValidateAddress returns an InvalidAddress error when raw does not classify.
func ValidateAddress(raw string) (Category, error) {
	category := Classify(raw)
	if category == CategoryInvalid {
		if raw == "" {
			return category, newError(FieldAddress, ErrorInvalidAddress, "address cannot be empty")
		}
		return category, newError(FieldAddress, ErrorInvalidAddress, "invalid Zcash address format")
	}
	return category, nil
}

// VerifyChecksum decodes the address and checks its encoding checksum.
// Sprout (zc) addresses are accepted on prefix and length only.
func VerifyChecksum(raw string) error {
	switch Classify(raw) {
	case CategoryTransparent:
		decoded, version, err := base58.CheckDecode(raw)
		if err != nil {
			return newError(FieldAddress, ErrorChecksumMismatch, fmt.Sprintf("transparent address checksum: %v", err))
		}
		// CheckDecode splits off one version byte; Zcash uses two.
		if version != transparentVersion[0] || len(decoded) != 21 || decoded[0] != transparentVersion[1] {
			return newError(FieldAddress, ErrorChecksumMismatch, "transparent address has an unknown version prefix")
		}
		return nil
	case CategoryShielded:
		if strings.HasPrefix(raw, SproutPrefix) {
			return nil
		}
		hrp, _, err := bech32.Decode(raw)
		if err != nil {
			return newError(FieldAddress, ErrorChecksumMismatch, fmt.Sprintf("shielded address checksum: %v", err))
		}
		if hrp != SaplingPrefix {
			return newError(FieldAddress, ErrorChecksumMismatch, fmt.Sprintf("unexpected shielded address prefix %q", hrp))
		}
		return nil
	default:
		return newError(FieldAddress, ErrorInvalidAddress, "invalid Zcash address format")
	}
}
