package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Symbol is the currency ticker shown next to amounts.
const Symbol = "ZEC"

// FormatAddress truncates an address for display purposes
func FormatAddress(address string, prefixLen, suffixLen int) string {
	if len(address) <= prefixLen+suffixLen {
		return address
	}

	return address[:prefixLen] + "..." + address[len(address)-suffixLen:]
}

// FormatAmount renders an amount with at most eight decimal places and no
// trailing zeros.
func FormatAmount(amount decimal.Decimal) string {
	return amount.Truncate(8).String()
}

// FormatBalance formats a balance with its unit
func FormatBalance(amount decimal.Decimal) string {
	return fmt.Sprintf("%s %s", FormatAmount(amount), Symbol)
}

// FormatBalanceWithCommas formats a balance with comma separators
func FormatBalanceWithCommas(amount decimal.Decimal) string {
	formatted := FormatAmount(amount)

	sign := ""
	if strings.HasPrefix(formatted, "-") {
		sign, formatted = "-", formatted[1:]
	}

	intPart, fracPart, hasFrac := strings.Cut(formatted, ".")
	if len(intPart) > 3 {
		var result strings.Builder
		for i, digit := range intPart {
			if i > 0 && (len(intPart)-i)%3 == 0 {
				result.WriteString(",")
			}
			result.WriteRune(digit)
		}
		intPart = result.String()
	}

	formatted = sign + intPart
	if hasFrac {
		formatted += "." + fracPart
	}

	return fmt.Sprintf("%s %s", formatted, Symbol)
}

// FormatTransactionID formats a transaction ID for display
func FormatTransactionID(txID string) string {
	if len(txID) <= 16 {
		return txID
	}
	return txID[:8] + "..." + txID[len(txID)-8:]
}

// FormatTimeAgo formats a time as "X ago" string
func FormatTimeAgo(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		minutes := int(diff.Minutes())
		if minutes == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", minutes)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	default:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	}
}
