package utils

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFormatAddress(t *testing.T) {
	assert.Equal(t, "t1Hsd...1fCi", FormatAddress("t1HsdDMzmJfq4vc7T17XYjEkLMLvbgM1fCi", 5, 4))
	assert.Equal(t, "short", FormatAddress("short", 5, 4))
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1.50000000", "1.5"},
		{"0.00000001", "0.00000001"},
		{"0.000000019", "0.00000001"},
		{"21000000", "21000000"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, FormatAmount(decimal.RequireFromString(tt.in)), tt.in)
	}
}

func TestFormatBalance(t *testing.T) {
	assert.Equal(t, "9.999 ZEC", FormatBalance(decimal.RequireFromString("9.999")))
	assert.Equal(t, "1,234,567.5 ZEC", FormatBalanceWithCommas(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "123 ZEC", FormatBalanceWithCommas(decimal.RequireFromString("123")))
	assert.Equal(t, "-1,000 ZEC", FormatBalanceWithCommas(decimal.RequireFromString("-1000")))
}

func TestFormatTransactionID(t *testing.T) {
	assert.Equal(t, "abcdef", FormatTransactionID("abcdef"))
	assert.Equal(t, "5e2f1c0a...5c4d3e2f",
		FormatTransactionID("5e2f1c0a9b8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f"))
}

func TestFormatTimeAgo(t *testing.T) {
	now := time.Now()
	assert.Equal(t, "just now", FormatTimeAgo(now.Add(-10*time.Second)))
	assert.Equal(t, "1 min ago", FormatTimeAgo(now.Add(-90*time.Second)))
	assert.Equal(t, "5 mins ago", FormatTimeAgo(now.Add(-5*time.Minute)))
	assert.Equal(t, "2 hours ago", FormatTimeAgo(now.Add(-2*time.Hour)))
	assert.Equal(t, "3 days ago", FormatTimeAgo(now.Add(-72*time.Hour)))
}
