package wallet

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Network string

const (
	MainNet Network = "mainnet"
	TestNet Network = "testnet"
)

type Config struct {
	Network          Network
	NodeURL          string
	RPCUser          string
	RPCPassword      string
	FromAddress      string
	Fee              decimal.Decimal
	MinConf          int
	Timeout          time.Duration
	RetryCount       int
	RetryDelay       time.Duration
	CacheTTL         time.Duration
	PollInterval     time.Duration
	OperationTimeout time.Duration
}

// Backend is the wallet contract the send screen depends on.
type Backend interface {
	GetBalance(ctx context.Context) (*Balance, error)
	SubmitTransaction(ctx context.Context, toAddress string, amount decimal.Decimal, memo *string) (string, error)
}

type Balance struct {
	Spendable   decimal.Decimal
	Unconfirmed decimal.Decimal
	LastUpdated time.Time
}

type BalanceCache struct {
	balance *Balance
	mu      sync.RWMutex
	ttl     time.Duration
}

type OperationStatus string

const (
	OperationQueued    OperationStatus = "queued"
	OperationExecuting OperationStatus = "executing"
	OperationSuccess   OperationStatus = "success"
	OperationFailed    OperationStatus = "failed"
	OperationCancelled OperationStatus = "cancelled"
)

type ErrorType string

const (
	ErrNetworkConnection   ErrorType = "network_connection"
	ErrInvalidAddress      ErrorType = "invalid_address"
	ErrInsufficientFunds   ErrorType = "insufficient_funds"
	ErrTransactionFailed   ErrorType = "transaction_failed"
	ErrTransactionRejected ErrorType = "transaction_rejected"
	ErrNodeUnavailable     ErrorType = "node_unavailable"
	ErrUnauthorized        ErrorType = "unauthorized"
	ErrRateLimited         ErrorType = "rate_limited"
	ErrTimeout             ErrorType = "timeout"
	ErrFundingAddress      ErrorType = "funding_address"
)

type WalletError struct {
	Type    ErrorType
	Message string
	Code    int
	Cause   error
}

func (e *WalletError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *WalletError) Unwrap() error {
	return e.Cause
}

type NetworkStatus struct {
	Connected    bool
	NodeURL      string
	Chain        string
	LastChecked  time.Time
	BlockHeight  uint64
	Headers      uint64
	SyncProgress float64
}

// Synced reports whether the node has validated every header it knows of.
func (s NetworkStatus) Synced() bool {
	return s.BlockHeight >= s.Headers
}
