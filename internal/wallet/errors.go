package wallet

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
)

// zcashd JSON-RPC error codes
const (
	rpcInvalidAddressOrKey     = -5
	rpcWalletInsufficientFunds = -6
	rpcInWarmup                = -28
	rpcMethodNotFound          = -32601
)

func NewWalletError(errType ErrorType, message string, cause error) *WalletError {
	return &WalletError{
		Type:    errType,
		Message: message,
		Cause:   cause,
	}
}

func NewNetworkError(message string, cause error) *WalletError {
	return NewWalletError(ErrNetworkConnection, message, cause)
}

func NewInvalidAddressError(address string) *WalletError {
	return NewWalletError(ErrInvalidAddress, fmt.Sprintf("invalid address: %s", address), nil)
}

func NewInsufficientFundsError(required, available decimal.Decimal) *WalletError {
	return NewWalletError(ErrInsufficientFunds,
		fmt.Sprintf("insufficient ZEC: required %s, available %s", required.String(), available.String()), nil)
}

func NewTimeoutError(operation string, timeout time.Duration) *WalletError {
	return NewWalletError(ErrTimeout,
		fmt.Sprintf("operation %s timed out after %v", operation, timeout), nil)
}

func NewNodeUnavailableError(nodeURL string, cause error) *WalletError {
	return NewWalletError(ErrNodeUnavailable,
		fmt.Sprintf("node unavailable: %s", nodeURL), cause)
}

func NewRateLimitedError(retryAfter time.Duration) *WalletError {
	return NewWalletError(ErrRateLimited,
		fmt.Sprintf("rate limited, retry after %v", retryAfter), nil)
}

func NewTransactionFailedError(opID string, reason string) *WalletError {
	return NewWalletError(ErrTransactionFailed,
		fmt.Sprintf("operation %s failed: %s", opID, reason), nil)
}

func NewFundingAddressError(address string) *WalletError {
	return NewWalletError(ErrFundingAddress,
		fmt.Sprintf("funding address %s is not held by the node's wallet", address), nil)
}

// rpcErrorBody is the error envelope zcashd returns alongside HTTP 500.
type rpcErrorBody struct {
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func ClassifyError(err error) *WalletError {
	if err == nil {
		return nil
	}

	var walletErr *WalletError
	if errors.As(err, &walletErr) {
		return walletErr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return NewWalletError(ErrTimeout, "wallet request timed out", err)
	}
	if errors.Is(err, context.Canceled) {
		return NewNetworkError("request cancelled", err)
	}

	var httpErr rpc.HTTPError
	if errors.As(err, &httpErr) {
		return classifyHTTPError(httpErr)
	}

	var rpcErr rpc.Error
	if errors.As(err, &rpcErr) {
		return classifyRPCError(rpcErr.ErrorCode(), rpcErr.Error(), err)
	}

	errStr := strings.ToLower(err.Error())

	switch {
	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded"):
		return NewTimeoutError("network request", 30*time.Second)
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host"):
		return NewNetworkError("connection failed", err)
	case strings.Contains(errStr, "invalid address") || strings.Contains(errStr, "bad address"):
		return NewWalletError(ErrInvalidAddress, "invalid address format", err)
	case strings.Contains(errStr, "insufficient") || strings.Contains(errStr, "not enough"):
		return NewWalletError(ErrInsufficientFunds, "insufficient funds", err)
	case strings.Contains(errStr, "rate limit") || strings.Contains(errStr, "too many requests"):
		return NewRateLimitedError(time.Minute)
	default:
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return NewTimeoutError("network operation", 30*time.Second)
		}
		return NewNetworkError("unknown network error", err)
	}
}

func classifyHTTPError(httpErr rpc.HTTPError) *WalletError {
	switch httpErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return NewWalletError(ErrUnauthorized, "node rejected RPC credentials", httpErr)
	case http.StatusTooManyRequests:
		return NewRateLimitedError(time.Minute)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return NewNodeUnavailableError(httpErr.Status, httpErr)
	}

	var body rpcErrorBody
	if err := json.Unmarshal(httpErr.Body, &body); err == nil && body.Error != nil {
		return classifyRPCError(body.Error.Code, body.Error.Message, httpErr)
	}

	return NewNetworkError(fmt.Sprintf("unexpected HTTP status %d", httpErr.StatusCode), httpErr)
}

func classifyRPCError(code int, message string, cause error) *WalletError {
	var errType ErrorType
	switch code {
	case rpcInvalidAddressOrKey:
		errType = ErrInvalidAddress
	case rpcWalletInsufficientFunds:
		errType = ErrInsufficientFunds
	case rpcInWarmup:
		errType = ErrNodeUnavailable
	default:
		errType = ErrTransactionRejected
	}

	walletErr := NewWalletError(errType, message, nil)
	walletErr.Code = code
	if cause != nil && cause.Error() != message {
		walletErr.Cause = cause
	}
	return walletErr
}

func (e *WalletError) IsRetryable() bool {
	switch e.Type {
	case ErrNetworkConnection, ErrNodeUnavailable, ErrTimeout, ErrRateLimited:
		return true
	default:
		return false
	}
}

func (e *WalletError) UserMessage() string {
	switch e.Type {
	case ErrNetworkConnection:
		return "Network connection failed. Please check your internet connection."
	case ErrInvalidAddress:
		return "The wallet rejected the recipient address."
	case ErrInsufficientFunds:
		return "Insufficient funds for this transaction."
	case ErrTransactionFailed:
		if e.Message != "" {
			return "Transaction failed: " + e.Message
		}
		return "Transaction failed to process."
	case ErrTransactionRejected:
		if e.Message != "" {
			return "Transaction rejected: " + e.Message
		}
		return "Transaction rejected by the node."
	case ErrNodeUnavailable:
		return "The Zcash node is temporarily unavailable."
	case ErrUnauthorized:
		return "The Zcash node rejected the RPC credentials."
	case ErrRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case ErrTimeout:
		return "Request timed out. Please try again."
	case ErrFundingAddress:
		return "The funding address is not in the node's wallet."
	default:
		return "An unexpected error occurred."
	}
}
