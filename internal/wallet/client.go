package wallet

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/rpc"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"rhystmorgan/zterm/internal/logging"
)

type Client struct {
	rpcClient *rpc.Client
	config    Config
	cache     *BalanceCache
	mu        sync.RWMutex
	status    NetworkStatus
}

var _ Backend = (*Client)(nil)

const (
	DefaultMainnetURL       = "http://127.0.0.1:8232"
	DefaultTestnetURL       = "http://127.0.0.1:18232"
	DefaultTimeout          = 30 * time.Second
	DefaultRetryCount       = 3
	DefaultRetryDelay       = 2 * time.Second
	DefaultCacheTTL         = 30 * time.Second
	DefaultPollInterval     = 2 * time.Second
	DefaultOperationTimeout = 10 * time.Minute
	DefaultMinConf          = 1
)

// DefaultFee is the conventional transaction fee in ZEC.
var DefaultFee = decimal.New(10000, -8)

type totalBalance struct {
	Transparent decimal.Decimal `json:"transparent"`
	Private     decimal.Decimal `json:"private"`
	Total       decimal.Decimal `json:"total"`
}

type sendManyRecipient struct {
	Address string          `json:"address"`
	Amount  decimal.Decimal `json:"amount"`
	Memo    string          `json:"memo,omitempty"`
}

type operationStatus struct {
	ID     string          `json:"id"`
	Status OperationStatus `json:"status"`
	Result *struct {
		TxID string `json:"txid"`
	} `json:"result,omitempty"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

type blockchainInfo struct {
	Chain                string  `json:"chain"`
	Blocks               uint64  `json:"blocks"`
	Headers              uint64  `json:"headers"`
	VerificationProgress float64 `json:"verificationprogress"`
}

// addressSource is one entry of the listaddresses reply, grouped by where
// the keys came from.
type addressSource struct {
	Source      string `json:"source"`
	Transparent *struct {
		Addresses       []string `json:"addresses"`
		ChangeAddresses []string `json:"changeAddresses"`
	} `json:"transparent,omitempty"`
	Sprout *struct {
		Addresses []string `json:"addresses"`
	} `json:"sprout,omitempty"`
	Sapling []struct {
		Addresses []string `json:"addresses"`
	} `json:"sapling,omitempty"`
	Unified []struct {
		Addresses []struct {
			Address string `json:"address"`
		} `json:"addresses"`
	} `json:"unified,omitempty"`
}

func (s addressSource) addresses() []string {
	var out []string
	if s.Transparent != nil {
		out = append(out, s.Transparent.Addresses...)
		out = append(out, s.Transparent.ChangeAddresses...)
	}
	if s.Sprout != nil {
		out = append(out, s.Sprout.Addresses...)
	}
	for _, group := range s.Sapling {
		out = append(out, group.Addresses...)
	}
	for _, account := range s.Unified {
		for _, ua := range account.Addresses {
			out = append(out, ua.Address)
		}
	}
	return out
}

func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.NodeURL == "" {
		switch config.Network {
		case MainNet:
			config.NodeURL = DefaultMainnetURL
		case TestNet:
			config.NodeURL = DefaultTestnetURL
		default:
			return nil, fmt.Errorf("unknown network: %s", config.Network)
		}
	}

	if config.FromAddress == "" {
		return nil, fmt.Errorf("a funding address is required")
	}

	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.RetryCount == 0 {
		config.RetryCount = DefaultRetryCount
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = DefaultRetryDelay
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = DefaultCacheTTL
	}
	if config.PollInterval == 0 {
		config.PollInterval = DefaultPollInterval
	}
	if config.OperationTimeout == 0 {
		config.OperationTimeout = DefaultOperationTimeout
	}
	if config.MinConf == 0 {
		config.MinConf = DefaultMinConf
	}
	if config.Fee.IsZero() {
		config.Fee = DefaultFee
	}

	options := []rpc.ClientOption{
		rpc.WithHTTPClient(&http.Client{Timeout: config.Timeout}),
	}
	if config.RPCUser != "" || config.RPCPassword != "" {
		credentials := base64.StdEncoding.EncodeToString([]byte(config.RPCUser + ":" + config.RPCPassword))
		options = append(options, rpc.WithHTTPAuth(func(h http.Header) error {
			h.Set("Authorization", "Basic "+credentials)
			return nil
		}))
	}

	rpcClient, err := rpc.DialOptions(ctx, config.NodeURL, options...)
	if err != nil {
		return nil, NewNodeUnavailableError(config.NodeURL, err)
	}

	c := &Client{
		rpcClient: rpcClient,
		config:    config,
		cache:     NewBalanceCache(config.CacheTTL),
		status: NetworkStatus{
			NodeURL:     config.NodeURL,
			Connected:   false,
			LastChecked: time.Now(),
		},
	}

	if err := c.checkConnection(ctx); err != nil {
		rpcClient.Close()
		return nil, err
	}

	return c, nil
}

func (c *Client) checkConnection(ctx context.Context) error {
	var info blockchainInfo
	if err := c.rpcClient.CallContext(ctx, &info, "getblockchaininfo"); err != nil {
		c.updateStatus(false, blockchainInfo{})
		return ClassifyError(fmt.Errorf("failed to connect to Zcash node: %w", err))
	}

	c.updateStatus(true, info)
	logging.Debug("Connected to Zcash node",
		zap.String("node_url", c.config.NodeURL),
		zap.String("chain", info.Chain),
		zap.Uint64("block_height", info.Blocks),
		zap.Uint64("headers", info.Headers),
		zap.Float64("verification_progress", info.VerificationProgress),
	)
	return nil
}

func (c *Client) updateStatus(connected bool, info blockchainInfo) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.status.Connected = connected
	c.status.BlockHeight = info.Blocks
	c.status.Headers = info.Headers
	c.status.SyncProgress = info.VerificationProgress
	c.status.Chain = info.Chain
	c.status.LastChecked = time.Now()
}

// VerifyFundingAddress fails when the configured funding address is not one
// the node's wallet can spend from.
func (c *Client) VerifyFundingAddress(ctx context.Context) error {
	owned, err := c.OwnsAddress(ctx, c.config.FromAddress)
	if err != nil {
		return err
	}
	if !owned {
		return NewFundingAddressError(c.config.FromAddress)
	}
	return nil
}

// ListAddresses returns every address held by the node's wallet. Nodes
// without listaddresses fall back to z_listaddresses, which only reports
// shielded addresses.
func (c *Client) ListAddresses(ctx context.Context) ([]string, error) {
	var sources []addressSource
	err := c.rpcClient.CallContext(ctx, &sources, "listaddresses")
	if err == nil {
		var addresses []string
		for _, source := range sources {
			addresses = append(addresses, source.addresses()...)
		}
		return addresses, nil
	}

	walletErr := ClassifyError(err)
	if walletErr.Code != rpcMethodNotFound {
		return nil, walletErr
	}

	logging.Debug("listaddresses unsupported, using z_listaddresses")

	var addresses []string
	if err := c.rpcClient.CallContext(ctx, &addresses, "z_listaddresses"); err != nil {
		return nil, ClassifyError(err)
	}
	return addresses, nil
}

// OwnsAddress reports whether address is held by the node's wallet.
func (c *Client) OwnsAddress(ctx context.Context, address string) (bool, error) {
	addresses, err := c.ListAddresses(ctx)
	if err != nil {
		return false, err
	}
	for _, candidate := range addresses {
		if candidate == address {
			return true, nil
		}
	}
	return false, nil
}

func (c *Client) GetStatus() NetworkStatus {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.status
}

// Status refreshes and returns the node's chain, height and sync progress.
func (c *Client) Status(ctx context.Context) (NetworkStatus, error) {
	err := c.checkConnection(ctx)
	return c.GetStatus(), err
}

// Fee returns the fee attached to every submitted transaction.
func (c *Client) Fee() decimal.Decimal {
	return c.config.Fee
}

func (c *Client) GetBalance(ctx context.Context) (*Balance, error) {
	if cached, found := c.cache.Get(); found {
		return cached, nil
	}

	balance, err := c.fetchBalanceFromNetwork(ctx)
	if err != nil {
		return nil, err
	}

	c.cache.Set(balance)
	return balance, nil
}

func (c *Client) fetchBalanceFromNetwork(ctx context.Context) (*Balance, error) {
	var lastErr error

	for attempt := 0; attempt < c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ClassifyError(ctx.Err())
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
		}

		balance, err := c.doFetchBalance(ctx)
		if err == nil {
			return balance, nil
		}

		lastErr = err
		walletErr := ClassifyError(err)
		logging.Warn("Balance fetch failed",
			zap.Int("attempt", attempt+1),
			zap.String("error_type", string(walletErr.Type)),
			zap.Error(err),
		)
		if !walletErr.IsRetryable() {
			break
		}
	}

	return nil, ClassifyError(lastErr)
}

func (c *Client) doFetchBalance(ctx context.Context) (*Balance, error) {
	var confirmed, total totalBalance

	if err := c.rpcClient.CallContext(ctx, &confirmed, "z_gettotalbalance", c.config.MinConf); err != nil {
		return nil, err
	}
	if err := c.rpcClient.CallContext(ctx, &total, "z_gettotalbalance", 0); err != nil {
		return nil, err
	}

	unconfirmed := total.Total.Sub(confirmed.Total)
	if unconfirmed.IsNegative() {
		unconfirmed = decimal.Zero
	}

	return &Balance{
		Spendable:   confirmed.Total,
		Unconfirmed: unconfirmed,
		LastUpdated: time.Now(),
	}, nil
}

func (c *Client) RefreshBalance(ctx context.Context) (*Balance, error) {
	c.cache.Invalidate()
	return c.GetBalance(ctx)
}

func (c *Client) GetCachedBalance() (*Balance, bool) {
	return c.cache.Get()
}

func (c *Client) InvalidateCache() {
	c.cache.Invalidate()
}

// SubmitTransaction queues a z_sendmany from the configured funding address
// and waits for the node to report the resulting transaction id.
func (c *Client) SubmitTransaction(ctx context.Context, toAddress string, amount decimal.Decimal, memo *string) (string, error) {
	recipient := sendManyRecipient{
		Address: toAddress,
		Amount:  amount,
	}
	if memo != nil && *memo != "" {
		recipient.Memo = hex.EncodeToString([]byte(*memo))
	}

	var opID string
	err := c.rpcClient.CallContext(ctx, &opID, "z_sendmany",
		c.config.FromAddress,
		[]sendManyRecipient{recipient},
		c.config.MinConf,
		c.config.Fee,
	)
	if err != nil {
		return "", ClassifyError(err)
	}

	logging.Info("Transaction queued",
		zap.String("opid", opID),
		zap.String("to", toAddress),
		zap.String("amount", amount.String()),
		zap.Bool("memo", recipient.Memo != ""),
	)

	txID, err := c.WaitForOperation(ctx, opID)
	if err != nil {
		return "", err
	}

	c.InvalidateCache()
	return txID, nil
}

// WaitForOperation polls an async operation until it finishes.
func (c *Client) WaitForOperation(ctx context.Context, opID string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.OperationTimeout)
	defer cancel()

	ticker := time.NewTicker(c.config.PollInterval)
	defer ticker.Stop()

	for {
		status, err := c.getOperationStatus(ctx, opID)
		if err != nil {
			walletErr := ClassifyError(err)
			if !walletErr.IsRetryable() {
				return "", walletErr
			}
		} else {
			switch status.Status {
			case OperationSuccess:
				if status.Result == nil || status.Result.TxID == "" {
					return "", NewTransactionFailedError(opID, "node reported success without a txid")
				}
				return status.Result.TxID, nil
			case OperationFailed, OperationCancelled:
				if status.Error != nil {
					return "", classifyRPCError(status.Error.Code, status.Error.Message, nil)
				}
				return "", NewTransactionFailedError(opID, string(status.Status))
			}
		}

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return "", NewTimeoutError("waiting for operation "+opID, c.config.OperationTimeout)
			}
			return "", ClassifyError(ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) getOperationStatus(ctx context.Context, opID string) (*operationStatus, error) {
	var statuses []operationStatus
	if err := c.rpcClient.CallContext(ctx, &statuses, "z_getoperationstatus", []string{opID}); err != nil {
		return nil, err
	}

	for i := range statuses {
		if statuses[i].ID == opID {
			return &statuses[i], nil
		}
	}

	return nil, NewTransactionFailedError(opID, "operation not found")
}

func (c *Client) Close() error {
	c.rpcClient.Close()
	return nil
}
