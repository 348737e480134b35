package wallet

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testFromAddress        = "zs1qqqsyqcyq5rqwzqfpg9scrgwpugpzysnzs23v9ccrydpk8qarc0jqgfzyvjz2f389q5j5ctfvp5"
	testTransparentAddress = "t1HsdDMzmJfq4vc7T17XYjEkLMLvbgM1fCi"
	testUnifiedAddress     = "u1examplereceiverqqqsyqcyq5rqwzqfpg9scrgwpugpzysnzs23v9ccrydpk8qarc0jqgfzyvjz2f"
)

type rpcRequest struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type rpcFailure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// fakeNode is a minimal zcashd JSON-RPC endpoint.
type fakeNode struct {
	mu sync.Mutex

	user, password string

	blocks       uint64
	headers      uint64
	verification float64

	shieldedAddresses []string
	legacyAddressList bool

	calls          map[string]int
	sendManyParams []json.RawMessage

	confirmedTotal string
	total          string
	unavailableFor int

	sendManyError *rpcFailure
	opStatuses    []string
	opError       *rpcFailure
	txID          string
}

func newFakeNode() *fakeNode {
	return &fakeNode{
		calls:             make(map[string]int),
		blocks:            2750000,
		headers:           2750000,
		verification:      1,
		shieldedAddresses: []string{testFromAddress},
		confirmedTotal:    "10.00000000",
		total:             "10.50000000",
		opStatuses:        []string{"executing", "success"},
		txID:              "5e2f1c0a9b8d7e6f5a4b3c2d1e0f9a8b7c6d5e4f3a2b1c0d9e8f7a6b5c4d3e2f",
	}
}

func (n *fakeNode) callCount(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *fakeNode) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if n.user != "" {
		user, password, ok := r.BasicAuth()
		if !ok || user != n.user || password != n.password {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
	}

	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[req.Method]++

	switch req.Method {
	case "getblockchaininfo":
		n.reply(w, req.ID, map[string]interface{}{
			"chain":                "main",
			"blocks":               n.blocks,
			"headers":              n.headers,
			"verificationprogress": n.verification,
		})

	case "listaddresses":
		if n.legacyAddressList {
			n.fail(w, req.ID, rpcFailure{Code: -32601, Message: "Method not found"})
			return
		}
		n.reply(w, req.ID, []interface{}{
			map[string]interface{}{
				"source": "mnemonic_seed",
				"transparent": map[string]interface{}{
					"addresses":       []string{testTransparentAddress},
					"changeAddresses": []string{},
				},
				"sapling": []interface{}{
					map[string]interface{}{"zip32KeyPath": "m/32'/133'/0'", "addresses": n.shieldedAddresses},
				},
				"unified": []interface{}{
					map[string]interface{}{
						"account":   0,
						"addresses": []interface{}{map[string]interface{}{"address": testUnifiedAddress}},
					},
				},
			},
		})

	case "z_listaddresses":
		n.reply(w, req.ID, n.shieldedAddresses)

	case "z_gettotalbalance":
		if n.unavailableFor > 0 {
			n.unavailableFor--
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		var minconf int
		_ = json.Unmarshal(req.Params[0], &minconf)
		total := n.total
		if minconf > 0 {
			total = n.confirmedTotal
		}
		n.reply(w, req.ID, map[string]string{"transparent": "0.00", "private": total, "total": total})

	case "z_sendmany":
		n.sendManyParams = req.Params
		if n.sendManyError != nil {
			n.fail(w, req.ID, *n.sendManyError)
			return
		}
		n.reply(w, req.ID, "opid-1234")

	case "z_getoperationstatus":
		status := n.opStatuses[0]
		if len(n.opStatuses) > 1 {
			n.opStatuses = n.opStatuses[1:]
		}
		op := map[string]interface{}{"id": "opid-1234", "status": status}
		if status == "success" {
			op["result"] = map[string]string{"txid": n.txID}
		}
		if status == "failed" && n.opError != nil {
			op["error"] = n.opError
		}
		n.reply(w, req.ID, []interface{}{op})

	default:
		n.fail(w, req.ID, rpcFailure{Code: -32601, Message: "Method not found"})
	}
}

func (n *fakeNode) reply(w http.ResponseWriter, id json.RawMessage, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      id,
		"result":  result,
	})
}

func (n *fakeNode) fail(w http.ResponseWriter, id json.RawMessage, failure rpcFailure) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"id":     id,
		"result": nil,
		"error":  failure,
	})
}

func newTestClient(t *testing.T, node *fakeNode) *Client {
	t.Helper()

	server := httptest.NewServer(node)
	t.Cleanup(server.Close)

	client, err := NewClient(context.Background(), Config{
		Network:      TestNet,
		NodeURL:      server.URL,
		RPCUser:      node.user,
		RPCPassword:  node.password,
		FromAddress:  testFromAddress,
		Timeout:      5 * time.Second,
		RetryCount:   3,
		RetryDelay:   10 * time.Millisecond,
		PollInterval: 10 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestNewClientRequiresFromAddress(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Network: MainNet})
	assert.Error(t, err)
}

func TestNewClientUnknownNetwork(t *testing.T) {
	_, err := NewClient(context.Background(), Config{Network: "regtest", FromAddress: testFromAddress})
	assert.Error(t, err)
}

func TestNewClientAppliesDefaults(t *testing.T) {
	client := newTestClient(t, newFakeNode())

	assert.True(t, client.Fee().Equal(DefaultFee))
	assert.Equal(t, DefaultMinConf, client.config.MinConf)
	assert.Equal(t, DefaultOperationTimeout, client.config.OperationTimeout)

	status := client.GetStatus()
	assert.True(t, status.Connected)
	assert.Equal(t, "main", status.Chain)
	assert.Equal(t, uint64(2750000), status.BlockHeight)
}

func TestNewClientConnectionFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewClient(context.Background(), Config{
		Network:     MainNet,
		NodeURL:     server.URL,
		FromAddress: testFromAddress,
	})

	var walletErr *WalletError
	require.True(t, errors.As(err, &walletErr))
	assert.Equal(t, ErrNodeUnavailable, walletErr.Type)
}

func TestNewClientBasicAuth(t *testing.T) {
	node := newFakeNode()
	node.user = "zcash"
	node.password = "secret"
	client := newTestClient(t, node)
	assert.True(t, client.GetStatus().Connected)

	server := httptest.NewServer(node)
	defer server.Close()

	_, err := NewClient(context.Background(), Config{
		Network:     MainNet,
		NodeURL:     server.URL,
		RPCUser:     "zcash",
		RPCPassword: "wrong",
		FromAddress: testFromAddress,
	})
	var walletErr *WalletError
	require.True(t, errors.As(err, &walletErr))
	assert.Equal(t, ErrUnauthorized, walletErr.Type)
}

func TestVerifyFundingAddress(t *testing.T) {
	node := newFakeNode()
	client := newTestClient(t, node)
	require.NoError(t, client.VerifyFundingAddress(context.Background()))

	node.mu.Lock()
	node.shieldedAddresses = []string{"zs1someoneelse"}
	node.mu.Unlock()

	err := client.VerifyFundingAddress(context.Background())

	var walletErr *WalletError
	require.True(t, errors.As(err, &walletErr))
	assert.Equal(t, ErrFundingAddress, walletErr.Type)
	assert.Contains(t, walletErr.Message, testFromAddress)
}

func TestListAddresses(t *testing.T) {
	node := newFakeNode()
	client := newTestClient(t, node)

	addresses, err := client.ListAddresses(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{testTransparentAddress, testFromAddress, testUnifiedAddress}, addresses)

	owned, err := client.OwnsAddress(context.Background(), testTransparentAddress)
	require.NoError(t, err)
	assert.True(t, owned)

	owned, err = client.OwnsAddress(context.Background(), "t1NotOursNotOursNotOursNotOursNotOu")
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestListAddressesFallsBackToShieldedList(t *testing.T) {
	node := newFakeNode()
	node.legacyAddressList = true
	client := newTestClient(t, node)

	addresses, err := client.ListAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{testFromAddress}, addresses)
	assert.Equal(t, 1, node.callCount("listaddresses"))
	assert.Equal(t, 1, node.callCount("z_listaddresses"))
}

func TestStatusReportsSyncProgress(t *testing.T) {
	node := newFakeNode()
	client := newTestClient(t, node)
	assert.True(t, client.GetStatus().Synced())

	node.mu.Lock()
	node.headers = 2750400
	node.verification = 0.9731
	node.mu.Unlock()

	status, err := client.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Synced())
	assert.Equal(t, uint64(2750000), status.BlockHeight)
	assert.Equal(t, uint64(2750400), status.Headers)
	assert.InDelta(t, 0.9731, status.SyncProgress, 1e-9)
}

func TestGetBalance(t *testing.T) {
	node := newFakeNode()
	client := newTestClient(t, node)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Spendable.Equal(decimal.RequireFromString("10")))
	assert.True(t, balance.Unconfirmed.Equal(decimal.RequireFromString("0.5")))
	assert.Equal(t, 2, node.callCount("z_gettotalbalance"))

	_, err = client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, node.callCount("z_gettotalbalance"), "second read should be served from cache")

	_, err = client.RefreshBalance(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, node.callCount("z_gettotalbalance"))
}

func TestGetBalanceUnconfirmedNeverNegative(t *testing.T) {
	node := newFakeNode()
	node.total = "9"
	client := newTestClient(t, node)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Unconfirmed.IsZero())
}

func TestGetBalanceRetriesUnavailableNode(t *testing.T) {
	node := newFakeNode()
	node.unavailableFor = 1
	client := newTestClient(t, node)

	balance, err := client.GetBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, balance.Spendable.Equal(decimal.RequireFromString("10")))
}

func TestSubmitTransaction(t *testing.T) {
	node := newFakeNode()
	client := newTestClient(t, node)

	_, err := client.GetBalance(context.Background())
	require.NoError(t, err)

	memo := "thanks for lunch"
	txID, err := client.SubmitTransaction(context.Background(), testFromAddress, decimal.RequireFromString("1.5"), &memo)
	require.NoError(t, err)
	assert.Equal(t, node.txID, txID)
	assert.GreaterOrEqual(t, node.callCount("z_getoperationstatus"), 2)

	_, cached := client.GetCachedBalance()
	assert.False(t, cached, "a successful send should invalidate the balance cache")

	require.Len(t, node.sendManyParams, 4)
	var from string
	require.NoError(t, json.Unmarshal(node.sendManyParams[0], &from))
	assert.Equal(t, testFromAddress, from)

	var recipients []struct {
		Address string          `json:"address"`
		Amount  decimal.Decimal `json:"amount"`
		Memo    string          `json:"memo"`
	}
	require.NoError(t, json.Unmarshal(node.sendManyParams[1], &recipients))
	require.Len(t, recipients, 1)
	assert.True(t, recipients[0].Amount.Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, hex.EncodeToString([]byte(memo)), recipients[0].Memo)
}

func TestSubmitTransactionWithoutMemo(t *testing.T) {
	node := newFakeNode()
	client := newTestClient(t, node)

	_, err := client.SubmitTransaction(context.Background(), testTransparentAddress, decimal.RequireFromString("0.1"), nil)
	require.NoError(t, err)

	var recipients []map[string]interface{}
	require.NoError(t, json.Unmarshal(node.sendManyParams[1], &recipients))
	_, hasMemo := recipients[0]["memo"]
	assert.False(t, hasMemo)
}

func TestSubmitTransactionRejected(t *testing.T) {
	node := newFakeNode()
	node.sendManyError = &rpcFailure{Code: -5, Message: "Invalid parameter, unknown address format"}
	client := newTestClient(t, node)

	_, err := client.SubmitTransaction(context.Background(), "zsbogus", decimal.RequireFromString("1"), nil)

	var walletErr *WalletError
	require.True(t, errors.As(err, &walletErr))
	assert.Equal(t, ErrInvalidAddress, walletErr.Type)
	assert.Equal(t, "Invalid parameter, unknown address format", walletErr.Message)
	assert.Equal(t, 0, node.callCount("z_getoperationstatus"))
}

func TestSubmitTransactionOperationFailed(t *testing.T) {
	node := newFakeNode()
	node.opStatuses = []string{"queued", "failed"}
	node.opError = &rpcFailure{Code: -6, Message: "Insufficient funds: have 0.5, need 1.0001"}
	client := newTestClient(t, node)

	_, err := client.SubmitTransaction(context.Background(), testFromAddress, decimal.RequireFromString("1"), nil)

	var walletErr *WalletError
	require.True(t, errors.As(err, &walletErr))
	assert.Equal(t, ErrInsufficientFunds, walletErr.Type)
	assert.Contains(t, walletErr.Message, "have 0.5")
}

func TestSubmitTransactionCancelledKeepsReason(t *testing.T) {
	node := newFakeNode()
	node.opStatuses = []string{"executing", "cancelled"}
	client := newTestClient(t, node)

	_, err := client.SubmitTransaction(context.Background(), testFromAddress, decimal.RequireFromString("1"), nil)

	var walletErr *WalletError
	require.True(t, errors.As(err, &walletErr))
	assert.Equal(t, ErrTransactionFailed, walletErr.Type)
	assert.Equal(t, "Transaction failed: operation opid-1234 failed: cancelled", walletErr.UserMessage())
}

func TestSubmitTransactionRespectsContext(t *testing.T) {
	node := newFakeNode()
	node.opStatuses = []string{"executing"}
	client := newTestClient(t, node)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := client.SubmitTransaction(ctx, testFromAddress, decimal.RequireFromString("1"), nil)
	require.Error(t, err)
}
