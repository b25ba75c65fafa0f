// Package ethereum provides a minimal JSON-RPC client for the subset of
// node methods the agreement pipeline needs: fetching a transaction, its
// receipt, and issuing read-only eth_call requests.
package ethereum

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type EthereumClientConfig struct {
	BaseUrl string
}

func DefaultEthereumClientConfig() *EthereumClientConfig {
	return &EthereumClientConfig{}
}

type Client struct {
	config     *EthereumClientConfig
	httpClient *http.Client
	Logger     *zap.Logger

	requestId atomic.Uint64
}

func NewClient(cfg *EthereumClientConfig, l *zap.Logger) *Client {
	return &Client{
		config:     cfg,
		httpClient: DefaultHttpClient(),
		Logger:     l,
	}
}

func DefaultHttpClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

// SetHttpClient overrides the underlying HTTP client, used by tests to
// install a mock transport.
func (c *Client) SetHttpClient(client *http.Client) {
	c.httpClient = client
}

type RPCRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
	ID      uint64        `json:"id"`
}

type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type RPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      *uint64         `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *RPCError       `json:"error"`
}

// EthereumTransaction is the eth_getTransactionByHash result. Quantity
// fields are kept as 0x-prefixed hex strings, exactly as the node returns
// them.
type EthereumTransaction struct {
	Hash        string `json:"hash"`
	From        string `json:"from"`
	To          string `json:"to"`
	Input       string `json:"input"`
	Value       string `json:"value"`
	BlockNumber string `json:"blockNumber"`
}

type EthereumEventLog struct {
	Address         string   `json:"address"`
	Topics          []string `json:"topics"`
	Data            string   `json:"data"`
	LogIndex        string   `json:"logIndex"`
	TransactionHash string   `json:"transactionHash"`
}

type EthereumTransactionReceipt struct {
	TransactionHash string              `json:"transactionHash"`
	From            string              `json:"from"`
	To              string              `json:"to"`
	Status          string              `json:"status"`
	BlockNumber     string              `json:"blockNumber"`
	Logs            []*EthereumEventLog `json:"logs"`
}

// IsSuccessful reports whether the receipt has a success status. A missing
// status (pre-Byzantium nodes) is treated as a failure.
func (r *EthereumTransactionReceipt) IsSuccessful() bool {
	return r.Status == "0x1"
}

// GetTransactionByHash fetches a transaction. A nil transaction with a nil
// error means the node does not know the hash.
func (c *Client) GetTransactionByHash(ctx context.Context, txHash string) (*EthereumTransaction, error) {
	result, err := c.call(ctx, "eth_getTransactionByHash", []interface{}{txHash})
	if err != nil {
		return nil, err
	}
	if isNullResult(result) {
		return nil, nil
	}
	tx := &EthereumTransaction{}
	if err := json.Unmarshal(result, tx); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal transaction")
	}
	return tx, nil
}

// GetTransactionReceipt fetches a transaction receipt. A nil receipt with a
// nil error means the transaction is unknown or still pending.
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash string) (*EthereumTransactionReceipt, error) {
	result, err := c.call(ctx, "eth_getTransactionReceipt", []interface{}{txHash})
	if err != nil {
		return nil, err
	}
	if isNullResult(result) {
		return nil, nil
	}
	receipt := &EthereumTransactionReceipt{}
	if err := json.Unmarshal(result, receipt); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal transaction receipt")
	}
	return receipt, nil
}

// Call issues a read-only eth_call against the latest block and returns the
// raw hex-encoded return data.
func (c *Client) Call(ctx context.Context, to string, data string) (string, error) {
	params := []interface{}{
		map[string]string{
			"to":   to,
			"data": data,
		},
		"latest",
	}
	result, err := c.call(ctx, "eth_call", params)
	if err != nil {
		return "", err
	}
	var returnData string
	if err := json.Unmarshal(result, &returnData); err != nil {
		return "", errors.Wrap(err, "failed to unmarshal eth_call result")
	}
	return returnData, nil
}

func (c *Client) call(ctx context.Context, method string, params []interface{}) (json.RawMessage, error) {
	request := &RPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      c.requestId.Add(1),
	}

	requestBody, err := json.Marshal(request)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal rpc request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseUrl, bytes.NewReader(requestBody))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create rpc request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.Logger.Sugar().Errorw("rpc request failed",
			zap.String("method", method),
			zap.Error(err),
		)
		return nil, errors.Wrap(err, "rpc request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read rpc response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("rpc node returned status %d", resp.StatusCode)
	}

	response := &RPCResponse{}
	if err := json.Unmarshal(body, response); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal rpc response")
	}

	if response.Error != nil {
		c.Logger.Sugar().Errorw("rpc node returned an error",
			zap.String("method", method),
			zap.Int("code", response.Error.Code),
			zap.String("message", response.Error.Message),
		)
		return nil, fmt.Errorf("rpc error %d: %s", response.Error.Code, response.Error.Message)
	}

	c.Logger.Sugar().Debugw("rpc call completed", zap.String("method", method))
	return response.Result, nil
}

func isNullResult(result json.RawMessage) bool {
	return len(result) == 0 || string(result) == "null"
}
