package dex

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// ClientConfig carries the explorer endpoint and on-chain parameters
// spec.md §6 requires: SNOWTRACE_API_KEY, explorer base URL, the
// USDT-on-chain contract address, and TJ_WALLET_ADDRESS.
type ClientConfig struct {
	BaseURL         string
	APIKey          string
	ContractAddress string
	WalletAddress   string
}

// Client fetches token-transfer and internal-transaction data from a
// block-explorer REST API (Snowtrace-shaped), per spec.md §4.2.
type Client struct {
	cfg  ClientConfig
	http *http.Client
}

// NewClient builds a DEX venue client backed by a single shared HTTP
// client (the original's SessionFactory, translated).
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: 10 * time.Second},
	}
}

type explorerEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

type tokenTxRow struct {
	Hash              string `json:"hash"`
	BlockNumber       string `json:"blockNumber"`
	TimeStamp         string `json:"timeStamp"`
	From              string `json:"from"`
	To                string `json:"to"`
	Value             string `json:"value"`
	TokenSymbol       string `json:"tokenSymbol"`
	TokenDecimal      string `json:"tokenDecimal"`
	Gas               string `json:"gas"`
	GasPrice          string `json:"gasPrice"`
	GasUsed           string `json:"gasUsed"`
	CumulativeGasUsed string `json:"cumulativeGasUsed"`
}

type internalTxRow struct {
	To    string `json:"to"`
	Value string `json:"value"`
}

// FetchTokenTransfers implements spec.md §4.2's
// "FetchTokenTransfers(contract, wallet, start_block, end_block, sort=asc)".
func (c *Client) FetchTokenTransfers(ctx context.Context, startBlock, endBlock int64) ([]TokenTransfer, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "tokentx")
	q.Set("contractaddress", c.cfg.ContractAddress)
	q.Set("address", c.cfg.WalletAddress)
	q.Set("startblock", strconv.FormatInt(startBlock, 10))
	q.Set("endblock", strconv.FormatInt(endBlock, 10))
	q.Set("sort", "asc")
	q.Set("apikey", c.cfg.APIKey)

	var rows []tokenTxRow
	if err := c.get(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("dex: fetch token transfers: %w", err)
	}

	out := make([]TokenTransfer, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toTokenTransfer())
	}
	return out, nil
}

// FetchInternalTxs implements spec.md §4.2's
// "FetchInternalTxs(tx_hash) -> list of internal transaction records".
func (c *Client) FetchInternalTxs(ctx context.Context, txHash string) ([]InternalTx, error) {
	q := url.Values{}
	q.Set("module", "account")
	q.Set("action", "txlistinternal")
	q.Set("txhash", txHash)
	q.Set("apikey", c.cfg.APIKey)

	var rows []internalTxRow
	if err := c.get(ctx, q, &rows); err != nil {
		return nil, fmt.Errorf("dex: fetch internal txs: %w", err)
	}

	out := make([]InternalTx, 0, len(rows))
	for _, row := range rows {
		v, ok := new(big.Int).SetString(row.Value, 10)
		if !ok {
			v = big.NewInt(0)
		}
		out = append(out, InternalTx{To: row.To, Value: v})
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, q url.Values, dest interface{}) error {
	reqURL := fmt.Sprintf("%s?%s", c.cfg.BaseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return fmt.Errorf("transient error, status %d", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var env explorerEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode envelope: %w", err)
	}
	if len(env.Result) == 0 {
		return nil
	}
	return json.Unmarshal(env.Result, dest)
}

func (row tokenTxRow) toTokenTransfer() TokenTransfer {
	block, _ := strconv.ParseInt(row.BlockNumber, 10, 64)
	ts, _ := strconv.ParseInt(row.TimeStamp, 10, 64)
	value, ok := new(big.Int).SetString(row.Value, 10)
	if !ok {
		value = big.NewInt(0)
	}
	decimals, _ := strconv.ParseInt(row.TokenDecimal, 10, 32)
	gas, _ := strconv.ParseInt(row.Gas, 10, 64)
	gasPrice, _ := strconv.ParseInt(row.GasPrice, 10, 64)
	gasUsed, _ := strconv.ParseInt(row.GasUsed, 10, 64)
	cumGasUsed, _ := strconv.ParseInt(row.CumulativeGasUsed, 10, 64)

	return TokenTransfer{
		Hash:              row.Hash,
		BlockNumber:       block,
		TimestampUnix:     ts,
		From:              row.From,
		To:                row.To,
		Value:             value,
		TokenSymbol:       row.TokenSymbol,
		TokenDecimal:      int32(decimals),
		Gas:               gas,
		GasPrice:          gasPrice,
		GasUsed:           gasUsed,
		CumulativeGasUsed: cumGasUsed,
	}
}
