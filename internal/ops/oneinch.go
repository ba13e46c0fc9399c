package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// swapHTTPClient bounds the aggregator round trip the same way RPC calls
// are bounded.
var swapHTTPClient = &http.Client{Timeout: 5 * time.Second}

type swapToken struct {
	Address  string `json:"address"`
	Decimals int    `json:"decimals"`
	Symbol   string `json:"symbol"`
}

type swapTx struct {
	To       string `json:"to"`
	Data     string `json:"data"`
	Value    string `json:"value"`
	Gas      uint64 `json:"gas"`
	GasPrice string `json:"gasPrice"`
}

// SwapQuote is the aggregator's executable swap: amounts for the price
// check plus the raw transaction to submit.
type SwapQuote struct {
	FromToken       swapToken `json:"fromToken"`
	ToToken         swapToken `json:"toToken"`
	FromTokenAmount string    `json:"fromTokenAmount"`
	ToTokenAmount   string    `json:"toTokenAmount"`
	Tx              swapTx    `json:"tx"`
}

// Ratio returns toAmount/fromAmount normalized by token decimals, the
// effective price the aggregator is offering.
func (q *SwapQuote) Ratio() (float64, error) {
	from, ok := new(big.Float).SetString(q.FromTokenAmount)
	if !ok || from.Sign() == 0 {
		return 0, fmt.Errorf("swap quote: bad fromTokenAmount %q", q.FromTokenAmount)
	}
	to, ok := new(big.Float).SetString(q.ToTokenAmount)
	if !ok {
		return 0, fmt.Errorf("swap quote: bad toTokenAmount %q", q.ToTokenAmount)
	}
	scale := func(f *big.Float, decimals int) *big.Float {
		d := new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil))
		return new(big.Float).Quo(f, d)
	}
	ratio, _ := new(big.Float).Quo(
		scale(to, q.ToToken.Decimals),
		scale(from, q.FromToken.Decimals),
	).Float64()
	return ratio, nil
}

// TxFields decodes the quote's transaction into submit-ready values.
func (q *SwapQuote) TxFields() (to common.Address, data []byte, value *big.Int, gas uint64, err error) {
	if !common.IsHexAddress(q.Tx.To) {
		return to, nil, nil, 0, fmt.Errorf("swap quote: bad tx.to %q", q.Tx.To)
	}
	to = common.HexToAddress(q.Tx.To)
	data = common.FromHex(q.Tx.Data)
	value, ok := new(big.Int).SetString(q.Tx.Value, 10)
	if !ok {
		return to, nil, nil, 0, fmt.Errorf("swap quote: bad tx.value %q", q.Tx.Value)
	}
	return to, data, value, q.Tx.Gas, nil
}

// fetchSwapQuote asks the aggregator for an executable swap of amount from
// token to toToken on behalf of from.
func fetchSwapQuote(ctx context.Context, base string, chainID int64, token, toToken, from string, amount *big.Int, slippage float64) (*SwapQuote, error) {
	params := url.Values{}
	params.Set("fromTokenAddress", token)
	params.Set("toTokenAddress", toToken)
	params.Set("amount", amount.String())
	params.Set("fromAddress", from)
	params.Set("slippage", strconv.FormatFloat(slippage, 'f', -1, 64))

	endpoint := fmt.Sprintf("%s/%d/swap?%s", base, chainID, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := swapHTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("swap api: unexpected status %s", resp.Status)
	}
	var quote SwapQuote
	if err := json.NewDecoder(resp.Body).Decode(&quote); err != nil {
		return nil, fmt.Errorf("swap api: decode response: %w", err)
	}
	return &quote, nil
}
