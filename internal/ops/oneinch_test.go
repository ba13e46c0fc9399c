package ops

import (
	"context"
	"math/big"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const quoteJSON = `{
	"fromToken": {"address": "0x0000000000000000000000000000000000000001", "decimals": 18, "symbol": "TKN"},
	"toToken": {"address": "0x0000000000000000000000000000000000000002", "decimals": 6, "symbol": "USDC"},
	"fromTokenAmount": "2000000000000000000",
	"toTokenAmount": "3000000",
	"tx": {
		"to": "0x1111111254fb6c44bAC0beD2854e76F90643097d",
		"data": "0xabcdef",
		"value": "0",
		"gas": 215000,
		"gasPrice": "100000000"
	}
}`

func TestFetchSwapQuote(t *testing.T) {
	var gotPath string
	var gotQuery map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query()
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(quoteJSON))
	}))
	defer server.Close()

	quote, err := fetchSwapQuote(context.Background(), server.URL, 42161,
		"0x0000000000000000000000000000000000000001",
		"0x0000000000000000000000000000000000000002",
		"0x00000000000000000000000000000000000000aa",
		big.NewInt(1_000_000), 1.5)
	require.NoError(t, err)

	assert.Equal(t, "/42161/swap", gotPath)
	assert.Equal(t, "1000000", gotQuery["amount"][0])
	assert.Equal(t, "1.5", gotQuery["slippage"][0])
	assert.Equal(t, "3000000", quote.ToTokenAmount)
	assert.Equal(t, uint64(215000), quote.Tx.Gas)
}

func TestFetchSwapQuote_ErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"insufficient liquidity"}`, http.StatusBadRequest)
	}))
	defer server.Close()

	_, err := fetchSwapQuote(context.Background(), server.URL, 42161, "a", "b", "c", big.NewInt(1), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestSwapQuote_Ratio(t *testing.T) {
	q := &SwapQuote{
		FromToken:       swapToken{Decimals: 18},
		ToToken:         swapToken{Decimals: 6},
		FromTokenAmount: "2000000000000000000", // 2.0
		ToTokenAmount:   "3000000",             // 3.0
	}
	ratio, err := q.Ratio()
	require.NoError(t, err)
	assert.InDelta(t, 1.5, ratio, 1e-9)

	q.FromTokenAmount = "0"
	_, err = q.Ratio()
	assert.Error(t, err)
}

func TestSwapQuote_TxFields(t *testing.T) {
	q := &SwapQuote{Tx: swapTx{
		To:    "0x1111111254fb6c44bAC0beD2854e76F90643097d",
		Data:  "0xabcdef",
		Value: "12345",
		Gas:   100000,
	}}
	to, data, value, gas, err := q.TxFields()
	require.NoError(t, err)
	assert.Equal(t, common.HexToAddress("0x1111111254fb6c44bAC0beD2854e76F90643097d"), to)
	assert.Equal(t, []byte{0xab, 0xcd, 0xef}, data)
	assert.Equal(t, "12345", value.String())
	assert.Equal(t, uint64(100000), gas)

	q.Tx.To = "not-an-address"
	_, _, _, _, err = q.TxFields()
	assert.Error(t, err)
}
