package chain

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

const (
	erc20ABIJSON = `[
		{"constant":true,"inputs":[{"name":"owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":true,"inputs":[{"name":"owner","type":"address"},{"name":"spender","type":"address"}],"name":"allowance","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":false,"inputs":[{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transfer","outputs":[{"name":"","type":"bool"}],"type":"function"},
		{"constant":false,"inputs":[{"name":"spender","type":"address"},{"name":"value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"type":"function"}
	]`
	distributorABIJSON = `[
		{"constant":true,"inputs":[{"name":"account","type":"address"}],"name":"claimableTokens","outputs":[{"name":"","type":"uint256"}],"type":"function"},
		{"constant":false,"inputs":[],"name":"claim","outputs":[],"type":"function"}
	]`
	multicall2ABIJSON = `[
		{"inputs":[],"name":"getL1BlockNumber","outputs":[{"internalType":"uint256","name":"l1BlockNumber","type":"uint256"}],"stateMutability":"view","type":"function"}
	]`
)

// Parsed ABIs for the contracts the tools talk to. The token distributor is
// any contract exposing claimableTokens/claim; Multicall2 is used only for
// its L1 block number view.
var (
	ERC20ABI       abi.ABI
	DistributorABI abi.ABI
	Multicall2ABI  abi.ABI
)

func init() {
	ERC20ABI = mustABI(erc20ABIJSON)
	DistributorABI = mustABI(distributorABIJSON)
	Multicall2ABI = mustABI(multicall2ABIJSON)
}

func mustABI(src string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(src))
	if err != nil {
		panic(err)
	}
	return parsed
}

// UnpackBigInt decodes a single uint256 return value.
func UnpackBigInt(a abi.ABI, method string, data []byte) (*big.Int, error) {
	out, err := a.Unpack(method, data)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("unpack %s: empty return data", method)
	}
	v, ok := out[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unpack %s: unexpected return type %T", method, out[0])
	}
	return v, nil
}
