package network

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestName(t *testing.T) {
	assert.Equal(t, "Ethereum Mainnet", Name(MainnetChainID))
	assert.Equal(t, "Arbitrum One", Name(ArbitrumChainID))
	assert.Equal(t, "Sepolia Testnet", Name(SepoliaChainID))
	assert.Equal(t, "Anvil Local", Name(AnvilChainID))
	assert.Contains(t, Name(424242), "Unknown Network")
}

func TestVerifyEndpoints_UnreachableOnlyWarns(t *testing.T) {
	// A dead endpoint is rotation's problem, not a startup failure.
	err := VerifyEndpoints(context.Background(), []string{"http://127.0.0.1:1"}, ArbitrumChainID)
	assert.NoError(t, err)
}

func TestVerifyEndpoints_EmptyList(t *testing.T) {
	assert.NoError(t, VerifyEndpoints(context.Background(), nil, ArbitrumChainID))
}
