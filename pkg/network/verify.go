package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"
)

// Well-known chain IDs the fleet tools run against.
const (
	MainnetChainID  = 1
	ArbitrumChainID = 42161
	SepoliaChainID  = 11155111
	AnvilChainID    = 31337
)

// Name returns a human-readable network name for a chain ID.
func Name(chainID int64) string {
	switch chainID {
	case MainnetChainID:
		return "Ethereum Mainnet"
	case ArbitrumChainID:
		return "Arbitrum One"
	case SepoliaChainID:
		return "Sepolia Testnet"
	case AnvilChainID:
		return "Anvil Local"
	default:
		return fmt.Sprintf("Unknown Network (Chain ID: %d)", chainID)
	}
}

// VerifyEndpoints dials every endpoint and checks it serves the expected
// chain. A mismatched endpoint in the pool would make rotation silently
// switch campaigns mid-run, so this is fatal at startup. Unreachable
// endpoints only warn: pool rotation is built for exactly that.
func VerifyEndpoints(ctx context.Context, urls []string, expectedChainID int64) error {
	for _, url := range urls {
		checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		err := verifyOne(checkCtx, url, expectedChainID)
		cancel()
		if err != nil {
			return err
		}
	}
	return nil
}

func verifyOne(ctx context.Context, url string, expectedChainID int64) error {
	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		slog.Warn("ENDPOINT_UNREACHABLE_AT_STARTUP", "url", url, "error", err)
		return nil
	}
	defer client.Close()

	actual, err := client.ChainID(ctx)
	if err != nil {
		slog.Warn("ENDPOINT_CHAIN_ID_CHECK_FAILED", "url", url, "error", err)
		return nil
	}
	if actual.Int64() != expectedChainID {
		return fmt.Errorf("endpoint %s serves %s, expected %s",
			url, Name(actual.Int64()), Name(expectedChainID))
	}
	slog.Info("ENDPOINT_VERIFIED", "url", url, "network", Name(actual.Int64()))
	return nil
}
