package chain

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"

	"wallet-fleet-go/internal/engine"
)

// NewFactory returns a ClientFactory that dials endpoints over a shared HTTP
// transport. When proxies is non-empty, every outbound request picks one of
// them uniformly at random, so a single dialed client still spreads its
// traffic across the proxy set. Proxy URLs are validated up front; a bad
// entry is a configuration error, not something to discover mid-campaign.
func NewFactory(proxies []string) (engine.ClientFactory, error) {
	parsed := make([]*url.URL, 0, len(proxies))
	for _, p := range proxies {
		u, err := url.Parse(p)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("invalid proxy url %q: %v", p, err)
		}
		parsed = append(parsed, u)
	}

	transport := &http.Transport{}
	if len(parsed) > 0 {
		transport.Proxy = func(*http.Request) (*url.URL, error) {
			return parsed[randIntn(len(parsed))], nil
		}
	}
	httpClient := &http.Client{Transport: transport}

	return func(ctx context.Context, endpoint string) (engine.ChainClient, error) {
		rpcClient, err := rpc.DialOptions(ctx, endpoint, rpc.WithHTTPClient(httpClient))
		if err != nil {
			return nil, fmt.Errorf("dial %s: %w", endpoint, err)
		}
		return &client{Client: ethclient.NewClient(rpcClient), rpc: rpcClient}, nil
	}, nil
}

// client pairs the typed ethclient with its raw rpc client so callers can
// reach JSON-RPC fields the typed API does not surface.
type client struct {
	*ethclient.Client
	rpc *rpc.Client
}

func (c *client) CallContext(ctx context.Context, result any, method string, args ...any) error {
	return c.rpc.CallContext(ctx, result, method, args...)
}
