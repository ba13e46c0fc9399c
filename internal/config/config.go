package config

import (
	"log"
	"math/big"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the tools and the core need, resolved once at
// startup and passed explicitly. Nothing reads the environment after Load.
type Config struct {
	RPCURLs []string
	Proxies []string
	ChainID int64

	// Campaign gate
	TargetBlock int64
	UseL1Height bool

	// Concurrency and pacing
	Threads          int
	CallTimeout      time.Duration
	RequestsPerSec   float64
	RotationCooldown time.Duration
	PollInterval     time.Duration

	// Fees. FeePerGas is the initial ambient setting; FeeIncrement is the
	// safety margin added during escalation. Both in wei.
	FeePerGas    *big.Int
	FeeIncrement *big.Int

	// Per-call gas limit overrides; zero means estimate live.
	GasLimitClaim    uint64
	GasLimitTransfer uint64
	GasLimitSeed     uint64

	// Contracts and amounts
	WalletFile      string
	DistributorAddr string
	TokenAddr       string
	AmountToSend    *big.Int // wei, seeder target balance per destination

	// Drainer / swap
	SwapRouter     string
	SwapToToken    string
	SwapAPIBase    string
	Slippage       float64
	AmountToSwap   *big.Int
	MinSwapRatio   float64

	// Ambient services
	DatabaseURL string // empty disables the pass recorder
	StatusAddr  string // empty disables the websocket status hub
	MetricsAddr string // empty disables the Prometheus endpoint
	LogLevel    string
	LogFormat   string
}

// Load reads configuration from the environment, with .env as an optional
// overlay.
func Load() *Config {
	_ = godotenv.Load() // .env file is optional

	rpcURLs := splitList(getEnv("RPC_URLS", ""))
	proxies := splitList(getEnv("PROXY_LIST", ""))

	return &Config{
		RPCURLs: rpcURLs,
		Proxies: proxies,
		ChainID: getEnvAsInt64("CHAIN_ID", 42161),

		TargetBlock: getEnvAsInt64("TARGET_BLOCK", 0),
		UseL1Height: getEnvAsBool("USE_L1_HEIGHT", true),

		Threads:          int(getEnvAsInt64("THREADS", 10)),
		CallTimeout:      time.Duration(getEnvAsInt64("CALL_TIMEOUT_SECONDS", 5)) * time.Second,
		RequestsPerSec:   getEnvAsFloat("REQUESTS_PER_SEC", 0),
		RotationCooldown: time.Duration(getEnvAsInt64("ROTATION_COOLDOWN_SECONDS", 1)) * time.Second,
		PollInterval:     time.Duration(getEnvAsInt64("POLL_INTERVAL_SECONDS", 5)) * time.Second,

		FeePerGas:    GweiToWei(getEnvAsFloat("FEE_GWEI", 0.1)),
		FeeIncrement: GweiToWei(getEnvAsFloat("FEE_INCREMENT_GWEI", 0.02)),

		GasLimitClaim:    uint64(getEnvAsInt64("GAS_LIMIT_CLAIM", 0)),
		GasLimitTransfer: uint64(getEnvAsInt64("GAS_LIMIT_TRANSFER", 0)),
		GasLimitSeed:     uint64(getEnvAsInt64("GAS_LIMIT_SEED", 21000)),

		WalletFile:      getEnv("WALLET_FILE", "wallets.txt"),
		DistributorAddr: getEnv("DISTRIBUTOR_ADDRESS", ""),
		TokenAddr:       getEnv("TOKEN_ADDRESS", ""),
		AmountToSend:    weiFromEthEnv("AMOUNT_TO_SEND_ETH", 0),

		SwapRouter:   getEnv("SWAP_ROUTER_ADDRESS", ""),
		SwapToToken:  getEnv("SWAP_TO_TOKEN", ""),
		SwapAPIBase:  getEnv("SWAP_API_BASE", "https://api.1inch.io/v5.0"),
		Slippage:     getEnvAsFloat("SWAP_SLIPPAGE", 1),
		AmountToSwap: weiFromEthEnv("AMOUNT_TO_SWAP_ETH", 0),
		MinSwapRatio: getEnvAsFloat("MIN_SWAP_RATIO", 0),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		StatusAddr:  getEnv("STATUS_ADDR", ""),
		MetricsAddr: getEnv("METRICS_ADDR", ""),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}
}

// GweiToWei converts a fractional gwei amount to integer wei.
func GweiToWei(gwei float64) *big.Int {
	f := new(big.Float).Mul(big.NewFloat(gwei), big.NewFloat(1e9))
	wei, _ := f.Int(nil)
	return wei
}

func weiFromEthEnv(key string, def float64) *big.Int {
	eth := getEnvAsFloat(key, def)
	f := new(big.Float).Mul(big.NewFloat(eth), big.NewFloat(1e18))
	wei, _ := f.Int(nil)
	return wei
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseInt(valueStr, 10, 64)
	if err != nil {
		log.Printf("Invalid %s: %s, using default %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		log.Printf("Invalid %s: %s, using default %g", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Invalid %s: %s, using default %v", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
