package wallet

import (
	"bufio"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Account is one signing key and its derived address. Identity is the key;
// Transfer is the optional paired destination address for tools that move
// funds off the account.
type Account struct {
	Key      *ecdsa.PrivateKey
	KeyHex   string // normalized lowercase, no 0x prefix
	Address  common.Address
	Transfer common.Address
}

// HasTransfer reports whether a destination address was paired with the key.
func (a Account) HasTransfer() bool {
	return a.Transfer != (common.Address{})
}

// Configuration errors are fatal at startup; the process must not proceed
// with a partially valid wallet list.
var (
	ErrEmptyWallets = errors.New("wallet list is empty")
	ErrBadKey       = errors.New("no valid private key on line")
	ErrDuplicateKey = errors.New("duplicate private key")
	ErrBadTransfer  = errors.New("no transfer address on line")
	ErrSelfTransfer = errors.New("transfer address belongs to its own key")
)

var (
	keyRe  = regexp.MustCompile(`[0-9a-fA-F]{64}`)
	addrRe = regexp.MustCompile(`0[xX][0-9a-fA-F]{40}`)
)

// LoadOptions controls validation of the wallet file.
type LoadOptions struct {
	// RequireTransfer demands a paired destination address on every line.
	RequireTransfer bool
	// AllowDuplicateKeys skips the duplicate-key check (the seeder may fund
	// several destinations from one source key).
	AllowDuplicateKeys bool
}

// Load reads a wallet file: one account per line, a 64-hex private key
// scanned out of free-form text, optionally paired with a 0x destination
// address. Blank lines and #-comments are skipped.
func Load(path string, opts LoadOptions) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open wallet file: %w", err)
	}
	defer f.Close()

	var accounts []Account
	seen := make(map[string]struct{})

	scanner := bufio.NewScanner(f)
	line := 0
	for scanner.Scan() {
		line++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" || strings.HasPrefix(raw, "#") {
			continue
		}

		keyHex := strings.ToLower(keyRe.FindString(raw))
		if keyHex == "" {
			return nil, fmt.Errorf("%w: %s line %d", ErrBadKey, path, line)
		}
		if _, dup := seen[keyHex]; dup && !opts.AllowDuplicateKeys {
			return nil, fmt.Errorf("%w: %s %s line %d", ErrDuplicateKey, Masked(keyHex), path, line)
		}
		seen[keyHex] = struct{}{}

		key, err := crypto.HexToECDSA(keyHex)
		if err != nil {
			return nil, fmt.Errorf("%w: %s line %d: %v", ErrBadKey, path, line, err)
		}
		acct := Account{
			Key:     key,
			KeyHex:  keyHex,
			Address: crypto.PubkeyToAddress(key.PublicKey),
		}

		if transfer := addrRe.FindString(raw); transfer != "" {
			acct.Transfer = common.HexToAddress(transfer)
			if acct.Transfer == acct.Address {
				return nil, fmt.Errorf("%w: %s %s line %d", ErrSelfTransfer, acct.Transfer.Hex(), path, line)
			}
		} else if opts.RequireTransfer {
			return nil, fmt.Errorf("%w: %s line %d", ErrBadTransfer, path, line)
		}

		accounts = append(accounts, acct)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read wallet file: %w", err)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyWallets, path)
	}
	return accounts, nil
}

// Addresses returns the account addresses in list order.
func Addresses(accounts []Account) []common.Address {
	out := make([]common.Address, len(accounts))
	for i, a := range accounts {
		out[i] = a.Address
	}
	return out
}

// TransferAddresses returns the paired destination addresses in list order.
func TransferAddresses(accounts []Account) []common.Address {
	out := make([]common.Address, len(accounts))
	for i, a := range accounts {
		out[i] = a.Transfer
	}
	return out
}

// Masked renders a secret keeping only a short prefix and suffix, for logs.
func Masked(s string) string {
	if len(s) <= 9 {
		return s
	}
	return s[:5] + "***" + s[len(s)-4:]
}
