package wallet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	keyA = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
	keyB = "6370fd033278c143179d81c5526140625662b8daa446c22ee2d73db3707e620c"
)

func writeWalletFile(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wallets.txt")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o600))
	return path
}

func TestLoad_ParsesKeysAndSkipsNoise(t *testing.T) {
	path := writeWalletFile(t, "# fleet keys\n\n"+keyA+"\n  0x"+keyB+"  \n")

	accounts, err := Load(path, LoadOptions{})
	require.NoError(t, err)
	require.Len(t, accounts, 2)

	// Addresses derive from the keys; the 0x prefix on the key is tolerated.
	want, _ := crypto.HexToECDSA(keyA)
	assert.Equal(t, crypto.PubkeyToAddress(want.PublicKey), accounts[0].Address)
	assert.Equal(t, keyA, accounts[0].KeyHex)
	assert.False(t, accounts[0].HasTransfer())
}

func TestLoad_PairsTransferAddress(t *testing.T) {
	dest := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	path := writeWalletFile(t, keyA+","+dest+"\n")

	accounts, err := Load(path, LoadOptions{RequireTransfer: true})
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.True(t, accounts[0].HasTransfer())
	assert.Equal(t, dest, accounts[0].Transfer.Hex())
}

func TestLoad_Validation(t *testing.T) {
	dest := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	keyAddr := func(k string) string {
		key, err := crypto.HexToECDSA(k)
		require.NoError(t, err)
		return crypto.PubkeyToAddress(key.PublicKey).Hex()
	}

	cases := []struct {
		name    string
		content string
		opts    LoadOptions
		wantErr error
	}{
		{"garbage line", "not-a-key\n", LoadOptions{}, ErrBadKey},
		{"duplicate key", keyA + "\n" + keyA + "\n", LoadOptions{}, ErrDuplicateKey},
		{"missing transfer", keyA + "\n", LoadOptions{RequireTransfer: true}, ErrBadTransfer},
		{"self transfer", keyA + "," + keyAddr(keyA) + "\n", LoadOptions{}, ErrSelfTransfer},
		{"empty file", "# nothing here\n", LoadOptions{}, ErrEmptyWallets},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			path := writeWalletFile(t, tc.content)
			_, err := Load(path, tc.opts)
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}

	t.Run("duplicate keys allowed for fan-out", func(t *testing.T) {
		path := writeWalletFile(t, keyA+","+dest+"\n"+keyA+",0x00000000000000000000000000000000000000aa\n")
		accounts, err := Load(path, LoadOptions{RequireTransfer: true, AllowDuplicateKeys: true})
		require.NoError(t, err)
		assert.Len(t, accounts, 2)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.txt"), LoadOptions{})
		assert.Error(t, err)
	})
}

func TestAddresses(t *testing.T) {
	path := writeWalletFile(t, keyA+"\n"+keyB+"\n")
	accounts, err := Load(path, LoadOptions{})
	require.NoError(t, err)

	addrs := Addresses(accounts)
	require.Len(t, addrs, 2)
	assert.Equal(t, accounts[0].Address, addrs[0])
	assert.Equal(t, accounts[1].Address, addrs[1])
}

func TestTransferAddresses(t *testing.T) {
	destA := "0x8ba1f109551bD432803012645Ac136ddd64DBA72"
	destB := "0x00000000000000000000000000000000000000aB"
	path := writeWalletFile(t, keyA+","+destA+"\n"+keyA+","+destB+"\n")

	accounts, err := Load(path, LoadOptions{RequireTransfer: true, AllowDuplicateKeys: true})
	require.NoError(t, err)

	// One source key, two lines: destinations keep the line order.
	addrs := TransferAddresses(accounts)
	require.Len(t, addrs, 2)
	assert.Equal(t, destA, addrs[0].Hex())
	assert.Equal(t, accounts[0].Address, accounts[1].Address)
	assert.NotEqual(t, addrs[0], addrs[1])
}

func TestMasked(t *testing.T) {
	assert.Equal(t, "4c088***2318", Masked(keyA))
	assert.Equal(t, "short", Masked("short"))
}
