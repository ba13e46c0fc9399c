package engine

import (
	"crypto/rand"
	"math/big"
)

// secureIntn returns a random integer in [0, n) from crypto/rand.
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	res, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(res.Int64())
}
