package chain

import mrand "math/rand/v2"

func randIntn(n int) int {
	if n <= 0 {
		return 0
	}
	return mrand.IntN(n)
}
