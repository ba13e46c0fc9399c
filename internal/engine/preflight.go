package engine

import (
	"math/big"

	"github.com/holiman/uint256"
)

// AffordabilityVerdict is the outcome of the preflight check for one pending
// write. It is recomputed fresh every pass: balances and the ambient fee
// setting both move between passes.
type AffordabilityVerdict struct {
	Sufficient bool
	Required   *uint256.Int // wei: gas * feePerGas + value
}

// PadGas applies the fixed 1.3 safety factor to a live gas estimate.
// Explicit per-call overrides bypass this entirely.
func PadGas(estimate uint64) uint64 {
	return estimate + estimate*3/10
}

// CheckAffordability decides whether balance covers gas*feePerGas+value.
// The boundary case balance == required counts as sufficient.
func CheckAffordability(balance *big.Int, gas uint64, feePerGas, value *big.Int) AffordabilityVerdict {
	required := uint256.NewInt(gas)
	fee, _ := uint256.FromBig(feePerGas)
	required.Mul(required, fee)
	if value != nil {
		v, _ := uint256.FromBig(value)
		required.Add(required, v)
	}

	bal, _ := uint256.FromBig(balance)
	return AffordabilityVerdict{
		Sufficient: bal.Cmp(required) >= 0,
		Required:   required,
	}
}
