package merit

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// BpsDenominator is the fixed denominator for basis-point parameters.
	BpsDenominator = 10000
	// DefaultMultiplierBps scales merit credited inside the sub-period
	// window by 1.5x.
	DefaultMultiplierBps = 15000
	// TrancheYears is the number of annual allocation tranches in the
	// vesting schedule.
	TrancheYears = 4
)

// Params bundles the tunable knobs of the merit engine.
type Params struct {
	// MultiplierBps scales merit credited inside the sub-period window.
	// Integer math, rounding down.
	MultiplierBps uint64
	// BoostFee is the payment-token fee charged per boost.
	BoostFee *big.Int
	// BoostAward is the fixed merit granted per successful boost.
	BoostAward *big.Int
	// FeeToken is the token the boost fee is paid in.
	FeeToken [20]byte
	// RewardToken is the token claims are settled in.
	RewardToken [20]byte
	// Treasury receives boost fees.
	Treasury [20]byte
	// PeriodsPerYear divides each annual tranche into per-period pools.
	PeriodsPerYear uint64
	// YearAllocation fixes the reward supply released in each of the four
	// tranche years.
	YearAllocation [TrancheYears]*big.Int
}

// DefaultParams returns a disabled configuration: fees, awards and
// allocations must be set before use.
func DefaultParams() Params {
	p := Params{
		MultiplierBps:  DefaultMultiplierBps,
		BoostFee:       big.NewInt(0),
		BoostAward:     big.NewInt(0),
		PeriodsPerYear: 12,
	}
	for i := range p.YearAllocation {
		p.YearAllocation[i] = big.NewInt(0)
	}
	return p
}

// Validate ensures the parameter values fall within acceptable bounds.
func (p Params) Validate() error {
	if p.MultiplierBps < BpsDenominator {
		return fmt.Errorf("merit: multiplier must be >= %d bps", BpsDenominator)
	}
	if p.BoostFee != nil && p.BoostFee.Sign() < 0 {
		return errors.New("merit: boost fee cannot be negative")
	}
	if p.BoostAward != nil && p.BoostAward.Sign() < 0 {
		return errors.New("merit: boost award cannot be negative")
	}
	if p.PeriodsPerYear == 0 {
		return errors.New("merit: periods per year must be positive")
	}
	for i, alloc := range p.YearAllocation {
		if alloc != nil && alloc.Sign() < 0 {
			return fmt.Errorf("merit: year %d allocation cannot be negative", i)
		}
	}
	return nil
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := p
	clone.BoostFee = copyBigInt(p.BoostFee)
	clone.BoostAward = copyBigInt(p.BoostAward)
	for i := range p.YearAllocation {
		clone.YearAllocation[i] = copyBigInt(p.YearAllocation[i])
	}
	return clone
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
