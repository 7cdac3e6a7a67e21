package sale

import (
	"errors"
	"fmt"
	"math/big"
)

const (
	// BpsDenominator is the fixed denominator for basis-point parameters.
	BpsDenominator = 10000
	// SlippageBps is the tolerance applied to both liquidity minimums when
	// closing a sale.
	SlippageBps = 500
	// DeadlineWindow is the fixed window, in seconds, granted to the
	// market maker for a liquidity addition.
	DeadlineWindow = 300
)

// Shares fixes how collected sale proceeds are split at closure. The four
// weights must sum to exactly BpsDenominator; this is enforced when the
// shares are configured, not when the split runs.
type Shares struct {
	TreasuryBps uint64
	CreatorBps  uint64
	VaultBps    uint64
	PoolBps     uint64
}

// Validate ensures the weights sum to the fixed total.
func (s Shares) Validate() error {
	sum := s.TreasuryBps + s.CreatorBps + s.VaultBps + s.PoolBps
	if sum != BpsDenominator {
		return fmt.Errorf("sale: shares sum to %d, want %d", sum, BpsDenominator)
	}
	return nil
}

// Params bundles the tunable knobs of the sale engine.
type Params struct {
	// PaymentToken is the token buyers pay with.
	PaymentToken [20]byte
	// Treasury receives the revenue share of proceeds.
	Treasury [20]byte
	// PriceUsd is the fixed primary-sale price per participant-token unit,
	// scaled by oracle.PriceDecimals.
	PriceUsd *big.Int
	// PerAddressCap limits how many participant-token units one buyer may
	// hold through the sale.
	PerAddressCap *big.Int
	// ReservedPoolSupply is withheld from the sale and later paired with
	// the pool share of proceeds as AMM liquidity. The sale closes when the
	// engine balance falls to exactly this value.
	ReservedPoolSupply *big.Int
	// InitialSupply is the fixed supply minted to the engine by the
	// factory for every new totem token.
	InitialSupply *big.Int
	// CreatorAllotment is transferred to the totem owner at registration.
	CreatorAllotment *big.Int
	// VaultAllotment is transferred to the totem vault at registration.
	VaultAllotment *big.Int
	// OracleStaleness is the maximum quote age in seconds.
	OracleStaleness int64
	// Shares is the four-way proceeds split.
	Shares Shares
}

// Validate ensures the parameter values are self-consistent.
func (p Params) Validate() error {
	if p.PriceUsd == nil || p.PriceUsd.Sign() <= 0 {
		return errors.New("sale: price must be positive")
	}
	if p.PerAddressCap == nil || p.PerAddressCap.Sign() <= 0 {
		return errors.New("sale: per-address cap must be positive")
	}
	if p.ReservedPoolSupply == nil || p.ReservedPoolSupply.Sign() < 0 {
		return errors.New("sale: reserved pool supply cannot be negative")
	}
	if p.InitialSupply == nil || p.InitialSupply.Sign() <= 0 {
		return errors.New("sale: initial supply must be positive")
	}
	if p.CreatorAllotment == nil || p.CreatorAllotment.Sign() < 0 {
		return errors.New("sale: creator allotment cannot be negative")
	}
	if p.VaultAllotment == nil || p.VaultAllotment.Sign() < 0 {
		return errors.New("sale: vault allotment cannot be negative")
	}
	committed := new(big.Int).Add(p.CreatorAllotment, p.VaultAllotment)
	committed.Add(committed, p.ReservedPoolSupply)
	if committed.Cmp(p.InitialSupply) > 0 {
		return errors.New("sale: allotments and reserve exceed initial supply")
	}
	if p.OracleStaleness <= 0 {
		return errors.New("sale: oracle staleness threshold must be positive")
	}
	return p.Shares.Validate()
}

// Clone returns a deep copy of the parameters.
func (p Params) Clone() Params {
	clone := p
	clone.PriceUsd = copyBigInt(p.PriceUsd)
	clone.PerAddressCap = copyBigInt(p.PerAddressCap)
	clone.ReservedPoolSupply = copyBigInt(p.ReservedPoolSupply)
	clone.InitialSupply = copyBigInt(p.InitialSupply)
	clone.CreatorAllotment = copyBigInt(p.CreatorAllotment)
	clone.VaultAllotment = copyBigInt(p.VaultAllotment)
	return clone
}

// TotemRecord is the sale engine's ledger entry for one totem.
type TotemRecord struct {
	Address       [20]byte
	Owner         [20]byte
	Token         [20]byte
	DataRef       [32]byte
	Collaborators [][20]byte
	CustomToken   bool
	SaleOpen      bool
	Collected     *big.Int
	PaymentToken  [20]byte
	LiquidityTok  [20]byte
}

// Clone returns a deep copy of the record.
func (t *TotemRecord) Clone() *TotemRecord {
	if t == nil {
		return nil
	}
	clone := *t
	clone.Collaborators = append([][20]byte(nil), t.Collaborators...)
	clone.Collected = copyBigInt(t.Collected)
	return &clone
}

// Position tracks one buyer's primary-sale exposure to one totem. Contributed
// and Held move in lockstep: a sell removes a proportional slice of both, so
// repeated partial sells can never withdraw more than was paid in.
type Position struct {
	Contributed *big.Int
	Held        *big.Int
}

// Clone returns a deep copy of the position.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	return &Position{Contributed: copyBigInt(p.Contributed), Held: copyBigInt(p.Held)}
}

type positionKey struct {
	buyer [20]byte
	totem [20]byte
}

func copyBigInt(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
