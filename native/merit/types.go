package merit

import "math/big"

// Totem is the merit engine's view of a registered participant.
type Totem struct {
	Address      [20]byte
	Token        [20]byte
	RegisteredAt int64
}

// Clone returns a copy of the totem record.
func (t *Totem) Clone() *Totem {
	if t == nil {
		return nil
	}
	clone := *t
	return &clone
}

// periodLedger accumulates merit for one period. The total and the
// per-participant points only ever move together, which is what keeps the
// conservation invariant true by construction.
type periodLedger struct {
	total   *big.Int
	points  map[[20]byte]*big.Int
	claimed map[[20]byte]bool
}

func newPeriodLedger() *periodLedger {
	return &periodLedger{
		total:   big.NewInt(0),
		points:  make(map[[20]byte]*big.Int),
		claimed: make(map[[20]byte]bool),
	}
}

func (p *periodLedger) add(participant [20]byte, amount *big.Int) {
	current, ok := p.points[participant]
	if !ok {
		current = big.NewInt(0)
	}
	p.points[participant] = new(big.Int).Add(current, amount)
	p.total = new(big.Int).Add(p.total, amount)
}

func (p *periodLedger) pointsOf(participant [20]byte) *big.Int {
	current, ok := p.points[participant]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(current)
}

func (p *periodLedger) clone() *periodLedger {
	clone := newPeriodLedger()
	clone.total = new(big.Int).Set(p.total)
	for addr, pts := range p.points {
		clone.points[addr] = new(big.Int).Set(pts)
	}
	for addr, done := range p.claimed {
		clone.claimed[addr] = done
	}
	return clone
}

// boostKey is the idempotency key for boosting: one boost per caller per
// period, across all totems.
type boostKey struct {
	period uint64
	caller [20]byte
}
