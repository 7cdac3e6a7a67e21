package market

import (
	"bytes"
	"errors"
	"math/big"
	"sort"
	"time"

	"lukechampine.com/blake3"

	"totemchain/native/token"
)

var (
	// ErrDeadlineExpired indicates the operation was admitted after its
	// deadline.
	ErrDeadlineExpired = errors.New("market: deadline expired")
	// ErrSlippageExceeded indicates the amounts actually used fell below the
	// caller's minimums.
	ErrSlippageExceeded = errors.New("market: slippage exceeded")
	// ErrZeroLiquidity indicates the deposit would mint zero liquidity
	// units.
	ErrZeroLiquidity = errors.New("market: zero liquidity minted")
	// ErrUnknownPair indicates the pair has not been created.
	ErrUnknownPair = errors.New("market: unknown pair")
)

// Router is the liquidity-provisioning boundary. Slippage minimums and the
// deadline window are applied by the caller, not the router.
type Router interface {
	GetOrCreatePair(tokenA, tokenB [20]byte) ([20]byte, error)
	AddLiquidity(tokenA, tokenB [20]byte, amountA, amountB, minA, minB *big.Int, recipient [20]byte, deadline int64) (usedA, usedB, liquidity *big.Int, err error)
}

type pairState struct {
	id        [20]byte
	tokenA    [20]byte
	tokenB    [20]byte
	liquidity *big.Int
}

// Pool is a reference constant-product market maker backed by the custody
// ledger. Each pair custodies its reserves under its own pair id account and
// mints its liquidity units as a ledger token with the same identity.
// Deposits are pulled from the configured funder account.
type Pool struct {
	ledger *token.Ledger
	funder [20]byte
	nowFn  func() int64
	pairs  map[[2][20]byte]*pairState
}

// NewPool constructs a pool pulling deposits from funder.
func NewPool(ledger *token.Ledger, funder [20]byte) *Pool {
	return &Pool{
		ledger: ledger,
		funder: funder,
		nowFn:  func() int64 { return time.Now().Unix() },
		pairs:  make(map[[2][20]byte]*pairState),
	}
}

// SetNowFunc overrides the time source used for deadline checks.
func (p *Pool) SetNowFunc(now func() int64) {
	if now == nil {
		p.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	p.nowFn = now
}

// GetOrCreatePair returns the deterministic pair id for the token pair,
// creating the pair and registering its liquidity token on first use.
func (p *Pool) GetOrCreatePair(tokenA, tokenB [20]byte) ([20]byte, error) {
	key := pairKey(tokenA, tokenB)
	if pair, ok := p.pairs[key]; ok {
		return pair.id, nil
	}
	id := derivePairID(key)
	if err := p.ledger.Register(id); err != nil && !errors.Is(err, token.ErrTokenExists) {
		return [20]byte{}, err
	}
	if err := p.ledger.SetTransfersEnabled(id, true); err != nil {
		return [20]byte{}, err
	}
	p.pairs[key] = &pairState{id: id, tokenA: key[0], tokenB: key[1], liquidity: big.NewInt(0)}
	return id, nil
}

// AddLiquidity pulls both amounts from the funder into the pair reserves and
// mints liquidity units to the recipient. The first deposit mints
// sqrt(amountA*amountB); later deposits mint pro-rata against the smaller
// side to keep the reserve ratio honest.
func (p *Pool) AddLiquidity(tokenA, tokenB [20]byte, amountA, amountB, minA, minB *big.Int, recipient [20]byte, deadline int64) (*big.Int, *big.Int, *big.Int, error) {
	if deadline > 0 && p.nowFn() > deadline {
		return nil, nil, nil, ErrDeadlineExpired
	}
	key := pairKey(tokenA, tokenB)
	pair, ok := p.pairs[key]
	if !ok {
		return nil, nil, nil, ErrUnknownPair
	}
	usedA := new(big.Int).Set(amountA)
	usedB := new(big.Int).Set(amountB)
	if minA != nil && usedA.Cmp(minA) < 0 {
		return nil, nil, nil, ErrSlippageExceeded
	}
	if minB != nil && usedB.Cmp(minB) < 0 {
		return nil, nil, nil, ErrSlippageExceeded
	}

	var minted *big.Int
	if pair.liquidity.Sign() == 0 {
		minted = new(big.Int).Sqrt(new(big.Int).Mul(usedA, usedB))
	} else {
		reserveA := p.ledger.BalanceOf(tokenA, pair.id)
		reserveB := p.ledger.BalanceOf(tokenB, pair.id)
		byA := new(big.Int).Div(new(big.Int).Mul(pair.liquidity, usedA), reserveA)
		byB := new(big.Int).Div(new(big.Int).Mul(pair.liquidity, usedB), reserveB)
		minted = byA
		if byB.Cmp(minted) < 0 {
			minted = byB
		}
	}
	if minted.Sign() <= 0 {
		return nil, nil, nil, ErrZeroLiquidity
	}

	if err := p.ledger.Transfer(tokenA, p.funder, pair.id, usedA); err != nil {
		return nil, nil, nil, err
	}
	if err := p.ledger.Transfer(tokenB, p.funder, pair.id, usedB); err != nil {
		return nil, nil, nil, err
	}
	if err := p.ledger.Mint(pair.id, recipient, minted); err != nil {
		return nil, nil, nil, err
	}
	pair.liquidity = new(big.Int).Add(pair.liquidity, minted)
	return usedA, usedB, minted, nil
}

// Clone returns a deep copy of the pool state sharing the same ledger.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := &Pool{ledger: p.ledger, funder: p.funder, nowFn: p.nowFn, pairs: make(map[[2][20]byte]*pairState, len(p.pairs))}
	for key, pair := range p.pairs {
		cp := *pair
		cp.liquidity = new(big.Int).Set(pair.liquidity)
		clone.pairs[key] = &cp
	}
	return clone
}

// Restore copies the state of a snapshot produced by Clone back into the
// pool.
func (p *Pool) Restore(snapshot *Pool) {
	if p == nil || snapshot == nil {
		return
	}
	p.pairs = snapshot.Clone().pairs
}

// PairEntry is one serializable pair record.
type PairEntry struct {
	ID        [20]byte
	TokenA    [20]byte
	TokenB    [20]byte
	Liquidity *big.Int
}

// PoolSnapshot is the serializable state of the pool.
type PoolSnapshot struct {
	Funder [20]byte
	Pairs  []PairEntry
}

// Snapshot renders the pool into its deterministic serializable form.
func (p *Pool) Snapshot() *PoolSnapshot {
	snapshot := &PoolSnapshot{Funder: p.funder}
	for _, pair := range p.pairs {
		snapshot.Pairs = append(snapshot.Pairs, PairEntry{
			ID:        pair.id,
			TokenA:    pair.tokenA,
			TokenB:    pair.tokenB,
			Liquidity: new(big.Int).Set(pair.liquidity),
		})
	}
	sort.Slice(snapshot.Pairs, func(i, j int) bool {
		return bytes.Compare(snapshot.Pairs[i].ID[:], snapshot.Pairs[j].ID[:]) < 0
	})
	return snapshot
}

// LoadSnapshot replaces the pool state with the snapshot's, keeping the
// wired ledger.
func (p *Pool) LoadSnapshot(snapshot *PoolSnapshot) {
	p.funder = snapshot.Funder
	p.pairs = make(map[[2][20]byte]*pairState, len(snapshot.Pairs))
	for _, entry := range snapshot.Pairs {
		p.pairs[pairKey(entry.TokenA, entry.TokenB)] = &pairState{
			id:        entry.ID,
			tokenA:    entry.TokenA,
			tokenB:    entry.TokenB,
			liquidity: new(big.Int).Set(entry.Liquidity),
		}
	}
}

func pairKey(tokenA, tokenB [20]byte) [2][20]byte {
	if lessAddr(tokenB, tokenA) {
		tokenA, tokenB = tokenB, tokenA
	}
	return [2][20]byte{tokenA, tokenB}
}

func derivePairID(key [2][20]byte) [20]byte {
	h := blake3.New(32, nil)
	h.Write([]byte("market/pair/v1"))
	h.Write(key[0][:])
	h.Write(key[1][:])
	sum := h.Sum(nil)
	var id [20]byte
	copy(id[:], sum[:20])
	return id
}

func lessAddr(a, b [20]byte) bool {
	for i := range a {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return false
}
