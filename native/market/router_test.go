package market

import (
	"math/big"
	"testing"

	"totemchain/native/token"
)

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

func newTestPool(t *testing.T) (*Pool, *token.Ledger, [20]byte, [20]byte, [20]byte) {
	t.Helper()
	ledger := token.NewLedger()
	tokenA, tokenB, funder := addr(1), addr(2), addr(9)
	for _, tok := range [][20]byte{tokenA, tokenB} {
		if err := ledger.Register(tok); err != nil {
			t.Fatalf("register: %v", err)
		}
		if err := ledger.SetTransfersEnabled(tok, true); err != nil {
			t.Fatalf("enable transfers: %v", err)
		}
		if err := ledger.Mint(tok, funder, big.NewInt(1_000_000)); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	pool := NewPool(ledger, funder)
	pool.SetNowFunc(func() int64 { return 1000 })
	return pool, ledger, tokenA, tokenB, funder
}

func TestPairIDIsDeterministic(t *testing.T) {
	pool, _, tokenA, tokenB, _ := newTestPool(t)
	first, err := pool.GetOrCreatePair(tokenA, tokenB)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	second, err := pool.GetOrCreatePair(tokenB, tokenA)
	if err != nil {
		t.Fatalf("create pair reversed: %v", err)
	}
	if first != second {
		t.Fatal("pair id must be order independent")
	}
}

func TestAddLiquidityFirstDeposit(t *testing.T) {
	pool, ledger, tokenA, tokenB, funder := newTestPool(t)
	pairID, err := pool.GetOrCreatePair(tokenA, tokenB)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	recipient := addr(7)

	usedA, usedB, liquidity, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(400), big.NewInt(100), nil, nil, recipient, 2000)
	if err != nil {
		t.Fatalf("add liquidity: %v", err)
	}
	if usedA.Cmp(big.NewInt(400)) != 0 || usedB.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("used = %s, %s", usedA, usedB)
	}
	// sqrt(400*100) = 200
	if liquidity.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("liquidity = %s, want 200", liquidity)
	}
	if got := ledger.BalanceOf(pairID, recipient); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("recipient liquidity balance = %s, want 200", got)
	}
	if got := ledger.BalanceOf(tokenA, pairID); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("reserve A = %s, want 400", got)
	}
	if got := ledger.BalanceOf(tokenA, funder); got.Cmp(big.NewInt(999_600)) != 0 {
		t.Fatalf("funder balance = %s, want 999600", got)
	}
}

func TestAddLiquiditySecondDepositProRata(t *testing.T) {
	pool, _, tokenA, tokenB, _ := newTestPool(t)
	if _, err := pool.GetOrCreatePair(tokenA, tokenB); err != nil {
		t.Fatalf("create pair: %v", err)
	}
	recipient := addr(7)
	if _, _, _, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(400), big.NewInt(100), nil, nil, recipient, 0); err != nil {
		t.Fatalf("first deposit: %v", err)
	}
	// Doubling both reserves doubles outstanding liquidity.
	_, _, liquidity, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(400), big.NewInt(100), nil, nil, recipient, 0)
	if err != nil {
		t.Fatalf("second deposit: %v", err)
	}
	if liquidity.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("liquidity = %s, want 200", liquidity)
	}
	// An unbalanced deposit mints against the smaller side.
	_, _, liquidity, err = pool.AddLiquidity(tokenA, tokenB, big.NewInt(800), big.NewInt(100), nil, nil, recipient, 0)
	if err != nil {
		t.Fatalf("unbalanced deposit: %v", err)
	}
	if liquidity.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("liquidity = %s, want 200", liquidity)
	}
}

func TestAddLiquidityGuards(t *testing.T) {
	pool, _, tokenA, tokenB, _ := newTestPool(t)
	recipient := addr(7)

	if _, _, _, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(1), big.NewInt(1), nil, nil, recipient, 0); err != ErrUnknownPair {
		t.Fatalf("expected ErrUnknownPair, got %v", err)
	}
	if _, err := pool.GetOrCreatePair(tokenA, tokenB); err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, _, _, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(1), big.NewInt(1), nil, nil, recipient, 999); err != ErrDeadlineExpired {
		t.Fatalf("expected ErrDeadlineExpired, got %v", err)
	}
	if _, _, _, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(1), big.NewInt(1), big.NewInt(2), nil, recipient, 0); err != ErrSlippageExceeded {
		t.Fatalf("expected ErrSlippageExceeded, got %v", err)
	}
	if _, _, _, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(0), big.NewInt(0), nil, nil, recipient, 0); err != ErrZeroLiquidity {
		t.Fatalf("expected ErrZeroLiquidity, got %v", err)
	}
}

func TestPoolSnapshotRoundTrip(t *testing.T) {
	pool, ledger, tokenA, tokenB, funder := newTestPool(t)
	pairID, err := pool.GetOrCreatePair(tokenA, tokenB)
	if err != nil {
		t.Fatalf("create pair: %v", err)
	}
	if _, _, _, err := pool.AddLiquidity(tokenA, tokenB, big.NewInt(400), big.NewInt(100), nil, nil, addr(7), 0); err != nil {
		t.Fatalf("add liquidity: %v", err)
	}

	restored := NewPool(ledger, funder)
	restored.LoadSnapshot(pool.Snapshot())
	restored.SetNowFunc(func() int64 { return 1000 })
	gotID, err := restored.GetOrCreatePair(tokenA, tokenB)
	if err != nil {
		t.Fatalf("pair lookup after load: %v", err)
	}
	if gotID != pairID {
		t.Fatal("pair id lost in snapshot round trip")
	}
	// Outstanding liquidity must survive, so the next deposit is pro-rata.
	_, _, liquidity, err := restored.AddLiquidity(tokenA, tokenB, big.NewInt(400), big.NewInt(100), nil, nil, addr(7), 0)
	if err != nil {
		t.Fatalf("deposit after load: %v", err)
	}
	if liquidity.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("liquidity = %s, want 200", liquidity)
	}
}
