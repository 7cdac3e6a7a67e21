package vault

import (
	"math/big"
	"testing"

	"totemchain/core/periods"
	"totemchain/native/capability"
	"totemchain/native/common"
	"totemchain/native/merit"
	"totemchain/native/token"
)

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

var (
	adminAddr      = addr(1)
	registrarAddr  = addr(2)
	treasuryAddr   = addr(3)
	saleAddr       = addr(4)
	totemAddr      = addr(40)
	totemToken     = addr(10)
	paymentToken   = addr(11)
	rewardToken    = addr(12)
	liquidityToken = addr(13)
	holderAddr     = addr(50)
)

func newTestRegistry(t *testing.T) (*Registry, *token.Ledger, *capability.Registry) {
	t.Helper()
	ledger := token.NewLedger()
	for _, tok := range [][20]byte{totemToken, paymentToken, rewardToken, liquidityToken} {
		if err := ledger.Register(tok); err != nil {
			t.Fatalf("register token: %v", err)
		}
		if err := ledger.SetTransfersEnabled(tok, true); err != nil {
			t.Fatalf("enable transfers: %v", err)
		}
	}
	caps := capability.NewRegistry(adminAddr)
	if err := caps.Grant(adminAddr, registrarAddr, capability.CapRegistrar); err != nil {
		t.Fatalf("grant registrar: %v", err)
	}
	registry, err := NewRegistry(ledger, caps, treasuryAddr, saleAddr, rewardToken)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	return registry, ledger, caps
}

// settleStandardVault provisions a settled sale-token vault: 600 units
// circulating, 400 custodied, holdings of 300 payment, 60 reward and 90
// liquidity units.
func settleStandardVault(t *testing.T, registry *Registry, ledger *token.Ledger) {
	t.Helper()
	if err := registry.Create(registrarAddr, totemAddr, totemToken, false); err != nil {
		t.Fatalf("create vault: %v", err)
	}
	if err := ledger.Mint(totemToken, holderAddr, big.NewInt(600)); err != nil {
		t.Fatalf("mint holder: %v", err)
	}
	if err := ledger.Mint(totemToken, totemAddr, big.NewInt(400)); err != nil {
		t.Fatalf("mint vault: %v", err)
	}
	if err := ledger.Mint(paymentToken, totemAddr, big.NewInt(300)); err != nil {
		t.Fatalf("mint payment: %v", err)
	}
	if err := ledger.Mint(rewardToken, totemAddr, big.NewInt(60)); err != nil {
		t.Fatalf("mint reward: %v", err)
	}
	if err := ledger.Mint(liquidityToken, totemAddr, big.NewInt(90)); err != nil {
		t.Fatalf("mint liquidity: %v", err)
	}
	if err := registry.SettleSaleClosure(saleAddr, totemAddr, paymentToken, liquidityToken); err != nil {
		t.Fatalf("settle: %v", err)
	}
}

func TestCreateAuthorization(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	if err := registry.Create(holderAddr, totemAddr, totemToken, false); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.Create(registrarAddr, totemAddr, totemToken, false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.Create(registrarAddr, totemAddr, totemToken, false); err != ErrTotemExists {
		t.Fatalf("expected ErrTotemExists, got %v", err)
	}
	account, err := registry.Account(totemAddr)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if account != totemAddr {
		t.Fatal("vault account must be the totem identity")
	}
}

func TestSettleOnce(t *testing.T) {
	registry, _, _ := newTestRegistry(t)
	if err := registry.Create(registrarAddr, totemAddr, totemToken, false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.SettleSaleClosure(holderAddr, totemAddr, paymentToken, liquidityToken); err != ErrUnauthorized {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := registry.SettleSaleClosure(saleAddr, addr(99), paymentToken, liquidityToken); err != ErrUnknownTotem {
		t.Fatalf("expected ErrUnknownTotem, got %v", err)
	}
	if err := registry.SettleSaleClosure(saleAddr, totemAddr, paymentToken, liquidityToken); err != nil {
		t.Fatalf("settle: %v", err)
	}
	if err := registry.SettleSaleClosure(saleAddr, totemAddr, paymentToken, liquidityToken); err != ErrAlreadySettled {
		t.Fatalf("expected ErrAlreadySettled, got %v", err)
	}
}

func TestRedeemProRata(t *testing.T) {
	registry, ledger, _ := newTestRegistry(t)
	settleStandardVault(t, registry, ledger)

	// 200 of the 600 circulating units: one third of every holding.
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(200)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if got := ledger.BalanceOf(paymentToken, holderAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("payment payout = %s, want 100", got)
	}
	if got := ledger.BalanceOf(rewardToken, holderAddr); got.Cmp(big.NewInt(20)) != 0 {
		t.Fatalf("reward payout = %s, want 20", got)
	}
	if got := ledger.BalanceOf(liquidityToken, holderAddr); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("liquidity payout = %s, want 30", got)
	}
	// Sale tokens are burned, shrinking supply.
	if got := ledger.TotalSupply(totemToken); got.Cmp(big.NewInt(800)) != 0 {
		t.Fatalf("supply = %s, want 800", got)
	}
	if got := ledger.BalanceOf(totemToken, holderAddr); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("holder tokens = %s, want 400", got)
	}
}

func TestRedeemDrainsExactly(t *testing.T) {
	registry, ledger, _ := newTestRegistry(t)
	settleStandardVault(t, registry, ledger)

	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(200)); err != nil {
		t.Fatalf("first redeem: %v", err)
	}
	// Redeeming the remaining circulating supply takes everything left,
	// never more than the vault holds.
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(400)); err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if got := ledger.BalanceOf(paymentToken, totemAddr); got.Sign() != 0 {
		t.Fatalf("vault payment residue = %s, want 0", got)
	}
	if got := ledger.BalanceOf(paymentToken, holderAddr); got.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("holder payment total = %s, want 300", got)
	}
	if got := ledger.TotalSupply(totemToken); got.Cmp(big.NewInt(400)) != 0 {
		t.Fatalf("supply = %s, want 400 (custodied only)", got)
	}
}

func TestRedeemGuards(t *testing.T) {
	registry, ledger, _ := newTestRegistry(t)
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(1)); err != ErrUnknownTotem {
		t.Fatalf("expected ErrUnknownTotem, got %v", err)
	}
	if err := registry.Create(registrarAddr, totemAddr, totemToken, false); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(1)); err != ErrNotSettled {
		t.Fatalf("expected ErrNotSettled, got %v", err)
	}
	settleRest := func() {
		if err := registry.SettleSaleClosure(saleAddr, totemAddr, paymentToken, liquidityToken); err != nil {
			t.Fatalf("settle: %v", err)
		}
	}
	settleRest()
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(0)); err != ErrZeroAmount {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(1)); err != ErrInsufficientBalance {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}
	if err := ledger.Mint(totemToken, totemAddr, big.NewInt(50)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Mint(totemToken, holderAddr, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	// Holder balance covers the amount but nothing circulates beyond it;
	// the vault's own custody never counts toward circulating supply.
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(10)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
}

func TestRedeemCustomToken(t *testing.T) {
	registry, ledger, _ := newTestRegistry(t)
	customTotem := addr(41)
	if err := registry.Create(registrarAddr, customTotem, totemToken, true); err != nil {
		t.Fatalf("create custom vault: %v", err)
	}
	if err := ledger.Mint(totemToken, holderAddr, big.NewInt(500)); err != nil {
		t.Fatalf("mint holder: %v", err)
	}
	if err := ledger.Mint(rewardToken, customTotem, big.NewInt(100)); err != nil {
		t.Fatalf("mint reward: %v", err)
	}

	// Custom vaults redeem without settlement; the reward share is the only
	// payout leg and the tokens go to the treasury, not the burner.
	if err := registry.Redeem(holderAddr, customTotem, big.NewInt(250)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if got := ledger.BalanceOf(rewardToken, holderAddr); got.Cmp(big.NewInt(50)) != 0 {
		t.Fatalf("reward payout = %s, want 50", got)
	}
	if got := ledger.BalanceOf(totemToken, treasuryAddr); got.Cmp(big.NewInt(250)) != 0 {
		t.Fatalf("treasury recapture = %s, want 250", got)
	}
	if got := ledger.TotalSupply(totemToken); got.Cmp(big.NewInt(500)) != 0 {
		t.Fatalf("supply = %s, custom tokens must not burn", got)
	}

	// Recaptured treasury holdings drop out of circulating supply: the
	// remaining holder tokens still redeem against the full residue.
	if err := registry.Redeem(holderAddr, customTotem, big.NewInt(250)); err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if got := ledger.BalanceOf(rewardToken, holderAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("reward total = %s, want 100", got)
	}
}

func TestCollectReward(t *testing.T) {
	registry, ledger, caps := newTestRegistry(t)
	if err := registry.Create(registrarAddr, totemAddr, totemToken, false); err != nil {
		t.Fatalf("create: %v", err)
	}

	meritAccount := addr(5)
	sourceAddr := addr(6)
	if err := caps.Grant(adminAddr, sourceAddr, capability.CapMeritSource); err != nil {
		t.Fatalf("grant source: %v", err)
	}
	clock, err := periods.NewClock(0, 1000)
	if err != nil {
		t.Fatalf("new clock: %v", err)
	}
	params := merit.DefaultParams()
	params.RewardToken = rewardToken
	params.FeeToken = paymentToken
	params.Treasury = treasuryAddr
	params.PeriodsPerYear = 10
	params.YearAllocation[0] = big.NewInt(10000)
	engine, err := merit.NewEngine(params, clock, ledger, caps, nil, meritAccount)
	if err != nil {
		t.Fatalf("new merit engine: %v", err)
	}
	now := int64(100)
	engine.SetNowFunc(func() int64 { return now })
	registry.SetClaimer(engine)

	if err := ledger.Mint(rewardToken, meritAccount, big.NewInt(1000)); err != nil {
		t.Fatalf("fund merit account: %v", err)
	}
	if err := engine.Register(registrarAddr, totemAddr, totemToken); err != nil {
		t.Fatalf("register totem: %v", err)
	}
	if _, err := engine.CreditMerit(sourceAddr, totemAddr, big.NewInt(10)); err != nil {
		t.Fatalf("credit: %v", err)
	}

	now = 1100
	share, err := registry.CollectReward(totemAddr, 0)
	if err != nil {
		t.Fatalf("collect reward: %v", err)
	}
	if share.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("share = %s, want 1000", share)
	}
	// The reward lands in the vault account, redeemable later.
	if got := ledger.BalanceOf(rewardToken, totemAddr); got.Cmp(big.NewInt(1000)) != 0 {
		t.Fatalf("vault reward balance = %s, want 1000", got)
	}

	if _, err := registry.CollectReward(addr(99), 0); err != ErrUnknownTotem {
		t.Fatalf("expected ErrUnknownTotem, got %v", err)
	}
}

func TestRegistryCloneRestore(t *testing.T) {
	registry, ledger, _ := newTestRegistry(t)
	settleStandardVault(t, registry, ledger)

	before := registry.Clone()
	custom := addr(42)
	if err := registry.Create(registrarAddr, custom, totemToken, true); err != nil {
		t.Fatalf("create: %v", err)
	}
	registry.Restore(before)
	if _, ok := registry.Get(custom); ok {
		t.Fatal("restore kept the new vault")
	}
	record, ok := registry.Get(totemAddr)
	if !ok || !record.Settled {
		t.Fatal("restore lost the settled vault")
	}
}

func TestRegistrySnapshotRoundTrip(t *testing.T) {
	registry, ledger, caps := newTestRegistry(t)
	settleStandardVault(t, registry, ledger)

	restored, err := NewRegistry(ledger, caps, treasuryAddr, saleAddr, rewardToken)
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	restored.LoadSnapshot(registry.Snapshot())
	record, ok := restored.Get(totemAddr)
	if !ok || !record.Settled || record.PaymentToken != paymentToken || record.LiquidityToken != liquidityToken {
		t.Fatalf("snapshot round trip lost state: %+v", record)
	}
}

func TestRedeemWhilePaused(t *testing.T) {
	registry, ledger, _ := newTestRegistry(t)
	settleStandardVault(t, registry, ledger)

	pauses := common.NewPauseSet()
	registry.SetPauseView(pauses)
	pauses.SetPaused(ModuleName, true)
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(200)); err != common.ErrModulePaused {
		t.Fatalf("redeem while paused: %v", err)
	}

	pauses.SetPaused(ModuleName, false)
	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(200)); err != nil {
		t.Fatalf("redeem after unpause: %v", err)
	}
}

// A sale settled in the reward token must pay the shared balance once, not
// once per payout slot.
func TestRedeemWithPaymentTokenEqualReward(t *testing.T) {
	registry, ledger, _ := newTestRegistry(t)
	if err := registry.Create(registrarAddr, totemAddr, totemToken, false); err != nil {
		t.Fatalf("create vault: %v", err)
	}
	if err := ledger.Mint(totemToken, holderAddr, big.NewInt(600)); err != nil {
		t.Fatalf("mint holder: %v", err)
	}
	if err := ledger.Mint(rewardToken, totemAddr, big.NewInt(300)); err != nil {
		t.Fatalf("mint proceeds: %v", err)
	}
	if err := ledger.Mint(liquidityToken, totemAddr, big.NewInt(90)); err != nil {
		t.Fatalf("mint liquidity: %v", err)
	}
	if err := registry.SettleSaleClosure(saleAddr, totemAddr, rewardToken, liquidityToken); err != nil {
		t.Fatalf("settle: %v", err)
	}

	if err := registry.Redeem(holderAddr, totemAddr, big.NewInt(200)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if got := ledger.BalanceOf(rewardToken, holderAddr); got.Cmp(big.NewInt(100)) != 0 {
		t.Fatalf("reward payout = %s, want 100 paid exactly once", got)
	}
	if got := ledger.BalanceOf(rewardToken, totemAddr); got.Cmp(big.NewInt(200)) != 0 {
		t.Fatalf("vault retains %s, want 200", got)
	}
	if got := ledger.BalanceOf(liquidityToken, holderAddr); got.Cmp(big.NewInt(30)) != 0 {
		t.Fatalf("liquidity payout = %s, want 30", got)
	}
}
