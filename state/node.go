package state

import (
	"math/big"

	"lukechampine.com/blake3"

	"totemchain/config"
	"totemchain/core/events"
	"totemchain/core/periods"
	"totemchain/native/capability"
	"totemchain/native/common"
	"totemchain/native/market"
	"totemchain/native/merit"
	"totemchain/native/sale"
	"totemchain/native/token"
	"totemchain/native/vault"
)

// ModuleAccount derives the deterministic ledger account owned by a native
// module. Module accounts have no key material; only engine code moves their
// balances.
func ModuleAccount(name string) [20]byte {
	h := blake3.New(32, nil)
	h.Write([]byte("totem/module/v1/"))
	h.Write([]byte(name))
	var addr [20]byte
	copy(addr[:], h.Sum(nil)[:20])
	return addr
}

// Bootstrap builds the fully wired engine set from a validated configuration.
// The returned processor holds genesis state: tokens registered, the four
// annual reward tranches minted into the vesting source, module capabilities
// and operator rights granted. Callers overlay a persisted checkpoint with
// Load afterwards.
func Bootstrap(cfg *config.Config, emitter events.Emitter) (*Processor, error) {
	// Engines emit into a staging buffer owned by the processor; records
	// only reach the downstream emitter when the operation commits.
	staged := events.NewStaged(emitter)
	admin, err := cfg.AdminAddress()
	if err != nil {
		return nil, err
	}
	meritParams, err := cfg.MeritParams()
	if err != nil {
		return nil, err
	}
	saleParams, err := cfg.SaleParams()
	if err != nil {
		return nil, err
	}

	meritAccount := ModuleAccount("merit")
	saleAccount := ModuleAccount("sale")
	vestingSource := ModuleAccount("vesting")

	ledger := token.NewLedger()
	for _, tok := range [][20]byte{meritParams.RewardToken, saleParams.PaymentToken} {
		if err := ledger.Register(tok); err != nil {
			return nil, err
		}
		if err := ledger.SetTransfersEnabled(tok, true); err != nil {
			return nil, err
		}
	}

	total := new(big.Int)
	for _, tranche := range meritParams.YearAllocation {
		total.Add(total, tranche)
	}
	if total.Sign() > 0 {
		if err := ledger.Mint(meritParams.RewardToken, vestingSource, total); err != nil {
			return nil, err
		}
	}

	caps := capability.NewRegistry(admin)
	pauses := common.NewPauseSet()
	clock, err := periods.NewClock(cfg.StartTime, cfg.PeriodDuration)
	if err != nil {
		return nil, err
	}

	schedule := merit.NewTrancheSchedule(ledger, meritParams.RewardToken, vestingSource, meritParams.YearAllocation)
	meritEngine, err := merit.NewEngine(meritParams, clock, ledger, caps, schedule, meritAccount)
	if err != nil {
		return nil, err
	}
	meritEngine.SetEmitter(staged)
	meritEngine.SetPauseView(pauses)

	pool := market.NewPool(ledger, saleAccount)

	vaults, err := vault.NewRegistry(ledger, caps, saleParams.Treasury, saleAccount, meritParams.RewardToken)
	if err != nil {
		return nil, err
	}
	vaults.SetClaimer(meritEngine)
	vaults.SetEmitter(staged)
	vaults.SetPauseView(pauses)

	saleEngine, err := sale.NewEngine(saleParams, ledger, pool, meritEngine, vaults, caps, saleAccount)
	if err != nil {
		return nil, err
	}
	saleEngine.SetEmitter(staged)
	saleEngine.SetPauseView(pauses)

	// The sale engine registers totems with the merit ledger on behalf of
	// factories, and pulls buyer payments as a payment-token operator.
	if err := caps.Grant(admin, saleAccount, capability.CapRegistrar); err != nil {
		return nil, err
	}
	if err := ledger.SetOperator(saleParams.PaymentToken, saleAccount, true); err != nil {
		return nil, err
	}

	return &Processor{
		Ledger:   ledger,
		Caps:     caps,
		Merit:    meritEngine,
		Sale:     saleEngine,
		Vaults:   vaults,
		Schedule: schedule,
		Pool:     pool,
		Pauses:   pauses,
		Events:   staged,
	}, nil
}
