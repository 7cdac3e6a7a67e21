package state

import (
	"encoding/hex"
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"

	"totemchain/config"
	"totemchain/core/events"
	"totemchain/native/capability"
	"totemchain/native/common"
	"totemchain/native/merit"
	"totemchain/native/sale"
	"totemchain/native/token"
	"totemchain/storage"
)

func addr(index byte) [20]byte {
	var out [20]byte
	out[19] = index
	return out
}

func hexAddr(a [20]byte) string {
	return "0x" + hex.EncodeToString(a[:])
}

var (
	adminAddr    = addr(1)
	treasuryAddr = addr(2)
	paymentToken = addr(10)
	rewardToken  = addr(11)
	totemAddr    = addr(40)
	totemToken   = addr(12)
)

func testConfig() *config.Config {
	return &config.Config{
		DataDir:        ".",
		LogLevel:       "info",
		StartTime:      0,
		PeriodDuration: 1000,
		Admin:          hexAddr(adminAddr),
		Treasury:       hexAddr(treasuryAddr),
		PaymentToken:   hexAddr(paymentToken),
		RewardToken:    hexAddr(rewardToken),
		Merit: config.MeritConfig{
			MultiplierBps:  15000,
			BoostFee:       "100",
			BoostAward:     "50",
			PeriodsPerYear: 10,
			YearAllocation: [4]string{"10000", "20000", "30000", "40000"},
		},
		Sale: config.SaleConfig{
			PriceUsd:           "4000000",
			PerAddressCap:      "3000",
			ReservedPoolSupply: "5500",
			InitialSupply:      "10000",
			CreatorAllotment:   "1000",
			VaultAllotment:     "1000",
			OracleStaleness:    3600,
			Shares:             config.SharesConfig{TreasuryBps: 2500, CreatorBps: 2500, VaultBps: 2500, PoolBps: 2500},
		},
	}
}

func TestBootstrapGenesis(t *testing.T) {
	processor, err := Bootstrap(testConfig(), nil)
	require.NoError(t, err)

	// The four-year allocation sits in the vesting source.
	vesting := ModuleAccount("vesting")
	require.Equal(t, "100000", processor.Ledger.BalanceOf(rewardToken, vesting).String())
	require.True(t, processor.Ledger.TransfersEnabled(rewardToken))
	require.True(t, processor.Ledger.TransfersEnabled(paymentToken))

	// Module wiring: admin capability, sale registrar grant, sale payment
	// operator rights.
	require.True(t, processor.Caps.Has(adminAddr, capability.CapAdmin))
	require.True(t, processor.Caps.Has(ModuleAccount("sale"), capability.CapRegistrar))
	// The sale account is a payment-token operator: pulling from an empty
	// account fails on balance, not on authority.
	err = processor.Ledger.OperatorTransfer(paymentToken, ModuleAccount("sale"), vesting, treasuryAddr, big.NewInt(1))
	require.ErrorIs(t, err, token.ErrInsufficientBalance)
}

func TestApplyRollsBackOnError(t *testing.T) {
	processor, err := Bootstrap(testConfig(), nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = processor.Apply(func() error {
		if err := processor.Caps.Grant(adminAddr, totemAddr, capability.CapRegistrar); err != nil {
			return err
		}
		if err := processor.Ledger.Mint(rewardToken, treasuryAddr, big.NewInt(500)); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Every mutation the failed operation made is gone.
	require.False(t, processor.Caps.Has(totemAddr, capability.CapRegistrar))
	require.Equal(t, "0", processor.Ledger.BalanceOf(rewardToken, treasuryAddr).String())
}

func TestApplyKeepsSuccessfulChanges(t *testing.T) {
	processor, err := Bootstrap(testConfig(), nil)
	require.NoError(t, err)

	err = processor.Apply(func() error {
		return processor.Caps.Grant(adminAddr, totemAddr, capability.CapMeritSource)
	})
	require.NoError(t, err)
	require.True(t, processor.Caps.Has(totemAddr, capability.CapMeritSource))
}

func TestPersistLoadRoundTrip(t *testing.T) {
	cfg := testConfig()
	processor, err := Bootstrap(cfg, nil)
	require.NoError(t, err)

	now := int64(100)
	processor.Merit.SetNowFunc(func() int64 { return now })

	require.NoError(t, processor.Caps.Grant(adminAddr, adminAddr, capability.CapRegistrar))
	require.NoError(t, processor.Caps.Grant(adminAddr, adminAddr, capability.CapMeritSource))
	require.NoError(t, processor.Ledger.Register(totemToken))
	require.NoError(t, processor.Merit.Register(adminAddr, totemAddr, totemToken))
	_, err = processor.Merit.CreditMerit(adminAddr, totemAddr, big.NewInt(10))
	require.NoError(t, err)
	now = 1100
	require.NoError(t, processor.Merit.Advance(adminAddr))

	db := storage.NewMemDB()
	manager, err := NewManager(db)
	require.NoError(t, err)
	require.NoError(t, processor.Persist(manager))

	restored, err := Bootstrap(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, restored.Load(manager))
	restored.Merit.SetNowFunc(func() int64 { return now })

	require.True(t, restored.Caps.Has(adminAddr, capability.CapRegistrar))
	require.True(t, restored.Merit.Registered(totemAddr))
	require.Equal(t, "10", restored.Merit.Points(totemAddr, 0).String())
	require.Equal(t, "1000", restored.Merit.Released(0).String())
	// The vesting pull is reflected in both the ledger and the schedule.
	require.Equal(t, "10000", restored.Ledger.BalanceOf(rewardToken, ModuleAccount("merit")).String())

	share, err := restored.Merit.Claim(totemAddr, 0)
	require.NoError(t, err)
	require.Equal(t, "1000", share.String())
}

func TestModuleAccountsAreDistinct(t *testing.T) {
	names := []string{"merit", "sale", "vesting"}
	seen := make(map[[20]byte]string)
	for _, name := range names {
		account := ModuleAccount(name)
		require.Equal(t, account, ModuleAccount(name))
		if prior, ok := seen[account]; ok {
			t.Fatalf("accounts collide: %s and %s", prior, name)
		}
		seen[account] = name
	}
}

func TestFailedApplyLeavesJournalUntouched(t *testing.T) {
	journal := events.NewJournal()
	processor, err := Bootstrap(testConfig(), journal)
	require.NoError(t, err)
	require.NoError(t, processor.Caps.Grant(adminAddr, adminAddr, capability.CapRegistrar))
	require.NoError(t, processor.Ledger.Register(totemToken))

	boom := errors.New("boom")
	err = processor.Apply(func() error {
		if err := processor.Merit.Register(adminAddr, totemAddr, totemToken); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	// The registration rolled back and its audit record never reached the
	// journal.
	require.False(t, processor.Merit.Registered(totemAddr))
	require.Zero(t, journal.Len())
	require.Zero(t, processor.Events.Pending())

	// A committed operation lands in the journal as usual.
	require.NoError(t, processor.Apply(func() error {
		return processor.Merit.Register(adminAddr, totemAddr, totemToken)
	}))
	require.Equal(t, 1, journal.Len())
	require.Equal(t, merit.EventTypeTotemRegistered, journal.Entries()[0].Type)
}

func TestPauseSwitchboard(t *testing.T) {
	cfg := testConfig()
	processor, err := Bootstrap(cfg, nil)
	require.NoError(t, err)

	require.ErrorIs(t, processor.SetPaused(treasuryAddr, sale.ModuleName, true), capability.ErrUnauthorized)
	require.NoError(t, processor.SetPaused(adminAddr, sale.ModuleName, true))
	err = processor.Sale.Buy(treasuryAddr, totemAddr, big.NewInt(1))
	require.ErrorIs(t, err, common.ErrModulePaused)

	// The switch survives a checkpoint round trip.
	db := storage.NewMemDB()
	manager, err := NewManager(db)
	require.NoError(t, err)
	require.NoError(t, processor.Persist(manager))
	restored, err := Bootstrap(cfg, nil)
	require.NoError(t, err)
	require.NoError(t, restored.Load(manager))
	require.True(t, restored.Pauses.IsPaused(sale.ModuleName))

	// Unpausing restores the operation path.
	require.NoError(t, processor.SetPaused(adminAddr, sale.ModuleName, false))
	err = processor.Sale.Buy(treasuryAddr, totemAddr, big.NewInt(1))
	require.ErrorIs(t, err, sale.ErrNotRegistered)
}

func TestPauseRollsBackWithOperation(t *testing.T) {
	processor, err := Bootstrap(testConfig(), nil)
	require.NoError(t, err)

	boom := errors.New("boom")
	err = processor.Apply(func() error {
		if err := processor.SetPaused(adminAddr, merit.ModuleName, true); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)
	require.False(t, processor.Pauses.IsPaused(merit.ModuleName))
}
