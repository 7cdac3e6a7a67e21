package state

import (
	"errors"

	"totemchain/core/events"
	"totemchain/native/capability"
	"totemchain/native/common"
	"totemchain/native/market"
	"totemchain/native/merit"
	"totemchain/native/sale"
	"totemchain/native/token"
	"totemchain/native/vault"
)

// Processor owns the wired set of engines and gives the external sequencer
// an atomic application boundary: one operation either completes in full or
// leaves no trace.
type Processor struct {
	Ledger   *token.Ledger
	Caps     *capability.Registry
	Merit    *merit.Engine
	Sale     *sale.Engine
	Vaults   *vault.Registry
	Schedule *merit.TrancheSchedule
	Pool     *market.Pool
	Pauses   *common.PauseSet

	// Events stages each operation's audit records: flushed downstream on
	// commit, discarded on rollback, so the journal never carries a record
	// for an operation that left no state behind.
	Events *events.Staged
}

// snapshot captures the pre-operation state of every component.
type snapshot struct {
	ledger   *token.Ledger
	caps     *capability.Registry
	merit    *merit.Engine
	sale     *sale.Engine
	vaults   *vault.Registry
	schedule *merit.TrancheSchedule
	pool     *market.Pool
	pauses   *common.PauseSet
}

func (p *Processor) snapshot() snapshot {
	return snapshot{
		ledger:   p.Ledger.Clone(),
		caps:     p.Caps.Clone(),
		merit:    p.Merit.Clone(),
		sale:     p.Sale.Clone(),
		vaults:   p.Vaults.Clone(),
		schedule: p.Schedule.Clone(),
		pool:     p.Pool.Clone(),
		pauses:   p.Pauses.Clone(),
	}
}

func (p *Processor) restore(s snapshot) {
	p.Ledger.Restore(s.ledger)
	p.Caps.Restore(s.caps)
	p.Merit.Restore(s.merit)
	p.Sale.Restore(s.sale)
	p.Vaults.Restore(s.vaults)
	p.Schedule.Restore(s.schedule)
	p.Pool.Restore(s.pool)
	p.Pauses.Restore(s.pauses)
}

// Apply runs one sequenced operation against the engines. When the
// operation fails, every state change it made is rolled back and its staged
// audit records are discarded before the error is returned; partial effects
// are never observable, in state or in the journal.
func (p *Processor) Apply(op func() error) error {
	before := p.snapshot()
	if err := op(); err != nil {
		p.restore(before)
		p.Events.Discard()
		return err
	}
	p.Events.Flush()
	return nil
}

// SetPaused flips a module's governance pause switch. Admin-gated.
func (p *Processor) SetPaused(caller [20]byte, module string, paused bool) error {
	if p.Pauses == nil {
		return errors.New("state: pause switchboard not wired")
	}
	if !p.Caps.Has(caller, capability.CapAdmin) {
		return capability.ErrUnauthorized
	}
	p.Pauses.SetPaused(module, paused)
	return nil
}

// Persist writes a checkpoint of every component to the manager.
func (p *Processor) Persist(m *Manager) error {
	if err := m.KVPut(keyTokenLedger, p.Ledger.Snapshot()); err != nil {
		return err
	}
	if err := m.KVPut(keyCapRegistry, p.Caps.Snapshot()); err != nil {
		return err
	}
	if err := m.KVPut(keyMeritEngine, p.Merit.Snapshot()); err != nil {
		return err
	}
	if err := m.KVPut(keySaleEngine, p.Sale.Snapshot()); err != nil {
		return err
	}
	if err := m.KVPut(keyVaultRegistry, p.Vaults.Snapshot()); err != nil {
		return err
	}
	if p.Schedule != nil {
		if err := m.KVPut(keySchedule, p.Schedule.Snapshot()); err != nil {
			return err
		}
	}
	if p.Pool != nil {
		if err := m.KVPut(keyPool, p.Pool.Snapshot()); err != nil {
			return err
		}
	}
	if p.Pauses != nil {
		if err := m.KVPut(keyPauses, p.Pauses.Paused()); err != nil {
			return err
		}
	}
	return nil
}

// Load restores every component from the latest checkpoint. Components with
// no stored record keep their current state.
func (p *Processor) Load(m *Manager) error {
	var ledgerSnap token.LedgerSnapshot
	if ok, err := m.KVGet(keyTokenLedger, &ledgerSnap); err != nil {
		return err
	} else if ok {
		p.Ledger.LoadSnapshot(&ledgerSnap)
	}
	var capsSnap capability.RegistrySnapshot
	if ok, err := m.KVGet(keyCapRegistry, &capsSnap); err != nil {
		return err
	} else if ok {
		p.Caps.LoadSnapshot(&capsSnap)
	}
	var meritSnap merit.EngineSnapshot
	if ok, err := m.KVGet(keyMeritEngine, &meritSnap); err != nil {
		return err
	} else if ok {
		if err := p.Merit.LoadSnapshot(&meritSnap); err != nil {
			return err
		}
	}
	var saleSnap sale.EngineSnapshot
	if ok, err := m.KVGet(keySaleEngine, &saleSnap); err != nil {
		return err
	} else if ok {
		if err := p.Sale.LoadSnapshot(&saleSnap); err != nil {
			return err
		}
	}
	var vaultSnap vault.RegistrySnapshot
	if ok, err := m.KVGet(keyVaultRegistry, &vaultSnap); err != nil {
		return err
	} else if ok {
		p.Vaults.LoadSnapshot(&vaultSnap)
	}
	if p.Schedule != nil {
		var scheduleSnap merit.ScheduleSnapshot
		if ok, err := m.KVGet(keySchedule, &scheduleSnap); err != nil {
			return err
		} else if ok {
			p.Schedule.LoadSnapshot(&scheduleSnap)
		}
	}
	if p.Pool != nil {
		var poolSnap market.PoolSnapshot
		if ok, err := m.KVGet(keyPool, &poolSnap); err != nil {
			return err
		} else if ok {
			p.Pool.LoadSnapshot(&poolSnap)
		}
	}
	if p.Pauses != nil {
		var paused []string
		if ok, err := m.KVGet(keyPauses, &paused); err != nil {
			return err
		} else if ok {
			p.Pauses.SetAll(paused)
		}
	}
	return nil
}
