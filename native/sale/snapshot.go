package sale

import (
	"bytes"
	"math/big"
	"sort"
)

// TotemEntry is one serializable sale ledger record.
type TotemEntry struct {
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

// PositionEntry is one serializable buyer position.
type PositionEntry struct {
	Buyer       [20]byte
	Totem       [20]byte
	Contributed *big.Int
	Held        *big.Int
}

// ParamsSnapshot is the serializable form of the engine parameters.
type ParamsSnapshot struct {
	PaymentToken       [20]byte
	Treasury           [20]byte
	PriceUsd           *big.Int
	PerAddressCap      *big.Int
	ReservedPoolSupply *big.Int
	InitialSupply      *big.Int
	CreatorAllotment   *big.Int
	VaultAllotment     *big.Int
	OracleStaleness    uint64
	TreasuryBps        uint64
	CreatorBps         uint64
	VaultBps           uint64
	PoolBps            uint64
}

// EngineSnapshot is the full serializable state of the sale engine. Oracle
// feeds and the router are wiring, not state, and are rebound on load.
type EngineSnapshot struct {
	Params    ParamsSnapshot
	Totems    []TotemEntry
	Positions []PositionEntry
	Allowed   [][20]byte
}

// Snapshot renders the engine into its deterministic serializable form.
func (e *Engine) Snapshot() *EngineSnapshot {
	snapshot := &EngineSnapshot{
		Params: ParamsSnapshot{
			PaymentToken:       e.params.PaymentToken,
			Treasury:           e.params.Treasury,
			PriceUsd:           copyBigInt(e.params.PriceUsd),
			PerAddressCap:      copyBigInt(e.params.PerAddressCap),
			ReservedPoolSupply: copyBigInt(e.params.ReservedPoolSupply),
			InitialSupply:      copyBigInt(e.params.InitialSupply),
			CreatorAllotment:   copyBigInt(e.params.CreatorAllotment),
			VaultAllotment:     copyBigInt(e.params.VaultAllotment),
			OracleStaleness:    uint64(e.params.OracleStaleness),
			TreasuryBps:        e.params.Shares.TreasuryBps,
			CreatorBps:         e.params.Shares.CreatorBps,
			VaultBps:           e.params.Shares.VaultBps,
			PoolBps:            e.params.Shares.PoolBps,
		},
	}
	for _, addr := range e.order {
		record := e.totems[addr]
		snapshot.Totems = append(snapshot.Totems, TotemEntry{
			Address:       record.Address,
			Owner:         record.Owner,
			Token:         record.Token,
			DataRef:       record.DataRef,
			Collaborators: append([][20]byte(nil), record.Collaborators...),
			CustomToken:   record.CustomToken,
			SaleOpen:      record.SaleOpen,
			Collected:     copyBigInt(record.Collected),
			PaymentToken:  record.PaymentToken,
			LiquidityTok:  record.LiquidityTok,
		})
	}
	for key, position := range e.positions {
		snapshot.Positions = append(snapshot.Positions, PositionEntry{
			Buyer:       key.buyer,
			Totem:       key.totem,
			Contributed: copyBigInt(position.Contributed),
			Held:        copyBigInt(position.Held),
		})
	}
	sort.Slice(snapshot.Positions, func(i, j int) bool {
		c := bytes.Compare(snapshot.Positions[i].Buyer[:], snapshot.Positions[j].Buyer[:])
		if c == 0 {
			return bytes.Compare(snapshot.Positions[i].Totem[:], snapshot.Positions[j].Totem[:]) < 0
		}
		return c < 0
	})
	for tok := range e.allowed {
		snapshot.Allowed = append(snapshot.Allowed, tok)
	}
	sort.Slice(snapshot.Allowed, func(i, j int) bool {
		return bytes.Compare(snapshot.Allowed[i][:], snapshot.Allowed[j][:]) < 0
	})
	return snapshot
}

// LoadSnapshot replaces the engine state with the snapshot's, keeping the
// wired collaborators and feeds.
func (e *Engine) LoadSnapshot(snapshot *EngineSnapshot) error {
	params := Params{
		PaymentToken:       snapshot.Params.PaymentToken,
		Treasury:           snapshot.Params.Treasury,
		PriceUsd:           copyBigInt(snapshot.Params.PriceUsd),
		PerAddressCap:      copyBigInt(snapshot.Params.PerAddressCap),
		ReservedPoolSupply: copyBigInt(snapshot.Params.ReservedPoolSupply),
		InitialSupply:      copyBigInt(snapshot.Params.InitialSupply),
		CreatorAllotment:   copyBigInt(snapshot.Params.CreatorAllotment),
		VaultAllotment:     copyBigInt(snapshot.Params.VaultAllotment),
		OracleStaleness:    int64(snapshot.Params.OracleStaleness),
		Shares: Shares{
			TreasuryBps: snapshot.Params.TreasuryBps,
			CreatorBps:  snapshot.Params.CreatorBps,
			VaultBps:    snapshot.Params.VaultBps,
			PoolBps:     snapshot.Params.PoolBps,
		},
	}
	if err := params.Validate(); err != nil {
		return err
	}
	e.params = params
	e.totems = make(map[[20]byte]*TotemRecord, len(snapshot.Totems))
	e.order = e.order[:0]
	for _, entry := range snapshot.Totems {
		e.totems[entry.Address] = &TotemRecord{
			Address:       entry.Address,
			Owner:         entry.Owner,
			Token:         entry.Token,
			DataRef:       entry.DataRef,
			Collaborators: append([][20]byte(nil), entry.Collaborators...),
			CustomToken:   entry.CustomToken,
			SaleOpen:      entry.SaleOpen,
			Collected:     copyBigInt(entry.Collected),
			PaymentToken:  entry.PaymentToken,
			LiquidityTok:  entry.LiquidityTok,
		}
		e.order = append(e.order, entry.Address)
	}
	e.positions = make(map[positionKey]*Position, len(snapshot.Positions))
	for _, entry := range snapshot.Positions {
		e.positions[positionKey{buyer: entry.Buyer, totem: entry.Totem}] = &Position{
			Contributed: copyBigInt(entry.Contributed),
			Held:        copyBigInt(entry.Held),
		}
	}
	e.allowed = make(map[[20]byte]bool, len(snapshot.Allowed))
	for _, tok := range snapshot.Allowed {
		e.allowed[tok] = true
	}
	return nil
}
