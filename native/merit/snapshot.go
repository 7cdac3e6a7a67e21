package merit

import (
	"bytes"
	"math/big"
	"sort"

	"totemchain/core/periods"
)

// PointEntry is one participant's points inside a period snapshot.
type PointEntry struct {
	Participant [20]byte
	Points      *big.Int
	Claimed     bool
}

// PeriodSnapshot is the serializable merit ledger of one period.
type PeriodSnapshot struct {
	Period uint64
	Total  *big.Int
	Points []PointEntry
}

// ReleaseEntry is one processed period of the vesting waterfall.
type ReleaseEntry struct {
	Period uint64
	Amount *big.Int
}

// BoostEntry is one (period, caller) boost record.
type BoostEntry struct {
	Period uint64
	Caller [20]byte
	Totem  [20]byte
}

// TotemEntry is one registry entry.
type TotemEntry struct {
	Address      [20]byte
	Token        [20]byte
	RegisteredAt uint64
}

// ParamsSnapshot is the serializable form of the engine parameters.
type ParamsSnapshot struct {
	MultiplierBps  uint64
	BoostFee       *big.Int
	BoostAward     *big.Int
	FeeToken       [20]byte
	RewardToken    [20]byte
	Treasury       [20]byte
	PeriodsPerYear uint64
	YearAllocation []*big.Int
}

// ClockSnapshot is the checkpointed state of the period clock.
type ClockSnapshot struct {
	StartTime   uint64
	Accumulated uint64
	Duration    uint64
}

// EngineSnapshot is the full serializable state of the merit engine.
type EngineSnapshot struct {
	Params        ParamsSnapshot
	Clock         ClockSnapshot
	Totems        []TotemEntry
	Periods       []PeriodSnapshot
	Released      []ReleaseEntry
	LastProcessed uint64
	Boosts        []BoostEntry
}

// Snapshot renders the engine into its deterministic serializable form.
func (e *Engine) Snapshot() *EngineSnapshot {
	snapshot := &EngineSnapshot{
		Params: ParamsSnapshot{
			MultiplierBps:  e.params.MultiplierBps,
			BoostFee:       copyBigInt(e.params.BoostFee),
			BoostAward:     copyBigInt(e.params.BoostAward),
			FeeToken:       e.params.FeeToken,
			RewardToken:    e.params.RewardToken,
			Treasury:       e.params.Treasury,
			PeriodsPerYear: e.params.PeriodsPerYear,
		},
		Clock: ClockSnapshot{
			StartTime:   uint64(e.clock.StartTime()),
			Accumulated: e.clock.AccumulatedPeriods(),
			Duration:    uint64(e.clock.Duration()),
		},
		LastProcessed: e.lastProcessed,
	}
	for _, alloc := range e.params.YearAllocation {
		snapshot.Params.YearAllocation = append(snapshot.Params.YearAllocation, copyBigInt(alloc))
	}
	for _, addr := range e.order {
		record := e.totems[addr]
		snapshot.Totems = append(snapshot.Totems, TotemEntry{
			Address:      record.Address,
			Token:        record.Token,
			RegisteredAt: uint64(record.RegisteredAt),
		})
	}
	for period, ledger := range e.periods {
		entry := PeriodSnapshot{Period: period, Total: new(big.Int).Set(ledger.total)}
		for participant, points := range ledger.points {
			entry.Points = append(entry.Points, PointEntry{
				Participant: participant,
				Points:      new(big.Int).Set(points),
				Claimed:     ledger.claimed[participant],
			})
		}
		sort.Slice(entry.Points, func(i, j int) bool {
			return bytes.Compare(entry.Points[i].Participant[:], entry.Points[j].Participant[:]) < 0
		})
		snapshot.Periods = append(snapshot.Periods, entry)
	}
	sort.Slice(snapshot.Periods, func(i, j int) bool {
		return snapshot.Periods[i].Period < snapshot.Periods[j].Period
	})
	for period, amount := range e.released {
		snapshot.Released = append(snapshot.Released, ReleaseEntry{Period: period, Amount: new(big.Int).Set(amount)})
	}
	sort.Slice(snapshot.Released, func(i, j int) bool {
		return snapshot.Released[i].Period < snapshot.Released[j].Period
	})
	for key, totem := range e.boosted {
		snapshot.Boosts = append(snapshot.Boosts, BoostEntry{Period: key.period, Caller: key.caller, Totem: totem})
	}
	sort.Slice(snapshot.Boosts, func(i, j int) bool {
		if snapshot.Boosts[i].Period != snapshot.Boosts[j].Period {
			return snapshot.Boosts[i].Period < snapshot.Boosts[j].Period
		}
		return bytes.Compare(snapshot.Boosts[i].Caller[:], snapshot.Boosts[j].Caller[:]) < 0
	})
	return snapshot
}

// LoadSnapshot replaces the engine state with the snapshot's, keeping the
// wired collaborators.
func (e *Engine) LoadSnapshot(snapshot *EngineSnapshot) error {
	clock, err := periods.NewClockAt(int64(snapshot.Clock.StartTime), snapshot.Clock.Accumulated, int64(snapshot.Clock.Duration))
	if err != nil {
		return err
	}
	params := Params{
		MultiplierBps:  snapshot.Params.MultiplierBps,
		BoostFee:       copyBigInt(snapshot.Params.BoostFee),
		BoostAward:     copyBigInt(snapshot.Params.BoostAward),
		FeeToken:       snapshot.Params.FeeToken,
		RewardToken:    snapshot.Params.RewardToken,
		Treasury:       snapshot.Params.Treasury,
		PeriodsPerYear: snapshot.Params.PeriodsPerYear,
	}
	for i := range params.YearAllocation {
		if i < len(snapshot.Params.YearAllocation) {
			params.YearAllocation[i] = copyBigInt(snapshot.Params.YearAllocation[i])
		} else {
			params.YearAllocation[i] = big.NewInt(0)
		}
	}
	if err := params.Validate(); err != nil {
		return err
	}

	e.params = params
	e.clock = clock
	e.lastProcessed = snapshot.LastProcessed
	e.totems = make(map[[20]byte]*Totem, len(snapshot.Totems))
	e.order = e.order[:0]
	for _, entry := range snapshot.Totems {
		e.totems[entry.Address] = &Totem{
			Address:      entry.Address,
			Token:        entry.Token,
			RegisteredAt: int64(entry.RegisteredAt),
		}
		e.order = append(e.order, entry.Address)
	}
	e.periods = make(map[uint64]*periodLedger, len(snapshot.Periods))
	for _, entry := range snapshot.Periods {
		ledger := newPeriodLedger()
		ledger.total = copyBigInt(entry.Total)
		for _, point := range entry.Points {
			ledger.points[point.Participant] = copyBigInt(point.Points)
			if point.Claimed {
				ledger.claimed[point.Participant] = true
			}
		}
		e.periods[entry.Period] = ledger
	}
	e.released = make(map[uint64]*big.Int, len(snapshot.Released))
	for _, entry := range snapshot.Released {
		e.released[entry.Period] = copyBigInt(entry.Amount)
	}
	e.boosted = make(map[boostKey][20]byte, len(snapshot.Boosts))
	for _, entry := range snapshot.Boosts {
		e.boosted[boostKey{period: entry.Period, caller: entry.Caller}] = entry.Totem
	}
	return nil
}
