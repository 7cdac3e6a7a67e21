package merit

import (
	"errors"
	"fmt"
	"math/big"
)

// Schedule is the external vesting source the waterfall pulls reward supply
// from. Release moves whatever part of the year's tranche has not been
// pulled yet to the recipient and returns the moved amount; a second call
// for the same year returns zero.
type Schedule interface {
	Release(year uint8, recipient [20]byte) (*big.Int, error)
}

// ErrTrancheOutOfRange indicates a year index beyond the four-tranche
// schedule.
var ErrTrancheOutOfRange = errors.New("merit: tranche year out of range")

// transferLedger is the slice of the custody ledger the schedule needs.
type transferLedger interface {
	Transfer(tok [20]byte, from, to [20]byte, amount *big.Int) error
	BalanceOf(tok [20]byte, account [20]byte) *big.Int
}

// TrancheSchedule is a ledger-backed Schedule: the full reward allocation
// sits pre-funded in a source account and each annual tranche is handed over
// at most once, when the waterfall first touches that year.
type TrancheSchedule struct {
	ledger      transferLedger
	rewardToken [20]byte
	source      [20]byte
	tranches    [TrancheYears]*big.Int
	pulled      [TrancheYears]bool
}

// NewTrancheSchedule constructs a schedule releasing the given annual
// tranches of rewardToken out of the source account.
func NewTrancheSchedule(ledger transferLedger, rewardToken [20]byte, source [20]byte, tranches [TrancheYears]*big.Int) *TrancheSchedule {
	s := &TrancheSchedule{ledger: ledger, rewardToken: rewardToken, source: source}
	for i, amount := range tranches {
		if amount == nil {
			amount = big.NewInt(0)
		}
		s.tranches[i] = new(big.Int).Set(amount)
	}
	return s
}

// Release implements the Schedule interface.
func (s *TrancheSchedule) Release(year uint8, recipient [20]byte) (*big.Int, error) {
	if int(year) >= TrancheYears {
		return nil, ErrTrancheOutOfRange
	}
	if s.pulled[year] {
		return big.NewInt(0), nil
	}
	amount := s.tranches[year]
	if amount.Sign() > 0 {
		if err := s.ledger.Transfer(s.rewardToken, s.source, recipient, amount); err != nil {
			return nil, fmt.Errorf("merit: pull tranche %d: %w", year, err)
		}
	}
	s.pulled[year] = true
	return new(big.Int).Set(amount), nil
}

// Clone returns a deep copy bound to the same ledger.
func (s *TrancheSchedule) Clone() *TrancheSchedule {
	if s == nil {
		return nil
	}
	clone := &TrancheSchedule{ledger: s.ledger, rewardToken: s.rewardToken, source: s.source, pulled: s.pulled}
	for i, amount := range s.tranches {
		clone.tranches[i] = new(big.Int).Set(amount)
	}
	return clone
}

// Restore copies the state of a snapshot produced by Clone back into the
// schedule.
func (s *TrancheSchedule) Restore(snapshot *TrancheSchedule) {
	if s == nil || snapshot == nil {
		return
	}
	restored := snapshot.Clone()
	s.tranches = restored.tranches
	s.pulled = restored.pulled
}

// ScheduleSnapshot is the serializable state of a tranche schedule.
type ScheduleSnapshot struct {
	RewardToken [20]byte
	Source      [20]byte
	Tranches    []*big.Int
	Pulled      []bool
}

// Snapshot renders the schedule into its serializable form.
func (s *TrancheSchedule) Snapshot() *ScheduleSnapshot {
	snapshot := &ScheduleSnapshot{RewardToken: s.rewardToken, Source: s.source}
	for i := range s.tranches {
		snapshot.Tranches = append(snapshot.Tranches, new(big.Int).Set(s.tranches[i]))
		snapshot.Pulled = append(snapshot.Pulled, s.pulled[i])
	}
	return snapshot
}

// LoadSnapshot replaces the schedule state with the snapshot's, keeping the
// wired ledger.
func (s *TrancheSchedule) LoadSnapshot(snapshot *ScheduleSnapshot) {
	s.rewardToken = snapshot.RewardToken
	s.source = snapshot.Source
	for i := 0; i < TrancheYears; i++ {
		if i < len(snapshot.Tranches) {
			s.tranches[i] = copyBigInt(snapshot.Tranches[i])
		} else {
			s.tranches[i] = big.NewInt(0)
		}
		s.pulled[i] = i < len(snapshot.Pulled) && snapshot.Pulled[i]
	}
}
