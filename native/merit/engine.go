package merit

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"totemchain/core/events"
	"totemchain/core/periods"
	"totemchain/native/capability"
	"totemchain/native/common"
)

// ModuleName identifies the engine on the governance pause switchboard.
const ModuleName = "merit"

var (
	// ErrUnauthorized indicates the caller lacks the required capability.
	ErrUnauthorized = errors.New("merit: caller lacks capability")
	// ErrInvalidAccount indicates the zero address was supplied.
	ErrInvalidAccount = errors.New("merit: invalid account")
	// ErrAlreadyRegistered indicates the totem is already in the registry.
	ErrAlreadyRegistered = errors.New("merit: totem already registered")
	// ErrNotRegistered indicates the totem is unknown to the registry.
	ErrNotRegistered = errors.New("merit: totem not registered")
	// ErrBlacklisted indicates the totem or caller is blacklisted.
	ErrBlacklisted = errors.New("merit: blacklisted")
	// ErrZeroAmount indicates a nil or non-positive merit amount.
	ErrZeroAmount = errors.New("merit: amount must be positive")
	// ErrFuturePeriod indicates a claim against the open or a future period.
	ErrFuturePeriod = errors.New("merit: period not closed yet")
	// ErrAlreadyClaimed indicates the (participant, period) pair was claimed
	// before.
	ErrAlreadyClaimed = errors.New("merit: already claimed")
	// ErrNothingToClaim indicates zero points, zero period total or zero
	// released reward for the period.
	ErrNothingToClaim = errors.New("merit: nothing to claim")
	// ErrOutsideWindow indicates a boost outside the sub-period window.
	ErrOutsideWindow = errors.New("merit: outside sub-period window")
	// ErrAlreadyBoosted indicates the caller already boosted this period.
	ErrAlreadyBoosted = errors.New("merit: already boosted this period")
	// ErrNoTokenBalance indicates the booster holds none of the totem's
	// token.
	ErrNoTokenBalance = errors.New("merit: boost requires totem token balance")
	// ErrInsufficientFee indicates the boost payment does not cover the fee.
	ErrInsufficientFee = errors.New("merit: payment below boost fee")
	// ErrBlacklistUnchanged indicates a blacklist toggle to the current
	// state.
	ErrBlacklistUnchanged = errors.New("merit: blacklist flag already in requested state")
)

// TokenLedger is the slice of the custody ledger the merit engine moves
// value through.
type TokenLedger interface {
	Transfer(tok [20]byte, from, to [20]byte, amount *big.Int) error
	BalanceOf(tok [20]byte, account [20]byte) *big.Int
}

// CapabilityAuthority is the capability registry surface the engine checks
// and toggles blacklist flags through.
type CapabilityAuthority interface {
	Has(account [20]byte, capability string) bool
	Grant(caller [20]byte, account [20]byte, capability string) error
	Revoke(caller [20]byte, account [20]byte, capability string) error
}

// Engine owns the period-indexed merit ledger, the boost ledger and the
// vesting-release waterfall. Claims settle shares of each closed period's
// released reward pool pro-rata by merit points.
type Engine struct {
	params   Params
	clock    *periods.Clock
	ledger   TokenLedger
	caps     CapabilityAuthority
	schedule Schedule
	emitter  events.Emitter
	nowFn    func() int64
	guard    common.CallGuard
	pauses   common.PauseView
	account  [20]byte

	totems  map[[20]byte]*Totem
	order   [][20]byte
	periods map[uint64]*periodLedger

	released      map[uint64]*big.Int
	lastProcessed uint64

	boosted map[boostKey][20]byte
}

// NewEngine constructs a merit engine settling through account, which holds
// the claimable reward pool.
func NewEngine(params Params, clock *periods.Clock, ledger TokenLedger, caps CapabilityAuthority, schedule Schedule, account [20]byte) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if clock == nil {
		return nil, errors.New("merit: clock required")
	}
	if ledger == nil {
		return nil, errors.New("merit: token ledger required")
	}
	if caps == nil {
		return nil, errors.New("merit: capability authority required")
	}
	return &Engine{
		params:   params.Clone(),
		clock:    clock,
		ledger:   ledger,
		caps:     caps,
		schedule: schedule,
		emitter:  events.NoopEmitter{},
		nowFn:    func() int64 { return time.Now().Unix() },
		account:  account,
		totems:   make(map[[20]byte]*Totem),
		periods:  make(map[uint64]*periodLedger),
		released: make(map[uint64]*big.Int),
		boosted:  make(map[boostKey][20]byte),
	}, nil
}

// SetEmitter configures the event emitter used by the engine.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// SetNowFunc overrides the time source used for deterministic testing.
func (e *Engine) SetNowFunc(now func() int64) {
	if now == nil {
		e.nowFn = func() int64 { return time.Now().Unix() }
		return
	}
	e.nowFn = now
}

// SetPauseView wires the governance pause switchboard. A nil view leaves the
// engine permanently running.
func (e *Engine) SetPauseView(view common.PauseView) { e.pauses = view }

// Clock exposes the engine's period clock.
func (e *Engine) Clock() *periods.Clock { return e.clock }

// CurrentPeriod returns the period open right now.
func (e *Engine) CurrentPeriod() uint64 { return e.clock.Current(e.nowFn()) }

// Register appends a totem to the registry. Capability-gated to registrar
// holders (the sale engine and direct-registration admins).
func (e *Engine) Register(caller [20]byte, totem [20]byte, tok [20]byte) error {
	if !e.caps.Has(caller, capability.CapRegistrar) {
		return ErrUnauthorized
	}
	if isZeroAddr(totem) || isZeroAddr(tok) {
		return ErrInvalidAccount
	}
	if _, ok := e.totems[totem]; ok {
		return ErrAlreadyRegistered
	}
	e.totems[totem] = &Totem{Address: totem, Token: tok, RegisteredAt: e.nowFn()}
	e.order = append(e.order, totem)
	e.emitter.Emit(totemRegisteredEvent(totem, tok))
	return nil
}

// Registered reports whether the totem is in the registry.
func (e *Engine) Registered(totem [20]byte) bool {
	_, ok := e.totems[totem]
	return ok
}

// Totems returns the registry in registration order.
func (e *Engine) Totems() [][20]byte {
	out := make([][20]byte, len(e.order))
	copy(out, e.order)
	return out
}

// CreditMerit adds activity points to a totem for the open period.
// Capability-gated to merit sources. Inside the sub-period window the amount
// is scaled by the configured multiplier, rounding down.
func (e *Engine) CreditMerit(caller [20]byte, totem [20]byte, amount *big.Int) (*big.Int, error) {
	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if !e.caps.Has(caller, capability.CapMeritSource) {
		return nil, ErrUnauthorized
	}
	if _, ok := e.totems[totem]; !ok {
		return nil, ErrNotRegistered
	}
	if e.caps.Has(totem, capability.CapBlacklisted) {
		return nil, ErrBlacklisted
	}
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	now := e.nowFn()
	credited := new(big.Int).Set(amount)
	inWindow := e.clock.InFinalQuarter(now)
	if inWindow {
		credited.Mul(credited, new(big.Int).SetUint64(e.params.MultiplierBps))
		credited.Div(credited, big.NewInt(BpsDenominator))
	}
	period := e.clock.Current(now)
	ledger := e.periodLedger(period)
	ledger.add(totem, credited)
	e.emitter.Emit(meritCreditedEvent(totem, period, amount, credited, inWindow))
	return credited, nil
}

// Boost lets a holder of the totem's token pay the boost fee for a fixed
// merit award. Only inside the sub-period window, at most once per caller
// per period. The fee goes to the treasury; any excess payment is refunded.
func (e *Engine) Boost(caller [20]byte, totem [20]byte, payment *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if e.caps.Has(caller, capability.CapBlacklisted) {
		return ErrBlacklisted
	}
	record, ok := e.totems[totem]
	if !ok {
		return ErrNotRegistered
	}
	if e.caps.Has(totem, capability.CapBlacklisted) {
		return ErrBlacklisted
	}
	now := e.nowFn()
	if !e.clock.InFinalQuarter(now) {
		return ErrOutsideWindow
	}
	period := e.clock.Current(now)
	key := boostKey{period: period, caller: caller}
	if _, ok := e.boosted[key]; ok {
		return ErrAlreadyBoosted
	}
	if e.ledger.BalanceOf(record.Token, caller).Sign() == 0 {
		return ErrNoTokenBalance
	}
	fee := copyBigInt(e.params.BoostFee)
	if payment == nil || payment.Cmp(fee) < 0 {
		return ErrInsufficientFee
	}
	if payment.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.FeeToken, caller, e.account, payment); err != nil {
			return fmt.Errorf("merit: collect boost payment: %w", err)
		}
	}
	if fee.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.FeeToken, e.account, e.params.Treasury, fee); err != nil {
			return fmt.Errorf("merit: forward boost fee: %w", err)
		}
	}
	if excess := new(big.Int).Sub(payment, fee); excess.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.FeeToken, e.account, caller, excess); err != nil {
			return fmt.Errorf("merit: refund boost excess: %w", err)
		}
	}
	e.boosted[key] = totem
	award := copyBigInt(e.params.BoostAward)
	if award.Sign() > 0 {
		e.periodLedger(period).add(totem, award)
	}
	e.emitter.Emit(boostedEvent(caller, totem, period, fee, award))
	return nil
}

// BoostedTotem returns which totem the caller boosted in the given period.
// Read-only convenience state, not used for accounting.
func (e *Engine) BoostedTotem(caller [20]byte, period uint64) ([20]byte, bool) {
	totem, ok := e.boosted[boostKey{period: period, caller: caller}]
	return totem, ok
}

// Claim settles the caller's pro-rata share of the released reward for a
// closed period. Callable only by the participant itself; forces the vesting
// waterfall forward first.
func (e *Engine) Claim(caller [20]byte, period uint64) (*big.Int, error) {
	if err := e.guard.Enter(); err != nil {
		return nil, err
	}
	defer e.guard.Exit()

	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return nil, err
	}
	if _, ok := e.totems[caller]; !ok {
		return nil, ErrNotRegistered
	}
	if e.caps.Has(caller, capability.CapBlacklisted) {
		return nil, ErrBlacklisted
	}
	now := e.nowFn()
	if period >= e.clock.Current(now) {
		return nil, ErrFuturePeriod
	}
	ledger := e.periodLedger(period)
	if ledger.claimed[caller] {
		return nil, ErrAlreadyClaimed
	}
	if err := e.advance(now); err != nil {
		return nil, err
	}
	points := ledger.pointsOf(caller)
	released, ok := e.released[period]
	if !ok || points.Sign() == 0 || ledger.total.Sign() == 0 || released.Sign() == 0 {
		return nil, ErrNothingToClaim
	}
	share := new(big.Int).Mul(released, points)
	share.Div(share, ledger.total)
	ledger.claimed[caller] = true
	if share.Sign() > 0 {
		if err := e.ledger.Transfer(e.params.RewardToken, e.account, caller, share); err != nil {
			return nil, fmt.Errorf("merit: settle claim: %w", err)
		}
	}
	e.emitter.Emit(rewardClaimedEvent(caller, period, share))
	return share, nil
}

// Claimed reports whether the (participant, period) pair has been claimed.
func (e *Engine) Claimed(participant [20]byte, period uint64) bool {
	ledger, ok := e.periods[period]
	if !ok {
		return false
	}
	return ledger.claimed[participant]
}

// Advance drives the vesting waterfall forward explicitly. Admin-gated; the
// same advancement also runs implicitly on every claim.
func (e *Engine) Advance(caller [20]byte) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	return e.advance(e.nowFn())
}

// advance back-fills the released reward pool for every period strictly
// between the last processed period and the current one, exclusive of the
// open period, then pulls the touched annual tranches from the vesting
// schedule. Idempotent: a second call in the same period is a no-op.
func (e *Engine) advance(now int64) error {
	current := e.clock.Current(now)
	if e.lastProcessed >= current {
		return nil
	}
	perPeriod := new(big.Int).SetUint64(e.params.PeriodsPerYear)
	touched := make(map[uint8]bool)
	for p := e.lastProcessed; p < current; p++ {
		if _, done := e.released[p]; done {
			continue
		}
		year := p / e.params.PeriodsPerYear
		if year >= TrancheYears {
			// Allocation exhausted: the fourth tranche is fully released.
			break
		}
		yr := uint8(year)
		allocation := copyBigInt(e.params.YearAllocation[yr])
		amount := new(big.Int).Div(allocation, perPeriod)
		e.released[p] = amount
		touched[yr] = true
		e.emitter.Emit(periodReleasedEvent(p, yr, amount))
	}
	if e.schedule != nil {
		for yr := uint8(0); yr < TrancheYears; yr++ {
			if !touched[yr] {
				continue
			}
			if _, err := e.schedule.Release(yr, e.account); err != nil {
				return err
			}
		}
	}
	e.lastProcessed = current
	return nil
}

// Released returns the reward pool released for a period, zero when the
// waterfall has not processed it.
func (e *Engine) Released(period uint64) *big.Int {
	amount, ok := e.released[period]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(amount)
}

// Points returns the merit points of a participant in a period.
func (e *Engine) Points(participant [20]byte, period uint64) *big.Int {
	ledger, ok := e.periods[period]
	if !ok {
		return big.NewInt(0)
	}
	return ledger.pointsOf(participant)
}

// TotalPoints returns the aggregate merit of a period.
func (e *Engine) TotalPoints(period uint64) *big.Int {
	ledger, ok := e.periods[period]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(ledger.total)
}

// SetBlacklisted toggles the blacklist flag for a totem. Fails when the flag
// is already in the requested state. Blacklisting freezes crediting,
// boosting and claiming but not reads or redemption.
func (e *Engine) SetBlacklisted(caller [20]byte, totem [20]byte, blacklisted bool) error {
	if _, ok := e.totems[totem]; !ok {
		return ErrNotRegistered
	}
	var err error
	if blacklisted {
		err = e.caps.Grant(caller, totem, capability.CapBlacklisted)
	} else {
		err = e.caps.Revoke(caller, totem, capability.CapBlacklisted)
	}
	switch {
	case errors.Is(err, capability.ErrAlreadyGranted), errors.Is(err, capability.ErrNotGranted):
		return ErrBlacklistUnchanged
	case errors.Is(err, capability.ErrUnauthorized):
		return ErrUnauthorized
	case err != nil:
		return err
	}
	e.emitter.Emit(blacklistUpdatedEvent(totem, blacklisted))
	return nil
}

// SetMultiplierBps updates the sub-period window multiplier.
func (e *Engine) SetMultiplierBps(caller [20]byte, bps uint64) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if bps < BpsDenominator {
		return fmt.Errorf("merit: multiplier must be >= %d bps", BpsDenominator)
	}
	e.params.MultiplierBps = bps
	e.emitter.Emit(paramUpdatedEvent("multiplierBps", strconv.FormatUint(bps, 10)))
	return nil
}

// SetBoostFee updates the payment required per boost.
func (e *Engine) SetBoostFee(caller [20]byte, fee *big.Int) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if fee == nil || fee.Sign() < 0 {
		return ErrZeroAmount
	}
	e.params.BoostFee = new(big.Int).Set(fee)
	e.emitter.Emit(paramUpdatedEvent("boostFee", fee.String()))
	return nil
}

// SetBoostAward updates the fixed merit granted per boost.
func (e *Engine) SetBoostAward(caller [20]byte, award *big.Int) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if award == nil || award.Sign() < 0 {
		return ErrZeroAmount
	}
	e.params.BoostAward = new(big.Int).Set(award)
	e.emitter.Emit(paramUpdatedEvent("boostAward", award.String()))
	return nil
}

// SetPeriodDuration changes the period length. The waterfall is forced
// forward first and the clock checkpoints its accumulated period count, so
// no period's released value straddles the duration change.
func (e *Engine) SetPeriodDuration(caller [20]byte, duration int64) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	now := e.nowFn()
	if err := e.advance(now); err != nil {
		return err
	}
	if err := e.clock.SetDuration(now, duration); err != nil {
		return err
	}
	e.emitter.Emit(paramUpdatedEvent("periodDuration", strconv.FormatInt(duration, 10)))
	return nil
}

// Params returns a copy of the active parameters.
func (e *Engine) Params() Params { return e.params.Clone() }

func (e *Engine) periodLedger(period uint64) *periodLedger {
	ledger, ok := e.periods[period]
	if !ok {
		ledger = newPeriodLedger()
		e.periods[period] = ledger
	}
	return ledger
}

// Clone returns a deep copy of the engine state sharing the same
// collaborators.
func (e *Engine) Clone() *Engine {
	if e == nil {
		return nil
	}
	clone := &Engine{
		params:        e.params.Clone(),
		clock:         e.clock.Clone(),
		ledger:        e.ledger,
		caps:          e.caps,
		schedule:      e.schedule,
		emitter:       e.emitter,
		nowFn:         e.nowFn,
		account:       e.account,
		totems:        make(map[[20]byte]*Totem, len(e.totems)),
		order:         append([][20]byte(nil), e.order...),
		periods:       make(map[uint64]*periodLedger, len(e.periods)),
		released:      make(map[uint64]*big.Int, len(e.released)),
		lastProcessed: e.lastProcessed,
		boosted:       make(map[boostKey][20]byte, len(e.boosted)),
	}
	for addr, totem := range e.totems {
		clone.totems[addr] = totem.Clone()
	}
	for period, ledger := range e.periods {
		clone.periods[period] = ledger.clone()
	}
	for period, amount := range e.released {
		clone.released[period] = new(big.Int).Set(amount)
	}
	for key, totem := range e.boosted {
		clone.boosted[key] = totem
	}
	return clone
}

// Restore copies the state of a snapshot produced by Clone back into the
// engine, leaving collaborator references untouched.
func (e *Engine) Restore(snapshot *Engine) {
	if e == nil || snapshot == nil {
		return
	}
	restored := snapshot.Clone()
	e.params = restored.params
	e.clock = restored.clock
	e.totems = restored.totems
	e.order = restored.order
	e.periods = restored.periods
	e.released = restored.released
	e.lastProcessed = restored.lastProcessed
	e.boosted = restored.boosted
}

func isZeroAddr(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
