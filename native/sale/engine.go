package sale

import (
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"totemchain/core/events"
	"totemchain/native/capability"
	"totemchain/native/common"
	"totemchain/native/market"
	"totemchain/native/oracle"
)

// ModuleName identifies the engine on the governance pause switchboard.
const ModuleName = "sale"

var (
	// ErrUnauthorized indicates the caller lacks the required capability.
	ErrUnauthorized = errors.New("sale: caller lacks capability")
	// ErrAlreadyRegistered indicates the totem already has a sale ledger
	// entry.
	ErrAlreadyRegistered = errors.New("sale: totem already registered")
	// ErrNotRegistered indicates the totem is unknown to the sale ledger.
	ErrNotRegistered = errors.New("sale: totem not registered")
	// ErrCustomToken indicates a custom-token totem was pushed through the
	// factory path.
	ErrCustomToken = errors.New("sale: custom tokens register directly")
	// ErrTokenNotAllowed indicates the existing token is not allow-listed.
	ErrTokenNotAllowed = errors.New("sale: token not allow-listed")
	// ErrSaleClosed indicates the sale has already settled.
	ErrSaleClosed = errors.New("sale: sale closed")
	// ErrZeroAmount indicates a nil or non-positive amount.
	ErrZeroAmount = errors.New("sale: amount must be positive")
	// ErrCapExceeded indicates the buy would exceed the per-address cap.
	ErrCapExceeded = errors.New("sale: per-address cap exceeded")
	// ErrInsufficientReserve indicates the buy would eat into the reserved
	// pool supply.
	ErrInsufficientReserve = errors.New("sale: insufficient pool reserve")
	// ErrInsufficientPayment indicates the buyer cannot cover the price.
	ErrInsufficientPayment = errors.New("sale: insufficient payment balance")
	// ErrPositionExceeded indicates a sell beyond the recorded position or
	// current balance.
	ErrPositionExceeded = errors.New("sale: sell exceeds position")
	// ErrZeroLiquidity indicates liquidity provisioning minted nothing.
	ErrZeroLiquidity = errors.New("sale: liquidity provisioning yielded zero units")
	// ErrUnderfunded indicates the factory did not seed the initial supply.
	ErrUnderfunded = errors.New("sale: initial supply not seeded")
)

// TokenLedger is the slice of the custody ledger the sale engine operates
// through.
type TokenLedger interface {
	Transfer(tok [20]byte, from, to [20]byte, amount *big.Int) error
	OperatorTransfer(tok [20]byte, operator [20]byte, from, to [20]byte, amount *big.Int) error
	BalanceOf(tok [20]byte, account [20]byte) *big.Int
	SetTransfersEnabled(tok [20]byte, enabled bool) error
	SetOperator(tok [20]byte, account [20]byte, operator bool) error
	Registered(tok [20]byte) bool
}

// Registrar registers settled totems with the merit engine.
type Registrar interface {
	Register(caller [20]byte, totem [20]byte, tok [20]byte) error
}

// VaultDirectory resolves totem vault accounts and carries the one
// unavoidable closure callback: telling the vault to record its settlement
// token identities.
type VaultDirectory interface {
	Account(totem [20]byte) ([20]byte, error)
	SettleSaleClosure(caller [20]byte, totem [20]byte, paymentToken, liquidityToken [20]byte) error
}

// CapabilityView exposes read access to the capability registry.
type CapabilityView interface {
	Has(account [20]byte, capability string) bool
}

// Engine operates the fixed-price primary sale for every totem token: the
// buy/sell ledger, the automatic closure trigger, the four-way proceeds
// split and the liquidity call-out.
type Engine struct {
	params  Params
	ledger  TokenLedger
	feeds   map[[20]byte]oracle.Feed
	router  market.Router
	merit   Registrar
	vaults  VaultDirectory
	caps    CapabilityView
	emitter events.Emitter
	nowFn   func() int64
	guard   common.CallGuard
	pauses  common.PauseView
	account [20]byte

	totems    map[[20]byte]*TotemRecord
	order     [][20]byte
	positions map[positionKey]*Position
	allowed   map[[20]byte]bool
}

// NewEngine constructs a sale engine custodying funds under account.
func NewEngine(params Params, ledger TokenLedger, router market.Router, meritEngine Registrar, vaults VaultDirectory, caps CapabilityView, account [20]byte) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if ledger == nil {
		return nil, errors.New("sale: token ledger required")
	}
	if router == nil {
		return nil, errors.New("sale: market router required")
	}
	if meritEngine == nil {
		return nil, errors.New("sale: merit registrar required")
	}
	if vaults == nil {
		return nil, errors.New("sale: vault directory required")
	}
	if caps == nil {
		return nil, errors.New("sale: capability view required")
	}
	return &Engine{
		params:    params.Clone(),
		ledger:    ledger,
		feeds:     make(map[[20]byte]oracle.Feed),
		router:    router,
		merit:     meritEngine,
		vaults:    vaults,
		caps:      caps,
		emitter:   events.NoopEmitter{},
		nowFn:     func() int64 { return time.Now().Unix() },
		account:   account,
		totems:    make(map[[20]byte]*TotemRecord),
		positions: make(map[positionKey]*Position),
		allowed:   make(map[[20]byte]bool),
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

// Account returns the engine's custody account.
func (e *Engine) Account() [20]byte { return e.account }

// RegisterFromFactory seeds the sale ledger entry for a freshly created
// totem. Only the designated factory may call it, exactly once per totem.
// The factory has already minted the fixed initial supply to the engine;
// the creator and vault allotments are carved out of it here.
func (e *Engine) RegisterFromFactory(caller [20]byte, totem, owner, tok [20]byte, dataRef [32]byte) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	if !e.caps.Has(caller, capability.CapFactory) {
		return ErrUnauthorized
	}
	if isZeroAddr(totem) || isZeroAddr(owner) || isZeroAddr(tok) {
		return errors.New("sale: zero address")
	}
	if _, ok := e.totems[totem]; ok {
		return ErrAlreadyRegistered
	}
	if !e.ledger.Registered(tok) {
		return fmt.Errorf("sale: token %s not registered", hexAddr(tok))
	}
	if e.ledger.BalanceOf(tok, e.account).Cmp(e.params.InitialSupply) < 0 {
		return ErrUnderfunded
	}
	if err := e.ledger.SetOperator(tok, e.account, true); err != nil {
		return err
	}
	vaultAccount, err := e.vaults.Account(totem)
	if err != nil {
		return err
	}
	if e.params.CreatorAllotment.Sign() > 0 {
		if err := e.ledger.Transfer(tok, e.account, owner, e.params.CreatorAllotment); err != nil {
			return fmt.Errorf("sale: creator allotment: %w", err)
		}
	}
	if e.params.VaultAllotment.Sign() > 0 {
		if err := e.ledger.Transfer(tok, e.account, vaultAccount, e.params.VaultAllotment); err != nil {
			return fmt.Errorf("sale: vault allotment: %w", err)
		}
	}
	e.totems[totem] = &TotemRecord{
		Address:      totem,
		Owner:        owner,
		Token:        tok,
		DataRef:      dataRef,
		SaleOpen:     true,
		Collected:    big.NewInt(0),
		PaymentToken: e.params.PaymentToken,
	}
	e.order = append(e.order, totem)
	e.emitter.Emit(totemRegisteredEvent(totem, owner, tok, false))
	return nil
}

// RegisterExisting takes the existing-token path: a totem backed by an
// allow-listed token skips the primary sale entirely and registers with the
// merit engine immediately.
func (e *Engine) RegisterExisting(caller [20]byte, totem, owner, tok [20]byte, dataRef [32]byte) error {
	if !e.caps.Has(caller, capability.CapRegistrar) {
		return ErrUnauthorized
	}
	if isZeroAddr(totem) || isZeroAddr(owner) || isZeroAddr(tok) {
		return errors.New("sale: zero address")
	}
	if _, ok := e.totems[totem]; ok {
		return ErrAlreadyRegistered
	}
	if !e.allowed[tok] {
		return ErrTokenNotAllowed
	}
	if err := e.merit.Register(e.account, totem, tok); err != nil {
		return err
	}
	e.totems[totem] = &TotemRecord{
		Address:      totem,
		Owner:        owner,
		Token:        tok,
		DataRef:      dataRef,
		CustomToken:  true,
		SaleOpen:     false,
		Collected:    big.NewInt(0),
		PaymentToken: e.params.PaymentToken,
	}
	e.order = append(e.order, totem)
	e.emitter.Emit(totemRegisteredEvent(totem, owner, tok, true))
	return nil
}

// Totem returns a copy of the sale ledger entry.
func (e *Engine) Totem(totem [20]byte) (*TotemRecord, bool) {
	record, ok := e.totems[totem]
	if !ok {
		return nil, false
	}
	return record.Clone(), true
}

// Position returns a copy of the buyer's position against the totem.
func (e *Engine) Position(buyer, totem [20]byte) *Position {
	position, ok := e.positions[positionKey{buyer: buyer, totem: totem}]
	if !ok {
		return &Position{Contributed: big.NewInt(0), Held: big.NewInt(0)}
	}
	return position.Clone()
}

// QuotePayment converts a participant-token amount into the payment-token
// quantity due at the fixed USD price, using the oracle quote for the
// payment token. Ceiling-adjusted so a non-zero amount never costs zero.
func (e *Engine) QuotePayment(amount *big.Int) (*big.Int, error) {
	if amount == nil || amount.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	price, err := e.paymentPrice()
	if err != nil {
		return nil, err
	}
	required := new(big.Int).Mul(amount, e.params.PriceUsd)
	required.Div(required, price)
	if required.Sign() == 0 {
		required.SetInt64(1)
	}
	return required, nil
}

// QuoteTokens converts a payment-token quantity into participant-token
// units at the fixed USD price.
func (e *Engine) QuoteTokens(payment *big.Int) (*big.Int, error) {
	if payment == nil || payment.Sign() <= 0 {
		return nil, ErrZeroAmount
	}
	price, err := e.paymentPrice()
	if err != nil {
		return nil, err
	}
	amount := new(big.Int).Mul(payment, price)
	amount.Div(amount, e.params.PriceUsd)
	return amount, nil
}

func (e *Engine) paymentPrice() (*big.Int, error) {
	feed, ok := e.feeds[e.params.PaymentToken]
	if !ok {
		return nil, oracle.ErrNoFeed
	}
	round, err := feed.Latest()
	if err != nil {
		return nil, fmt.Errorf("sale: oracle: %w", err)
	}
	if err := oracle.ValidateRound(round, e.nowFn(), e.params.OracleStaleness); err != nil {
		return nil, err
	}
	return round.Price, nil
}

// Buy purchases participant-token units at the fixed price. When the buy
// leaves the engine holding exactly the reserved pool supply, the sale
// closes in the same operation.
func (e *Engine) Buy(buyer [20]byte, totem [20]byte, amount *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	record, ok := e.totems[totem]
	if !ok {
		return ErrNotRegistered
	}
	if !record.SaleOpen {
		return ErrSaleClosed
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	key := positionKey{buyer: buyer, totem: totem}
	position, ok := e.positions[key]
	if !ok {
		position = &Position{Contributed: big.NewInt(0), Held: big.NewInt(0)}
	}
	if new(big.Int).Add(position.Held, amount).Cmp(e.params.PerAddressCap) > 0 {
		return ErrCapExceeded
	}
	balance := e.ledger.BalanceOf(record.Token, e.account)
	needed := new(big.Int).Add(amount, e.params.ReservedPoolSupply)
	if balance.Cmp(needed) < 0 {
		return ErrInsufficientReserve
	}
	required, err := e.QuotePayment(amount)
	if err != nil {
		return err
	}
	if e.ledger.BalanceOf(record.PaymentToken, buyer).Cmp(required) < 0 {
		return ErrInsufficientPayment
	}
	if err := e.ledger.OperatorTransfer(record.PaymentToken, e.account, buyer, e.account, required); err != nil {
		return fmt.Errorf("sale: collect payment: %w", err)
	}
	if err := e.ledger.Transfer(record.Token, e.account, buyer, amount); err != nil {
		return fmt.Errorf("sale: deliver tokens: %w", err)
	}
	record.Collected = new(big.Int).Add(record.Collected, required)
	position.Contributed = new(big.Int).Add(position.Contributed, required)
	position.Held = new(big.Int).Add(position.Held, amount)
	e.positions[key] = position
	e.emitter.Emit(boughtEvent(totem, buyer, amount, required))

	if e.ledger.BalanceOf(record.Token, e.account).Cmp(e.params.ReservedPoolSupply) == 0 {
		if err := e.closeSale(record); err != nil {
			return err
		}
	}
	return nil
}

// Sell returns participant-token units bought during the sale for the
// proportional slice of what the seller paid in. The refund ratio is fixed
// by the seller's own position, independent of any price movement since
// purchase.
func (e *Engine) Sell(seller [20]byte, totem [20]byte, amount *big.Int) error {
	if err := e.guard.Enter(); err != nil {
		return err
	}
	defer e.guard.Exit()

	if err := common.Guard(e.pauses, ModuleName); err != nil {
		return err
	}
	record, ok := e.totems[totem]
	if !ok {
		return ErrNotRegistered
	}
	if !record.SaleOpen {
		return ErrSaleClosed
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	key := positionKey{buyer: seller, totem: totem}
	position, ok := e.positions[key]
	if !ok || position.Held.Cmp(amount) < 0 {
		return ErrPositionExceeded
	}
	if e.ledger.BalanceOf(record.Token, seller).Cmp(amount) < 0 {
		return ErrPositionExceeded
	}
	// Refund computed before either side of the position mutates.
	refund := new(big.Int).Mul(position.Contributed, amount)
	refund.Div(refund, position.Held)

	if err := e.ledger.OperatorTransfer(record.Token, e.account, seller, e.account, amount); err != nil {
		return fmt.Errorf("sale: recover tokens: %w", err)
	}
	if refund.Sign() > 0 {
		if err := e.ledger.Transfer(record.PaymentToken, e.account, seller, refund); err != nil {
			return fmt.Errorf("sale: refund payment: %w", err)
		}
	}
	position.Held = new(big.Int).Sub(position.Held, amount)
	position.Contributed = new(big.Int).Sub(position.Contributed, refund)
	if position.Held.Sign() == 0 {
		delete(e.positions, key)
	} else {
		e.positions[key] = position
	}
	record.Collected = new(big.Int).Sub(record.Collected, refund)
	e.emitter.Emit(soldEvent(totem, seller, amount, refund))
	return nil
}

// closeSale settles the sale: opens general transfers, registers the totem
// with the merit engine, splits the collected proceeds four ways and mints
// the AMM liquidity position into the vault.
func (e *Engine) closeSale(record *TotemRecord) error {
	record.SaleOpen = false
	if err := e.ledger.SetTransfersEnabled(record.Token, true); err != nil {
		return err
	}
	if err := e.merit.Register(e.account, record.Address, record.Token); err != nil {
		return err
	}
	vaultAccount, err := e.vaults.Account(record.Address)
	if err != nil {
		return err
	}

	collected := record.Collected
	denom := big.NewInt(BpsDenominator)
	treasuryShare := new(big.Int).Mul(collected, new(big.Int).SetUint64(e.params.Shares.TreasuryBps))
	treasuryShare.Div(treasuryShare, denom)
	creatorShare := new(big.Int).Mul(collected, new(big.Int).SetUint64(e.params.Shares.CreatorBps))
	creatorShare.Div(creatorShare, denom)
	vaultShare := new(big.Int).Mul(collected, new(big.Int).SetUint64(e.params.Shares.VaultBps))
	vaultShare.Div(vaultShare, denom)
	// The pool absorbs the flooring remainder so the four shares always sum
	// to exactly the collected proceeds.
	poolShare := new(big.Int).Sub(collected, treasuryShare)
	poolShare.Sub(poolShare, creatorShare)
	poolShare.Sub(poolShare, vaultShare)

	payment := record.PaymentToken
	if treasuryShare.Sign() > 0 {
		if err := e.ledger.Transfer(payment, e.account, e.params.Treasury, treasuryShare); err != nil {
			return fmt.Errorf("sale: treasury share: %w", err)
		}
	}
	if creatorShare.Sign() > 0 {
		if err := e.ledger.Transfer(payment, e.account, record.Owner, creatorShare); err != nil {
			return fmt.Errorf("sale: creator share: %w", err)
		}
	}
	if vaultShare.Sign() > 0 {
		if err := e.ledger.Transfer(payment, e.account, vaultAccount, vaultShare); err != nil {
			return fmt.Errorf("sale: vault share: %w", err)
		}
	}

	pair, err := e.router.GetOrCreatePair(record.Token, payment)
	if err != nil {
		return err
	}
	reserve := e.params.ReservedPoolSupply
	minToken := applySlippage(reserve)
	minPayment := applySlippage(poolShare)
	deadline := e.nowFn() + DeadlineWindow
	usedToken, usedPayment, liquidity, err := e.router.AddLiquidity(
		record.Token, payment, reserve, poolShare, minToken, minPayment, vaultAccount, deadline)
	if err != nil {
		return err
	}
	if liquidity == nil || liquidity.Sign() == 0 {
		return ErrZeroLiquidity
	}
	record.LiquidityTok = pair
	if err := e.vaults.SettleSaleClosure(e.account, record.Address, payment, pair); err != nil {
		return err
	}
	e.emitter.Emit(closedEvent(record.Address, collected, treasuryShare, creatorShare, vaultShare, poolShare))
	e.emitter.Emit(liquidityAddedEvent(record.Address, pair, usedToken, usedPayment, liquidity))
	return nil
}

// SetCollaborators replaces the collaborator list of a totem. Only the totem
// owner may change it; duplicates collapse to one entry.
func (e *Engine) SetCollaborators(caller [20]byte, totem [20]byte, collaborators [][20]byte) error {
	record, ok := e.totems[totem]
	if !ok {
		return ErrNotRegistered
	}
	if caller != record.Owner {
		return ErrUnauthorized
	}
	list := make([][20]byte, 0, len(collaborators))
	seen := make(map[[20]byte]bool, len(collaborators))
	for _, collaborator := range collaborators {
		if isZeroAddr(collaborator) {
			return errors.New("sale: zero address")
		}
		if seen[collaborator] {
			continue
		}
		seen[collaborator] = true
		list = append(list, collaborator)
	}
	record.Collaborators = list
	e.emitter.Emit(collaboratorsUpdatedEvent(totem, len(list)))
	return nil
}

// SetFeed configures the oracle feed for a token.
func (e *Engine) SetFeed(caller [20]byte, tok [20]byte, feed oracle.Feed) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if feed == nil {
		delete(e.feeds, tok)
		return nil
	}
	e.feeds[tok] = feed
	e.emitter.Emit(paramUpdatedEvent("feed", hexAddr(tok)))
	return nil
}

// SetPaymentToken updates the token new sales collect payment in.
func (e *Engine) SetPaymentToken(caller [20]byte, tok [20]byte) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if isZeroAddr(tok) {
		return errors.New("sale: zero address")
	}
	e.params.PaymentToken = tok
	e.emitter.Emit(paramUpdatedEvent("paymentToken", hexAddr(tok)))
	return nil
}

// SetRouter swaps the market-maker router.
func (e *Engine) SetRouter(caller [20]byte, router market.Router) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if router == nil {
		return errors.New("sale: router required")
	}
	e.router = router
	e.emitter.Emit(paramUpdatedEvent("router", "updated"))
	return nil
}

// SetPerAddressCap updates the per-buyer holding cap.
func (e *Engine) SetPerAddressCap(caller [20]byte, cap *big.Int) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if cap == nil || cap.Sign() <= 0 {
		return ErrZeroAmount
	}
	e.params.PerAddressCap = new(big.Int).Set(cap)
	e.emitter.Emit(paramUpdatedEvent("perAddressCap", cap.String()))
	return nil
}

// SetShares updates the four-way proceeds split. The weights must sum to
// exactly the basis-point denominator.
func (e *Engine) SetShares(caller [20]byte, shares Shares) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if err := shares.Validate(); err != nil {
		return err
	}
	e.params.Shares = shares
	e.emitter.Emit(paramUpdatedEvent("shares", strconv.FormatUint(shares.TreasuryBps, 10)+"/"+
		strconv.FormatUint(shares.CreatorBps, 10)+"/"+
		strconv.FormatUint(shares.VaultBps, 10)+"/"+
		strconv.FormatUint(shares.PoolBps, 10)))
	return nil
}

// SetPriceUsd updates the fixed USD sale price.
func (e *Engine) SetPriceUsd(caller [20]byte, price *big.Int) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if price == nil || price.Sign() <= 0 {
		return ErrZeroAmount
	}
	e.params.PriceUsd = new(big.Int).Set(price)
	e.emitter.Emit(paramUpdatedEvent("priceUsd", price.String()))
	return nil
}

// SetTokenAllowed toggles the allow-list entry used by the existing-token
// registration path.
func (e *Engine) SetTokenAllowed(caller [20]byte, tok [20]byte, allowed bool) error {
	if !e.caps.Has(caller, capability.CapAdmin) {
		return ErrUnauthorized
	}
	if allowed {
		e.allowed[tok] = true
	} else {
		delete(e.allowed, tok)
	}
	e.emitter.Emit(paramUpdatedEvent("tokenAllowed", hexAddr(tok)+"="+strconv.FormatBool(allowed)))
	return nil
}

// Params returns a copy of the active parameters.
func (e *Engine) Params() Params { return e.params.Clone() }

// Clone returns a deep copy of the engine state sharing the same
// collaborators.
func (e *Engine) Clone() *Engine {
	if e == nil {
		return nil
	}
	clone := &Engine{
		params:    e.params.Clone(),
		ledger:    e.ledger,
		feeds:     make(map[[20]byte]oracle.Feed, len(e.feeds)),
		router:    e.router,
		merit:     e.merit,
		vaults:    e.vaults,
		caps:      e.caps,
		emitter:   e.emitter,
		nowFn:     e.nowFn,
		account:   e.account,
		totems:    make(map[[20]byte]*TotemRecord, len(e.totems)),
		order:     append([][20]byte(nil), e.order...),
		positions: make(map[positionKey]*Position, len(e.positions)),
		allowed:   make(map[[20]byte]bool, len(e.allowed)),
	}
	for tok, feed := range e.feeds {
		clone.feeds[tok] = feed
	}
	for addr, record := range e.totems {
		clone.totems[addr] = record.Clone()
	}
	for key, position := range e.positions {
		clone.positions[key] = position.Clone()
	}
	for tok := range e.allowed {
		clone.allowed[tok] = true
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
	e.feeds = restored.feeds
	e.totems = restored.totems
	e.order = restored.order
	e.positions = restored.positions
	e.allowed = restored.allowed
}

func applySlippage(amount *big.Int) *big.Int {
	min := new(big.Int).Mul(amount, big.NewInt(BpsDenominator-SlippageBps))
	return min.Div(min, big.NewInt(BpsDenominator))
}

func isZeroAddr(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
