package token

import (
	"errors"
	"math/big"
)

var (
	// ErrUnknownToken indicates the token identity has not been registered.
	ErrUnknownToken = errors.New("token: unknown token")
	// ErrTokenExists indicates the token identity is already registered.
	ErrTokenExists = errors.New("token: token already registered")
	// ErrInvalidAmount indicates a nil, zero or negative amount.
	ErrInvalidAmount = errors.New("token: amount must be positive")
	// ErrZeroAddress indicates the zero address was supplied where a real
	// account is required.
	ErrZeroAddress = errors.New("token: zero address")
	// ErrInsufficientBalance indicates the sender balance cannot cover the
	// transfer.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
	// ErrInsufficientAllowance indicates the spender allowance cannot cover
	// the transfer.
	ErrInsufficientAllowance = errors.New("token: insufficient allowance")
	// ErrTransfersDisabled indicates the token's transfer gate is still
	// closed and the sender is not an operator.
	ErrTransfersDisabled = errors.New("token: transfers disabled")
	// ErrNotOperator indicates the caller is not a registered operator for
	// the token.
	ErrNotOperator = errors.New("token: not an operator")
)

// tokenState holds the full ledger of one fungible token.
type tokenState struct {
	balances         map[[20]byte]*big.Int
	allowances       map[[20]byte]map[[20]byte]*big.Int
	totalSupply      *big.Int
	transfersEnabled bool
	operators        map[[20]byte]bool
}

func newTokenState() *tokenState {
	return &tokenState{
		balances:    make(map[[20]byte]*big.Int),
		allowances:  make(map[[20]byte]map[[20]byte]*big.Int),
		totalSupply: big.NewInt(0),
		operators:   make(map[[20]byte]bool),
	}
}

// Ledger custodies fungible token balances for every account and engine in
// the system. Tokens are identified by a 20-byte address. Newly registered
// tokens start with the transfer gate closed: only registered operators (the
// sale engine, vaults) may move units until the gate is opened at sale
// closure. Operators may also move third-party balances directly, the
// privilege the engines use to settle value inside a single sequenced
// operation.
type Ledger struct {
	tokens map[[20]byte]*tokenState
}

// NewLedger constructs an empty custody ledger.
func NewLedger() *Ledger {
	return &Ledger{tokens: make(map[[20]byte]*tokenState)}
}

// Register creates the ledger entry for a new token identity.
func (l *Ledger) Register(tok [20]byte) error {
	if isZero(tok) {
		return ErrZeroAddress
	}
	if _, ok := l.tokens[tok]; ok {
		return ErrTokenExists
	}
	l.tokens[tok] = newTokenState()
	return nil
}

// Registered reports whether the token identity exists.
func (l *Ledger) Registered(tok [20]byte) bool {
	_, ok := l.tokens[tok]
	return ok
}

// Mint credits newly issued units to an account and grows total supply.
func (l *Ledger) Mint(tok [20]byte, to [20]byte, amount *big.Int) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	if isZero(to) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	state.credit(to, amount)
	state.totalSupply = new(big.Int).Add(state.totalSupply, amount)
	return nil
}

// Burn destroys units held by an account and shrinks total supply.
func (l *Ledger) Burn(tok [20]byte, from [20]byte, amount *big.Int) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if state.balance(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	state.debit(from, amount)
	state.totalSupply = new(big.Int).Sub(state.totalSupply, amount)
	return nil
}

// Transfer moves units between accounts, honouring the transfer gate.
func (l *Ledger) Transfer(tok [20]byte, from, to [20]byte, amount *big.Int) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	if isZero(to) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if !state.transfersEnabled && !state.operators[from] {
		return ErrTransfersDisabled
	}
	if state.balance(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	state.debit(from, amount)
	state.credit(to, amount)
	return nil
}

// Approve records that spender may move up to amount units on behalf of
// owner. A nil amount clears the allowance.
func (l *Ledger) Approve(tok [20]byte, owner, spender [20]byte, amount *big.Int) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	if isZero(spender) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		delete(state.allowances[owner], spender)
		return nil
	}
	grants := state.allowances[owner]
	if grants == nil {
		grants = make(map[[20]byte]*big.Int)
		state.allowances[owner] = grants
	}
	grants[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns the remaining approval from owner to spender.
func (l *Ledger) Allowance(tok [20]byte, owner, spender [20]byte) *big.Int {
	state, ok := l.tokens[tok]
	if !ok {
		return big.NewInt(0)
	}
	grant, ok := state.allowances[owner][spender]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(grant)
}

// TransferFrom moves units on behalf of owner, consuming spender allowance.
func (l *Ledger) TransferFrom(tok [20]byte, spender, from, to [20]byte, amount *big.Int) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	grant, ok := state.allowances[from][spender]
	if !ok || grant.Cmp(amount) < 0 {
		return ErrInsufficientAllowance
	}
	if err := l.Transfer(tok, from, to, amount); err != nil {
		return err
	}
	remaining := new(big.Int).Sub(grant, amount)
	if remaining.Sign() == 0 {
		delete(state.allowances[from], spender)
	} else {
		state.allowances[from][spender] = remaining
	}
	return nil
}

// BalanceOf returns the account balance, zero for unknown tokens.
func (l *Ledger) BalanceOf(tok [20]byte, account [20]byte) *big.Int {
	state, ok := l.tokens[tok]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(state.balance(account))
}

// TotalSupply returns the outstanding supply of a token.
func (l *Ledger) TotalSupply(tok [20]byte) *big.Int {
	state, ok := l.tokens[tok]
	if !ok {
		return big.NewInt(0)
	}
	return new(big.Int).Set(state.totalSupply)
}

// SetTransfersEnabled opens or closes the transfer gate.
func (l *Ledger) SetTransfersEnabled(tok [20]byte, enabled bool) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	state.transfersEnabled = enabled
	return nil
}

// TransfersEnabled reports the transfer gate position.
func (l *Ledger) TransfersEnabled(tok [20]byte) bool {
	state, ok := l.tokens[tok]
	if !ok {
		return false
	}
	return state.transfersEnabled
}

// SetOperator registers or removes a custody operator for a token.
func (l *Ledger) SetOperator(tok [20]byte, account [20]byte, operator bool) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	if operator {
		state.operators[account] = true
	} else {
		delete(state.operators, account)
	}
	return nil
}

// OperatorTransfer moves units out of an arbitrary holder's balance on the
// authority of a registered operator, bypassing the transfer gate and the
// allowance ledger.
func (l *Ledger) OperatorTransfer(tok [20]byte, operator [20]byte, from, to [20]byte, amount *big.Int) error {
	state, ok := l.tokens[tok]
	if !ok {
		return ErrUnknownToken
	}
	if !state.operators[operator] {
		return ErrNotOperator
	}
	if isZero(to) {
		return ErrZeroAddress
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}
	if state.balance(from).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	state.debit(from, amount)
	state.credit(to, amount)
	return nil
}

// Clone returns a deep copy of the whole custody ledger.
func (l *Ledger) Clone() *Ledger {
	if l == nil {
		return nil
	}
	clone := NewLedger()
	for tok, state := range l.tokens {
		cp := newTokenState()
		cp.totalSupply = new(big.Int).Set(state.totalSupply)
		cp.transfersEnabled = state.transfersEnabled
		for acct, bal := range state.balances {
			cp.balances[acct] = new(big.Int).Set(bal)
		}
		for owner, grants := range state.allowances {
			inner := make(map[[20]byte]*big.Int, len(grants))
			for spender, amt := range grants {
				inner[spender] = new(big.Int).Set(amt)
			}
			cp.allowances[owner] = inner
		}
		for acct := range state.operators {
			cp.operators[acct] = true
		}
		clone.tokens[tok] = cp
	}
	return clone
}

// Restore copies the state of a snapshot produced by Clone back into the
// ledger, keeping outstanding references to it valid.
func (l *Ledger) Restore(snapshot *Ledger) {
	if l == nil || snapshot == nil {
		return
	}
	l.tokens = snapshot.Clone().tokens
}

func (s *tokenState) balance(account [20]byte) *big.Int {
	bal, ok := s.balances[account]
	if !ok {
		return big.NewInt(0)
	}
	return bal
}

func (s *tokenState) credit(account [20]byte, amount *big.Int) {
	s.balances[account] = new(big.Int).Add(s.balance(account), amount)
}

func (s *tokenState) debit(account [20]byte, amount *big.Int) {
	remaining := new(big.Int).Sub(s.balance(account), amount)
	if remaining.Sign() == 0 {
		delete(s.balances, account)
	} else {
		s.balances[account] = remaining
	}
}

func isZero(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
