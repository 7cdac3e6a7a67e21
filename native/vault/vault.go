package vault

import (
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"strconv"

	"totemchain/core/events"
	"totemchain/native/capability"
	"totemchain/native/common"
)

var (
	// ErrUnauthorized indicates the caller may not perform the operation.
	ErrUnauthorized = errors.New("vault: unauthorized")
	// ErrUnknownTotem indicates no vault exists for the totem.
	ErrUnknownTotem = errors.New("vault: unknown totem")
	// ErrTotemExists indicates the totem already has a vault.
	ErrTotemExists = errors.New("vault: vault already exists")
	// ErrNotSettled indicates redemption before the sale closed.
	ErrNotSettled = errors.New("vault: sale not settled")
	// ErrAlreadySettled indicates a second settlement attempt.
	ErrAlreadySettled = errors.New("vault: already settled")
	// ErrZeroAmount indicates a nil or non-positive amount.
	ErrZeroAmount = errors.New("vault: amount must be positive")
	// ErrInsufficientBalance indicates the redeemer holds fewer tokens than
	// offered.
	ErrInsufficientBalance = errors.New("vault: insufficient token balance")
	// ErrZeroCirculatingSupply indicates nothing is circulating to redeem
	// against.
	ErrZeroCirculatingSupply = errors.New("vault: zero circulating supply")
)

// ModuleName identifies the registry on the governance pause switchboard.
const ModuleName = "vault"

const (
	// EventTypeVaultCreated is emitted when a totem vault is provisioned.
	EventTypeVaultCreated = "vault.created"
	// EventTypeSettled is emitted when the sale engine records settlement.
	EventTypeSettled = "vault.settled"
	// EventTypeRedeemed is emitted on every pro-rata redemption.
	EventTypeRedeemed = "vault.redeemed"
	// EventTypeRewardCollected is emitted when a period reward is pulled
	// into the vault.
	EventTypeRewardCollected = "vault.reward.collected"
)

// TokenLedger is the slice of the custody ledger vaults operate through.
type TokenLedger interface {
	Transfer(tok [20]byte, from, to [20]byte, amount *big.Int) error
	BalanceOf(tok [20]byte, account [20]byte) *big.Int
	TotalSupply(tok [20]byte) *big.Int
	Burn(tok [20]byte, from [20]byte, amount *big.Int) error
}

// Claimer is the merit engine surface vaults collect rewards through.
type Claimer interface {
	Claim(caller [20]byte, period uint64) (*big.Int, error)
}

// CapabilityView exposes read access to the capability registry.
type CapabilityView interface {
	Has(account [20]byte, capability string) bool
}

// Vault is one totem's custodial holding. Its ledger account is the totem
// identity itself, which is also what the merit engine pays claims to.
type Vault struct {
	Totem          [20]byte
	Token          [20]byte
	Custom         bool
	Settled        bool
	PaymentToken   [20]byte
	LiquidityToken [20]byte
}

// Clone returns a copy of the vault record.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	return &clone
}

// Registry owns every totem vault and the pro-rata redemption of totem
// tokens against vault holdings.
type Registry struct {
	ledger      TokenLedger
	merit       Claimer
	caps        CapabilityView
	emitter     events.Emitter
	treasury    [20]byte
	saleEngine  [20]byte
	rewardToken [20]byte
	guard       common.CallGuard
	pauses      common.PauseView
	vaults      map[[20]byte]*Vault
}

// NewRegistry constructs the vault registry. saleEngine is the only account
// allowed to record settlements; treasury recaptures redeemed custom tokens.
func NewRegistry(ledger TokenLedger, caps CapabilityView, treasury, saleEngine, rewardToken [20]byte) (*Registry, error) {
	if ledger == nil {
		return nil, errors.New("vault: token ledger required")
	}
	if caps == nil {
		return nil, errors.New("vault: capability view required")
	}
	return &Registry{
		ledger:      ledger,
		caps:        caps,
		emitter:     events.NoopEmitter{},
		treasury:    treasury,
		saleEngine:  saleEngine,
		rewardToken: rewardToken,
		vaults:      make(map[[20]byte]*Vault),
	}, nil
}

// SetEmitter configures the event emitter used by the registry.
func (r *Registry) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		r.emitter = events.NoopEmitter{}
		return
	}
	r.emitter = emitter
}

// SetClaimer wires the merit engine after construction; the dependency edge
// runs vault -> merit only.
func (r *Registry) SetClaimer(claimer Claimer) { r.merit = claimer }

// SetPauseView wires the governance pause switchboard. A nil view leaves the
// registry permanently running.
func (r *Registry) SetPauseView(view common.PauseView) { r.pauses = view }

// Create provisions a vault for a totem. Factory- or registrar-gated.
func (r *Registry) Create(caller [20]byte, totem, tok [20]byte, custom bool) error {
	if !r.caps.Has(caller, capability.CapFactory) && !r.caps.Has(caller, capability.CapRegistrar) {
		return ErrUnauthorized
	}
	if _, ok := r.vaults[totem]; ok {
		return ErrTotemExists
	}
	r.vaults[totem] = &Vault{Totem: totem, Token: tok, Custom: custom}
	r.emitter.Emit(&events.Record{Type: EventTypeVaultCreated, Attributes: map[string]string{
		"totem":  hexAddr(totem),
		"token":  hexAddr(tok),
		"custom": strconv.FormatBool(custom),
	}})
	return nil
}

// Account resolves the custody account of a totem's vault.
func (r *Registry) Account(totem [20]byte) ([20]byte, error) {
	vault, ok := r.vaults[totem]
	if !ok {
		return [20]byte{}, ErrUnknownTotem
	}
	return vault.Totem, nil
}

// Get returns a copy of the vault record.
func (r *Registry) Get(totem [20]byte) (*Vault, bool) {
	vault, ok := r.vaults[totem]
	if !ok {
		return nil, false
	}
	return vault.Clone(), true
}

// SettleSaleClosure transitions the vault into settled mode by recording the
// payment- and liquidity-token identities. Only the sale engine may call it,
// exactly once.
func (r *Registry) SettleSaleClosure(caller [20]byte, totem [20]byte, paymentToken, liquidityToken [20]byte) error {
	if caller != r.saleEngine {
		return ErrUnauthorized
	}
	vault, ok := r.vaults[totem]
	if !ok {
		return ErrUnknownTotem
	}
	if vault.Settled {
		return ErrAlreadySettled
	}
	vault.Settled = true
	vault.PaymentToken = paymentToken
	vault.LiquidityToken = liquidityToken
	r.emitter.Emit(&events.Record{Type: EventTypeSettled, Attributes: map[string]string{
		"totem":          hexAddr(totem),
		"paymentToken":   hexAddr(paymentToken),
		"liquidityToken": hexAddr(liquidityToken),
	}})
	return nil
}

// Redeem burns (or, for custom tokens, recaptures) the caller's totem tokens
// and pays out the proportional share of the vault's payment-, reward- and
// liquidity-token holdings. Zero shares are skipped. Blacklisting does not
// block redemption.
func (r *Registry) Redeem(caller [20]byte, totem [20]byte, amount *big.Int) error {
	if err := r.guard.Enter(); err != nil {
		return err
	}
	defer r.guard.Exit()

	if err := common.Guard(r.pauses, ModuleName); err != nil {
		return err
	}
	vault, ok := r.vaults[totem]
	if !ok {
		return ErrUnknownTotem
	}
	if !vault.Custom && !vault.Settled {
		return ErrNotSettled
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrZeroAmount
	}
	if r.ledger.BalanceOf(vault.Token, caller).Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	circulating := new(big.Int).Sub(r.ledger.TotalSupply(vault.Token), r.ledger.BalanceOf(vault.Token, vault.Totem))
	if vault.Custom {
		circulating.Sub(circulating, r.ledger.BalanceOf(vault.Token, r.treasury))
	}
	if circulating.Sign() <= 0 {
		return ErrZeroCirculatingSupply
	}

	// Shares are fixed against the pre-redemption holdings before the
	// caller's tokens move. Duplicate identities (payment and reward can be
	// the same token) pay their shared balance out once.
	payoutTokens := [3][20]byte{vault.PaymentToken, r.rewardToken, vault.LiquidityToken}
	var shares [3]*big.Int
	seen := make(map[[20]byte]bool, len(payoutTokens))
	for i, tok := range payoutTokens {
		if isZeroAddr(tok) || seen[tok] {
			shares[i] = big.NewInt(0)
			continue
		}
		seen[tok] = true
		share := new(big.Int).Mul(r.ledger.BalanceOf(tok, vault.Totem), amount)
		shares[i] = share.Div(share, circulating)
	}

	if vault.Custom {
		// Externally supplied tokens cannot be burned; the treasury
		// recaptures them instead.
		if err := r.ledger.Transfer(vault.Token, caller, r.treasury, amount); err != nil {
			return fmt.Errorf("vault: recapture tokens: %w", err)
		}
	} else {
		if err := r.ledger.Burn(vault.Token, caller, amount); err != nil {
			return fmt.Errorf("vault: burn tokens: %w", err)
		}
	}
	for i, tok := range payoutTokens {
		if shares[i].Sign() == 0 {
			continue
		}
		if err := r.ledger.Transfer(tok, vault.Totem, caller, shares[i]); err != nil {
			return fmt.Errorf("vault: pay out %s: %w", hexAddr(tok), err)
		}
	}
	r.emitter.Emit(&events.Record{Type: EventTypeRedeemed, Attributes: map[string]string{
		"totem":     hexAddr(totem),
		"redeemer":  hexAddr(caller),
		"amount":    amount.String(),
		"payment":   shares[0].String(),
		"reward":    shares[1].String(),
		"liquidity": shares[2].String(),
	}})
	return nil
}

// CollectReward pulls the totem's reward share for a closed period into the
// vault. Thin pass-through to the merit engine's claim under the vault's own
// identity.
func (r *Registry) CollectReward(totem [20]byte, period uint64) (*big.Int, error) {
	vault, ok := r.vaults[totem]
	if !ok {
		return nil, ErrUnknownTotem
	}
	if r.merit == nil {
		return nil, errors.New("vault: merit engine not wired")
	}
	share, err := r.merit.Claim(vault.Totem, period)
	if err != nil {
		return nil, err
	}
	r.emitter.Emit(&events.Record{Type: EventTypeRewardCollected, Attributes: map[string]string{
		"totem":  hexAddr(totem),
		"period": strconv.FormatUint(period, 10),
		"share":  share.String(),
	}})
	return share, nil
}

// Clone returns a deep copy of the registry state sharing the same
// collaborators.
func (r *Registry) Clone() *Registry {
	if r == nil {
		return nil
	}
	clone := &Registry{
		ledger:      r.ledger,
		merit:       r.merit,
		caps:        r.caps,
		emitter:     r.emitter,
		treasury:    r.treasury,
		saleEngine:  r.saleEngine,
		rewardToken: r.rewardToken,
		vaults:      make(map[[20]byte]*Vault, len(r.vaults)),
	}
	for totem, vault := range r.vaults {
		clone.vaults[totem] = vault.Clone()
	}
	return clone
}

// Restore copies the state of a snapshot produced by Clone back into the
// registry, leaving collaborator references untouched.
func (r *Registry) Restore(snapshot *Registry) {
	if r == nil || snapshot == nil {
		return
	}
	r.vaults = snapshot.Clone().vaults
}

func hexAddr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func isZeroAddr(addr [20]byte) bool {
	var zero [20]byte
	return addr == zero
}
