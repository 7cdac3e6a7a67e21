package token

import (
	"bytes"
	"math/big"
	"sort"
)

// BalanceEntry is one account balance inside a snapshot.
type BalanceEntry struct {
	Account [20]byte
	Amount  *big.Int
}

// AllowanceEntry is one approval inside a snapshot.
type AllowanceEntry struct {
	Owner   [20]byte
	Spender [20]byte
	Amount  *big.Int
}

// TokenSnapshot is the serializable state of one token. Entries are sorted
// by address so the encoding is deterministic.
type TokenSnapshot struct {
	Token            [20]byte
	TotalSupply      *big.Int
	TransfersEnabled bool
	Balances         []BalanceEntry
	Allowances       []AllowanceEntry
	Operators        [][20]byte
}

// LedgerSnapshot is the serializable state of the whole custody ledger.
type LedgerSnapshot struct {
	Tokens []TokenSnapshot
}

// Snapshot renders the ledger into its deterministic serializable form.
func (l *Ledger) Snapshot() *LedgerSnapshot {
	snapshot := &LedgerSnapshot{Tokens: make([]TokenSnapshot, 0, len(l.tokens))}
	for tok, state := range l.tokens {
		entry := TokenSnapshot{
			Token:            tok,
			TotalSupply:      new(big.Int).Set(state.totalSupply),
			TransfersEnabled: state.transfersEnabled,
		}
		for account, amount := range state.balances {
			entry.Balances = append(entry.Balances, BalanceEntry{Account: account, Amount: new(big.Int).Set(amount)})
		}
		sort.Slice(entry.Balances, func(i, j int) bool {
			return bytes.Compare(entry.Balances[i].Account[:], entry.Balances[j].Account[:]) < 0
		})
		for owner, grants := range state.allowances {
			for spender, amount := range grants {
				entry.Allowances = append(entry.Allowances, AllowanceEntry{Owner: owner, Spender: spender, Amount: new(big.Int).Set(amount)})
			}
		}
		sort.Slice(entry.Allowances, func(i, j int) bool {
			c := bytes.Compare(entry.Allowances[i].Owner[:], entry.Allowances[j].Owner[:])
			if c == 0 {
				return bytes.Compare(entry.Allowances[i].Spender[:], entry.Allowances[j].Spender[:]) < 0
			}
			return c < 0
		})
		for account := range state.operators {
			entry.Operators = append(entry.Operators, account)
		}
		sort.Slice(entry.Operators, func(i, j int) bool {
			return bytes.Compare(entry.Operators[i][:], entry.Operators[j][:]) < 0
		})
		snapshot.Tokens = append(snapshot.Tokens, entry)
	}
	sort.Slice(snapshot.Tokens, func(i, j int) bool {
		return bytes.Compare(snapshot.Tokens[i].Token[:], snapshot.Tokens[j].Token[:]) < 0
	})
	return snapshot
}

// LoadSnapshot replaces the ledger contents with the snapshot's.
func (l *Ledger) LoadSnapshot(snapshot *LedgerSnapshot) {
	l.tokens = make(map[[20]byte]*tokenState, len(snapshot.Tokens))
	for _, entry := range snapshot.Tokens {
		state := newTokenState()
		if entry.TotalSupply != nil {
			state.totalSupply = new(big.Int).Set(entry.TotalSupply)
		}
		state.transfersEnabled = entry.TransfersEnabled
		for _, bal := range entry.Balances {
			state.balances[bal.Account] = new(big.Int).Set(bal.Amount)
		}
		for _, allow := range entry.Allowances {
			grants := state.allowances[allow.Owner]
			if grants == nil {
				grants = make(map[[20]byte]*big.Int)
				state.allowances[allow.Owner] = grants
			}
			grants[allow.Spender] = new(big.Int).Set(allow.Amount)
		}
		for _, account := range entry.Operators {
			state.operators[account] = true
		}
		l.tokens[entry.Token] = state
	}
}
