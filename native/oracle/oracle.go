package oracle

import (
	"errors"
	"math/big"
)

// PriceDecimals is the fixed-point scale shared by every quoted price: a
// quote of 1.00 USD is represented as 10^8.
const PriceDecimals = 8

var (
	// ErrNoFeed indicates no feed is configured for the requested token.
	ErrNoFeed = errors.New("oracle: no feed configured")
	// ErrNonPositivePrice indicates a zero or negative quoted price.
	ErrNonPositivePrice = errors.New("oracle: non-positive price")
	// ErrStaleRound indicates the quote is older than the staleness
	// threshold.
	ErrStaleRound = errors.New("oracle: stale round")
	// ErrNonMonotonicRound indicates the answer was carried over from an
	// earlier round than the one reported.
	ErrNonMonotonicRound = errors.New("oracle: answered in earlier round")
)

// Round is a single quote published by a price feed.
type Round struct {
	RoundID         uint64
	Price           *big.Int
	UpdatedAt       int64
	AnsweredInRound uint64
}

// Feed resolves the latest quoted round for one token.
type Feed interface {
	Latest() (Round, error)
}

// ValidateRound enforces the quote contract: a positive price, an answer not
// carried over from an earlier round, and an update within the staleness
// threshold (in seconds) of now.
func ValidateRound(r Round, now int64, staleness int64) error {
	if r.Price == nil || r.Price.Sign() <= 0 {
		return ErrNonPositivePrice
	}
	if r.AnsweredInRound < r.RoundID {
		return ErrNonMonotonicRound
	}
	if staleness > 0 && now-r.UpdatedAt > staleness {
		return ErrStaleRound
	}
	return nil
}

// StaticFeed is a deterministic feed whose round is set explicitly. It backs
// tests and fixed-rate deployments.
type StaticFeed struct {
	round Round
}

// NewStaticFeed constructs a feed quoting price at updatedAt, round 1.
func NewStaticFeed(price *big.Int, updatedAt int64) *StaticFeed {
	f := &StaticFeed{}
	f.Set(Round{RoundID: 1, Price: price, UpdatedAt: updatedAt, AnsweredInRound: 1})
	return f
}

// Set replaces the published round.
func (f *StaticFeed) Set(r Round) {
	if r.Price != nil {
		r.Price = new(big.Int).Set(r.Price)
	}
	f.round = r
}

// Latest implements the Feed interface.
func (f *StaticFeed) Latest() (Round, error) {
	r := f.round
	if r.Price != nil {
		r.Price = new(big.Int).Set(r.Price)
	}
	return r, nil
}
