package oracle

import (
	"math/big"
	"testing"
)

func TestValidateRound(t *testing.T) {
	base := Round{RoundID: 5, Price: big.NewInt(100_000_000), UpdatedAt: 1000, AnsweredInRound: 5}

	if err := ValidateRound(base, 1500, 3600); err != nil {
		t.Fatalf("valid round rejected: %v", err)
	}

	negative := base
	negative.Price = big.NewInt(-1)
	if err := ValidateRound(negative, 1500, 3600); err != ErrNonPositivePrice {
		t.Fatalf("expected ErrNonPositivePrice, got %v", err)
	}

	nilPrice := base
	nilPrice.Price = nil
	if err := ValidateRound(nilPrice, 1500, 3600); err != ErrNonPositivePrice {
		t.Fatalf("expected ErrNonPositivePrice for nil price, got %v", err)
	}

	carried := base
	carried.AnsweredInRound = 4
	if err := ValidateRound(carried, 1500, 3600); err != ErrNonMonotonicRound {
		t.Fatalf("expected ErrNonMonotonicRound, got %v", err)
	}

	if err := ValidateRound(base, 1000+3601, 3600); err != ErrStaleRound {
		t.Fatalf("expected ErrStaleRound, got %v", err)
	}
	// Exactly at the threshold is still fresh.
	if err := ValidateRound(base, 1000+3600, 3600); err != nil {
		t.Fatalf("round at the staleness boundary rejected: %v", err)
	}
	// Zero staleness disables the age check.
	if err := ValidateRound(base, 1_000_000, 0); err != nil {
		t.Fatalf("staleness check not disabled: %v", err)
	}
}

func TestStaticFeed(t *testing.T) {
	feed := NewStaticFeed(big.NewInt(200_000_000), 50)
	round, err := feed.Latest()
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if round.RoundID != 1 || round.AnsweredInRound != 1 {
		t.Fatalf("unexpected round ids: %d, %d", round.RoundID, round.AnsweredInRound)
	}
	if round.Price.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatalf("price = %s, want 200000000", round.Price)
	}

	// Mutating the returned price must not affect the feed.
	round.Price.SetInt64(1)
	again, _ := feed.Latest()
	if again.Price.Cmp(big.NewInt(200_000_000)) != 0 {
		t.Fatal("feed price aliased to the returned round")
	}

	feed.Set(Round{RoundID: 2, Price: big.NewInt(300), UpdatedAt: 60, AnsweredInRound: 2})
	updated, _ := feed.Latest()
	if updated.RoundID != 2 || updated.Price.Cmp(big.NewInt(300)) != 0 {
		t.Fatalf("unexpected updated round: %+v", updated)
	}
}
