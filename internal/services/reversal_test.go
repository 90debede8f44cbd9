package services

import (
	"context"
	"errors"
	"testing"

	"kopilka/internal/core"
)

func TestReverseRestoresBalances(t *testing.T) {
	cases := []struct {
		name   string
		intent core.Intent
	}{
		{"household expense card", core.Intent{Kind: core.HouseholdExpense, Hint: core.HintCard, Items: items(1234)}},
		{"household expense cash", core.Intent{Kind: core.HouseholdExpense, Hint: core.HintCash, Items: items(999)}},
		{"household income", core.Intent{Kind: core.HouseholdIncome, Hint: core.HintCard, Items: items(5000)}},
		{"business income", core.Intent{Kind: core.BusinessIncome, Items: items(7000)}},
		{"business expense", core.Intent{Kind: core.BusinessExpense, Items: items(3000)}},
		{"salary", core.Intent{Kind: core.Salary, Hint: core.HintCard, Items: items(10000)}},
		{"piggy withdraw after deposit", core.Intent{Kind: core.PiggyWithdraw, Items: items(2000)}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			engine := NewReversalEngine(f.repo, nil)

			intent := tc.intent
			intent.UserID = f.userID
			if intent.Kind == core.PiggyWithdraw || intent.Kind == core.PiggyDeposit {
				intent.PiggyBankID = f.piggyID
			}
			if intent.Kind == core.PiggyWithdraw {
				// Seed the piggy so the withdraw has something to take.
				if _, err := f.ledger.Apply(ctx, core.Intent{
					UserID: f.userID, Kind: core.PiggyDeposit, PiggyBankID: f.piggyID, Items: items(5000),
				}); err != nil {
					t.Fatalf("seed deposit: %v", err)
				}
			}

			card0, cash0, business0, piggy0 := f.balances(t)

			op, err := f.ledger.Apply(ctx, intent)
			if err != nil {
				t.Fatalf("apply: %v", err)
			}
			if err := engine.Reverse(ctx, op.ID); err != nil {
				t.Fatalf("reverse: %v", err)
			}

			card, cash, business, piggy := f.balances(t)
			if card != card0 || cash != cash0 || business != business0 || piggy != piggy0 {
				t.Fatalf("balances not restored: got (%d %d %d %d), want (%d %d %d %d)",
					card, cash, business, piggy, card0, cash0, business0, piggy0)
			}

			if _, err := f.ledger.Get(ctx, op.ID); !errors.Is(err, core.ErrOperationNotFound) {
				t.Fatalf("expected operation deleted, got %v", err)
			}
		})
	}
}

func TestReversePiggyDepositRestoresSplit(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	engine := NewReversalEngine(f.repo, nil)

	// 60000 splits 50000 card + 10000 cash; the reversal refunds each
	// sub-balance along the recorded split.
	op, err := f.ledger.Apply(ctx, core.Intent{
		UserID: f.userID, Kind: core.PiggyDeposit, PiggyBankID: f.piggyID, Items: items(60000),
	})
	if err != nil {
		t.Fatalf("apply deposit: %v", err)
	}
	if op.FromCard == nil || op.FromCard.Cents != 50000 {
		t.Fatalf("expected recorded card share 50000, got %+v", op.FromCard)
	}
	if err := engine.Reverse(ctx, op.ID); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	card, cash, _, piggy := f.balances(t)
	if piggy != 0 {
		t.Fatalf("expected empty piggy, got %d", piggy)
	}
	if card != 50000 || cash != 20000 {
		t.Fatalf("sub-balances not restored: expected card 50000 cash 20000, got %d %d", card, cash)
	}
}

func TestReverseClampsAtZero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	engine := NewReversalEngine(f.repo, nil)

	// Record an income, spend past it, then reverse the income. The
	// inverse would drive the card below zero; it clamps instead.
	income, err := f.ledger.Apply(ctx, core.Intent{
		UserID: f.userID, Kind: core.HouseholdIncome, Hint: core.HintCard, Items: items(30000),
	})
	if err != nil {
		t.Fatalf("income: %v", err)
	}
	if _, err := f.ledger.Apply(ctx, core.Intent{
		UserID: f.userID, Kind: core.HouseholdExpense, Hint: core.HintCard, Items: items(70000),
	}); err != nil {
		t.Fatalf("expense: %v", err)
	}

	if err := engine.Reverse(ctx, income.ID); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	card, _, _, _ := f.balances(t)
	// 50000 + 30000 - 70000 = 10000; minus 30000 clamps to 0.
	if card != 0 {
		t.Fatalf("expected card clamped to 0, got %d", card)
	}
}

func TestReverseUnknownOperation(t *testing.T) {
	f := newFixture(t)
	engine := NewReversalEngine(f.repo, nil)

	if err := engine.Reverse(context.Background(), 12345); !errors.Is(err, core.ErrOperationNotFound) {
		t.Fatalf("expected ErrOperationNotFound, got %v", err)
	}
}
