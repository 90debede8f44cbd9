package core

import (
	"errors"
	"testing"
)

func TestWaterfall(t *testing.T) {
	cases := []struct {
		name           string
		card, cash     int64
		amount         int64
		fromCard       int64
		fromCash       int64
		wantErr        bool
		insufficientOK bool
	}{
		{name: "card covers all", card: 1000, cash: 500, amount: 700, fromCard: 700, fromCash: 0},
		{name: "exact card", card: 700, cash: 0, amount: 700, fromCard: 700, fromCash: 0},
		{name: "spills to cash", card: 300, cash: 500, amount: 700, fromCard: 300, fromCash: 400},
		{name: "cash only", card: 0, cash: 700, amount: 700, fromCard: 0, fromCash: 700},
		{name: "drains both", card: 300, cash: 400, amount: 700, fromCard: 300, fromCash: 400},
		{name: "insufficient", card: 300, cash: 300, amount: 700, wantErr: true, insufficientOK: true},
		{name: "zero amount", card: 100, cash: 100, amount: 0, wantErr: true},
		{name: "negative amount", card: 100, cash: 100, amount: -5, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fromCard, fromCash, err := Waterfall(Money{Cents: tc.card}, Money{Cents: tc.cash}, Money{Cents: tc.amount})
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				if tc.insufficientOK {
					var ife *InsufficientFundsError
					if !errors.As(err, &ife) {
						t.Fatalf("expected InsufficientFundsError, got %v", err)
					}
					if ife.Available.Cents != tc.card+tc.cash {
						t.Fatalf("available: expected %d, got %d", tc.card+tc.cash, ife.Available.Cents)
					}
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if fromCard.Cents != tc.fromCard || fromCash.Cents != tc.fromCash {
				t.Fatalf("expected (%d, %d), got (%d, %d)", tc.fromCard, tc.fromCash, fromCard.Cents, fromCash.Cents)
			}
			if fromCard.Cents+fromCash.Cents != tc.amount {
				t.Fatalf("split does not sum to amount")
			}
		})
	}
}

func TestSalarySplit(t *testing.T) {
	cases := []struct {
		total     int64
		household int64
		piggy     int64
	}{
		{10000, 9000, 1000},
		{100, 90, 10},
		{105, 94, 11}, // 10.5 rounds half-up
		{104, 94, 10},
		{1, 1, 0}, // tiny salary, 10% rounds down to nothing
		{999999, 899999, 100000},
	}
	for _, tc := range cases {
		household, piggy := SalarySplit(Money{Cents: tc.total})
		if household.Cents != tc.household || piggy.Cents != tc.piggy {
			t.Fatalf("total=%d expected (%d, %d), got (%d, %d)",
				tc.total, tc.household, tc.piggy, household.Cents, piggy.Cents)
		}
		if household.Cents+piggy.Cents != tc.total {
			t.Fatalf("total=%d split does not conserve", tc.total)
		}
	}
}

func TestResolveAccountHint(t *testing.T) {
	cases := []struct {
		text string
		want AccountHint
		ok   bool
	}{
		{"купил хлеб картой", HintCard, true},
		{"заплатил налом за такси", HintCash, true},
		{"paid by card", HintCard, true},
		{"cash for groceries", HintCash, true},
		{"наличными.", HintCash, true},
		{"купил хлеб", HintNone, false},
		{"картой и наличными", HintNone, false},
		{"", HintNone, false},
	}
	for _, tc := range cases {
		got, err := ResolveAccountHint(tc.text)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.text, tc.want, got, err)
			}
		} else {
			if !errors.Is(err, ErrAmbiguousAccount) {
				t.Fatalf("%q expected ErrAmbiguousAccount, got %v", tc.text, err)
			}
		}
	}
}

func TestIntentValidate(t *testing.T) {
	item := ItemDraft{Name: "хлеб", Amount: Money{Cents: 100}}

	cases := []struct {
		name   string
		intent Intent
		want   error
	}{
		{
			name:   "valid household expense",
			intent: Intent{UserID: 1, Kind: HouseholdExpense, Hint: HintCard, Items: []ItemDraft{item}},
		},
		{
			name:   "household expense needs hint",
			intent: Intent{UserID: 1, Kind: HouseholdExpense, Items: []ItemDraft{item}},
			want:   ErrAmbiguousAccount,
		},
		{
			name:   "salary needs hint",
			intent: Intent{UserID: 1, Kind: Salary, Items: []ItemDraft{item}},
			want:   ErrAmbiguousAccount,
		},
		{
			name:   "business expense no hint needed",
			intent: Intent{UserID: 1, Kind: BusinessExpense, Items: []ItemDraft{item}},
		},
		{
			name:   "piggy deposit needs bank",
			intent: Intent{UserID: 1, Kind: PiggyDeposit, Items: []ItemDraft{item}},
			want:   ErrAccountNotFound,
		},
		{
			name:   "no items",
			intent: Intent{UserID: 1, Kind: BusinessIncome},
			want:   ErrEmptyItems,
		},
		{
			name:   "bad kind",
			intent: Intent{UserID: 1, Kind: "transfer", Items: []ItemDraft{item}},
			want:   ErrInvalidKind,
		},
		{
			name: "zero amount item",
			intent: Intent{UserID: 1, Kind: BusinessIncome,
				Items: []ItemDraft{{Name: "x", Amount: Money{}}}},
			want: ErrInvalidAmount,
		},
		{
			name: "empty item name",
			intent: Intent{UserID: 1, Kind: BusinessIncome,
				Items: []ItemDraft{{Name: "  ", Amount: Money{Cents: 1}}}},
			want: ErrEmptyName,
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.intent.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestIntentTotal(t *testing.T) {
	in := Intent{Items: []ItemDraft{
		{Name: "a", Amount: Money{Cents: 150}},
		{Name: "b", Amount: Money{Cents: 250}},
	}}
	if got := in.Total().Cents; got != 400 {
		t.Fatalf("expected 400, got %d", got)
	}
}

func TestDaysRemainingInMonth(t *testing.T) {
	cases := []struct {
		year, month, day int
		want             int
	}{
		{2026, 1, 1, 31},
		{2026, 1, 31, 1},
		{2026, 4, 29, 2},
		{2026, 2, 28, 1},
		{2024, 2, 28, 2}, // leap year
		{2026, 6, 15, 16},
	}
	for _, tc := range cases {
		if got := DaysRemainingInMonth(tc.year, tc.month, tc.day); got != tc.want {
			t.Fatalf("%d-%d-%d expected %d, got %d", tc.year, tc.month, tc.day, tc.want, got)
		}
	}
}
