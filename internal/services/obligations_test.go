package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"kopilka/internal/core"
)

func newObligations(f *fixture) *ObligationService {
	return NewObligationService(f.repo, f.ledger)
}

func createPayment(t *testing.T, s *ObligationService, name string, cents int64, day int) core.FixedPayment {
	t.Helper()
	payment, err := s.CreateFixedPayment(context.Background(), core.FixedPayment{
		Name: name, Amount: core.Money{Cents: cents}, DueDay: day,
	})
	if err != nil {
		t.Fatalf("create payment: %v", err)
	}
	return payment
}

func TestEnsureDueIdempotent(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	payment := createPayment(t, s, "Аренда", 30000, 5)

	first, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	second, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure again: %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("expected same due, got %d and %d", first.ID, second.ID)
	}

	other, err := s.EnsureDue(ctx, payment.ID, 2026, 9)
	if err != nil {
		t.Fatalf("ensure next month: %v", err)
	}
	if other.ID == first.ID {
		t.Fatal("expected a fresh due for the next month")
	}
}

func TestDueSnapshotsTemplateAmount(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	payment := createPayment(t, s, "Интернет", 600, 10)
	due, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	// Raising the template does not touch the issued due.
	if err := s.UpdateFixedPayment(ctx, payment.ID, "Интернет", core.Money{Cents: 900}, 10); err != nil {
		t.Fatalf("update payment: %v", err)
	}
	due, err = f.repo.Queries().GetDue(ctx, due.ID)
	if err != nil {
		t.Fatalf("reload due: %v", err)
	}
	if due.DueAmount.Cents != 600 {
		t.Fatalf("due amount changed: %d", due.DueAmount.Cents)
	}

	// The next month picks up the new template amount.
	next, err := s.EnsureDue(ctx, payment.ID, 2026, 9)
	if err != nil {
		t.Fatalf("ensure next: %v", err)
	}
	if next.DueAmount.Cents != 900 {
		t.Fatalf("expected 900, got %d", next.DueAmount.Cents)
	}
}

func TestPayDueFully(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	payment := createPayment(t, s, "Аренда", 30000, 5)
	due, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	op, err := s.Pay(ctx, due.ID, f.userID, core.HintCard, core.Money{})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}
	if op.SettledDueID == nil || *op.SettledDueID != due.ID {
		t.Fatalf("expected settled due link, got %+v", op)
	}
	if op.Kind != core.HouseholdExpense || op.TotalAmount.Cents != 30000 {
		t.Fatalf("unexpected payment operation: %+v", op)
	}

	due, err = f.repo.Queries().GetDue(ctx, due.ID)
	if err != nil {
		t.Fatalf("reload due: %v", err)
	}
	if !due.IsPaid || due.PaidAmount.Cents != 30000 || due.PaidAccount != core.HintCard {
		t.Fatalf("unexpected due: %+v", due)
	}

	card, _, _, _ := f.balances(t)
	if card != 20000 {
		t.Fatalf("expected card 20000, got %d", card)
	}

	// A paid due cannot be paid again or skipped.
	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCard, core.Money{}); !errors.Is(err, core.ErrDueClosed) {
		t.Fatalf("expected ErrDueClosed, got %v", err)
	}
	if err := s.Skip(ctx, due.ID); !errors.Is(err, core.ErrDueClosed) {
		t.Fatalf("expected ErrDueClosed on skip, got %v", err)
	}
}

func TestPayDuePartially(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	payment := createPayment(t, s, "Аренда", 30000, 5)
	due, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCash, core.Money{Cents: 10000}); err != nil {
		t.Fatalf("partial pay: %v", err)
	}

	due, err = f.repo.Queries().GetDue(ctx, due.ID)
	if err != nil {
		t.Fatalf("reload due: %v", err)
	}
	if due.IsPaid || due.PaidAmount.Cents != 10000 || due.Remaining().Cents != 20000 {
		t.Fatalf("unexpected due after partial pay: %+v", due)
	}

	// Overpaying the remainder is rejected.
	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCash, core.Money{Cents: 25000}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}

	// Paying the rest closes the due.
	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCash, core.Money{}); err != nil {
		t.Fatalf("final pay: %v", err)
	}
	due, err = f.repo.Queries().GetDue(ctx, due.ID)
	if err != nil {
		t.Fatalf("reload due: %v", err)
	}
	if !due.IsPaid || due.PaidAmount.Cents != 30000 {
		t.Fatalf("expected closed due, got %+v", due)
	}
}

func TestPayDueSettledRejectsFurtherAmount(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	payment := createPayment(t, s, "Интернет", 500, 10)
	due, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCard, core.Money{Cents: 200}); err != nil {
		t.Fatalf("first pay: %v", err)
	}
	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCard, core.Money{Cents: 300}); err != nil {
		t.Fatalf("second pay: %v", err)
	}

	// Remaining is zero now, so any further amount exceeds it.
	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCard, core.Money{Cents: 1}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestPayDueNeedsAccount(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	payment := createPayment(t, s, "Аренда", 30000, 5)
	due, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintNone, core.Money{}); !errors.Is(err, core.ErrAmbiguousAccount) {
		t.Fatalf("expected ErrAmbiguousAccount, got %v", err)
	}
}

func TestSkipDueIsTerminal(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	payment := createPayment(t, s, "Интернет", 600, 10)
	due, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}

	if err := s.Skip(ctx, due.ID); err != nil {
		t.Fatalf("skip: %v", err)
	}
	if err := s.Skip(ctx, due.ID); !errors.Is(err, core.ErrDueClosed) {
		t.Fatalf("expected ErrDueClosed on second skip, got %v", err)
	}
	if _, err := s.Pay(ctx, due.ID, f.userID, core.HintCard, core.Money{}); !errors.Is(err, core.ErrDueClosed) {
		t.Fatalf("expected ErrDueClosed on pay, got %v", err)
	}
}

func TestReversePaymentReopensDue(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()
	engine := NewReversalEngine(f.repo, nil)

	payment := createPayment(t, s, "Аренда", 30000, 5)
	due, err := s.EnsureDue(ctx, payment.ID, 2026, 8)
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	op, err := s.Pay(ctx, due.ID, f.userID, core.HintCard, core.Money{})
	if err != nil {
		t.Fatalf("pay: %v", err)
	}

	if err := engine.Reverse(ctx, op.ID); err != nil {
		t.Fatalf("reverse: %v", err)
	}

	due, err = f.repo.Queries().GetDue(ctx, due.ID)
	if err != nil {
		t.Fatalf("reload due: %v", err)
	}
	if due.IsPaid || due.PaidAmount.Cents != 0 {
		t.Fatalf("expected reopened due, got %+v", due)
	}
	if due.PaidAt != nil || due.PaidAccount != core.HintNone {
		t.Fatalf("expected cleared payment fields, got %+v", due)
	}

	card, _, _, _ := f.balances(t)
	if card != 50000 {
		t.Fatalf("expected card restored to 50000, got %d", card)
	}
}

func TestOutstandingForMonth(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	createPayment(t, s, "Аренда", 30000, 5)
	createPayment(t, s, "Интернет", 600, 10)
	inactive := createPayment(t, s, "Спортзал", 2000, 15)
	if err := s.DeactivateFixedPayment(ctx, inactive.ID); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	outstanding, dues, err := s.OutstandingForMonth(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("outstanding: %v", err)
	}
	if len(dues) != 2 {
		t.Fatalf("expected 2 dues, got %d", len(dues))
	}
	if outstanding.Cents != 30600 {
		t.Fatalf("expected 30600 outstanding, got %d", outstanding.Cents)
	}

	// Paying one due shrinks the outstanding sum.
	if _, err := s.Pay(ctx, dues[1].ID, f.userID, core.HintCard, core.Money{}); err != nil {
		t.Fatalf("pay: %v", err)
	}
	outstanding, _, err = s.OutstandingForMonth(ctx, 2026, 8)
	if err != nil {
		t.Fatalf("outstanding: %v", err)
	}
	if outstanding.Cents != 30000 {
		t.Fatalf("expected 30000 outstanding, got %d", outstanding.Cents)
	}
}

func TestDailyBudget(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	createPayment(t, s, "Аренда", 30000, 5)

	// Household total 70000, outstanding 30000, 16 days left in August
	// from the 16th: (70000-30000)/16 = 2500.
	at := time.Date(2026, 8, 16, 12, 0, 0, 0, time.UTC)
	daily, err := s.DailyBudget(ctx, at)
	if err != nil {
		t.Fatalf("daily budget: %v", err)
	}
	if daily.Cents != 2500 {
		t.Fatalf("expected 2500, got %d", daily.Cents)
	}
}

func TestDailyBudgetNeverNegative(t *testing.T) {
	f := newFixture(t)
	s := newObligations(f)
	ctx := context.Background()

	createPayment(t, s, "Аренда", 100000, 5)

	at := time.Date(2026, 8, 16, 12, 0, 0, 0, time.UTC)
	daily, err := s.DailyBudget(ctx, at)
	if err != nil {
		t.Fatalf("daily budget: %v", err)
	}
	if daily.Cents != 0 {
		t.Fatalf("expected 0, got %d", daily.Cents)
	}
}
