package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kopilka/internal/amqp"
	"kopilka/internal/core"
	"kopilka/internal/storage"
)

// ObligationService tracks recurring payments. Dues are created lazily
// per calendar month and snapshot the template amount, so later template
// edits never change an already issued due.
type ObligationService struct {
	storage *storage.SQLiteRepository
	ledger  *LedgerService
}

func NewObligationService(storage *storage.SQLiteRepository, ledger *LedgerService) *ObligationService {
	return &ObligationService{storage: storage, ledger: ledger}
}

func (s *ObligationService) CreateFixedPayment(ctx context.Context, p core.FixedPayment) (core.FixedPayment, error) {
	if err := p.Validate(); err != nil {
		return core.FixedPayment{}, err
	}
	p.IsActive = true
	return s.storage.Queries().CreateFixedPayment(ctx, p)
}

func (s *ObligationService) UpdateFixedPayment(ctx context.Context, id int64, name string, amount core.Money, dueDay int) error {
	p := core.FixedPayment{Name: name, Amount: amount, DueDay: dueDay}
	if err := p.Validate(); err != nil {
		return err
	}
	q := s.storage.Queries()
	if _, err := q.GetFixedPayment(ctx, id); err != nil {
		return err
	}
	return q.UpdateFixedPayment(ctx, id, name, amount, dueDay)
}

func (s *ObligationService) DeactivateFixedPayment(ctx context.Context, id int64) error {
	q := s.storage.Queries()
	if _, err := q.GetFixedPayment(ctx, id); err != nil {
		return err
	}
	return q.DeactivateFixedPayment(ctx, id)
}

// EnsureDue returns the due for one payment and month, creating it on
// first access. Safe to call repeatedly; the unique index on
// (fixed_payment_id, year, month) guards concurrent callers.
func (s *ObligationService) EnsureDue(ctx context.Context, fixedPaymentID int64, year, month int) (core.FixedPaymentDue, error) {
	q := s.storage.Queries()

	due, err := q.GetDueForMonth(ctx, fixedPaymentID, year, month)
	if err == nil {
		return due, nil
	}
	if !errors.Is(err, core.ErrDueNotFound) {
		return core.FixedPaymentDue{}, err
	}

	payment, err := q.GetFixedPayment(ctx, fixedPaymentID)
	if err != nil {
		return core.FixedPaymentDue{}, err
	}

	due, err = q.CreateDue(ctx, fixedPaymentID, year, month, payment.Amount)
	if err != nil {
		// Lost the race to another caller; the existing row wins.
		if existing, getErr := q.GetDueForMonth(ctx, fixedPaymentID, year, month); getErr == nil {
			return existing, nil
		}
		return core.FixedPaymentDue{}, fmt.Errorf("create due: %w", err)
	}
	return due, nil
}

// EnsureMonth materializes dues for every active payment, then returns
// the month's full due list.
func (s *ObligationService) EnsureMonth(ctx context.Context, year, month int) ([]core.FixedPaymentDue, error) {
	payments, err := s.storage.Queries().ListActiveFixedPayments(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range payments {
		if _, err := s.EnsureDue(ctx, p.ID, year, month); err != nil {
			return nil, err
		}
	}
	return s.storage.Queries().ListDuesForMonth(ctx, year, month)
}

// Pay settles a due, fully by default or partially when amount is set.
// The payment is a regular household expense operation carrying the due
// id, so a later reversal can reopen the due.
func (s *ObligationService) Pay(ctx context.Context, dueID, userID int64, hint core.AccountHint, amount core.Money) (core.Operation, error) {
	if hint != core.HintCard && hint != core.HintCash {
		return core.Operation{}, core.ErrAmbiguousAccount
	}

	var op core.Operation
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		due, err := q.GetDue(ctx, dueID)
		if err != nil {
			return err
		}
		if due.Skipped {
			return core.ErrDueClosed
		}

		pay := amount
		if pay.Cents == 0 {
			if due.IsPaid {
				return core.ErrDueClosed
			}
			pay = due.Remaining()
		}
		if err := pay.Validate(); err != nil {
			return err
		}
		// Any explicit amount past the remainder is rejected the same way,
		// including on an already settled due where remaining is zero.
		if pay.Cents > due.Remaining().Cents {
			return core.ErrInvalidAmount
		}

		payment, err := q.GetFixedPayment(ctx, due.FixedPaymentID)
		if err != nil {
			return err
		}

		intent := core.Intent{
			UserID:       userID,
			Kind:         core.HouseholdExpense,
			Hint:         hint,
			SettledDueID: &due.ID,
			Items: []core.ItemDraft{{
				Name:       payment.Name,
				Amount:     pay,
				CategoryID: payment.CategoryID,
			}},
		}
		if err := intent.Validate(); err != nil {
			return err
		}
		op, err = applyIntent(ctx, q, intent)
		if err != nil {
			return err
		}

		paid := due.PaidAmount.Add(pay)
		now := time.Now().UTC()
		return q.UpdateDuePayment(ctx, due.ID, paid, paid.Cents >= due.DueAmount.Cents, &now, hint)
	})
	if err != nil {
		return core.Operation{}, err
	}

	s.ledger.publishEvent(ctx, op.ID, amqp.ActionApplied)
	return op, nil
}

// Skip closes a due without payment. Terminal: a skipped due cannot be
// reopened or paid.
func (s *ObligationService) Skip(ctx context.Context, dueID int64) error {
	return s.storage.WithTx(ctx, func(q *storage.Queries) error {
		due, err := q.GetDue(ctx, dueID)
		if err != nil {
			return err
		}
		if due.IsPaid || due.Skipped {
			return core.ErrDueClosed
		}
		return q.SkipDue(ctx, dueID)
	})
}

// OutstandingForMonth sums what is still owed across the month's open
// dues, materializing them first.
func (s *ObligationService) OutstandingForMonth(ctx context.Context, year, month int) (core.Money, []core.FixedPaymentDue, error) {
	dues, err := s.EnsureMonth(ctx, year, month)
	if err != nil {
		return core.Money{}, nil, err
	}
	var outstanding core.Money
	for _, d := range dues {
		if d.IsPaid || d.Skipped {
			continue
		}
		outstanding = outstanding.Add(d.Remaining())
	}
	return outstanding, dues, nil
}

// DailyBudget forecasts how much the household can spend per remaining
// day of the month after covering open dues. Never negative.
func (s *ObligationService) DailyBudget(ctx context.Context, at time.Time) (core.Money, error) {
	year, month, day := at.Date()

	outstanding, _, err := s.OutstandingForMonth(ctx, year, int(month))
	if err != nil {
		return core.Money{}, err
	}
	budget, err := s.storage.Queries().GetHouseholdBudget(ctx)
	if err != nil {
		return core.Money{}, err
	}

	free := budget.Total().Sub(outstanding)
	if free.Cents <= 0 {
		return core.Money{}, nil
	}
	days := core.DaysRemainingInMonth(year, int(month), day)
	if days <= 0 {
		return core.Money{}, nil
	}
	return core.Money{Cents: free.Cents / int64(days)}, nil
}
