package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"kopilka/internal/amqp"
	"kopilka/internal/core"
	"kopilka/internal/storage"
)

// ReversalEngine undoes a recorded operation: it applies the exact inverse
// of the original balance effect, restores any due the operation settled,
// and deletes the operation. Balances are clamped at zero afterwards so a
// reversal can never drive an account negative.
type ReversalEngine struct {
	storage    *storage.SQLiteRepository
	amqpClient *amqp.Client
}

func NewReversalEngine(storage *storage.SQLiteRepository, amqpClient *amqp.Client) *ReversalEngine {
	return &ReversalEngine{storage: storage, amqpClient: amqpClient}
}

func (e *ReversalEngine) Reverse(ctx context.Context, operationID int64) error {
	err := e.storage.WithTx(ctx, func(q *storage.Queries) error {
		op, err := q.GetOperation(ctx, operationID)
		if err != nil {
			return err
		}

		if err := reverseBalances(ctx, q, op); err != nil {
			return err
		}

		if op.SettledDueID != nil {
			if err := reopenDue(ctx, q, *op.SettledDueID, op.TotalAmount); err != nil {
				return err
			}
		}

		if err := q.DeleteOperation(ctx, op.ID); err != nil {
			return fmt.Errorf("delete operation: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	if e.amqpClient != nil {
		if err := e.amqpClient.PublishOperationEvent(ctx, operationID, amqp.ActionReversed); err != nil {
			slog.ErrorContext(ctx, "Failed to publish reversal event",
				"operation_id", operationID, "error", err)
		}
	}
	return nil
}

func reverseBalances(ctx context.Context, q *storage.Queries, op core.Operation) error {
	total := op.TotalAmount

	switch op.Kind {
	case core.HouseholdExpense, core.HouseholdIncome:
		budget, err := q.GetHouseholdBudget(ctx)
		if err != nil {
			return err
		}
		back := total
		if op.Kind == core.HouseholdIncome {
			back = total.Neg()
		}
		card, cash := budget.CardBalance, budget.CashBalance
		// An expense with no recorded hint is credited back to the card.
		if op.AccountHint == core.HintCash {
			cash = cash.Add(back)
		} else {
			card = card.Add(back)
		}
		return q.UpdateHouseholdBalances(ctx, budget.ID, clamp(card), clamp(cash))

	case core.BusinessIncome, core.BusinessExpense:
		account, err := q.GetBusinessAccountByUser(ctx, op.UserID)
		if err != nil {
			return err
		}
		back := total
		if op.Kind == core.BusinessIncome {
			back = total.Neg()
		}
		return q.UpdateBusinessBalance(ctx, account.ID, clamp(account.Balance.Add(back)))

	case core.Salary:
		return reverseSalary(ctx, q, op)

	case core.PiggyDeposit, core.PiggyWithdraw:
		return reversePiggyMove(ctx, q, op)

	default:
		return core.ErrInvalidKind
	}
}

func reverseSalary(ctx context.Context, q *storage.Queries, op core.Operation) error {
	householdShare, piggyShare := core.SalarySplit(op.TotalAmount)

	account, err := q.GetBusinessAccountByUser(ctx, op.UserID)
	if err != nil {
		return err
	}
	if err := q.UpdateBusinessBalance(ctx, account.ID, account.Balance.Add(op.TotalAmount)); err != nil {
		return err
	}

	piggy, err := q.GetAutoPiggyBank(ctx)
	switch {
	case err == nil:
		if err := q.UpdatePiggyBalance(ctx, piggy.ID, clamp(piggy.Balance.Sub(piggyShare))); err != nil {
			return err
		}
	case errors.Is(err, core.ErrAccountNotFound):
		// The original apply routed the cut to the household when no auto
		// piggy existed, so the household gives the full amount back.
		householdShare = householdShare.Add(piggyShare)
		slog.WarnContext(ctx, "No auto piggy bank, reversing full salary from household budget")
	default:
		return err
	}

	budget, err := q.GetHouseholdBudget(ctx)
	if err != nil {
		return err
	}
	card, cash := budget.CardBalance, budget.CashBalance
	if op.AccountHint == core.HintCash {
		cash = cash.Sub(householdShare)
	} else {
		card = card.Sub(householdShare)
	}
	return q.UpdateHouseholdBalances(ctx, budget.ID, clamp(card), clamp(cash))
}

// reversePiggyMove handles piggy_deposit and piggy_withdraw. A deposit is
// refunded along the recorded card/cash split.
func reversePiggyMove(ctx context.Context, q *storage.Queries, op core.Operation) error {
	if op.PiggyBankID == nil {
		return core.ErrAccountNotFound
	}
	piggy, err := q.GetPiggyBank(ctx, *op.PiggyBankID)
	if err != nil {
		return err
	}
	budget, err := q.GetHouseholdBudget(ctx)
	if err != nil {
		return err
	}

	if op.Kind == core.PiggyDeposit {
		if err := q.UpdatePiggyBalance(ctx, piggy.ID, clamp(piggy.Balance.Sub(op.TotalAmount))); err != nil {
			return err
		}
		fromCard := op.TotalAmount
		if op.FromCard != nil {
			fromCard = *op.FromCard
		}
		fromCash := op.TotalAmount.Sub(fromCard)
		return q.UpdateHouseholdBalances(ctx, budget.ID,
			budget.CardBalance.Add(fromCard), budget.CashBalance.Add(fromCash))
	}

	if err := q.UpdatePiggyBalance(ctx, piggy.ID, piggy.Balance.Add(op.TotalAmount)); err != nil {
		return err
	}
	return q.UpdateHouseholdBalances(ctx, budget.ID,
		clamp(budget.CardBalance.Sub(op.TotalAmount)), budget.CashBalance)
}

func reopenDue(ctx context.Context, q *storage.Queries, dueID int64, amount core.Money) error {
	due, err := q.GetDue(ctx, dueID)
	if err != nil {
		return err
	}
	paid := clamp(due.PaidAmount.Sub(amount))
	isPaid := paid.Cents >= due.DueAmount.Cents
	paidAt := due.PaidAt
	paidAccount := due.PaidAccount
	if paid.Cents == 0 {
		paidAt = nil
		paidAccount = core.HintNone
	}
	return q.UpdateDuePayment(ctx, dueID, paid, isPaid, paidAt, paidAccount)
}

func clamp(m core.Money) core.Money {
	if m.Cents < 0 {
		return core.Money{}
	}
	return m
}
