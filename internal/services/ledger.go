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

// LedgerService applies operations to the ledger. Every balance mutation
// and the operation row land in one transaction; the AMQP notification is
// published after commit and never fails the request.
type LedgerService struct {
	storage     *storage.SQLiteRepository
	amqpClient  *amqp.Client
	categorizer Categorizer
}

func NewLedgerService(storage *storage.SQLiteRepository, amqpClient *amqp.Client, categorizer Categorizer) *LedgerService {
	if categorizer == nil {
		categorizer = NoopCategorizer{}
	}
	return &LedgerService{
		storage:     storage,
		amqpClient:  amqpClient,
		categorizer: categorizer,
	}
}

// Apply validates, categorizes and records one operation.
func (s *LedgerService) Apply(ctx context.Context, intent core.Intent) (core.Operation, error) {
	if err := intent.Validate(); err != nil {
		return core.Operation{}, err
	}

	// Categorization runs outside the transaction; a slow or failing
	// categorizer must not hold the write lock.
	for i := range intent.Items {
		if intent.Items[i].CategoryID != nil {
			continue
		}
		id, sub, err := s.categorizer.Categorize(ctx, intent.Items[i].Name)
		if err != nil {
			slog.WarnContext(ctx, "Categorization failed, leaving item uncategorized",
				"item", intent.Items[i].Name, "error", err)
			continue
		}
		intent.Items[i].CategoryID = id
		if intent.Items[i].Subcategory == "" {
			intent.Items[i].Subcategory = sub
		}
	}

	var op core.Operation
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		var err error
		op, err = applyIntent(ctx, q, intent)
		return err
	})
	if err != nil {
		return core.Operation{}, err
	}

	s.publishEvent(ctx, op.ID, amqp.ActionApplied)
	return op, nil
}

// AmendItemAmount changes one item's amount and re-applies the delta to
// the affected balances. No funds check runs here; the original operation
// already passed one and the correction must always be recordable.
func (s *LedgerService) AmendItemAmount(ctx context.Context, itemID int64, amount core.Money) (core.Operation, error) {
	if err := amount.Validate(); err != nil {
		return core.Operation{}, err
	}

	var op core.Operation
	err := s.storage.WithTx(ctx, func(q *storage.Queries) error {
		item, err := q.GetOperationItem(ctx, itemID)
		if err != nil {
			return err
		}
		header, err := q.GetOperation(ctx, item.OperationID)
		if err != nil {
			return err
		}

		delta := amount.Sub(item.Amount)
		if delta.Cents != 0 {
			if err := applyDelta(ctx, q, header, delta); err != nil {
				return err
			}
		}

		if err := q.UpdateOperationItemAmount(ctx, itemID, amount); err != nil {
			return fmt.Errorf("update item amount: %w", err)
		}
		if err := q.UpdateOperationTotal(ctx, header.ID, header.TotalAmount.Add(delta)); err != nil {
			return fmt.Errorf("update operation total: %w", err)
		}
		if err := q.SetOperationExportState(ctx, header.ID, storage.ExportPending); err != nil {
			return fmt.Errorf("reset export state: %w", err)
		}

		op, err = loadOperation(ctx, q, header.ID)
		return err
	})
	if err != nil {
		return core.Operation{}, err
	}

	s.publishEvent(ctx, op.ID, amqp.ActionApplied)
	return op, nil
}

// AmendItemName renames one item and runs it through the categorizer
// again, since the category was derived from the old name.
func (s *LedgerService) AmendItemName(ctx context.Context, itemID int64, name string) (core.Operation, error) {
	probe := core.OperationItem{Name: name, Amount: core.Money{Cents: 1}}
	if err := probe.Validate(); err != nil {
		return core.Operation{}, err
	}

	categoryID, subcategory, err := s.categorizer.Categorize(ctx, name)
	if err != nil {
		slog.WarnContext(ctx, "Categorization failed, leaving item uncategorized",
			"item", name, "error", err)
		categoryID, subcategory = nil, ""
	}

	var op core.Operation
	err = s.storage.WithTx(ctx, func(q *storage.Queries) error {
		item, err := q.GetOperationItem(ctx, itemID)
		if err != nil {
			return err
		}
		if err := q.UpdateOperationItemName(ctx, itemID, name, categoryID, subcategory); err != nil {
			return fmt.Errorf("update item name: %w", err)
		}
		if err := q.SetOperationExportState(ctx, item.OperationID, storage.ExportPending); err != nil {
			return fmt.Errorf("reset export state: %w", err)
		}
		op, err = loadOperation(ctx, q, item.OperationID)
		return err
	})
	if err != nil {
		return core.Operation{}, err
	}

	s.publishEvent(ctx, op.ID, amqp.ActionApplied)
	return op, nil
}

// Get returns one operation with its items.
func (s *LedgerService) Get(ctx context.Context, id int64) (core.Operation, error) {
	return loadOperation(ctx, s.storage.Queries(), id)
}

// Recent returns the newest operations for one user, items included.
func (s *LedgerService) Recent(ctx context.Context, userID int64, limit int) ([]core.Operation, error) {
	if limit <= 0 {
		limit = 10
	}
	q := s.storage.Queries()
	ops, err := q.ListRecentOperations(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	for i := range ops {
		items, err := q.GetOperationItems(ctx, ops[i].ID)
		if err != nil {
			return nil, err
		}
		ops[i].Items = items
	}
	return ops, nil
}

func (s *LedgerService) publishEvent(ctx context.Context, operationID int64, action string) {
	if s.amqpClient == nil {
		return
	}
	if err := s.amqpClient.PublishOperationEvent(ctx, operationID, action); err != nil {
		slog.ErrorContext(ctx, "Failed to publish operation event",
			"operation_id", operationID, "action", action, "error", err)
		// The sweep in the export worker picks the operation up later.
	}
}

// applyIntent mutates the balances for one intent and records the
// operation, all on the caller's transaction.
func applyIntent(ctx context.Context, q *storage.Queries, intent core.Intent) (core.Operation, error) {
	total := intent.Total()
	var depositFromCard *core.Money

	switch intent.Kind {
	case core.HouseholdExpense:
		// Household spending is recorded even past zero; going negative
		// is a signal to the family, not a reason to lose the entry.
		budget, err := q.GetHouseholdBudget(ctx)
		if err != nil {
			return core.Operation{}, err
		}
		card, cash := budget.CardBalance, budget.CashBalance
		if intent.Hint == core.HintCard {
			card = card.Sub(total)
		} else {
			cash = cash.Sub(total)
		}
		if err := q.UpdateHouseholdBalances(ctx, budget.ID, card, cash); err != nil {
			return core.Operation{}, err
		}

	case core.HouseholdIncome:
		budget, err := q.GetHouseholdBudget(ctx)
		if err != nil {
			return core.Operation{}, err
		}
		card, cash := budget.CardBalance, budget.CashBalance
		if intent.Hint == core.HintCard {
			card = card.Add(total)
		} else {
			cash = cash.Add(total)
		}
		if err := q.UpdateHouseholdBalances(ctx, budget.ID, card, cash); err != nil {
			return core.Operation{}, err
		}

	case core.BusinessIncome:
		account, err := q.GetBusinessAccountByUser(ctx, intent.UserID)
		if err != nil {
			return core.Operation{}, err
		}
		if err := q.UpdateBusinessBalance(ctx, account.ID, account.Balance.Add(total)); err != nil {
			return core.Operation{}, err
		}

	case core.BusinessExpense:
		account, err := q.GetBusinessAccountByUser(ctx, intent.UserID)
		if err != nil {
			return core.Operation{}, err
		}
		if account.Balance.Cents < total.Cents {
			return core.Operation{}, &core.InsufficientFundsError{
				Account: account.Name, Required: total, Available: account.Balance,
			}
		}
		if err := q.UpdateBusinessBalance(ctx, account.ID, account.Balance.Sub(total)); err != nil {
			return core.Operation{}, err
		}

	case core.Salary:
		if err := applySalary(ctx, q, intent, total); err != nil {
			return core.Operation{}, err
		}

	case core.PiggyDeposit:
		budget, err := q.GetHouseholdBudget(ctx)
		if err != nil {
			return core.Operation{}, err
		}
		fromCard, fromCash, err := core.Waterfall(budget.CardBalance, budget.CashBalance, total)
		if err != nil {
			return core.Operation{}, err
		}
		// The split is stored so a reversal refunds each sub-balance exactly.
		depositFromCard = &fromCard
		piggy, err := q.GetPiggyBank(ctx, intent.PiggyBankID)
		if err != nil {
			return core.Operation{}, err
		}
		if err := q.UpdateHouseholdBalances(ctx, budget.ID,
			budget.CardBalance.Sub(fromCard), budget.CashBalance.Sub(fromCash)); err != nil {
			return core.Operation{}, err
		}
		if err := q.UpdatePiggyBalance(ctx, piggy.ID, piggy.Balance.Add(total)); err != nil {
			return core.Operation{}, err
		}

	case core.PiggyWithdraw:
		piggy, err := q.GetPiggyBank(ctx, intent.PiggyBankID)
		if err != nil {
			return core.Operation{}, err
		}
		if piggy.Balance.Cents < total.Cents {
			return core.Operation{}, &core.InsufficientFundsError{
				Account: piggy.Name, Required: total, Available: piggy.Balance,
			}
		}
		budget, err := q.GetHouseholdBudget(ctx)
		if err != nil {
			return core.Operation{}, err
		}
		if err := q.UpdatePiggyBalance(ctx, piggy.ID, piggy.Balance.Sub(total)); err != nil {
			return core.Operation{}, err
		}
		// Withdrawn money always lands on the card.
		if err := q.UpdateHouseholdBalances(ctx, budget.ID,
			budget.CardBalance.Add(total), budget.CashBalance); err != nil {
			return core.Operation{}, err
		}
	}

	var piggyBankID *int64
	if intent.Kind == core.PiggyDeposit || intent.Kind == core.PiggyWithdraw {
		id := intent.PiggyBankID
		piggyBankID = &id
	}
	header, err := q.CreateOperation(ctx, storage.CreateOperationParams{
		UserID:       intent.UserID,
		Kind:         intent.Kind,
		AccountHint:  intent.Hint,
		TotalAmount:  total,
		PiggyBankID:  piggyBankID,
		FromCard:     depositFromCard,
		SettledDueID: intent.SettledDueID,
	})
	if err != nil {
		return core.Operation{}, fmt.Errorf("create operation: %w", err)
	}

	for _, draft := range intent.Items {
		item, err := q.CreateOperationItem(ctx, header.ID, draft)
		if err != nil {
			return core.Operation{}, fmt.Errorf("create operation item: %w", err)
		}
		header.Items = append(header.Items, item)
	}
	return header, nil
}

// applySalary debits the business account for the whole amount, credits
// the household with 90% and the auto piggy bank with 10%.
func applySalary(ctx context.Context, q *storage.Queries, intent core.Intent, total core.Money) error {
	account, err := q.GetBusinessAccountByUser(ctx, intent.UserID)
	if err != nil {
		return err
	}
	if account.Balance.Cents < total.Cents {
		return &core.InsufficientFundsError{
			Account: account.Name, Required: total, Available: account.Balance,
		}
	}

	householdShare, piggyShare := core.SalarySplit(total)

	if err := q.UpdateBusinessBalance(ctx, account.ID, account.Balance.Sub(total)); err != nil {
		return err
	}

	budget, err := q.GetHouseholdBudget(ctx)
	if err != nil {
		return err
	}
	card, cash := budget.CardBalance, budget.CashBalance
	if intent.Hint == core.HintCard {
		card = card.Add(householdShare)
	} else {
		cash = cash.Add(householdShare)
	}
	if err := q.UpdateHouseholdBalances(ctx, budget.ID, card, cash); err != nil {
		return err
	}

	piggy, err := q.GetAutoPiggyBank(ctx)
	switch {
	case err == nil:
		if err := q.UpdatePiggyBalance(ctx, piggy.ID, piggy.Balance.Add(piggyShare)); err != nil {
			return err
		}
	case errors.Is(err, core.ErrAccountNotFound):
		// No auto piggy bank configured. The cut stays on the household
		// balance rather than vanishing.
		slog.WarnContext(ctx, "No auto piggy bank, salary cut stays in household budget",
			"amount", piggyShare)
		if intent.Hint == core.HintCard {
			card = card.Add(piggyShare)
		} else {
			cash = cash.Add(piggyShare)
		}
		if err := q.UpdateHouseholdBalances(ctx, budget.ID, card, cash); err != nil {
			return err
		}
	default:
		return err
	}
	return nil
}

// applyDelta re-applies an amount change to whatever balances the
// operation originally touched. Positive delta means the item got bigger.
func applyDelta(ctx context.Context, q *storage.Queries, op core.Operation, delta core.Money) error {
	switch op.Kind {
	case core.HouseholdExpense, core.HouseholdIncome:
		budget, err := q.GetHouseholdBudget(ctx)
		if err != nil {
			return err
		}
		signed := delta
		if op.Kind == core.HouseholdExpense {
			signed = delta.Neg()
		}
		card, cash := budget.CardBalance, budget.CashBalance
		if op.AccountHint == core.HintCard {
			card = card.Add(signed)
		} else {
			cash = cash.Add(signed)
		}
		return q.UpdateHouseholdBalances(ctx, budget.ID, card, cash)

	case core.BusinessIncome, core.BusinessExpense:
		account, err := q.GetBusinessAccountByUser(ctx, op.UserID)
		if err != nil {
			return err
		}
		signed := delta
		if op.Kind == core.BusinessExpense {
			signed = delta.Neg()
		}
		return q.UpdateBusinessBalance(ctx, account.ID, account.Balance.Add(signed))

	case core.Salary:
		return applySalaryDelta(ctx, q, op, delta)

	case core.PiggyWithdraw:
		if op.PiggyBankID == nil {
			return core.ErrAccountNotFound
		}
		piggy, err := q.GetPiggyBank(ctx, *op.PiggyBankID)
		if err != nil {
			return err
		}
		if err := q.UpdatePiggyBalance(ctx, piggy.ID, piggy.Balance.Sub(delta)); err != nil {
			return err
		}
		budget, err := q.GetHouseholdBudget(ctx)
		if err != nil {
			return err
		}
		// Withdrawn money lands on the card, so the correction does too.
		return q.UpdateHouseholdBalances(ctx, budget.ID,
			budget.CardBalance.Add(delta), budget.CashBalance)

	default:
		// A deposit's stored card/cash split cannot absorb a delta.
		// Reverse and re-enter instead.
		return core.ErrInvalidKind
	}
}

// applySalaryDelta replays an amount change with the same 90/10 split as
// the original payout: the business gives or takes the full delta, the
// household the 90% share on the original hint, the auto piggy the rest.
func applySalaryDelta(ctx context.Context, q *storage.Queries, op core.Operation, delta core.Money) error {
	account, err := q.GetBusinessAccountByUser(ctx, op.UserID)
	if err != nil {
		return err
	}
	if err := q.UpdateBusinessBalance(ctx, account.ID, account.Balance.Sub(delta)); err != nil {
		return err
	}

	householdShare, piggyShare := salaryDeltaSplit(delta)

	budget, err := q.GetHouseholdBudget(ctx)
	if err != nil {
		return err
	}
	card, cash := budget.CardBalance, budget.CashBalance
	if op.AccountHint == core.HintCash {
		cash = cash.Add(householdShare)
	} else {
		card = card.Add(householdShare)
	}
	if err := q.UpdateHouseholdBalances(ctx, budget.ID, card, cash); err != nil {
		return err
	}

	piggy, err := q.GetAutoPiggyBank(ctx)
	switch {
	case err == nil:
		return q.UpdatePiggyBalance(ctx, piggy.ID, piggy.Balance.Add(piggyShare))
	case errors.Is(err, core.ErrAccountNotFound):
		// Same routing as the original payout: without an auto piggy the
		// cut lives on the household balance.
		slog.WarnContext(ctx, "No auto piggy bank, salary correction stays in household budget",
			"amount", piggyShare)
		if op.AccountHint == core.HintCash {
			cash = cash.Add(piggyShare)
		} else {
			card = card.Add(piggyShare)
		}
		return q.UpdateHouseholdBalances(ctx, budget.ID, card, cash)
	default:
		return err
	}
}

// salaryDeltaSplit splits the magnitude and carries the sign, so raising
// an amount and lowering it back moves every balance by exact inverses.
func salaryDeltaSplit(delta core.Money) (household, piggy core.Money) {
	if delta.Cents < 0 {
		h, p := core.SalarySplit(delta.Neg())
		return h.Neg(), p.Neg()
	}
	return core.SalarySplit(delta)
}

func loadOperation(ctx context.Context, q *storage.Queries, id int64) (core.Operation, error) {
	op, err := q.GetOperation(ctx, id)
	if err != nil {
		return core.Operation{}, err
	}
	items, err := q.GetOperationItems(ctx, id)
	if err != nil {
		return core.Operation{}, err
	}
	op.Items = items
	return op, nil
}
