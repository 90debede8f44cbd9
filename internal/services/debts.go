package services

import (
	"context"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/storage"
)

// DebtService is plain bookkeeping of who owes whom. Debts never touch
// the ledger balances; settling one is a note, not a money movement.
type DebtService struct {
	storage *storage.SQLiteRepository
}

func NewDebtService(storage *storage.SQLiteRepository) *DebtService {
	return &DebtService{storage: storage}
}

func (s *DebtService) Add(ctx context.Context, d core.Debt) (core.Debt, error) {
	if err := d.Validate(); err != nil {
		return core.Debt{}, err
	}
	return s.storage.Queries().CreateDebt(ctx, d)
}

func (s *DebtService) Get(ctx context.Context, id int64) (core.Debt, error) {
	return s.storage.Queries().GetDebt(ctx, id)
}

func (s *DebtService) ListOpen(ctx context.Context, userID int64) ([]core.Debt, error) {
	return s.storage.Queries().ListOpenDebts(ctx, userID)
}

func (s *DebtService) Settle(ctx context.Context, id int64) error {
	return s.storage.Queries().SettleDebt(ctx, id, time.Now().UTC())
}

// Totals sums open debts per direction.
func (s *DebtService) Totals(ctx context.Context, userID int64) (oweMe, iOwe core.Money, err error) {
	debts, err := s.storage.Queries().ListOpenDebts(ctx, userID)
	if err != nil {
		return core.Money{}, core.Money{}, err
	}
	for _, d := range debts {
		if d.Kind == core.DebtOweMe {
			oweMe = oweMe.Add(d.Amount)
		} else {
			iOwe = iOwe.Add(d.Amount)
		}
	}
	return oweMe, iOwe, nil
}
