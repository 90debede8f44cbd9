package services

import (
	"context"
	"time"

	"kopilka/internal/core"
	"kopilka/internal/storage"
)

// ReportService builds the read models behind the dashboard: month
// overviews, business summaries and the household snapshot.
type ReportService struct {
	storage     *storage.SQLiteRepository
	obligations *ObligationService
}

func NewReportService(storage *storage.SQLiteRepository, obligations *ObligationService) *ReportService {
	return &ReportService{storage: storage, obligations: obligations}
}

type MonthOverview struct {
	Year       int
	Month      int
	Total      core.Money
	ByCategory []storage.CategoryTotal
}

// HouseholdMonth breaks the month's household spending down by category.
func (s *ReportService) HouseholdMonth(ctx context.Context, userID int64, year, month int) (MonthOverview, error) {
	byCategory, err := s.storage.Queries().HouseholdMonthByCategory(ctx, year, month)
	if err != nil {
		return MonthOverview{}, err
	}
	total, err := s.storage.Queries().MonthTotalByKind(ctx, userID, core.HouseholdExpense, year, month)
	if err != nil {
		return MonthOverview{}, err
	}
	return MonthOverview{Year: year, Month: month, Total: total, ByCategory: byCategory}, nil
}

type BusinessSummary struct {
	Year    int
	Month   int
	Income  core.Money
	Expense core.Money
	Profit  core.Money
	Balance core.Money
}

// BusinessMonth sums business income against expenses and salary payouts.
func (s *ReportService) BusinessMonth(ctx context.Context, userID int64, year, month int) (BusinessSummary, error) {
	q := s.storage.Queries()

	income, err := q.MonthTotalByKind(ctx, userID, core.BusinessIncome, year, month)
	if err != nil {
		return BusinessSummary{}, err
	}
	expense, err := q.MonthTotalByKind(ctx, userID, core.BusinessExpense, year, month)
	if err != nil {
		return BusinessSummary{}, err
	}
	salary, err := q.MonthTotalByKind(ctx, userID, core.Salary, year, month)
	if err != nil {
		return BusinessSummary{}, err
	}
	account, err := q.GetBusinessAccountByUser(ctx, userID)
	if err != nil {
		return BusinessSummary{}, err
	}

	out := expense.Add(salary)
	return BusinessSummary{
		Year: year, Month: month,
		Income:  income,
		Expense: out,
		Profit:  income.Sub(out),
		Balance: account.Balance,
	}, nil
}

type Snapshot struct {
	CardBalance  core.Money
	CashBalance  core.Money
	Total        core.Money
	PiggyBanks   []core.PiggyBank
	PiggyTotal   core.Money
	Outstanding  core.Money
	DailyBudget  core.Money
	OpenDueCount int
}

// HouseholdSnapshot is the one-screen state of the family money: both
// sub-balances, the piggy banks and what this month still demands.
func (s *ReportService) HouseholdSnapshot(ctx context.Context, at time.Time) (Snapshot, error) {
	budget, err := s.storage.Queries().GetHouseholdBudget(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	banks, err := s.storage.Queries().ListPiggyBanks(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	year, month, _ := at.Date()
	outstanding, dues, err := s.obligations.OutstandingForMonth(ctx, year, int(month))
	if err != nil {
		return Snapshot{}, err
	}
	daily, err := s.obligations.DailyBudget(ctx, at)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{
		CardBalance: budget.CardBalance,
		CashBalance: budget.CashBalance,
		Total:       budget.Total(),
		PiggyBanks:  banks,
		Outstanding: outstanding,
		DailyBudget: daily,
	}
	for _, b := range banks {
		snap.PiggyTotal = snap.PiggyTotal.Add(b.Balance)
	}
	for _, d := range dues {
		if !d.IsPaid && !d.Skipped {
			snap.OpenDueCount++
		}
	}
	return snap, nil
}
