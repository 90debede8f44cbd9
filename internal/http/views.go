package http

import (
	"time"

	"kopilka/internal/core"
	"kopilka/internal/services"
)

// View types keep wire amounts as decimal strings ("1234.50") so JSON
// clients never see raw cents.

type itemView struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Amount      string `json:"amount"`
	CategoryID  *int64 `json:"category_id,omitempty"`
	Subcategory string `json:"subcategory,omitempty"`
}

type operationView struct {
	ID           int64      `json:"id"`
	UserID       int64      `json:"user_id"`
	Kind         string     `json:"kind"`
	AccountHint  string     `json:"account_hint,omitempty"`
	Total        string     `json:"total"`
	PiggyBankID  *int64     `json:"piggy_bank_id,omitempty"`
	SettledDueID *int64     `json:"settled_due_id,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	Items        []itemView `json:"items"`
}

func toOperationView(op core.Operation) operationView {
	v := operationView{
		ID:           op.ID,
		UserID:       op.UserID,
		Kind:         string(op.Kind),
		AccountHint:  string(op.AccountHint),
		Total:        op.TotalAmount.String(),
		PiggyBankID:  op.PiggyBankID,
		SettledDueID: op.SettledDueID,
		CreatedAt:    op.CreatedAt,
		Items:        make([]itemView, 0, len(op.Items)),
	}
	for _, it := range op.Items {
		v.Items = append(v.Items, itemView{
			ID:          it.ID,
			Name:        it.Name,
			Amount:      it.Amount.String(),
			CategoryID:  it.CategoryID,
			Subcategory: it.Subcategory,
		})
	}
	return v
}

type dueView struct {
	ID             int64      `json:"id"`
	FixedPaymentID int64      `json:"fixed_payment_id"`
	Year           int        `json:"year"`
	Month          int        `json:"month"`
	DueAmount      string     `json:"due_amount"`
	PaidAmount     string     `json:"paid_amount"`
	Remaining      string     `json:"remaining"`
	IsPaid         bool       `json:"is_paid"`
	Skipped        bool       `json:"skipped"`
	PaidAt         *time.Time `json:"paid_at,omitempty"`
	PaidAccount    string     `json:"paid_account,omitempty"`
}

func toDueView(d core.FixedPaymentDue) dueView {
	return dueView{
		ID:             d.ID,
		FixedPaymentID: d.FixedPaymentID,
		Year:           d.Year,
		Month:          d.Month,
		DueAmount:      d.DueAmount.String(),
		PaidAmount:     d.PaidAmount.String(),
		Remaining:      d.Remaining().String(),
		IsPaid:         d.IsPaid,
		Skipped:        d.Skipped,
		PaidAt:         d.PaidAt,
		PaidAccount:    string(d.PaidAccount),
	}
}

type fixedPaymentView struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Amount   string `json:"amount"`
	DueDay   int    `json:"due_day"`
	IsActive bool   `json:"is_active"`
}

func toFixedPaymentView(p core.FixedPayment) fixedPaymentView {
	return fixedPaymentView{
		ID:       p.ID,
		Name:     p.Name,
		Amount:   p.Amount.String(),
		DueDay:   p.DueDay,
		IsActive: p.IsActive,
	}
}

type debtView struct {
	ID         int64      `json:"id"`
	PersonName string     `json:"person_name"`
	Amount     string     `json:"amount"`
	Note       string     `json:"note,omitempty"`
	Kind       string     `json:"kind"`
	IsPaid     bool       `json:"is_paid"`
	CreatedAt  time.Time  `json:"created_at"`
	PaidAt     *time.Time `json:"paid_at,omitempty"`
}

func toDebtView(d core.Debt) debtView {
	return debtView{
		ID:         d.ID,
		PersonName: d.PersonName,
		Amount:     d.Amount.String(),
		Note:       d.Note,
		Kind:       string(d.Kind),
		IsPaid:     d.IsPaid,
		CreatedAt:  d.CreatedAt,
		PaidAt:     d.PaidAt,
	}
}

type categoryTotalView struct {
	CategoryID   int64  `json:"category_id"`
	CategoryName string `json:"category_name"`
	Total        string `json:"total"`
}

type monthOverviewView struct {
	Year       int                 `json:"year"`
	Month      int                 `json:"month"`
	Total      string              `json:"total"`
	ByCategory []categoryTotalView `json:"by_category"`
}

func toMonthOverviewView(o services.MonthOverview) monthOverviewView {
	v := monthOverviewView{
		Year:       o.Year,
		Month:      o.Month,
		Total:      o.Total.String(),
		ByCategory: make([]categoryTotalView, 0, len(o.ByCategory)),
	}
	for _, ct := range o.ByCategory {
		v.ByCategory = append(v.ByCategory, categoryTotalView{
			CategoryID:   ct.CategoryID,
			CategoryName: ct.CategoryName,
			Total:        ct.Total.String(),
		})
	}
	return v
}

type businessSummaryView struct {
	Year    int    `json:"year"`
	Month   int    `json:"month"`
	Income  string `json:"income"`
	Expense string `json:"expense"`
	Profit  string `json:"profit"`
	Balance string `json:"balance"`
}

func toBusinessSummaryView(s services.BusinessSummary) businessSummaryView {
	return businessSummaryView{
		Year:    s.Year,
		Month:   s.Month,
		Income:  s.Income.String(),
		Expense: s.Expense.String(),
		Profit:  s.Profit.String(),
		Balance: s.Balance.String(),
	}
}

type piggyBankView struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Balance string `json:"balance"`
	IsAuto  bool   `json:"is_auto"`
}

type snapshotView struct {
	CardBalance  string          `json:"card_balance"`
	CashBalance  string          `json:"cash_balance"`
	Total        string          `json:"total"`
	PiggyBanks   []piggyBankView `json:"piggy_banks"`
	PiggyTotal   string          `json:"piggy_total"`
	Outstanding  string          `json:"outstanding"`
	DailyBudget  string          `json:"daily_budget"`
	OpenDueCount int             `json:"open_due_count"`
}

func toSnapshotView(s services.Snapshot) snapshotView {
	v := snapshotView{
		CardBalance:  s.CardBalance.String(),
		CashBalance:  s.CashBalance.String(),
		Total:        s.Total.String(),
		PiggyBanks:   make([]piggyBankView, 0, len(s.PiggyBanks)),
		PiggyTotal:   s.PiggyTotal.String(),
		Outstanding:  s.Outstanding.String(),
		DailyBudget:  s.DailyBudget.String(),
		OpenDueCount: s.OpenDueCount,
	}
	for _, b := range s.PiggyBanks {
		v.PiggyBanks = append(v.PiggyBanks, piggyBankView{
			ID:      b.ID,
			Name:    b.Name,
			Balance: b.Balance.String(),
			IsAuto:  b.IsAuto,
		})
	}
	return v
}
