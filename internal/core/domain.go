package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	HouseholdExpense OperationKind = "household_expense"
	HouseholdIncome  OperationKind = "household_income"
	BusinessIncome   OperationKind = "business_income"
	BusinessExpense  OperationKind = "business_expense"
	Salary           OperationKind = "salary"
	PiggyDeposit     OperationKind = "piggy_deposit"
	PiggyWithdraw    OperationKind = "piggy_withdraw"
)

const (
	HintNone     AccountHint = ""
	HintCard     AccountHint = "card"
	HintCash     AccountHint = "cash"
	HintBusiness AccountHint = "business"
	HintMixed    AccountHint = "mixed"
)

const (
	DebtOweMe DebtKind = "owe_me"
	DebtIOwe  DebtKind = "i_owe"
)

type (
	OperationKind string

	AccountHint string

	DebtKind string

	Money struct {
		Cents int64
	}

	// HouseholdBudget is the single shared budget row, split into a card
	// and a cash sub-balance. Total is always the sum of the two.
	HouseholdBudget struct {
		ID          int64
		CardBalance Money
		CashBalance Money
		UpdatedAt   time.Time
	}

	User struct {
		ID        int64
		Name      string
		CreatedAt time.Time
	}

	BusinessAccount struct {
		ID        int64
		UserID    int64
		Name      string
		Balance   Money
		CreatedAt time.Time
	}

	// PiggyBank holds money set aside from the household budget. The one
	// bank with IsAuto set receives the 10% cut of every salary.
	PiggyBank struct {
		ID                int64
		BusinessAccountID *int64
		Name              string
		Balance           Money
		IsAuto            bool
		CreatedAt         time.Time
	}

	// Operation is an immutable ledger entry: one user-initiated money
	// movement with one or more items. SettledDueID links a payment
	// operation back to the due it settled so a reversal can restore it.
	// FromCard records how much of a piggy deposit the card covered, so a
	// reversal can refund each sub-balance exactly.
	Operation struct {
		ID           int64
		UserID       int64
		Kind         OperationKind
		AccountHint  AccountHint
		TotalAmount  Money
		PiggyBankID  *int64
		FromCard     *Money
		SettledDueID *int64
		CreatedAt    time.Time
		Items        []OperationItem
	}

	OperationItem struct {
		ID          int64
		OperationID int64
		Name        string
		Amount      Money
		CategoryID  *int64
		Subcategory string
	}

	Category struct {
		ID       int64
		Name     string
		Emoji    string
		ParentID *int64
		IsSystem bool
	}

	// FixedPayment is a recurring-obligation template. Each calendar
	// month gets at most one FixedPaymentDue derived from it.
	FixedPayment struct {
		ID               int64
		Name             string
		Amount           Money
		DueDay           int
		IsActive         bool
		DefaultAccountID *int64
		CategoryID       *int64
		CreatedAt        time.Time
	}

	// FixedPaymentDue is the billing instance of a FixedPayment for one
	// (year, month). DueAmount snapshots the template amount at creation
	// time; later template edits do not change it.
	FixedPaymentDue struct {
		ID             int64
		FixedPaymentID int64
		Year           int
		Month          int
		DueAmount      Money
		PaidAmount     Money
		IsPaid         bool
		Skipped        bool
		PaidAt         *time.Time
		PaidAccount    AccountHint
		CreatedAt      time.Time
	}

	Debt struct {
		ID         int64
		UserID     int64
		PersonName string
		Amount     Money
		Note       string
		Kind       DebtKind
		IsPaid     bool
		CreatedAt  time.Time
		PaidAt     *time.Time
	}
)

var (
	ErrInvalidAmount     = errors.New("invalid amount")
	ErrInvalidKind       = errors.New("invalid operation kind")
	ErrEmptyItems        = errors.New("operation needs at least one item")
	ErrEmptyName         = errors.New("empty name")
	ErrInvalidDueDay     = errors.New("due day must be between 1 and 31")
	ErrAmbiguousAccount  = errors.New("cannot resolve card or cash account")
	ErrAccountNotFound   = errors.New("account not found")
	ErrOperationNotFound = errors.New("operation not found")
	ErrItemNotFound      = errors.New("operation item not found")
	ErrDueNotFound       = errors.New("due not found")
	ErrDebtNotFound      = errors.New("debt not found")
	ErrDueClosed         = errors.New("due is already paid or skipped")
)

// InsufficientFundsError reports a rejected debit together with what was
// available at the time, so callers can render a useful re-prompt.
type InsufficientFundsError struct {
	Account   string
	Required  Money
	Available Money
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds on %s: required %s, available %s",
		e.Account, e.Required, e.Available)
}

// Total returns the derived sum of the two sub-balances.
func (b HouseholdBudget) Total() Money {
	return Money{Cents: b.CardBalance.Cents + b.CashBalance.Cents}
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + other.
func (m Money) Add(other Money) Money { return Money{Cents: m.Cents + other.Cents} }

// Sub returns m - other.
func (m Money) Sub(other Money) Money { return Money{Cents: m.Cents - other.Cents} }

// Neg returns -m.
func (m Money) Neg() Money { return Money{Cents: -m.Cents} }

// IsNegative reports whether the amount is below zero.
func (m Money) IsNegative() bool { return m.Cents < 0 }

func (k OperationKind) Validate() error {
	switch k {
	case HouseholdExpense, HouseholdIncome, BusinessIncome, BusinessExpense,
		Salary, PiggyDeposit, PiggyWithdraw:
		return nil
	default:
		return ErrInvalidKind
	}
}

func (i OperationItem) Validate() error {
	if len(strings.TrimSpace(i.Name)) == 0 {
		return ErrEmptyName
	}
	if len(i.Name) > 255 {
		return errors.New("item name too long (max 255 characters)")
	}
	return i.Amount.Validate()
}

func (p FixedPayment) Validate() error {
	if len(strings.TrimSpace(p.Name)) == 0 {
		return ErrEmptyName
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.DueDay < 1 || p.DueDay > 31 {
		return ErrInvalidDueDay
	}
	return nil
}

// Remaining returns the unpaid part of the due, never below zero.
func (d FixedPaymentDue) Remaining() Money {
	rem := d.DueAmount.Cents - d.PaidAmount.Cents
	if rem < 0 {
		rem = 0
	}
	return Money{Cents: rem}
}

func (d Debt) Validate() error {
	if len(strings.TrimSpace(d.PersonName)) == 0 {
		return ErrEmptyName
	}
	if d.Kind != DebtOweMe && d.Kind != DebtIOwe {
		return errors.New("invalid debt kind")
	}
	return d.Amount.Validate()
}
