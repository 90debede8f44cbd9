package core

import "strings"

// ItemDraft is an unsaved operation item supplied by the caller (chat
// handler, receipt scanner, due payment).
type ItemDraft struct {
	Name        string
	Amount      Money
	CategoryID  *int64
	Subcategory string
}

// Intent is a validated request to apply one operation. A batch entry
// (several receipt lines) is one Intent with several items and a single
// debit equal to the item sum.
type Intent struct {
	UserID       int64
	Kind         OperationKind
	Hint         AccountHint
	PiggyBankID  int64
	SettledDueID *int64
	Items        []ItemDraft
}

// Total returns the sum of the item amounts.
func (in Intent) Total() Money {
	var sum int64
	for _, it := range in.Items {
		sum += it.Amount.Cents
	}
	return Money{Cents: sum}
}

func (in Intent) Validate() error {
	if err := in.Kind.Validate(); err != nil {
		return err
	}
	if len(in.Items) == 0 {
		return ErrEmptyItems
	}
	for _, it := range in.Items {
		item := OperationItem{Name: it.Name, Amount: it.Amount, CategoryID: it.CategoryID, Subcategory: it.Subcategory}
		if err := item.Validate(); err != nil {
			return err
		}
	}
	switch in.Kind {
	case HouseholdExpense, HouseholdIncome, Salary:
		// These land on a household sub-balance; the hint must be
		// resolved before the ledger is invoked.
		if in.Hint != HintCard && in.Hint != HintCash {
			return ErrAmbiguousAccount
		}
	case PiggyDeposit, PiggyWithdraw:
		if in.PiggyBankID == 0 {
			return ErrAccountNotFound
		}
	}
	return nil
}

// Waterfall splits a household debit across the two sub-balances, draining
// the card first and falling back to cash. It fails when the combined
// balance cannot cover the amount.
func Waterfall(card, cash, amount Money) (fromCard, fromCash Money, err error) {
	if amount.Cents <= 0 {
		return Money{}, Money{}, ErrInvalidAmount
	}
	total := card.Cents + cash.Cents
	if total < amount.Cents {
		return Money{}, Money{}, &InsufficientFundsError{
			Account:   "household",
			Required:  amount,
			Available: Money{Cents: total},
		}
	}
	fromCard = amount
	if fromCard.Cents > card.Cents {
		fromCard = card
	}
	fromCash = Money{Cents: amount.Cents - fromCard.Cents}
	return fromCard, fromCash, nil
}

// SalarySplit divides a salary between the household budget and the auto
// piggy bank. The piggy share is 10% rounded half-up and the household gets
// the remainder, so the two always add up to the full amount.
func SalarySplit(total Money) (household, piggy Money) {
	piggy = Money{Cents: (total.Cents + 5) / 10}
	household = Money{Cents: total.Cents - piggy.Cents}
	return household, piggy
}

var (
	cardTokens = []string{"card", "карта", "картой", "карте", "карту"}
	cashTokens = []string{"cash", "нал", "налом", "наличка", "наличные", "наличными"}
)

// ResolveAccountHint scans free text for card/cash vocabulary. It returns
// ErrAmbiguousAccount when the text mentions both or neither, in which case
// the caller must ask the user and re-invoke with an explicit hint.
func ResolveAccountHint(text string) (AccountHint, error) {
	var card, cash bool
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?:;()")
		for _, c := range cardTokens {
			if tok == c {
				card = true
			}
		}
		for _, c := range cashTokens {
			if tok == c {
				cash = true
			}
		}
	}
	switch {
	case card && !cash:
		return HintCard, nil
	case cash && !card:
		return HintCash, nil
	default:
		return HintNone, ErrAmbiguousAccount
	}
}

// DaysRemainingInMonth counts today plus the days left until month end.
func DaysRemainingInMonth(year, month, day int) int {
	last := daysInMonth(year, month)
	if day > last {
		return 0
	}
	return last - day + 1
}

func daysInMonth(year, month int) int {
	switch month {
	case 1, 3, 5, 7, 8, 10, 12:
		return 31
	case 4, 6, 9, 11:
		return 30
	case 2:
		if year%4 == 0 && (year%100 != 0 || year%400 == 0) {
			return 29
		}
		return 28
	}
	return 0
}
