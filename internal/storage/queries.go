package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"kopilka/internal/core"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so every query can run
// standalone or inside a ledger transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// Export states for the operations outbox.
const (
	ExportPending  = "pending"
	ExportDone     = "exported"
	ExportFailed   = "error"
	ExportDisabled = "skipped"
)

// ---- household budget ----

func (q *Queries) GetHouseholdBudget(ctx context.Context) (core.HouseholdBudget, error) {
	var b core.HouseholdBudget
	err := q.db.QueryRowContext(ctx, `
		SELECT id, card_balance_cents, cash_balance_cents, updated_at
		FROM household_budget ORDER BY id LIMIT 1`).
		Scan(&b.ID, &b.CardBalance.Cents, &b.CashBalance.Cents, &b.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, core.ErrAccountNotFound
	}
	return b, err
}

func (q *Queries) UpdateHouseholdBalances(ctx context.Context, id int64, card, cash core.Money) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE household_budget
		SET card_balance_cents = ?, cash_balance_cents = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`, card.Cents, cash.Cents, id)
	return err
}

// ---- users and business accounts ----

func (q *Queries) CreateUser(ctx context.Context, name string) (core.User, error) {
	res, err := q.db.ExecContext(ctx, `INSERT INTO users (name) VALUES (?)`, name)
	if err != nil {
		return core.User{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, err
	}
	return core.User{ID: id, Name: name}, nil
}

func (q *Queries) CreateBusinessAccount(ctx context.Context, userID int64, name string) (core.BusinessAccount, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO business_accounts (user_id, name) VALUES (?, ?)`, userID, name)
	if err != nil {
		return core.BusinessAccount{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.BusinessAccount{}, err
	}
	return core.BusinessAccount{ID: id, UserID: userID, Name: name}, nil
}

func (q *Queries) GetBusinessAccountByUser(ctx context.Context, userID int64) (core.BusinessAccount, error) {
	var a core.BusinessAccount
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, name, balance_cents, created_at
		FROM business_accounts WHERE user_id = ?`, userID).
		Scan(&a.ID, &a.UserID, &a.Name, &a.Balance.Cents, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return a, core.ErrAccountNotFound
	}
	return a, err
}

func (q *Queries) UpdateBusinessBalance(ctx context.Context, id int64, balance core.Money) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE business_accounts SET balance_cents = ? WHERE id = ?`, balance.Cents, id)
	return err
}

// ---- piggy banks ----

func (q *Queries) CreatePiggyBank(ctx context.Context, businessAccountID *int64, name string, isAuto bool) (core.PiggyBank, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO piggy_banks (business_account_id, name, is_auto) VALUES (?, ?, ?)`,
		businessAccountID, name, isAuto)
	if err != nil {
		return core.PiggyBank{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.PiggyBank{}, err
	}
	return core.PiggyBank{ID: id, BusinessAccountID: businessAccountID, Name: name, IsAuto: isAuto}, nil
}

func (q *Queries) GetPiggyBank(ctx context.Context, id int64) (core.PiggyBank, error) {
	var p core.PiggyBank
	err := q.db.QueryRowContext(ctx, `
		SELECT id, business_account_id, name, balance_cents, is_auto, created_at
		FROM piggy_banks WHERE id = ?`, id).
		Scan(&p.ID, &p.BusinessAccountID, &p.Name, &p.Balance.Cents, &p.IsAuto, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, core.ErrAccountNotFound
	}
	return p, err
}

// GetAutoPiggyBank returns the salary sink. core.ErrAccountNotFound means
// none is configured, which the salary path treats as a soft condition.
func (q *Queries) GetAutoPiggyBank(ctx context.Context) (core.PiggyBank, error) {
	var p core.PiggyBank
	err := q.db.QueryRowContext(ctx, `
		SELECT id, business_account_id, name, balance_cents, is_auto, created_at
		FROM piggy_banks WHERE is_auto = 1 LIMIT 1`).
		Scan(&p.ID, &p.BusinessAccountID, &p.Name, &p.Balance.Cents, &p.IsAuto, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, core.ErrAccountNotFound
	}
	return p, err
}

func (q *Queries) ListPiggyBanks(ctx context.Context) ([]core.PiggyBank, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, business_account_id, name, balance_cents, is_auto, created_at
		FROM piggy_banks ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var banks []core.PiggyBank
	for rows.Next() {
		var p core.PiggyBank
		if err := rows.Scan(&p.ID, &p.BusinessAccountID, &p.Name, &p.Balance.Cents, &p.IsAuto, &p.CreatedAt); err != nil {
			return nil, err
		}
		banks = append(banks, p)
	}
	return banks, rows.Err()
}

func (q *Queries) UpdatePiggyBalance(ctx context.Context, id int64, balance core.Money) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE piggy_banks SET balance_cents = ? WHERE id = ?`, balance.Cents, id)
	return err
}

// ---- operations ----

type CreateOperationParams struct {
	UserID       int64
	Kind         core.OperationKind
	AccountHint  core.AccountHint
	TotalAmount  core.Money
	PiggyBankID  *int64
	FromCard     *core.Money
	SettledDueID *int64
}

func (q *Queries) CreateOperation(ctx context.Context, p CreateOperationParams) (core.Operation, error) {
	var hint any
	if p.AccountHint != core.HintNone {
		hint = string(p.AccountHint)
	}
	var fromCard any
	if p.FromCard != nil {
		fromCard = p.FromCard.Cents
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO operations (user_id, kind, account_hint, total_amount_cents, piggy_bank_id, from_card_cents, settled_due_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.UserID, string(p.Kind), hint, p.TotalAmount.Cents, p.PiggyBankID, fromCard, p.SettledDueID)
	if err != nil {
		return core.Operation{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Operation{}, err
	}
	return q.GetOperation(ctx, id)
}

func (q *Queries) CreateOperationItem(ctx context.Context, opID int64, it core.ItemDraft) (core.OperationItem, error) {
	var sub any
	if it.Subcategory != "" {
		sub = it.Subcategory
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO operation_items (operation_id, name, amount_cents, category_id, subcategory)
		VALUES (?, ?, ?, ?, ?)`,
		opID, it.Name, it.Amount.Cents, it.CategoryID, sub)
	if err != nil {
		return core.OperationItem{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.OperationItem{}, err
	}
	return core.OperationItem{
		ID: id, OperationID: opID, Name: it.Name, Amount: it.Amount,
		CategoryID: it.CategoryID, Subcategory: it.Subcategory,
	}, nil
}

func (q *Queries) GetOperation(ctx context.Context, id int64) (core.Operation, error) {
	var op core.Operation
	var hint, kind sql.NullString
	var fromCard sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, kind, account_hint, total_amount_cents, piggy_bank_id, from_card_cents, settled_due_id, created_at
		FROM operations WHERE id = ?`, id).
		Scan(&op.ID, &op.UserID, &kind, &hint, &op.TotalAmount.Cents, &op.PiggyBankID, &fromCard, &op.SettledDueID, &op.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return op, core.ErrOperationNotFound
	}
	if err != nil {
		return op, err
	}
	op.Kind = core.OperationKind(kind.String)
	op.AccountHint = core.AccountHint(hint.String)
	if fromCard.Valid {
		op.FromCard = &core.Money{Cents: fromCard.Int64}
	}
	return op, nil
}

func (q *Queries) GetOperationItems(ctx context.Context, opID int64) ([]core.OperationItem, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, operation_id, name, amount_cents, category_id, subcategory
		FROM operation_items WHERE operation_id = ? ORDER BY id`, opID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []core.OperationItem
	for rows.Next() {
		var it core.OperationItem
		var sub sql.NullString
		if err := rows.Scan(&it.ID, &it.OperationID, &it.Name, &it.Amount.Cents, &it.CategoryID, &sub); err != nil {
			return nil, err
		}
		it.Subcategory = sub.String
		items = append(items, it)
	}
	return items, rows.Err()
}

func (q *Queries) GetOperationItem(ctx context.Context, id int64) (core.OperationItem, error) {
	var it core.OperationItem
	var sub sql.NullString
	err := q.db.QueryRowContext(ctx, `
		SELECT id, operation_id, name, amount_cents, category_id, subcategory
		FROM operation_items WHERE id = ?`, id).
		Scan(&it.ID, &it.OperationID, &it.Name, &it.Amount.Cents, &it.CategoryID, &sub)
	if errors.Is(err, sql.ErrNoRows) {
		return it, core.ErrItemNotFound
	}
	it.Subcategory = sub.String
	return it, err
}

func (q *Queries) UpdateOperationItemAmount(ctx context.Context, id int64, amount core.Money) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE operation_items SET amount_cents = ? WHERE id = ?`, amount.Cents, id)
	return err
}

func (q *Queries) UpdateOperationItemName(ctx context.Context, id int64, name string, categoryID *int64, subcategory string) error {
	var sub any
	if subcategory != "" {
		sub = subcategory
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE operation_items SET name = ?, category_id = ?, subcategory = ? WHERE id = ?`,
		name, categoryID, sub, id)
	return err
}

func (q *Queries) UpdateOperationTotal(ctx context.Context, id int64, total core.Money) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE operations SET total_amount_cents = ? WHERE id = ?`, total.Cents, id)
	return err
}

// DeleteOperation removes the header; items cascade via the FK.
func (q *Queries) DeleteOperation(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `DELETE FROM operations WHERE id = ?`, id)
	return err
}

func (q *Queries) ListRecentOperations(ctx context.Context, userID int64, limit int) ([]core.Operation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, kind, account_hint, total_amount_cents, piggy_bank_id, from_card_cents, settled_due_id, created_at
		FROM operations WHERE user_id = ? ORDER BY created_at DESC, id DESC LIMIT ?`,
		userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOperations(rows)
}

func (q *Queries) ListPendingExportOperations(ctx context.Context, limit int) ([]core.Operation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, kind, account_hint, total_amount_cents, piggy_bank_id, from_card_cents, settled_due_id, created_at
		FROM operations WHERE export_state = ? ORDER BY id LIMIT ?`,
		ExportPending, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOperations(rows)
}

func (q *Queries) SetOperationExportState(ctx context.Context, id int64, state string) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE operations SET export_state = ? WHERE id = ?`, state, id)
	return err
}

func scanOperations(rows *sql.Rows) ([]core.Operation, error) {
	var ops []core.Operation
	for rows.Next() {
		var op core.Operation
		var hint, kind sql.NullString
		var fromCard sql.NullInt64
		if err := rows.Scan(&op.ID, &op.UserID, &kind, &hint, &op.TotalAmount.Cents, &op.PiggyBankID, &fromCard, &op.SettledDueID, &op.CreatedAt); err != nil {
			return nil, err
		}
		op.Kind = core.OperationKind(kind.String)
		op.AccountHint = core.AccountHint(hint.String)
		if fromCard.Valid {
			op.FromCard = &core.Money{Cents: fromCard.Int64}
		}
		ops = append(ops, op)
	}
	return ops, rows.Err()
}

// ---- fixed payments and dues ----

func (q *Queries) CreateFixedPayment(ctx context.Context, p core.FixedPayment) (core.FixedPayment, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO fixed_payments (name, amount_cents, due_day, is_active, default_account_id, category_id)
		VALUES (?, ?, ?, ?, ?, ?)`,
		p.Name, p.Amount.Cents, p.DueDay, p.IsActive, p.DefaultAccountID, p.CategoryID)
	if err != nil {
		return core.FixedPayment{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.FixedPayment{}, err
	}
	p.ID = id
	return p, nil
}

func (q *Queries) GetFixedPayment(ctx context.Context, id int64) (core.FixedPayment, error) {
	var p core.FixedPayment
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, amount_cents, due_day, is_active, default_account_id, category_id, created_at
		FROM fixed_payments WHERE id = ?`, id).
		Scan(&p.ID, &p.Name, &p.Amount.Cents, &p.DueDay, &p.IsActive, &p.DefaultAccountID, &p.CategoryID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return p, core.ErrDueNotFound
	}
	return p, err
}

func (q *Queries) ListActiveFixedPayments(ctx context.Context) ([]core.FixedPayment, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, name, amount_cents, due_day, is_active, default_account_id, category_id, created_at
		FROM fixed_payments WHERE is_active = 1 ORDER BY due_day, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []core.FixedPayment
	for rows.Next() {
		var p core.FixedPayment
		if err := rows.Scan(&p.ID, &p.Name, &p.Amount.Cents, &p.DueDay, &p.IsActive, &p.DefaultAccountID, &p.CategoryID, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (q *Queries) UpdateFixedPayment(ctx context.Context, id int64, name string, amount core.Money, dueDay int) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fixed_payments SET name = ?, amount_cents = ?, due_day = ? WHERE id = ?`,
		name, amount.Cents, dueDay, id)
	return err
}

func (q *Queries) DeactivateFixedPayment(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fixed_payments SET is_active = 0 WHERE id = ?`, id)
	return err
}

func (q *Queries) CreateDue(ctx context.Context, fixedPaymentID int64, year, month int, dueAmount core.Money) (core.FixedPaymentDue, error) {
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO fixed_payment_dues (fixed_payment_id, year, month, due_amount_cents)
		VALUES (?, ?, ?, ?)`,
		fixedPaymentID, year, month, dueAmount.Cents)
	if err != nil {
		return core.FixedPaymentDue{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.FixedPaymentDue{}, err
	}
	return q.GetDue(ctx, id)
}

func (q *Queries) GetDue(ctx context.Context, id int64) (core.FixedPaymentDue, error) {
	var d core.FixedPaymentDue
	var paidAt sql.NullTime
	var paidAccount sql.NullString
	err := q.db.QueryRowContext(ctx, `
		SELECT id, fixed_payment_id, year, month, due_amount_cents, paid_amount_cents,
		       is_paid, skipped, paid_at, paid_account, created_at
		FROM fixed_payment_dues WHERE id = ?`, id).
		Scan(&d.ID, &d.FixedPaymentID, &d.Year, &d.Month, &d.DueAmount.Cents, &d.PaidAmount.Cents,
			&d.IsPaid, &d.Skipped, &paidAt, &paidAccount, &d.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, core.ErrDueNotFound
	}
	if err != nil {
		return d, err
	}
	if paidAt.Valid {
		t := paidAt.Time
		d.PaidAt = &t
	}
	d.PaidAccount = core.AccountHint(paidAccount.String)
	return d, nil
}

func (q *Queries) GetDueForMonth(ctx context.Context, fixedPaymentID int64, year, month int) (core.FixedPaymentDue, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, `
		SELECT id FROM fixed_payment_dues
		WHERE fixed_payment_id = ? AND year = ? AND month = ?`,
		fixedPaymentID, year, month).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.FixedPaymentDue{}, core.ErrDueNotFound
	}
	if err != nil {
		return core.FixedPaymentDue{}, err
	}
	return q.GetDue(ctx, id)
}

func (q *Queries) UpdateDuePayment(ctx context.Context, id int64, paid core.Money, isPaid bool, paidAt *time.Time, paidAccount core.AccountHint) error {
	var account any
	if paidAccount != core.HintNone {
		account = string(paidAccount)
	}
	_, err := q.db.ExecContext(ctx, `
		UPDATE fixed_payment_dues
		SET paid_amount_cents = ?, is_paid = ?, paid_at = ?, paid_account = ?
		WHERE id = ?`,
		paid.Cents, isPaid, paidAt, account, id)
	return err
}

func (q *Queries) SkipDue(ctx context.Context, id int64) error {
	_, err := q.db.ExecContext(ctx, `
		UPDATE fixed_payment_dues SET skipped = 1 WHERE id = ?`, id)
	return err
}

func (q *Queries) ListDuesForMonth(ctx context.Context, year, month int) ([]core.FixedPaymentDue, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, fixed_payment_id, year, month, due_amount_cents, paid_amount_cents,
		       is_paid, skipped, paid_at, paid_account, created_at
		FROM fixed_payment_dues WHERE year = ? AND month = ? ORDER BY id`, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var dues []core.FixedPaymentDue
	for rows.Next() {
		var d core.FixedPaymentDue
		var paidAt sql.NullTime
		var paidAccount sql.NullString
		if err := rows.Scan(&d.ID, &d.FixedPaymentID, &d.Year, &d.Month, &d.DueAmount.Cents, &d.PaidAmount.Cents,
			&d.IsPaid, &d.Skipped, &paidAt, &paidAccount, &d.CreatedAt); err != nil {
			return nil, err
		}
		if paidAt.Valid {
			t := paidAt.Time
			d.PaidAt = &t
		}
		d.PaidAccount = core.AccountHint(paidAccount.String)
		dues = append(dues, d)
	}
	return dues, rows.Err()
}

// ---- debts ----

func (q *Queries) CreateDebt(ctx context.Context, d core.Debt) (core.Debt, error) {
	var note any
	if d.Note != "" {
		note = d.Note
	}
	res, err := q.db.ExecContext(ctx, `
		INSERT INTO debts (user_id, person_name, amount_cents, note, debt_kind)
		VALUES (?, ?, ?, ?, ?)`,
		d.UserID, d.PersonName, d.Amount.Cents, note, string(d.Kind))
	if err != nil {
		return core.Debt{}, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return core.Debt{}, err
	}
	d.ID = id
	return d, nil
}

func (q *Queries) GetDebt(ctx context.Context, id int64) (core.Debt, error) {
	var d core.Debt
	var note sql.NullString
	var kind string
	var paidAt sql.NullTime
	err := q.db.QueryRowContext(ctx, `
		SELECT id, user_id, person_name, amount_cents, note, debt_kind, is_paid, created_at, paid_at
		FROM debts WHERE id = ?`, id).
		Scan(&d.ID, &d.UserID, &d.PersonName, &d.Amount.Cents, &note, &kind, &d.IsPaid, &d.CreatedAt, &paidAt)
	if errors.Is(err, sql.ErrNoRows) {
		return d, core.ErrDebtNotFound
	}
	if err != nil {
		return d, err
	}
	d.Note = note.String
	d.Kind = core.DebtKind(kind)
	if paidAt.Valid {
		t := paidAt.Time
		d.PaidAt = &t
	}
	return d, nil
}

func (q *Queries) ListOpenDebts(ctx context.Context, userID int64) ([]core.Debt, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, user_id, person_name, amount_cents, note, debt_kind, is_paid, created_at, paid_at
		FROM debts WHERE user_id = ? AND is_paid = 0 ORDER BY created_at, id`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var debts []core.Debt
	for rows.Next() {
		var d core.Debt
		var note sql.NullString
		var kind string
		var paidAt sql.NullTime
		if err := rows.Scan(&d.ID, &d.UserID, &d.PersonName, &d.Amount.Cents, &note, &kind, &d.IsPaid, &d.CreatedAt, &paidAt); err != nil {
			return nil, err
		}
		d.Note = note.String
		d.Kind = core.DebtKind(kind)
		if paidAt.Valid {
			t := paidAt.Time
			d.PaidAt = &t
		}
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

func (q *Queries) SettleDebt(ctx context.Context, id int64, paidAt time.Time) error {
	res, err := q.db.ExecContext(ctx, `
		UPDATE debts SET is_paid = 1, paid_at = ? WHERE id = ? AND is_paid = 0`, paidAt, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrDebtNotFound
	}
	return nil
}

// ---- categories ----

func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	var emoji sql.NullString
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, emoji, parent_id, is_system FROM categories WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &emoji, &c.ParentID, &c.IsSystem)
	if err != nil {
		return c, err
	}
	c.Emoji = emoji.String
	return c, nil
}

// GetRootCategoryByName resolves a top-level category once at ingestion
// time, so operations carry stable ids instead of free-text labels.
func (q *Queries) GetRootCategoryByName(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	var emoji sql.NullString
	err := q.db.QueryRowContext(ctx, `
		SELECT id, name, emoji, parent_id, is_system
		FROM categories WHERE name = ? AND parent_id IS NULL`, name).
		Scan(&c.ID, &c.Name, &emoji, &c.ParentID, &c.IsSystem)
	if err != nil {
		return c, err
	}
	c.Emoji = emoji.String
	return c, nil
}

func (q *Queries) ListRootCategories(ctx context.Context) ([]core.Category, error) {
	return q.listCategories(ctx, `
		SELECT id, name, emoji, parent_id, is_system
		FROM categories WHERE parent_id IS NULL ORDER BY id`)
}

func (q *Queries) ListSubcategories(ctx context.Context, parentID int64) ([]core.Category, error) {
	return q.listCategories(ctx, `
		SELECT id, name, emoji, parent_id, is_system
		FROM categories WHERE parent_id = ? ORDER BY id`, parentID)
}

func (q *Queries) listCategories(ctx context.Context, query string, args ...any) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var cats []core.Category
	for rows.Next() {
		var c core.Category
		var emoji sql.NullString
		if err := rows.Scan(&c.ID, &c.Name, &emoji, &c.ParentID, &c.IsSystem); err != nil {
			return nil, err
		}
		c.Emoji = emoji.String
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// ---- reporting ----

type CategoryTotal struct {
	CategoryID   int64
	CategoryName string
	Total        core.Money
}

func (q *Queries) HouseholdMonthByCategory(ctx context.Context, year, month int) ([]CategoryTotal, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT c.id, c.name, SUM(i.amount_cents)
		FROM operation_items i
		JOIN operations o ON o.id = i.operation_id
		JOIN categories c ON c.id = i.category_id
		WHERE o.kind = ?
		  AND CAST(strftime('%Y', o.created_at) AS INTEGER) = ?
		  AND CAST(strftime('%m', o.created_at) AS INTEGER) = ?
		GROUP BY c.id, c.name
		ORDER BY SUM(i.amount_cents) DESC`,
		string(core.HouseholdExpense), year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var totals []CategoryTotal
	for rows.Next() {
		var t CategoryTotal
		if err := rows.Scan(&t.CategoryID, &t.CategoryName, &t.Total.Cents); err != nil {
			return nil, err
		}
		totals = append(totals, t)
	}
	return totals, rows.Err()
}

func (q *Queries) MonthTotalByKind(ctx context.Context, userID int64, kind core.OperationKind, year, month int) (core.Money, error) {
	var cents sql.NullInt64
	err := q.db.QueryRowContext(ctx, `
		SELECT SUM(total_amount_cents) FROM operations
		WHERE user_id = ? AND kind = ?
		  AND CAST(strftime('%Y', created_at) AS INTEGER) = ?
		  AND CAST(strftime('%m', created_at) AS INTEGER) = ?`,
		userID, string(kind), year, month).Scan(&cents)
	if err != nil {
		return core.Money{}, err
	}
	return core.Money{Cents: cents.Int64}, nil
}
