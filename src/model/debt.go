package model

import (
	"database/sql"
	"errors"
	"time"
)

var ErrDebtNotFound = errors.New("debt not found")

// Debt types mirror the kinds of liabilities the planner understands. BNPL
// debts carry an installment schedule; the rest amortize on a stated rate.
const (
	DebtTypeBNPL       = "BNPL"
	DebtTypeCreditCard = "CREDIT_CARD"
	DebtTypeLoan       = "LOAN"
	DebtTypeOther      = "OTHER"
)

const (
	DebtStatusCurrent  = "CURRENT"
	DebtStatusDeferred = "DEFERRED"
	DebtStatusPaidOff  = "PAID_OFF"
)

type Debt struct {
	ID               int        `json:"id"`
	UserID           int        `json:"userId"`
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	Status           string     `json:"status"`
	CurrentBalance   float64    `json:"currentBalance"`
	OriginalBalance  float64    `json:"originalBalance"`
	InterestRate     float64    `json:"interestRate"`
	EffectiveRate    *float64   `json:"effectiveRate,omitempty"`
	TotalRepayable   *float64   `json:"totalRepayable,omitempty"`
	MinimumPayment   float64    `json:"minimumPayment"`
	DueDay           int        `json:"dueDay"`
	PaymentFrequency *string    `json:"paymentFrequency,omitempty"`
	StartDate        time.Time  `json:"startDate"`
	DeferredUntil    *time.Time `json:"deferredUntil,omitempty"`
	BankAccountID    *int       `json:"bankAccountId,omitempty"`
	IsActive         bool       `json:"isActive"`
	Notes            string     `json:"notes,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// ScheduledPayment is one installment of a BNPL repayment schedule.
type ScheduledPayment struct {
	ID         int        `json:"id"`
	DebtID     int        `json:"debtId"`
	DueDate    time.Time  `json:"dueDate"`
	Amount     float64    `json:"amount"`
	IsPaid     bool       `json:"isPaid"`
	PaidAt     *time.Time `json:"paidAt,omitempty"`
	PaidAmount *float64   `json:"paidAmount,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// DebtPayment records one applied payment with its principal/interest split.
type DebtPayment struct {
	ID         int       `json:"id"`
	DebtID     int       `json:"debtId"`
	Date       time.Time `json:"date"`
	Amount     float64   `json:"amount"`
	Principal  float64   `json:"principal"`
	Interest   float64   `json:"interest"`
	NewBalance float64   `json:"newBalance"`
	Notes      string    `json:"notes,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// QuickPayment is a one-off logged expense, optionally tied to a debt.
type QuickPayment struct {
	ID          int       `json:"id"`
	UserID      int       `json:"userId"`
	Description string    `json:"description"`
	Amount      float64   `json:"amount"`
	PaidAt      time.Time `json:"paidAt"`
	DebtID      *int      `json:"debtId,omitempty"`
	Category    string    `json:"category"`
	Notes       string    `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

const debtColumns = `id, user_id, name, type, status, current_balance, original_balance,
	interest_rate, effective_rate, total_repayable, minimum_payment, due_day,
	payment_frequency, start_date, deferred_until, bank_account_id, is_active, notes,
	created_at, updated_at`

func scanDebt(scan func(dest ...any) error) (*Debt, error) {
	var d Debt
	var notes sql.NullString
	err := scan(&d.ID, &d.UserID, &d.Name, &d.Type, &d.Status, &d.CurrentBalance, &d.OriginalBalance,
		&d.InterestRate, &d.EffectiveRate, &d.TotalRepayable, &d.MinimumPayment, &d.DueDay,
		&d.PaymentFrequency, &d.StartDate, &d.DeferredUntil, &d.BankAccountID, &d.IsActive, &notes,
		&d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}
	d.Notes = notes.String
	return &d, nil
}

// CreateDebt inserts a new debt.
func (d *Debt) CreateDebt(db DBTX) error {
	if d.Status == "" {
		d.Status = DebtStatusCurrent
	}
	res, err := db.Exec(`
	INSERT INTO debts (user_id, name, type, status, current_balance, original_balance,
		interest_rate, effective_rate, total_repayable, minimum_payment, due_day,
		payment_frequency, start_date, deferred_until, bank_account_id, is_active, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.UserID, d.Name, d.Type, d.Status, d.CurrentBalance, d.OriginalBalance,
		d.InterestRate, d.EffectiveRate, d.TotalRepayable, d.MinimumPayment, d.DueDay,
		d.PaymentFrequency, d.StartDate, d.DeferredUntil, d.BankAccountID, d.IsActive, d.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	d.ID = int(id)
	return nil
}

// UpdateDebt saves all mutable fields.
func (d *Debt) UpdateDebt(db DBTX) error {
	_, err := db.Exec(`
	UPDATE debts SET name = ?, type = ?, status = ?, current_balance = ?, original_balance = ?,
		interest_rate = ?, effective_rate = ?, total_repayable = ?, minimum_payment = ?, due_day = ?,
		payment_frequency = ?, start_date = ?, deferred_until = ?, bank_account_id = ?, is_active = ?,
		notes = ?, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND user_id = ?`,
		d.Name, d.Type, d.Status, d.CurrentBalance, d.OriginalBalance,
		d.InterestRate, d.EffectiveRate, d.TotalRepayable, d.MinimumPayment, d.DueDay,
		d.PaymentFrequency, d.StartDate, d.DeferredUntil, d.BankAccountID, d.IsActive,
		d.Notes, d.ID, d.UserID)
	return err
}

// GetDebtByID fetches one debt scoped to a user.
func GetDebtByID(db DBTX, id, userID int) (*Debt, error) {
	row := db.QueryRow(`SELECT `+debtColumns+` FROM debts WHERE id = ? AND user_id = ?`, id, userID)
	d, err := scanDebt(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrDebtNotFound
		}
		return nil, err
	}
	return d, nil
}

// ListDebts returns a user's debts. When activeOnly is set, soft-deleted
// debts are excluded.
func ListDebts(db DBTX, userID int, activeOnly bool) ([]Debt, error) {
	query := `SELECT ` + debtColumns + ` FROM debts WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY current_balance ASC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debts := []Debt{}
	for rows.Next() {
		d, err := scanDebt(rows.Scan)
		if err != nil {
			return nil, err
		}
		debts = append(debts, *d)
	}
	return debts, rows.Err()
}

// SoftDeleteDebt deactivates a debt without losing its payment history.
func SoftDeleteDebt(db DBTX, id, userID int) error {
	res, err := db.Exec(`
	UPDATE debts SET is_active = FALSE, updated_at = CURRENT_TIMESTAMP
	WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrDebtNotFound
	}
	return nil
}

// ReplaceUnpaidSchedule swaps the unpaid remainder of a debt's installment
// schedule for a freshly generated one. Paid installments are kept as history.
func ReplaceUnpaidSchedule(db DBTX, debtID int, installments []ScheduledPayment) error {
	if _, err := db.Exec(`DELETE FROM scheduled_payments WHERE debt_id = ? AND is_paid = FALSE`, debtID); err != nil {
		return err
	}
	for i := range installments {
		sp := &installments[i]
		res, err := db.Exec(`
		INSERT INTO scheduled_payments (debt_id, due_date, amount, is_paid)
		VALUES (?, ?, ?, FALSE)`, debtID, sp.DueDate, sp.Amount)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		sp.ID = int(id)
		sp.DebtID = debtID
	}
	return nil
}

// ListScheduledPayments returns a debt's installments in due-date order.
func ListScheduledPayments(db DBTX, debtID int) ([]ScheduledPayment, error) {
	rows, err := db.Query(`
	SELECT id, debt_id, due_date, amount, is_paid, paid_at, paid_amount, notes
	FROM scheduled_payments WHERE debt_id = ? ORDER BY due_date ASC`, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []ScheduledPayment{}
	for rows.Next() {
		var sp ScheduledPayment
		var notes sql.NullString
		if err := rows.Scan(&sp.ID, &sp.DebtID, &sp.DueDate, &sp.Amount, &sp.IsPaid, &sp.PaidAt, &sp.PaidAmount, &notes); err != nil {
			return nil, err
		}
		sp.Notes = notes.String
		payments = append(payments, sp)
	}
	return payments, rows.Err()
}

// NextUnpaidInstallment returns the earliest unpaid installment, or nil when
// the schedule is fully paid.
func NextUnpaidInstallment(db DBTX, debtID int) (*ScheduledPayment, error) {
	row := db.QueryRow(`
	SELECT id, debt_id, due_date, amount, is_paid, paid_at, paid_amount, notes
	FROM scheduled_payments WHERE debt_id = ? AND is_paid = FALSE
	ORDER BY due_date ASC LIMIT 1`, debtID)
	var sp ScheduledPayment
	var notes sql.NullString
	err := row.Scan(&sp.ID, &sp.DebtID, &sp.DueDate, &sp.Amount, &sp.IsPaid, &sp.PaidAt, &sp.PaidAmount, &notes)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	sp.Notes = notes.String
	return &sp, nil
}

// MarkInstallmentPaid records payment of one installment.
func MarkInstallmentPaid(db DBTX, installmentID int, paidAt time.Time, paidAmount float64) error {
	_, err := db.Exec(`
	UPDATE scheduled_payments SET is_paid = TRUE, paid_at = ?, paid_amount = ?
	WHERE id = ?`, paidAt, paidAmount, installmentID)
	return err
}

// CreateDebtPayment appends one payment to a debt's history.
func (p *DebtPayment) CreateDebtPayment(db DBTX) error {
	res, err := db.Exec(`
	INSERT INTO debt_payments (debt_id, date, amount, principal, interest, new_balance, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.DebtID, p.Date, p.Amount, p.Principal, p.Interest, p.NewBalance, p.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = int(id)
	return nil
}

// ListDebtPayments returns a debt's payment history, newest first.
func ListDebtPayments(db DBTX, debtID int) ([]DebtPayment, error) {
	rows, err := db.Query(`
	SELECT id, debt_id, date, amount, principal, interest, new_balance, notes, created_at
	FROM debt_payments WHERE debt_id = ? ORDER BY date DESC, id DESC`, debtID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []DebtPayment{}
	for rows.Next() {
		var p DebtPayment
		var notes sql.NullString
		if err := rows.Scan(&p.ID, &p.DebtID, &p.Date, &p.Amount, &p.Principal, &p.Interest, &p.NewBalance, &notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Notes = notes.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// CreateQuickPayment logs a one-off payment.
func (q *QuickPayment) CreateQuickPayment(db DBTX) error {
	if q.Category == "" {
		q.Category = "OTHER"
	}
	res, err := db.Exec(`
	INSERT INTO quick_payments (user_id, description, amount, paid_at, debt_id, category, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?)`,
		q.UserID, q.Description, q.Amount, q.PaidAt, q.DebtID, q.Category, q.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	q.ID = int(id)
	return nil
}

// ListQuickPayments returns a user's logged one-off payments, newest first.
func ListQuickPayments(db DBTX, userID int) ([]QuickPayment, error) {
	rows, err := db.Query(`
	SELECT id, user_id, description, amount, paid_at, debt_id, category, notes, created_at
	FROM quick_payments WHERE user_id = ? ORDER BY paid_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []QuickPayment{}
	for rows.Next() {
		var q QuickPayment
		var notes sql.NullString
		if err := rows.Scan(&q.ID, &q.UserID, &q.Description, &q.Amount, &q.PaidAt, &q.DebtID, &q.Category, &notes, &q.CreatedAt); err != nil {
			return nil, err
		}
		q.Notes = notes.String
		payments = append(payments, q)
	}
	return payments, rows.Err()
}
