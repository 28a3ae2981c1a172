package model

import (
	"database/sql"
	"errors"
	"time"
)

var ErrBillNotFound = errors.New("bill not found")

const (
	BillStatusUnpaid = "UNPAID"
	BillStatusPaid   = "PAID"
)

type Bill struct {
	ID            int       `json:"id"`
	UserID        int       `json:"userId"`
	Name          string    `json:"name"`
	Category      string    `json:"category"`
	Amount        float64   `json:"amount"`
	DueDay        int       `json:"dueDay"`
	IsRecurring   bool      `json:"isRecurring"`
	Frequency     string    `json:"frequency"`
	DebtID        *int      `json:"debtId,omitempty"`
	BankAccountID *int      `json:"bankAccountId,omitempty"`
	IsActive      bool      `json:"isActive"`
	Notes         string    `json:"notes,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// BillPayment is one dated occurrence of a bill, paid or not.
type BillPayment struct {
	ID      int        `json:"id"`
	BillID  int        `json:"billId"`
	DueDate time.Time  `json:"dueDate"`
	Amount  float64    `json:"amount"`
	Status  string     `json:"status"`
	PaidAt  *time.Time `json:"paidAt,omitempty"`
}

const billColumns = `id, user_id, name, category, amount, due_day, is_recurring, frequency,
	debt_id, bank_account_id, is_active, notes, created_at`

func scanBill(scan func(dest ...any) error) (*Bill, error) {
	var b Bill
	var notes sql.NullString
	err := scan(&b.ID, &b.UserID, &b.Name, &b.Category, &b.Amount, &b.DueDay, &b.IsRecurring, &b.Frequency,
		&b.DebtID, &b.BankAccountID, &b.IsActive, &notes, &b.CreatedAt)
	if err != nil {
		return nil, err
	}
	b.Notes = notes.String
	return &b, nil
}

// CreateBill inserts a new bill.
func (b *Bill) CreateBill(db DBTX) error {
	if b.Category == "" {
		b.Category = "OTHER"
	}
	if b.Frequency == "" {
		b.Frequency = "MONTHLY"
	}
	res, err := db.Exec(`
	INSERT INTO bills (user_id, name, category, amount, due_day, is_recurring, frequency, debt_id, bank_account_id, is_active, notes)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.UserID, b.Name, b.Category, b.Amount, b.DueDay, b.IsRecurring, b.Frequency, b.DebtID, b.BankAccountID, b.IsActive, b.Notes)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	b.ID = int(id)
	return nil
}

// UpdateBill saves all mutable fields.
func (b *Bill) UpdateBill(db DBTX) error {
	_, err := db.Exec(`
	UPDATE bills SET name = ?, category = ?, amount = ?, due_day = ?, is_recurring = ?, frequency = ?,
		debt_id = ?, bank_account_id = ?, is_active = ?, notes = ?
	WHERE id = ? AND user_id = ?`,
		b.Name, b.Category, b.Amount, b.DueDay, b.IsRecurring, b.Frequency,
		b.DebtID, b.BankAccountID, b.IsActive, b.Notes, b.ID, b.UserID)
	return err
}

// GetBillByID fetches one bill scoped to a user.
func GetBillByID(db DBTX, id, userID int) (*Bill, error) {
	row := db.QueryRow(`SELECT `+billColumns+` FROM bills WHERE id = ? AND user_id = ?`, id, userID)
	b, err := scanBill(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrBillNotFound
		}
		return nil, err
	}
	return b, nil
}

// ListBills returns a user's bills in due-day order. When activeOnly is set,
// deactivated bills are excluded.
func ListBills(db DBTX, userID int, activeOnly bool) ([]Bill, error) {
	query := `SELECT ` + billColumns + ` FROM bills WHERE user_id = ?`
	if activeOnly {
		query += ` AND is_active = TRUE`
	}
	query += ` ORDER BY due_day ASC, name ASC`
	rows, err := db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := []Bill{}
	for rows.Next() {
		b, err := scanBill(rows.Scan)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

// ListBillsForDebt returns the bills generated from a debt's schedule.
func ListBillsForDebt(db DBTX, debtID, userID int) ([]Bill, error) {
	rows, err := db.Query(`SELECT `+billColumns+` FROM bills WHERE debt_id = ? AND user_id = ? ORDER BY due_day ASC`, debtID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bills := []Bill{}
	for rows.Next() {
		b, err := scanBill(rows.Scan)
		if err != nil {
			return nil, err
		}
		bills = append(bills, *b)
	}
	return bills, rows.Err()
}

// SettleDebtBillPayments flips the unpaid occurrences of a debt's linked
// bills to paid for the month containing paidAt, so a recorded debt payment
// also clears the matching bill from the allocation plan.
func SettleDebtBillPayments(db DBTX, debtID, userID int, paidAt time.Time) error {
	monthStart := time.Date(paidAt.Year(), paidAt.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	_, err := db.Exec(`
	UPDATE bill_payments SET status = ?, paid_at = ?
	WHERE status = ? AND due_date >= ? AND due_date < ?
	  AND bill_id IN (SELECT id FROM bills WHERE debt_id = ? AND user_id = ?)`,
		BillStatusPaid, paidAt, BillStatusUnpaid, monthStart, monthEnd, debtID, userID)
	return err
}

// DeactivateBillsForDebt turns off the bills tied to a debt, used when the
// debt is paid off or removed.
func DeactivateBillsForDebt(db DBTX, debtID, userID int) error {
	_, err := db.Exec(`UPDATE bills SET is_active = FALSE WHERE debt_id = ? AND user_id = ?`, debtID, userID)
	return err
}

// DeleteBill removes a bill and its payment occurrences.
func DeleteBill(db DBTX, id, userID int) error {
	if _, err := db.Exec(`DELETE FROM bill_payments WHERE bill_id IN (SELECT id FROM bills WHERE id = ? AND user_id = ?)`, id, userID); err != nil {
		return err
	}
	res, err := db.Exec(`DELETE FROM bills WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrBillNotFound
	}
	return nil
}

// UpsertBillPayment records a bill occurrence for a due date, creating the
// row on first sight and updating the status afterwards.
func UpsertBillPayment(db DBTX, billID int, dueDate time.Time, amount float64, status string, paidAt *time.Time) error {
	var id int
	err := db.QueryRow(`SELECT id FROM bill_payments WHERE bill_id = ? AND due_date = ?`, billID, dueDate).Scan(&id)
	if err == sql.ErrNoRows {
		_, err = db.Exec(`
		INSERT INTO bill_payments (bill_id, due_date, amount, status, paid_at)
		VALUES (?, ?, ?, ?, ?)`, billID, dueDate, amount, status, paidAt)
		return err
	}
	if err != nil {
		return err
	}
	_, err = db.Exec(`UPDATE bill_payments SET amount = ?, status = ?, paid_at = ? WHERE id = ?`, amount, status, paidAt, id)
	return err
}

// GetBillPayment fetches the occurrence of a bill for one due date, or nil
// when none has been recorded yet.
func GetBillPayment(db DBTX, billID int, dueDate time.Time) (*BillPayment, error) {
	row := db.QueryRow(`
	SELECT id, bill_id, due_date, amount, status, paid_at
	FROM bill_payments WHERE bill_id = ? AND due_date = ?`, billID, dueDate)
	var p BillPayment
	err := row.Scan(&p.ID, &p.BillID, &p.DueDate, &p.Amount, &p.Status, &p.PaidAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &p, nil
}

// CreateBillPayment inserts one occurrence row.
func CreateBillPayment(db DBTX, billID int, dueDate time.Time, amount float64) (*BillPayment, error) {
	res, err := db.Exec(`
	INSERT INTO bill_payments (bill_id, due_date, amount, status)
	VALUES (?, ?, ?, ?)`, billID, dueDate, amount, BillStatusUnpaid)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return &BillPayment{ID: int(id), BillID: billID, DueDate: dueDate, Amount: amount, Status: BillStatusUnpaid}, nil
}

// MarkBillPaymentPaid flips one occurrence to paid.
func MarkBillPaymentPaid(db DBTX, id int, paidAt time.Time) error {
	_, err := db.Exec(`UPDATE bill_payments SET status = ?, paid_at = ? WHERE id = ?`, BillStatusPaid, paidAt, id)
	return err
}

// ListBillPayments returns a bill's occurrence history in due-date order.
func ListBillPayments(db DBTX, billID int) ([]BillPayment, error) {
	rows, err := db.Query(`
	SELECT id, bill_id, due_date, amount, status, paid_at
	FROM bill_payments WHERE bill_id = ? ORDER BY due_date ASC`, billID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := []BillPayment{}
	for rows.Next() {
		var p BillPayment
		if err := rows.Scan(&p.ID, &p.BillID, &p.DueDate, &p.Amount, &p.Status, &p.PaidAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
