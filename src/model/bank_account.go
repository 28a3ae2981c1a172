package model

import (
	"database/sql"
	"errors"
	"time"
)

var ErrAccountNotFound = errors.New("bank account not found")

type BankAccount struct {
	ID        int       `json:"id"`
	UserID    int       `json:"userId"`
	Name      string    `json:"name"`
	Bank      string    `json:"bank"`
	LastFour  string    `json:"lastFour,omitempty"`
	IsDefault bool      `json:"isDefault"`
	CreatedAt time.Time `json:"createdAt"`
}

// CreateBankAccount inserts a new account. When the account is flagged as
// default, any previous default for the user is cleared first so at most one
// default exists per user.
func (a *BankAccount) CreateBankAccount(db DBTX) error {
	if a.IsDefault {
		if _, err := db.Exec(`UPDATE bank_accounts SET is_default = FALSE WHERE user_id = ?`, a.UserID); err != nil {
			return err
		}
	}
	res, err := db.Exec(`
	INSERT INTO bank_accounts (user_id, name, bank, last_four, is_default)
	VALUES (?, ?, ?, ?, ?)`, a.UserID, a.Name, a.Bank, a.LastFour, a.IsDefault)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = int(id)
	return nil
}

// UpdateBankAccount saves changes, preserving the single-default invariant.
func (a *BankAccount) UpdateBankAccount(db DBTX) error {
	if a.IsDefault {
		if _, err := db.Exec(`UPDATE bank_accounts SET is_default = FALSE WHERE user_id = ? AND id != ?`, a.UserID, a.ID); err != nil {
			return err
		}
	}
	_, err := db.Exec(`
	UPDATE bank_accounts SET name = ?, bank = ?, last_four = ?, is_default = ?
	WHERE id = ? AND user_id = ?`, a.Name, a.Bank, a.LastFour, a.IsDefault, a.ID, a.UserID)
	return err
}

// GetBankAccountByID fetches one account scoped to a user.
func GetBankAccountByID(db DBTX, id, userID int) (*BankAccount, error) {
	row := db.QueryRow(`
	SELECT id, user_id, name, bank, last_four, is_default, created_at
	FROM bank_accounts WHERE id = ? AND user_id = ?`, id, userID)
	var a BankAccount
	var lastFour sql.NullString
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Bank, &lastFour, &a.IsDefault, &a.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrAccountNotFound
		}
		return nil, err
	}
	a.LastFour = lastFour.String
	return &a, nil
}

// ListBankAccounts returns all of a user's accounts, default first.
func ListBankAccounts(db DBTX, userID int) ([]BankAccount, error) {
	rows, err := db.Query(`
	SELECT id, user_id, name, bank, last_four, is_default, created_at
	FROM bank_accounts WHERE user_id = ?
	ORDER BY is_default DESC, name ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	accounts := []BankAccount{}
	for rows.Next() {
		var a BankAccount
		var lastFour sql.NullString
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Bank, &lastFour, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.LastFour = lastFour.String
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteBankAccount removes an account after detaching any bills or debts
// that reference it.
func DeleteBankAccount(db DBTX, id, userID int) error {
	if _, err := db.Exec(`UPDATE bills SET bank_account_id = NULL WHERE bank_account_id = ? AND user_id = ?`, id, userID); err != nil {
		return err
	}
	if _, err := db.Exec(`UPDATE debts SET bank_account_id = NULL WHERE bank_account_id = ? AND user_id = ?`, id, userID); err != nil {
		return err
	}
	res, err := db.Exec(`DELETE FROM bank_accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrAccountNotFound
	}
	return nil
}
