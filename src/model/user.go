package model

import (
	"database/sql"
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var ErrUserNotFound = errors.New("user not found")

type User struct {
	ID        int       `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Paycheck and allocation strategy settings.
	PaycheckAmount        float64    `json:"paycheck_amount"`
	PaycheckFrequency     string     `json:"paycheck_frequency"`
	PaycheckAccountID     *int       `json:"paycheck_account_id,omitempty"`
	SpendingAccountID     *int       `json:"spending_account_id,omitempty"`
	DiscretionaryMonthly  float64    `json:"discretionary_monthly"`
	EmergencyFundTarget   float64    `json:"emergency_fund_target"`
	DebtSurplusPercent    float64    `json:"debt_surplus_percent"`
	SavingsSurplusPercent float64    `json:"savings_surplus_percent"`
	PayoffStartDate       *time.Time `json:"payoff_start_date,omitempty"`
	PayoffStartTotalDebt  *float64   `json:"payoff_start_total_debt,omitempty"`
	PayoffTargetDate      *time.Time `json:"payoff_target_date,omitempty"`
}

type Session struct {
	ID           int       `json:"id"`
	UserID       int       `json:"user_id"`
	Token        string    `json:"token"`
	RefreshToken string    `json:"refresh_token"`
	UserAgent    string    `json:"user_agent"`
	ClientIP     string    `json:"client_ip"`
	IsBlocked    bool      `json:"is_blocked"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
}

// HashPassword hashes the user's password using bcrypt.
func (u *User) HashPassword(password string) error {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.Password = string(hashedPassword)
	return nil
}

// CheckPassword compares a given password with the user's hashed password.
func (u *User) CheckPassword(password string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
}

// CreateUser inserts a new user into the database.
func (u *User) CreateUser(db DBTX) error {
	query := `
	INSERT INTO users (username, password, email, paycheck_frequency, discretionary_monthly, emergency_fund_target, debt_surplus_percent, savings_surplus_percent)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	if u.PaycheckFrequency == "" {
		u.PaycheckFrequency = "biweekly"
	}
	res, err := db.Exec(query, u.Username, u.Password, u.Email, u.PaycheckFrequency,
		u.DiscretionaryMonthly, u.EmergencyFundTarget, u.DebtSurplusPercent, u.SavingsSurplusPercent)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	u.ID = int(id)
	return nil
}

const userColumns = `id, username, password, email,
	paycheck_amount, paycheck_frequency, paycheck_account_id, spending_account_id,
	discretionary_monthly, emergency_fund_target, debt_surplus_percent, savings_surplus_percent,
	payoff_start_date, payoff_start_total_debt, payoff_target_date`

func scanUser(row *sql.Row) (*User, error) {
	var user User
	err := row.Scan(&user.ID, &user.Username, &user.Password, &user.Email,
		&user.PaycheckAmount, &user.PaycheckFrequency, &user.PaycheckAccountID, &user.SpendingAccountID,
		&user.DiscretionaryMonthly, &user.EmergencyFundTarget, &user.DebtSurplusPercent, &user.SavingsSurplusPercent,
		&user.PayoffStartDate, &user.PayoffStartTotalDebt, &user.PayoffTargetDate)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// GetUserByUsername retrieves a user from the database by their username.
func GetUserByUsername(db DBTX, username string) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

// GetUserByID retrieves a user from the database by ID.
func GetUserByID(db DBTX, id int) (*User, error) {
	return scanUser(db.QueryRow(`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

// UpdateStrategy persists the user's paycheck and allocation strategy fields.
func (u *User) UpdateStrategy(db DBTX) error {
	query := `
	UPDATE users SET
		paycheck_amount = ?, paycheck_frequency = ?, paycheck_account_id = ?, spending_account_id = ?,
		discretionary_monthly = ?, emergency_fund_target = ?, debt_surplus_percent = ?, savings_surplus_percent = ?,
		updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`
	_, err := db.Exec(query, u.PaycheckAmount, u.PaycheckFrequency, u.PaycheckAccountID, u.SpendingAccountID,
		u.DiscretionaryMonthly, u.EmergencyFundTarget, u.DebtSurplusPercent, u.SavingsSurplusPercent, u.ID)
	return err
}

// UpdatePayoffBaseline persists the payoff baseline snapshot.
func (u *User) UpdatePayoffBaseline(db DBTX) error {
	query := `
	UPDATE users SET
		payoff_start_date = ?, payoff_start_total_debt = ?, payoff_target_date = ?,
		updated_at = CURRENT_TIMESTAMP
	WHERE id = ?`
	_, err := db.Exec(query, u.PayoffStartDate, u.PayoffStartTotalDebt, u.PayoffTargetDate, u.ID)
	return err
}

// CreateSession inserts a new session into the database.
func CreateSession(db DBTX, session *Session) error {
	query := `
	INSERT INTO sessions (user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := db.Exec(query, session.UserID, session.Token, session.RefreshToken,
		session.UserAgent, session.ClientIP, session.IsBlocked, session.ExpiresAt, session.CreatedAt)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	session.ID = int(id)
	return nil
}

// GetSessionByRefreshToken looks up a session by its refresh token.
func GetSessionByRefreshToken(db DBTX, refreshToken string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions WHERE refresh_token = ?`
	row := db.QueryRow(query, refreshToken)
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent, &s.ClientIP,
		&s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found")
		}
		return nil, err
	}
	return &s, nil
}

// GetSessionByToken looks up a session by its access token.
func GetSessionByToken(db DBTX, token string) (*Session, error) {
	query := `
	SELECT id, user_id, token, refresh_token, user_agent, client_ip, is_blocked, expires_at, created_at
	FROM sessions WHERE token = ?`
	row := db.QueryRow(query, token)
	var s Session
	err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.RefreshToken, &s.UserAgent, &s.ClientIP,
		&s.IsBlocked, &s.ExpiresAt, &s.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.New("session not found")
		}
		return nil, err
	}
	return &s, nil
}

// DeleteSessionByToken removes the session holding an access token.
func DeleteSessionByToken(db DBTX, token string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE token = ?`, token)
	return err
}

// UpdateSessionToken rotates the access token stored on a session.
func UpdateSessionToken(db DBTX, sessionID int, newToken string) error {
	_, err := db.Exec(`UPDATE sessions SET token = ? WHERE id = ?`, newToken, sessionID)
	return err
}

// DeleteSessionByRefreshToken removes a session, logging the user out.
func DeleteSessionByRefreshToken(db DBTX, refreshToken string) error {
	_, err := db.Exec(`DELETE FROM sessions WHERE refresh_token = ?`, refreshToken)
	return err
}
