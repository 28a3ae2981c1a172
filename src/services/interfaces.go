package services

import (
	"errors"
	"time"

	"github.com/username/paydown/backend/src/model"
	"github.com/username/paydown/backend/src/planner"
)

var (
	ErrValidation = errors.New("validation failed")
	ErrNotFound   = errors.New("not found")
)

// DebtInput carries everything needed to create or update a debt. For BNPL
// debts, NumberOfPayments, PaymentFrequency and FirstPaymentDate drive the
// installment schedule; the other types ignore them.
type DebtInput struct {
	Name             string     `json:"name"`
	Type             string     `json:"type"`
	CurrentBalance   float64    `json:"currentBalance"`
	OriginalBalance  float64    `json:"originalBalance"`
	InterestRate     float64    `json:"interestRate"`
	TotalRepayable   *float64   `json:"totalRepayable,omitempty"`
	MinimumPayment   float64    `json:"minimumPayment"`
	DueDay           int        `json:"dueDay"`
	NumberOfPayments int        `json:"numberOfPayments,omitempty"`
	PaymentFrequency string     `json:"paymentFrequency,omitempty"`
	FirstPaymentDate *time.Time `json:"firstPaymentDate,omitempty"`
	DeferredUntil    *time.Time `json:"deferredUntil,omitempty"`
	BankAccountID    *int       `json:"bankAccountId,omitempty"`
	Notes            string     `json:"notes,omitempty"`
}

// DebtDetail is a debt together with its derived figures and schedule.
type DebtDetail struct {
	Debt          model.Debt                  `json:"debt"`
	EffectiveRate *planner.EffectiveAPRResult `json:"effectiveRate,omitempty"`
	Schedule      []model.ScheduledPayment    `json:"schedule,omitempty"`
	Payments      []model.DebtPayment         `json:"payments,omitempty"`
}

// StrategyUpdate carries the user's paycheck and allocation settings.
type StrategyUpdate struct {
	PaycheckAmount        float64 `json:"paycheckAmount"`
	PaycheckFrequency     string  `json:"paycheckFrequency"`
	PaycheckAccountID     *int    `json:"paycheckAccountId,omitempty"`
	SpendingAccountID     *int    `json:"spendingAccountId,omitempty"`
	DiscretionaryMonthly  float64 `json:"discretionaryMonthly"`
	EmergencyFundTarget   float64 `json:"emergencyFundTarget"`
	DebtSurplusPercent    float64 `json:"debtSurplusPercent"`
	SavingsSurplusPercent float64 `json:"savingsSurplusPercent"`
}

// DebtService manages debts, their installment schedules and payments.
type DebtService interface {
	CreateDebt(userID int, in DebtInput) (*DebtDetail, error)
	UpdateDebt(userID, debtID int, in DebtInput) (*DebtDetail, error)
	GetDebt(userID, debtID int) (*DebtDetail, error)
	ListDebts(userID int) ([]model.Debt, error)
	DeleteDebt(userID, debtID int) error
	RecordPayment(userID, debtID int, amount float64, paidAt time.Time, notes string) (*model.DebtPayment, error)
	PayoffProjection(userID, debtID int, extraMonthly float64) (*planner.PayoffComparison, error)
	FreedomProjection(userID int) (*planner.SnowballResult, error)
}

// BaselineSync reports a payoff baseline reset: what the baseline was and
// what it became.
type BaselineSync struct {
	PreviousStartDate      *time.Time `json:"previousStartDate,omitempty"`
	PreviousStartTotalDebt *float64   `json:"previousStartTotalDebt,omitempty"`
	NewStartDate           time.Time  `json:"newStartDate"`
	NewStartTotalDebt      float64    `json:"newStartTotalDebt"`
	TargetDate             *time.Time `json:"targetDate,omitempty"`
}

// PlanService builds per-paycheck allocation plans and executes the actions
// they recommend.
type PlanService interface {
	GetAllocationPlan(userID int, forDate time.Time) (*planner.AllocationPlan, error)
	RecordExtraDebtPayment(userID, debtID int, amount float64, paidAt time.Time) (*model.DebtPayment, error)
	CreditEmergencyFund(userID int, amount float64) (*model.SavingsGoal, error)
	SyncPayoffBaseline(userID int, preserveStartDate bool) (*BaselineSync, error)
	UpdateStrategy(userID int, in StrategyUpdate) (*model.User, error)
	InvalidateUserCache(userID int)
}
