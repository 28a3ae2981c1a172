package planner

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PlanStepType identifies what kind of action a plan step is.
type PlanStepType string

const (
	StepTransfer         PlanStepType = "TRANSFER"
	StepBillPayment      PlanStepType = "BILL_PAYMENT"
	StepExtraDebtPayment PlanStepType = "EXTRA_DEBT_PAYMENT"
	StepSavingsTransfer  PlanStepType = "SAVINGS_TRANSFER"
)

// Ordering bands for emitted steps. Transfers come first so money is in place
// before anything is paid out of the destination accounts.
const (
	orderTransferBase    = 100
	orderBillPaymentBase = 200
	orderExtraDebt       = 300
	orderSavings         = 350
)

// PlanStep is one ordered action of an allocation plan. Steps are ephemeral
// per-request values and are never persisted.
type PlanStep struct {
	ID              string       `json:"id"`
	Type            PlanStepType `json:"type"`
	Order           int          `json:"order"`
	Label           string       `json:"label"`
	Amount          float64      `json:"amount"`
	FromAccountID   *int64       `json:"fromAccountId,omitempty"`
	FromAccountName string       `json:"fromAccountName,omitempty"`
	ToAccountID     *int64       `json:"toAccountId,omitempty"`
	ToAccountName   string       `json:"toAccountName,omitempty"`
	BillPaymentID   *int64       `json:"billPaymentId,omitempty"`
	DebtID          *int64       `json:"debtId,omitempty"`
	SavingsGoalID   *int64       `json:"savingsGoalId,omitempty"`
	DueDate         *time.Time   `json:"dueDate,omitempty"`
	Purpose         string       `json:"purpose,omitempty"`
}

// SurplusSplit is the paycheck remainder after bills and discretionary
// spending, divided between savings and extra debt payment.
type SurplusSplit struct {
	Surplus           float64 `json:"surplus"`
	SavingsAllocation float64 `json:"savingsAllocation"`
	DebtAllocation    float64 `json:"debtAllocation"`
	IsNegative        bool    `json:"isNegative"`
}

// AvalancheTarget is the debt extra payments should go to: the active,
// non-deferred debt with the highest effective-or-stated rate.
type AvalancheTarget struct {
	DebtID          int64   `json:"debtId"`
	DebtName        string  `json:"debtName"`
	BankAccountID   *int64  `json:"bankAccountId,omitempty"`
	BankAccountName string  `json:"bankAccountName,omitempty"`
	InterestRate    float64 `json:"interestRate"`
	CurrentBalance  float64 `json:"currentBalance"`
}

// AccountFundingSummary reports how much must land in a bank account this
// period and why.
type AccountFundingSummary struct {
	AccountID      int64    `json:"accountId"`
	Name           string   `json:"name"`
	Bank           string   `json:"bank"`
	RequiredAmount float64  `json:"requiredAmount"`
	Purposes       []string `json:"purposes"`
}

// StrategyConfig is the user's static allocation configuration.
type StrategyConfig struct {
	PaycheckAmount        float64
	PaycheckFrequency     PaymentFrequency
	PaycheckAccountID     *int64
	SpendingAccountID     *int64
	DiscretionaryMonthly  float64
	EmergencyFundTarget   float64
	DebtSurplusPercent    float64
	SavingsSurplusPercent float64
	Baseline              Baseline
}

// PlanBillPayment is an unpaid bill occurrence due inside the plan's period.
type PlanBillPayment struct {
	ID            int64
	BillID        int64
	BillName      string
	Amount        float64
	DueDate       time.Time
	BankAccountID *int64
}

// PlanDebt is the slice of debt state the planner needs.
type PlanDebt struct {
	ID             int64
	Name           string
	Balance        float64
	StatedRate     float64
	EffectiveRate  *float64
	MinimumPayment float64
	BankAccountID  *int64
	Active         bool
	PaidOff        bool
	Deferred       bool
}

// PlanAccount is a bank account referenced by plan steps.
type PlanAccount struct {
	ID   int64
	Name string
	Bank string
}

// PlanInput is the full snapshot an allocation plan is computed from. The
// planner is a pure function of this value; all store reads happen upstream.
type PlanInput struct {
	Period               PayPeriod
	Strategy             StrategyConfig
	UnpaidPayments       []PlanBillPayment
	Debts                []PlanDebt
	Accounts             []PlanAccount
	EmergencyFundCurrent float64
	EmergencyGoalID      *int64
	CurrentDebtTotal     float64
}

// AllocationPlan is the per-period output: the ordered steps plus every
// intermediate figure the UI explains them with.
type AllocationPlan struct {
	Period                   PayPeriod               `json:"period"`
	PaycheckAmount           float64                 `json:"paycheckAmount"`
	BillsDueThisPeriod       float64                 `json:"billsDueThisPeriod"`
	DiscretionaryThisCheck   float64                 `json:"discretionaryThisPaycheck"`
	SurplusSplit             SurplusSplit            `json:"surplusSplit"`
	AvalancheTarget          *AvalancheTarget        `json:"avalancheTarget,omitempty"`
	Steps                    []PlanStep              `json:"steps"`
	Transfers                []PlanStep              `json:"transfers"`
	BillPayments             []PlanStep              `json:"billPayments"`
	ExtraDebtStep            *PlanStep               `json:"extraDebtStep,omitempty"`
	SavingsStep              *PlanStep               `json:"savingsStep,omitempty"`
	PayoffProgress           PayoffProgress          `json:"payoffProgress"`
	AccountFundingSummaries  []AccountFundingSummary `json:"bankAccountSummaries"`
	EmergencyFundCurrent     float64                 `json:"emergencyFundCurrent"`
	EmergencyFundTarget      float64                 `json:"emergencyFundTarget"`
}

// DiscretionaryPerPaycheck converts a monthly discretionary budget into a
// per-paycheck amount for the given paycheck cadence.
func DiscretionaryPerPaycheck(monthly float64, freq PaymentFrequency) float64 {
	if monthly <= 0 {
		return 0
	}
	perYear := freq.PeriodsPerYear()
	if perYear == 0 {
		perYear = 26
	}
	return monthly * 12 / float64(perYear)
}

// ComputeSurplusSplit divides what remains of the paycheck after bills and
// discretionary spending. Savings is capped by the emergency-fund gap; the
// rest goes to debt. A non-positive surplus allocates nothing and flags the
// period as a shortfall.
func ComputeSurplusSplit(paycheck, billsDue, discretionary, fundTarget, fundCurrent, savingsPercent float64) SurplusSplit {
	surplus := paycheck - (billsDue + discretionary)
	if surplus <= 0 {
		return SurplusSplit{Surplus: surplus, IsNegative: true}
	}

	gap := math.Max(0, fundTarget-fundCurrent)
	savings := 0.0
	if gap > 0 {
		savings = math.Min(surplus*savingsPercent, gap)
	}

	return SurplusSplit{
		Surplus:           surplus,
		SavingsAllocation: savings,
		DebtAllocation:    surplus - savings,
	}
}

// FindAvalancheTarget picks the active, non-deferred, positive-balance debt
// with the highest of its effective and stated rates. Ties keep input order
// (stable sort); there is deliberately no secondary key.
func FindAvalancheTarget(debts []PlanDebt, accounts []PlanAccount) *AvalancheTarget {
	candidates := make([]PlanDebt, 0, len(debts))
	for _, d := range debts {
		if d.Active && !d.PaidOff && !d.Deferred && d.Balance > 0 {
			candidates = append(candidates, d)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		return bestRate(candidates[i]) > bestRate(candidates[j])
	})

	top := candidates[0]
	target := &AvalancheTarget{
		DebtID:         top.ID,
		DebtName:       top.Name,
		BankAccountID:  top.BankAccountID,
		InterestRate:   bestRate(top),
		CurrentBalance: top.Balance,
	}
	if top.BankAccountID != nil {
		if acct := findAccount(accounts, *top.BankAccountID); acct != nil {
			target.BankAccountName = acct.Name
		}
	}
	return target
}

func bestRate(d PlanDebt) float64 {
	rate := d.StatedRate
	if d.EffectiveRate != nil && *d.EffectiveRate > rate {
		rate = *d.EffectiveRate
	}
	return rate
}

func findAccount(accounts []PlanAccount, id int64) *PlanAccount {
	for i := range accounts {
		if accounts[i].ID == id {
			return &accounts[i]
		}
	}
	return nil
}

type fundingRequirement struct {
	accountID int64
	amount    float64
	purposes  []string
}

// BuildAllocationPlan runs the per-period planning pass over a snapshot:
// bills due, discretionary conversion, surplus split, avalanche target,
// per-account funding requirements, step emission, baseline progress.
func BuildAllocationPlan(in PlanInput, now time.Time) *AllocationPlan {
	billsDue := 0.0
	billsByAccount := map[int64]float64{}
	var accountOrder []int64
	for _, p := range in.UnpaidPayments {
		billsDue += p.Amount
		if p.BankAccountID != nil {
			if _, seen := billsByAccount[*p.BankAccountID]; !seen {
				accountOrder = append(accountOrder, *p.BankAccountID)
			}
			billsByAccount[*p.BankAccountID] += p.Amount
		}
	}

	discretionary := DiscretionaryPerPaycheck(in.Strategy.DiscretionaryMonthly, in.Strategy.PaycheckFrequency)

	split := ComputeSurplusSplit(
		in.Strategy.PaycheckAmount,
		billsDue,
		discretionary,
		in.Strategy.EmergencyFundTarget,
		in.EmergencyFundCurrent,
		in.Strategy.SavingsSurplusPercent,
	)

	target := FindAvalancheTarget(in.Debts, in.Accounts)

	// Accumulate required transfers into every account that is not the
	// paycheck deposit account.
	var requirements []*fundingRequirement
	byAccount := map[int64]*fundingRequirement{}
	addRequirement := func(accountID int64, amount float64, purpose string) {
		if in.Strategy.PaycheckAccountID != nil && accountID == *in.Strategy.PaycheckAccountID {
			return
		}
		req, ok := byAccount[accountID]
		if !ok {
			req = &fundingRequirement{accountID: accountID}
			byAccount[accountID] = req
			requirements = append(requirements, req)
		}
		req.amount += amount
		req.purposes = append(req.purposes, purpose)
	}

	for _, accountID := range accountOrder {
		addRequirement(accountID, billsByAccount[accountID], "Bills")
	}
	if discretionary > 0 && in.Strategy.SpendingAccountID != nil {
		addRequirement(*in.Strategy.SpendingAccountID, discretionary, "Spending")
	}
	if split.DebtAllocation > 0 && target != nil && target.BankAccountID != nil {
		addRequirement(*target.BankAccountID, split.DebtAllocation, "Extra Debt Payment")
	}

	paycheckAccountName := "Income Account"
	if in.Strategy.PaycheckAccountID != nil {
		if acct := findAccount(in.Accounts, *in.Strategy.PaycheckAccountID); acct != nil {
			paycheckAccountName = acct.Name
		}
	}

	plan := &AllocationPlan{
		Period:                 in.Period,
		PaycheckAmount:         in.Strategy.PaycheckAmount,
		BillsDueThisPeriod:     billsDue,
		DiscretionaryThisCheck: discretionary,
		SurplusSplit:           split,
		AvalancheTarget:        target,
		EmergencyFundCurrent:   in.EmergencyFundCurrent,
		EmergencyFundTarget:    in.Strategy.EmergencyFundTarget,
		PayoffProgress:         ComputePayoffProgress(in.Strategy.Baseline, in.CurrentDebtTotal, now),
	}

	order := orderTransferBase
	for _, req := range requirements {
		toName := "Account"
		toBank := ""
		if acct := findAccount(in.Accounts, req.accountID); acct != nil {
			toName = acct.Name
			toBank = acct.Bank
		}
		purpose := strings.Join(req.purposes, " & ")
		accountID := req.accountID

		step := PlanStep{
			ID:              uuid.NewString(),
			Type:            StepTransfer,
			Order:           order,
			Label:           fmt.Sprintf("Transfer $%.2f from %s to %s for %s", req.amount, paycheckAccountName, toName, purpose),
			Amount:          req.amount,
			FromAccountID:   in.Strategy.PaycheckAccountID,
			FromAccountName: paycheckAccountName,
			ToAccountID:     &accountID,
			ToAccountName:   toName,
			Purpose:         purpose,
		}
		order++
		plan.Transfers = append(plan.Transfers, step)
		plan.Steps = append(plan.Steps, step)

		plan.AccountFundingSummaries = append(plan.AccountFundingSummaries, AccountFundingSummary{
			AccountID:      req.accountID,
			Name:           toName,
			Bank:           toBank,
			RequiredAmount: req.amount,
			Purposes:       req.purposes,
		})
	}

	payments := make([]PlanBillPayment, len(in.UnpaidPayments))
	copy(payments, in.UnpaidPayments)
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].DueDate.Before(payments[j].DueDate)
	})

	order = orderBillPaymentBase
	for _, p := range payments {
		p := p
		accountNote := ""
		if p.BankAccountID != nil {
			if acct := findAccount(in.Accounts, *p.BankAccountID); acct != nil {
				accountNote = fmt.Sprintf(" (from %s)", acct.Name)
			}
		}
		dueDate := p.DueDate
		step := PlanStep{
			ID:            fmt.Sprintf("bill-%d", p.ID),
			Type:          StepBillPayment,
			Order:         order,
			Label:         fmt.Sprintf("%s — %s — $%.2f%s", p.DueDate.Format("Jan 2"), p.BillName, p.Amount, accountNote),
			Amount:        p.Amount,
			BillPaymentID: &p.ID,
			DueDate:       &dueDate,
		}
		order++
		plan.BillPayments = append(plan.BillPayments, step)
		plan.Steps = append(plan.Steps, step)
	}

	if split.DebtAllocation > 0 && target != nil {
		debtID := target.DebtID
		step := PlanStep{
			ID:     "extra-debt",
			Type:   StepExtraDebtPayment,
			Order:  orderExtraDebt,
			Label:  fmt.Sprintf("Send $%.2f extra to %s (%.2f%% APR)", split.DebtAllocation, target.DebtName, target.InterestRate),
			Amount: split.DebtAllocation,
			DebtID: &debtID,
		}
		plan.ExtraDebtStep = &step
		plan.Steps = append(plan.Steps, step)
	}

	if split.SavingsAllocation > 0 {
		step := PlanStep{
			ID:            "savings-ef",
			Type:          StepSavingsTransfer,
			Order:         orderSavings,
			Label:         fmt.Sprintf("Move $%.2f to Emergency Fund", split.SavingsAllocation),
			Amount:        split.SavingsAllocation,
			SavingsGoalID: in.EmergencyGoalID,
		}
		plan.SavingsStep = &step
		plan.Steps = append(plan.Steps, step)
	}

	sort.SliceStable(plan.Steps, func(i, j int) bool {
		return plan.Steps[i].Order < plan.Steps[j].Order
	})

	return plan
}
