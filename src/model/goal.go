package model

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrGoalNotFound = errors.New("savings goal not found")

// MilestoneEmergencyFund tags the goal that receives the savings slice of
// every allocation plan.
const MilestoneEmergencyFund = "EMERGENCY_FUND"

type SavingsGoal struct {
	ID            int       `json:"id"`
	UserID        int       `json:"userId"`
	Name          string    `json:"name"`
	TargetAmount  float64   `json:"targetAmount"`
	CurrentAmount float64   `json:"currentAmount"`
	Milestone     string    `json:"milestone,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

const goalColumns = `id, user_id, name, target_amount, current_amount, milestone, created_at`

func scanGoal(scan func(dest ...any) error) (*SavingsGoal, error) {
	var g SavingsGoal
	var milestone sql.NullString
	err := scan(&g.ID, &g.UserID, &g.Name, &g.TargetAmount, &g.CurrentAmount, &milestone, &g.CreatedAt)
	if err != nil {
		return nil, err
	}
	g.Milestone = milestone.String
	return &g, nil
}

// CreateSavingsGoal inserts a new goal.
func (g *SavingsGoal) CreateSavingsGoal(db DBTX) error {
	res, err := db.Exec(`
	INSERT INTO savings_goals (user_id, name, target_amount, current_amount, milestone)
	VALUES (?, ?, ?, ?, ?)`, g.UserID, g.Name, g.TargetAmount, g.CurrentAmount, g.Milestone)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = int(id)
	return nil
}

// UpdateSavingsGoal saves all mutable fields.
func (g *SavingsGoal) UpdateSavingsGoal(db DBTX) error {
	_, err := db.Exec(`
	UPDATE savings_goals SET name = ?, target_amount = ?, current_amount = ?, milestone = ?
	WHERE id = ? AND user_id = ?`, g.Name, g.TargetAmount, g.CurrentAmount, g.Milestone, g.ID, g.UserID)
	return err
}

// GetSavingsGoalByID fetches one goal scoped to a user.
func GetSavingsGoalByID(db DBTX, id, userID int) (*SavingsGoal, error) {
	row := db.QueryRow(`SELECT `+goalColumns+` FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	g, err := scanGoal(row.Scan)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrGoalNotFound
		}
		return nil, err
	}
	return g, nil
}

// ListSavingsGoals returns a user's goals in creation order.
func ListSavingsGoals(db DBTX, userID int) ([]SavingsGoal, error) {
	rows, err := db.Query(`SELECT `+goalColumns+` FROM savings_goals WHERE user_id = ? ORDER BY id ASC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	goals := []SavingsGoal{}
	for rows.Next() {
		g, err := scanGoal(rows.Scan)
		if err != nil {
			return nil, err
		}
		goals = append(goals, *g)
	}
	return goals, rows.Err()
}

// DeleteSavingsGoal removes a goal.
func DeleteSavingsGoal(db DBTX, id, userID int) error {
	res, err := db.Exec(`DELETE FROM savings_goals WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrGoalNotFound
	}
	return nil
}

// FindEmergencyFundGoal locates the user's emergency fund goal, matched by
// the EMERGENCY_FUND milestone tag or by name. Returns nil when absent.
func FindEmergencyFundGoal(db DBTX, userID int) (*SavingsGoal, error) {
	goals, err := ListSavingsGoals(db, userID)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		if goals[i].Milestone == MilestoneEmergencyFund {
			return &goals[i], nil
		}
	}
	for i := range goals {
		if strings.Contains(strings.ToLower(goals[i].Name), "emergency") {
			return &goals[i], nil
		}
	}
	return nil, nil
}
