package services

import (
	"database/sql"
	"os"
	"testing"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/username/paydown/backend/src/database"
	"github.com/username/paydown/backend/src/logger"
	"github.com/username/paydown/backend/src/model"
	_ "modernc.org/sqlite"
)

func TestMain(m *testing.M) {
	logger.InitLogger("error")
	os.Exit(m.Run())
}

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("opening in-memory database: %v", err)
	}
	// A single connection keeps every query on the same in-memory database.
	db.SetMaxOpenConns(1)
	if err := database.CreateTables(db); err != nil {
		t.Fatalf("creating tables: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestServices(t *testing.T) (*sql.DB, DebtService, PlanService) {
	t.Helper()
	db := newTestDB(t)
	planCache := cache.New(time.Minute, time.Minute)
	debtService := NewDebtService(db, planCache)
	planService := NewPlanService(db, debtService, planCache)
	return db, debtService, planService
}

func seedUser(t *testing.T, db *sql.DB) *model.User {
	t.Helper()
	user := &model.User{
		Username:              "tester",
		Email:                 "tester@example.com",
		Password:              "irrelevant",
		PaycheckFrequency:     "biweekly",
		DiscretionaryMonthly:  650,
		EmergencyFundTarget:   1000,
		DebtSurplusPercent:    0.8,
		SavingsSurplusPercent: 0.2,
	}
	if err := user.CreateUser(db); err != nil {
		t.Fatalf("seeding user: %v", err)
	}
	return user
}

func seedAccount(t *testing.T, db *sql.DB, userID int, name string) *model.BankAccount {
	t.Helper()
	account := &model.BankAccount{UserID: userID, Name: name, Bank: "TESTBANK"}
	if err := account.CreateBankAccount(db); err != nil {
		t.Fatalf("seeding account %q: %v", name, err)
	}
	return account
}

func datePtr(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
