package database

import (
	"database/sql"
	stdlog "log"

	"github.com/username/paydown/backend/src/logger"
	_ "modernc.org/sqlite"
)

var DB *sql.DB

// InitDB opens the sqlite database, ensures all tables exist and applies the
// in-place column migrations for schema changes that shipped after launch.
func InitDB(databasePath string) {
	db, err := sql.Open("sqlite", databasePath)
	if err != nil {
		stdlog.Fatalf("failed to open database at %s: %v", databasePath, err)
	}

	DB = db

	if logger.L != nil {
		logger.L.Info("Checking database migrations", "databasePath", databasePath)
	} else {
		stdlog.Println("Checking database migrations for:", databasePath)
	}
	migrateDebtsTable(db)
	migrateUsersTable(db)

	if err := CreateTables(db); err != nil {
		if logger.L != nil {
			logger.L.Error("failed to create tables", "error", err)
		}
		stdlog.Fatalf("failed to create tables: %v", err)
	}
	if logger.L != nil {
		logger.L.Info("Database tables ensured/created.")
	} else {
		stdlog.Println("Database tables ensured/created.")
	}
}

// CreateTables creates the full schema. Exported so service tests can run
// against an in-memory database without going through InitDB.
func CreateTables(db *sql.DB) error {
	createTableStatement := `
	CREATE TABLE IF NOT EXISTS users (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		username TEXT NOT NULL UNIQUE,
		password TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		paycheck_amount REAL DEFAULT 0,
		paycheck_frequency TEXT DEFAULT 'biweekly',
		paycheck_account_id INTEGER,
		spending_account_id INTEGER,
		discretionary_monthly REAL DEFAULT 750,
		emergency_fund_target REAL DEFAULT 1000,
		debt_surplus_percent REAL DEFAULT 0.8,
		savings_surplus_percent REAL DEFAULT 0.2,
		payoff_start_date TIMESTAMP,
		payoff_start_total_debt REAL,
		payoff_target_date TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS sessions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		token TEXT NOT NULL,
		refresh_token TEXT NOT NULL,
		user_agent TEXT,
		client_ip TEXT,
		is_blocked BOOLEAN DEFAULT FALSE,
		expires_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS bank_accounts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		bank TEXT NOT NULL DEFAULT 'OTHER',
		last_four TEXT,
		is_default BOOLEAN DEFAULT FALSE,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);

	CREATE TABLE IF NOT EXISTS debts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		type TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'CURRENT',
		current_balance REAL NOT NULL,
		original_balance REAL NOT NULL,
		interest_rate REAL NOT NULL DEFAULT 0,
		effective_rate REAL,
		total_repayable REAL,
		minimum_payment REAL NOT NULL DEFAULT 0,
		due_day INTEGER NOT NULL DEFAULT 1,
		payment_frequency TEXT,
		start_date TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		deferred_until TIMESTAMP,
		bank_account_id INTEGER,
		is_active BOOLEAN DEFAULT TRUE,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(bank_account_id) REFERENCES bank_accounts(id),
		UNIQUE(user_id, name)
	);

	CREATE TABLE IF NOT EXISTS scheduled_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		debt_id INTEGER NOT NULL,
		due_date TIMESTAMP NOT NULL,
		amount REAL NOT NULL,
		is_paid BOOLEAN DEFAULT FALSE,
		paid_at TIMESTAMP,
		paid_amount REAL,
		notes TEXT,
		FOREIGN KEY(debt_id) REFERENCES debts(id)
	);

	CREATE TABLE IF NOT EXISTS bills (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		category TEXT NOT NULL DEFAULT 'OTHER',
		amount REAL NOT NULL,
		due_day INTEGER NOT NULL,
		is_recurring BOOLEAN DEFAULT TRUE,
		frequency TEXT DEFAULT 'MONTHLY',
		debt_id INTEGER,
		bank_account_id INTEGER,
		is_active BOOLEAN DEFAULT TRUE,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(debt_id) REFERENCES debts(id),
		FOREIGN KEY(bank_account_id) REFERENCES bank_accounts(id)
	);

	CREATE TABLE IF NOT EXISTS bill_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		bill_id INTEGER NOT NULL,
		due_date TIMESTAMP NOT NULL,
		amount REAL NOT NULL,
		status TEXT NOT NULL DEFAULT 'UNPAID',
		paid_at TIMESTAMP,
		FOREIGN KEY(bill_id) REFERENCES bills(id)
	);

	CREATE TABLE IF NOT EXISTS debt_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		debt_id INTEGER NOT NULL,
		date TIMESTAMP NOT NULL,
		amount REAL NOT NULL,
		principal REAL NOT NULL,
		interest REAL NOT NULL,
		new_balance REAL NOT NULL,
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(debt_id) REFERENCES debts(id)
	);

	CREATE TABLE IF NOT EXISTS quick_payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		description TEXT NOT NULL,
		amount REAL NOT NULL,
		paid_at TIMESTAMP NOT NULL,
		debt_id INTEGER,
		category TEXT NOT NULL DEFAULT 'OTHER',
		notes TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id),
		FOREIGN KEY(debt_id) REFERENCES debts(id)
	);

	CREATE TABLE IF NOT EXISTS savings_goals (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		user_id INTEGER NOT NULL,
		name TEXT NOT NULL,
		target_amount REAL NOT NULL,
		current_amount REAL NOT NULL DEFAULT 0,
		milestone TEXT,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY(user_id) REFERENCES users(id)
	);
	`

	_, err := db.Exec(createTableStatement)
	return err
}

// migrateDebtsTable adds columns introduced after the debts table first
// shipped. PRAGMA-probing keeps this idempotent for databases of any age.
func migrateDebtsTable(db *sql.DB) {
	columnExists, ok := tableColumns(db, "debts")
	if !ok {
		return
	}

	addColumn := func(name, ddl string) {
		if _, exists := columnExists[name]; exists {
			return
		}
		if _, err := db.Exec("ALTER TABLE debts ADD COLUMN " + ddl); err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding column to 'debts' table", "column", name, "error", err)
			} else {
				stdlog.Printf("Error adding '%s' column to 'debts' table: %v", name, err)
			}
		} else if logger.L != nil {
			logger.L.Info("Added column to 'debts' table", "column", name)
		}
	}

	addColumn("effective_rate", "effective_rate REAL")
	addColumn("total_repayable", "total_repayable REAL")
	addColumn("payment_frequency", "payment_frequency TEXT")
	addColumn("deferred_until", "deferred_until TIMESTAMP")
	addColumn("bank_account_id", "bank_account_id INTEGER")
}

// migrateUsersTable adds the strategy and payoff-baseline columns to user
// rows created before allocation planning existed.
func migrateUsersTable(db *sql.DB) {
	columnExists, ok := tableColumns(db, "users")
	if !ok {
		return
	}

	addColumn := func(name, ddl string) {
		if _, exists := columnExists[name]; exists {
			return
		}
		if _, err := db.Exec("ALTER TABLE users ADD COLUMN " + ddl); err != nil {
			if logger.L != nil {
				logger.L.Error("Error adding column to 'users' table", "column", name, "error", err)
			} else {
				stdlog.Printf("Error adding '%s' column to 'users' table: %v", name, err)
			}
		} else if logger.L != nil {
			logger.L.Info("Added column to 'users' table", "column", name)
		}
	}

	addColumn("paycheck_amount", "paycheck_amount REAL DEFAULT 0")
	addColumn("paycheck_frequency", "paycheck_frequency TEXT DEFAULT 'biweekly'")
	addColumn("paycheck_account_id", "paycheck_account_id INTEGER")
	addColumn("spending_account_id", "spending_account_id INTEGER")
	addColumn("discretionary_monthly", "discretionary_monthly REAL DEFAULT 750")
	addColumn("emergency_fund_target", "emergency_fund_target REAL DEFAULT 1000")
	addColumn("debt_surplus_percent", "debt_surplus_percent REAL DEFAULT 0.8")
	addColumn("savings_surplus_percent", "savings_surplus_percent REAL DEFAULT 0.2")
	addColumn("payoff_start_date", "payoff_start_date TIMESTAMP")
	addColumn("payoff_start_total_debt", "payoff_start_total_debt REAL")
	addColumn("payoff_target_date", "payoff_target_date TIMESTAMP")
}

// tableColumns returns the existing column set for a table, or ok=false when
// the table does not exist yet (CreateTables will build it in full).
func tableColumns(db *sql.DB, table string) (map[string]bool, bool) {
	var tableName string
	err := db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&tableName)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, false
		}
		if logger.L != nil {
			logger.L.Error("Error checking for table", "table", table, "error", err)
		} else {
			stdlog.Printf("Error checking for '%s' table: %v", table, err)
		}
		return nil, false
	}

	rows, err := db.Query("PRAGMA table_info(" + table + ")")
	if err != nil {
		if logger.L != nil {
			logger.L.Error("Error querying table schema", "table", table, "error", err)
		} else {
			stdlog.Printf("Error querying table schema for '%s': %v", table, err)
		}
		return nil, false
	}
	defer rows.Close()

	columnExists := make(map[string]bool)
	for rows.Next() {
		var cid, pk int
		var name, dataType string
		var notnullVal int
		var dfltValue interface{}

		if err := rows.Scan(&cid, &name, &dataType, &notnullVal, &dfltValue, &pk); err != nil {
			if logger.L != nil {
				logger.L.Error("Error scanning column info", "table", table, "error", err)
			} else {
				stdlog.Printf("Error scanning column info for '%s': %v", table, err)
			}
			return nil, false
		}
		columnExists[name] = true
	}
	if err = rows.Err(); err != nil {
		if logger.L != nil {
			logger.L.Error("Error iterating over column info", "table", table, "error", err)
		} else {
			stdlog.Printf("Error iterating over column info for '%s': %v", table, err)
		}
		return nil, false
	}

	return columnExists, true
}
