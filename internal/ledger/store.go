package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"aitrader/internal/models"
)

// Store is the persistent side of the engine: append-only execution
// records plus the account configuration reads each tick starts from.
type Store struct {
	db *sql.DB
}

func Open(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_loc=Local")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			name TEXT NOT NULL,
			model TEXT NOT NULL DEFAULT '',
			base_url TEXT NOT NULL DEFAULT '',
			api_key TEXT NOT NULL DEFAULT '',
			okx_api_key TEXT NOT NULL DEFAULT '',
			okx_secret TEXT NOT NULL DEFAULT '',
			okx_passphrase TEXT NOT NULL DEFAULT '',
			okx_sandbox INTEGER NOT NULL DEFAULT 1,
			active INTEGER NOT NULL DEFAULT 1,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS execution_records (
			id TEXT PRIMARY KEY,
			account_id INTEGER NOT NULL,
			operation TEXT NOT NULL,
			symbol TEXT NOT NULL DEFAULT '',
			target_portion REAL NOT NULL DEFAULT 0,
			leverage INTEGER NOT NULL DEFAULT 1,
			executed INTEGER NOT NULL,
			order_id TEXT NOT NULL DEFAULT '',
			reason TEXT NOT NULL DEFAULT '',
			total_balance REAL NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL,
			FOREIGN KEY (account_id) REFERENCES accounts(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_execution_records_account
			ON execution_records(account_id, created_at);`,
	}
	for _, stmt := range schema {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Record appends one execution record. Records are immutable; there is
// no update path on purpose.
func (s *Store) Record(ctx context.Context, rec models.ExecutionRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO execution_records
			(id, account_id, operation, symbol, target_portion, leverage, executed, order_id, reason, total_balance, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.AccountID, string(rec.Operation), rec.Symbol, rec.TargetPortion, rec.Leverage,
		boolToInt(rec.Executed), rec.OrderID, rec.Reason, rec.TotalBalance, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert execution record: %w", err)
	}
	return nil
}

// RecordsByAccount returns the newest records first, for the audit and
// replay surface.
func (s *Store) RecordsByAccount(ctx context.Context, accountID int64, limit int) ([]models.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, account_id, operation, symbol, target_portion, leverage, executed, order_id, reason, total_balance, created_at
		 FROM execution_records WHERE account_id = ? ORDER BY created_at DESC LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query execution records: %w", err)
	}
	defer rows.Close()

	var records []models.ExecutionRecord
	for rows.Next() {
		var rec models.ExecutionRecord
		var op string
		var executed int
		if err := rows.Scan(&rec.ID, &rec.AccountID, &op, &rec.Symbol, &rec.TargetPortion, &rec.Leverage,
			&executed, &rec.OrderID, &rec.Reason, &rec.TotalBalance, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}
		rec.Operation = models.Operation(op)
		rec.Executed = executed != 0
		records = append(records, rec)
	}
	return records, rows.Err()
}

// ActiveAccounts returns the accounts a tick should process.
func (s *Store) ActiveAccounts(ctx context.Context) ([]models.Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, model, base_url, api_key, okx_api_key, okx_secret, okx_passphrase, okx_sandbox, active
		 FROM accounts WHERE active = 1 ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var acc models.Account
		var sandbox, active int
		if err := rows.Scan(&acc.ID, &acc.Name, &acc.Model, &acc.BaseURL, &acc.APIKey,
			&acc.OKXAPIKey, &acc.OKXSecret, &acc.Passphrase, &sandbox, &active); err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		acc.Sandbox = sandbox != 0
		acc.Active = active != 0
		accounts = append(accounts, acc)
	}
	return accounts, rows.Err()
}

// CreateAccount inserts a new account and returns it with its ID set.
func (s *Store) CreateAccount(ctx context.Context, acc models.Account) (models.Account, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO accounts (name, model, base_url, api_key, okx_api_key, okx_secret, okx_passphrase, okx_sandbox, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		acc.Name, acc.Model, acc.BaseURL, acc.APIKey, acc.OKXAPIKey, acc.OKXSecret, acc.Passphrase,
		boolToInt(acc.Sandbox), boolToInt(acc.Active),
	)
	if err != nil {
		return models.Account{}, fmt.Errorf("insert account: %w", err)
	}
	acc.ID, err = res.LastInsertId()
	if err != nil {
		return models.Account{}, fmt.Errorf("account id: %w", err)
	}
	return acc, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
