package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"golang.org/x/crypto/bcrypt"
)

// SQLiteManager persists accounts in a local database file. Session tokens
// stay stateless; only the account rows live in the database.
type SQLiteManager struct {
	db     *sql.DB
	issuer *tokenIssuer
}

func NewSQLiteManager(dbPath, jwtSecret string, sessionTTL time.Duration) (*SQLiteManager, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := db.ExecContext(ctx, `PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx, `
CREATE TABLE IF NOT EXISTS accounts (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at_ms INTEGER NOT NULL,
    last_login_at_ms INTEGER
)`); err != nil {
		_ = db.Close()
		return nil, err
	}
	if _, err := db.ExecContext(ctx,
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_accounts_username_ci ON accounts(lower(username))`,
	); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteManager{
		db:     db,
		issuer: newTokenIssuer(jwtSecret, sessionTTL),
	}, nil
}

func (m *SQLiteManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *SQLiteManager) Register(username, password string) (accountID uint64, sessionToken string, err error) {
	if err = validateUsername(username); err != nil {
		return 0, "", err
	}
	if err = validatePassword(password); err != nil {
		return 0, "", err
	}

	normalized := normalizeUsername(username)
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return 0, "", err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	nowMs := time.Now().UTC().UnixMilli()
	res, err := m.db.ExecContext(ctx, `
INSERT INTO accounts (username, password_hash, created_at_ms, last_login_at_ms)
VALUES (?, ?, ?, ?)
`, normalized, string(passwordHash), nowMs, nowMs)
	if err != nil {
		if isSQLiteUniqueViolation(err) {
			return 0, "", ErrUsernameTaken
		}
		return 0, "", err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, "", err
	}
	accountID = uint64(id)

	sessionToken, err = m.issuer.Issue(accountID, normalized)
	if err != nil {
		return 0, "", err
	}
	return accountID, sessionToken, nil
}

func (m *SQLiteManager) Login(username, password string) (accountID uint64, sessionToken string, err error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return 0, "", ErrInvalidCredentials
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var passwordHash string
	err = m.db.QueryRowContext(ctx, `
SELECT id, password_hash
FROM accounts
WHERE lower(username) = ?
`, normalized).Scan(&accountID, &passwordHash)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, "", ErrInvalidCredentials
		}
		return 0, "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(passwordHash), []byte(password)) != nil {
		return 0, "", ErrInvalidCredentials
	}

	if _, err := m.db.ExecContext(ctx, `
UPDATE accounts SET last_login_at_ms = ? WHERE id = ?
`, time.Now().UTC().UnixMilli(), accountID); err != nil {
		return 0, "", err
	}

	sessionToken, err = m.issuer.Issue(accountID, normalized)
	if err != nil {
		return 0, "", err
	}
	return accountID, sessionToken, nil
}

func (m *SQLiteManager) ResolveSession(token string) (accountID uint64, username string, ok bool) {
	return m.issuer.Verify(token)
}

func (m *SQLiteManager) Logout(token string) {
	m.issuer.Revoke(token)
}

func isSQLiteUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(strings.ToLower(err.Error()), "unique constraint failed")
}
