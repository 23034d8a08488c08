package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// PostgresManager persists accounts in a shared database for multi-instance
// deployments. The schema is managed externally; the server only checks
// that the accounts table exists.
type PostgresManager struct {
	db     *sql.DB
	issuer *tokenIssuer
}

func NewPostgresManager(dsn, jwtSecret string, sessionTTL time.Duration) (*PostgresManager, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}

	var schemaReady bool
	if err := db.QueryRowContext(ctx, `
SELECT EXISTS (
    SELECT 1
    FROM information_schema.tables
    WHERE table_schema = 'public'
      AND table_name = 'accounts'
)`).Scan(&schemaReady); err != nil {
		_ = db.Close()
		return nil, err
	}
	if !schemaReady {
		_ = db.Close()
		return nil, fmt.Errorf("auth schema not initialized: missing table accounts")
	}

	return &PostgresManager{
		db:     db,
		issuer: newTokenIssuer(jwtSecret, sessionTTL),
	}, nil
}

func (m *PostgresManager) Close() error {
	if m == nil || m.db == nil {
		return nil
	}
	return m.db.Close()
}

func (m *PostgresManager) Register(username, password string) (accountID uint64, sessionToken string, err error) {
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

	err = m.db.QueryRowContext(ctx, `
INSERT INTO accounts (username, password_hash, created_at, last_login_at)
VALUES ($1, $2, NOW(), NOW())
RETURNING id
`, normalized, string(passwordHash)).Scan(&accountID)
	if err != nil {
		if isPostgresUniqueViolation(err) {
			return 0, "", ErrUsernameTaken
		}
		return 0, "", err
	}

	sessionToken, err = m.issuer.Issue(accountID, normalized)
	if err != nil {
		return 0, "", err
	}
	return accountID, sessionToken, nil
}

func (m *PostgresManager) Login(username, password string) (accountID uint64, sessionToken string, err error) {
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
WHERE lower(username) = $1
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
UPDATE accounts SET last_login_at = NOW() WHERE id = $1
`, accountID); err != nil {
		return 0, "", err
	}

	sessionToken, err = m.issuer.Issue(accountID, normalized)
	if err != nil {
		return 0, "", err
	}
	return accountID, sessionToken, nil
}

func (m *PostgresManager) ResolveSession(token string) (accountID uint64, username string, ok bool) {
	return m.issuer.Verify(token)
}

func (m *PostgresManager) Logout(token string) {
	m.issuer.Revoke(token)
}

func isPostgresUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
