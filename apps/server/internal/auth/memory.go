package auth

import (
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// Manager is the in-memory account backend for single-binary deployments.
// It shares the session token format with the persistent backends, so the
// gateway contract is identical across modes.
type Manager struct {
	mu sync.Mutex

	issuer        *tokenIssuer
	nextAccountID uint64
	accountsByID  map[uint64]accountRecord
	accountsByKey map[string]uint64 // normalized username -> account
}

type accountRecord struct {
	AccountID     uint64
	Username      string
	PasswordHash  []byte
	LastLoginTime time.Time
}

func NewManager(jwtSecret string, sessionTTL time.Duration) *Manager {
	return &Manager{
		issuer:        newTokenIssuer(jwtSecret, sessionTTL),
		nextAccountID: 100000, // start from a readable non-trivial range
		accountsByID:  make(map[uint64]accountRecord),
		accountsByKey: make(map[string]uint64),
	}
}

func (m *Manager) Close() error { return nil }

// Register creates a new account and returns an authenticated session token.
func (m *Manager) Register(username, password string) (accountID uint64, sessionToken string, err error) {
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

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.accountsByKey[normalized]; exists {
		return 0, "", ErrUsernameTaken
	}

	m.nextAccountID++
	accountID = m.nextAccountID
	m.accountsByID[accountID] = accountRecord{
		AccountID:     accountID,
		Username:      normalized,
		PasswordHash:  passwordHash,
		LastLoginTime: time.Now(),
	}
	m.accountsByKey[normalized] = accountID

	sessionToken, err = m.issuer.Issue(accountID, normalized)
	if err != nil {
		return 0, "", err
	}
	return accountID, sessionToken, nil
}

// Login validates credentials and returns a fresh session token.
func (m *Manager) Login(username, password string) (accountID uint64, sessionToken string, err error) {
	normalized := normalizeUsername(username)
	if normalized == "" || password == "" {
		return 0, "", ErrInvalidCredentials
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	accountID, exists := m.accountsByKey[normalized]
	if !exists {
		return 0, "", ErrInvalidCredentials
	}
	profile := m.accountsByID[accountID]
	if bcrypt.CompareHashAndPassword(profile.PasswordHash, []byte(password)) != nil {
		return 0, "", ErrInvalidCredentials
	}

	profile.LastLoginTime = time.Now()
	m.accountsByID[accountID] = profile

	sessionToken, err = m.issuer.Issue(accountID, normalized)
	if err != nil {
		return 0, "", err
	}
	return accountID, sessionToken, nil
}

// ResolveSession validates a session token.
func (m *Manager) ResolveSession(token string) (accountID uint64, username string, ok bool) {
	return m.issuer.Verify(token)
}

// Logout revokes a session token.
func (m *Manager) Logout(token string) {
	m.issuer.Revoke(token)
}
