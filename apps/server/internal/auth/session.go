package auth

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const defaultSessionTTL = 30 * 24 * time.Hour

var (
	ErrInvalidUsername    = errors.New("invalid username")
	ErrInvalidPassword    = errors.New("invalid password")
	ErrUsernameTaken      = errors.New("username already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_][a-zA-Z0-9_.-]{2,31}$`)

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if !usernamePattern.MatchString(strings.TrimSpace(username)) {
		return ErrInvalidUsername
	}
	return nil
}

func validatePassword(password string) error {
	// bcrypt truncates beyond 72 bytes.
	if len(password) < 6 || len(password) > 72 {
		return ErrInvalidPassword
	}
	return nil
}

type sessionClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// tokenIssuer mints and verifies signed session tokens. Tokens are
// self-contained; revocation lives in a per-process list, so a logout only
// binds the server instance that handled it.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration

	mu      sync.Mutex
	revoked map[string]time.Time // token -> original expiry
}

func newTokenIssuer(secret string, ttl time.Duration) *tokenIssuer {
	if ttl <= 0 {
		ttl = defaultSessionTTL
	}
	return &tokenIssuer{
		secret:  []byte(secret),
		ttl:     ttl,
		revoked: make(map[string]time.Time),
	}
}

func (ti *tokenIssuer) Issue(accountID uint64, username string) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(accountID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ti.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(ti.secret)
}

func (ti *tokenIssuer) Verify(token string) (accountID uint64, username string, ok bool) {
	token = strings.TrimSpace(token)
	if token == "" || ti.isRevoked(token) {
		return 0, "", false
	}

	claims := &sessionClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return ti.secret, nil
	})
	if err != nil || !parsed.Valid {
		return 0, "", false
	}
	accountID, err = strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || accountID == 0 {
		return 0, "", false
	}
	return accountID, claims.Username, true
}

func (ti *tokenIssuer) Revoke(token string) {
	token = strings.TrimSpace(token)
	if token == "" {
		return
	}
	ti.mu.Lock()
	defer ti.mu.Unlock()
	ti.revoked[token] = time.Now().Add(ti.ttl)
	// Drop revocations whose tokens have expired on their own.
	now := time.Now()
	for t, exp := range ti.revoked {
		if now.After(exp) {
			delete(ti.revoked, t)
		}
	}
}

func (ti *tokenIssuer) isRevoked(token string) bool {
	ti.mu.Lock()
	defer ti.mu.Unlock()
	_, ok := ti.revoked[token]
	return ok
}
