package auth

import (
	"fmt"
	"strings"
	"time"
)

const (
	ModeMemory   = "memory"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"
)

// Options selects an auth backend and its settings.
type Options struct {
	Mode       string
	DBPath     string // sqlite mode
	DSN        string // postgres mode
	JWTSecret  string
	SessionTTL time.Duration
}

// NewService builds an auth backend for the configured mode.
func NewService(opts Options) (Service, string, error) {
	if strings.TrimSpace(opts.JWTSecret) == "" {
		return nil, "", fmt.Errorf("empty jwt secret")
	}
	switch strings.ToLower(strings.TrimSpace(opts.Mode)) {
	case "", ModeMemory, "mem":
		return NewManager(opts.JWTSecret, opts.SessionTTL), ModeMemory, nil
	case ModeSQLite, "local":
		m, err := NewSQLiteManager(opts.DBPath, opts.JWTSecret, opts.SessionTTL)
		if err != nil {
			return nil, "", err
		}
		return m, ModeSQLite, nil
	case ModePostgres, "postgresql", "db":
		m, err := NewPostgresManager(opts.DSN, opts.JWTSecret, opts.SessionTTL)
		if err != nil {
			return nil, "", err
		}
		return m, ModePostgres, nil
	default:
		return nil, "", fmt.Errorf("invalid auth mode %q (supported: %s, %s, %s)",
			opts.Mode, ModeMemory, ModeSQLite, ModePostgres)
	}
}
