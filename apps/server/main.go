// ludi-server hosts four-player board game matches over websockets.
//
// Usage:
//
//	ludi-server serve [--addr :8080] [--config configs/server.yaml]
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ludi-lite/apps/server/internal/auth"
	"ludi-lite/apps/server/internal/config"
	"ludi-lite/apps/server/internal/gateway"
	"ludi-lite/apps/server/internal/lobby"
	"ludi-lite/apps/server/internal/match"
	"ludi-lite/apps/server/internal/save"
)

var (
	flagAddr       string
	flagConfigPath string
)

var rootCmd = &cobra.Command{
	Use:   "ludi-server",
	Short: "Board game match server",
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the websocket match server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "Listen address (overrides config)")
	serveCmd.Flags().StringVar(&flagConfigPath, "config", "", "Path to server config YAML")
	rootCmd.AddCommand(serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runServe(_ *cobra.Command, _ []string) error {
	// .env is optional; real env vars still win inside config.Load.
	_ = godotenv.Load()

	cfg, err := config.Load(flagConfigPath)
	if err != nil {
		return err
	}
	if flagAddr != "" {
		cfg.Addr = flagAddr
	}

	logger := newLogger(cfg.LogLevel)

	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		if cfg.Auth.Mode == "" || cfg.Auth.Mode == auth.ModeMemory {
			// Memory mode is for local play; an ephemeral secret means
			// sessions die with the process, which is fine there.
			cfg.Auth.JWTSecret = fmt.Sprintf("ephemeral-%d", time.Now().UnixNano())
			logger.Warn().Msg("no jwt secret configured, sessions will not survive restarts")
		} else {
			return fmt.Errorf("auth mode %q requires a jwt secret", cfg.Auth.Mode)
		}
	}

	authService, authMode, err := auth.NewService(auth.Options{
		Mode:       cfg.Auth.Mode,
		DBPath:     cfg.Auth.DBPath,
		DSN:        cfg.Auth.DSN,
		JWTSecret:  cfg.Auth.JWTSecret,
		SessionTTL: cfg.Auth.SessionTTL.Std(),
	})
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}
	defer authService.Close()

	store, saveMode, err := save.NewStore(cfg.Save.Mode, cfg.Save.DBPath)
	if err != nil {
		return fmt.Errorf("init save store: %w", err)
	}
	defer store.Close()

	matchCfg := match.DefaultConfig()
	matchCfg.Rules.Seed = cfg.Game.Seed
	matchCfg.BotPlayInterval = cfg.Game.BotPlayInterval.Std()
	matchCfg.MaxBotPlayInterval = cfg.Game.MaxBotPlayInterval.Std()
	matchCfg.OfflineSeatTTL = cfg.Game.OfflineSeatTTL.Std()

	var gw *gateway.Gateway
	broadcast := func(accountID uint64, data []byte) {
		if gw != nil {
			gw.BroadcastToAccount(accountID, data)
		}
	}
	lby := lobby.New(matchCfg, cfg.Game.MatchIdleTTL.Std(), store, broadcast, logger)
	defer lby.Stop()
	gw = gateway.New(authService, lby, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := lby.RestoreSaved(ctx); err != nil {
		logger.Warn().Err(err).Msg("restoring saved matches failed")
	}
	cancel()

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.HandleWebSocket)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	auth.NewHTTPHandler(authService).RegisterRoutes(mux)

	logger.Info().
		Str("addr", cfg.Addr).
		Str("auth_mode", authMode).
		Str("save_mode", saveMode).
		Msg("server starting")
	return http.ListenAndServe(cfg.Addr, mux)
}

func newLogger(level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger()
}
