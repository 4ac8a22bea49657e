// Command bot runs the Telegram lead-intake agent: it drives each user
// through the name → phone → question flow, rejects duplicate phone
// numbers, and appends completed leads to the configured ledger backend
// (Google Sheets or a local SQLite file). An ops HTTP server exposes
// /health and /metrics alongside the poller.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/language"

	"github.com/cryverse/telegram-30leads-bot-new/internal/config"
	"github.com/cryverse/telegram-30leads-bot-new/internal/domain"
	"github.com/cryverse/telegram-30leads-bot-new/internal/httpapi"
	"github.com/cryverse/telegram-30leads-bot-new/internal/ledger/sheets"
	"github.com/cryverse/telegram-30leads-bot-new/internal/observability"
	"github.com/cryverse/telegram-30leads-bot-new/internal/repo"
	"github.com/cryverse/telegram-30leads-bot-new/internal/services"
	"github.com/cryverse/telegram-30leads-bot-new/internal/session"
	"github.com/cryverse/telegram-30leads-bot-new/internal/sysutil"
	"github.com/cryverse/telegram-30leads-bot-new/internal/telegram"
)

var version = "dev"

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("invalid configuration")
	}

	sysutil.SetLogLevel(cfg.LogLevel)
	if cfg.LogPretty {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	otelShutdown, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		log.Fatal().Err(err).Msg("otel setup failed")
	}

	ledger, err := openLedger(ctx, cfg.Ledger, cfg.OTEL.Enabled)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Ledger.Backend).Msg("ledger init failed")
	}
	log.Info().Str("backend", cfg.Ledger.Backend).Msg("lead ledger ready")

	bot, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		log.Fatal().Err(err).Msg("telegram authorization failed")
	}
	bot.Debug = cfg.Telegram.Debug
	log.Info().Str("bot", bot.Self.UserName).Msg("authorized")

	conv := &services.ConversationService{
		Sessions:    session.NewStore(cfg.SessionTTL),
		Ledger:      ledger,
		TimeOffset:  cfg.LeadTimeOffset,
		TitleLocale: language.English,
	}
	handler := telegram.NewHandler(
		bot,
		conv,
		telegram.NewFloodLimiter(cfg.RateRPS, cfg.RateBurst),
		cfg.Telegram.PollTimeout,
	)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      httpapi.NewRouter(cfg),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("ops server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("ops server failed")
		}
	}()

	log.Info().Msg("bot started")
	handler.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("ops server shutdown failed")
	}
	if err := otelShutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("otel shutdown failed")
	}
	log.Info().Msg("bot stopped")
}

// openLedger builds the configured ledger backend. Config validation has
// already ensured the backend-specific settings are present.
func openLedger(ctx context.Context, cfg config.LedgerConfig, traced bool) (domain.Ledger, error) {
	switch cfg.Backend {
	case config.LedgerBackendSQLite:
		db, err := repo.OpenSQLite(cfg.DBPath, traced)
		if err != nil {
			return nil, err
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, err
		}
		return &repo.LeadLedger{DB: db}, nil
	default:
		return sheets.New(ctx, []byte(cfg.GoogleCredentials), cfg.SheetName)
	}
}
