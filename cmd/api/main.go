package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nmoralesv/horasbot/internal/config"
	"github.com/nmoralesv/horasbot/internal/handler"
	"github.com/nmoralesv/horasbot/internal/repository"
	botstore "github.com/nmoralesv/horasbot/internal/repository/bots"
	"github.com/nmoralesv/horasbot/internal/service/actions"
	"github.com/nmoralesv/horasbot/internal/service/messenger"
	"github.com/nmoralesv/horasbot/internal/service/nlu"
	"github.com/nmoralesv/horasbot/internal/service/session"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("no .env file, using system environment only")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	setupLogger(cfg.LogLevel)

	bots, cleanup, err := newBotStore(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize bot store")
	}
	defer cleanup()

	sessions := session.NewStore()
	sender := messenger.NewClient(cfg.PageAccessToken, cfg.GraphBaseURL)
	actionSet := actions.NewSet(sessions, sender)
	engine := nlu.NewClient(cfg.NLUAccessToken, cfg.NLUBaseURL, actionSet)

	router := handler.NewRouter(handler.Deps{
		VerifyToken: cfg.VerifyToken,
		AppSecret:   cfg.AppSecret,
		Sessions:    sessions,
		Engine:      engine,
		Sender:      sender,
		Bots:        bots,
	})

	startServer(ctx, cfg.Addr(), router)
}

// newBotStore selects Postgres when a database is configured, with schema
// migrations applied up front, and falls back to the in-memory store.
func newBotStore(ctx context.Context, cfg *config.Config) (botstore.Store, func(), error) {
	if cfg.DatabaseURL == "" {
		log.Info().Msg("DATABASE_URL not set, using in-memory bot store")
		return botstore.NewMemory(), func() {}, nil
	}

	if err := repository.RunMigrations(cfg.DatabaseURL); err != nil {
		return nil, nil, err
	}

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return botstore.NewPostgres(pool), pool.Close, nil
}

func setupLogger(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(lvl).
		With().
		Timestamp().
		Logger()
}

func startServer(ctx context.Context, addr string, router http.Handler) {
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Info().Str("addr", addr).Msg("webhook service listening")
	if err := runServer(ctx, srv); err != nil {
		log.Fatal().Err(err).Msg("server error")
	}
}

func runServer(ctx context.Context, srv *http.Server) error {
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		err := <-errCh
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
