package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	botsHandler "github.com/nmoralesv/horasbot/internal/handler/bots"
	"github.com/nmoralesv/horasbot/internal/handler/webhook"
	middlewarePkg "github.com/nmoralesv/horasbot/internal/middleware"
	botstore "github.com/nmoralesv/horasbot/internal/repository/bots"
	"github.com/nmoralesv/horasbot/internal/service/session"
)

// Deps carries everything the router wires together.
type Deps struct {
	VerifyToken string
	AppSecret   string
	Sessions    *session.Store
	Engine      webhook.Engine
	Sender      webhook.Sender
	Bots        botstore.Store
}

// NewRouter wires HTTP routes to core services.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middlewarePkg.RequestLogger)
	r.Use(middleware.Recoverer)

	webhookHandler := webhook.New(d.VerifyToken, d.Sessions, d.Engine, d.Sender)
	botHandler := botsHandler.New(d.Bots)

	r.Route("/webhook", func(hook chi.Router) {
		webhookHandler.RegisterRoutes(hook, d.AppSecret)
	})

	r.Route("/api/bots", func(api chi.Router) {
		botHandler.RegisterRoutes(api)
	})

	return r
}
