package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/hub"
	"github.com/DoyleJ11/deathmatch-backend/internal/lobby"
	"github.com/DoyleJ11/deathmatch-backend/internal/store"
	"github.com/DoyleJ11/deathmatch-backend/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

type Deps struct {
	Hub     *hub.Hub
	Lobby   *lobby.Manager
	Store   store.Store
	Weapons []engine.Weapon
	Logger  *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	logger := d.Logger.Named("http")
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(logger))

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.Lobby, d.Logger))
	r.Get("/lobby", GetLobby(d.Lobby, logger))
	r.Get("/weapons", ListWeapons(d.Weapons))
	r.Get("/matches", ListMatches(d.Store, logger))
	r.Get("/wallets/{playerID}", GetBalance(d.Store, logger))
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}

func contextWithTimeout(r *http.Request, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(r.Context(), d)
}
