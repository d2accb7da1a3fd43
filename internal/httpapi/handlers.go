package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/engine"
	"github.com/DoyleJ11/deathmatch-backend/internal/lobby"
	"github.com/DoyleJ11/deathmatch-backend/internal/store"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func GetLobby(lb *lobby.Manager, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := contextWithTimeout(r, 2*time.Second)
		defer cancel()

		view, err := lb.Snapshot(ctx)
		if err != nil {
			logger.Warn("failed to snapshot lobby", zap.Error(err))
			http.Error(w, "lobby unavailable", http.StatusServiceUnavailable)
			return
		}
		if !view.Exists {
			http.Error(w, "no lobby", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}

func ListWeapons(weapons []engine.Weapon) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, weapons)
	}
}

func ListMatches(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 20
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n <= 0 || n > 100 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = n
		}

		matches, err := st.Matches(r.Context(), limit)
		if err != nil {
			logger.Error("failed to list matches", zap.Error(err))
			http.Error(w, "failed to list matches", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, matches)
	}
}

func GetBalance(st store.Store, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := chi.URLParam(r, "playerID")
		balance, err := st.Balance(r.Context(), playerID)
		if err != nil {
			logger.Error("failed to get balance", zap.String("player", playerID), zap.Error(err))
			http.Error(w, "failed to get balance", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, struct {
			PlayerID string `json:"player_id"`
			Balance  int64  `json:"balance"`
		}{PlayerID: playerID, Balance: balance})
	}
}

func Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
