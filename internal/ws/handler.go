package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/DoyleJ11/deathmatch-backend/internal/hub"
	"github.com/DoyleJ11/deathmatch-backend/internal/lobby"
	"github.com/DoyleJ11/deathmatch-backend/internal/types"
	wire "github.com/DoyleJ11/deathmatch-backend/pkg/types"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	writeTimeout = 3 * time.Second
	outboxSize   = 32
)

func Handler(h *hub.Hub, lb *lobby.Manager, logger *zap.Logger) http.HandlerFunc {
	logger = logger.Named("ws")
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			// In dev ONLY, you can loosen origin checks:
			// OriginPatterns: []string{"http://localhost:*", "http://127.0.0.1:*"},
		})
		if err != nil {
			logger.Debug("websocket accept failed", zap.Error(err))
			return
		}
		defer conn.Close(websocket.StatusNormalClosure, "bye")

		clientID := uuid.NewString()
		name := r.URL.Query().Get("name")
		if name == "" {
			name = "player-" + clientID[:6]
		}
		log := logger.With(zap.String("client", clientID), zap.String("name", name))
		log.Info("client connected")

		out := make(chan types.ServerMessage, outboxSize)
		select {
		case h.Inbox() <- hub.Register{ClientID: clientID, Outbox: out}:
		case <-h.Done():
			conn.Close(websocket.StatusGoingAway, "server shutting down")
			return
		}
		h.Send(clientID, types.ServerMessage{Type: wire.Welcome, OK: true, PlayerID: clientID})
		defer func() {
			sendToLobby(lb, lobby.Disconnect{ClientID: clientID})
			select {
			case h.Inbox() <- hub.Unregister{ClientID: clientID}:
			case <-h.Done():
			}
			log.Info("client disconnected")
		}()

		// Writer goroutine
		writeCtx, writeCancel := context.WithCancel(r.Context())
		defer writeCancel()
		go func() {
			for msg := range out {
				payload, err := json.Marshal(msg)
				if err != nil {
					log.Error("failed to marshal server message", zap.String("type", msg.Type), zap.Error(err))
					continue
				}
				ctx, cancel := context.WithTimeout(writeCtx, writeTimeout)
				err = conn.Write(ctx, websocket.MessageText, payload)
				cancel()
				if err != nil {
					log.Debug("write failed", zap.Error(err))
					writeCancel()
					return
				}
			}
			// Hub closed the outbox: slow client or shutdown.
			conn.Close(websocket.StatusTryAgainLater, "dropped")
		}()

		// Reader loop
		for {
			_, data, err := conn.Read(r.Context())
			if err != nil {
				switch websocket.CloseStatus(err) {
				case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				default:
					log.Debug("read failed", zap.Error(err))
				}
				return
			}

			var cm types.ClientMessage
			if err := json.Unmarshal(data, &cm); err != nil {
				h.Send(clientID, types.ServerMessage{Type: wire.Error, Reason: "bad json"})
				continue
			}

			msg, ok := toLobbyMsg(clientID, name, cm)
			if !ok {
				h.Send(clientID, types.ServerMessage{Type: wire.Error, Reason: "unknown type"})
				continue
			}
			if !sendToLobby(lb, msg) {
				return
			}
		}
	}
}

// sendToLobby reports false once the lobby has stopped.
func sendToLobby(lb *lobby.Manager, msg lobby.Msg) bool {
	select {
	case <-lb.Done():
		return false
	default:
	}
	select {
	case lb.Inbox() <- msg:
		return true
	case <-lb.Done():
		return false
	}
}

func toLobbyMsg(clientID, name string, m types.ClientMessage) (lobby.Msg, bool) {
	switch m.Type {
	case wire.CreateLobby:
		return lobby.CreateLobby{ClientID: clientID, Name: name, Settings: m.Patch()}, true
	case wire.JoinLobby:
		return lobby.JoinLobby{ClientID: clientID, Name: name}, true
	case wire.SetTeam:
		return lobby.SetTeam{ClientID: clientID, Team: m.Team}, true
	case wire.UpdateSettings:
		return lobby.UpdateSettings{ClientID: clientID, Settings: m.Patch()}, true
	case wire.LeaveLobby:
		return lobby.LeaveLobby{ClientID: clientID}, true
	case wire.DisbandLobby:
		return lobby.DisbandLobby{ClientID: clientID}, true
	case wire.StartMatch:
		return lobby.StartMatch{ClientID: clientID}, true
	case wire.ReportDeath:
		return lobby.ReportDeath{ClientID: clientID, KillerID: m.KillerID}, true
	default:
		return nil, false
	}
}
