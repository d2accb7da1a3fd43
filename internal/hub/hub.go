package hub

import (
	"context"

	"github.com/DoyleJ11/deathmatch-backend/internal/types"
	"go.uber.org/zap"
)

type HubMsg interface{ isHubMsg() }

// Register attaches a connection's outbox. A second Register for the same
// client replaces and closes the previous outbox.
type Register struct {
	ClientID string
	Outbox   chan types.ServerMessage
}

type Unregister struct {
	ClientID string
}

type Deliver struct {
	To  []string
	Msg types.ServerMessage
}

type CountClients struct {
	Reply chan int
}

type ShutdownHub struct{}

func (Register) isHubMsg()     {}
func (Unregister) isHubMsg()   {}
func (Deliver) isHubMsg()      {}
func (CountClients) isHubMsg() {}
func (ShutdownHub) isHubMsg()  {}

// Hub routes server messages to connected clients.
type Hub struct {
	inbox   chan HubMsg
	clients map[string]chan types.ServerMessage
	logger  *zap.Logger
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewHub(parent context.Context, logger *zap.Logger) *Hub {
	ctx, cancel := context.WithCancel(parent)
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Hub{
		inbox:   make(chan HubMsg, 256),
		clients: make(map[string]chan types.ServerMessage),
		logger:  logger.Named("hub"),
		ctx:     ctx,
		cancel:  cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) Inbox() chan<- HubMsg { return h.inbox }

// Done is closed once the hub has stopped and closed every outbox.
func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }

// Stop asks the hub to shut down after delivering everything already queued.
func (h *Hub) Stop() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

// Send implements ports.Notifier.
func (h *Hub) Send(clientID string, msg types.ServerMessage) {
	h.deliver(Deliver{To: []string{clientID}, Msg: msg})
}

// Broadcast implements ports.Notifier.
func (h *Hub) Broadcast(clientIDs []string, msg types.ServerMessage) {
	if len(clientIDs) == 0 {
		return
	}
	to := make([]string, len(clientIDs))
	copy(to, clientIDs)
	h.deliver(Deliver{To: to, Msg: msg})
}

func (h *Hub) deliver(d Deliver) {
	select {
	case h.inbox <- d:
	case <-h.ctx.Done():
	}
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			h.shutdown()
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case Register:
				if old, ok := h.clients[msg.ClientID]; ok {
					close(old)
				}
				h.clients[msg.ClientID] = msg.Outbox

			case Unregister:
				if ch, ok := h.clients[msg.ClientID]; ok {
					close(ch)
					delete(h.clients, msg.ClientID)
				}

			case Deliver:
				for _, id := range msg.To {
					h.send(id, msg.Msg)
				}

			case CountClients:
				msg.Reply <- len(h.clients)

			case ShutdownHub:
				h.shutdown()
				return
			}
		}
	}
}

func (h *Hub) send(id string, msg types.ServerMessage) {
	ch, ok := h.clients[id]
	if !ok {
		return
	}
	select {
	case ch <- msg:
		//ok
	default:
		// Client is slow/full - drop them.
		h.logger.Warn("dropping slow client", zap.String("client", id), zap.String("type", msg.Type))
		close(ch)
		delete(h.clients, id)
	}
}

func (h *Hub) shutdown() {
	for id, ch := range h.clients {
		close(ch) // Tell client no more messages
		delete(h.clients, id)
	}
	h.cancel()
}
