package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/muurk/wifiguard/internal/api"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer; subscribers only listen
	maxMessageSize = 512

	// Buffered events per subscriber before the connection is dropped
	subscriberBuffer = 8
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The API serves the local device network; subscribers come from the
	// hosted subnet or the LAN, not from browsers with meaningful origins.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// eventHub fans controller status changes out to websocket subscribers.
// done is closed when run returns, so connection goroutines never block on
// a hub that has already shut down.
type eventHub struct {
	logger      *zap.Logger
	register    chan *subscriber
	unregister  chan *subscriber
	events      chan api.StatusResponse
	done        chan struct{}
	subscribers map[*subscriber]struct{}
}

type subscriber struct {
	conn *websocket.Conn
	send chan api.StatusResponse
}

func newEventHub(logger *zap.Logger) *eventHub {
	return &eventHub{
		logger:      logger,
		register:    make(chan *subscriber),
		unregister:  make(chan *subscriber),
		events:      make(chan api.StatusResponse, subscriberBuffer),
		done:        make(chan struct{}),
		subscribers: make(map[*subscriber]struct{}),
	}
}

func (h *eventHub) run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			for sub := range h.subscribers {
				close(sub.send)
			}
			return
		case sub := <-h.register:
			h.subscribers[sub] = struct{}{}
			h.logger.Debug("event subscriber connected",
				zap.String("remote_addr", sub.conn.RemoteAddr().String()),
				zap.Int("subscribers", len(h.subscribers)),
			)
		case sub := <-h.unregister:
			if _, ok := h.subscribers[sub]; ok {
				delete(h.subscribers, sub)
				close(sub.send)
			}
		case event := <-h.events:
			for sub := range h.subscribers {
				select {
				case sub.send <- event:
				default:
					// Slow subscriber; drop it rather than block the hub.
					delete(h.subscribers, sub)
					close(sub.send)
				}
			}
		}
	}
}

func (h *eventHub) broadcast(event api.StatusResponse) {
	select {
	case h.events <- event:
	default:
		h.logger.Warn("event hub backlogged, dropping status event")
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan api.StatusResponse, subscriberBuffer),
	}

	// New subscribers get the current status immediately so they do not
	// have to wait for the next transition. Seeded before registration:
	// only the hub may close send once it owns the subscriber.
	sub.send <- s.statusResponse(s.ctrl.Status())

	select {
	case s.hub.register <- sub:
	case <-s.hub.done:
		_ = conn.Close()
		return
	}

	go sub.writePump()
	go sub.readPump(s.hub)
}

// writePump delivers events and pings to one subscriber.
func (sub *subscriber) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = sub.conn.Close()
	}()

	for {
		select {
		case event, ok := <-sub.send:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = sub.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := sub.conn.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := sub.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound messages and detects disconnects.
func (sub *subscriber) readPump(hub *eventHub) {
	defer func() {
		select {
		case hub.unregister <- sub:
		case <-hub.done:
		}
		_ = sub.conn.Close()
	}()

	sub.conn.SetReadLimit(maxMessageSize)
	_ = sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	sub.conn.SetPongHandler(func(string) error {
		return sub.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			return
		}
	}
}
