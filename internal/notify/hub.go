package notify

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"aitrader/internal/logger"
)

const writeTimeout = 5 * time.Second

type event struct {
	Type      string `json:"type"`
	AccountID int64  `json:"account_id"`
	Timestamp int64  `json:"timestamp"`
}

// observer is one connected websocket peer. The mutex serializes
// writes: account pipelines notify from concurrent workers, and the
// connection allows only one writer at a time.
type observer struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (o *observer) send(msg event) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return o.conn.WriteJSON(msg)
}

// Hub fans account-update events out to websocket observers. It is
// strictly fire-and-forget: a dead or slow observer is dropped, and no
// failure here ever reaches the trading path.
type Hub struct {
	mu        sync.Mutex
	observers map[*observer]bool
	upgrader  websocket.Upgrader
	log       *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		observers: make(map[*observer]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

// ServeHTTP upgrades an observer connection and holds it until the
// peer goes away.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.WithComponent("notify").WithError(err).Warn("websocket upgrade failed")
		return
	}

	obs := &observer{conn: conn}
	h.mu.Lock()
	h.observers[obs] = true
	h.mu.Unlock()

	// Drain reads so control frames are processed; observers never send
	// anything meaningful.
	go func() {
		defer h.drop(obs)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// Notify broadcasts an account update to every connected observer.
// Safe for concurrent use.
func (h *Hub) Notify(accountID int64) {
	msg := event{
		Type:      "account_update",
		AccountID: accountID,
		Timestamp: time.Now().UnixMilli(),
	}

	h.mu.Lock()
	observers := make([]*observer, 0, len(h.observers))
	for obs := range h.observers {
		observers = append(observers, obs)
	}
	h.mu.Unlock()

	for _, obs := range observers {
		if err := obs.send(msg); err != nil {
			h.log.WithComponent("notify").WithError(err).Debug("observer dropped")
			h.drop(obs)
		}
	}
}

func (h *Hub) drop(obs *observer) {
	h.mu.Lock()
	delete(h.observers, obs)
	h.mu.Unlock()
	_ = obs.conn.Close()
}
