package ws

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = time.Second
	subscriberSlot = 8
)

type HandlerConfig struct {
	Logger *log.Logger
}

// Broadcaster streams JSON status frames to every connected websocket
// client. Slow clients drop frames instead of stalling the publisher.
type Broadcaster struct {
	logger   *log.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	subs    map[*subscriber]struct{}
	last    []byte
	dropped uint64
	closed  bool
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.send) })
}

func NewBroadcaster(cfg HandlerConfig) *Broadcaster {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *nethttp.Request) bool {
			return true
		},
	}

	return &Broadcaster{
		logger:   logger,
		upgrader: upgrader,
		subs:     make(map[*subscriber]struct{}),
	}
}

// Publish marshals payload and queues it for every subscriber. The frame is
// also kept as the greeting for clients that connect later.
func (b *Broadcaster) Publish(payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.last = data
	for sub := range b.subs {
		select {
		case sub.send <- data:
		default:
			b.dropped++
		}
	}
	return nil
}

// Subscribers reports the number of connected clients.
func (b *Broadcaster) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Dropped reports frames skipped for slow clients.
func (b *Broadcaster) Dropped() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Handle upgrades the request and streams frames until the client leaves.
func (b *Broadcaster) Handle(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Printf("upgrade failed for %s: %v", r.RemoteAddr, err)
		return
	}

	sub := &subscriber{conn: conn, send: make(chan []byte, subscriberSlot)}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		message := websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down")
		conn.WriteMessage(websocket.CloseMessage, message)
		conn.Close()
		return
	}
	if b.last != nil {
		sub.send <- b.last
	}
	b.subs[sub] = struct{}{}
	b.mu.Unlock()

	go b.writeLoop(sub)

	// reads only detect the peer going away
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			b.remove(sub)
			return
		}
	}
}

func (b *Broadcaster) writeLoop(sub *subscriber) {
	defer sub.conn.Close()
	for data := range sub.send {
		sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, data); err != nil {
			b.remove(sub)
			return
		}
	}
	sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (b *Broadcaster) remove(sub *subscriber) {
	b.mu.Lock()
	delete(b.subs, sub)
	b.mu.Unlock()
	sub.stop()
}

// Close disconnects every subscriber and refuses new ones.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	b.closed = true
	subs := make([]*subscriber, 0, len(b.subs))
	for sub := range b.subs {
		subs = append(subs, sub)
	}
	b.subs = make(map[*subscriber]struct{})
	b.mu.Unlock()
	for _, sub := range subs {
		sub.stop()
	}
}
