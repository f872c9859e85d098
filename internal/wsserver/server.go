// Package wsserver implements the WebSocket server core described in
// spec.md §4.15: client registration, userscript presence tracking that
// fires WS_CONNECTED/WS_DISCONNECTED exactly once on each 0↔1 transition,
// heartbeat dropping, and outbound broadcast. Generalized from the
// register/unregister/client-table pattern in the teacher's server/hub.go
// and server/handlers.go (single client struct with a conn and a buffered
// send channel, RWMutex-guarded client table, write pump draining the send
// channel, read pump detecting abrupt close).
package wsserver

import (
	"log"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"tacsuitcase/internal/event"
	"tacsuitcase/internal/wsprotocol"
)

// MaxInboundFrame bounds a single inbound text frame (spec.md §6.1).
const MaxInboundFrame = 2048

// SendQueueDepth is the per-client outbound buffer depth. A full buffer
// means the client is too slow; the send is dropped rather than blocking
// the broadcaster (spec.md §5 "WS write: per-socket non-blocking").
const SendQueueDepth = 8

// Poster is the subset of event.Dispatcher the server needs, so tests can
// substitute a recording fake instead of a real dispatcher.
type Poster interface {
	Post(event.Event)
}

// client is one accepted connection. handshakeComplete and clientType are
// only ever mutated from the connection's own read pump goroutine, so no
// lock is needed for them; the server's client table lock guards the map
// itself and the presence counters.
type client struct {
	conn            *websocket.Conn
	send            chan []byte
	clientType      wsprotocol.ClientType
	handshakeComplete bool
}

// Server tracks every connected WS client entry and derives userscript
// presence transitions from the table (spec.md §4.15).
type Server struct {
	upgrader websocket.Upgrader

	mu               sync.Mutex
	clients          map[*client]struct{}
	userscriptCount  int

	dispatcher Poster
}

// New builds a Server posting internal events to dispatcher. CheckOrigin
// always allows, matching the teacher's LAN-appliance trust model.
func New(dispatcher Poster) *Server {
	return &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		clients:    make(map[*client]struct{}),
		dispatcher: dispatcher,
	}
}

// ClientCount returns the number of currently connected clients (any type).
func (s *Server) ClientCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// UserscriptCount returns the number of handshaken userscript clients.
func (s *Server) UserscriptCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userscriptCount
}

// ServeHTTP upgrades the request to a WebSocket and runs the connection's
// read/write pumps until it closes. It implements http.Handler directly so
// it can be registered on a mux at /ws (spec.md §6.1).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("wsserver: upgrade error:", err)
		return
	}
	conn.SetReadLimit(MaxInboundFrame)

	c := &client{conn: conn, send: make(chan []byte, SendQueueDepth), clientType: wsprotocol.ClientUnknown}
	s.registerClient(c)

	go s.writePump(c)
	s.readPump(c)
}

func (s *Server) registerClient(c *client) {
	s.mu.Lock()
	s.clients[c] = struct{}{}
	n := len(s.clients)
	s.mu.Unlock()
	log.Println("wsserver: client connected, total:", n)
}

// unregisterClient removes c from the table and, if it was a handshaken
// userscript client, fires the 1→0 WS_DISCONNECTED transition. It is safe
// to call more than once for the same client; only the first call has any
// effect (spec.md P5: "abrupt socket close decrements the count").
func (s *Server) unregisterClient(c *client) {
	s.mu.Lock()
	if _, ok := s.clients[c]; !ok {
		s.mu.Unlock()
		return
	}
	delete(s.clients, c)
	close(c.send)
	wasUserscript := c.handshakeComplete && c.clientType == wsprotocol.ClientUserscript
	fireDisconnect := false
	if wasUserscript {
		s.userscriptCount--
		fireDisconnect = s.userscriptCount == 0
	}
	n := len(s.clients)
	s.mu.Unlock()

	log.Println("wsserver: client disconnected, total:", n)
	if fireDisconnect {
		s.dispatcher.Post(event.NewSimple(event.WSDisconnected, event.SourceWebsocket))
	}
}

// writePump drains c.send and writes each message as a text frame,
// unregistering the client on any write error (spec.md §5 "errors close
// the client").
func (s *Server) writePump(c *client) {
	defer func() {
		s.unregisterClient(c)
		_ = c.conn.Close()
	}()
	for msg := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			log.Println("wsserver: write error:", err)
			return
		}
	}
}

// readPump handles incoming frames until the socket closes, including an
// abrupt close with no CLOSE frame (the ReadMessage error path below covers
// both cases identically, satisfying spec.md §4.15's "closure callback must
// fire even without a CLOSE frame").
func (s *Server) readPump(c *client) {
	defer s.unregisterClient(c)
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if len(data) > MaxInboundFrame {
			log.Println("wsserver: oversize frame discarded")
			continue
		}
		s.handleInbound(c, data)
	}
}

func (s *Server) handleInbound(c *client, data []byte) {
	msg := wsprotocol.Parse(data)

	switch msg.Kind {
	case wsprotocol.MsgHandshake:
		s.handleHandshake(c, msg.ClientType)
	case wsprotocol.MsgEvent:
		if msg.Event.Kind == event.INFO {
			// Heartbeats are accepted and silently dropped, never posted
			// (spec.md §4.15 "Heartbeats").
			return
		}
		s.dispatcher.Post(event.FromGameEvent(msg.Event, event.SourceWebsocket))
	case wsprotocol.MsgCmd:
		// Outbound-only commands (set-troops-percent, ping) have no inbound
		// counterpart the server needs to act on; unrecognized cmd frames
		// from a client are ignored.
	default:
		// Parse() folds anything unrecognized into an INFO GameEvent, so
		// such frames fail the check below and are dropped like
		// heartbeats; only a non-INFO event reaching here is posted.
		if msg.Event.Kind != event.INFO {
			s.dispatcher.Post(event.FromGameEvent(msg.Event, event.SourceWebsocket))
		}
	}
}

func (s *Server) handleHandshake(c *client, ct wsprotocol.ClientType) {
	c.clientType = ct
	c.handshakeComplete = true

	if ct != wsprotocol.ClientUserscript {
		return
	}

	s.mu.Lock()
	s.userscriptCount++
	fireConnect := s.userscriptCount == 1
	s.mu.Unlock()

	if fireConnect {
		s.dispatcher.Post(event.NewSimple(event.WSConnected, event.SourceWebsocket))
	}
}

// Broadcast sends raw to every connected client, matching send_text(bytes)
// in spec.md §4.15. Slow clients whose buffer is full get the message
// dropped rather than blocking the broadcaster.
func (s *Server) Broadcast(raw []byte) {
	s.mu.Lock()
	snapshot := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		snapshot = append(snapshot, c)
	}
	s.mu.Unlock()

	for _, c := range snapshot {
		select {
		case c.send <- raw:
		default:
		}
	}
}

// BroadcastEvent serializes ge and broadcasts it to every client.
func (s *Server) BroadcastEvent(ge event.GameEvent) {
	raw, err := wsprotocol.BuildEvent(ge)
	if err != nil {
		log.Println("wsserver: build event error:", err)
		return
	}
	s.Broadcast(raw)
}
