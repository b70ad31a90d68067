package relay

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/1ureka/duocall/internal/config"
	"github.com/1ureka/duocall/internal/util"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = pongWait * 9 / 10
	maxMessageSize = 256 * 1024 // SDP with many candidates stays well below this
)

// Server upgrades participants onto WebSocket connections and pumps their
// frames through the Hub.
type Server struct {
	hub      *Hub
	metrics  *Metrics
	origins  []string
	upgrader websocket.Upgrader
}

// NewServer returns the relay's HTTP handler:
//
//	GET /ws          join room "default"
//	GET /ws/{room}   join the named room
//	GET /metrics     Prometheus metrics
//	GET /healthz     liveness
func NewServer(cfg config.Relay, hub *Hub, metrics *Metrics) http.Handler {
	s := &Server{
		hub:     hub,
		metrics: metrics,
		origins: cfg.AllowedOrigins,
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin:     s.checkOrigin,
	}

	r := mux.NewRouter()
	r.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/ws/{room}", s.handleWS).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	}).Methods(http.MethodGet)
	if metrics != nil {
		r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)
	}
	return r
}

// checkOrigin accepts requests without an Origin header (non-browser peers),
// then matches scheme://host[:port] against the allow-list.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" || len(s.origins) == 0 {
		return true
	}

	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	normalized := strings.ToLower(u.Scheme + "://" + u.Host)

	for _, allowed := range s.origins {
		if allowed == "*" || strings.EqualFold(strings.TrimRight(allowed, "/"), normalized) {
			return true
		}
	}
	return false
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["room"]
	if roomID == "" {
		roomID = config.DefaultRoom
	}

	if !s.checkOrigin(r) {
		s.metrics.reject(RejectOrigin)
		util.LogWarning("rejected origin %q for room %q", r.Header.Get("Origin"), roomID)
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.metrics.reject(RejectUpgrade)
		return
	}

	p := newParticipant(roomID)
	if err := s.hub.join(p); err != nil {
		s.metrics.reject(RejectRoomFull)
		util.LogWarning("refused %s: %v", conn.RemoteAddr(), err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.ClosePolicyViolation, err.Error()),
			time.Now().Add(writeWait))
		conn.Close()
		return
	}
	util.LogInfo("participant %s connected to room %q from %s", p.id, roomID, conn.RemoteAddr())

	done := make(chan struct{})
	go s.writeLoop(conn, p, done)
	s.readLoop(conn, p)

	s.hub.leave(p)
	close(done)
	util.LogInfo("participant %s disconnected from room %q", p.id, roomID)
}

// readLoop forwards every inbound frame until the connection fails.
func (s *Server) readLoop(conn *websocket.Conn, p *participant) {
	defer conn.Close()

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				util.LogDebug("participant %s read: %v", p.id, err)
			}
			return
		}
		s.hub.broadcast(p, frame{kind: kind, data: data})
	}
}

// writeLoop is the connection's single writer: it drains the outbox in FIFO
// order and sends keepalive pings. A write failure closes the connection,
// which ends readLoop.
func (s *Server) writeLoop(conn *websocket.Conn, p *participant, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-p.outbox.Signal():
			for {
				f, ok := p.outbox.Pop()
				if !ok {
					break
				}
				_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteMessage(f.kind, f.data); err != nil {
					if !errors.Is(err, websocket.ErrCloseSent) {
						util.LogDebug("participant %s write: %v", p.id, err)
					}
					conn.Close()
					return
				}
			}

		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				conn.Close()
				return
			}

		case <-done:
			return
		}
	}
}
