package push

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// SocketConfig holds configuration for the websocket feed.
type SocketConfig struct {
	URL              string
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration
	PingInterval     time.Duration
	MaxMessageSize   int64
	ReconnectWait    time.Duration
	MaxReconnectWait time.Duration
}

// DefaultSocketConfig returns default websocket feed configuration.
func DefaultSocketConfig(url string) SocketConfig {
	return SocketConfig{
		URL:              url,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      60 * time.Second,
		PingInterval:     30 * time.Second,
		MaxMessageSize:   32 * 1024,
		ReconnectWait:    2 * time.Second,
		MaxReconnectWait: 30 * time.Second,
	}
}

// Socket is a websocket push feed. It dials the server's room socket,
// announces the session, and delivers event envelopes to the handler.
// Disconnects are retried with capped backoff until the context ends.
type Socket struct {
	config  SocketConfig
	roomID  string
	userID  string
	handler Handler

	mu     sync.Mutex
	conn   *websocket.Conn
	sendCh chan []byte
	closed bool
}

// clientMessage is the envelope for client-to-server emits.
type clientMessage struct {
	Event   string `json:"event"`
	RoomID  string `json:"room_id"`
	UserID  string `json:"user_id"`
	Payload any    `json:"payload,omitempty"`
}

// NewSocket creates a websocket feed for one room session.
func NewSocket(config SocketConfig, roomID, userID string, handler Handler) *Socket {
	return &Socket{
		config:  config,
		roomID:  roomID,
		userID:  userID,
		handler: handler,
		sendCh:  make(chan []byte, 64),
	}
}

// Start dials and pumps until ctx is cancelled. Reconnects internally.
func (s *Socket) Start(ctx context.Context) error {
	wait := s.config.ReconnectWait

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.config.URL, nil)
		if err != nil {
			log.Warn().
				Err(err).
				Str("url", s.config.URL).
				Dur("retry_in", wait).
				Msg("socket dial failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(wait):
			}
			wait *= 2
			if wait > s.config.MaxReconnectWait {
				wait = s.config.MaxReconnectWait
			}
			continue
		}
		wait = s.config.ReconnectWait

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return nil
		}
		s.conn = conn
		s.mu.Unlock()

		log.Info().
			Str("url", s.config.URL).
			Str("room_id", s.roomID).
			Msg("socket connected")

		// Announce the session so the server scopes events to this room.
		if err := s.Emit("subscribe-room", nil); err != nil {
			log.Error().Err(err).Msg("failed to announce room subscription")
		}

		pumpCtx, cancelPumps := context.WithCancel(ctx)
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.writePump(pumpCtx, conn)
		}()

		s.readPump(conn)

		cancelPumps()
		wg.Wait()
		conn.Close()

		s.mu.Lock()
		s.conn = nil
		closed := s.closed
		s.mu.Unlock()
		if closed {
			return nil
		}

		log.Warn().Str("room_id", s.roomID).Msg("socket disconnected, reconnecting")
	}
}

// Emit sends a client event to the server. Safe to call from any
// goroutine; drops with a warning when the send buffer is full so a dead
// connection cannot block the caller.
func (s *Socket) Emit(event string, payload any) error {
	msg := clientMessage{
		Event:   event,
		RoomID:  s.roomID,
		UserID:  s.userID,
		Payload: payload,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal client message: %w", err)
	}

	select {
	case s.sendCh <- data:
		return nil
	default:
		log.Warn().Str("event", event).Msg("socket send buffer full, dropping emit")
		return fmt.Errorf("send buffer full")
	}
}

// Close shuts the feed down. Start returns once the current pump exits.
func (s *Socket) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	if s.conn != nil {
		s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(s.config.WriteTimeout))
		return s.conn.Close()
	}
	return nil
}

// readPump reads event envelopes until the connection drops.
func (s *Socket) readPump(conn *websocket.Conn) {
	conn.SetReadLimit(s.config.MaxMessageSize)
	conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Error().Err(err).Msg("unexpected socket close")
			}
			return
		}
		conn.SetReadDeadline(time.Now().Add(s.config.ReadTimeout))

		var ev Event
		if err := json.Unmarshal(message, &ev); err != nil {
			log.Error().Err(err).Msg("failed to decode push event")
			continue
		}
		if ev.ID == "" {
			ev.ID = uuid.NewString()
		}
		ev.ReceivedAt = time.Now()

		log.Debug().
			Str("event_id", ev.ID).
			Str("event", string(ev.Name)).
			Str("room_id", ev.RoomID).
			Msg("push event received")

		s.handler(ev)
	}
}

// writePump sends queued emits and keeps the connection alive with pings.
func (s *Socket) writePump(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(s.config.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case message := <-s.sendCh:
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error().Err(err).Msg("failed to write socket message")
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Error().Err(err).Msg("failed to send ping")
				return
			}
		}
	}
}
