package services

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"whispernet/internal/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// NotificationService is the bridge between the badge engine and
// user-visible notifications. Delivery is fire-and-forget: the engine never
// learns whether a push landed, and a user with no open connection simply
// misses the push.
type NotificationService interface {
	// Notify routes a whisper event to the actor's connected clients.
	Notify(ctx context.Context, event *models.WhisperEvent) error
	// HandleWS upgrades an HTTP request into a notification connection
	// for the given user.
	HandleWS(w http.ResponseWriter, r *http.Request, userID int64) error
	// Shutdown closes every open connection.
	Shutdown(ctx context.Context) error
}

// notificationService pushes events over per-user websocket connections.
type notificationService struct {
	logger   *zap.Logger
	upgrader websocket.Upgrader

	mu      sync.RWMutex
	clients map[int64][]*wsClient
}

// wsClient is one open connection with a buffered send queue.
type wsClient struct {
	userID int64
	conn   *websocket.Conn
	send   chan []byte
	once   sync.Once
}

// NewNotificationService creates the websocket notification bridge.
func NewNotificationService(logger *zap.Logger) NotificationService {
	return &notificationService{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Origin enforcement happens at the gateway.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		clients: make(map[int64][]*wsClient),
	}
}

// Notify serializes the event and queues it to each of the actor's
// connections, retrying transient queue pressure with backoff. An offline
// user is not an error.
func (s *notificationService) Notify(ctx context.Context, event *models.WhisperEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return NewInternalError("failed to encode notification payload")
	}

	// Sends stay under the read lock: disconnect needs the write lock to
	// close a queue, so a held RLock keeps every queue here open.
	deliver := func() error {
		s.mu.RLock()
		defer s.mu.RUnlock()

		conns := s.clients[event.ActorID]
		if len(conns) == 0 {
			return nil
		}

		for _, c := range conns {
			select {
			case c.send <- payload:
			default:
				// Slow consumer: its queue is full. Retry the whole
				// delivery after a pause before giving up on it.
				return NewInternalError("client send queue full")
			}
		}
		return nil
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(deliver, policy); err != nil {
		s.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.EventType)),
			zap.Int64("actor_id", event.ActorID),
			zap.Error(err),
		)
		return err
	}
	return nil
}

// HandleWS upgrades the connection and starts its write pump.
func (s *notificationService) HandleWS(w http.ResponseWriter, r *http.Request, userID int64) error {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return NewInternalError("websocket upgrade failed")
	}

	client := &wsClient{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 16),
	}

	s.mu.Lock()
	s.clients[userID] = append(s.clients[userID], client)
	s.mu.Unlock()

	s.logger.Debug("notification client connected", zap.Int64("user_id", userID))

	go s.writePump(client)
	go s.readPump(client)
	return nil
}

// writePump drains the client's queue onto the wire.
func (s *notificationService) writePump(c *wsClient) {
	defer s.disconnect(c)

	for payload := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			s.logger.Debug("notification write failed",
				zap.Int64("user_id", c.userID),
				zap.Error(err),
			)
			return
		}
	}
}

// readPump discards inbound frames; its job is noticing the close.
func (s *notificationService) readPump(c *wsClient) {
	defer s.disconnect(c)

	c.conn.SetReadLimit(512)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

// disconnect removes the client from the registry and closes it once.
func (s *notificationService) disconnect(c *wsClient) {
	c.once.Do(func() {
		s.mu.Lock()
		conns := s.clients[c.userID]
		for i, other := range conns {
			if other == c {
				s.clients[c.userID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(s.clients[c.userID]) == 0 {
			delete(s.clients, c.userID)
		}
		s.mu.Unlock()

		close(c.send)
		c.conn.Close()
		s.logger.Debug("notification client disconnected", zap.Int64("user_id", c.userID))
	})
}

// Shutdown closes every open connection.
func (s *notificationService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	var all []*wsClient
	for _, conns := range s.clients {
		all = append(all, conns...)
	}
	s.mu.Unlock()

	for _, c := range all {
		s.disconnect(c)
	}
	s.logger.Info("notification service shut down", zap.Int("closed_connections", len(all)))
	return nil
}
