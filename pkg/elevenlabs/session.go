package elevenlabs

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

// Session is an open realtime conversation opened from a signed URL.
// The read loop answers pings and forwards every other message as an Event.
type Session struct {
	conn   *websocket.Conn
	logger zerolog.Logger

	events  chan Event
	done    chan struct{}
	closing chan struct{}

	writeMu   sync.Mutex
	closeOnce sync.Once
}

// DialOptions tunes DialSession.
type DialOptions struct {
	HandshakeTimeout time.Duration
	Header           http.Header
	Logger           zerolog.Logger
}

// DialSession opens the realtime websocket behind signedURL.
func DialSession(ctx context.Context, signedURL string, opts DialOptions) (*Session, error) {
	if !strings.HasPrefix(signedURL, "ws://") && !strings.HasPrefix(signedURL, "wss://") {
		return nil, fmt.Errorf("signed url must be a websocket url")
	}
	if opts.HandshakeTimeout == 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: opts.HandshakeTimeout,
	}

	conn, resp, err := dialer.DialContext(ctx, signedURL, opts.Header)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial session (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("dial session: %w", err)
	}

	s := &Session{
		conn:    conn,
		logger:  opts.Logger,
		events:  make(chan Event, 64),
		done:    make(chan struct{}),
		closing: make(chan struct{}),
	}
	go s.readLoop()

	return s, nil
}

// Events returns the event stream. It is closed when the session ends.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Done is closed once the read loop has exited.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close ends the session and waits for the read loop to exit.
func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closing)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "call ended"),
			time.Now().Add(time.Second),
		)
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	<-s.done
	return err
}

func (s *Session) readLoop() {
	defer close(s.done)
	defer close(s.events)

	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				s.logger.Debug().Err(err).Msg("Session read loop ended")
			}
			return
		}

		var msg wireMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to decode session message")
			continue
		}

		if msg.Type == EventPing {
			s.pong(msg)
			continue
		}

		ev, ok := decodeEvent(msg)
		if !ok {
			s.logger.Debug().Str("type", msg.Type).Msg("Ignoring session message")
			continue
		}

		if ev.Type == EventAudio {
			// A slow consumer loses audio notifications rather than stalling pongs.
			select {
			case s.events <- ev:
			default:
			}
			continue
		}

		select {
		case s.events <- ev:
		case <-s.closing:
			return
		}
	}
}

func (s *Session) pong(msg wireMessage) {
	eventID := 0
	if msg.PingEvent != nil {
		eventID = msg.PingEvent.EventID
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if err := s.conn.WriteJSON(map[string]any{"type": "pong", "event_id": eventID}); err != nil {
		s.logger.Debug().Err(err).Msg("Failed to answer ping")
	}
}

func decodeEvent(msg wireMessage) (Event, bool) {
	ev := Event{Type: msg.Type}

	switch msg.Type {
	case EventInitiation:
		if msg.InitiationMetadata != nil {
			ev.ConversationID = msg.InitiationMetadata.ConversationID
		}
	case EventAgentResponse:
		if msg.AgentResponseEvent != nil {
			ev.Text = msg.AgentResponseEvent.AgentResponse
		}
	case EventUserTranscript:
		if msg.UserTranscriptionEvent != nil {
			ev.Text = msg.UserTranscriptionEvent.UserTranscript
		}
	case EventAudio:
		if msg.AudioEvent != nil {
			ev.AudioBytes = len(msg.AudioEvent.AudioBase64)
		}
	case EventInterruption:
	case EventError:
		ev.Text = msg.Message
	default:
		return Event{}, false
	}

	return ev, true
}
