// Package signaling is the participant side of the ancillary WebSocket channel.
package signaling

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/Wyydra/premeet/internal/adapter/protocol"
	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	eventBuffer  = 64
	writeTimeout = 10 * time.Second
)

var ErrSessionClosed = errors.New("signaling session closed")

// Dialer opens sessions against a signaling server such as http://localhost:8080.
// implements port.SignalingDialer
type Dialer struct {
	baseURL string
	ws      *websocket.Dialer
}

func NewDialer(baseURL string) *Dialer {
	return &Dialer{
		baseURL: baseURL,
		ws:      websocket.DefaultDialer,
	}
}

// SocketURL builds the signaling URL for room from an http(s) or ws(s) base URL.
func SocketURL(baseURL string, room domain.RoomName) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse signaling url: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported signaling scheme %q", u.Scheme)
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	q := u.Query()
	q.Set(protocol.RoomQueryParam, room.String())
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (d *Dialer) Dial(ctx context.Context, room domain.RoomName) (port.Session, error) {
	target, err := SocketURL(d.baseURL, room)
	if err != nil {
		return nil, err
	}
	conn, _, err := d.ws.DialContext(ctx, target, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", target, err)
	}

	s := &Session{
		conn:   conn,
		events: make(chan domain.SessionEvent, eventBuffer),
		closed: make(chan struct{}),
		l:      log.With().Str("room", room.String()).Logger(),
	}
	go s.readLoop()
	return s, nil
}

// Session is one open ancillary channel.
type Session struct {
	conn   *websocket.Conn
	events chan domain.SessionEvent

	writeMu   sync.Mutex
	closeOnce sync.Once
	closed    chan struct{}

	l zerolog.Logger
}

func (s *Session) Events() <-chan domain.SessionEvent {
	return s.events
}

func (s *Session) SendText(ctx context.Context, text string) error {
	select {
	case <-s.closed:
		return ErrSessionClosed
	default:
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return s.conn.WriteJSON(protocol.Frame{Type: protocol.FrameMessage, Text: text})
}

func (s *Session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.closed)
		s.writeMu.Lock()
		_ = s.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		s.writeMu.Unlock()
		err = s.conn.Close()
	})
	return err
}

func (s *Session) readLoop() {
	defer close(s.events)

	var cause error
	for {
		var f protocol.Frame
		if err := s.conn.ReadJSON(&f); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && !s.isClosed() {
				cause = err
			}
			break
		}
		ev, ok := f.ToEvent()
		if !ok {
			s.l.Debug().Str("type", string(f.Type)).Msg("Ignoring signaling frame")
			continue
		}
		if !s.deliver(ev) {
			return
		}
	}
	s.deliver(domain.SessionClosed{Err: cause})
}

// deliver reports false once the session was closed locally.
func (s *Session) deliver(ev domain.SessionEvent) bool {
	select {
	case s.events <- ev:
		return true
	case <-s.closed:
		return false
	}
}

func (s *Session) isClosed() bool {
	select {
	case <-s.closed:
		return true
	default:
		return false
	}
}
