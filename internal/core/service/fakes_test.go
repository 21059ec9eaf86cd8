package service

import (
	"context"
	"errors"
	"sync"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
)

type fakeSession struct {
	events chan domain.SessionEvent

	mu     sync.Mutex
	sent   []string
	closed bool
}

func newFakeSession() *fakeSession {
	return &fakeSession{events: make(chan domain.SessionEvent, 16)}
}

func (s *fakeSession) Events() <-chan domain.SessionEvent {
	return s.events
}

func (s *fakeSession) SendText(ctx context.Context, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("session closed")
	}
	s.sent = append(s.sent, text)
	return nil
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *fakeSession) Sent() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.sent...)
}

func (s *fakeSession) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

type fakeDialer struct {
	session *fakeSession
	err     error

	mu   sync.Mutex
	room domain.RoomName
}

func (d *fakeDialer) Dial(ctx context.Context, room domain.RoomName) (port.Session, error) {
	d.mu.Lock()
	d.room = room
	d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	return d.session, nil
}

func (d *fakeDialer) Room() domain.RoomName {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.room
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []port.Notification
}

func (n *recordingNotifier) Notify(note port.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) Keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		out = append(out, s.TitleKey)
	}
	return out
}
