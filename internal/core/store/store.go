// Package store holds the client state and the typed reducers that change it.
// Reducers and middleware are composed once, when the application is assembled.
package store

import (
	"sync"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
)

// Action is implemented only by the action types of this package.
type Action interface {
	action()
}

type State struct {
	PreMeeting   domain.PreMeetingState
	Polls        PollsState
	Transcribing domain.TranscribingState
}

func DefaultState() State {
	return State{
		PreMeeting: domain.DefaultPreMeetingState(),
		Polls:      NewPollsState(),
	}
}

// Reducer returns the next state. It must not mutate prev.
type Reducer func(prev State, a Action) State

// Middleware sees every action before the reducers run, with the state as it
// was before the action. Dispatching from middleware is allowed.
type Middleware func(s *Store, prev State, a Action)

type Store struct {
	mu          sync.RWMutex
	state       State
	reducers    []Reducer
	middleware  []Middleware
	subscribers map[int]func(State)
	nextSub     int
}

func New(initial State, reducers ...Reducer) *Store {
	return &Store{
		state:       initial,
		reducers:    reducers,
		subscribers: make(map[int]func(State)),
	}
}

// Use appends middleware; call it before the store is shared.
func (s *Store) Use(m ...Middleware) *Store {
	s.middleware = append(s.middleware, m...)
	return s
}

func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Dispatch applies a to the state. Actions dispatched from middleware are
// applied before a itself.
func (s *Store) Dispatch(a Action) {
	s.mu.RLock()
	prev := s.state
	s.mu.RUnlock()

	for _, m := range s.middleware {
		m(s, prev, a)
	}

	s.mu.Lock()
	next := s.state
	for _, r := range s.reducers {
		next = r(next, a)
	}
	s.state = next
	subs := make([]func(State), 0, len(s.subscribers))
	for _, fn := range s.subscribers {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(next)
	}
}

// Subscribe registers fn for every state change and returns its cancel func.
func (s *Store) Subscribe(fn func(State)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subscribers[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subscribers, id)
	}
}

// NewClientStore assembles the store used by a participant.
func NewClientStore(n port.Notifier) *Store {
	return New(DefaultState(), ReducePreMeeting, ReducePolls, ReduceTranscribing).
		Use(TranscribingMiddleware(n))
}
