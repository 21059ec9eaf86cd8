package store

import (
	"maps"
	"slices"

	"github.com/Wyydra/premeet/internal/core/domain"
)

type SavePoll struct {
	ID   domain.PollID
	Poll domain.Poll
}

// RegisterVote records a vote cast by any participant, local or remote.
type RegisterVote struct {
	ID      domain.PollID
	VoterID string
	Choice  []bool
}

// SetPollEditing puts a poll in or out of edit mode.
type SetPollEditing struct {
	ID      domain.PollID
	Editing bool
}

func (SavePoll) action()       {}
func (RegisterVote) action()   {}
func (SetPollEditing) action() {}

// PollsState is an insertion-ordered poll table. Values are never mutated in
// place; reducers build a new table.
type PollsState struct {
	order []domain.PollID
	polls map[domain.PollID]domain.Poll
}

func NewPollsState() PollsState {
	return PollsState{polls: make(map[domain.PollID]domain.Poll)}
}

func (s PollsState) Get(id domain.PollID) (domain.Poll, bool) {
	p, ok := s.polls[id]
	if !ok {
		return domain.Poll{}, false
	}
	return p.Clone(), true
}

func (s PollsState) Len() int {
	return len(s.order)
}

func (s PollsState) IDs() []domain.PollID {
	return slices.Clone(s.order)
}

// EditingPoll returns the first poll, in insertion order, flagged as editing.
func (s PollsState) EditingPoll() (domain.PollID, domain.Poll, bool) {
	for _, id := range s.order {
		if p := s.polls[id]; p.Editing {
			return id, p.Clone(), true
		}
	}
	return "", domain.Poll{}, false
}

func (s PollsState) with(id domain.PollID, p domain.Poll) PollsState {
	next := PollsState{
		order: s.order,
		polls: maps.Clone(s.polls),
	}
	if next.polls == nil {
		next.polls = make(map[domain.PollID]domain.Poll)
	}
	if _, exists := s.polls[id]; !exists {
		next.order = append(slices.Clone(s.order), id)
	}
	next.polls[id] = p
	return next
}

func ReducePolls(prev State, a Action) State {
	next := prev
	switch a := a.(type) {
	case SavePoll:
		next.Polls = prev.Polls.with(a.ID, a.Poll.Clone())
	case RegisterVote:
		p, ok := prev.Polls.Get(a.ID)
		if !ok {
			return prev
		}
		if err := p.RegisterVote(a.VoterID, a.Choice); err != nil {
			return prev
		}
		next.Polls = prev.Polls.with(a.ID, p)
	case SetPollEditing:
		p, ok := prev.Polls.Get(a.ID)
		if !ok {
			return prev
		}
		p.Editing = a.Editing
		next.Polls = prev.Polls.with(a.ID, p)
	}
	return next
}
