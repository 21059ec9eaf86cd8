package memory

import (
	"context"
	"sync"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
)

type roomPolls struct {
	order []domain.PollID
	polls map[domain.PollID]domain.Poll
}

type PollRepository struct {
	mu    sync.Mutex
	rooms map[string]*roomPolls
}

func NewPollRepository() *PollRepository {
	return &PollRepository{
		rooms: make(map[string]*roomPolls),
	}
}

func (r *PollRepository) Save(ctx context.Context, room string, id domain.PollID, poll domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rp, ok := r.rooms[room]
	if !ok {
		rp = &roomPolls{polls: make(map[domain.PollID]domain.Poll)}
		r.rooms[room] = rp
	}
	if _, ok := rp.polls[id]; !ok {
		rp.order = append(rp.order, id)
	}
	rp.polls[id] = poll.Clone()
	return nil
}

func (r *PollRepository) Get(ctx context.Context, room string, id domain.PollID) (domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rp, ok := r.rooms[room]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	p, ok := rp.polls[id]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	return p.Clone(), nil
}

func (r *PollRepository) List(ctx context.Context, room string) ([]port.PollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rp, ok := r.rooms[room]
	if !ok {
		return nil, nil
	}
	out := make([]port.PollEntry, 0, len(rp.order))
	for _, id := range rp.order {
		out = append(out, port.PollEntry{ID: id, Poll: rp.polls[id].Clone()})
	}
	return out, nil
}
