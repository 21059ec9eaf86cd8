package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/Wyydra/premeet/internal/core/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPollFormDefaults(t *testing.T) {
	f := NewPollForm(store.NewClientStore(&recordingNotifier{}), "me", nil)

	assert.Len(t, f.Answers(), 2)
	assert.Empty(t, f.EditingID())
	assert.True(t, f.Draft().Skippable)
	assert.False(t, f.Draft().IsSingleChoice)
	assert.True(t, f.IsSubmitDisabled())
}

func TestPollFormKeepsTwoRows(t *testing.T) {
	f := NewPollForm(store.NewClientStore(&recordingNotifier{}), "me", nil)

	assert.False(t, f.RemoveAnswer(0))
	f.AddAnswer(-1)
	f.AddAnswer(0)
	require.NoError(t, f.SetAnswer(0, "inserted"))
	assert.Len(t, f.Answers(), 4)
	assert.Equal(t, "inserted", f.Answers()[0].Name)

	assert.True(t, f.RemoveAnswer(0))
	assert.True(t, f.RemoveAnswer(0))
	assert.False(t, f.RemoveAnswer(0))
	assert.Len(t, f.Answers(), 2)
	assert.ErrorIs(t, f.SetAnswer(5, "x"), ErrAnswerIndex)
}

func TestPollFormSubmitRejections(t *testing.T) {
	cases := []struct {
		name     string
		question string
		answers  []string
		wantErr  error
	}{
		{"no question", "  ", []string{"a", "b"}, domain.ErrEmptyQuestion},
		{"one non-empty answer", "q?", []string{"a", "   "}, domain.ErrNotEnoughAnswers},
		{"no answers", "q?", []string{"", ""}, domain.ErrNotEnoughAnswers},
		{"identical after trim", "q?", []string{"yes", " yes "}, domain.ErrIdenticalAnswers},
		{"identical among three", "q?", []string{"a", "b", "a"}, domain.ErrIdenticalAnswers},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			st := store.NewClientStore(&recordingNotifier{})
			f := NewPollForm(st, "me", nil)
			f.SetQuestion(tc.question)
			for len(f.Answers()) < len(tc.answers) {
				f.AddAnswer(-1)
			}
			for i, a := range tc.answers {
				require.NoError(t, f.SetAnswer(i, a))
			}

			assert.True(t, f.IsSubmitDisabled())
			_, err := f.Submit()

			assert.ErrorIs(t, err, tc.wantErr)
			assert.Zero(t, st.State().Polls.Len())
		})
	}
}

func TestPollFormCaseSensitiveAnswers(t *testing.T) {
	st := store.NewClientStore(&recordingNotifier{})
	f := NewPollForm(st, "me", []string{"me", "you"})
	f.SetQuestion("Which?")
	require.NoError(t, f.SetAnswer(0, "Yes"))
	require.NoError(t, f.SetAnswer(1, "yes"))
	f.AddAnswer(-1)

	id, err := f.Submit()
	require.NoError(t, err)

	p, ok := st.State().Polls.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Which?", p.Question)
	assert.Len(t, p.Answers, 2, "empty rows are dropped")
	assert.Equal(t, domain.ParticipantID("me"), p.SenderID)
	assert.Equal(t, []string{"me", "you"}, p.Participants)
	assert.True(t, p.Saved)
	assert.False(t, p.Editing)
}

func TestPollFormEditsExistingPoll(t *testing.T) {
	st := store.NewClientStore(&recordingNotifier{})
	st.Dispatch(store.SavePoll{ID: "p1", Poll: domain.Poll{Question: "old", Answers: []domain.Answer{{Name: "a"}, {Name: "b"}}}})
	st.Dispatch(store.SavePoll{ID: "p2", Poll: domain.Poll{
		Question:       "Where?",
		Answers:        []domain.Answer{{Name: "here"}, {Name: "there"}},
		IsSingleChoice: true,
		Editing:        true,
	}})

	f := NewPollForm(st, "me", nil)
	assert.Equal(t, domain.PollID("p2"), f.EditingID())
	assert.Equal(t, "Where?", f.Question())
	assert.True(t, f.Draft().IsSingleChoice)

	require.NoError(t, f.SetAnswer(1, "anywhere"))
	id, err := f.Submit()
	require.NoError(t, err)

	assert.Equal(t, domain.PollID("p2"), id)
	polls := st.State().Polls
	assert.Equal(t, 2, polls.Len())
	p, _ := polls.Get("p2")
	assert.Equal(t, "anywhere", p.Answers[1].Name)
	assert.False(t, p.Editing)
	_, _, editing := polls.EditingPoll()
	assert.False(t, editing)
}

type mapPollRepo struct {
	mu    sync.Mutex
	order []domain.PollID
	polls map[domain.PollID]domain.Poll
}

func newMapPollRepo() *mapPollRepo {
	return &mapPollRepo{polls: make(map[domain.PollID]domain.Poll)}
}

func (r *mapPollRepo) Save(ctx context.Context, room string, id domain.PollID, poll domain.Poll) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.polls[id]; !ok {
		r.order = append(r.order, id)
	}
	r.polls[id] = poll.Clone()
	return nil
}

func (r *mapPollRepo) Get(ctx context.Context, room string, id domain.PollID) (domain.Poll, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.polls[id]
	if !ok {
		return domain.Poll{}, domain.ErrPollNotFound
	}
	return p.Clone(), nil
}

func (r *mapPollRepo) List(ctx context.Context, room string) ([]port.PollEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []port.PollEntry
	for _, id := range r.order {
		out = append(out, port.PollEntry{ID: id, Poll: r.polls[id].Clone()})
	}
	return out, nil
}

func TestPollServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewPollService(newMapPollRepo())

	_, _, err := svc.Create(ctx, "room", "host", domain.PollDraft{Question: "q", Answers: []domain.Answer{{Name: "a"}}}, nil)
	require.ErrorIs(t, err, domain.ErrNotEnoughAnswers)

	id, poll, err := svc.Create(ctx, "room", "host", domain.PollDraft{
		Question:       "Pizza?",
		Answers:        []domain.Answer{{Name: "yes"}, {Name: "no"}, {Name: ""}},
		IsSingleChoice: true,
	}, []string{"host", "guest"})
	require.NoError(t, err)
	assert.Len(t, poll.Answers, 2)

	_, err = svc.Vote(ctx, "room", id, "guest", []bool{true, true})
	assert.ErrorIs(t, err, domain.ErrInvalidVote)

	_, err = svc.Vote(ctx, "room", id, "guest", []bool{true, false})
	require.NoError(t, err)
	voted, err := svc.Vote(ctx, "room", id, "guest", []bool{false, true})
	require.NoError(t, err)
	assert.Empty(t, voted.Answers[0].Voters)
	assert.Equal(t, []string{"guest"}, voted.Answers[1].Voters)

	_, err = svc.Vote(ctx, "room", "nope", "guest", []bool{true, false})
	assert.ErrorIs(t, err, domain.ErrPollNotFound)

	updated, err := svc.Update(ctx, "room", id, domain.PollDraft{Question: "Pasta?", Answers: []domain.Answer{{Name: "si"}, {Name: "no"}}})
	require.NoError(t, err)
	assert.Equal(t, domain.ParticipantID("host"), updated.SenderID)

	entries, err := svc.List(ctx, "room")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "Pasta?", entries[0].Poll.Question)
}

func TestPollServiceUpdateKeepsStoredVotes(t *testing.T) {
	ctx := context.Background()
	repo := newMapPollRepo()
	svc := NewPollService(repo)

	id, _, err := svc.Create(ctx, "room", "host", domain.PollDraft{
		Question: "Where?",
		Answers:  []domain.Answer{{Name: "office"}, {Name: "home"}},
	}, nil)
	require.NoError(t, err)
	_, err = svc.Vote(ctx, "room", id, "guest", []bool{false, true})
	require.NoError(t, err)

	stored, err := repo.Get(ctx, "room", id)
	require.NoError(t, err)
	stored.IsVoteChangeable = false
	require.NoError(t, repo.Save(ctx, "room", id, stored))

	updated, err := svc.Update(ctx, "room", id, domain.PollDraft{
		Question: "Where now?",
		Answers: []domain.Answer{
			{Name: "office", Voters: []string{"mallory"}},
			{Name: " home "},
			{Name: "park", Voters: []string{"mallory"}},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Answers, 3)
	assert.Empty(t, updated.Answers[0].Voters)
	assert.Equal(t, []string{"guest"}, updated.Answers[1].Voters)
	assert.Empty(t, updated.Answers[2].Voters)
	assert.False(t, updated.IsVoteChangeable)

	_, err = svc.Vote(ctx, "room", id, "guest", []bool{true, false, false})
	assert.ErrorIs(t, err, domain.ErrVoteNotChangeable)
}

// serialRepo fails the test if two Saves overlap.
type serialRepo struct {
	*mapPollRepo
	t        *testing.T
	inFlight atomic.Int32
}

func (r *serialRepo) Save(ctx context.Context, room string, id domain.PollID, poll domain.Poll) error {
	if r.inFlight.Add(1) > 1 {
		r.t.Error("overlapping saves")
	}
	defer r.inFlight.Add(-1)
	time.Sleep(time.Millisecond)
	return r.mapPollRepo.Save(ctx, room, id, poll)
}

func TestPollServiceCreatesOneAtATime(t *testing.T) {
	ctx := context.Background()
	repo := &serialRepo{mapPollRepo: newMapPollRepo(), t: t}
	svc := NewPollService(repo)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := svc.Create(ctx, "room", "host", domain.PollDraft{
				Question: "q",
				Answers:  []domain.Answer{{Name: "a"}, {Name: "b"}},
			}, nil)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := svc.List(ctx, "room")
	require.NoError(t, err)
	assert.Len(t, entries, 8)
}
