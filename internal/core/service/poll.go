package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/Wyydra/premeet/internal/core/store"
	"github.com/rs/zerolog/log"
)

var ErrAnswerIndex = errors.New("answer index out of range")

// PollForm is the poll creation form. It starts from the poll currently being
// edited, if any, and never holds fewer than two answer rows.
type PollForm struct {
	store        *store.Store
	sender       domain.ParticipantID
	participants []string

	editingID      domain.PollID
	question       string
	answers        []domain.Answer
	isSingleChoice bool
	skippable      bool
	isApprovalPoll bool
}

func NewPollForm(st *store.Store, sender domain.ParticipantID, participants []string) *PollForm {
	f := &PollForm{
		store:        st,
		sender:       sender,
		participants: participants,
		answers:      []domain.Answer{{Voters: []string{}}, {Voters: []string{}}},
		skippable:    true,
	}
	if id, p, ok := st.State().Polls.EditingPoll(); ok {
		f.editingID = id
		f.question = p.Question
		f.answers = p.Answers
		f.isSingleChoice = p.IsSingleChoice
		f.skippable = p.Skippable
		f.isApprovalPoll = p.IsApprovalPoll
		for len(f.answers) < domain.MinAnswers {
			f.answers = append(f.answers, domain.Answer{Voters: []string{}})
		}
	}
	return f
}

func (f *PollForm) EditingID() domain.PollID { return f.editingID }
func (f *PollForm) Question() string          { return f.question }
func (f *PollForm) SetQuestion(q string)      { f.question = q }
func (f *PollForm) SetSingleChoice(v bool)    { f.isSingleChoice = v }
func (f *PollForm) SetSkippable(v bool)       { f.skippable = v }

func (f *PollForm) Answers() []domain.Answer {
	return slices.Clone(f.answers)
}

func (f *PollForm) SetAnswer(i int, name string) error {
	if i < 0 || i >= len(f.answers) {
		return ErrAnswerIndex
	}
	f.answers[i].Name = name
	return nil
}

// AddAnswer inserts an empty row at i; a negative or out of range i appends.
func (f *PollForm) AddAnswer(i int) {
	if i < 0 || i > len(f.answers) {
		i = len(f.answers)
	}
	f.answers = slices.Insert(f.answers, i, domain.Answer{Voters: []string{}})
}

// RemoveAnswer reports whether a row was removed.
func (f *PollForm) RemoveAnswer(i int) bool {
	if len(f.answers) <= domain.MinAnswers || i < 0 || i >= len(f.answers) {
		return false
	}
	f.answers = slices.Delete(f.answers, i, i+1)
	return true
}

func (f *PollForm) Draft() domain.PollDraft {
	return domain.PollDraft{
		Question:       f.question,
		Answers:        f.Answers(),
		IsSingleChoice: f.isSingleChoice,
		Skippable:      f.skippable,
		IsApprovalPoll: f.isApprovalPoll,
	}
}

func (f *PollForm) IsSubmitDisabled() bool {
	return f.Draft().Validate() != nil
}

// Submit saves the poll into the store. An invalid form leaves the store untouched.
func (f *PollForm) Submit() (domain.PollID, error) {
	draft := f.Draft()
	if err := draft.Validate(); err != nil {
		return "", err
	}
	id := f.editingID
	if id == "" {
		id = domain.NewPollID()
	}
	f.store.Dispatch(store.SavePoll{ID: id, Poll: draft.ToPoll(f.sender, f.participants)})
	log.Debug().Str("poll_id", id.String()).Msg("Poll created")
	return id, nil
}

// PollService is the server side poll book. Read-modify-write operations are
// serialised so concurrent votes do not overwrite each other.
type PollService struct {
	mu   sync.Mutex
	repo port.PollRepository
}

func NewPollService(repo port.PollRepository) *PollService {
	return &PollService{repo: repo}
}

func (s *PollService) Create(ctx context.Context, room string, sender domain.ParticipantID, draft domain.PollDraft, participants []string) (domain.PollID, domain.Poll, error) {
	if err := draft.Validate(); err != nil {
		return "", domain.Poll{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	id := domain.NewPollID()
	poll := draft.ToPoll(sender, participants)
	if err := s.repo.Save(ctx, room, id, poll); err != nil {
		return "", domain.Poll{}, fmt.Errorf("save poll: %w", err)
	}
	log.Info().Str("room", room).Str("poll_id", id.String()).Msg("Poll created")
	return id, poll, nil
}

// Update replaces question, answers and modes of an existing poll. Voters are
// kept from the stored poll for answers whose trimmed name is unchanged; voters
// sent by the caller are ignored.
func (s *PollService) Update(ctx context.Context, room string, id domain.PollID, draft domain.PollDraft) (domain.Poll, error) {
	if err := draft.Validate(); err != nil {
		return domain.Poll{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, err := s.repo.Get(ctx, room, id)
	if err != nil {
		return domain.Poll{}, err
	}
	poll := draft.ToPoll(existing.SenderID, existing.Participants)
	poll.IsVoteChangeable = existing.IsVoteChangeable

	voters := make(map[string][]string, len(existing.Answers))
	for _, a := range existing.Answers {
		voters[strings.TrimSpace(a.Name)] = a.Voters
	}
	for i := range poll.Answers {
		poll.Answers[i].Voters = append([]string{}, voters[strings.TrimSpace(poll.Answers[i].Name)]...)
	}

	if err := s.repo.Save(ctx, room, id, poll); err != nil {
		return domain.Poll{}, fmt.Errorf("save poll: %w", err)
	}
	return poll, nil
}

func (s *PollService) Vote(ctx context.Context, room string, id domain.PollID, voterID string, choice []bool) (domain.Poll, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	poll, err := s.repo.Get(ctx, room, id)
	if err != nil {
		return domain.Poll{}, err
	}
	if err := poll.RegisterVote(voterID, choice); err != nil {
		return domain.Poll{}, err
	}
	if err := s.repo.Save(ctx, room, id, poll); err != nil {
		return domain.Poll{}, fmt.Errorf("save poll: %w", err)
	}
	return poll, nil
}

func (s *PollService) List(ctx context.Context, room string) ([]port.PollEntry, error) {
	return s.repo.List(ctx, room)
}
