package domain

import (
	"errors"
	"slices"
	"strings"
)

var (
	ErrEmptyQuestion     = errors.New("poll question is required")
	ErrNotEnoughAnswers  = errors.New("poll needs at least two answers")
	ErrIdenticalAnswers  = errors.New("poll answers must be distinct")
	ErrPollNotFound      = errors.New("poll not found")
	ErrInvalidVote       = errors.New("invalid vote")
	ErrVoteNotChangeable = errors.New("vote cannot be changed")
)

// MinAnswers is the number of answer rows a poll never drops below.
const MinAnswers = 2

type Answer struct {
	Name   string   `json:"name"`
	Voters []string `json:"voters"`
}

type Poll struct {
	SenderID         ParticipantID `json:"senderId,omitempty"`
	Question         string        `json:"question"`
	Answers          []Answer      `json:"answers"`
	IsSingleChoice   bool          `json:"isSingleChoice"`
	Skippable        bool          `json:"skippable"`
	IsApprovalPoll   bool          `json:"isApprovalPoll"`
	IsVoteChangeable bool          `json:"isVoteChangeable"`
	Editing          bool          `json:"editing"`
	Saved            bool          `json:"saved"`
	ShowResults      bool          `json:"showResults"`
	ChangingVote     bool          `json:"changingVote"`
	// LastVote is nil when the local voter skipped.
	LastVote     []bool   `json:"lastVote"`
	Participants []string `json:"participants"`
}

// PollDraft is what a poll form submits.
type PollDraft struct {
	Question       string   `json:"question"`
	Answers        []Answer `json:"answers"`
	IsSingleChoice bool     `json:"isSingleChoice"`
	Skippable      bool     `json:"skippable"`
	IsApprovalPoll bool     `json:"isApprovalPoll"`
}

// NonEmptyAnswers drops rows whose trimmed name is empty.
func NonEmptyAnswers(answers []Answer) []Answer {
	out := make([]Answer, 0, len(answers))
	for _, a := range answers {
		if strings.TrimSpace(a.Name) != "" {
			out = append(out, a)
		}
	}
	return out
}

// HasIdenticalAnswers compares trimmed names, case-sensitively.
func HasIdenticalAnswers(answers []Answer) bool {
	seen := make(map[string]struct{}, len(answers))
	for _, a := range NonEmptyAnswers(answers) {
		name := strings.TrimSpace(a.Name)
		if _, ok := seen[name]; ok {
			return true
		}
		seen[name] = struct{}{}
	}
	return false
}

func (d PollDraft) Validate() error {
	if strings.TrimSpace(d.Question) == "" {
		return ErrEmptyQuestion
	}
	if len(NonEmptyAnswers(d.Answers)) < MinAnswers {
		return ErrNotEnoughAnswers
	}
	if HasIdenticalAnswers(d.Answers) {
		return ErrIdenticalAnswers
	}
	return nil
}

// ToPoll builds a saved poll from a valid draft. Empty answer rows are dropped.
func (d PollDraft) ToPoll(sender ParticipantID, participants []string) Poll {
	answers := NonEmptyAnswers(d.Answers)
	for i := range answers {
		if answers[i].Voters == nil {
			answers[i].Voters = []string{}
		}
	}
	return Poll{
		SenderID:         sender,
		Question:         d.Question,
		Answers:          answers,
		IsSingleChoice:   d.IsSingleChoice,
		Skippable:        d.Skippable,
		IsApprovalPoll:   d.IsApprovalPoll,
		IsVoteChangeable: true,
		Saved:            true,
		Participants:     participants,
	}
}

// RegisterVote records voterID against every answer marked true, replacing any
// earlier vote by the same voter. A nil choice skips the poll.
func (p *Poll) RegisterVote(voterID string, choice []bool) error {
	if voterID == "" {
		return ErrInvalidVote
	}
	if choice == nil {
		if !p.Skippable {
			return ErrInvalidVote
		}
	} else {
		if len(choice) != len(p.Answers) {
			return ErrInvalidVote
		}
		if p.IsSingleChoice && countTrue(choice) > 1 {
			return ErrInvalidVote
		}
	}

	if p.HasVoted(voterID) && !p.IsVoteChangeable {
		return ErrVoteNotChangeable
	}

	for i := range p.Answers {
		p.Answers[i].Voters = slices.DeleteFunc(p.Answers[i].Voters, func(v string) bool {
			return v == voterID
		})
		if choice != nil && choice[i] {
			p.Answers[i].Voters = append(p.Answers[i].Voters, voterID)
		}
	}
	return nil
}

func (p Poll) HasVoted(voterID string) bool {
	for _, a := range p.Answers {
		if slices.Contains(a.Voters, voterID) {
			return true
		}
	}
	return false
}

// Clone deep-copies the slices so reducers never share backing arrays.
func (p Poll) Clone() Poll {
	out := p
	out.Answers = make([]Answer, len(p.Answers))
	for i, a := range p.Answers {
		out.Answers[i] = Answer{Name: a.Name, Voters: slices.Clone(a.Voters)}
	}
	out.LastVote = slices.Clone(p.LastVote)
	out.Participants = slices.Clone(p.Participants)
	return out
}

func countTrue(bs []bool) int {
	n := 0
	for _, b := range bs {
		if b {
			n++
		}
	}
	return n
}
