package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func answers(names ...string) []Answer {
	out := make([]Answer, len(names))
	for i, n := range names {
		out[i] = Answer{Name: n}
	}
	return out
}

func TestPollDraftValidate(t *testing.T) {
	cases := []struct {
		name  string
		draft PollDraft
		want  error
	}{
		{"valid", PollDraft{Question: "q", Answers: answers("a", "b")}, nil},
		{"valid with blank rows", PollDraft{Question: "q", Answers: answers("a", "", "b", " ")}, nil},
		{"empty question", PollDraft{Question: " ", Answers: answers("a", "b")}, ErrEmptyQuestion},
		{"one answer", PollDraft{Question: "q", Answers: answers("a", "  ")}, ErrNotEnoughAnswers},
		{"duplicate", PollDraft{Question: "q", Answers: answers("a", "a ")}, ErrIdenticalAnswers},
		{"case differs", PollDraft{Question: "q", Answers: answers("A", "a")}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.draft.Validate()
			if tc.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestHasIdenticalAnswersIgnoresBlankRows(t *testing.T) {
	assert.False(t, HasIdenticalAnswers(answers("", "", "x")))
	assert.True(t, HasIdenticalAnswers(answers("x", "", "x")))
}

func newPoll(single, skippable bool) Poll {
	return PollDraft{
		Question:       "q",
		Answers:        answers("a", "b", "c"),
		IsSingleChoice: single,
		Skippable:      skippable,
	}.ToPoll("host", nil)
}

func TestRegisterVote(t *testing.T) {
	p := newPoll(false, false)

	require.NoError(t, p.RegisterVote("v1", []bool{true, false, true}))
	require.NoError(t, p.RegisterVote("v2", []bool{true, false, false}))
	assert.Equal(t, []string{"v1", "v2"}, p.Answers[0].Voters)
	assert.Equal(t, []string{"v1"}, p.Answers[2].Voters)

	require.NoError(t, p.RegisterVote("v1", []bool{false, true, false}))
	assert.Equal(t, []string{"v2"}, p.Answers[0].Voters)
	assert.Equal(t, []string{"v1"}, p.Answers[1].Voters)
	assert.Empty(t, p.Answers[2].Voters)

	assert.ErrorIs(t, p.RegisterVote("v3", []bool{true}), ErrInvalidVote)
	assert.ErrorIs(t, p.RegisterVote("", []bool{true, false, false}), ErrInvalidVote)
	assert.ErrorIs(t, p.RegisterVote("v3", nil), ErrInvalidVote, "not skippable")
}

func TestRegisterVoteSingleChoiceAndSkip(t *testing.T) {
	p := newPoll(true, true)

	assert.ErrorIs(t, p.RegisterVote("v1", []bool{true, true, false}), ErrInvalidVote)
	require.NoError(t, p.RegisterVote("v1", []bool{false, false, true}))
	require.NoError(t, p.RegisterVote("v1", nil))
	assert.False(t, p.HasVoted("v1"))
}

func TestRegisterVoteNotChangeable(t *testing.T) {
	p := newPoll(false, false)
	p.IsVoteChangeable = false

	require.NoError(t, p.RegisterVote("v1", []bool{true, false, false}))
	assert.ErrorIs(t, p.RegisterVote("v1", []bool{false, true, false}), ErrVoteNotChangeable)
}

func TestCloneIsDeep(t *testing.T) {
	p := newPoll(false, false)
	require.NoError(t, p.RegisterVote("v1", []bool{true, false, false}))

	c := p.Clone()
	require.NoError(t, c.RegisterVote("v2", []bool{true, false, false}))

	assert.Equal(t, []string{"v1"}, p.Answers[0].Voters)
	assert.Equal(t, []string{"v1", "v2"}, c.Answers[0].Voters)
}

func TestICEURLsAcceptStringOrList(t *testing.T) {
	var doc struct {
		ICEServers []ICEServer `json:"iceServers"`
	}
	body := `{"iceServers":[{"urls":"stun:a"},{"urls":["turn:b","turns:c"],"username":"u","credential":"p"}]}`
	require.NoError(t, json.Unmarshal([]byte(body), &doc))

	require.Len(t, doc.ICEServers, 2)
	assert.Equal(t, ICEURLs{"stun:a"}, doc.ICEServers[0].URLs)
	assert.Equal(t, ICEURLs{"turn:b", "turns:c"}, doc.ICEServers[1].URLs)
	assert.Equal(t, "p", doc.ICEServers[1].Credential)

	var bad ICEServer
	assert.Error(t, json.Unmarshal([]byte(`{"urls":42}`), &bad))
}
