package store

import (
	"sync"
	"testing"

	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu   sync.Mutex
	sent []port.Notification
}

func (n *recordingNotifier) Notify(note port.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) keys() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, s := range n.sent {
		out = append(out, s.TitleKey)
	}
	return out
}

func TestDefaultState(t *testing.T) {
	s := NewClientStore(&recordingNotifier{}).State()

	assert.False(t, s.PreMeeting.IsPremeetingModerator)
	assert.False(t, s.PreMeeting.WillBeRecorded)
	assert.False(t, s.PreMeeting.WillBeTranscribed)
	assert.False(t, s.PreMeeting.UnsafeRoomConsent)
	assert.Equal(t, domain.PreCallInitial, s.PreMeeting.PreCallTest.Status)
	assert.Zero(t, s.Polls.Len())
}

func TestWillBeRecordedTogglePairRestoresState(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})
	before := st.State().PreMeeting.WillBeRecorded

	st.Dispatch(SetWillBeRecorded{Record: true})
	assert.True(t, st.State().PreMeeting.WillBeRecorded)
	st.Dispatch(SetWillBeRecorded{Record: false})

	assert.Equal(t, before, st.State().PreMeeting.WillBeRecorded)
}

func TestPreMeetingReducer(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})

	st.Dispatch(SetPremeetingModerator{IsModerator: true})
	st.Dispatch(SetUnsafeRoomConsent{Consent: true})
	st.Dispatch(SetWillBeTranscribed{Transcribe: true})
	result := &domain.PreCallResult{RTT: 12, MediaConnectivity: true}
	st.Dispatch(SetPreCallTestResults{Value: domain.PreCallTestState{Status: domain.PreCallFinished, Result: result}})

	pm := st.State().PreMeeting
	assert.True(t, pm.IsPremeetingModerator)
	assert.True(t, pm.UnsafeRoomConsent)
	assert.True(t, pm.WillBeTranscribed)
	assert.False(t, pm.WillBeRecorded)
	assert.Equal(t, domain.PreCallFinished, pm.PreCallTest.Status)
	assert.Equal(t, 12.0, pm.PreCallTest.Result.RTT)
}

func TestSavePollUpsertKeepsInsertionOrder(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})

	st.Dispatch(SavePoll{ID: "b", Poll: domain.Poll{Question: "first"}})
	st.Dispatch(SavePoll{ID: "a", Poll: domain.Poll{Question: "second"}})
	st.Dispatch(SavePoll{ID: "b", Poll: domain.Poll{Question: "first, edited"}})

	polls := st.State().Polls
	assert.Equal(t, []domain.PollID{"b", "a"}, polls.IDs())
	p, ok := polls.Get("b")
	require.True(t, ok)
	assert.Equal(t, "first, edited", p.Question)
}

func TestEditingPollFirstFoundWins(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})

	_, _, ok := st.State().Polls.EditingPoll()
	assert.False(t, ok)

	st.Dispatch(SavePoll{ID: "x", Poll: domain.Poll{Question: "x"}})
	st.Dispatch(SavePoll{ID: "y", Poll: domain.Poll{Question: "y", Editing: true}})
	st.Dispatch(SavePoll{ID: "z", Poll: domain.Poll{Question: "z", Editing: true}})

	id, p, ok := st.State().Polls.EditingPoll()
	require.True(t, ok)
	assert.Equal(t, domain.PollID("y"), id)
	assert.Equal(t, "y", p.Question)

	st.Dispatch(SetPollEditing{ID: "y", Editing: false})
	id, _, ok = st.State().Polls.EditingPoll()
	require.True(t, ok)
	assert.Equal(t, domain.PollID("z"), id)
}

func TestRegisterVoteReducer(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})
	st.Dispatch(SavePoll{ID: "p", Poll: domain.Poll{
		Question:         "lunch?",
		Answers:          []domain.Answer{{Name: "yes"}, {Name: "no"}},
		IsSingleChoice:   true,
		IsVoteChangeable: true,
	}})
	before := st.State()

	st.Dispatch(RegisterVote{ID: "p", VoterID: "alice", Choice: []bool{true, false}})
	st.Dispatch(RegisterVote{ID: "p", VoterID: "bob", Choice: []bool{true, true}})
	st.Dispatch(RegisterVote{ID: "missing", VoterID: "bob", Choice: []bool{true}})

	p, _ := st.State().Polls.Get("p")
	assert.Equal(t, []string{"alice"}, p.Answers[0].Voters)
	assert.Empty(t, p.Answers[1].Voters)

	old, _ := before.Polls.Get("p")
	assert.Empty(t, old.Answers[0].Voters, "earlier state must not change")
}

func TestTranscribingReducer(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})

	st.Dispatch(ConferencePropertiesChanged{Properties: map[string]string{"other": "x"}})
	assert.False(t, st.State().Transcribing.IsTranscribing)

	st.Dispatch(ConferencePropertiesChanged{Properties: map[string]string{domain.AudioRecordingProperty: "true"}})
	assert.True(t, st.State().Transcribing.IsTranscribing)

	st.Dispatch(ConferencePropertiesChanged{Properties: map[string]string{domain.AudioRecordingProperty: "yes"}})
	assert.False(t, st.State().Transcribing.IsTranscribing)

	st.Dispatch(TranscriberJoined{JID: "transcriber@recorder"})
	assert.True(t, st.State().Transcribing.IsTranscribing)
	assert.Equal(t, "transcriber@recorder", st.State().Transcribing.TranscriberJID)

	st.Dispatch(TranscriberLeft{JID: "transcriber@recorder"})
	assert.False(t, st.State().Transcribing.IsTranscribing)
	assert.Empty(t, st.State().Transcribing.TranscriberJID)
}

func TestTranscribingMiddleware(t *testing.T) {
	n := &recordingNotifier{}
	st := NewClientStore(n)

	st.Dispatch(TranscriberLeft{JID: "t", Abruptly: false})
	assert.Empty(t, n.keys())

	st.Dispatch(TranscriberLeft{JID: "t", Abruptly: true})
	assert.Equal(t, []string{"transcribing.failed"}, n.keys())

	approved := domain.ConferenceMetadata{TranscribingPoll: &domain.PollApproval{Approved: true}}
	st.Dispatch(UpdateConferenceMetadata{Metadata: approved})
	st.Dispatch(UpdateConferenceMetadata{Metadata: approved})

	assert.Equal(t, []string{"transcribing.failed", "transcribing.pollApproved"}, n.keys())
	assert.True(t, st.State().Transcribing.PollApproved)
}

func TestConferenceJoinedReadsRecordingPoll(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})

	st.Dispatch(ConferenceJoined{Metadata: domain.ConferenceMetadata{RecordingPoll: &domain.PollApproval{Approved: true}}})
	assert.True(t, st.State().Transcribing.PollApproved)

	st.Dispatch(ConferenceJoined{})
	assert.False(t, st.State().Transcribing.PollApproved)
}

func TestSubscribe(t *testing.T) {
	st := NewClientStore(&recordingNotifier{})

	var seen []bool
	cancel := st.Subscribe(func(s State) {
		seen = append(seen, s.PreMeeting.WillBeRecorded)
	})
	st.Dispatch(SetWillBeRecorded{Record: true})
	cancel()
	st.Dispatch(SetWillBeRecorded{Record: false})

	assert.Equal(t, []bool{true}, seen)
}
