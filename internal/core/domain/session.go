package domain

// SessionEvent is anything the ancillary channel reports to a participant.
type SessionEvent interface {
	sessionEvent()
}

// SessionAdmitted is delivered once, when the local side enters the room.
// ParticipantCount includes the local participant. Metadata is the room
// metadata at admission time.
type SessionAdmitted struct {
	LocalID          ParticipantID
	ParticipantCount int
	Role             Role
	Metadata         ConferenceMetadata
}

type RoleChanged struct {
	ParticipantID ParticipantID
	Role          Role
}

type ParticipantJoined struct {
	ParticipantID    ParticipantID
	ParticipantCount int
}

type ParticipantLeft struct {
	ParticipantID    ParticipantID
	ParticipantCount int
}

type TextReceived struct {
	From ParticipantID
	Text string
}

type MetadataUpdated struct {
	Metadata ConferenceMetadata
}

type PropertiesChanged struct {
	Properties map[string]string
}

type TranscriberJoined struct {
	JID string
}

type TranscriberLeft struct {
	JID      string
	Abruptly bool
}

// SessionClosed is the last event of a session. Err is nil on a clean close.
type SessionClosed struct {
	Err error
}

func (SessionAdmitted) sessionEvent()   {}
func (RoleChanged) sessionEvent()       {}
func (ParticipantJoined) sessionEvent() {}
func (ParticipantLeft) sessionEvent()   {}
func (TextReceived) sessionEvent()      {}
func (MetadataUpdated) sessionEvent()   {}
func (PropertiesChanged) sessionEvent() {}
func (TranscriberJoined) sessionEvent() {}
func (TranscriberLeft) sessionEvent()   {}
func (SessionClosed) sessionEvent()     {}

// ConferenceMetadata is the subset of room metadata the client reacts to.
type ConferenceMetadata struct {
	TranscribingPoll *PollApproval `json:"transcribingPoll,omitempty"`
	RecordingPoll    *PollApproval `json:"recordingPoll,omitempty"`
}

type PollApproval struct {
	Approved bool `json:"approved"`
}
