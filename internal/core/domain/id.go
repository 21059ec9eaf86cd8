package domain

import (
	"github.com/google/uuid"
)

// ParticipantID is assigned by the signaling hub when a member is admitted.
type ParticipantID string

func NewParticipantID() ParticipantID {
	return ParticipantID(uuid.New().String())
}

func (id ParticipantID) String() string {
	return string(id)
}

type PollID string

func NewPollID() PollID {
	return PollID(uuid.New().String())
}

func (id PollID) String() string {
	return string(id)
}
