// Package protocol defines the JSON frames exchanged on the ancillary channel.
package protocol

import (
	"github.com/Wyydra/premeet/internal/core/domain"
)

type FrameType string

const (
	FrameJoined            FrameType = "joined"
	FrameParticipantJoined FrameType = "participant_joined"
	FrameParticipantLeft   FrameType = "participant_left"
	FrameRoleChanged       FrameType = "role_changed"
	FrameMessage           FrameType = "message"
	FrameMetadataUpdated   FrameType = "metadata_updated"
	FramePropertiesChanged FrameType = "properties_changed"
	FrameTranscriberJoined FrameType = "transcriber_joined"
	FrameTranscriberLeft   FrameType = "transcriber_left"
)

// RoomQueryParam names the ancillary room in the signaling URL.
const RoomQueryParam = "room"

type Frame struct {
	Type             FrameType                  `json:"type"`
	ParticipantID    string                     `json:"participant_id,omitempty"`
	ParticipantCount int                        `json:"participant_count,omitempty"`
	Role             string                     `json:"role,omitempty"`
	From             string                     `json:"from,omitempty"`
	Text             string                     `json:"text,omitempty"`
	Metadata         *domain.ConferenceMetadata `json:"metadata,omitempty"`
	Properties       map[string]string          `json:"properties,omitempty"`
	TranscriberJID   string                     `json:"transcriber_jid,omitempty"`
	Abruptly         bool                       `json:"abruptly,omitempty"`
}

// ToEvent maps a server frame to a session event. ok is false for frame types
// a participant does not handle.
func (f Frame) ToEvent() (ev domain.SessionEvent, ok bool) {
	switch f.Type {
	case FrameJoined:
		return domain.SessionAdmitted{
			LocalID:          domain.ParticipantID(f.ParticipantID),
			ParticipantCount: f.ParticipantCount,
			Role:             domain.Role(f.Role),
			Metadata:         metadata(f.Metadata),
		}, true
	case FrameParticipantJoined:
		return domain.ParticipantJoined{
			ParticipantID:    domain.ParticipantID(f.ParticipantID),
			ParticipantCount: f.ParticipantCount,
		}, true
	case FrameParticipantLeft:
		return domain.ParticipantLeft{
			ParticipantID:    domain.ParticipantID(f.ParticipantID),
			ParticipantCount: f.ParticipantCount,
		}, true
	case FrameRoleChanged:
		return domain.RoleChanged{
			ParticipantID: domain.ParticipantID(f.ParticipantID),
			Role:          domain.Role(f.Role),
		}, true
	case FrameMessage:
		return domain.TextReceived{From: domain.ParticipantID(f.From), Text: f.Text}, true
	case FrameMetadataUpdated:
		if f.Metadata == nil {
			return nil, false
		}
		return domain.MetadataUpdated{Metadata: *f.Metadata}, true
	case FramePropertiesChanged:
		return domain.PropertiesChanged{Properties: f.Properties}, true
	case FrameTranscriberJoined:
		return domain.TranscriberJoined{JID: f.TranscriberJID}, true
	case FrameTranscriberLeft:
		return domain.TranscriberLeft{JID: f.TranscriberJID, Abruptly: f.Abruptly}, true
	default:
		return nil, false
	}
}

func metadata(md *domain.ConferenceMetadata) domain.ConferenceMetadata {
	if md == nil {
		return domain.ConferenceMetadata{}
	}
	return *md
}
