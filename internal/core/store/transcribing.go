package store

import (
	"github.com/Wyydra/premeet/internal/core/domain"
	"github.com/Wyydra/premeet/internal/core/port"
)

type ConferenceJoined struct {
	Metadata domain.ConferenceMetadata
}

type ConferencePropertiesChanged struct {
	Properties map[string]string
}

type TranscriberJoined struct {
	JID string
}

type TranscriberLeft struct {
	JID      string
	Abruptly bool
}

type UpdateConferenceMetadata struct {
	Metadata domain.ConferenceMetadata
}

type SetTranscribingPollApproved struct {
	Approved bool
}

func (ConferenceJoined) action()            {}
func (ConferencePropertiesChanged) action() {}
func (TranscriberJoined) action()           {}
func (TranscriberLeft) action()             {}
func (UpdateConferenceMetadata) action()    {}
func (SetTranscribingPollApproved) action() {}

func ReduceTranscribing(prev State, a Action) State {
	next := prev
	switch a := a.(type) {
	case ConferencePropertiesChanged:
		v, ok := a.Properties[domain.AudioRecordingProperty]
		if !ok {
			return prev
		}
		next.Transcribing.IsTranscribing = v == "true"
	case TranscriberJoined:
		next.Transcribing.IsTranscribing = true
		next.Transcribing.TranscriberJID = a.JID
	case TranscriberLeft:
		next.Transcribing.IsTranscribing = false
		next.Transcribing.TranscriberJID = ""
	case UpdateConferenceMetadata:
		if a.Metadata.TranscribingPoll != nil && a.Metadata.TranscribingPoll.Approved {
			next.Transcribing.PollApproved = true
		}
	case SetTranscribingPollApproved:
		next.Transcribing.PollApproved = a.Approved
	}
	return next
}

// TranscribingMiddleware turns transcriber events into user notifications.
func TranscribingMiddleware(n port.Notifier) Middleware {
	return func(s *Store, prev State, a Action) {
		switch a := a.(type) {
		case ConferenceJoined:
			approved := a.Metadata.RecordingPoll != nil && a.Metadata.RecordingPoll.Approved
			s.Dispatch(SetTranscribingPollApproved{Approved: approved})
		case TranscriberLeft:
			if a.Abruptly {
				n.Notify(port.Notification{
					TitleKey: "transcribing.failed",
					Kind:     port.NotificationError,
					Timeout:  port.TimeoutLong,
				})
			}
		case UpdateConferenceMetadata:
			if !prev.Transcribing.PollApproved && a.Metadata.TranscribingPoll != nil && a.Metadata.TranscribingPoll.Approved {
				n.Notify(port.Notification{
					TitleKey: "transcribing.pollApproved",
					Kind:     port.NotificationNormal,
					Timeout:  port.TimeoutMedium,
				})
			}
		}
	}
}
