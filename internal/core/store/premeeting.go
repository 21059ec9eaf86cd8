package store

import "github.com/Wyydra/premeet/internal/core/domain"

type SetPremeetingModerator struct {
	IsModerator bool
}

type SetUnsafeRoomConsent struct {
	Consent bool
}

// SetWillBeRecorded is a prior notice only; it never starts a recording.
type SetWillBeRecorded struct {
	Record bool
}

// SetWillBeTranscribed is a prior notice only; it never starts a transcriber.
type SetWillBeTranscribed struct {
	Transcribe bool
}

type SetPreCallTestResults struct {
	Value domain.PreCallTestState
}

func (SetPremeetingModerator) action() {}
func (SetUnsafeRoomConsent) action()   {}
func (SetWillBeRecorded) action()      {}
func (SetWillBeTranscribed) action()   {}
func (SetPreCallTestResults) action()  {}

func ReducePreMeeting(prev State, a Action) State {
	next := prev
	switch a := a.(type) {
	case SetPremeetingModerator:
		next.PreMeeting.IsPremeetingModerator = a.IsModerator
	case SetUnsafeRoomConsent:
		next.PreMeeting.UnsafeRoomConsent = a.Consent
	case SetWillBeRecorded:
		next.PreMeeting.WillBeRecorded = a.Record
	case SetWillBeTranscribed:
		next.PreMeeting.WillBeTranscribed = a.Transcribe
	case SetPreCallTestResults:
		next.PreMeeting.PreCallTest = a.Value
	}
	return next
}
