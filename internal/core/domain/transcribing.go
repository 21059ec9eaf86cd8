package domain

// AudioRecordingProperty is the conference property that reports transcription.
const AudioRecordingProperty = "audio-recording-enabled"

type TranscribingState struct {
	IsTranscribing bool
	TranscriberJID string
	PollApproved   bool
}
