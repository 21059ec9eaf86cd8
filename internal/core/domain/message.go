package domain

import (
	"errors"
	"strconv"
)

// Message is a text message exchanged on the ancillary channel.
type Message struct {
	RoomName RoomName
	SenderID ParticipantID
	Text     string
}

func NewMessage(senderID ParticipantID, room RoomName, text string) (*Message, error) {
	if text == "" {
		return nil, errors.New("message text cannot be empty")
	}
	return &Message{
		RoomName: room,
		SenderID: senderID,
		Text:     text,
	}, nil
}

const (
	recordedPrefix    = "setRecorded:"
	transcribedPrefix = "setTranscribed:"
)

// IntentMessage is the closed set of bodies recognised on the ancillary channel.
type IntentMessage interface {
	Body() string
	intentMessage()
}

type SetRecorded struct {
	Value bool
}

type SetTranscribed struct {
	Value bool
}

// UnknownIntent carries any body that is not one of the four intent messages.
type UnknownIntent struct {
	Raw string
}

func (m SetRecorded) Body() string    { return recordedPrefix + strconv.FormatBool(m.Value) }
func (m SetTranscribed) Body() string { return transcribedPrefix + strconv.FormatBool(m.Value) }
func (m UnknownIntent) Body() string  { return m.Raw }

func (SetRecorded) intentMessage()    {}
func (SetTranscribed) intentMessage() {}
func (UnknownIntent) intentMessage()  {}

// DecodeIntent requires an exact match; "setRecorded:TRUE" is unknown.
func DecodeIntent(body string) IntentMessage {
	switch body {
	case "setRecorded:true":
		return SetRecorded{Value: true}
	case "setRecorded:false":
		return SetRecorded{Value: false}
	case "setTranscribed:true":
		return SetTranscribed{Value: true}
	case "setTranscribed:false":
		return SetTranscribed{Value: false}
	default:
		return UnknownIntent{Raw: body}
	}
}

// IntentKey groups intent messages by the flag they set.
func IntentKey(m IntentMessage) string {
	switch m.(type) {
	case SetRecorded:
		return "recorded"
	case SetTranscribed:
		return "transcribed"
	default:
		return ""
	}
}

// IntentRecord is the last intent message seen for one flag of a room.
type IntentRecord struct {
	Key      string        `json:"key"`
	Body     string        `json:"body"`
	SenderID ParticipantID `json:"sender_id"`
}
