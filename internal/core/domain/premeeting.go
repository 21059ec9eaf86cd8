package domain

import "encoding/json"

type PreCallTestStatus string

const (
	PreCallInitial  PreCallTestStatus = "INITIAL"
	PreCallRunning  PreCallTestStatus = "RUNNING"
	PreCallFinished PreCallTestStatus = "FINISHED"
	PreCallFailed   PreCallTestStatus = "FAILED"
)

// PreCallResult is one measurement against a relay candidate.
// RTT and Jitter are in milliseconds, Throughput in kbit/s.
type PreCallResult struct {
	RTT               float64 `json:"rtt"`
	Jitter            float64 `json:"jitter"`
	FractionalLoss    float64 `json:"fractionalLoss"`
	MediaConnectivity bool    `json:"mediaConnectivity"`
	Throughput        float64 `json:"throughput"`
}

// PreCallTestState has a Result only when Status is PreCallFinished.
type PreCallTestState struct {
	Status PreCallTestStatus `json:"status"`
	Result *PreCallResult    `json:"result,omitempty"`
}

// PreMeetingState holds advisory flags only; nothing here starts a recording.
type PreMeetingState struct {
	IsPremeetingModerator bool
	PreCallTest           PreCallTestState
	UnsafeRoomConsent     bool
	WillBeRecorded        bool
	WillBeTranscribed     bool
}

func DefaultPreMeetingState() PreMeetingState {
	return PreMeetingState{
		PreCallTest: PreCallTestState{Status: PreCallInitial},
	}
}

// ICEServer is one entry of the credentials document. URLs may arrive as a
// single string or a list.
type ICEServer struct {
	URLs       ICEURLs `json:"urls" yaml:"urls"`
	Username   string  `json:"username,omitempty" yaml:"username"`
	Credential string  `json:"credential,omitempty" yaml:"credential"`
}

type ICEURLs []string

func (u *ICEURLs) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*u = ICEURLs{single}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*u = ICEURLs(list)
	return nil
}
