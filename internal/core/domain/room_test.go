package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAncillaryRoomName(t *testing.T) {
	cases := []struct {
		in   string
		want RoomName
	}{
		{"standup", "standuppremeeting"},
		{"Team Sync", "teamsyncpremeeting"},
		{" tabs\tand\nnewlines ", "tabsandnewlinespremeeting"},
		{"Caf%C3%A9", "caf%c3%a9premeeting"},
		{"Café", "caf%c3%a9premeeting"},
		{"ｆｕｌｌｗｉｄｔｈ", "fullwidthpremeeting"},
		{"a/b?c", "a%2fb%3fcpremeeting"},
		{"", "premeeting"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, AncillaryRoomName(tc.in), "input %q", tc.in)
	}
}

func TestBackendSafeRoomNameKeepsUnreserved(t *testing.T) {
	assert.Equal(t, RoomName("it's-(ok)_~*.!"), BackendSafeRoomName("It's-(OK)_~*.!"))
	assert.Equal(t, RoomName(""), BackendSafeRoomName(""))
}

func TestBackendSafeRoomNameBadEscapeIsKept(t *testing.T) {
	assert.Equal(t, RoomName("100%25"), BackendSafeRoomName("100%"))
}
