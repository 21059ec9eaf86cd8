package domain

import (
	"net/url"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// AncillarySuffix marks the pre-meeting channel apart from the conference room itself.
const AncillarySuffix = "premeeting"

// RoomName is a backend-safe room identifier.
type RoomName string

func (r RoomName) String() string {
	return string(r)
}

// AncillaryRoomName derives the pre-meeting signaling room from a meeting room name.
func AncillaryRoomName(roomName string) RoomName {
	stripped := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, roomName)

	return BackendSafeRoomName(stripped + AncillarySuffix)
}

// BackendSafeRoomName decodes any percent-encoding, applies NFKC, lower-cases and
// re-encodes the result so that two spellings of one room collide on purpose.
func BackendSafeRoomName(room string) RoomName {
	if room == "" {
		return ""
	}
	if decoded, err := url.PathUnescape(room); err == nil {
		room = decoded
	}
	room = norm.NFKC.String(room)
	room = strings.ToLower(room)
	return RoomName(strings.ToLower(encodeURIComponent(room)))
}

func encodeURIComponent(s string) string {
	const hex = "0123456789ABCDEF"

	var b strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		if isUnreserved(c) {
			b.WriteByte(c)
			continue
		}
		b.WriteByte('%')
		b.WriteByte(hex[c>>4])
		b.WriteByte(hex[c&0x0f])
	}
	return b.String()
}

func isUnreserved(c byte) bool {
	switch {
	case 'a' <= c && c <= 'z', 'A' <= c && c <= 'Z', '0' <= c && c <= '9':
		return true
	}
	return strings.IndexByte("-_.!~*'()", c) >= 0
}
