package protocol

import "fmt"

// Error codes carried by ErrorMsg and ConnectResponse.Err.
const (
	ErrArenaFull  = "E_ARENA_FULL"
	ErrNotJoined  = "E_NOT_JOINED"
	ErrChatUsed   = "E_CHAT_USED"
	ErrRateLimit  = "E_RATE_LIMIT"
	ErrBadRequest = "E_BAD_REQUEST"
)

var knownCodes = map[string]struct{}{
	ErrArenaFull:  {},
	ErrNotJoined:  {},
	ErrChatUsed:   {},
	ErrRateLimit:  {},
	ErrBadRequest: {},
}

func IsKnownCode(code string) bool {
	_, ok := knownCodes[code]
	return ok
}

// EncodeError builds a msgpack error frame. Codes outside the catalog are refused.
func EncodeError(code, message string) ([]byte, error) {
	if !IsKnownCode(code) {
		return nil, fmt.Errorf("unknown error code %q", code)
	}
	return Encode(ErrorMsg{Type: TypeError, Code: code, Message: message})
}

// CloseCode is a websocket close status sent when a connection is dropped for cause.
type CloseCode int

const (
	CloseAFKTimeout      CloseCode = 4000
	CloseNameTooLong     CloseCode = 4001
	CloseTeamTooLong     CloseCode = 4002
	CloseControlChars    CloseCode = 4003
	CloseViewportTooWide CloseCode = 4010
)

var closeReasons = map[CloseCode]string{
	CloseAFKTimeout:      "AFK Timeout",
	CloseNameTooLong:     "Name too long",
	CloseTeamTooLong:     "Team name too long",
	CloseControlChars:    "Invalid characters",
	CloseViewportTooWide: "Viewport too large",
}

// Reason returns the close frame text for c, or "" for unknown codes.
func (c CloseCode) Reason() string { return closeReasons[c] }

func IsKnownCloseCode(c CloseCode) bool {
	_, ok := closeReasons[c]
	return ok
}
