package protocol

import "testing"

func TestIsKnownCode(t *testing.T) {
	for _, c := range []string{ErrArenaFull, ErrNotJoined, ErrChatUsed, ErrRateLimit, ErrBadRequest} {
		if !IsKnownCode(c) {
			t.Fatalf("expected known code: %q", c)
		}
	}
	for _, c := range []string{"", "E_NOT_DEFINED"} {
		if IsKnownCode(c) {
			t.Fatalf("expected unknown code rejected: %q", c)
		}
	}
}

func TestEncodeError(t *testing.T) {
	b, err := EncodeError(ErrChatUsed, "one chat per round")
	if err != nil {
		t.Fatalf("EncodeError: %v", err)
	}
	if typ, _ := PeekType(b); typ != TypeError {
		t.Fatalf("type: %q", typ)
	}
	var m ErrorMsg
	if err := Decode(b, &m); err != nil || m.Code != ErrChatUsed || m.Message != "one chat per round" {
		t.Fatalf("decoded %+v err=%v", m, err)
	}
	if _, err := EncodeError("E_NOPE", ""); err == nil {
		t.Fatalf("expected unknown code refused")
	}
}

func TestCloseCodes(t *testing.T) {
	want := map[CloseCode]int{
		CloseAFKTimeout:      4000,
		CloseNameTooLong:     4001,
		CloseTeamTooLong:     4002,
		CloseControlChars:    4003,
		CloseViewportTooWide: 4010,
	}
	for c, n := range want {
		if int(c) != n {
			t.Fatalf("close code %v != %d", c, n)
		}
		if !IsKnownCloseCode(c) || c.Reason() == "" {
			t.Fatalf("close code %d has no reason", n)
		}
	}
	if IsKnownCloseCode(4999) {
		t.Fatalf("expected unknown close code rejected")
	}
}
