package protocol

import "testing"

var testLimits = Limits{NameMaxRunes: 8, TeamMaxRunes: 5, ChatMaxRunes: 15, MaxViewportW: 540, MaxViewportH: 1020}

func TestValidateJoin(t *testing.T) {
	cases := []struct {
		msg  JoinMsg
		name string
		team string
		code CloseCode
	}{
		{JoinMsg{Name: "alice", Team: "RED"}, "alice", "RED", 0},
		{JoinMsg{Name: "[ab]cdefgh", Team: "[x]"}, "abcdefgh", "x", 0},
		{JoinMsg{Name: "ninechars"}, "", "", CloseNameTooLong},
		{JoinMsg{Name: "ok", Team: "sixsix"}, "", "", CloseTeamTooLong},
		{JoinMsg{Name: "a\x01b"}, "", "", CloseControlChars},
		{JoinMsg{Name: "ok", Team: "t\x7f"}, "", "", CloseControlChars},
		{JoinMsg{Name: "じんとりプレイヤ"}, "じんとりプレイヤ", "", 0},
		{JoinMsg{Name: "  "}, "", "", 0},
	}
	for _, c := range cases {
		name, team, code := ValidateJoin(c.msg, testLimits)
		if code != c.code || name != c.name || team != c.team {
			t.Fatalf("ValidateJoin(%+v) = %q,%q,%d want %q,%q,%d", c.msg, name, team, code, c.name, c.team, c.code)
		}
	}
}

func TestValidateViewport(t *testing.T) {
	if ok, code := ValidateViewport(ViewportMsg{W: 541, H: 800}, testLimits, 100); ok || code != CloseViewportTooWide {
		t.Fatalf("wide viewport accepted: %v %d", ok, code)
	}
	if ok, code := ValidateViewport(ViewportMsg{W: 400, H: 1021}, testLimits, 100); ok || code != CloseViewportTooWide {
		t.Fatalf("tall viewport accepted: %v %d", ok, code)
	}
	if ok, code := ValidateViewport(ViewportMsg{W: 50, H: 800}, testLimits, 100); ok || code != 0 {
		t.Fatalf("tiny viewport: %v %d", ok, code)
	}
	if ok, code := ValidateViewport(ViewportMsg{W: 390, H: 844}, testLimits, 100); !ok || code != 0 {
		t.Fatalf("phone viewport rejected: %v %d", ok, code)
	}
}

func TestNormalizeChat(t *testing.T) {
	if _, ok := NormalizeChat("hi\nthere", 15); ok {
		t.Fatalf("control char accepted")
	}
	if _, ok := NormalizeChat("   ", 15); ok {
		t.Fatalf("blank chat accepted")
	}
	got, ok := NormalizeChat("0123456789abcdefghij", 15)
	if !ok || got != "0123456789abcde" {
		t.Fatalf("truncate: %q %v", got, ok)
	}
}

func TestNormalizeTeam(t *testing.T) {
	if got := NormalizeTeam("[ABCDEFG]", 5); got != "ABCDE" {
		t.Fatalf("NormalizeTeam=%q", got)
	}
}
