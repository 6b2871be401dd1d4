package protocol

import (
	"strings"
	"unicode/utf8"
)

type Limits struct {
	NameMaxRunes int
	TeamMaxRunes int
	ChatMaxRunes int
	MaxViewportW int
	MaxViewportH int
}

func stripBrackets(s string) string {
	return strings.NewReplacer("[", "", "]", "").Replace(s)
}

// HasControlChars reports C0 control characters or DEL.
func HasControlChars(s string) bool {
	for i := 0; i < len(s); i++ {
		if c := s[i]; c < 0x20 || c == 0x7f {
			return true
		}
	}
	return false
}

// ValidateJoin normalizes a join request. A non-zero close code means the connection
// must be dropped. An empty returned name means the caller should pick a random one.
func ValidateJoin(m JoinMsg, lim Limits) (name, team string, code CloseCode) {
	name = strings.TrimSpace(stripBrackets(m.Name))
	if utf8.RuneCountInString(name) > lim.NameMaxRunes {
		return "", "", CloseNameTooLong
	}
	team = stripBrackets(m.Team)
	if utf8.RuneCountInString(team) > lim.TeamMaxRunes {
		return "", "", CloseTeamTooLong
	}
	if HasControlChars(m.Name) || HasControlChars(m.Team) {
		return "", "", CloseControlChars
	}
	return name, team, 0
}

// NormalizeTeam strips brackets and truncates to the rune limit.
func NormalizeTeam(team string, maxRunes int) string {
	team = stripBrackets(team)
	if utf8.RuneCountInString(team) <= maxRunes {
		return team
	}
	return string([]rune(team)[:maxRunes])
}

// ValidateViewport returns a close code for oversize screens. ok is false when the
// viewport is too small to use and should be ignored.
func ValidateViewport(m ViewportMsg, lim Limits, minSide int) (ok bool, code CloseCode) {
	if m.W > lim.MaxViewportW || m.H > lim.MaxViewportH {
		return false, CloseViewportTooWide
	}
	return m.W >= minSide && m.H >= minSide, 0
}

// NormalizeChat truncates to the rune limit. ok is false for empty text or control characters.
func NormalizeChat(text string, maxRunes int) (string, bool) {
	if HasControlChars(text) {
		return "", false
	}
	if utf8.RuneCountInString(text) > maxRunes {
		text = string([]rune(text)[:maxRunes])
	}
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	return text, true
}

func ValidPerfMode(m string) bool {
	return m == PerfAuto || m == PerfHigh || m == PerfLow
}
