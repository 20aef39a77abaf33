package sharedtypes

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Score is a normalized "A{host}-B{guest}" games-won score.
type Score string

var scorePattern = regexp.MustCompile(`^A(\d+)-B(\d+)$`)

// NormalizeScore validates raw input and returns the canonical score form.
// Games won must be between 0 and 5 per side.
func NormalizeScore(raw string) (Score, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	match := scorePattern.FindStringSubmatch(normalized)
	if match == nil {
		return "", fmt.Errorf("score %q does not match A{0-5}-B{0-5}", raw)
	}
	host, _ := strconv.Atoi(match[1])
	guest, _ := strconv.Atoi(match[2])
	if host > 5 || guest > 5 {
		return "", fmt.Errorf("score %q exceeds 5 games per side", raw)
	}
	return Score(fmt.Sprintf("A%d-B%d", host, guest)), nil
}

// Games returns the host and guest games won. ok is false when the score is
// not in canonical form.
func (s Score) Games() (host, guest int, ok bool) {
	match := scorePattern.FindStringSubmatch(string(s))
	if match == nil {
		return 0, 0, false
	}
	host, _ = strconv.Atoi(match[1])
	guest, _ = strconv.Atoi(match[2])
	return host, guest, true
}

// HostWon reports whether the host took more games than the guest.
func (s Score) HostWon() bool {
	host, guest, ok := s.Games()
	return ok && host > guest
}
