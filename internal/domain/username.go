package domain

import (
	"fmt"
	"strings"
	"time"
)

// PlaceholderUsernamePrefix marks usernames generated by the system when an
// identity is discovered before its owner ever chose a name. A placeholder may
// be replaced by a ledger-supplied username; a user-chosen one never is.
const PlaceholderUsernamePrefix = "user_"

// PlaceholderUsername builds the system-generated username for a token.
func PlaceholderUsername(tokenID uint64) string {
	return fmt.Sprintf("%s%d", PlaceholderUsernamePrefix, tokenID)
}

// IsPlaceholderUsername reports whether a username was system-generated.
func IsPlaceholderUsername(username string) bool {
	return strings.HasPrefix(username, PlaceholderUsernamePrefix)
}

// UsernameCandidates returns the deterministic sequence of usernames to try
// when inserting an identity: the desired name, then "{name}_{tokenID}", then
// "{name}_{last4 of unix timestamp}". The last candidate changes every write
// attempt, so the sequence always terminates with a unique, non-empty name.
func UsernameCandidates(desired string, tokenID uint64, now time.Time) []string {
	if desired == "" {
		desired = PlaceholderUsername(tokenID)
	}

	unix := fmt.Sprintf("%d", now.Unix())
	last4 := unix
	if len(unix) > 4 {
		last4 = unix[len(unix)-4:]
	}

	return []string{
		desired,
		fmt.Sprintf("%s_%d", desired, tokenID),
		fmt.Sprintf("%s_%s", desired, last4),
	}
}
