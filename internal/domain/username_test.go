package domain_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/chainrep/identity-engine/internal/domain"
)

func TestPlaceholderUsername(t *testing.T) {
	assert.Equal(t, "user_7", domain.PlaceholderUsername(7))
	assert.True(t, domain.IsPlaceholderUsername("user_7"))
	assert.True(t, domain.IsPlaceholderUsername("user_custom"))
	assert.False(t, domain.IsPlaceholderUsername("alice"))
	assert.False(t, domain.IsPlaceholderUsername(""))
}

func TestUsernameCandidates(t *testing.T) {
	now := time.Unix(1757349123, 0)

	tests := []struct {
		name     string
		desired  string
		tokenID  uint64
		expected []string
	}{
		{
			name:     "desired name first",
			desired:  "alice",
			tokenID:  7,
			expected: []string{"alice", "alice_7", "alice_9123"},
		},
		{
			name:     "empty desired falls back to placeholder",
			desired:  "",
			tokenID:  42,
			expected: []string{"user_42", "user_42_42", "user_42_9123"},
		},
		{
			name:     "token suffix distinguishes same desired name",
			desired:  "alice",
			tokenID:  5,
			expected: []string{"alice", "alice_5", "alice_9123"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := domain.UsernameCandidates(tt.desired, tt.tokenID, now)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUsernameCandidatesDeterministic(t *testing.T) {
	now := time.Unix(1757349123, 0)
	first := domain.UsernameCandidates("bob", 3, now)
	second := domain.UsernameCandidates("bob", 3, now)
	assert.Equal(t, first, second)

	// A later clock changes only the final fallback
	later := domain.UsernameCandidates("bob", 3, now.Add(time.Second))
	assert.Equal(t, first[:2], later[:2])
	assert.NotEqual(t, first[2], later[2])
}
