package encryption

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChallengePassword(t *testing.T) {
	tests := []struct {
		name      string
		appToken  string
		challenge string
		want      string
	}{
		{
			name:      "reference vector",
			appToken:  "key",
			challenge: "The quick brown fox jumps over the lazy dog",
			want:      "de7c9b85b8b78aa6bc8a7a36f70a90701c9db4d9",
		},
		{
			name:      "empty inputs",
			appToken:  "",
			challenge: "",
			want:      "fbdb1d1b18aa6c08324b7d64b71fb76370690e1d",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ChallengePassword(tt.appToken, tt.challenge))
		})
	}
}

func TestChallengePassword_Deterministic(t *testing.T) {
	first := ChallengePassword("app-token", "challenge")

	assert.Equal(t, first, ChallengePassword("app-token", "challenge"))
	assert.Len(t, first, 40)
	assert.NotEqual(t, first, ChallengePassword("app-token", "other challenge"))
	assert.NotEqual(t, first, ChallengePassword("other token", "challenge"))
}

func TestVerifyChallengePassword(t *testing.T) {
	password := ChallengePassword("app-token", "challenge")

	assert.True(t, VerifyChallengePassword("app-token", "challenge", password))
	assert.False(t, VerifyChallengePassword("app-token", "challenge", "deadbeef"))
	assert.False(t, VerifyChallengePassword("wrong", "challenge", password))
}
