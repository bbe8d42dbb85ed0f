package encryption

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
)

// ChallengePassword answers a login challenge: the lowercase hex HMAC-SHA1 of
// challenge keyed by appToken. The token itself never leaves the process.
func ChallengePassword(appToken, challenge string) string {
	h := hmac.New(sha1.New, []byte(appToken))
	h.Write([]byte(challenge))
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyChallengePassword reports whether password answers challenge for appToken,
// comparing in constant time.
func VerifyChallengePassword(appToken, challenge, password string) bool {
	expected := ChallengePassword(appToken, challenge)
	return hmac.Equal([]byte(expected), []byte(password))
}
