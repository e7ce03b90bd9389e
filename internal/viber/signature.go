package viber

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// Sign returns the lowercase hex HMAC-SHA256 of body keyed by authToken,
// as Viber sends it in the webhook's sig query parameter.
func Sign(body []byte, authToken string) string {
	mac := hmac.New(sha256.New, []byte(authToken))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature reports whether provided is the signature of the raw,
// unparsed body. A mismatch is a plain false, never an error.
func VerifySignature(body []byte, provided, authToken string) bool {
	return hmac.Equal([]byte(Sign(body, authToken)), []byte(provided))
}
