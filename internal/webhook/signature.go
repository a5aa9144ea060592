package webhook

import (
	"crypto/hmac"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"hash"
	"strings"
)

// VerifySignature checks an HMAC signature header over the raw payload.
// Accepted forms: "sha256=<hex>", "sha1=<hex>", or bare hex which defaults
// to sha256. Comparison is constant-time.
func VerifySignature(payload []byte, header string, secret []byte) bool {
	if header == "" || len(secret) == 0 {
		return false
	}
	algo := "sha256"
	sig := header
	if i := strings.IndexByte(header, '='); i >= 0 {
		algo = strings.ToLower(header[:i])
		sig = header[i+1:]
	}
	var newHash func() hash.Hash
	switch algo {
	case "sha256":
		newHash = sha256.New
	case "sha1":
		newHash = sha1.New
	default:
		return false
	}
	want, err := hex.DecodeString(strings.TrimSpace(sig))
	if err != nil {
		return false
	}
	mac := hmac.New(newHash, secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), want)
}
