package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// Signature headers.
const (
	HeaderGitHubSignature  = "X-Hub-Signature-256"
	HeaderFrameioSignature = "X-Frameio-Signature"
	HeaderFrameioTimestamp = "X-Frameio-Request-Timestamp"
)

// DefaultSignatureMaxSkew bounds the age of a timestamped signature.
const DefaultSignatureMaxSkew = 5 * time.Minute

const (
	githubSignaturePrefix   = "sha256="
	frameioSignaturePrefix  = "v0="
	frameioSignatureVersion = "v0"
)

var (
	// ErrMissingSignature indicates a delivery without a signature header.
	ErrMissingSignature = errors.New("missing signature")

	// ErrBadSignature indicates a signature that does not match the body.
	ErrBadSignature = errors.New("signature mismatch")

	// ErrStaleSignature indicates a signed timestamp outside the allowed skew.
	ErrStaleSignature = errors.New("signature timestamp outside allowed window")
)

// verifySignature authenticates body against secret using whichever
// supported signature header the request carries.
func verifySignature(h http.Header, body []byte, secret string, now time.Time, maxSkew time.Duration) error {
	if sig := h.Get(HeaderGitHubSignature); sig != "" {
		return checkMAC(secret, body, strings.TrimPrefix(sig, githubSignaturePrefix))
	}

	if sig := h.Get(HeaderFrameioSignature); sig != "" {
		ts := h.Get(HeaderFrameioTimestamp)
		unix, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			return ErrBadSignature
		}
		if skew := now.Sub(time.Unix(unix, 0)); skew > maxSkew || skew < -maxSkew {
			return ErrStaleSignature
		}
		signed := make([]byte, 0, len(ts)+len(body)+4)
		signed = append(signed, frameioSignatureVersion+":"+ts+":"...)
		signed = append(signed, body...)
		return checkMAC(secret, signed, strings.TrimPrefix(sig, frameioSignaturePrefix))
	}

	return ErrMissingSignature
}

func checkMAC(secret string, message []byte, signature string) error {
	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrBadSignature
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	if !hmac.Equal(got, mac.Sum(nil)) {
		return ErrBadSignature
	}
	return nil
}

// SignGitHub returns the X-Hub-Signature-256 value for body.
func SignGitHub(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return githubSignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// SignFrameio returns the X-Frameio-Signature value for body sent at ts.
func SignFrameio(secret string, ts time.Time, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(frameioSignatureVersion + ":" + strconv.FormatInt(ts.Unix(), 10) + ":"))
	mac.Write(body)
	return frameioSignaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
