package webhook

import (
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func strconvUnix(ts time.Time) string {
	return strconv.FormatInt(ts.Unix(), 10)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"ref":"main"}`)
	now := time.Unix(1_700_000_000, 0)

	h := http.Header{}
	h.Set(HeaderGitHubSignature, SignGitHub("k", body))
	assert.NoError(t, verifySignature(h, body, "k", now, time.Minute))
	assert.ErrorIs(t, verifySignature(h, []byte(`{"ref":"other"}`), "k", now, time.Minute), ErrBadSignature)

	h = http.Header{}
	h.Set(HeaderGitHubSignature, "sha256=zz")
	assert.ErrorIs(t, verifySignature(h, body, "k", now, time.Minute), ErrBadSignature)

	assert.ErrorIs(t, verifySignature(http.Header{}, body, "k", now, time.Minute), ErrMissingSignature)

	h = http.Header{}
	h.Set(HeaderFrameioTimestamp, strconvUnix(now.Add(2*time.Minute)))
	h.Set(HeaderFrameioSignature, SignFrameio("k", now.Add(2*time.Minute), body))
	assert.ErrorIs(t, verifySignature(h, body, "k", now, time.Minute), ErrStaleSignature)
	assert.NoError(t, verifySignature(h, body, "k", now, 5*time.Minute))

	h.Set(HeaderFrameioTimestamp, "yesterday")
	assert.ErrorIs(t, verifySignature(h, body, "k", now, time.Minute), ErrBadSignature)
}
