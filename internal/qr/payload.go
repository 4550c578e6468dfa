package qr

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// KindChild is the only entity kind currently issued in QR payloads.
const KindChild = "CHILD"

// Payload is the decoded content of a scanned QR code.
type Payload struct {
	Kind     string
	ID       string
	IssuedAt time.Time
}

// Codec encodes entity references as "KIND:ID:TIMESTAMP" strings.
//
// With a signing key configured, a hex HMAC-SHA256 over the unsigned payload
// is appended as a fourth segment and verified on parse, and payloads older
// than MaxAge are rejected. With no key the three-segment form is used and
// the timestamp is carried but not checked.
type Codec struct {
	key    []byte
	maxAge time.Duration
	now    func() time.Time
}

// NewCodec builds a codec. An empty signingKey selects the unsigned format.
func NewCodec(signingKey string, maxAge time.Duration) *Codec {
	var key []byte
	if signingKey != "" {
		key = []byte(signingKey)
	}
	return &Codec{key: key, maxAge: maxAge, now: time.Now}
}

// Generate returns the payload string for an entity reference, stamped with
// the current time in epoch milliseconds.
func (c *Codec) Generate(kind, id string) string {
	raw := fmt.Sprintf("%s:%s:%d", strings.ToUpper(kind), id, c.now().UnixMilli())
	if c.key == nil {
		return raw
	}
	return raw + ":" + c.sign(raw)
}

// Parse decodes a payload string. Malformed input is not an error, it is a
// nil result: wrong segment count, non-integer timestamp, bad signature, or
// (signed mode only) a timestamp older than MaxAge all return nil.
func (c *Codec) Parse(raw string) *Payload {
	parts := strings.Split(raw, ":")
	if c.key == nil {
		if len(parts) != 3 {
			return nil
		}
	} else {
		if len(parts) != 4 {
			return nil
		}
		unsigned := strings.Join(parts[:3], ":")
		if !hmac.Equal([]byte(c.sign(unsigned)), []byte(parts[3])) {
			return nil
		}
	}
	ms, err := strconv.ParseInt(parts[2], 10, 64)
	if err != nil {
		return nil
	}
	issued := time.UnixMilli(ms)
	if c.key != nil && c.maxAge > 0 && c.now().Sub(issued) > c.maxAge {
		return nil
	}
	return &Payload{Kind: parts[0], ID: parts[1], IssuedAt: issued}
}

func (c *Codec) sign(unsigned string) string {
	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(unsigned))
	return hex.EncodeToString(mac.Sum(nil))
}
