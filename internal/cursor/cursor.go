package cursor

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"
)

// ErrInvalidCursor is returned for every cursor that fails decoding or
// authentication. Callers get no detail about which check failed.
var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is the resume point for keyset pagination. Besides the last-seen
// sort key it carries the sort direction and active-record filter the listing
// was opened with, so follow-up pages cannot drift to a different result set.
// Depth counts how many pages the caller has walked so far and is incremented
// on every page served.
type Cursor struct {
	CreatedAt  time.Time `json:"c"`
	ID         string    `json:"i"`
	Depth      int       `json:"d"`
	ActiveOnly bool      `json:"f"`
	Ascending  bool      `json:"s"`
}

// Protector seals cursors with an HMAC so clients cannot forge or tamper
// with resume points. The wire form is base64url(payload || mac) with no
// padding.
type Protector struct {
	key      []byte
	maxDepth int
}

// NewProtector returns a Protector keyed with key. maxDepth bounds how deep
// a caller may paginate; values below 1 are clamped to 1.
func NewProtector(key []byte, maxDepth int) (*Protector, error) {
	if len(key) == 0 {
		return nil, errors.New("cursor: empty hmac key")
	}
	if maxDepth < 1 {
		maxDepth = 1
	}
	return &Protector{key: key, maxDepth: maxDepth}, nil
}

// MaxDepth returns the pagination depth ceiling.
func (p *Protector) MaxDepth() int {
	return p.maxDepth
}

func (p *Protector) mac(payload []byte) []byte {
	h := hmac.New(sha256.New, p.key)
	h.Write(payload)
	return h.Sum(nil)
}

// Seal encodes c into an opaque token.
func (p *Protector) Seal(c Cursor) (string, error) {
	payload, err := json.Marshal(c)
	if err != nil {
		return "", err
	}
	token := append(payload, p.mac(payload)...)
	return base64.RawURLEncoding.EncodeToString(token), nil
}

// Open decodes and authenticates a token produced by Seal. Any malformed,
// truncated, or tampered token yields ErrInvalidCursor.
func (p *Protector) Open(token string) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if len(raw) <= sha256.Size {
		return Cursor{}, ErrInvalidCursor
	}
	payload, mac := raw[:len(raw)-sha256.Size], raw[len(raw)-sha256.Size:]
	if !hmac.Equal(mac, p.mac(payload)) {
		return Cursor{}, ErrInvalidCursor
	}
	var c Cursor
	if err := json.Unmarshal(payload, &c); err != nil {
		return Cursor{}, ErrInvalidCursor
	}
	if c.Depth < 0 {
		return Cursor{}, ErrInvalidCursor
	}
	return c, nil
}

// Exhausted reports whether c has reached the depth ceiling. Exhausted
// cursors are not an error; the caller serves an empty final page instead.
func (p *Protector) Exhausted(c Cursor) bool {
	return c.Depth >= p.maxDepth
}
