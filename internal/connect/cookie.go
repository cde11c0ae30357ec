package connect

import (
	"crypto/sha256"
	"io"
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
	"golang.org/x/crypto/hkdf"
)

// CookieName carries the flow id between /connect and /oauth-callback.
const CookieName = "tp_connect"

// FlowCookie signs and encrypts the flow id cookie.
type FlowCookie struct {
	codec  *securecookie.SecureCookie
	secure bool
	ttl    time.Duration
}

// NewFlowCookie derives the cookie keys from secret. secure marks the
// cookie Secure (every environment except local).
func NewFlowCookie(secret []byte, ttl time.Duration, secure bool) *FlowCookie {
	hashKey := make([]byte, 64)
	blockKey := make([]byte, 32)
	kdf := hkdf.New(sha256.New, secret, nil, []byte("tubepost connect cookie"))
	_, _ = io.ReadFull(kdf, hashKey)
	_, _ = io.ReadFull(kdf, blockKey)

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(ttl.Seconds()))
	return &FlowCookie{codec: codec, secure: secure, ttl: ttl}
}

// Set writes the cookie for flowID.
func (c *FlowCookie) Set(w http.ResponseWriter, flowID string) error {
	value, err := c.codec.Encode(CookieName, flowID)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.ttl.Seconds()),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Read returns the flow id, or "" when the cookie is absent, tampered with
// or too old.
func (c *FlowCookie) Read(r *http.Request) string {
	ck, err := r.Cookie(CookieName)
	if err != nil {
		return ""
	}
	var flowID string
	if err := c.codec.Decode(CookieName, ck.Value, &flowID); err != nil {
		return ""
	}
	return flowID
}

// Clear expires the cookie.
func (c *FlowCookie) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
