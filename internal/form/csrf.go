// internal/form/csrf.go
//
// Forms subsystem: stateless CSRF token utilities.
//
// Context
//   Public form pages embed a hidden `csrf_token` input generated at render
//   time.  The token is bound to the form id so a token minted for one form
//   cannot be replayed against another:
//
//      base64url( nonce | unixMicro | HMAC_SHA256(secret, nonce+unixMicro+formID) )
//
//   Validation checks the signature and that the timestamp is within
//   maxAge.  No server-side state is required.
//
// Workflow
//   •  SetCSRFSecret(key)          → once at boot, from configuration.
//   •  GenerateToken(formID)       → token string for the renderer.
//   •  VerifyToken(formID, tok)    → constant-time verify; false on failure.
//
//------------------------------------------------------------------------------

package form

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"sync"
	"time"
)

const (
	tokenBytes = 16 + 8 + sha256.Size // nonce + ts + sig
	maxAge     = 2 * time.Hour        // token valid window
)

var (
	secretMu  sync.RWMutex
	secretKey []byte
)

// SetCSRFSecret installs the HMAC key.  Keys shorter than 32 bytes are
// replaced by a random per-process key, which invalidates tokens on restart.
// It reports whether the supplied key was used.
func SetCSRFSecret(key []byte) bool {
	secretMu.Lock()
	defer secretMu.Unlock()
	if len(key) >= 32 {
		secretKey = append([]byte(nil), key...)
		return true
	}
	secretKey = make([]byte, 32)
	_, _ = rand.Read(secretKey)
	return false
}

// GenerateToken creates a new CSRF token for formID.  Call once per render.
func GenerateToken(formID string) (string, error) {
	nonce := make([]byte, 16)
	if _, err := rand.Read(nonce); err != nil {
		return "", err
	}

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(time.Now().UnixMicro()))

	buf := make([]byte, 0, tokenBytes)
	buf = append(buf, nonce...)
	buf = append(buf, ts...)
	buf = append(buf, sign(nonce, ts, formID)...)

	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// VerifyToken returns true if tok passes HMAC and age checks for formID.
func VerifyToken(formID, tok string) bool {
	raw, err := base64.RawURLEncoding.DecodeString(tok)
	if err != nil || len(raw) != tokenBytes {
		return false
	}

	nonce := raw[:16]
	tsBytes := raw[16:24]
	sig := raw[24:]

	issued := time.UnixMicro(int64(binary.BigEndian.Uint64(tsBytes)))
	if time.Since(issued) > maxAge || time.Until(issued) > time.Minute {
		return false
	}

	return hmac.Equal(sig, sign(nonce, tsBytes, formID))
}

func sign(nonce, ts []byte, formID string) []byte {
	mac := hmac.New(sha256.New, fetchSecret())
	mac.Write(nonce)
	mac.Write(ts)
	mac.Write([]byte(formID))
	return mac.Sum(nil)
}

// fetchSecret returns the process-wide key, generating a random one when
// SetCSRFSecret was never called.
func fetchSecret() []byte {
	secretMu.RLock()
	k := secretKey
	secretMu.RUnlock()
	if k != nil {
		return k
	}

	secretMu.Lock()
	defer secretMu.Unlock()
	if secretKey == nil {
		secretKey = make([]byte, 32)
		_, _ = rand.Read(secretKey)
	}
	return secretKey
}
