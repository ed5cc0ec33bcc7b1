// internal/session/session.go
//
// Visitor cookie.
//
// Context
//   Every browser gets a random visitor id in the "formstep_visitor" cookie
//   the first time it reaches the site.  The id scopes the per-browser keys
//   in the store (submitted flags, drafts, lastFormId, signed-in user,
//   theme), which is what browser-local storage would hold.
//
//   The cookie is an identifier, not a credential.  It is not signed.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
)

const (
	cookieName = "formstep_visitor"
	maxAge     = 365 * 24 * time.Hour
)

type visitorKey struct{}

// Ensure returns the visitor id carried by r, issuing a fresh cookie when
// the request has none or it is not a UUID.
func Ensure(w http.ResponseWriter, r *http.Request) string {
	if id, ok := FromRequest(r); ok {
		return id
	}
	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     cookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
		Expires:  time.Now().Add(maxAge),
	})
	return id
}

// FromRequest reads the visitor id from the cookie.
func FromRequest(r *http.Request) (string, bool) {
	c, err := r.Cookie(cookieName)
	if err != nil {
		return "", false
	}
	if _, err := uuid.Parse(c.Value); err != nil {
		return "", false
	}
	return c.Value, true
}

// Middleware makes sure every request carries a visitor id and stores it
// on the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := Ensure(w, r)
		next.ServeHTTP(w, r.WithContext(WithVisitor(r.Context(), id)))
	})
}

// WithVisitor returns a context carrying id.
func WithVisitor(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, visitorKey{}, id)
}

// Visitor extracts the id stored by Middleware.
func Visitor(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(visitorKey{}).(string)
	return id, ok && id != ""
}
