// internal/auth/context.go
//
// Signed-in user on the request context.
//
// Usage
// -----
//
//	ctx = auth.WithUser(ctx, "ann@example.com")
//	email, ok := auth.User(ctx)
package auth

import "context"

// userKey is unexported to avoid context-key collisions.
type userKey struct{}

// WithUser returns a new context carrying the signed-in email.
func WithUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userKey{}, email)
}

// User extracts the email from ctx.  It returns ("", false) when nobody is
// signed in.
func User(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(userKey{}).(string)
	return email, ok && email != ""
}
