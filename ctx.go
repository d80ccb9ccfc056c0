package gatekeeper

import (
	"context"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// WithCurrentUser sets the admitted principal in the given context
func WithCurrentUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// CurrentUser finds the admitted principal from the context. It is only
// present after the bearer guard has passed.
func CurrentUser(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok
}
