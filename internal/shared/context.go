package shared

import (
	"context"
	"strconv"
)

// Identity is the resolved caller of an operation. It is produced by token
// verification and consumed by authorization checks.
type Identity struct {
	UserID int64
	Role   string
}

// Subject renders the identity for audit trails.
func (i Identity) Subject() string {
	if i.UserID == 0 {
		return "anonymous"
	}
	return strconv.FormatInt(i.UserID, 10)
}

type identityContextKey struct{}

// ContextWithIdentity stores the identity in context.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityContextKey{}, id)
}

// IdentityFromContext extracts the identity from context.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityContextKey{}).(Identity)
	return id, ok
}

// ActorID returns the user id from context, or 0 when none is present.
func ActorID(ctx context.Context) int64 {
	id, _ := IdentityFromContext(ctx)
	return id.UserID
}
