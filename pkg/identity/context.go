package identity

import "context"

type principalContextKey struct{}
type userContextKey struct{}

// WithPrincipal stores the request principal in ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal stored in ctx, or an anonymous
// principal when none is set.
func PrincipalFromContext(ctx context.Context) Principal {
	p, _ := ctx.Value(principalContextKey{}).(Principal)
	return p
}

// WithUser stores the signed-in user in ctx along with its principal.
func WithUser(ctx context.Context, u *User) context.Context {
	if u == nil {
		return ctx
	}
	ctx = WithPrincipal(ctx, Authenticated(u.ID))
	return context.WithValue(ctx, userContextKey{}, u)
}

// UserFromContext returns the signed-in user stored in ctx.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(userContextKey{}).(*User)
	return u, ok && u != nil
}
