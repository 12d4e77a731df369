package session

import "context"

type ctxKey struct{}

// withSession is called by Middleware once the session is loaded.
func withSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session Middleware loaded for the request. Requests
// that never touched a session (no cookie, nothing stored) have none.
func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}
