// Package authhttp exposes the account endpoints over HTTP.
//
// Browser forms get the classic redirect flow: failures queue a flash message
// and redirect back to the form, successes redirect to the profile. Requests
// that send or accept JSON get JSON responses instead.
//
//	h := authhttp.New(sessions, resolver, local, registry, authhttp.WithNotifier(authhttp.NewFlashNotifier(jar)))
//	r := chi.NewRouter()
//	r.Use(sessions.Middleware)
//	h.Routes(r)
//
// Routes expects session.Manager.Middleware to run first; it reads the request
// principal from the context.
package authhttp
