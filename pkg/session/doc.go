// Package session keeps the server-side session of each browser and binds it
// to an identity principal.
//
// A Manager reads the session token through a Transport (a sealed cookie by
// default, see NewCookieTransport), loads the Session from a Store and turns
// the stored principal back into a user with identity.Codec. Two stores are
// provided: MemoryStore on github.com/patrickmn/go-cache for single-process
// deployments, and RedisStore on github.com/redis/go-redis/v9.
//
//	jar, _ := cookie.New(secrets)
//	mgr := session.New(identity.NewCodec(users), session.NewCookieTransport(jar, "sid"),
//		session.WithStore(session.NewRedisStore(rdb, "")),
//	)
//	defer mgr.Close()
//
//	r.Use(mgr.Middleware)
//
// Middleware always stores a principal in the request context, so handlers
// read it with identity.PrincipalFromContext. When a session references a
// user that has since been deleted, the session is destroyed and the request
// proceeds anonymously.
//
// Login rotates the session token. Values set on the anonymous session, such
// as a pending OAuth state, survive the rotation.
//
// Sessions carry an idle timeout and an absolute lifetime, with separate
// values for anonymous and signed-in sessions (see Config). Activity is
// recorded asynchronously at most once per ActivityUpdateThreshold.
package session
