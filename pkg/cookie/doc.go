// Package cookie reads and writes the cookies of the auth server.
//
// A Jar is created from one or more secrets of at least 32 characters. Each
// secret is expanded with HKDF into separate signing and encryption keys.
// The first secret writes; every secret is tried when reading, which lets
// secrets be rotated without logging users out.
//
//	jar, err := cookie.New([]string{os.Getenv("COOKIE_SECRET")}, cookie.WithSecure(true))
//
//	jar.SetSigned(w, "oauth_state", state, cookie.WithMaxAge(600))
//	state, err := jar.GetSigned(r, "oauth_state")
//
//	err = jar.SetSealed(w, "sid", sessionID)
//	sid, err := jar.GetSealed(r, "sid")
//
// Signed and sealed values are bound to the cookie name: a value copied into
// a different cookie fails verification.
//
// Flash messages are queued per key with AddFlash and consumed with Flashes.
// All keys share one sealed cookie, FlashCookie.
package cookie
