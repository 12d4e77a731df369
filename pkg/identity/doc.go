// Package identity resolves provider credentials and local passwords to user
// accounts.
//
// Three services share one Store:
//
//   - Resolver handles every federated callback. With an anonymous principal
//     it logs in the account holding (provider, provider id) or creates one;
//     with an authenticated principal it links the credential to that account.
//   - LocalStrategy implements email and password signup and login.
//   - Codec stores only a user id in the session and re-fetches the account on
//     every request.
//
// The principal is always passed explicitly:
//
//	store := identity.NewMemoryStore()
//	resolver := identity.NewResolver(store, identity.WithLogger(log))
//
//	res, err := resolver.Resolve(ctx, cred, identity.Anonymous())
//	if err != nil {
//		// errors.Is(err, identity.ErrStorage) etc.
//	}
//
// Store implementations must enforce uniqueness of (provider, provider id) and
// of the local email and report violations with ErrDuplicate. The resolver
// relies on that to survive two concurrent callbacks for the same new identity.
package identity
