// Package provider implements the federated login handshakes and maps each
// provider's profile to an identity.Credential.
//
// One adapter exists per protocol family: facebook and google use OAuth2,
// twitter uses OAuth1, and the four OpenID names share a generic adapter that
// differs only by endpoints. Build creates the adapters from a table of
// Config records, usually loaded with LoadConfigFile:
//
//	cfgs, err := provider.LoadConfigFile("providers.yaml")
//	if err != nil {
//		return err
//	}
//	reg, err := provider.Build(cfgs, provider.WithBaseURL("https://auth.example.com"))
//
//	adapter, err := reg.Get("google")
//	redirect, err := adapter.AuthURL(ctx, state)
//	// ... on callback:
//	cred, err := adapter.Exchange(ctx, r.URL.Query())
//
// Adapters never touch the user store; resolving the credential to an
// account is identity.Resolver's job.
package provider
