package identity

// Principal is the authentication state of one request: anonymous, or bound
// to a user id.
type Principal struct {
	userID string
}

// Anonymous returns the principal of a caller that is not signed in.
func Anonymous() Principal {
	return Principal{}
}

// Authenticated returns the principal bound to userID. An empty id yields an
// anonymous principal.
func Authenticated(userID string) Principal {
	return Principal{userID: userID}
}

// IsAuthenticated reports whether the principal is bound to a user.
func (p Principal) IsAuthenticated() bool {
	return p.userID != ""
}

// UserID returns the bound user id, or an empty string when anonymous.
func (p Principal) UserID() string {
	return p.userID
}

func (p Principal) String() string {
	if !p.IsAuthenticated() {
		return "anonymous"
	}
	return "user:" + p.userID
}
