package identity

// Outcome describes what Resolve did with a credential.
type Outcome string

const (
	// OutcomeExisting is a pure login: the account was found and not written.
	OutcomeExisting Outcome = "existing"
	// OutcomeRefreshed is a login that stored a newer token on the account.
	OutcomeRefreshed Outcome = "refreshed"
	// OutcomeCreated is a login that created a new account.
	OutcomeCreated Outcome = "created"
	// OutcomeLinked attached the credential to the signed-in account.
	OutcomeLinked Outcome = "linked"
	// OutcomeRelinked re-attached a previously detached link.
	OutcomeRelinked Outcome = "relinked"
)

// Local strategy operations reported to an Observer.
const (
	OpSignup = "signup"
	OpLogin  = "login"
	OpUnlink = "unlink"
)

// Observer receives the result of every resolution and local operation.
// err is nil on success. Implementations must be safe for concurrent use.
type Observer interface {
	ObserveResolve(provider string, outcome Outcome, err error)
	ObserveLocal(op string, err error)
}

type noopObserver struct{}

func (noopObserver) ObserveResolve(string, Outcome, error) {}
func (noopObserver) ObserveLocal(string, error)            {}
