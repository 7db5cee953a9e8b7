package domain

// MatchKind tags the outcome of matching an external identity against local
// accounts. Exactly one reconciliation branch runs per login.
type MatchKind int

const (
	// MatchNone means neither the external id nor the email is known; a new
	// account is created.
	MatchNone MatchKind = iota
	// MatchByExternalID means an account already carries this external id.
	MatchByExternalID
	// MatchByEmail means the email belongs to a password-signup account that
	// has not been linked to an external identity yet.
	MatchByEmail
)

func (k MatchKind) String() string {
	switch k {
	case MatchByExternalID:
		return "external_id"
	case MatchByEmail:
		return "email"
	default:
		return "none"
	}
}

// Match pairs the branch tag with the matched account (nil for MatchNone).
type Match struct {
	Kind    MatchKind
	Account *Account
}
