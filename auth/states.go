package auth

// State is where a user stands in the sign-in flow after a Result is applied.
type State string

const (
	StateUnauthenticated          State = "UNAUTHENTICATED"
	StateCodeSent                 State = "CODE_SENT"
	StateOAuthPendingCallback     State = "OAUTH_PENDING_CALLBACK"
	StateOrgSelectionPending      State = "ORG_SELECTION_PENDING"
	StateEmailVerificationPending State = "EMAIL_VERIFICATION_PENDING"
	StateChallengePending         State = "CHALLENGE_PENDING"
	StateAuthenticated            State = "AUTHENTICATED"
)

// StateOf maps a result to the state it leaves the user in.
func StateOf(r Result) State {
	switch v := r.(type) {
	case StateChange:
		return v.Next
	case Navigation:
		return v.Next
	case PendingOrgSelection:
		return StateOrgSelectionPending
	case PendingEmailVerification:
		return StateEmailVerificationPending
	case PendingTurnstile:
		return StateChallengePending
	default:
		return StateUnauthenticated
	}
}
