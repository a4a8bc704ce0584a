// Package reconcile decides how a federated-login assertion maps onto the
// durable identity graph. The decision function is pure: it never touches a
// store or an identity provider, it only inspects the lookups the caller has
// already performed and returns a decision for the caller to apply.
package reconcile

import "github.com/vasapolrittideah/identity-broker/internal/model"

// Action is the outcome of reconciling a federated login against the store.
type Action int

const (
	// Reuse means an identity already bound to the federated account exists
	// and becomes the session identity. No mutation is needed.
	Reuse Action = iota + 1

	// RequireConfirmation means a credentialed identity shares the email and
	// the caller has not yet decided whether to link. The flow halts and no
	// session tokens may be issued.
	RequireConfirmation

	// Link means the caller confirmed linking: the federated binding is to be
	// attached to the existing credentialed identity.
	Link

	// Create means no usable match exists and a new identity is to be
	// synthesized from the federated profile.
	Create
)

// Input carries the store lookups and caller intent for one decision.
type Input struct {
	// BySubject is the identity already holding the (subject id, issuer id)
	// pair, if any.
	BySubject *model.Identity

	// ByEmail is the identity matching the federated email, if any. Only
	// identities with a local credential are link candidates; a
	// federation-only record here is ignored.
	ByEmail *model.Identity

	// ShouldLink is set when the caller is answering a pending link decision.
	ShouldLink bool

	// ConfirmLink is the caller's answer: link the accounts, or decline and
	// proceed with a fresh identity.
	ConfirmLink bool
}

// Decision is what the session orchestrator applies against the store.
type Decision struct {
	Action Action

	// Identity is the matched identity for Reuse, RequireConfirmation, and
	// Link. It is nil for Create.
	Identity *model.Identity
}

// Decide runs the reconciliation state machine.
//
// An identity bound to the federated subject always wins. Otherwise a
// credentialed identity sharing the email forces an explicit link decision:
// unasked callers are halted, confirmed callers link, and a declined link
// falls through to creating a brand-new identity, exactly as if no email
// match existed.
func Decide(in Input) Decision {
	if in.BySubject != nil {
		return Decision{Action: Reuse, Identity: in.BySubject}
	}

	candidate := in.ByEmail
	if candidate != nil && !candidate.HasLocalCredential() {
		candidate = nil
	}

	if candidate != nil {
		switch {
		case !in.ShouldLink:
			return Decision{Action: RequireConfirmation, Identity: candidate}
		case in.ConfirmLink:
			return Decision{Action: Link, Identity: candidate}
		}
		// Link explicitly declined: treat as if no identity were found.
	}

	return Decision{Action: Create}
}
