package reconcile

import (
	"testing"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

func TestDecide(t *testing.T) {
	bound := &model.Identity{ID: "bound", SubjectID: "sub-1", IssuerID: "iss-1"}
	credentialed := &model.Identity{ID: "local", Email: "alice@example.com", Verifier: "v"}
	federatedOnly := &model.Identity{ID: "fed", Email: "alice@example.com", SubjectID: "sub-2", IssuerID: "iss-1"}

	tests := []struct {
		name         string
		in           Input
		wantAction   Action
		wantIdentity *model.Identity
	}{
		{
			name:         "subject match wins",
			in:           Input{BySubject: bound, ByEmail: credentialed},
			wantAction:   Reuse,
			wantIdentity: bound,
		},
		{
			name:         "email match without link intent halts for confirmation",
			in:           Input{ByEmail: credentialed},
			wantAction:   RequireConfirmation,
			wantIdentity: credentialed,
		},
		{
			name:         "confirmed link attaches to the credentialed identity",
			in:           Input{ByEmail: credentialed, ShouldLink: true, ConfirmLink: true},
			wantAction:   Link,
			wantIdentity: credentialed,
		},
		{
			name:       "declined link falls through to create",
			in:         Input{ByEmail: credentialed, ShouldLink: true, ConfirmLink: false},
			wantAction: Create,
		},
		{
			name:       "no match creates",
			in:         Input{},
			wantAction: Create,
		},
		{
			name:       "federation-only email match never triggers confirmation",
			in:         Input{ByEmail: federatedOnly},
			wantAction: Create,
		},
		{
			name:       "link intent without a candidate creates",
			in:         Input{ShouldLink: true, ConfirmLink: true},
			wantAction: Create,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Decide(tt.in)
			if got.Action != tt.wantAction {
				t.Fatalf("expected action %v, got %v", tt.wantAction, got.Action)
			}
			if got.Identity != tt.wantIdentity {
				t.Fatalf("expected identity %v, got %v", tt.wantIdentity, got.Identity)
			}
		})
	}
}
