package auth

import (
	"context"
	"testing"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/api"
	"github.com/medvault/medvault/internal/platform/session"
)

func TestRestore_NoToken_YieldsNoSession(t *testing.T) {
	gw := &fakeGateway{}
	b := NewBootstrapper(gw, session.NewMemStore(), zerolog.Nop())

	if sess := b.Restore(context.Background()); sess != nil {
		t.Fatal("expected no session without a token")
	}
	if gw.profileCalls != 0 {
		t.Fatal("expected no profile call without a token")
	}
}

func TestRestore_InvalidToken_ClearsSilently(t *testing.T) {
	gw := &fakeGateway{profileErr: &api.Error{Message: "token expired", Status: 401}}
	tokens := session.NewMemStore()
	if err := tokens.SetToken("stale"); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrapper(gw, tokens, zerolog.Nop())
	if sess := b.Restore(context.Background()); sess != nil {
		t.Fatal("expected unauthenticated fallback")
	}
	if tokens.Authenticated() {
		t.Fatal("expected stale token removed from storage")
	}
}

func TestRestore_Patient_SeedsProfile(t *testing.T) {
	gw := &fakeGateway{
		profile: &api.PatientProfile{
			User:       api.User{ID: "p1", Role: api.RolePatient, Name: "Pat"},
			History:    []string{"asthma"},
			Treatments: []api.Treatment{{ID: "t1", PatientID: "p1"}},
		},
	}
	tokens := session.NewMemStore()
	if err := tokens.SetToken("tok"); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrapper(gw, tokens, zerolog.Nop())
	sess := b.Restore(context.Background())
	if sess == nil {
		t.Fatal("expected a session")
	}
	if sess.Patient == nil {
		t.Fatal("expected patient profile seeded")
	}
	if len(sess.Patient.History) != 1 || len(sess.Patient.Treatments) != 1 {
		t.Fatalf("expected embedded collections, got %+v", sess.Patient)
	}
	if sess.Roster != nil {
		t.Fatal("expected no roster for a patient")
	}
}

func TestRestore_Patient_DefaultsEmptyCollections(t *testing.T) {
	gw := &fakeGateway{
		profile: &api.PatientProfile{User: api.User{ID: "p1", Role: api.RolePatient}},
	}
	tokens := session.NewMemStore()
	if err := tokens.SetToken("tok"); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrapper(gw, tokens, zerolog.Nop())
	sess := b.Restore(context.Background())
	if sess == nil || sess.Patient == nil {
		t.Fatal("expected a patient session")
	}
	if sess.Patient.History == nil || sess.Patient.Treatments == nil {
		t.Fatal("expected empty, non-nil collections")
	}
}

func TestRestore_Doctor_LoadsRoster(t *testing.T) {
	gw := &fakeGateway{
		profile: &api.PatientProfile{User: api.User{ID: "d1", Role: api.RoleDoctor, Name: "Dr"}},
		roster: []api.PatientProfile{
			{User: api.User{ID: "p1", Role: api.RolePatient}},
			{User: api.User{ID: "p2", Role: api.RolePatient}},
		},
	}
	tokens := session.NewMemStore()
	if err := tokens.SetToken("tok"); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrapper(gw, tokens, zerolog.Nop())
	sess := b.Restore(context.Background())
	if sess == nil {
		t.Fatal("expected a session")
	}
	if len(sess.Roster) != 2 {
		t.Fatalf("expected roster of 2, got %d", len(sess.Roster))
	}
	if sess.Patient != nil {
		t.Fatal("expected no patient profile for a doctor")
	}
}

func TestRestore_Doctor_RosterFailureKeepsSession(t *testing.T) {
	gw := &fakeGateway{
		profile:   &api.PatientProfile{User: api.User{ID: "d1", Role: api.RoleDoctor}},
		rosterErr: &api.Error{Message: "unavailable"},
	}
	tokens := session.NewMemStore()
	if err := tokens.SetToken("tok"); err != nil {
		t.Fatal(err)
	}

	b := NewBootstrapper(gw, tokens, zerolog.Nop())
	sess := b.Restore(context.Background())
	if sess == nil {
		t.Fatal("expected session despite roster failure")
	}
	if len(sess.Roster) != 0 {
		t.Fatal("expected empty roster")
	}
	if !tokens.Authenticated() {
		t.Fatal("expected token kept when profile succeeded")
	}
}
