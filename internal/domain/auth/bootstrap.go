package auth

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/api"
	"github.com/medvault/medvault/internal/platform/session"
)

// Session is the restored application session: the authenticated user plus
// the role-appropriate preloaded data.
type Session struct {
	User    api.User
	Patient *api.PatientProfile  // set when the user is a patient
	Roster  []api.PatientProfile // set when the user is a doctor
}

// Bootstrapper restores a session from the persisted token at startup.
type Bootstrapper struct {
	gw     api.Gateway
	tokens session.Store
	logger zerolog.Logger
}

func NewBootstrapper(gw api.Gateway, tokens session.Store, logger zerolog.Logger) *Bootstrapper {
	return &Bootstrapper{
		gw:     gw,
		tokens: tokens,
		logger: logger.With().Str("component", "bootstrap").Logger(),
	}
}

// Restore resolves the startup session. A nil Session means unauthenticated.
// An invalid or expired token is never surfaced as an error: the token is
// discarded and the client falls back to the unauthenticated view.
func (b *Bootstrapper) Restore(ctx context.Context) *Session {
	if _, ok := b.tokens.Token(); !ok {
		return nil
	}

	profile, err := b.gw.Profile(ctx)
	if err != nil {
		b.logger.Debug().Err(err).Msg("stored token rejected, clearing session")
		if clearErr := b.tokens.Clear(); clearErr != nil {
			b.logger.Debug().Err(clearErr).Msg("failed to clear stale token")
		}
		return nil
	}

	sess := &Session{User: profile.User}

	switch profile.Role {
	case api.RolePatient:
		patient := &api.PatientProfile{User: profile.User}
		patient.History = profile.History
		patient.Treatments = profile.Treatments
		if patient.History == nil {
			patient.History = []string{}
		}
		if patient.Treatments == nil {
			patient.Treatments = []api.Treatment{}
		}
		sess.Patient = patient
	case api.RoleDoctor:
		roster, err := b.gw.Patients(ctx)
		if err != nil {
			// The token is good (profile succeeded); start with an empty
			// roster rather than dropping the session.
			b.logger.Debug().Err(err).Msg("roster preload failed")
			roster = []api.PatientProfile{}
		}
		sess.Roster = roster
	}

	b.logger.Info().Str("role", string(profile.Role)).Msg("session restored")
	return sess
}
