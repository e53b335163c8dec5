// Package records is the signed-in working surface: the doctor's patient
// roster with national-id lookup, and treatment creation/deletion against the
// remote service. All durable state lives on the server; the workspace holds
// the session's cached copy and mutates it only after the server has
// acknowledged an operation.
package records

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/api"
)

var (
	// ErrEmptyQuery is returned for a search with no input, distinct from a
	// search that found nothing.
	ErrEmptyQuery = errors.New("enter a national id to search")
	// ErrPatientNotFound is returned when no roster entry matches the query.
	ErrPatientNotFound = errors.New("no patient found with that national id")
)

// Workspace owns the session's record state. It is explicitly initialized
// from a restored or freshly authenticated session and fully cleared on
// logout.
type Workspace struct {
	gw     api.Gateway
	logger zerolog.Logger

	mu      sync.Mutex
	user    api.User
	roster  []api.PatientProfile
	patient *api.PatientProfile
}

func NewWorkspace(gw api.Gateway, logger zerolog.Logger) *Workspace {
	return &Workspace{
		gw:     gw,
		logger: logger.With().Str("component", "records").Logger(),
	}
}

// SeedDoctor initializes the workspace for a doctor session with the loaded
// roster.
func (w *Workspace) SeedDoctor(user api.User, roster []api.PatientProfile) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.user = user
	w.roster = roster
	w.patient = nil
}

// SeedPatient initializes the workspace for a patient session with the
// patient's own profile.
func (w *Workspace) SeedPatient(profile *api.PatientProfile) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.user = profile.User
	w.patient = profile
	w.roster = nil
}

// Reset clears all derived session state. Called on logout.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.user = api.User{}
	w.roster = nil
	w.patient = nil
}

func (w *Workspace) User() api.User {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.user
}

func (w *Workspace) Roster() []api.PatientProfile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.roster
}

func (w *Workspace) Patient() *api.PatientProfile {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.patient
}

// normalizeCNIC strips hyphens so lookups match regardless of formatting.
func normalizeCNIC(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), "-", "")
}

// FindPatient looks a patient up by national id against the loaded roster.
// The comparison ignores hyphens on both sides. Doctor role only.
func (w *Workspace) FindPatient(query string) (*api.PatientProfile, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.user.Role != api.RoleDoctor {
		return nil, fmt.Errorf("patient search is available to doctors only")
	}

	q := normalizeCNIC(query)
	if q == "" {
		return nil, ErrEmptyQuery
	}

	for i := range w.roster {
		if normalizeCNIC(w.roster[i].CNIC) == q {
			return &w.roster[i], nil
		}
	}
	return nil, ErrPatientNotFound
}

// AddTreatment creates a treatment record for a patient. Doctor role only;
// diagnosis and medication are required, notes and attachments optional. The
// roster copy is updated only after the server acknowledges the record.
func (w *Workspace) AddTreatment(ctx context.Context, req api.NewTreatment) (*api.Treatment, error) {
	w.mu.Lock()
	role := w.user.Role
	w.mu.Unlock()

	if role != api.RoleDoctor {
		return nil, fmt.Errorf("only doctors can create treatment records")
	}
	if req.PatientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}
	if strings.TrimSpace(req.Diagnosis) == "" {
		return nil, fmt.Errorf("diagnosis is required")
	}
	if strings.TrimSpace(req.Medication) == "" {
		return nil, fmt.Errorf("medication is required")
	}

	created, err := w.gw.AddTreatment(ctx, req)
	if err != nil {
		return nil, err
	}

	w.mu.Lock()
	for i := range w.roster {
		if w.roster[i].ID == created.PatientID {
			w.roster[i].Treatments = append(w.roster[i].Treatments, *created)
			break
		}
	}
	w.mu.Unlock()

	w.logger.Info().Str("treatment_id", created.ID).Str("patient_id", created.PatientID).Msg("treatment created")
	return created, nil
}

// DeleteTreatment removes one of the patient's own treatment records. Patient
// role only on this surface. The in-memory list is filtered only after the
// server acknowledges the deletion, and only the owning patient's list is
// touched.
func (w *Workspace) DeleteTreatment(ctx context.Context, id string) error {
	w.mu.Lock()
	role := w.user.Role
	w.mu.Unlock()

	if role != api.RolePatient {
		return fmt.Errorf("only patients can delete treatment records")
	}
	if id == "" {
		return fmt.Errorf("treatment id is required")
	}

	if err := w.gw.DeleteTreatment(ctx, id); err != nil {
		return err
	}

	w.mu.Lock()
	if w.patient != nil {
		kept := w.patient.Treatments[:0]
		for _, tr := range w.patient.Treatments {
			if tr.ID != id {
				kept = append(kept, tr)
			}
		}
		w.patient.Treatments = kept
	}
	w.mu.Unlock()

	w.logger.Info().Str("treatment_id", id).Msg("treatment deleted")
	return nil
}
