package api

import "time"

// Role is the account role the server assigns at registration.
type Role string

const (
	RoleDoctor  Role = "DOCTOR"
	RolePatient Role = "PATIENT"
	RoleGuest   Role = "GUEST"
)

// User is the identity record the server returns at login and on the profile
// endpoint. It is read-only to the client after login.
type User struct {
	ID       string `json:"id"`
	Role     Role   `json:"role"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	CNIC     string `json:"cnic,omitempty"`
	Verified bool   `json:"verified,omitempty"`
}

// PatientProfile is a User extended with the patient's history entries and
// treatment records. The client holds one cached copy per session; the server
// owns the durable state.
type PatientProfile struct {
	User
	History    []string    `json:"history"`
	Treatments []Treatment `json:"treatments"`
}

// Treatment is a single clinical encounter record. It is immutable once
// created; the only permitted mutation is deletion as a whole.
type Treatment struct {
	ID         string        `json:"id"`
	PatientID  string        `json:"patient_id"`
	DoctorID   string        `json:"doctor_id"`
	DoctorName string        `json:"doctor_name"`
	CreatedAt  time.Time     `json:"created_at"`
	Diagnosis  string        `json:"diagnosis"`
	Medication string        `json:"medication"`
	Notes      string        `json:"notes,omitempty"`
	Files      []MedicalFile `json:"files,omitempty"`
}

// MedicalFile is an attachment on a treatment. For newly created treatments
// the URL is a self-contained data URL built client-side; for records loaded
// from the server it may be a server URL. Never mutated after creation.
type MedicalFile struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// SignupRequest starts an OTP-gated registration.
type SignupRequest struct {
	CNIC     string `json:"cnic"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
}

// NewTreatment is the payload for creating a treatment record.
type NewTreatment struct {
	PatientID  string        `json:"patient_id"`
	Diagnosis  string        `json:"diagnosis"`
	Medication string        `json:"medication"`
	Notes      string        `json:"notes,omitempty"`
	Files      []MedicalFile `json:"files,omitempty"`
}

// AuthResult is the outcome of login and of OTP verification: the finalized
// user plus a bearer token. The gateway never applies the token itself; the
// caller decides whether to persist it.
type AuthResult struct {
	User  User   `json:"user"`
	Token string `json:"token"`
}
