package integration

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/medvault/medvault/internal/platform/api"
)

// fakeServer is a stateful in-process stand-in for the remote medical-records
// API, speaking the {success, message, data} envelope on the /auth routes.
type fakeServer struct {
	mu       sync.Mutex
	pending  map[string]pendingSignup // by email
	accounts map[string]account       // by email
	tokens   map[string]string        // token -> email
	profiles map[string]*api.PatientProfile
	otp      string
}

type pendingSignup struct {
	req api.SignupRequest
}

type account struct {
	password string
	user     api.User
}

func newFakeServer() *fakeServer {
	return &fakeServer{
		pending:  make(map[string]pendingSignup),
		accounts: make(map[string]account),
		tokens:   make(map[string]string),
		profiles: make(map[string]*api.PatientProfile),
		otp:      "654321",
	}
}

func (s *fakeServer) start(t *testing.T) *httptest.Server {
	t.Helper()

	e := echo.New()
	e.POST("/auth/signup", s.handleSignup)
	e.POST("/auth/verify-otp", s.handleVerify)
	e.POST("/auth/resend-otp", s.handleResend)
	e.POST("/auth/login", s.handleLogin)
	e.GET("/auth/profile", s.handleProfile)
	e.GET("/auth/patients", s.handlePatients)
	e.POST("/auth/treatments", s.handleAddTreatment)
	e.DELETE("/auth/treatments/:id", s.handleDeleteTreatment)

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func ok(c echo.Context, message string, data any) error {
	body := map[string]any{"success": true}
	if message != "" {
		body["message"] = message
	}
	if data != nil {
		body["data"] = data
	}
	return c.JSON(http.StatusOK, body)
}

func fail(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]any{"success": false, "message": message})
}

// seedAccount registers a verified account directly, bypassing the OTP flow.
func (s *fakeServer) seedAccount(email, password string, user api.User, profile *api.PatientProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[email] = account{password: password, user: user}
	if profile != nil {
		s.profiles[user.ID] = profile
	}
}

func (s *fakeServer) authedUser(c echo.Context) (api.User, bool) {
	header := c.Request().Header.Get("Authorization")
	token := strings.TrimPrefix(header, "Bearer ")
	if token == header {
		return api.User{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	email, found := s.tokens[token]
	if !found {
		return api.User{}, false
	}
	acct, found := s.accounts[email]
	return acct.user, found
}

func (s *fakeServer) handleSignup(c echo.Context) error {
	var req api.SignupRequest
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.accounts[req.Email]; exists {
		return fail(c, http.StatusConflict, "email already registered")
	}
	s.pending[req.Email] = pendingSignup{req: req}
	return ok(c, "verification code sent", nil)
}

func (s *fakeServer) handleVerify(c echo.Context) error {
	var body map[string]string
	if err := c.Bind(&body); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, found := s.pending[body["email"]]
	if !found {
		return fail(c, http.StatusNotFound, "no pending registration")
	}
	if body["code"] != s.otp {
		return fail(c, http.StatusBadRequest, "invalid or expired code")
	}

	user := api.User{
		ID:       uuid.New().String(),
		Role:     p.req.Role,
		Name:     p.req.Name,
		Email:    p.req.Email,
		CNIC:     p.req.CNIC,
		Verified: true,
	}
	s.accounts[p.req.Email] = account{password: p.req.Password, user: user}
	if p.req.Role == api.RolePatient {
		s.profiles[user.ID] = &api.PatientProfile{User: user, History: []string{}, Treatments: []api.Treatment{}}
	}
	delete(s.pending, p.req.Email)

	token := "verify-" + uuid.New().String()
	s.tokens[token] = p.req.Email
	return ok(c, "account verified", api.AuthResult{User: user, Token: token})
}

func (s *fakeServer) handleResend(c echo.Context) error {
	var body map[string]string
	if err := c.Bind(&body); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, found := s.pending[body["email"]]; !found {
		return fail(c, http.StatusNotFound, "no pending registration")
	}
	return ok(c, "verification code resent", nil)
}

func (s *fakeServer) handleLogin(c echo.Context) error {
	var body map[string]string
	if err := c.Bind(&body); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	acct, found := s.accounts[body["email"]]
	if !found || acct.password != body["password"] || string(acct.user.Role) != body["role"] {
		return fail(c, http.StatusUnauthorized, "invalid credentials")
	}

	token := "login-" + uuid.New().String()
	s.tokens[token] = body["email"]
	return ok(c, "", api.AuthResult{User: acct.user, Token: token})
}

func (s *fakeServer) handleProfile(c echo.Context) error {
	user, authed := s.authedUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, "invalid token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if profile, found := s.profiles[user.ID]; found {
		return ok(c, "", profile)
	}
	return ok(c, "", api.PatientProfile{User: user})
}

func (s *fakeServer) handlePatients(c echo.Context) error {
	user, authed := s.authedUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	if user.Role != api.RoleDoctor {
		return fail(c, http.StatusForbidden, "doctors only")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	roster := make([]api.PatientProfile, 0, len(s.profiles))
	for _, p := range s.profiles {
		roster = append(roster, *p)
	}
	return ok(c, "", roster)
}

func (s *fakeServer) handleAddTreatment(c echo.Context) error {
	user, authed := s.authedUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	if user.Role != api.RoleDoctor {
		return fail(c, http.StatusForbidden, "doctors only")
	}

	var req api.NewTreatment
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "malformed request")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	profile, found := s.profiles[req.PatientID]
	if !found {
		return fail(c, http.StatusNotFound, "patient not found")
	}

	created := api.Treatment{
		ID:         fmt.Sprintf("t-%d", len(profile.Treatments)+1),
		PatientID:  req.PatientID,
		DoctorID:   user.ID,
		DoctorName: user.Name,
		Diagnosis:  req.Diagnosis,
		Medication: req.Medication,
		Notes:      req.Notes,
		Files:      req.Files,
	}
	profile.Treatments = append(profile.Treatments, created)
	return ok(c, "treatment created", created)
}

func (s *fakeServer) handleDeleteTreatment(c echo.Context) error {
	user, authed := s.authedUser(c)
	if !authed {
		return fail(c, http.StatusUnauthorized, "invalid token")
	}
	if user.Role != api.RolePatient {
		return fail(c, http.StatusForbidden, "patients only")
	}

	id := c.Param("id")
	s.mu.Lock()
	defer s.mu.Unlock()
	profile, found := s.profiles[user.ID]
	if !found {
		return fail(c, http.StatusNotFound, "patient not found")
	}

	for i, tr := range profile.Treatments {
		if tr.ID == id {
			profile.Treatments = append(profile.Treatments[:i], profile.Treatments[i+1:]...)
			return ok(c, "treatment deleted", nil)
		}
	}
	return fail(c, http.StatusNotFound, "treatment not found")
}
