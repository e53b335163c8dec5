// Package auth orchestrates the client's authentication lifecycle: the
// role-selection / credential-form / OTP-verification flow, and session
// restoration at startup.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/api"
	"github.com/medvault/medvault/internal/platform/session"
)

// State is the flow's UI state.
type State int

const (
	// StateRoleSelect is the initial state; the user picks doctor or patient.
	StateRoleSelect State = iota
	// StateCredentials shows the sign-in/sign-up form.
	StateCredentials
	// StateOTPVerify collects the emailed code for a pending registration.
	StateOTPVerify
)

// Mode toggles the credential form between sign-in and sign-up.
type Mode int

const (
	ModeSignIn Mode = iota
	ModeSignUp
)

// Countdown windows in seconds. Signup starts the full server expiry window;
// a resend grants the shorter reissue window.
const (
	SignupCountdownSeconds = 300
	ResendCountdownSeconds = 120
)

// Controller drives the auth state machine. Methods are safe for concurrent
// use; each submit path has its own busy flag so unrelated controls stay
// interactive while one operation is in flight.
type Controller struct {
	gw     api.Gateway
	tokens session.Store
	logger zerolog.Logger

	mu           sync.Mutex
	state        State
	mode         Mode
	role         api.Role
	pendingEmail string
	enteredCode  string
	notice       string

	busySubmit bool
	busyVerify bool
	busyResend bool

	cd *countdown
}

// NewController returns a controller in the role-selection state.
func NewController(gw api.Gateway, tokens session.Store, logger zerolog.Logger) *Controller {
	return &Controller{
		gw:     gw,
		tokens: tokens,
		logger: logger.With().Str("component", "auth").Logger(),
		state:  StateRoleSelect,
		mode:   ModeSignIn,
		cd:     newCountdown(time.Second),
	}
}

// Close cancels the countdown. Must be called when the owning UI context is
// torn down.
func (c *Controller) Close() {
	c.cd.Stop()
}

// ---------------------------------------------------------------------------
// State accessors
// ---------------------------------------------------------------------------

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

func (c *Controller) Role() api.Role {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.role
}

// PendingEmail is the address a signup was submitted for; it drives the OTP
// verification step.
func (c *Controller) PendingEmail() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingEmail
}

// EnteredCode returns the OTP code currently entered.
func (c *Controller) EnteredCode() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.enteredCode
}

// Notice is the confirmation message shown after a successful verification.
func (c *Controller) Notice() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.notice
}

// CountdownRemaining returns the seconds left on the OTP countdown.
func (c *Controller) CountdownRemaining() int {
	return c.cd.Remaining()
}

// CountdownRunning reports whether the countdown tick is active.
func (c *Controller) CountdownRunning() bool {
	return c.cd.Running()
}

func (c *Controller) SubmitBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busySubmit
}

func (c *Controller) VerifyBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busyVerify
}

func (c *Controller) ResendBusy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.busyResend
}

// CanVerify reports whether the verify control is enabled: a 6-digit code is
// present and no verification is in flight.
func (c *Controller) CanVerify() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.busyVerify && ValidateOTPCode(c.enteredCode)
}

// CanResend reports whether the resend control is enabled: the countdown has
// reached zero and no resend is in flight.
func (c *Controller) CanResend() bool {
	c.mu.Lock()
	busy := c.busyResend
	state := c.state
	c.mu.Unlock()
	return !busy && state == StateOTPVerify && c.cd.Remaining() == 0
}

// ---------------------------------------------------------------------------
// Transitions
// ---------------------------------------------------------------------------

// SelectRole moves from role selection to the credential form in sign-in
// mode.
func (c *Controller) SelectRole(role api.Role) error {
	if role != api.RoleDoctor && role != api.RolePatient {
		return fmt.Errorf("unsupported role %q", role)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateRoleSelect {
		return fmt.Errorf("role already selected")
	}
	c.role = role
	c.state = StateCredentials
	c.mode = ModeSignIn
	return nil
}

// SetMode toggles the credential form between sign-in and sign-up.
func (c *Controller) SetMode(mode Mode) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCredentials {
		return fmt.Errorf("not on the credential form")
	}
	c.mode = mode
	return nil
}

// SetEnteredCode records the OTP code typed so far.
func (c *Controller) SetEnteredCode(code string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.enteredCode = code
}

// SignIn submits the sign-in form. On success the token is persisted and the
// authenticated user returned; on failure the state is unchanged and the
// error message is for display next to the form.
func (c *Controller) SignIn(ctx context.Context, email, password string) (*api.User, error) {
	c.mu.Lock()
	if c.state != StateCredentials || c.mode != ModeSignIn {
		c.mu.Unlock()
		return nil, fmt.Errorf("not on the sign-in form")
	}
	if c.busySubmit {
		c.mu.Unlock()
		return nil, fmt.Errorf("sign-in already in progress")
	}
	if email == "" || password == "" {
		c.mu.Unlock()
		return nil, fmt.Errorf("email and password are required")
	}
	role := c.role
	c.busySubmit = true
	c.mu.Unlock()

	defer c.clearFlag(&c.busySubmit)

	result, err := c.gw.Login(ctx, email, password, role)
	if err != nil {
		return nil, err
	}
	if err := c.tokens.SetToken(result.Token); err != nil {
		return nil, err
	}

	c.logger.Info().Str("role", string(result.User.Role)).Msg("signed in")
	return &result.User, nil
}

// SignUp submits the sign-up form. Local validation runs first and blocks the
// submission without a network call. On success the flow moves to OTP
// verification carrying the submitted email, with the full expiry countdown
// running.
func (c *Controller) SignUp(ctx context.Context, form SignupForm) (string, error) {
	c.mu.Lock()
	if c.state != StateCredentials || c.mode != ModeSignUp {
		c.mu.Unlock()
		return "", fmt.Errorf("not on the sign-up form")
	}
	if c.busySubmit {
		c.mu.Unlock()
		return "", fmt.Errorf("sign-up already in progress")
	}
	if form.Role == "" {
		form.Role = c.role
	}
	c.mu.Unlock()

	if err := form.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	c.busySubmit = true
	c.mu.Unlock()
	defer c.clearFlag(&c.busySubmit)

	msg, err := c.gw.Signup(ctx, api.SignupRequest{
		CNIC:     form.CNIC,
		Name:     form.Name,
		Email:    form.Email,
		Password: form.Password,
		Role:     form.Role,
	})
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.state = StateOTPVerify
	c.pendingEmail = form.Email
	c.enteredCode = ""
	c.mu.Unlock()
	c.cd.Start(SignupCountdownSeconds)

	c.logger.Info().Str("email", form.Email).Msg("signup accepted, awaiting otp")
	return msg, nil
}

// VerifyOTP submits the entered code. On success the flow returns to the
// sign-in form (no auto-login), the code is cleared, and a confirmation
// notice is set. On failure the state is unchanged.
func (c *Controller) VerifyOTP(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateOTPVerify {
		c.mu.Unlock()
		return fmt.Errorf("not on the verification step")
	}
	if c.busyVerify {
		c.mu.Unlock()
		return fmt.Errorf("verification already in progress")
	}
	code := c.enteredCode
	email := c.pendingEmail
	if !ValidateOTPCode(code) {
		c.mu.Unlock()
		return fmt.Errorf("enter the 6-digit code")
	}
	c.busyVerify = true
	c.mu.Unlock()

	defer c.clearFlag(&c.busyVerify)

	// The returned token is intentionally not applied: the user must sign in
	// with the verified credentials before any data-bearing screen is shown.
	if _, err := c.gw.VerifyOTP(ctx, email, code); err != nil {
		return err
	}

	c.cd.Stop()
	c.mu.Lock()
	c.state = StateCredentials
	c.mode = ModeSignIn
	c.enteredCode = ""
	c.pendingEmail = ""
	c.notice = "account verified, please sign in"
	c.mu.Unlock()

	c.logger.Info().Msg("otp verified")
	return nil
}

// ResendOTP reissues the code. Permitted only once the countdown has reached
// zero; a successful resend restarts the countdown at the reissue window and
// clears any entered code.
func (c *Controller) ResendOTP(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.state != StateOTPVerify {
		c.mu.Unlock()
		return "", fmt.Errorf("not on the verification step")
	}
	if c.busyResend {
		c.mu.Unlock()
		return "", fmt.Errorf("resend already in progress")
	}
	email := c.pendingEmail
	c.mu.Unlock()

	if c.cd.Remaining() > 0 {
		return "", fmt.Errorf("wait for the countdown before requesting a new code")
	}

	c.mu.Lock()
	c.busyResend = true
	c.mu.Unlock()
	defer c.clearFlag(&c.busyResend)

	msg, err := c.gw.ResendOTP(ctx, email)
	if err != nil {
		return "", err
	}

	c.mu.Lock()
	c.enteredCode = ""
	c.mu.Unlock()
	c.cd.Start(ResendCountdownSeconds)

	c.logger.Info().Str("email", email).Msg("otp resent")
	return msg, nil
}

func (c *Controller) clearFlag(flag *bool) {
	c.mu.Lock()
	*flag = false
	c.mu.Unlock()
}
