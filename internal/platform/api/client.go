// Package api is the gateway to the remote medical-records service. Every
// operation issues exactly one HTTP call, attaches the bearer token when one
// is present, and collapses any failure into a single recoverable *Error so
// callers never branch on a typed exception hierarchy. No operation retries;
// re-invocation is the caller's decision.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"

	"github.com/medvault/medvault/internal/platform/session"
)

// GenericErrorMessage is shown when the server supplied no message or the
// request never reached it.
const GenericErrorMessage = "something went wrong, please try again"

// Error is the uniform failure signal for all gateway operations. Message is
// the server-supplied message when one exists and the generic fallback
// otherwise; Status is zero for transport failures.
type Error struct {
	Message string
	Status  int
}

func (e *Error) Error() string { return e.Message }

// envelope is the wire shape shared by every endpoint:
// {success, message?, data?, errors?}.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Errors  json.RawMessage `json:"errors,omitempty"`
}

// Gateway is the operation surface the auth flow and the record workspace
// depend on. *Client is the production implementation.
type Gateway interface {
	Signup(ctx context.Context, req SignupRequest) (string, error)
	VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error)
	ResendOTP(ctx context.Context, email string) (string, error)
	Login(ctx context.Context, email, password string, role Role) (*AuthResult, error)
	Profile(ctx context.Context) (*PatientProfile, error)
	Patients(ctx context.Context) ([]PatientProfile, error)
	AddTreatment(ctx context.Context, req NewTreatment) (*Treatment, error)
	DeleteTreatment(ctx context.Context, id string) error
}

// Client implements Gateway over HTTP.
type Client struct {
	http   *resty.Client
	tokens session.Store
	logger zerolog.Logger
}

// NewClient builds a gateway against baseURL. The token store is consulted on
// every request so a token persisted after construction is picked up.
func NewClient(baseURL string, timeout time.Duration, tokens session.Store, logger zerolog.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &Client{
		http:   httpClient,
		tokens: tokens,
		logger: logger.With().Str("component", "api").Logger(),
	}
}

var _ Gateway = (*Client)(nil)

// request builds a resty request with the bearer token attached when present.
func (c *Client) request(ctx context.Context) *resty.Request {
	r := c.http.R().SetContext(ctx)
	if token, ok := c.tokens.Token(); ok {
		r.SetAuthToken(token)
	}
	return r
}

// call executes the request and normalizes the response. On success it
// returns the decoded envelope; on any failure it returns *Error.
func (c *Client) call(op string, resp *resty.Response, err error) (*envelope, error) {
	if err != nil {
		c.logger.Debug().Err(err).Str("op", op).Msg("transport failure")
		return nil, &Error{Message: GenericErrorMessage}
	}

	var env envelope
	decodeErr := json.Unmarshal(resp.Body(), &env)

	if resp.IsError() || (decodeErr == nil && !env.Success) {
		msg := env.Message
		if msg == "" {
			msg = GenericErrorMessage
		}
		c.logger.Debug().Str("op", op).Int("status", resp.StatusCode()).Str("message", msg).Msg("server rejected operation")
		return nil, &Error{Message: msg, Status: resp.StatusCode()}
	}
	if decodeErr != nil {
		c.logger.Debug().Err(decodeErr).Str("op", op).Msg("malformed response body")
		return nil, &Error{Message: GenericErrorMessage, Status: resp.StatusCode()}
	}

	return &env, nil
}

// decodeData unmarshals the envelope's data field into out.
func decodeData(env *envelope, out any) error {
	if len(env.Data) == 0 {
		return &Error{Message: GenericErrorMessage}
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &Error{Message: GenericErrorMessage}
	}
	return nil
}

// ---------------------------------------------------------------------------
// Operations
// ---------------------------------------------------------------------------

// Signup starts an OTP-gated registration and returns the server's
// acknowledgement message.
func (c *Client) Signup(ctx context.Context, req SignupRequest) (string, error) {
	resp, err := c.request(ctx).SetBody(req).Post("/auth/signup")
	env, err := c.call("signup", resp, err)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// VerifyOTP consumes the emailed code and returns the finalized user plus a
// token. The token is not applied to the session store here.
func (c *Client) VerifyOTP(ctx context.Context, email, code string) (*AuthResult, error) {
	body := map[string]string{"email": email, "code": code}
	resp, err := c.request(ctx).SetBody(body).Post("/auth/verify-otp")
	env, err := c.call("verify-otp", resp, err)
	if err != nil {
		return nil, err
	}

	var result AuthResult
	if err := decodeData(env, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ResendOTP reissues the code and resets the server-side expiry window.
func (c *Client) ResendOTP(ctx context.Context, email string) (string, error) {
	body := map[string]string{"email": email}
	resp, err := c.request(ctx).SetBody(body).Post("/auth/resend-otp")
	env, err := c.call("resend-otp", resp, err)
	if err != nil {
		return "", err
	}
	return env.Message, nil
}

// Login exchanges credentials for a user and a token.
func (c *Client) Login(ctx context.Context, email, password string, role Role) (*AuthResult, error) {
	body := map[string]string{"email": email, "password": password, "role": string(role)}
	resp, err := c.request(ctx).SetBody(body).Post("/auth/login")
	env, err := c.call("login", resp, err)
	if err != nil {
		return nil, err
	}

	var result AuthResult
	if err := decodeData(env, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Profile returns the current user. For patients the profile embeds the
// treatment and history collections; for doctors those collections are empty.
func (c *Client) Profile(ctx context.Context) (*PatientProfile, error) {
	resp, err := c.request(ctx).Get("/auth/profile")
	env, err := c.call("profile", resp, err)
	if err != nil {
		return nil, err
	}

	var profile PatientProfile
	if err := decodeData(env, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Patients returns the full roster. The server enforces that only doctors may
// call this.
func (c *Client) Patients(ctx context.Context) ([]PatientProfile, error) {
	resp, err := c.request(ctx).Get("/auth/patients")
	env, err := c.call("patients", resp, err)
	if err != nil {
		return nil, err
	}

	var roster []PatientProfile
	if err := decodeData(env, &roster); err != nil {
		return nil, err
	}
	return roster, nil
}

// AddTreatment creates a treatment record and returns the stored record.
func (c *Client) AddTreatment(ctx context.Context, req NewTreatment) (*Treatment, error) {
	resp, err := c.request(ctx).SetBody(req).Post("/auth/treatments")
	env, err := c.call("add-treatment", resp, err)
	if err != nil {
		return nil, err
	}

	var created Treatment
	if err := decodeData(env, &created); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteTreatment removes one treatment record by id.
func (c *Client) DeleteTreatment(ctx context.Context, id string) error {
	if id == "" {
		return &Error{Message: "treatment id is required"}
	}
	resp, err := c.request(ctx).Delete(fmt.Sprintf("/auth/treatments/%s", id))
	_, err = c.call("delete-treatment", resp, err)
	return err
}
