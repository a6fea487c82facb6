package apiclient

import (
	"context"
	"net/http"

	"evoting/portal-service/internal/models"
	"evoting/portal-service/internal/session"
)

type AdminCredentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AdminOTP struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
}

type VoterCredentials struct {
	VoterID string `json:"voter_id,omitempty"`
	Aadhaar string `json:"aadhaar,omitempty"`
	Mobile  string `json:"mobile"`
}

type VoterOTP struct {
	VoterID string `json:"voter_id,omitempty"`
	Mobile  string `json:"mobile"`
	OTP     string `json:"otp"`
}

type VoterRegistration struct {
	Name          string `json:"name"`
	Aadhaar       string `json:"aadhaar"`
	Mobile        string `json:"mobile"`
	LocalBodyType string `json:"local_body_type"`
	District      string `json:"district"`
	Block         string `json:"block,omitempty"`
	LocalBody     string `json:"local_body,omitempty"`
	Ward          string `json:"ward,omitempty"`
}

var anonymous = session.Session{}

func (c *Client) AdminLogin(ctx context.Context, creds AdminCredentials) (models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.fetch(ctx, anonymous, call{method: http.MethodPost, path: "/api/auth/admin-login", body: creds}, &out)
	return out, err
}

func (c *Client) VerifyAdminOTP(ctx context.Context, otp AdminOTP) (models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.fetch(ctx, anonymous, call{method: http.MethodPost, path: "/api/auth/admin/verify-otp", body: otp}, &out)
	return out, err
}

func (c *Client) VoterLogin(ctx context.Context, creds VoterCredentials) (models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.fetch(ctx, anonymous, call{method: http.MethodPost, path: "/api/auth/voter/login", body: creds}, &out)
	return out, err
}

func (c *Client) VerifyVoterOTP(ctx context.Context, otp VoterOTP) (models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.fetch(ctx, anonymous, call{method: http.MethodPost, path: "/api/auth/voter/verify-otp", body: otp}, &out)
	return out, err
}

func (c *Client) RegisterVoter(ctx context.Context, reg VoterRegistration) (models.LoginResponse, error) {
	var out models.LoginResponse
	err := c.fetch(ctx, anonymous, call{method: http.MethodPost, path: "/api/auth/voter/register", body: reg}, &out)
	return out, err
}

// KeralaData returns the raw reference payload; refdata normalizes it.
func (c *Client) KeralaData(ctx context.Context) (any, error) {
	var out any
	err := c.fetch(ctx, anonymous, call{method: http.MethodGet, path: "/api/common/kerala-data"}, &out)
	return out, err
}
