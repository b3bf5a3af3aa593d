package clerk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/regod-app/regod-api/internal/auth"
)

// Config holds credentials for the hosted identity provider.
type Config struct {
	APIURL string
	APIKey string
}

// Client talks to the Clerk backend API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	logger  zerolog.Logger
}

// User is the subset of the provider user record the service consumes.
type User struct {
	ID             string  `json:"id"`
	Email          string  `json:"-"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	EmailVerified  bool    `json:"-"`
	ProfileImage   string  `json:"profile_image_url"`
	EmailAddresses []email `json:"email_addresses"`
}

type email struct {
	EmailAddress string `json:"email_address"`
	Verification *struct {
		Status string `json:"status"`
	} `json:"verification"`
}

// Invitation is the provider response to an invitation request.
type Invitation struct {
	ID           string `json:"id"`
	EmailAddress string `json:"email_address"`
	Status       string `json:"status"`
}

// New constructs a provider client. A nil client is returned when no API
// key is configured so callers can treat the integration as optional.
func New(cfg Config, logger zerolog.Logger) *Client {
	if cfg.APIKey == "" {
		return nil
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: 10 * time.Second},
		logger:  logger.With().Str("component", "clerk").Logger(),
	}
}

// VerifySession introspects an opaque session token with the provider and
// maps the result onto verified claims.
func (c *Client) VerifySession(ctx context.Context, token string) (auth.Claims, error) {
	if c == nil {
		return auth.Claims{}, auth.ErrSessionRejected
	}

	payload, err := json.Marshal(map[string]string{"token": token})
	if err != nil {
		return auth.Claims{}, fmt.Errorf("%w: %v", auth.ErrVerificationFailed, err)
	}

	var result struct {
		ID     string `json:"id"`
		UserID string `json:"user_id"`
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, "/sessions/verify", bytes.NewReader(payload), &result); err != nil {
		return auth.Claims{}, err
	}

	if result.UserID == "" || (result.Status != "" && result.Status != "active") {
		return auth.Claims{}, auth.ErrSessionRejected
	}

	user, err := c.GetUser(ctx, result.UserID)
	if err != nil {
		c.logger.Warn().Err(err).Str("user_id", result.UserID).Msg("session verified but user lookup failed")

		return auth.Claims{SubjectID: result.UserID}, nil
	}

	return auth.Claims{
		SubjectID: user.ID,
		Email:     user.Email,
		Name:      strings.TrimSpace(user.FirstName + " " + user.LastName),
		Verified:  user.EmailVerified,
	}, nil
}

// GetUser fetches a provider user record.
func (c *Client) GetUser(ctx context.Context, userID string) (User, error) {
	if c == nil {
		return User{}, fmt.Errorf("identity provider is not configured")
	}

	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+userID, nil, &user); err != nil {
		return User{}, err
	}

	for _, address := range user.EmailAddresses {
		if user.Email == "" {
			user.Email = address.EmailAddress
		}
		if address.Verification != nil && address.Verification.Status == "verified" {
			user.Email = address.EmailAddress
			user.EmailVerified = true
			break
		}
	}

	return user, nil
}

// CreateInvitation asks the provider to email a signup invitation.
func (c *Client) CreateInvitation(ctx context.Context, emailAddress, redirectURL string) (Invitation, error) {
	if c == nil {
		return Invitation{}, fmt.Errorf("identity provider is not configured")
	}

	body := map[string]any{
		"email_address": emailAddress,
	}
	if redirectURL != "" {
		body["redirect_url"] = redirectURL
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return Invitation{}, err
	}

	var invitation Invitation
	if err := c.do(ctx, http.MethodPost, "/invitations", bytes.NewReader(payload), &invitation); err != nil {
		return Invitation{}, err
	}

	return invitation, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("%w: %v", auth.ErrVerificationFailed, err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", auth.ErrVerificationFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusNotFound {
		return auth.ErrSessionRejected
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: provider returned status %d", auth.ErrVerificationFailed, resp.StatusCode)
	}

	if out == nil {
		return nil
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
