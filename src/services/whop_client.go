package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/username/tidyguru/backend/src/logger"
	"golang.org/x/oauth2"
)

// WhopMembership is a membership as returned by the Whop API and carried in webhooks.
type WhopMembership struct {
	ID               string                 `json:"id"`
	User             string                 `json:"user"`
	Product          string                 `json:"product"`
	Plan             string                 `json:"plan"`
	Status           string                 `json:"status"`
	Valid            bool                   `json:"valid"`
	CreatedAt        *int64                 `json:"created_at"`
	ExpiresAt        *int64                 `json:"expires_at"`
	RenewalPeriodEnd *int64                 `json:"renewal_period_end"`
	Metadata         map[string]interface{} `json:"metadata"`
}

// Email returns the buyer email Whop forwards in metadata, if any.
func (m *WhopMembership) Email() string {
	if m.Metadata == nil {
		return ""
	}
	email, _ := m.Metadata["email"].(string)
	return strings.TrimSpace(email)
}

// PeriodEnd is the renewal period end, or nil when Whop did not send one.
func (m *WhopMembership) PeriodEnd() *time.Time {
	return unixPtr(m.RenewalPeriodEnd)
}

// AccessEnd prefers the hard expiry over the renewal period end.
func (m *WhopMembership) AccessEnd() *time.Time {
	if t := unixPtr(m.ExpiresAt); t != nil {
		return t
	}
	return m.PeriodEnd()
}

// WhopWebhookEvent is the envelope Whop posts to the webhook endpoint.
type WhopWebhookEvent struct {
	Action string         `json:"action"`
	Data   WhopMembership `json:"data"`
}

func unixPtr(v *int64) *time.Time {
	if v == nil || *v == 0 {
		return nil
	}
	t := time.Unix(*v, 0).UTC()
	return &t
}

type whopClientImpl struct {
	httpClient *http.Client
	baseURL    string
}

// NewWhopClient builds an API client that authenticates every request with apiKey as a bearer token.
func NewWhopClient(baseURL, apiKey string) WhopClient {
	base := &http.Client{Timeout: 20 * time.Second}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: apiKey, TokenType: "Bearer"})
	return &whopClientImpl{
		httpClient: oauth2.NewClient(ctx, src),
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

func (c *whopClientImpl) GetMembership(ctx context.Context, membershipID string) (*WhopMembership, error) {
	endpoint := fmt.Sprintf("%s/memberships/%s", c.baseURL, url.PathEscape(membershipID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whop membership request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		logger.FromContext(ctx).Warn("Whop API returned non-OK status", "membershipID", membershipID, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("whop API returned status %d for membership %s", resp.StatusCode, membershipID)
	}

	var membership WhopMembership
	if err := json.NewDecoder(resp.Body).Decode(&membership); err != nil {
		return nil, fmt.Errorf("failed to decode whop membership: %w", err)
	}
	return &membership, nil
}
