package kratos

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Session is the session-introspection response of an Ory-Kratos-compatible
// identity provider. Unknown fields are ignored.
type Session struct {
	ID                    string                 `json:"id"`
	Active                bool                   `json:"active"`
	AuthenticatedAt       time.Time              `json:"authenticated_at"`
	ExpiresAt             time.Time              `json:"expires_at"`
	IssuedAt              time.Time              `json:"issued_at"`
	AuthenticationMethods []AuthenticationMethod `json:"authentication_methods"`
	Identity              *Identity              `json:"identity"`
}

// AuthenticationMethod describes one completed authentication step.
type AuthenticationMethod struct {
	Method      string    `json:"method"`
	Provider    string    `json:"provider"`
	CompletedAt time.Time `json:"completed_at"`
}

// Identity is the provider-side identity attached to a session.
type Identity struct {
	ID       string `json:"id"`
	SchemaID string `json:"schema_id"`
	State    string `json:"state"`
	Traits   Traits `json:"traits"`
}

// Traits carries the identity attributes the auth core needs.
type Traits struct {
	Email string `json:"email"`
}

// OIDCProvider returns the provider name of the first OIDC authentication
// method, if the session has one.
func (s *Session) OIDCProvider() (string, bool) {
	for _, am := range s.AuthenticationMethods {
		if strings.EqualFold(am.Method, "oidc") {
			return am.Provider, true
		}
	}
	return "", false
}

// Client calls the identity provider's public session endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Kratos client for the given public base URL. A
// trailing slash on the URL is tolerated. A nil httpClient falls back to a
// client with a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// WhoAmI introspects the session identified by the given cookie. It performs
// a single attempt; any transport or decode failure is returned as-is for
// the caller to classify.
func (c *Client) WhoAmI(ctx context.Context, cookieName, cookieValue string) (*Session, error) {
	url := c.baseURL + "/sessions/whoami"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build whoami request: %w", err)
	}
	req.AddCookie(&http.Cookie{Name: cookieName, Value: cookieValue})

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("whoami request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("whoami returned status %d: %s", resp.StatusCode, string(bodyBytes))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("failed to decode whoami response: %w", err)
	}
	return &session, nil
}
