package ga

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// DefaultManagementBaseURL is the Google Analytics Management API root.
const DefaultManagementBaseURL = "https://www.googleapis.com/analytics/v3/management"

// Account is one entry from the flat accounts listing.
type Account struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// WebProperty is one entry from the flat web properties listing. The ID
// carries the structured "UA-<account>-<sequence>" form.
type WebProperty struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile is one entry from the flat profiles (views) listing.
type Profile struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	WebPropertyID string `json:"webPropertyId"`
}

// ManagementClient lists the account/property/profile entities the
// authenticated user can see. A client is built per request around an
// already-authenticated HTTP client.
type ManagementClient struct {
	httpClient *http.Client
	baseURL    string
}

// NewManagementClient creates a management client. httpClient must
// attach the caller's access token to its requests.
func NewManagementClient(httpClient *http.Client) *ManagementClient {
	return &ManagementClient{
		httpClient: httpClient,
		baseURL:    DefaultManagementBaseURL,
	}
}

// SetBaseURL overrides the API root, for tests.
func (c *ManagementClient) SetBaseURL(url string) {
	c.baseURL = url
}

type accountsResponse struct {
	Items []Account `json:"items"`
}

type webPropertiesResponse struct {
	Items []WebProperty `json:"items"`
}

type profilesResponse struct {
	Items []Profile `json:"items"`
}

// ListAccounts returns every account visible to the credential, in the
// order the provider returned them.
func (c *ManagementClient) ListAccounts(ctx context.Context) ([]Account, error) {
	var out accountsResponse
	if err := c.get(ctx, c.baseURL+"/accounts", &out); err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	return out.Items, nil
}

// ListWebProperties returns every web property across all accounts, in
// provider order.
func (c *ManagementClient) ListWebProperties(ctx context.Context) ([]WebProperty, error) {
	var out webPropertiesResponse
	if err := c.get(ctx, c.baseURL+"/accounts/~all/webproperties", &out); err != nil {
		return nil, fmt.Errorf("list web properties: %w", err)
	}
	return out.Items, nil
}

// ListProfiles returns every profile across all accounts and
// properties, in provider order.
func (c *ManagementClient) ListProfiles(ctx context.Context) ([]Profile, error) {
	var out profilesResponse
	if err := c.get(ctx, c.baseURL+"/accounts/~all/webproperties/~all/profiles", &out); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return out.Items, nil
}

func (c *ManagementClient) get(ctx context.Context, url string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %v", ErrQueryFailed, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: management API returned status %d", ErrAuthenticationFailed, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: management API returned status %d: %s", ErrQueryFailed, resp.StatusCode, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrQueryFailed, err)
	}
	return nil
}
