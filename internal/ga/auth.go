package ga

import (
	"context"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// AnalyticsReadOnlyScope is the only scope the publication ever asks for.
const AnalyticsReadOnlyScope = "https://www.googleapis.com/auth/analytics.readonly"

// AuthClient handles the OAuth2 exchanges with Google: building the
// consent URL, swapping an authorization code for tokens on the
// configuration path, and deriving a fresh access token from a stored
// refresh token on every edition request. Nothing is cached across
// requests; the refresh token handed back to the subscriber is the only
// durable credential.
type AuthClient struct {
	config *oauth2.Config
}

// NewAuthClient creates an auth client from the process-wide OAuth
// client credentials.
func NewAuthClient(clientID, clientSecret string) *AuthClient {
	return &AuthClient{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{AnalyticsReadOnlyScope},
		},
	}
}

// AuthCodeURL builds the Google consent page URL. Offline access is
// required so Google issues a refresh token, and consent is forced so a
// refresh token is returned even when the user approved the app before.
// state is passed through the dance untouched.
func (a *AuthClient) AuthCodeURL(redirectURL, state string) string {
	conf := a.withRedirect(redirectURL)
	return conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange swaps an authorization code for a token pair. The redirect
// URL must match the one used to build the consent URL.
func (a *AuthClient) Exchange(ctx context.Context, code, redirectURL string) (*oauth2.Token, error) {
	conf := a.withRedirect(redirectURL)
	token, err := conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: code exchange rejected: %v", ErrAuthenticationFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: received empty access token", ErrAuthenticationFailed)
	}
	return token, nil
}

// TokenFromRefresh exchanges a refresh token for a short-lived access
// token. Called exactly once per incoming request; a rejection means
// the token is revoked or malformed and must be surfaced to the caller
// rather than retried.
func (a *AuthClient) TokenFromRefresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("%w: empty refresh token", ErrAuthenticationFailed)
	}

	source := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: refresh rejected: %v", ErrAuthenticationFailed, err)
	}
	if token.AccessToken == "" {
		return nil, fmt.Errorf("%w: received empty access token", ErrAuthenticationFailed)
	}
	if !token.Valid() {
		return nil, fmt.Errorf("%w: received invalid token", ErrAuthenticationFailed)
	}
	return token, nil
}

// HTTPClient returns an HTTP client that attaches the given token to
// every request it makes.
func (a *AuthClient) HTTPClient(ctx context.Context, token *oauth2.Token) *http.Client {
	return oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))
}

func (a *AuthClient) withRedirect(redirectURL string) *oauth2.Config {
	conf := *a.config
	conf.RedirectURL = redirectURL
	return &conf
}
