package ga

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func TestAuthCodeURL(t *testing.T) {
	client := NewAuthClient("client-id", "client-secret")
	raw := client.AuthCodeURL("https://printer.example.com/daily/return/", "https://remote.example.com/done")

	parsed, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("AuthCodeURL produced unparseable URL: %v", err)
	}
	query := parsed.Query()

	if query.Get("access_type") != "offline" {
		t.Error("consent URL does not request offline access")
	}
	if query.Get("prompt") != "consent" {
		t.Error("consent URL does not force re-consent")
	}
	if !strings.Contains(query.Get("scope"), "analytics.readonly") {
		t.Errorf("scope = %q, want analytics.readonly", query.Get("scope"))
	}
	if query.Get("redirect_uri") != "https://printer.example.com/daily/return/" {
		t.Errorf("redirect_uri = %q", query.Get("redirect_uri"))
	}
	if query.Get("state") != "https://remote.example.com/done" {
		t.Errorf("state = %q", query.Get("state"))
	}
}

func TestTokenFromRefresh(t *testing.T) {
	t.Run("exchanges refresh for access token", func(t *testing.T) {
		var gotGrant, gotRefresh string
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			gotGrant = r.Form.Get("grant_type")
			gotRefresh = r.Form.Get("refresh_token")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token": "fresh-access", "token_type": "Bearer", "expires_in": 3600}`))
		}))
		defer tokenServer.Close()

		client := NewAuthClient("client-id", "client-secret")
		client.config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer.URL}

		token, err := client.TokenFromRefresh(context.Background(), "stored-refresh")
		if err != nil {
			t.Fatalf("TokenFromRefresh returned error: %v", err)
		}
		if token.AccessToken != "fresh-access" {
			t.Errorf("access token = %q", token.AccessToken)
		}
		if gotGrant != "refresh_token" || gotRefresh != "stored-refresh" {
			t.Errorf("token request grant=%q refresh=%q", gotGrant, gotRefresh)
		}
	})

	t.Run("rejection maps to authentication failure", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error": "invalid_grant"}`))
		}))
		defer tokenServer.Close()

		client := NewAuthClient("client-id", "client-secret")
		client.config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer.URL}

		if _, err := client.TokenFromRefresh(context.Background(), "revoked"); !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("TokenFromRefresh error = %v, want ErrAuthenticationFailed", err)
		}
	})

	t.Run("empty refresh token", func(t *testing.T) {
		client := NewAuthClient("client-id", "client-secret")
		if _, err := client.TokenFromRefresh(context.Background(), ""); !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("TokenFromRefresh error = %v, want ErrAuthenticationFailed", err)
		}
	})
}

func TestExchange(t *testing.T) {
	t.Run("code for token pair", func(t *testing.T) {
		var gotCode, gotRedirect string
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r.ParseForm()
			gotCode = r.Form.Get("code")
			gotRedirect = r.Form.Get("redirect_uri")
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"access_token": "access", "refresh_token": "refresh", "token_type": "Bearer", "expires_in": 3600}`))
		}))
		defer tokenServer.Close()

		client := NewAuthClient("client-id", "client-secret")
		client.config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer.URL}

		token, err := client.Exchange(context.Background(), "auth-code", "https://printer.example.com/daily/return/")
		if err != nil {
			t.Fatalf("Exchange returned error: %v", err)
		}
		if token.RefreshToken != "refresh" {
			t.Errorf("refresh token = %q", token.RefreshToken)
		}
		if gotCode != "auth-code" || gotRedirect != "https://printer.example.com/daily/return/" {
			t.Errorf("exchange request code=%q redirect=%q", gotCode, gotRedirect)
		}
	})

	t.Run("rejection maps to authentication failure", func(t *testing.T) {
		tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		}))
		defer tokenServer.Close()

		client := NewAuthClient("client-id", "client-secret")
		client.config.Endpoint = oauth2.Endpoint{TokenURL: tokenServer.URL}

		if _, err := client.Exchange(context.Background(), "bad-code", "https://x/return/"); !errors.Is(err, ErrAuthenticationFailed) {
			t.Errorf("Exchange error = %v, want ErrAuthenticationFailed", err)
		}
	})
}
