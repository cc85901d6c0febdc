package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gazette/internal/edition"
	"gazette/internal/hierarchy"
	"gazette/internal/period"
)

// Accepted forms for the printer's local delivery time. Printers send
// full timestamps; only the calendar date matters here.
var deliveryTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	period.DateLayout,
}

func parseDeliveryTime(value string) (time.Time, error) {
	for _, layout := range deliveryTimeLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: local_delivery_time %q is not an ISO-8601 time", ErrInvalidInput, value)
}

// handleEdition generates one delivery. The ETag is set on every
// outcome that reaches the period calculation, including the
// not-a-delivery-day short-circuit, so caching intermediaries can
// collapse same-day repeats.
func (s *Server) handleEdition(w http.ResponseWriter, r *http.Request) {
	cadence, err := s.cadence(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	query := r.URL.Query()
	refreshToken := query.Get("access_token")
	profilesParam := query.Get("profiles")
	deliveryParam := query.Get("local_delivery_time")

	if refreshToken == "" {
		s.writeError(w, r, fmt.Errorf("%w: access_token parameter is required", ErrInvalidInput))
		return
	}
	if profilesParam == "" {
		s.writeError(w, r, fmt.Errorf("%w: profiles parameter is required", ErrInvalidInput))
		return
	}
	if deliveryParam == "" {
		s.writeError(w, r, fmt.Errorf("%w: local_delivery_time parameter is required", ErrInvalidInput))
		return
	}

	asOf, err := parseDeliveryTime(deliveryParam)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("ETag", strconv.Quote(edition.Fingerprint(refreshToken, asOf)))

	periods, err := period.Compute(cadence, asOf, s.cfg.WeeklyDeliveryDay)
	if err != nil {
		if err == period.ErrNotDeliveryDay {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		s.writeError(w, r, err)
		return
	}

	ctx := r.Context()
	token, err := s.auth.TokenFromRefresh(ctx, refreshToken)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	provider := s.connect(ctx, token)
	profiles, err := provider.ListProfiles(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	ed, err := edition.NewBuilder(provider).Build(ctx, profiles, strings.Fields(profilesParam), cadence, periods)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, ed)
}

// handleSample serves the canned edition for prospective subscribers.
func (s *Server) handleSample(w http.ResponseWriter, r *http.Request) {
	cadence, err := s.cadence(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	asOf := s.now()
	w.Header().Set("ETag", strconv.Quote(edition.Fingerprint(edition.SampleToken, asOf)))
	s.writeJSON(w, http.StatusOK, edition.Sample(cadence, asOf))
}

// handleMeta serves the publication directory metadata.
func (s *Server) handleMeta(w http.ResponseWriter, r *http.Request) {
	cadence, err := s.cadence(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	meta := map[string]interface{}{
		"name":                   "Web Traffic Gazette",
		"description":            "Visits, unique visitors and pageviews for your sites, compared with the previous period.",
		"delivered_every":        map[period.Cadence]string{period.Daily: "day", period.Weekly: "week"}[cadence],
		"send_timezone_info":     true,
		"external_configuration": false,
	}
	s.writeJSON(w, http.StatusOK, meta)
}

// handleConfigure starts the OAuth dance. The subscriber's return_url
// rides along in the OAuth state parameter so nothing needs to be
// stored server-side.
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	cadence, err := s.cadence(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	returnURL := r.URL.Query().Get("return_url")
	if returnURL == "" {
		s.writeError(w, r, fmt.Errorf("%w: return_url parameter is required", ErrInvalidInput))
		return
	}

	redirectURL := s.callbackURL(r, cadence)
	http.Redirect(w, r, s.auth.AuthCodeURL(redirectURL, returnURL), http.StatusFound)
}

// handleReturn finishes the OAuth dance: exchanges the authorization
// code, lists the subscriber's accounts/properties/profiles, and hands
// back the refresh token together with the hierarchy so the caller can
// present a profile picker. The caller owns storing the token.
func (s *Server) handleReturn(w http.ResponseWriter, r *http.Request) {
	cadence, err := s.cadence(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		s.writeError(w, r, fmt.Errorf("%w: no authorization code returned", ErrInvalidInput))
		return
	}

	ctx := r.Context()
	token, err := s.auth.Exchange(ctx, code, s.callbackURL(r, cadence))
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	provider := s.connect(ctx, token)

	accounts, err := provider.ListAccounts(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	properties, err := provider.ListWebProperties(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	profiles, err := provider.ListProfiles(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	tree, err := hierarchy.Build(accounts, properties, profiles)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"refresh_token": token.RefreshToken,
		"return_url":    r.URL.Query().Get("state"),
		"accounts":      tree,
	})
}

// subscriberConfig is the shape validate_config checks: the stored
// refresh token plus the space-separated profile selection.
type subscriberConfig struct {
	AccessToken string `json:"access_token"`
	Profiles    string `json:"profiles"`
}

// handleValidateConfig checks a submitted subscriber configuration
// without touching the provider.
func (s *Server) handleValidateConfig(w http.ResponseWriter, r *http.Request) {
	if _, err := s.cadence(r); err != nil {
		s.writeError(w, r, err)
		return
	}

	raw := r.URL.Query().Get("config")
	if raw == "" {
		s.writeError(w, r, fmt.Errorf("%w: config parameter is required", ErrInvalidInput))
		return
	}

	var cfg subscriberConfig
	var errs []string
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		errs = append(errs, "config is not valid JSON")
	} else {
		if cfg.AccessToken == "" {
			errs = append(errs, "access_token is missing")
		}
		ids := strings.Fields(cfg.Profiles)
		if len(ids) == 0 {
			errs = append(errs, "no profiles selected")
		}
		for _, id := range ids {
			if _, err := strconv.ParseInt(id, 10, 64); err != nil {
				errs = append(errs, fmt.Sprintf("profile id %q is not numeric", id))
			}
		}
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  len(errs) == 0,
		"errors": errs,
	})
}

// callbackURL reconstructs this service's own /return/ URL for the
// OAuth redirect, honoring proxies that terminate TLS.
func (s *Server) callbackURL(r *http.Request, cadence period.Cadence) string {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/%s/return/", scheme, r.Host, cadence)
}
