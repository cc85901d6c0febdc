// Package server exposes the publication over HTTP: edition delivery,
// subscriber configuration via OAuth, the sample page, and publication
// metadata, each scoped by cadence in the URL path.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"gazette/internal/config"
	"gazette/internal/ga"
	"gazette/internal/hierarchy"
	"gazette/internal/period"
)

// ErrInvalidInput means a required request parameter was missing or
// unusable. No provider call is attempted for these.
var ErrInvalidInput = errors.New("invalid input")

// Provider is the per-request slice of the analytics API the handlers
// use: the three flat listings plus reporting queries.
type Provider interface {
	ListAccounts(ctx context.Context) ([]ga.Account, error)
	ListWebProperties(ctx context.Context) ([]ga.WebProperty, error)
	ListProfiles(ctx context.Context) ([]ga.Profile, error)
	Run(ctx context.Context, q ga.Query) (*ga.Result, error)
}

// Authenticator is the slice of the OAuth client the handlers use.
type Authenticator interface {
	AuthCodeURL(redirectURL, state string) string
	Exchange(ctx context.Context, code, redirectURL string) (*oauth2.Token, error)
	TokenFromRefresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// ConnectFunc builds a Provider around an access token for the
// duration of one request.
type ConnectFunc func(ctx context.Context, token *oauth2.Token) Provider

// Server holds the read-only wiring for the HTTP surface. Requests are
// otherwise independent; no state is shared between them.
type Server struct {
	cfg     *config.Settings
	log     zerolog.Logger
	auth    Authenticator
	connect ConnectFunc
	now     func() time.Time
}

// New creates a server.
func New(cfg *config.Settings, log zerolog.Logger, auth Authenticator, connect ConnectFunc) *Server {
	return &Server{
		cfg:     cfg,
		log:     log,
		auth:    auth,
		connect: connect,
		now:     time.Now,
	}
}

// Router builds the HTTP routing tree. The cadence segment is matched
// against the valid values in the route pattern, so unknown cadences
// 404 without touching a handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(s.requestLogger)

	r.Route("/{cadence:daily|weekly}", func(r chi.Router) {
		r.Get("/meta.json", s.handleMeta)
		r.Get("/edition/", s.handleEdition)
		r.Get("/sample/", s.handleSample)
		r.Get("/configure/", s.handleConfigure)
		r.Get("/return/", s.handleReturn)
		r.Get("/validate_config/", s.handleValidateConfig)
	})

	return r
}

func (s *Server) cadence(r *http.Request) (period.Cadence, error) {
	return period.ParseCadence(chi.URLParam(r, "cadence"))
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("failed to encode response")
	}
}

// writeError maps the error taxonomy onto HTTP statuses. Input errors
// carry their specific message since the requester can act on them;
// credential and provider failures collapse to a generic retry signal.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, period.ErrInvalidCadence):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, ga.ErrAuthenticationFailed):
		status = http.StatusUnauthorized
		message = "authentication with the analytics provider failed; reconfigure the publication"
	case errors.Is(err, ga.ErrQueryFailed), errors.Is(err, hierarchy.ErrMalformedIdentifier):
		status = http.StatusBadGateway
		message = "the analytics provider could not be queried; try again later"
	default:
		status = http.StatusInternalServerError
		message = "internal error"
	}

	s.log.Error().Err(err).Int("status", status).Str("path", r.URL.Path).Msg("request failed")
	s.writeJSON(w, status, map[string]string{"error": message})
}
