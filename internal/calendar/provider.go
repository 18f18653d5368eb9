package calendar

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/odontoapp/turnos-api/pkg/logging"
)

type tokenStore interface {
	Get(ctx context.Context) (*oauth2.Token, error)
	Save(ctx context.Context, tok *oauth2.Token) error
}

// Provider owns the Google credential lifecycle: it hands out calendar
// clients backed by an auto-refreshing token source and persists refreshed
// tokens. Components never refresh credentials themselves; they only check
// readiness before use.
type Provider struct {
	oauth      *oauth2.Config
	store      tokenStore
	calendarID string
	tzName     string
	logger     *logging.Logger
}

// ProviderConfig configures the credential provider.
type ProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	CalendarID   string
	Timezone     string
	Store        *TokenStore
	Logger       *logging.Logger
}

func NewProvider(cfg ProviderConfig) *Provider {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}
	calendarID := cfg.CalendarID
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Provider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{gcal.CalendarScope},
			Endpoint:     google.Endpoint,
		},
		store:      cfg.Store,
		calendarID: calendarID,
		tzName:     cfg.Timezone,
		logger:     logger,
	}
}

// AuthURL returns the consent URL for the initial connection. Offline access
// is requested so a refresh token is issued.
func (p *Provider) AuthURL(state string) string {
	return p.oauth.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// Exchange trades an authorization code for a token and persists it.
func (p *Provider) Exchange(ctx context.Context, code string) error {
	tok, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("calendar: exchange code: %w", err)
	}
	if err := p.store.Save(ctx, tok); err != nil {
		return err
	}
	p.logger.Info("google calendar connected", "expiry", tok.Expiry)
	return nil
}

// IsReady reports whether a usable credential exists: either a still-valid
// access token or a refresh token the transport can redeem on demand.
func (p *Provider) IsReady(ctx context.Context) bool {
	tok, err := p.store.Get(ctx)
	if err != nil {
		p.logger.Error("credential readiness check failed", "error", err)
		return false
	}
	if tok == nil {
		return false
	}
	return tok.RefreshToken != "" || tok.Valid()
}

// Calendar returns an event client for the configured calendar, or
// ErrNotConnected when no credential is stored.
func (p *Provider) Calendar(ctx context.Context) (EventAPI, error) {
	tok, err := p.store.Get(ctx)
	if err != nil {
		return nil, err
	}
	if tok == nil || (tok.RefreshToken == "" && !tok.Valid()) {
		return nil, ErrNotConnected
	}

	src := &savingTokenSource{
		base:   p.oauth.TokenSource(ctx, tok),
		store:  p.store,
		logger: p.logger,
		last:   tok.AccessToken,
	}
	svc, err := gcal.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("calendar: new service: %w", err)
	}
	return NewClient(svc, p.calendarID, p.tzName), nil
}

// Watch registers a push-notification channel on the practice calendar.
func (p *Provider) Watch(ctx context.Context, address string, ttl time.Duration) (*WatchInfo, error) {
	api, err := p.Calendar(ctx)
	if err != nil {
		return nil, err
	}
	client, ok := api.(*Client)
	if !ok {
		return nil, fmt.Errorf("calendar: watch not supported by %T", api)
	}
	return client.Watch(ctx, address, ttl)
}

// savingTokenSource writes refreshed tokens back to the store so a restart
// does not lose the rotated access token.
type savingTokenSource struct {
	base   oauth2.TokenSource
	store  tokenStore
	logger *logging.Logger
	last   string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		// Persistence is best-effort; the refreshed token is already usable.
		if err := s.store.Save(context.Background(), tok); err != nil {
			s.logger.Error("failed to persist refreshed token", "error", err)
		} else {
			s.logger.Info("refreshed google token persisted", "expiry", tok.Expiry)
		}
	}
	return tok, nil
}
