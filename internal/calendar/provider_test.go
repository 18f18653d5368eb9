package calendar

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/odontoapp/turnos-api/pkg/logging"
)

// memTokenStore keeps the token in memory for provider tests.
type memTokenStore struct {
	mu  sync.Mutex
	tok *oauth2.Token
}

func (s *memTokenStore) Get(ctx context.Context) (*oauth2.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tok, nil
}

func (s *memTokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tok = tok
	return nil
}

func newTestProvider(store tokenStore) *Provider {
	p := NewProvider(ProviderConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://api.example/oauth/google/callback",
		Timezone:     "America/Argentina/Buenos_Aires",
	})
	p.store = store
	return p
}

func TestIsReady(t *testing.T) {
	tests := []struct {
		name  string
		tok   *oauth2.Token
		ready bool
	}{
		{"no token", nil, false},
		{"refresh token present", &oauth2.Token{RefreshToken: "rt"}, true},
		{"valid access token", &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(time.Hour)}, true},
		{"expired without refresh", &oauth2.Token{AccessToken: "at", Expiry: time.Now().Add(-time.Hour)}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestProvider(&memTokenStore{tok: tt.tok})
			if got := p.IsReady(context.Background()); got != tt.ready {
				t.Errorf("IsReady = %v, want %v", got, tt.ready)
			}
		})
	}
}

func TestCalendarRequiresCredential(t *testing.T) {
	p := newTestProvider(&memTokenStore{})
	if _, err := p.Calendar(context.Background()); err != ErrNotConnected {
		t.Errorf("expected ErrNotConnected, got %v", err)
	}
}

func TestExchangePersistsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "at-new",
			"refresh_token": "rt-new",
			"token_type":    "Bearer",
			"expires_in":    3600,
		})
	}))
	defer srv.Close()

	store := &memTokenStore{}
	p := newTestProvider(store)
	p.oauth.Endpoint = oauth2.Endpoint{AuthURL: srv.URL + "/auth", TokenURL: srv.URL + "/token"}

	if err := p.Exchange(context.Background(), "auth-code"); err != nil {
		t.Fatalf("Exchange: %v", err)
	}

	tok, _ := store.Get(context.Background())
	if tok == nil || tok.AccessToken != "at-new" || tok.RefreshToken != "rt-new" {
		t.Errorf("token not persisted: %+v", tok)
	}
	if !p.IsReady(context.Background()) {
		t.Error("provider should be ready after exchange")
	}
}

func TestSavingTokenSourcePersistsRotation(t *testing.T) {
	store := &memTokenStore{tok: &oauth2.Token{AccessToken: "old"}}
	rotated := &oauth2.Token{AccessToken: "new", RefreshToken: "rt", Expiry: time.Now().Add(time.Hour)}

	src := &savingTokenSource{
		base:   oauth2.StaticTokenSource(rotated),
		store:  store,
		logger: testLogger(),
		last:   "old",
	}

	tok, err := src.Token()
	if err != nil {
		t.Fatalf("Token: %v", err)
	}
	if tok.AccessToken != "new" {
		t.Errorf("unexpected token: %+v", tok)
	}

	saved, _ := store.Get(context.Background())
	if saved == nil || saved.AccessToken != "new" {
		t.Errorf("rotated token not saved: %+v", saved)
	}

	// A second call with the same token must not rewrite.
	if _, err := src.Token(); err != nil {
		t.Fatalf("Token (second): %v", err)
	}
}

func TestAuthURLRequestsOfflineAccess(t *testing.T) {
	p := newTestProvider(&memTokenStore{})
	url := p.AuthURL("state-123")
	for _, want := range []string{"access_type=offline", "state=state-123"} {
		if !strings.Contains(url, want) {
			t.Errorf("auth url missing %q: %s", want, url)
		}
	}
}

func testLogger() *logging.Logger {
	return logging.NewWithWriter(io.Discard, "error")
}
