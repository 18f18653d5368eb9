package calendar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/oauth2"
)

// serviceName keys the single credential row used by the booking system.
const serviceName = "calendar"

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TokenStore persists the Google OAuth token so the credential survives
// restarts. One row per service.
type TokenStore struct {
	pool rowQuerier
}

func NewTokenStore(pool *pgxpool.Pool) *TokenStore {
	if pool == nil {
		panic("calendar: pgx pool required")
	}
	return &TokenStore{pool: pool}
}

func newTokenStoreWithExec(q rowQuerier) *TokenStore {
	if q == nil {
		panic("calendar: exec required")
	}
	return &TokenStore{pool: q}
}

// Get returns the stored token, or nil when none has been saved yet. The
// granted scope rides along as the token's "scope" extra, where the oauth2
// package put it when the token was first exchanged.
func (s *TokenStore) Get(ctx context.Context) (*oauth2.Token, error) {
	query := `
		SELECT access_token, refresh_token, token_type, expiry, scope
		FROM google_tokens
		WHERE service_name = $1
	`
	var tok oauth2.Token
	var expiry *time.Time
	var scope string
	err := s.pool.QueryRow(ctx, query, serviceName).Scan(
		&tok.AccessToken,
		&tok.RefreshToken,
		&tok.TokenType,
		&expiry,
		&scope,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("calendar: get token: %w", err)
	}
	if expiry != nil {
		tok.Expiry = *expiry
	}
	out := &tok
	if scope != "" {
		out = out.WithExtra(map[string]any{"scope": scope})
	}
	return out, nil
}

// Save upserts the token. A refreshed token often arrives without a refresh
// token or scope; the stored values are kept in those cases.
func (s *TokenStore) Save(ctx context.Context, tok *oauth2.Token) error {
	query := `
		INSERT INTO google_tokens (service_name, access_token, refresh_token, token_type, expiry, scope, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, CURRENT_TIMESTAMP)
		ON CONFLICT (service_name)
		DO UPDATE SET
			access_token = EXCLUDED.access_token,
			refresh_token = COALESCE(NULLIF(EXCLUDED.refresh_token, ''), google_tokens.refresh_token),
			token_type = EXCLUDED.token_type,
			expiry = EXCLUDED.expiry,
			scope = COALESCE(NULLIF(EXCLUDED.scope, ''), google_tokens.scope),
			updated_at = CURRENT_TIMESTAMP
	`
	tokenType := tok.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}
	scope, _ := tok.Extra("scope").(string)
	if _, err := s.pool.Exec(ctx, query,
		serviceName,
		tok.AccessToken,
		tok.RefreshToken,
		tokenType,
		tok.Expiry,
		scope,
	); err != nil {
		return fmt.Errorf("calendar: save token: %w", err)
	}
	return nil
}
