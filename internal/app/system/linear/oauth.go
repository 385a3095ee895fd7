package linear

import (
	"context"
	"sync"
	"time"

	"github.com/dalemusser/hirehub/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	AuthorizeURL = "https://linear.app/oauth/authorize"
	TokenURL     = "https://api.linear.app/oauth/token"
)

// OAuthConfig returns the authorization-code configuration for Linear.
func OAuthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"read", "write"},
		Endpoint: oauth2.Endpoint{
			AuthURL:   AuthorizeURL,
			TokenURL:  TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// TokenStore persists refreshed tokens.
type TokenStore interface {
	UpdateToken(ctx context.Context, access, refresh, tokenType string, expiresAt *time.Time) error
}

// WorkspaceToken converts the stored credentials into an oauth2 token.
func WorkspaceToken(ws *models.LinearWorkspace) *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  ws.AccessToken,
		RefreshToken: ws.RefreshToken,
		TokenType:    ws.TokenType,
	}
	if ws.ExpiresAt != nil {
		tok.Expiry = *ws.ExpiresAt
	}
	return tok
}

type persistingSource struct {
	base  oauth2.TokenSource
	store TokenStore
	log   *zap.Logger

	mu   sync.Mutex
	last string
}

// TokenSource returns a token source for the workspace. When cfg is nil or
// the stored token has no refresh token, the stored access token is used
// as is. Otherwise expired tokens are refreshed through cfg and the new
// credentials written back to store.
func TokenSource(ctx context.Context, cfg *oauth2.Config, ws *models.LinearWorkspace, store TokenStore, logger *zap.Logger) oauth2.TokenSource {
	tok := WorkspaceToken(ws)
	if cfg == nil || tok.RefreshToken == "" {
		return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok.AccessToken, TokenType: tok.TokenType})
	}
	return &persistingSource{
		base:  cfg.TokenSource(ctx, tok),
		store: store,
		log:   logger,
		last:  tok.AccessToken,
	}
}

func (p *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if tok.AccessToken == p.last {
		return tok, nil
	}
	p.last = tok.AccessToken

	var exp *time.Time
	if !tok.Expiry.IsZero() {
		e := tok.Expiry.UTC()
		exp = &e
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := p.store.UpdateToken(ctx, tok.AccessToken, tok.RefreshToken, tok.TokenType, exp); err != nil {
		p.log.Warn("failed to persist refreshed linear token", zap.Error(err))
	} else {
		p.log.Info("linear token refreshed")
	}
	return tok, nil
}
