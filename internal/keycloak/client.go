// Package keycloak wraps the OIDC/OAuth2 integration with the external
// identity provider: discovery, authorization-code exchange, token
// refresh and verification, and userinfo lookup.
package keycloak

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/redis/go-redis/v9"
	"github.com/training-platform/backend/internal/config"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const clientTokenCacheKey = "keycloak:client_token"

// UserInfo is the subset of identity claims the platform cares about.
type UserInfo struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Name    string `json:"name"`
}

type Client struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
	oauth    *oauth2.Config
	cfg      *config.Config
	rdb      *redis.Client
	log      *zap.Logger
}

// New discovers the realm endpoints from the issuer URL. The discovery
// request honours the caller's context deadline.
func New(ctx context.Context, cfg *config.Config, rdb *redis.Client, log *zap.Logger) (*Client, error) {
	if !cfg.KeycloakEnabled() {
		return nil, fmt.Errorf("keycloak is not configured")
	}

	provider, err := oidc.NewProvider(ctx, cfg.KeycloakIssuer())
	if err != nil {
		return nil, fmt.Errorf("keycloak discovery: %w", err)
	}

	return &Client{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.KeycloakClientID}),
		oauth: &oauth2.Config{
			ClientID:     cfg.KeycloakClientID,
			ClientSecret: cfg.KeycloakClientSecret,
			RedirectURL:  cfg.KeycloakRedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
		cfg: cfg,
		rdb: rdb,
		log: log,
	}, nil
}

// AuthCodeURL builds the login redirect for the authorization-code flow.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// Exchange trades the authorization code for tokens.
func (c *Client) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("code exchange: %w", err)
	}
	return token, nil
}

// Refresh obtains fresh tokens from a refresh token.
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	ts := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("token refresh: %w", err)
	}
	return token, nil
}

// VerifyIDToken checks signature, issuer, audience and expiry of the
// raw ID token and extracts the identity claims.
func (c *Client) VerifyIDToken(ctx context.Context, rawIDToken string) (*UserInfo, error) {
	idToken, err := c.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verify id token: %w", err)
	}

	var info UserInfo
	if err := idToken.Claims(&info); err != nil {
		return nil, fmt.Errorf("decode claims: %w", err)
	}
	return &info, nil
}

// UserInfo queries the provider's userinfo endpoint with the access
// token.
func (c *Client) UserInfo(ctx context.Context, accessToken string) (*UserInfo, error) {
	ui, err := c.provider.UserInfo(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
	if err != nil {
		return nil, fmt.Errorf("userinfo: %w", err)
	}

	var info UserInfo
	if err := ui.Claims(&info); err != nil {
		return nil, fmt.Errorf("decode userinfo claims: %w", err)
	}
	if info.Subject == "" {
		info.Subject = ui.Subject
	}
	if info.Email == "" {
		info.Email = ui.Email
	}
	return &info, nil
}

// ClientToken returns a client-credentials access token for server-to-
// server calls, cached in redis for an hour.
func (c *Client) ClientToken(ctx context.Context) (string, error) {
	if c.rdb != nil {
		cached, err := c.rdb.Get(ctx, clientTokenCacheKey).Result()
		if err == nil && cached != "" {
			return cached, nil
		}
	}

	cc := clientcredentials.Config{
		ClientID:     c.cfg.KeycloakClientID,
		ClientSecret: c.cfg.KeycloakClientSecret,
		TokenURL:     c.oauth.Endpoint.TokenURL,
	}
	token, err := cc.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("client credentials: %w", err)
	}

	if c.rdb != nil {
		ttl := time.Hour
		if !token.Expiry.IsZero() {
			if until := time.Until(token.Expiry); until > 0 && until < ttl {
				ttl = until
			}
		}
		if err := c.rdb.Set(ctx, clientTokenCacheKey, token.AccessToken, ttl).Err(); err != nil {
			c.log.Warn("failed to cache keycloak client token", zap.Error(err))
		}
	}
	return token.AccessToken, nil
}

// Revoke invalidates a token at the provider's revocation endpoint.
func (c *Client) Revoke(ctx context.Context, token string) error {
	var claims struct {
		RevocationEndpoint string `json:"revocation_endpoint"`
	}
	if err := c.provider.Claims(&claims); err != nil || claims.RevocationEndpoint == "" {
		return fmt.Errorf("provider does not advertise a revocation endpoint")
	}

	form := url.Values{
		"client_id":     {c.cfg.KeycloakClientID},
		"client_secret": {c.cfg.KeycloakClientSecret},
		"token":         {token},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, claims.RevocationEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("revoke token: provider returned %d", resp.StatusCode)
	}
	return nil
}
