package helix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoRefreshToken = errors.New("no refresh token was supplied")
	ErrNoClientSecret = errors.New("no client secret was configured")
)

// Credentials is the access/refresh token pair handed out by the OAuth2
// token endpoint.
type Credentials struct {
	AccessToken  string   `json:"access_token"`
	RefreshToken string   `json:"refresh_token"`
	ExpiresIn    int      `json:"expires_in"`
	Scopes       []string `json:"scope"`
	TokenType    string   `json:"token_type"`
}

// Validation is the raw payload of the token validation endpoint.
type Validation struct {
	ClientID  string   `json:"client_id"`
	Login     string   `json:"login"`
	Scopes    []string `json:"scopes"`
	UserID    string   `json:"user_id"`
	ExpiresIn int      `json:"expires_in"`
}

// AccessToken returns the cached app access token while it is still fresh.
// Otherwise it exchanges the client credentials for a new token, caches it
// together with its expiry and returns it.
func (c *Client) AccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Add(tokenExpiryMargin).Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	if c.clientSecret == "" {
		return "", ErrNoClientSecret
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "client_credentials")

	body, err := c.tokenGrant(ctx, form)
	if err != nil {
		return "", err
	}

	var payload struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.Join(errors.New("failed to decode the token response"), err)
	}

	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)

	return c.accessToken, nil
}

// InvalidateAccessToken drops the cached app access token, forcing the next
// AccessToken call back onto the network.
func (c *Client) InvalidateAccessToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.tokenExpiry = time.Time{}
	c.mu.Unlock()
}

// RefreshToken exchanges a refresh token for a new credential pair. It always
// performs a network call and overwrites the cached access token with the
// result.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (Credentials, error) {
	if refreshToken == "" {
		return Credentials{}, ErrNoRefreshToken
	}

	form := url.Values{}
	form.Set("client_id", c.clientID)
	form.Set("client_secret", c.clientSecret)
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)

	body, err := c.tokenGrant(ctx, form)
	if err != nil {
		return Credentials{}, err
	}

	var payload Credentials
	if err := json.Unmarshal(body, &payload); err != nil {
		return Credentials{}, errors.Join(errors.New("failed to decode the token response"), err)
	}

	c.mu.Lock()
	c.accessToken = payload.AccessToken
	c.tokenExpiry = time.Now().Add(time.Duration(payload.ExpiresIn) * time.Second)
	c.mu.Unlock()

	return payload, nil
}

// ValidateToken asks the OAuth2 endpoint who a token belongs to. The payload
// is returned as-is and nothing is cached.
func (c *Client) ValidateToken(ctx context.Context, token string) (Validation, error) {
	endpoint := c.authBaseURL + "/validate"

	c.logger.Debug("calling the twitch oauth endpoint",
		zap.String("method", http.MethodGet),
		zap.String("url", endpoint))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Validation{}, errors.Join(errors.New("failed to create the request"), err)
	}
	req.Header.Set("Authorization", "OAuth "+token)

	body, err := c.roundTrip(req)
	if err != nil {
		return Validation{}, err
	}

	var payload Validation
	if err := json.Unmarshal(body, &payload); err != nil {
		return Validation{}, errors.Join(errors.New("failed to decode the validation response"), err)
	}

	return payload, nil
}
