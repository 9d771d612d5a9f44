// Package helix is a thin client for the Twitch Helix API and the
// id.twitch.tv OAuth2 endpoints. Every public operation performs exactly one
// HTTP request and hands the decoded payload back to the caller; there are no
// retries and no pagination helpers. The only cached state is the app access
// token, which is tracked together with its expiry.
package helix

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultAPIBaseURL  = "https://api.twitch.tv/helix"
	defaultAuthBaseURL = "https://id.twitch.tv/oauth2"

	defaultRequestTimeout = 10 * time.Second

	// tokenExpiryMargin is subtracted from the reported token lifetime, so a
	// token close to expiring counts as expired.
	tokenExpiryMargin = time.Minute
)

type Client struct {
	clientID     string
	clientSecret string
	httpClient   *http.Client
	logger       *zap.Logger

	// overridable in tests
	apiBaseURL  string
	authBaseURL string

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewClient returns a client authenticating with the given client id. The
// client secret may be empty: requests are then sent with the Client-ID
// header only and AccessToken returns ErrNoClientSecret.
func NewClient(clientID, clientSecret string, logger *zap.Logger) *Client {
	return &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		httpClient:   &http.Client{Timeout: defaultRequestTimeout},
		logger:       logger.Named("helix"),
		apiBaseURL:   defaultAPIBaseURL,
		authBaseURL:  defaultAuthBaseURL,
	}
}

// apiRequest performs one call against a Helix endpoint. The bearer token is
// the caller-supplied user token when given, otherwise the lazily fetched app
// token. A nil body sends no payload.
func (c *Client) apiRequest(ctx context.Context, method, path string, query url.Values, body any, userToken string) ([]byte, error) {
	token := userToken
	if token == "" && c.clientSecret != "" {
		appToken, err := c.AccessToken(ctx)
		if err != nil {
			return nil, err
		}
		token = appToken
	}

	endpoint := c.apiBaseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Join(errors.New("failed to encode the request body"), err)
		}
		payload = encoded
	}

	c.logger.Debug("calling the twitch api",
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.ByteString("body", payload))

	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, errors.Join(errors.New("failed to create the request"), err)
	}

	req.Header.Set("Client-ID", c.clientID)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.roundTrip(req)
}

// tokenGrant posts a form to the OAuth2 token endpoint. The form itself is
// not logged, it carries the client secret.
func (c *Client) tokenGrant(ctx context.Context, form url.Values) ([]byte, error) {
	endpoint := c.authBaseURL + "/token"

	c.logger.Debug("calling the twitch oauth endpoint",
		zap.String("method", http.MethodPost),
		zap.String("url", endpoint),
		zap.String("grant_type", form.Get("grant_type")))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Join(errors.New("failed to create the request"), err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.roundTrip(req)
}

func (c *Client) roundTrip(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(errors.New("failed to reach the twitch api"), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(errors.New("failed to read the response body"), err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, remoteError(resp.StatusCode, body)
	}

	return body, nil
}

// remoteError turns a non-2xx response into an error carrying the message
// from the Twitch error envelope when one is present.
func remoteError(status int, body []byte) error {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return fmt.Errorf("twitch responded with status %d: %s", status, payload.Message)
	}

	return fmt.Errorf("twitch responded with status %d: %s", status, strings.TrimSpace(string(body)))
}
