package helix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

func TestAccessToken(t *testing.T) {
	t.Run("fetches an app access token with the client credentials grant", func(t *testing.T) {
		//given
		var gotGrantType, gotClientID, gotClientSecret string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			gotGrantType = r.FormValue("grant_type")
			gotClientID = r.FormValue("client_id")
			gotClientSecret = r.FormValue("client_secret")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "app-token",
				"expires_in":   5184000,
				"token_type":   "bearer",
			})
		}))
		defer server.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = server.URL

		//when
		token, err := client.AccessToken(context.Background())

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if token != "app-token" {
			t.Errorf("Expected `app-token`, got `%v`", token)
		}
		if gotGrantType != "client_credentials" {
			t.Errorf("Expected the `client_credentials` grant type, got `%v`", gotGrantType)
		}
		if gotClientID != "client-id" || gotClientSecret != "client-secret" {
			t.Errorf("Expected the client credentials in the form, got `%v` and `%v`", gotClientID, gotClientSecret)
		}
	})

	t.Run("reuses the cached token instead of calling Twitch again", func(t *testing.T) {
		//given
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "app-token",
				"expires_in":   5184000,
			})
		}))
		defer server.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = server.URL

		//when
		first, _ := client.AccessToken(context.Background())
		second, err := client.AccessToken(context.Background())

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if first != second {
			t.Errorf("Expected the same token twice, got `%v` and `%v`", first, second)
		}
		if calls != 1 {
			t.Errorf("Expected 1 call to the token endpoint, got `%v`", calls)
		}
	})

	t.Run("fetches a fresh token after the cached one was invalidated", func(t *testing.T) {
		//given
		var calls int
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token": "app-token",
				"expires_in":   5184000,
			})
		}))
		defer server.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = server.URL

		//when
		_, _ = client.AccessToken(context.Background())
		client.InvalidateAccessToken()
		_, err := client.AccessToken(context.Background())

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if calls != 2 {
			t.Errorf("Expected 2 calls to the token endpoint, got `%v`", calls)
		}
	})

	t.Run("returns ErrNoClientSecret, when the client has no secret to trade in", func(t *testing.T) {
		//given
		client := NewClient("client-id", "", zap.NewNop())

		//when
		_, err := client.AccessToken(context.Background())

		//then
		if !errors.Is(err, ErrNoClientSecret) {
			t.Errorf("Expected `%v`, got `%v` error", ErrNoClientSecret, err)
		}
	})
}

func TestRefreshToken(t *testing.T) {
	t.Run("returns ErrNoRefreshToken, when no refresh token was passed", func(t *testing.T) {
		//given
		client := NewClient("client-id", "client-secret", zap.NewNop())

		//when
		_, err := client.RefreshToken(context.Background(), "")

		//then
		if !errors.Is(err, ErrNoRefreshToken) {
			t.Errorf("Expected `%v`, got `%v` error", ErrNoRefreshToken, err)
		}
	})

	t.Run("exchanges a refresh token for fresh credentials", func(t *testing.T) {
		//given
		var gotGrantType, gotRefreshToken string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_ = r.ParseForm()
			gotGrantType = r.FormValue("grant_type")
			gotRefreshToken = r.FormValue("refresh_token")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "new-access-token",
				"refresh_token": "new-refresh-token",
				"expires_in":    14400,
				"scope":         []string{"chat:read", "chat:edit"},
				"token_type":    "bearer",
			})
		}))
		defer server.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = server.URL

		//when
		credentials, err := client.RefreshToken(context.Background(), "old-refresh-token")

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if gotGrantType != "refresh_token" {
			t.Errorf("Expected the `refresh_token` grant type, got `%v`", gotGrantType)
		}
		if gotRefreshToken != "old-refresh-token" {
			t.Errorf("Expected the old refresh token in the form, got `%v`", gotRefreshToken)
		}
		if credentials.AccessToken != "new-access-token" || credentials.RefreshToken != "new-refresh-token" {
			t.Errorf("Expected the new token pair, got `%+v`", credentials)
		}
		if len(credentials.Scopes) != 2 {
			t.Errorf("Expected 2 scopes, got `%v`", credentials.Scopes)
		}
	})

	t.Run("caches the refreshed access token for later api calls", func(t *testing.T) {
		//given
		var tokenCalls int
		authServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenCalls++
			_ = json.NewEncoder(w).Encode(map[string]any{
				"access_token":  "refreshed-token",
				"refresh_token": "new-refresh-token",
				"expires_in":    14400,
			})
		}))
		defer authServer.Close()

		var gotAuthorization string
		apiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuthorization = r.Header.Get("Authorization")
			_, _ = w.Write([]byte(`{"data":[]}`))
		}))
		defer apiServer.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = authServer.URL
		client.apiBaseURL = apiServer.URL

		//when
		_, err := client.RefreshToken(context.Background(), "old-refresh-token")
		if err != nil {
			t.Fatalf("Expected no error from the refresh, got `%v`", err)
		}
		_, err = client.Streams(context.Background(), &StreamsParams{UserLogins: []string{"somebody"}})

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if gotAuthorization != "Bearer refreshed-token" {
			t.Errorf("Expected the refreshed token in the header, got `%v`", gotAuthorization)
		}
		if tokenCalls != 1 {
			t.Errorf("Expected no extra token grant, got `%v` calls", tokenCalls)
		}
	})

	t.Run("surfaces the message from a rejected refresh token", func(t *testing.T) {
		//given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"Bad Request","status":400,"message":"Invalid refresh token"}`))
		}))
		defer server.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = server.URL

		//when
		_, err := client.RefreshToken(context.Background(), "expired-refresh-token")

		//then
		if err == nil {
			t.Fatal("Expected an error, got nil")
		}
		if !strings.Contains(err.Error(), "status 400") || !strings.Contains(err.Error(), "Invalid refresh token") {
			t.Errorf("Expected the remote status and message in the error, got `%v`", err)
		}
	})
}

func TestValidateToken(t *testing.T) {
	t.Run("sends the token in an OAuth authorization header", func(t *testing.T) {
		//given
		var gotAuthorization string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuthorization = r.Header.Get("Authorization")
			_ = json.NewEncoder(w).Encode(map[string]any{
				"client_id":  "client-id",
				"login":      "justinfan",
				"scopes":     []string{"chat:read"},
				"user_id":    "12345678",
				"expires_in": 5520838,
			})
		}))
		defer server.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = server.URL

		//when
		validation, err := client.ValidateToken(context.Background(), "some-user-token")

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if gotAuthorization != "OAuth some-user-token" {
			t.Errorf("Expected an `OAuth` authorization header, got `%v`", gotAuthorization)
		}
		if validation.Login != "justinfan" || validation.UserID != "12345678" {
			t.Errorf("Expected the token owner in the validation, got `%+v`", validation)
		}
	})

	t.Run("returns an error for an expired token", func(t *testing.T) {
		//given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"status":401,"message":"invalid access token"}`))
		}))
		defer server.Close()

		client := NewClient("client-id", "client-secret", zap.NewNop())
		client.authBaseURL = server.URL

		//when
		_, err := client.ValidateToken(context.Background(), "expired-token")

		//then
		if err == nil {
			t.Fatal("Expected an error, got nil")
		}
		if !strings.Contains(err.Error(), "invalid access token") {
			t.Errorf("Expected the remote message in the error, got `%v`", err)
		}
	})
}

func seedAppToken(client *Client, token string) {
	client.mu.Lock()
	defer client.mu.Unlock()
	client.accessToken = token
	client.tokenExpiry = time.Now().Add(time.Hour)
}
