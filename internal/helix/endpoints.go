package helix

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// The params structs below map one to one onto the query string of their
// endpoint. Slice fields become repeated keys, zero values are left out and
// nothing is validated locally, bad combinations are rejected by Twitch.

type GamesParams struct {
	IDs   []string
	Names []string
}

func (p *GamesParams) values() url.Values {
	q := url.Values{}
	for _, id := range p.IDs {
		q.Add("id", id)
	}
	for _, name := range p.Names {
		q.Add("name", name)
	}
	return q
}

type Game struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	BoxArtURL string `json:"box_art_url"`
}

// Games returns the games matching the given ids or names.
func (c *Client) Games(ctx context.Context, params *GamesParams) ([]Game, error) {
	q := url.Values{}
	if params != nil {
		q = params.values()
	}

	body, err := c.apiRequest(ctx, http.MethodGet, "/games", q, nil, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []Game `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the games response"), err)
	}

	return payload.Data, nil
}

type StreamsParams struct {
	UserIDs    []string
	UserLogins []string
	GameIDs    []string
	Languages  []string
	Type       string
	First      int
	Before     string
	After      string
}

func (p *StreamsParams) values() url.Values {
	q := url.Values{}
	for _, id := range p.UserIDs {
		q.Add("user_id", id)
	}
	for _, login := range p.UserLogins {
		q.Add("user_login", login)
	}
	for _, id := range p.GameIDs {
		q.Add("game_id", id)
	}
	for _, language := range p.Languages {
		q.Add("language", language)
	}
	if p.Type != "" {
		q.Set("type", p.Type)
	}
	if p.First > 0 {
		q.Set("first", strconv.Itoa(p.First))
	}
	if p.Before != "" {
		q.Set("before", p.Before)
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	return q
}

type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	GameID       string    `json:"game_id"`
	GameName     string    `json:"game_name"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	Language     string    `json:"language"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// Streams returns live streams, filtered by the given params.
func (c *Client) Streams(ctx context.Context, params *StreamsParams) ([]Stream, error) {
	q := url.Values{}
	if params != nil {
		q = params.values()
	}

	body, err := c.apiRequest(ctx, http.MethodGet, "/streams", q, nil, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []Stream `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the streams response"), err)
	}

	return payload.Data, nil
}

type StreamMetadata struct {
	UserID      string          `json:"user_id"`
	UserName    string          `json:"user_name"`
	GameID      string          `json:"game_id"`
	Overwatch   json.RawMessage `json:"overwatch"`
	Hearthstone json.RawMessage `json:"hearthstone"`
}

// StreamsMetadata returns game-specific metadata for live streams. The
// filtering surface is the same as for Streams.
func (c *Client) StreamsMetadata(ctx context.Context, params *StreamsParams) ([]StreamMetadata, error) {
	q := url.Values{}
	if params != nil {
		q = params.values()
	}

	body, err := c.apiRequest(ctx, http.MethodGet, "/streams/metadata", q, nil, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []StreamMetadata `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the streams metadata response"), err)
	}

	return payload.Data, nil
}

type UsersParams struct {
	IDs    []string
	Logins []string
}

func (p *UsersParams) values() url.Values {
	q := url.Values{}
	for _, id := range p.IDs {
		q.Add("id", id)
	}
	for _, login := range p.Logins {
		q.Add("login", login)
	}
	return q
}

type User struct {
	ID              string `json:"id"`
	Login           string `json:"login"`
	DisplayName     string `json:"display_name"`
	Type            string `json:"type"`
	BroadcasterType string `json:"broadcaster_type"`
	Description     string `json:"description"`
	ProfileImageURL string `json:"profile_image_url"`
	OfflineImageURL string `json:"offline_image_url"`
	ViewCount       int    `json:"view_count"`
	Email           string `json:"email"`
}

// Users returns the users matching the given ids or logins.
func (c *Client) Users(ctx context.Context, params *UsersParams) ([]User, error) {
	q := url.Values{}
	if params != nil {
		q = params.values()
	}

	body, err := c.apiRequest(ctx, http.MethodGet, "/users", q, nil, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []User `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the users response"), err)
	}

	return payload.Data, nil
}

type UserFollowsParams struct {
	FromID string
	ToID   string
	First  int
	After  string
}

func (p *UserFollowsParams) values() url.Values {
	q := url.Values{}
	if p.FromID != "" {
		q.Set("from_id", p.FromID)
	}
	if p.ToID != "" {
		q.Set("to_id", p.ToID)
	}
	if p.First > 0 {
		q.Set("first", strconv.Itoa(p.First))
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	return q
}

type Follow struct {
	FromID     string    `json:"from_id"`
	FromLogin  string    `json:"from_login"`
	FromName   string    `json:"from_name"`
	ToID       string    `json:"to_id"`
	ToLogin    string    `json:"to_login"`
	ToName     string    `json:"to_name"`
	FollowedAt time.Time `json:"followed_at"`
}

// UserFollows returns follow relationships from or to a user.
func (c *Client) UserFollows(ctx context.Context, params *UserFollowsParams) ([]Follow, error) {
	q := url.Values{}
	if params != nil {
		q = params.values()
	}

	body, err := c.apiRequest(ctx, http.MethodGet, "/users/follows", q, nil, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []Follow `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the follows response"), err)
	}

	return payload.Data, nil
}

type VideosParams struct {
	IDs      []string
	UserID   string
	GameID   string
	First    int
	After    string
	Before   string
	Language string
	Period   string
	Sort     string
	Type     string
}

func (p *VideosParams) values() url.Values {
	q := url.Values{}
	for _, id := range p.IDs {
		q.Add("id", id)
	}
	if p.UserID != "" {
		q.Set("user_id", p.UserID)
	}
	if p.GameID != "" {
		q.Set("game_id", p.GameID)
	}
	if p.First > 0 {
		q.Set("first", strconv.Itoa(p.First))
	}
	if p.After != "" {
		q.Set("after", p.After)
	}
	if p.Before != "" {
		q.Set("before", p.Before)
	}
	if p.Language != "" {
		q.Set("language", p.Language)
	}
	if p.Period != "" {
		q.Set("period", p.Period)
	}
	if p.Sort != "" {
		q.Set("sort", p.Sort)
	}
	if p.Type != "" {
		q.Set("type", p.Type)
	}
	return q
}

type Video struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	CreatedAt    time.Time `json:"created_at"`
	PublishedAt  time.Time `json:"published_at"`
	URL          string    `json:"url"`
	ThumbnailURL string    `json:"thumbnail_url"`
	Viewable     string    `json:"viewable"`
	ViewCount    int       `json:"view_count"`
	Language     string    `json:"language"`
	Type         string    `json:"type"`
	Duration     string    `json:"duration"`
}

// Videos returns archived videos by id, user or game.
func (c *Client) Videos(ctx context.Context, params *VideosParams) ([]Video, error) {
	q := url.Values{}
	if params != nil {
		q = params.values()
	}

	body, err := c.apiRequest(ctx, http.MethodGet, "/videos", q, nil, "")
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []Video `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the videos response"), err)
	}

	return payload.Data, nil
}

type UpdateUserParams struct {
	AccessToken string // user access token with the user:edit scope
	Description string
}

// UpdateUser sets the description of the user the access token belongs to and
// returns the updated user record.
func (c *Client) UpdateUser(ctx context.Context, params *UpdateUserParams) ([]User, error) {
	if params == nil {
		params = &UpdateUserParams{}
	}

	q := url.Values{}
	q.Set("description", params.Description)

	body, err := c.apiRequest(ctx, http.MethodPut, "/users", q, nil, params.AccessToken)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []User `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the users response"), err)
	}

	return payload.Data, nil
}

type StreamMarkerParams struct {
	AccessToken string // user access token with the channel:manage:broadcast scope
	UserID      string
	Description string
}

type StreamMarker struct {
	ID              string    `json:"id"`
	CreatedAt       time.Time `json:"created_at"`
	Description     string    `json:"description"`
	PositionSeconds int       `json:"position_seconds"`
}

// CreateStreamMarker drops a marker into the live stream of the given user.
// The supplied user token is passed through without local validation.
func (c *Client) CreateStreamMarker(ctx context.Context, params *StreamMarkerParams) ([]StreamMarker, error) {
	if params == nil {
		params = &StreamMarkerParams{}
	}

	reqBody := struct {
		UserID      string `json:"user_id"`
		Description string `json:"description,omitempty"`
	}{
		UserID:      params.UserID,
		Description: params.Description,
	}

	body, err := c.apiRequest(ctx, http.MethodPost, "/streams/markers", nil, reqBody, params.AccessToken)
	if err != nil {
		return nil, err
	}

	var payload struct {
		Data []StreamMarker `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, errors.Join(errors.New("failed to decode the stream marker response"), err)
	}

	return payload.Data, nil
}

type WhisperParams struct {
	AccessToken string // user access token with the user:manage:whispers scope
	FromUserID  string
	ToUserID    string
	Message     string
}

// SendWhisper delivers a whisper from one user id to another. Twitch answers
// with no content on success.
func (c *Client) SendWhisper(ctx context.Context, params *WhisperParams) error {
	if params == nil {
		params = &WhisperParams{}
	}

	q := url.Values{}
	q.Set("from_user_id", params.FromUserID)
	q.Set("to_user_id", params.ToUserID)

	reqBody := struct {
		Message string `json:"message"`
	}{
		Message: params.Message,
	}

	_, err := c.apiRequest(ctx, http.MethodPost, "/whispers", q, reqBody, params.AccessToken)
	return err
}
