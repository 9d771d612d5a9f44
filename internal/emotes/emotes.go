// Package emotes maps textual emote codes to the images Twitch renders them
// as. The mapping comes from a public registry dump that is fetched once per
// chat connection and cached by the caller.
package emotes

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultRegistryURL  = "https://twitchemotes.com/api_cache/v3/global.json"
	cdnURLTemplate      = "https://static-cdn.jtvnw.net/emoticons/v1/%s/1.0"
	defaultFetchTimeout = 10 * time.Second
)

// Table maps an emote code, exactly as it appears in chat, to its entry.
type Table map[string]Emote

// Emote is a single registry entry. The registry dump encodes identifiers as
// bare numbers while other Twitch surfaces use strings, so the id accepts
// both shapes and is always held as a string.
type Emote struct {
	ID string
}

func (e *Emote) UnmarshalJSON(data []byte) error {
	var entry struct {
		ID json.Number `json:"id"`
	}
	if err := json.Unmarshal(data, &entry); err != nil {
		return errors.Join(errors.New("failed to decode an emote entry"), err)
	}

	e.ID = entry.ID.String()
	return nil
}

// ImageMarkup renders the emote as an inline image reference for the given
// code, pointing at the small CDN variant of the emote image.
func (e Emote) ImageMarkup(code string) string {
	return "![" + code + "](" + fmt.Sprintf(cdnURLTemplate, e.ID) + ")"
}

// Fetcher downloads the global emote table from the registry.
type Fetcher struct {
	registryURL string
	httpClient  *http.Client
	logger      *zap.Logger
}

// NewFetcher returns a fetcher reading from registryURL, or from the public
// global registry when registryURL is empty.
func NewFetcher(registryURL string, logger *zap.Logger) *Fetcher {
	if registryURL == "" {
		registryURL = defaultRegistryURL
	}

	return &Fetcher{
		registryURL: registryURL,
		httpClient:  &http.Client{Timeout: defaultFetchTimeout},
		logger:      logger.Named("emotes"),
	}
}

// Fetch downloads the registry dump and returns the code to emote mapping.
func (f *Fetcher) Fetch(ctx context.Context) (Table, error) {
	f.logger.Debug("fetching the global emote table", zap.String("url", f.registryURL))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.registryURL, nil)
	if err != nil {
		return nil, errors.Join(errors.New("failed to create a request to the emote registry"), err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, errors.Join(errors.New("failed to call the emote registry"), err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(errors.New("failed to read the emote registry response"), err)
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode > 299 {
		return nil, fmt.Errorf("emote registry responded with status %d", resp.StatusCode)
	}

	var table Table
	if err := json.Unmarshal(body, &table); err != nil {
		return nil, errors.Join(errors.New("failed to decode the emote registry response"), err)
	}

	f.logger.Debug("fetched the global emote table", zap.Int("emotes", len(table)))

	return table, nil
}
