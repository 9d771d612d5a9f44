package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/qbotlabs/twitchkit/internal/helix"
)

// FileStore keeps credentials for all channels in a single plaintext json
// file. It exists for local development, where spinning up the encrypted
// database is not worth the trouble.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

func (f *FileStore) Load(ctx context.Context, channelName string) (helix.Credentials, error) {
	if err := ctx.Err(); err != nil {
		return helix.Credentials{}, err
	}

	entries, err := f.readAll()
	if err != nil {
		return helix.Credentials{}, err
	}

	credentials, ok := entries[channelName]
	if !ok {
		return helix.Credentials{}, ErrNotFound
	}

	return credentials, nil
}

func (f *FileStore) Save(ctx context.Context, credentials helix.Credentials, channelName string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entries, err := f.readAll()
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if entries == nil {
		entries = map[string]helix.Credentials{}
	}

	entries[channelName] = credentials

	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return errors.Join(errors.New("failed to encode the credentials file"), err)
	}

	if err := os.WriteFile(f.path, payload, 0o600); err != nil {
		return errors.Join(errors.New("failed to write the credentials file"), err)
	}

	return nil
}

func (f *FileStore) readAll() (map[string]helix.Credentials, error) {
	payload, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(errors.New("failed to read the credentials file"), err)
	}

	var entries map[string]helix.Credentials
	if err := json.Unmarshal(payload, &entries); err != nil {
		return nil, errors.Join(errors.New("failed to decode the credentials file"), err)
	}

	return entries, nil
}
