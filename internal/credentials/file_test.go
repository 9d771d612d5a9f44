package credentials

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/qbotlabs/twitchkit/internal/helix"
)

func TestFileStore(t *testing.T) {
	t.Run("loads back what was saved for the channel", func(t *testing.T) {
		//given
		store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))
		credentials := helix.Credentials{
			AccessToken:  "access-token",
			RefreshToken: "refresh-token",
		}

		//when
		err := store.Save(context.Background(), credentials, "somechannel")
		if err != nil {
			t.Fatalf("failed to save the credentials: %v", err)
		}
		got, err := store.Load(context.Background(), "somechannel")

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if got.AccessToken != "access-token" {
			t.Errorf("Expected the saved credentials, got `%+v`", got)
		}
	})

	t.Run("returns ErrNotFound before the file exists", func(t *testing.T) {
		//given
		store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

		//when
		_, err := store.Load(context.Background(), "somechannel")

		//then
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected `%v`, got `%v` error", ErrNotFound, err)
		}
	})

	t.Run("keeps every channel in the same file", func(t *testing.T) {
		//given
		store := NewFileStore(filepath.Join(t.TempDir(), "credentials.json"))

		//when
		if err := store.Save(context.Background(), helix.Credentials{AccessToken: "first"}, "firstchannel"); err != nil {
			t.Fatalf("failed to save the first credentials: %v", err)
		}
		if err := store.Save(context.Background(), helix.Credentials{AccessToken: "second"}, "secondchannel"); err != nil {
			t.Fatalf("failed to save the second credentials: %v", err)
		}

		first, err := store.Load(context.Background(), "firstchannel")
		if err != nil {
			t.Fatalf("failed to load the first credentials: %v", err)
		}
		second, err := store.Load(context.Background(), "secondchannel")

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if first.AccessToken != "first" || second.AccessToken != "second" {
			t.Errorf("Expected both channels to keep their tokens, got `%v` and `%v`", first.AccessToken, second.AccessToken)
		}
	})
}
