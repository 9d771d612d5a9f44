package emotes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestEmoteUnmarshalJSON(t *testing.T) {
	t.Run("accepts a numeric id from the registry dump", func(t *testing.T) {
		//given
		payload := []byte(`{"id":25,"code":"Kappa"}`)

		//when
		var emote Emote
		err := json.Unmarshal(payload, &emote)

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if emote.ID != "25" {
			t.Errorf("Expected the id `25`, got `%v`", emote.ID)
		}
	})

	t.Run("accepts a string id", func(t *testing.T) {
		//given
		payload := []byte(`{"id":"88"}`)

		//when
		var emote Emote
		err := json.Unmarshal(payload, &emote)

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if emote.ID != "88" {
			t.Errorf("Expected the id `88`, got `%v`", emote.ID)
		}
	})
}

func TestImageMarkup(t *testing.T) {
	t.Run("builds an inline image reference from the cdn template", func(t *testing.T) {
		//given
		emote := Emote{ID: "25"}
		expected := "![Kappa](https://static-cdn.jtvnw.net/emoticons/v1/25/1.0)"

		//when
		got := emote.ImageMarkup("Kappa")

		//then
		if expected != got {
			t.Errorf("Expected `%v`, got `%v`", expected, got)
		}
	})
}

func TestFetch(t *testing.T) {
	t.Run("downloads and decodes the emote table", func(t *testing.T) {
		//given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"Kappa":{"id":25,"code":"Kappa"},"PogChamp":{"id":"88","code":"PogChamp"}}`))
		}))
		defer server.Close()

		fetcher := NewFetcher(server.URL, zap.NewNop())

		//when
		table, err := fetcher.Fetch(context.Background())

		//then
		if err != nil {
			t.Fatalf("Expected no error, got `%v`", err)
		}
		if len(table) != 2 {
			t.Errorf("Expected 2 emotes, got `%v`", len(table))
		}
		if table["Kappa"].ID != "25" || table["PogChamp"].ID != "88" {
			t.Errorf("Expected both ids in the table, got `%+v`", table)
		}
	})

	t.Run("returns an error, when the registry is down", func(t *testing.T) {
		//given
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		defer server.Close()

		fetcher := NewFetcher(server.URL, zap.NewNop())

		//when
		_, err := fetcher.Fetch(context.Background())

		//then
		if err == nil {
			t.Fatal("Expected an error, got nil")
		}
		if !strings.Contains(err.Error(), "status 500") {
			t.Errorf("Expected the status in the error, got `%v`", err)
		}
	})
}
