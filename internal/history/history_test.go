package history

import "testing"

func TestBuffer(t *testing.T) {
	t.Run("returns the recorded entries oldest first", func(t *testing.T) {
		//given
		buffer := New(5)
		buffer.Record(Entry{Username: "bob", Text: "one"})
		buffer.Record(Entry{Username: "alice", Text: "two"})
		buffer.Record(Entry{Username: "bob", Text: "three"})

		//when
		got := buffer.Recent(3)

		//then
		if len(got) != 3 {
			t.Fatalf("Expected 3 entries, got `%v`", len(got))
		}
		if got[0].Text != "one" || got[2].Text != "three" {
			t.Errorf("Expected the entries in insertion order, got `%+v`", got)
		}
	})

	t.Run("overwrites the oldest entry, when the capacity is reached", func(t *testing.T) {
		//given
		buffer := New(3)
		for _, text := range []string{"one", "two", "three", "four", "five"} {
			buffer.Record(Entry{Username: "bob", Text: text})
		}

		//when
		got := buffer.Recent(3)

		//then
		if buffer.Len() != 3 {
			t.Errorf("Expected the buffer to stay at capacity, got `%v`", buffer.Len())
		}
		if got[0].Text != "three" || got[1].Text != "four" || got[2].Text != "five" {
			t.Errorf("Expected only the latest entries, got `%+v`", got)
		}
	})

	t.Run("clamps the requested count to what is held", func(t *testing.T) {
		//given
		buffer := New(10)
		buffer.Record(Entry{Username: "bob", Text: "only one"})

		//when
		got := buffer.Recent(10)

		//then
		if len(got) != 1 {
			t.Errorf("Expected 1 entry, got `%v`", len(got))
		}
	})

	t.Run("returns nothing from an empty buffer", func(t *testing.T) {
		//given
		buffer := New(3)

		//when
		got := buffer.Recent(3)

		//then
		if len(got) != 0 {
			t.Errorf("Expected no entries, got `%+v`", got)
		}
	})
}
