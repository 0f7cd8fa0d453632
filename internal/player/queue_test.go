package player_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/encore/internal/player"
	"github.com/glizzus/encore/internal/track"
)

func named(title string) *track.Track {
	return &track.Track{Encoded: "enc-" + title, Info: track.Info{Title: title}}
}

func titles(tracks []*track.Track) []string {
	out := make([]string, len(tracks))
	for i, tr := range tracks {
		out[i] = tr.Info.Title
	}
	return out
}

func TestQueueAddPromotesFirstTrack(t *testing.T) {
	q := player.NewQueue()

	q.Add(named("one"), named("two"), named("three"))

	if got := q.Current(); got == nil || got.Info.Title != "one" {
		t.Fatalf("expected current track one, got %v", got)
	}
	if q.Len() != 2 {
		t.Errorf("expected 2 upcoming tracks, got %d", q.Len())
	}
	if diff := cmp.Diff([]string{"two", "three"}, titles(q.Upcoming())); diff != "" {
		t.Errorf("upcoming mismatch (-want +got):\n%s", diff)
	}
}

func TestQueueAdvance(t *testing.T) {
	testCases := []struct {
		name         string
		loop         player.Loop
		tracks       []string
		advances     int
		wantCurrent  string // "" means drained
		wantPrevious string
		wantLen      int
	}{
		{
			name:         "none advances to next",
			loop:         player.LoopNone,
			tracks:       []string{"one", "two"},
			advances:     1,
			wantCurrent:  "two",
			wantPrevious: "one",
			wantLen:      0,
		},
		{
			name:         "none drains",
			loop:         player.LoopNone,
			tracks:       []string{"one"},
			advances:     1,
			wantCurrent:  "",
			wantPrevious: "one",
			wantLen:      0,
		},
		{
			name:         "track keeps current",
			loop:         player.LoopTrack,
			tracks:       []string{"one", "two"},
			advances:     3,
			wantCurrent:  "one",
			wantPrevious: "one",
			wantLen:      1,
		},
		{
			name:         "queue rotates",
			loop:         player.LoopQueue,
			tracks:       []string{"one", "two"},
			advances:     1,
			wantCurrent:  "two",
			wantPrevious: "one",
			wantLen:      1, // "one" went to the back
		},
		{
			name:         "queue rotates full cycle",
			loop:         player.LoopQueue,
			tracks:       []string{"one", "two"},
			advances:     2,
			wantCurrent:  "one",
			wantPrevious: "two",
			wantLen:      1,
		},
		{
			name:         "queue mode with single track replays it",
			loop:         player.LoopQueue,
			tracks:       []string{"one"},
			advances:     4,
			wantCurrent:  "one",
			wantPrevious: "one",
			wantLen:      0,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q := player.NewQueue()
			for _, title := range tc.tracks {
				q.Add(named(title))
			}

			var got *track.Track
			for range tc.advances {
				got = q.Advance(tc.loop)
			}

			if tc.wantCurrent == "" {
				if got != nil {
					t.Fatalf("expected drained queue, got current %q", got.Info.Title)
				}
			} else if got == nil || got.Info.Title != tc.wantCurrent {
				t.Fatalf("expected current %q, got %v", tc.wantCurrent, got)
			}

			if prev := q.Previous(); prev == nil || prev.Info.Title != tc.wantPrevious {
				t.Errorf("expected previous %q, got %v", tc.wantPrevious, prev)
			}
			if q.Len() != tc.wantLen {
				t.Errorf("expected %d upcoming, got %d", tc.wantLen, q.Len())
			}
		})
	}
}

func TestQueueAdvanceOnEmptyQueueReturnsNil(t *testing.T) {
	q := player.NewQueue()

	for _, loop := range []player.Loop{player.LoopNone, player.LoopTrack, player.LoopQueue} {
		if got := q.Advance(loop); got != nil {
			t.Errorf("Advance(%s) on empty queue = %v; want nil", loop, got)
		}
	}
}

func TestQueueClear(t *testing.T) {
	q := player.NewQueue()
	q.Add(named("one"), named("two"))

	q.Clear()

	if q.Current() != nil {
		t.Error("expected no current track after clear")
	}
	if q.Len() != 0 {
		t.Errorf("expected empty queue after clear, got %d", q.Len())
	}
}

func TestQueueUpcomingReturnsCopy(t *testing.T) {
	q := player.NewQueue()
	q.Add(named("one"), named("two"), named("three"))

	upcoming := q.Upcoming()
	upcoming[0] = named("tampered")

	if got := q.Upcoming()[0].Info.Title; got != "two" {
		t.Errorf("expected queue to be unaffected by caller mutation, got %q", got)
	}
}
