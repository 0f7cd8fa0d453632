package e2e_test

import (
	"testing"
	"time"

	"github.com/glizzus/encore/e2e"
	"github.com/glizzus/encore/internal/events"
	"github.com/glizzus/encore/internal/hub"
	"github.com/glizzus/encore/internal/node"
)

// TestNodeFailureReplaysOnSurvivor kills the node a player lives on
// and expects playback to resume on the other node.
func TestNodeFailureReplaysOnSurvivor(t *testing.T) {
	alpha := e2e.StartFakeNode(t, "alpha")
	beta := e2e.StartFakeNode(t, "beta")
	h, _ := newPlaybackHub(t, alpha, beta)
	rec := recordEvents(t, h.Bus())

	p, err := h.Create(t.Context(), hub.PlayerOptions{
		GuildID:        "guild-f",
		VoiceChannelID: "voice-f",
		Node:           "alpha",
	})
	if err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	p.Queue().Add(e2e.StubTrack("live-1", "Live One"))
	if err := p.Play(t.Context(), node.PlayOptions{}); err != nil {
		t.Fatalf("failed to start playback: %v", err)
	}
	if op := alpha.AwaitOp(t, "play"); op["track"] != "live-1" {
		t.Fatalf("expected live-1 on alpha, got %v", op["track"])
	}
	alpha.PushEvent(t, node.EventTrackStart, "guild-f", map[string]any{"track": "live-1"})
	rec.waitFor(t, events.KindTrackStart)

	alpha.Sever()

	// The hub notices the closed socket and replays the player on the
	// surviving node.
	if op := beta.AwaitOp(t, "play"); op["track"] != "live-1" {
		t.Errorf("expected live-1 replayed on beta, got %v", op["track"])
	}

	rec.waitFor(t, events.KindNodeDisconnect)
	replay, ok := rec.waitFor(t, events.KindPlayerReplay).(events.PlayerReplay)
	if !ok {
		t.Fatal("playerReplay event has the wrong concrete type")
	}
	if replay.OldNode != "alpha" || replay.NewNode != "beta" {
		t.Errorf("expected replay alpha->beta, got %s->%s", replay.OldNode, replay.NewNode)
	}

	if got := p.Node().Name(); got != "beta" {
		t.Errorf("expected player reassigned to beta, got %q", got)
	}

	// The node confirms the replayed track; the player settles back
	// into ordinary playback without announcing the track a second
	// time.
	beta.PushEvent(t, node.EventTrackStart, "guild-f", map[string]any{"track": "live-1"})

	deadline := time.Now().Add(5 * time.Second)
	for p.Replaying() {
		if time.Now().After(deadline) {
			t.Fatal("player never cleared its replaying flag")
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := rec.count(events.KindTrackStart); got != 1 {
		t.Errorf("track announced %d times; want 1", got)
	}
}
