package hub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glizzus/encore/internal/player"
	"github.com/glizzus/encore/internal/store"
	"github.com/glizzus/encore/internal/track"
)

const persistTimeout = 5 * time.Second

// persist snapshots one player, best-effort. Persistence failures are
// logged and never interrupt playback.
func (h *Hub) persist(ctx context.Context, p *player.Player) {
	ctx, cancel := context.WithTimeout(ctx, persistTimeout)
	defer cancel()

	if err := h.store.Save(ctx, snapshotPlayer(p)); err != nil {
		slog.Warn("failed to persist player snapshot",
			"guild", p.GuildID(), slog.Any("error", err))
	}
}

func snapshotPlayer(p *player.Player) store.Snapshot {
	q := p.Queue()

	var current string
	if tr := q.Current(); tr != nil && tr.Resolved() {
		current = tr.Encoded
	}

	upcoming := q.Upcoming()
	encoded := make([]string, 0, len(upcoming))
	for _, tr := range upcoming {
		if tr.Resolved() {
			encoded = append(encoded, tr.Encoded)
		}
	}

	var nodeName string
	if n := p.Node(); n != nil {
		nodeName = n.Name()
	}

	return store.Snapshot{
		GuildID:        p.GuildID(),
		NodeName:       nodeName,
		VoiceChannelID: p.VoiceChannelID(),
		TextChannelID:  p.TextChannelID(),
		Loop:           string(p.Loop()),
		Paused:         p.State() == player.StatePaused,
		Position:       p.Position(),
		Volume:         p.Volume(),
		Track:          current,
		Queue:          encoded,
	}
}

// Restore rebuilds players from persisted snapshots and returns how
// many came back. Queues are rebuilt from encoded blobs only; metadata
// fills back in as tracks replay. Playback does not resume by itself:
// the restored players wait for a fresh voice handshake.
func (h *Hub) Restore(ctx context.Context) (int, error) {
	snapshots, err := h.store.LoadAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("load player snapshots: %w", err)
	}

	restored := 0
	for _, snap := range snapshots {
		if snap.GuildID == "" || snap.VoiceChannelID == "" {
			continue
		}
		if _, ok := h.players.get(snap.GuildID); ok {
			continue
		}
		if err := h.restoreOne(ctx, snap); err != nil {
			slog.Warn("failed to restore player", "guild", snap.GuildID, slog.Any("error", err))
			continue
		}
		restored++
	}
	return restored, nil
}

func (h *Hub) restoreOne(ctx context.Context, snap store.Snapshot) error {
	opts := PlayerOptions{
		GuildID:        snap.GuildID,
		VoiceChannelID: snap.VoiceChannelID,
		TextChannelID:  snap.TextChannelID,
		Volume:         snap.Volume,
	}
	// The remembered node may be gone from the fleet; fall back to the
	// selector rather than failing the restore.
	if _, ok := h.nodes.get(snap.NodeName); ok {
		opts.Node = snap.NodeName
	}

	p, err := h.Create(ctx, opts)
	if err != nil {
		return err
	}

	if snap.Track != "" {
		p.Queue().Add(&track.Track{Encoded: snap.Track})
	}
	for _, enc := range snap.Queue {
		p.Queue().Add(&track.Track{Encoded: enc})
	}
	if snap.Loop != "" {
		p.SetLoop(player.Loop(snap.Loop))
	}
	return nil
}
