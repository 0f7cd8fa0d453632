package hub

import (
	"context"

	"github.com/glizzus/encore/internal/events"
	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/player"
)

// handleNodeDown runs when a node's socket closes. It announces the
// disconnect and, when auto-replay is on, moves the node's players to
// the healthiest alternative.
func (h *Hub) handleNodeDown(n *node.Node, code int, reason string) {
	h.bus.Publish(events.NewNodeDisconnect(n.Name(), code, reason))

	if h.closing.Load() || !h.cfg.AutoReplay {
		return
	}

	// Snapshot first: reassignment mutates player-node bindings, and
	// the scan must not observe its own writes.
	var stranded []*player.Player
	for _, p := range h.players.snapshot() {
		if p.Node() == n {
			stranded = append(stranded, p)
		}
	}

	for _, p := range stranded {
		h.replay(p, n)
	}
}

// replay moves one player off a dead node. Failures are reported per
// player and never stop the rest of the batch.
func (h *Hub) replay(p *player.Player, failed *node.Node) {
	dest, err := h.LeastLoad()
	if err != nil {
		h.bus.Publish(events.NewReplayError(p.GuildID(), failed.Name(), err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), advanceTimeout)
	defer cancel()
	if err := p.Move(ctx, dest); err != nil {
		h.bus.Publish(events.NewReplayError(p.GuildID(), failed.Name(), err))
		return
	}

	h.bus.Publish(events.NewPlayerReplay(p.GuildID(), failed.Name(), dest.Name()))
	h.persist(ctx, p)
}
