package hub

import "github.com/glizzus/encore/internal/node"

// LeastUsed returns the connected node that has served the fewest
// calls. New players land here.
func (h *Hub) LeastUsed() (*node.Node, error) {
	return selectNode(h.nodes.snapshot(), func(n *node.Node) float64 {
		return float64(n.Calls())
	})
}

// LeastLoad returns the connected node with the lowest CPU penalty.
// Replayed players land here.
func (h *Hub) LeastLoad() (*node.Node, error) {
	return selectNode(h.nodes.snapshot(), (*node.Node).Penalty)
}

// selectNode scans every candidate rather than stopping early: scores
// move constantly, so a full pass is the only honest comparison. The
// first node at the minimum wins, which makes registration order the
// tie-break.
func selectNode(nodes []*node.Node, score func(*node.Node) float64) (*node.Node, error) {
	var best *node.Node
	var bestScore float64
	for _, n := range nodes {
		if !n.Available() {
			continue
		}
		s := score(n)
		if best == nil || s < bestScore {
			best = n
			bestScore = s
		}
	}
	if best == nil {
		return nil, ErrNoNodesAvailable
	}
	return best, nil
}
