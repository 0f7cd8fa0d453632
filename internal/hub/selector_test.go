package hub

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestLeastUsedWithNoNodes(t *testing.T) {
	h, _, _ := newHub(t, Config{})

	if _, err := h.LeastUsed(); !errors.Is(err, ErrNoNodesAvailable) {
		t.Fatalf("expected ErrNoNodesAvailable, got %v", err)
	}
}

func TestLeastUsedPicksFewestCalls(t *testing.T) {
	h, _, _ := newHub(t, Config{})
	if err := h.Init(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	fa := newFakeNode(t, "enc-a")
	fb := newFakeNode(t, "enc-b")
	alpha := addConnected(t, h, fa, "alpha")
	beta := addConnected(t, h, fb, "beta")

	// Drive alpha to 5 served calls and beta to 2; the resume handshake
	// on connect was call number one for each.
	for alpha.Calls() < 5 {
		if err := alpha.Stop(context.Background(), "warmup"); err != nil {
			t.Fatalf("warmup op on alpha: %v", err)
		}
	}
	for beta.Calls() < 2 {
		if err := beta.Stop(context.Background(), "warmup"); err != nil {
			t.Fatalf("warmup op on beta: %v", err)
		}
	}

	picked, err := h.LeastUsed()
	if err != nil {
		t.Fatalf("LeastUsed returned error: %v", err)
	}
	if picked != beta {
		t.Errorf("LeastUsed picked %q; want beta", picked.Name())
	}
}

func TestLeastUsedBreaksTiesByRegistrationOrder(t *testing.T) {
	h, _, _ := newHub(t, Config{})
	if err := h.Init(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	fa := newFakeNode(t, "enc-a")
	fb := newFakeNode(t, "enc-b")
	alpha := addConnected(t, h, fa, "alpha")
	addConnected(t, h, fb, "beta")

	picked, err := h.LeastUsed()
	if err != nil {
		t.Fatalf("LeastUsed returned error: %v", err)
	}
	if picked != alpha {
		t.Errorf("LeastUsed picked %q; want the first-registered alpha", picked.Name())
	}
}

func TestLeastUsedSkipsDisconnectedNodes(t *testing.T) {
	h, _, _ := newHub(t, Config{})
	if err := h.Init(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	fa := newFakeNode(t, "enc-a")
	fb := newFakeNode(t, "enc-b")
	alpha := addConnected(t, h, fa, "alpha")
	beta := addConnected(t, h, fb, "beta")

	// Alpha has fewer calls but goes dark.
	for beta.Calls() < 4 {
		if err := beta.Stop(context.Background(), "warmup"); err != nil {
			t.Fatalf("warmup op on beta: %v", err)
		}
	}
	if err := alpha.Disconnect(); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}

	picked, err := h.LeastUsed()
	if err != nil {
		t.Fatalf("LeastUsed returned error: %v", err)
	}
	if picked != beta {
		t.Errorf("LeastUsed picked %q; want the only connected beta", picked.Name())
	}
}

func TestLeastLoadPicksLowestPenalty(t *testing.T) {
	h, _, _ := newHub(t, Config{})
	if err := h.Init(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	fa := newFakeNode(t, "enc-a")
	fb := newFakeNode(t, "enc-b")
	alpha := addConnected(t, h, fa, "alpha")
	beta := addConnected(t, h, fb, "beta")

	fa.push(t, `{"op":"stats","cpu":{"cores":4,"systemLoad":2.0}}`)
	fb.push(t, `{"op":"stats","cpu":{"cores":4,"systemLoad":0.4}}`)
	waitUntil(t, "stats to land", func() bool {
		return alpha.Penalty() == 50 && beta.Penalty() == 10
	})

	picked, err := h.LeastLoad()
	if err != nil {
		t.Fatalf("LeastLoad returned error: %v", err)
	}
	if picked != beta {
		t.Errorf("LeastLoad picked %q; want beta", picked.Name())
	}
}

func TestLeastLoadTreatsMissingStatsAsIdle(t *testing.T) {
	h, _, _ := newHub(t, Config{})
	if err := h.Init(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	fa := newFakeNode(t, "enc-a")
	fb := newFakeNode(t, "enc-b")
	alpha := addConnected(t, h, fa, "alpha")
	beta := addConnected(t, h, fb, "beta")

	// Only beta has reported load; alpha's missing stats score as zero.
	fb.push(t, `{"op":"stats","cpu":{"cores":4,"systemLoad":1.0}}`)
	waitUntil(t, "stats to land", func() bool {
		return beta.Penalty() == 25
	})

	picked, err := h.LeastLoad()
	if err != nil {
		t.Fatalf("LeastLoad returned error: %v", err)
	}
	if picked != alpha {
		t.Errorf("LeastLoad picked %q; want the idle alpha", picked.Name())
	}
}

func TestSelectorsScanTheWholeFleet(t *testing.T) {
	h, _, _ := newHub(t, Config{})
	if err := h.Init(context.Background(), "bot-1"); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}

	for i := 0; i < 4; i++ {
		addConnected(t, h, newFakeNode(t, "enc"), fmt.Sprintf("node-%d", i))
	}

	// The last-registered node is the only idle one.
	for i := 0; i < 3; i++ {
		n, _ := h.Node(fmt.Sprintf("node-%d", i))
		for n.Calls() < 3 {
			if err := n.Stop(context.Background(), "warmup"); err != nil {
				t.Fatalf("warmup op: %v", err)
			}
		}
	}

	picked, err := h.LeastUsed()
	if err != nil {
		t.Fatalf("LeastUsed returned error: %v", err)
	}
	if picked.Name() != "node-3" {
		t.Errorf("LeastUsed picked %q; want node-3 at the end of the scan", picked.Name())
	}
}
