package node_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/track"
)

func TestStatusString(t *testing.T) {
	testCases := []struct {
		status node.Status
		want   string
	}{
		{node.StatusDisconnected, "disconnected"},
		{node.StatusConnecting, "connecting"},
		{node.StatusConnected, "connected"},
		{node.Status(42), "unknown"},
	}

	for _, tc := range testCases {
		if got := tc.status.String(); got != tc.want {
			t.Errorf("Status(%d).String() = %q; want %q", tc.status, got, tc.want)
		}
	}
}

func TestSocketURL(t *testing.T) {
	testCases := []struct {
		name string
		opts node.Options
		want string
	}{
		{
			name: "plain",
			opts: node.Options{Host: "audio-1.internal", Port: 2333},
			want: "ws://audio-1.internal:2333/",
		},
		{
			name: "secure",
			opts: node.Options{Host: "audio-1.internal", Port: 443, Secure: true},
			want: "wss://audio-1.internal:443/",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			n := node.New(tc.opts, node.Handlers{})
			if got := n.SocketURL(); got != tc.want {
				t.Errorf("SocketURL() = %q; want %q", got, tc.want)
			}
		})
	}
}

func TestNewNodeStartsDisconnected(t *testing.T) {
	n := node.New(node.Options{Name: "alpha", Host: "localhost", Port: 2333}, node.Handlers{})

	if n.Status() != node.StatusDisconnected {
		t.Errorf("expected a fresh node to be disconnected, got %v", n.Status())
	}
	if n.Available() {
		t.Error("expected a fresh node to be unavailable")
	}
	if n.Calls() != 0 {
		t.Errorf("expected zero calls on a fresh node, got %d", n.Calls())
	}
	if got := n.Penalty(); got != 0 {
		t.Errorf("expected zero penalty without stats, got %f", got)
	}
}

func TestPlaybackEventFailure(t *testing.T) {
	testCases := []struct {
		name  string
		event node.PlaybackEvent
		want  *track.Exception
	}{
		{
			name:  "no failure reported",
			event: node.PlaybackEvent{Kind: node.EventTrackEnd},
			want:  nil,
		},
		{
			name: "exception object",
			event: node.PlaybackEvent{
				Kind:      node.EventTrackException,
				Exception: &track.Exception{Message: "copyright claim", Severity: "COMMON"},
			},
			want: &track.Exception{Message: "copyright claim", Severity: "COMMON"},
		},
		{
			name:  "legacy error string",
			event: node.PlaybackEvent{Kind: node.EventTrackException, Error: "something broke"},
			want:  &track.Exception{Message: "something broke"},
		},
		{
			name: "exception object wins over string",
			event: node.PlaybackEvent{
				Kind:      node.EventTrackException,
				Error:     "legacy",
				Exception: &track.Exception{Message: "modern"},
			},
			want: &track.Exception{Message: "modern"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.event.Failure()
			if diff := cmp.Diff(tc.want, got); diff != "" {
				t.Errorf("Failure() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}
