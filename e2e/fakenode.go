// Package e2e provides the infrastructure for end-to-end tests: fake
// audio nodes the client can connect to and a real redis container for
// persistence tests.
package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/track"
)

// FakeNodePassword authenticates clients against a FakeNode.
const FakeNodePassword = "e2e-password"

// FakeNode impersonates a remote audio node. It accepts the client's
// websocket and records every op it sends. REST loads are answered
// with canned results keyed by the search term.
type FakeNode struct {
	name   string
	host   string
	port   int
	server *httptest.Server

	mu          sync.Mutex
	conn        *websocket.Conn
	identifiers []string

	ops chan map[string]any
}

// StartFakeNode serves a fake node for the duration of the test.
func StartFakeNode(t *testing.T, name string) *FakeNode {
	t.Helper()

	f := &FakeNode{
		name: name,
		ops:  make(chan map[string]any, 64),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/", f.handleSocket)
	mux.HandleFunc("/loadtracks", f.handleLoadTracks)
	mux.HandleFunc("/decodetrack", f.handleDecodeTrack)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.Shutdown)

	u, err := url.Parse(f.server.URL)
	if err != nil {
		t.Fatalf("failed to parse fake node url: %v", err)
	}
	f.host = u.Hostname()
	f.port, err = strconv.Atoi(u.Port())
	if err != nil {
		t.Fatalf("failed to parse fake node port: %v", err)
	}
	return f
}

// Options returns node options that point the client at this fake.
func (f *FakeNode) Options() node.Options {
	return node.Options{
		Name:     f.name,
		Host:     f.host,
		Port:     f.port,
		Password: FakeNodePassword,
	}
}

// Identifiers returns every identifier the fake has served a load
// for, in request order.
func (f *FakeNode) Identifiers() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.identifiers...)
}

// Sever drops the websocket from the node side while leaving the REST
// side up, like a node whose socket died mid-session.
func (f *FakeNode) Sever() {
	f.mu.Lock()
	conn := f.conn
	f.conn = nil
	f.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

// Shutdown stops the fake entirely. Tests only need this when they
// kill a node mid-test; StartFakeNode registers it as a cleanup.
func (f *FakeNode) Shutdown() {
	f.server.Close()
}

// Push writes a payload to the connected client as if the node had
// produced it.
func (f *FakeNode) Push(t *testing.T, payload any) {
	t.Helper()

	f.mu.Lock()
	conn := f.conn
	f.mu.Unlock()
	if conn == nil {
		t.Fatal("fake node has no client connection")
	}
	if err := conn.WriteJSON(payload); err != nil {
		t.Fatalf("failed to push payload to client: %v", err)
	}
}

// PushEvent pushes one playback event for a guild. Extra event fields
// like "reason" or "exception" go in fields.
func (f *FakeNode) PushEvent(t *testing.T, kind, guildID string, fields map[string]any) {
	t.Helper()

	payload := map[string]any{
		"op":      "event",
		"type":    kind,
		"guildId": guildID,
	}
	for k, v := range fields {
		payload[k] = v
	}
	f.Push(t, payload)
}

// AwaitOp returns the next op with the given name. Session setup like
// configureResuming is skipped; any other op is a test failure, so
// tests assert the exact op order the client produces.
func (f *FakeNode) AwaitOp(t *testing.T, name string) map[string]any {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case op := <-f.ops:
			got, _ := op["op"].(string)
			if got == name {
				return op
			}
			if got == "configureResuming" {
				continue
			}
			t.Fatalf("expected op %q, client sent %q: %v", name, got, op)
		case <-timeout:
			t.Fatalf("timed out waiting for op %q", name)
		}
	}
}

func (f *FakeNode) handleSocket(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != FakeNodePassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	f.mu.Lock()
	if f.conn != nil {
		_ = f.conn.Close()
	}
	f.conn = conn
	f.mu.Unlock()

	go f.readOps(conn)
}

func (f *FakeNode) readOps(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var op map[string]any
		if err := json.Unmarshal(payload, &op); err != nil {
			continue
		}
		f.ops <- op
	}
}

func (f *FakeNode) handleLoadTracks(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != FakeNodePassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	identifier := r.URL.Query().Get("identifier")
	f.mu.Lock()
	f.identifiers = append(f.identifiers, identifier)
	f.mu.Unlock()

	var result track.LoadResult
	switch {
	case strings.Contains(identifier, "broken"):
		result = track.LoadResult{
			LoadType:  track.LoadTypeFailed,
			Exception: &track.Exception{Message: "Track failed to load", Severity: "COMMON"},
		}
	case strings.Contains(identifier, "missing"):
		result = track.LoadResult{LoadType: track.LoadTypeNoMatches}
	case strings.Contains(identifier, "playlist"):
		result = track.LoadResult{
			LoadType:     track.LoadTypePlaylist,
			PlaylistInfo: track.PlaylistInfo{Name: "Fake Playlist"},
			Tracks: []*track.Track{
				StubTrack("pl-1", "Playlist One"),
				StubTrack("pl-2", "Playlist Two"),
				StubTrack("pl-3", "Playlist Three"),
			},
		}
	default:
		result = track.LoadResult{
			LoadType: track.LoadTypeSearch,
			Tracks: []*track.Track{
				StubTrack("result-1", "First Result"),
				StubTrack("result-2", "Second Result"),
			},
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (f *FakeNode) handleDecodeTrack(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("Authorization") != FakeNodePassword {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	encoded := r.URL.Query().Get("track")
	if encoded == "" || strings.Contains(encoded, "unknown") {
		w.WriteHeader(http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(StubTrack(encoded, "Decoded "+encoded).Info)
}

// StubTrack builds a playable three-minute track for tests.
func StubTrack(encoded, title string) *track.Track {
	return &track.Track{
		Encoded: encoded,
		Info: track.Info{
			Identifier: encoded,
			Title:      title,
			Author:     "Fake Artist",
			URI:        "https://tracks.example/" + encoded,
			SourceName: "fake",
			Length:     180000,
			IsSeekable: true,
		},
	}
}
