package player_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/gorilla/websocket"

	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/player"
	"github.com/glizzus/encore/internal/track"
)

// fakeGateway records voice intents instead of talking to Discord.
type fakeGateway struct {
	mu    sync.Mutex
	sends []voiceIntent
	err   error
}

type voiceIntent struct {
	GuildID   string
	ChannelID string
	SelfMute  bool
	SelfDeaf  bool
}

func (g *fakeGateway) SendVoiceUpdate(guildID, channelID string, selfMute, selfDeaf bool) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	g.sends = append(g.sends, voiceIntent{guildID, channelID, selfMute, selfDeaf})
	return nil
}

func (g *fakeGateway) last(t *testing.T) voiceIntent {
	t.Helper()
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.sends) == 0 {
		t.Fatal("expected a voice intent, got none")
	}
	return g.sends[len(g.sends)-1]
}

// fakeBackend is an in-process node with a websocket and the two REST
// endpoints players hit.
type fakeBackend struct {
	srv     *httptest.Server
	ops     chan map[string]any
	rest    chan string
	encoded string
}

func newFakeBackend(t *testing.T, encoded string) *fakeBackend {
	t.Helper()

	b := &fakeBackend{
		ops:     make(chan map[string]any, 16),
		rest:    make(chan string, 16),
		encoded: encoded,
	}

	upgrader := websocket.Upgrader{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		for {
			_, payload, err := conn.ReadMessage()
			if err != nil {
				return
			}
			var op map[string]any
			if err := json.Unmarshal(payload, &op); err != nil {
				t.Errorf("malformed op from client: %v", err)
				continue
			}
			b.ops <- op
		}
	})
	mux.HandleFunc("/loadtracks", func(w http.ResponseWriter, r *http.Request) {
		b.rest <- r.URL.RequestURI()
		result := track.LoadResult{
			LoadType: track.LoadTypeSearch,
			Tracks: []*track.Track{
				{Encoded: b.encoded, Info: track.Info{Title: "Resolved Song", Author: "Somebody"}},
			},
		}
		json.NewEncoder(w).Encode(result)
	})

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

func (b *fakeBackend) node(t *testing.T, name string) *node.Node {
	t.Helper()
	u, _ := url.Parse(b.srv.URL)
	port, _ := strconv.Atoi(u.Port())
	n := node.New(node.Options{
		Name:           name,
		Host:           u.Hostname(),
		Port:           port,
		Password:       "secret",
		ReconnectTries: 1,
	}, node.Handlers{})
	if err := n.Connect(context.Background(), node.Identity{UserID: "bot", ClientName: "encore"}); err != nil {
		t.Fatalf("connect to fake backend: %v", err)
	}
	t.Cleanup(func() { n.Disconnect() })
	return n
}

func (b *fakeBackend) nextOp(t *testing.T) map[string]any {
	t.Helper()
	select {
	case op := <-b.ops:
		return op
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for a node op")
		panic("unreachable")
	}
}

func TestConnectRequiresVoiceChannel(t *testing.T) {
	gateway := &fakeGateway{}
	p := player.New("guild-1", nil, gateway, player.Config{})

	if err := p.Connect(); !errors.Is(err, player.ErrNoVoiceChannel) {
		t.Errorf("expected ErrNoVoiceChannel, got %v", err)
	}
}

func TestConnectSendsGatewayIntent(t *testing.T) {
	gateway := &fakeGateway{}
	p := player.New("guild-1", nil, gateway, player.Config{
		VoiceChannelID: "channel-1",
		SelfDeaf:       true,
	})

	if err := p.Connect(); err != nil {
		t.Fatalf("Connect returned error: %v", err)
	}

	want := voiceIntent{GuildID: "guild-1", ChannelID: "channel-1", SelfDeaf: true}
	if got := gateway.last(t); got != want {
		t.Errorf("voice intent = %+v; want %+v", got, want)
	}
}

func TestDisconnectLeavesChannelAndClearsState(t *testing.T) {
	gateway := &fakeGateway{}
	p := player.New("guild-1", nil, gateway, player.Config{VoiceChannelID: "channel-1"})

	if err := p.Disconnect(); err != nil {
		t.Fatalf("Disconnect returned error: %v", err)
	}

	if got := gateway.last(t); got.ChannelID != "" {
		t.Errorf("expected empty channel intent, got %q", got.ChannelID)
	}
	if p.VoiceConnected() {
		t.Error("expected voice to be disconnected")
	}
	if p.VoiceChannelID() != "" {
		t.Errorf("expected cleared channel, got %q", p.VoiceChannelID())
	}
}

func TestPlayWithEmptyQueue(t *testing.T) {
	p := player.New("guild-1", nil, &fakeGateway{}, player.Config{})

	if err := p.Play(context.Background(), node.PlayOptions{}); !errors.Is(err, player.ErrNothingToPlay) {
		t.Errorf("expected ErrNothingToPlay, got %v", err)
	}
}

func TestPlaySendsPlayOp(t *testing.T) {
	backend := newFakeBackend(t, "enc-resolved")
	n := backend.node(t, "alpha")

	p := player.New("guild-1", n, &fakeGateway{}, player.Config{})
	p.Queue().Add(&track.Track{Encoded: "enc-direct", Info: track.Info{Title: "Song"}})

	if err := p.Play(context.Background(), node.PlayOptions{}); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	op := backend.nextOp(t)
	if op["op"] != "play" || op["guildId"] != "guild-1" || op["track"] != "enc-direct" {
		t.Errorf("unexpected play op: %v", op)
	}
	if op["volume"] != float64(100) {
		t.Errorf("expected default volume 100, got %v", op["volume"])
	}
	if p.State() != player.StatePlaying {
		t.Errorf("expected playing state, got %v", p.State())
	}
}

func TestPlayResolvesUnresolvedTrack(t *testing.T) {
	backend := newFakeBackend(t, "enc-resolved")
	n := backend.node(t, "alpha")

	p := player.New("guild-1", n, &fakeGateway{}, player.Config{SearchPrefix: "ytsearch:"})
	p.Queue().Add(track.Unresolved("despacito", "user-9"))

	if err := p.Play(context.Background(), node.PlayOptions{}); err != nil {
		t.Fatalf("Play returned error: %v", err)
	}

	select {
	case uri := <-backend.rest:
		want := "/loadtracks?identifier=" + url.QueryEscape("ytsearch:despacito")
		if uri != want {
			t.Errorf("load URI = %q; want %q", uri, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for the load request")
	}

	op := backend.nextOp(t)
	if op["track"] != "enc-resolved" {
		t.Errorf("expected resolved encoding in play op, got %v", op["track"])
	}

	current := p.Queue().Current()
	if !current.Resolved() {
		t.Error("expected the queued track to be resolved in place")
	}
	if current.Requester != "user-9" {
		t.Errorf("expected requester to survive resolution, got %q", current.Requester)
	}
	if current.Info.Author != "Somebody" {
		t.Errorf("expected resolved metadata, got %+v", current.Info)
	}
}

func TestMoveReplaysOnNewNode(t *testing.T) {
	backendA := newFakeBackend(t, "enc-a")
	backendB := newFakeBackend(t, "enc-b")
	nodeA := backendA.node(t, "alpha")
	nodeB := backendB.node(t, "beta")

	p := player.New("guild-1", nodeA, &fakeGateway{}, player.Config{VoiceChannelID: "channel-1"})
	p.Queue().Add(&track.Track{Encoded: "enc-current", Info: track.Info{Title: "Song"}})
	p.MarkPlaying()
	p.ApplyUpdate(node.PlayerUpdateState{Position: 42000, Connected: true})

	p.ApplyVoiceServer(&discordgo.VoiceServerUpdate{Token: "tok", GuildID: "guild-1", Endpoint: "ep"})
	p.ApplyVoiceSession("session-1")

	if err := p.Move(context.Background(), nodeB); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}

	if got := p.Node().Name(); got != "beta" {
		t.Errorf("expected player on beta, got %q", got)
	}
	if !p.Replaying() {
		t.Error("expected replaying flag to be set after a move")
	}

	// The old node is told to drop the guild.
	destroyOp := backendA.nextOp(t)
	if destroyOp["op"] != "destroy" || destroyOp["guildId"] != "guild-1" {
		t.Errorf("unexpected op on old node: %v", destroyOp)
	}

	// The new node gets the handshake, then the replay.
	voiceOp := backendB.nextOp(t)
	if voiceOp["op"] != "voiceUpdate" || voiceOp["sessionId"] != "session-1" {
		t.Errorf("unexpected first op on new node: %v", voiceOp)
	}
	playOp := backendB.nextOp(t)
	if playOp["op"] != "play" || playOp["track"] != "enc-current" {
		t.Errorf("unexpected replay op: %v", playOp)
	}
	if playOp["startTime"] != float64(42000) {
		t.Errorf("expected replay from position 42000, got %v", playOp["startTime"])
	}
}

func TestMoveIdlePlayerSkipsReplay(t *testing.T) {
	backendA := newFakeBackend(t, "enc-a")
	backendB := newFakeBackend(t, "enc-b")
	nodeA := backendA.node(t, "alpha")
	nodeB := backendB.node(t, "beta")

	p := player.New("guild-1", nodeA, &fakeGateway{}, player.Config{})

	if err := p.Move(context.Background(), nodeB); err != nil {
		t.Fatalf("Move returned error: %v", err)
	}

	if p.Replaying() {
		t.Error("expected no replay flag for an idle move")
	}
	select {
	case op := <-backendB.ops:
		t.Fatalf("expected no ops on new node for an idle move, got %v", op)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestSetVolumeRange(t *testing.T) {
	p := player.New("guild-1", nil, &fakeGateway{}, player.Config{})

	if err := p.SetVolume(context.Background(), -1); err == nil {
		t.Error("expected an error for negative volume")
	}
	if err := p.SetVolume(context.Background(), 1001); err == nil {
		t.Error("expected an error for volume over 1000")
	}
}

func TestSeekRejectsNegativePosition(t *testing.T) {
	p := player.New("guild-1", nil, &fakeGateway{}, player.Config{})

	if err := p.Seek(context.Background(), -5); err == nil {
		t.Error("expected an error for negative seek")
	}
}

func TestApplyUpdateTracksProgress(t *testing.T) {
	p := player.New("guild-1", nil, &fakeGateway{}, player.Config{})

	p.ApplyUpdate(node.PlayerUpdateState{Time: 1, Position: 64000, Connected: true})

	if p.Position() != 64000 {
		t.Errorf("expected position 64000, got %d", p.Position())
	}
	if !p.VoiceConnected() {
		t.Error("expected voice to be connected")
	}
}
