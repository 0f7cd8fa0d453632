// Package hub coordinates a fleet of audio nodes and the per-guild
// players assigned to them. It owns both registries and routes node
// notifications to the affected player, publishing lifecycle events on
// a bus.
package hub

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/glizzus/encore/internal/events"
	"github.com/glizzus/encore/internal/generator"
	"github.com/glizzus/encore/internal/node"
	"github.com/glizzus/encore/internal/player"
	"github.com/glizzus/encore/internal/store"
)

// Config carries the hub's behavior switches. The zero value is usable;
// New fills in defaults.
type Config struct {
	// ClientName identifies this client to nodes.
	ClientName string

	// Shards is the Discord shard count reported to nodes.
	Shards int

	// AutoPlay advances the queue when a track finishes.
	AutoPlay bool

	// DefaultSearchPlatform prefixes bare search terms, e.g. "yt".
	DefaultSearchPlatform string

	// AutoReplay moves players off a node when its socket closes.
	AutoReplay bool

	// AutoResume rejoins the voice channel when a guild's voice socket
	// closes.
	AutoResume bool
}

// Option tweaks a hub under construction.
type Option func(*Hub)

// WithBus publishes hub events on an existing bus instead of a fresh
// one.
func WithBus(bus *events.Bus) Option {
	return func(h *Hub) { h.bus = bus }
}

// WithStore persists player snapshots to the given store.
func WithStore(s store.PlayerStore) Option {
	return func(h *Hub) { h.store = s }
}

// WithResumeKeys overrides how node resume keys are generated.
func WithResumeKeys(gen generator.Generator[string]) Option {
	return func(h *Hub) { h.keys = gen }
}

// Hub is the root object of the client. One hub serves one bot.
type Hub struct {
	cfg     Config
	gateway player.Gateway
	bus     *events.Bus
	store   store.PlayerStore
	keys    generator.Generator[string]

	nodes   *registry[*node.Node]
	players *registry[*player.Player]

	mu          sync.RWMutex
	clientID    string
	initialized bool

	closing atomic.Bool
}

// New builds a hub. The gateway is how players ask Discord to join and
// leave voice channels.
func New(cfg Config, gateway player.Gateway, opts ...Option) *Hub {
	if cfg.ClientName == "" {
		cfg.ClientName = "encore"
	}
	if cfg.Shards < 1 {
		cfg.Shards = 1
	}
	if cfg.DefaultSearchPlatform == "" {
		cfg.DefaultSearchPlatform = "yt"
	}

	h := &Hub{
		cfg:     cfg,
		gateway: gateway,
		nodes:   newRegistry[*node.Node](),
		players: newRegistry[*player.Player](),
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.bus == nil {
		h.bus = events.NewBus()
	}
	if h.store == nil {
		h.store = store.NewMemoryStore()
	}
	if h.keys == nil {
		h.keys = &generator.ResumeKeyGenerator{Prefix: cfg.ClientName}
	}
	return h
}

// Bus exposes the event bus for subscriptions.
func (h *Hub) Bus() *events.Bus {
	return h.bus
}

// AutoPlay reports whether the hub advances queues when tracks end.
func (h *Hub) AutoPlay() bool {
	return h.cfg.AutoPlay
}

// ClientID returns the bot user id recorded by Init, or "" before
// initialization.
func (h *Hub) ClientID() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.clientID
}

// Initialized reports whether Init has run.
func (h *Hub) Initialized() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.initialized
}

// Init records the bot's user id and connects every registered node.
// It runs once: repeated calls are no-ops. A node that fails to
// connect keeps retrying in the background; Init reports the first
// dial error but never unwinds.
func (h *Hub) Init(ctx context.Context, clientID string) error {
	if clientID == "" {
		return &ValidationError{Reason: "client id must not be empty"}
	}

	h.mu.Lock()
	if h.initialized {
		h.mu.Unlock()
		return nil
	}
	h.clientID = clientID
	h.initialized = true
	h.mu.Unlock()

	var firstErr error
	for _, n := range h.nodes.snapshot() {
		if err := h.connectNode(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Add registers a node. Once the hub is initialized new nodes connect
// immediately; before that they stay dormant until Init runs.
func (h *Hub) Add(ctx context.Context, opts node.Options) (*node.Node, error) {
	if err := validateNodeOptions(opts); err != nil {
		return nil, err
	}
	if _, exists := h.nodes.get(opts.Name); exists {
		return nil, &ValidationError{Reason: fmt.Sprintf("node %q is already registered", opts.Name)}
	}

	n := h.buildNode(opts)
	h.nodes.set(opts.Name, n)
	h.bus.Publish(events.NewNodeCreate(opts.Name))

	if h.Initialized() {
		if err := h.connectNode(ctx, n); err != nil {
			// Registered but unreachable; the handle keeps retrying.
			return n, err
		}
	}
	return n, nil
}

// Remove disconnects a node and drops it from the hub. Players still
// assigned to it are picked up by the replay path as the socket
// closes.
func (h *Hub) Remove(name string) error {
	n, ok := h.nodes.get(name)
	if !ok {
		return &NotFoundError{Kind: "node", Key: name}
	}

	h.nodes.delete(name)
	if err := n.Disconnect(); err != nil {
		slog.Warn("failed to close node socket", "node", name, slog.Any("error", err))
	}
	h.bus.Publish(events.NewNodeDestroy(name))
	return nil
}

// Node looks up a registered node by name.
func (h *Hub) Node(name string) (*node.Node, bool) {
	return h.nodes.get(name)
}

// Nodes returns the registered nodes in registration order.
func (h *Hub) Nodes() []*node.Node {
	return h.nodes.snapshot()
}

// PlayerOptions configures Create.
type PlayerOptions struct {
	GuildID        string
	VoiceChannelID string
	TextChannelID  string

	// Node pins the player to a named node instead of the least-used
	// one.
	Node string

	SelfMute bool
	SelfDeaf bool
	Volume   int
}

// Create builds the player for a guild and assigns it a node. If the
// guild already has a player it is returned untouched, options and
// all.
func (h *Hub) Create(ctx context.Context, opts PlayerOptions) (*player.Player, error) {
	if opts.GuildID == "" {
		return nil, &ValidationError{Reason: "guild id must not be empty"}
	}
	if opts.VoiceChannelID == "" {
		return nil, &ValidationError{Reason: "voice channel id must not be empty"}
	}

	if existing, ok := h.players.get(opts.GuildID); ok {
		return existing, nil
	}

	var n *node.Node
	if opts.Node != "" {
		pinned, ok := h.nodes.get(opts.Node)
		if !ok {
			return nil, &NotFoundError{Kind: "node", Key: opts.Node}
		}
		n = pinned
	} else {
		selected, err := h.LeastUsed()
		if err != nil {
			return nil, err
		}
		n = selected
	}

	p := player.New(opts.GuildID, n, h.gateway, player.Config{
		VoiceChannelID: opts.VoiceChannelID,
		TextChannelID:  opts.TextChannelID,
		SearchPrefix:   h.searchPrefix(),
		SelfMute:       opts.SelfMute,
		SelfDeaf:       opts.SelfDeaf,
		Volume:         opts.Volume,
	})
	h.players.set(opts.GuildID, p)
	h.bus.Publish(events.NewPlayerCreate(opts.GuildID))
	h.persist(ctx, p)
	return p, nil
}

// Get looks up the player for a guild.
func (h *Hub) Get(guildID string) (*player.Player, bool) {
	return h.players.get(guildID)
}

// Players returns every live player.
func (h *Hub) Players() []*player.Player {
	return h.players.snapshot()
}

// Destroy tears down a guild's player: the node is told to drop the
// guild, then the registry entry and the snapshot go away.
func (h *Hub) Destroy(ctx context.Context, guildID string) error {
	p, ok := h.players.get(guildID)
	if !ok {
		return &NotFoundError{Kind: "player", Key: guildID}
	}

	if n := p.Node(); n != nil && n.Available() {
		if err := n.DestroyPlayer(ctx, guildID); err != nil {
			slog.Warn("failed to clear guild from node",
				"guild", guildID, "node", n.Name(), slog.Any("error", err))
		}
	}
	h.players.delete(guildID)
	h.bus.Publish(events.NewPlayerDestroy(guildID))
	if err := h.store.Delete(ctx, guildID); err != nil {
		slog.Warn("failed to delete player snapshot", "guild", guildID, slog.Any("error", err))
	}
	return nil
}

// Close disconnects every node. Players stay registered so their
// snapshots survive for the next process.
func (h *Hub) Close() error {
	h.closing.Store(true)

	var firstErr error
	for _, n := range h.nodes.snapshot() {
		if err := n.Disconnect(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// connectNode dials one node with the hub's identity.
func (h *Hub) connectNode(ctx context.Context, n *node.Node) error {
	key, err := h.keys.Next()
	if err != nil {
		// Resuming is optional; a missing key just disables it.
		slog.Warn("failed to generate resume key", "node", n.Name(), slog.Any("error", err))
		key = ""
	}

	identity := node.Identity{
		UserID:     h.ClientID(),
		ClientName: h.cfg.ClientName,
		Shards:     h.cfg.Shards,
		ResumeKey:  key,
	}
	if err := n.Connect(ctx, identity); err != nil {
		return fmt.Errorf("connect node %q: %w", n.Name(), err)
	}
	return nil
}

// buildNode wires a node's notification handlers into the hub. The
// handlers run on the node's read goroutine, which is what keeps
// per-node event ordering intact all the way to the bus.
func (h *Hub) buildNode(opts node.Options) *node.Node {
	var n *node.Node
	n = node.New(opts, node.Handlers{
		OnOpen: func() {
			h.bus.Publish(events.NewNodeConnect(opts.Name))
		},
		OnClose: func(code int, reason string) {
			h.handleNodeDown(n, code, reason)
		},
		OnReconnect: func(attempt int) {
			h.bus.Publish(events.NewNodeReconnect(opts.Name, attempt))
		},
		OnError: func(err error) {
			h.bus.Publish(events.NewNodeError(opts.Name, err))
		},
		OnRaw: func(payload []byte) {
			h.bus.Publish(events.NewNodeRaw(opts.Name, payload))
		},
		OnEvent: func(event node.PlaybackEvent) {
			h.dispatchEvent(opts.Name, event)
		},
		OnPlayerUpdate: func(guildID string, state node.PlayerUpdateState) {
			if p, ok := h.players.get(guildID); ok {
				p.ApplyUpdate(state)
			}
		},
		OnDestroy: func() {
			h.dropNode(opts.Name)
		},
	})
	return n
}

// dropNode removes a node that gave up reconnecting.
func (h *Hub) dropNode(name string) {
	if _, ok := h.nodes.get(name); !ok {
		return
	}
	h.nodes.delete(name)
	h.bus.Publish(events.NewNodeDestroy(name))
}

func (h *Hub) searchPrefix() string {
	return h.cfg.DefaultSearchPlatform + "search:"
}

func validateNodeOptions(opts node.Options) error {
	switch {
	case opts.Name == "":
		return &ValidationError{Reason: "node name must not be empty"}
	case opts.Host == "":
		return &ValidationError{Reason: "node host must not be empty"}
	case opts.Port == 0:
		return &ValidationError{Reason: "node port must not be zero"}
	case opts.Password == "":
		return &ValidationError{Reason: "node password must not be empty"}
	}
	return nil
}
