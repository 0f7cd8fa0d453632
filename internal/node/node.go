// Package node manages the connection to one remote audio backend. A
// handle owns the backend's websocket and REST endpoints and tracks
// the load figures selection runs on.
package node

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/glizzus/encore/internal/backoff"
)

// ErrNotConnected is returned by operations that need an established
// socket.
var ErrNotConnected = errors.New("node is not connected")

// ErrNotFound is returned when a node does not know the requested
// resource.
var ErrNotFound = errors.New("not found on node")

// Options configure one node. They usually come from the fleet file.
type Options struct {
	Name           string `yaml:"name"`
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	Password       string `yaml:"password"`
	Secure         bool   `yaml:"secure"`
	ReconnectTries int    `yaml:"reconnectTries"`
}

// Identity is how the node socket introduces the client on dial.
type Identity struct {
	UserID     string
	ClientName string
	Shards     int
	ResumeKey  string
}

// Status is the connection state of a node.
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

var statusNames = map[Status]string{
	StatusDisconnected: "disconnected",
	StatusConnecting:   "connecting",
	StatusConnected:    "connected",
}

func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return "unknown"
}

// Handlers are the callbacks a node invokes from its read loop. Any of
// them may be nil. They run on the node's single read goroutine, so
// notifications from one node arrive in order.
type Handlers struct {
	OnOpen         func()
	OnClose        func(code int, reason string)
	OnReconnect    func(attempt int)
	OnError        func(err error)
	OnRaw          func(payload []byte)
	OnEvent        func(event PlaybackEvent)
	OnPlayerUpdate func(guildID string, state PlayerUpdateState)
	OnStats        func(stats Stats)
	OnDestroy      func()
}

// Node is a handle to one remote audio backend.
type Node struct {
	opts     Options
	handlers Handlers

	mu       sync.RWMutex
	conn     *websocket.Conn
	status   Status
	stats    Stats
	identity Identity
	closed   bool

	// writeMu serialises frames from concurrent senders.
	writeMu sync.Mutex

	calls atomic.Int64

	http    *http.Client
	backoff backoff.Policy
}

// New builds a node handle. It stays disconnected until Connect.
func New(opts Options, handlers Handlers) *Node {
	return &Node{
		opts:     opts,
		handlers: handlers,
		http:     &http.Client{Timeout: 10 * time.Second},
		backoff:  backoff.Default,
	}
}

func (n *Node) Name() string {
	return n.opts.Name
}

func (n *Node) Options() Options {
	return n.opts
}

func (n *Node) Status() Status {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.status
}

// Available reports whether the node can serve traffic right now.
func (n *Node) Available() bool {
	return n.Status() == StatusConnected
}

// Calls returns how many operations this node has served. Selection
// uses it as the usage figure.
func (n *Node) Calls() int64 {
	return n.calls.Load()
}

// Stats returns the most recent stats payload the node pushed.
func (n *Node) Stats() Stats {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.stats
}

// Penalty scores relative CPU load: system load normalised by core
// count, scaled to a percentage. Nodes that have not reported stats
// yet score zero.
func (n *Node) Penalty() float64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	cpu := n.stats.CPU
	if cpu == nil || cpu.Cores == 0 {
		return 0
	}
	return cpu.SystemLoad / float64(cpu.Cores) * 100
}

// SocketURL returns the websocket endpoint of the node.
func (n *Node) SocketURL() string {
	scheme := "ws"
	if n.opts.Secure {
		scheme = "wss"
	}
	return fmt.Sprintf("%s://%s:%d/", scheme, n.opts.Host, n.opts.Port)
}

func (n *Node) restURL(path string) string {
	scheme := "http"
	if n.opts.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s:%d%s", scheme, n.opts.Host, n.opts.Port, path)
}
