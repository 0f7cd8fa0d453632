package node

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

const (
	defaultReconnectTries = 5
	dialTimeout           = 10 * time.Second
	writeTimeout          = 10 * time.Second
	resumeTimeoutSeconds  = 60
)

// Connect dials the node and starts its read loop. It is a no-op when
// the node is already connecting or connected. When the first dial
// fails, the error is returned and the node keeps retrying in the
// background with backoff.
func (n *Node) Connect(ctx context.Context, id Identity) error {
	n.mu.Lock()
	if n.status != StatusDisconnected {
		n.mu.Unlock()
		return nil
	}
	n.identity = id
	n.status = StatusConnecting
	n.closed = false
	n.mu.Unlock()

	conn, err := n.dial(ctx)
	if err != nil {
		n.mu.Lock()
		n.status = StatusDisconnected
		n.mu.Unlock()
		go n.reconnect()
		return fmt.Errorf("connect to node %q: %w", n.opts.Name, err)
	}

	n.adopt(conn)
	return nil
}

// Disconnect closes the socket and stops any reconnect attempts.
func (n *Node) Disconnect() error {
	n.mu.Lock()
	n.closed = true
	conn := n.conn
	n.conn = nil
	n.status = StatusDisconnected
	n.mu.Unlock()

	if conn == nil {
		return nil
	}
	return conn.Close()
}

// Send marshals one operation and writes it to the node. Frames from
// concurrent senders never interleave.
func (n *Node) Send(ctx context.Context, op any) error {
	n.mu.RLock()
	conn := n.conn
	n.mu.RUnlock()
	if conn == nil {
		return fmt.Errorf("node %q: %w", n.opts.Name, ErrNotConnected)
	}

	payload, err := json.Marshal(op)
	if err != nil {
		return fmt.Errorf("marshal node op: %w", err)
	}

	n.calls.Add(1)

	deadline := time.Now().Add(writeTimeout)
	if d, ok := ctx.Deadline(); ok {
		deadline = d
	}

	n.writeMu.Lock()
	defer n.writeMu.Unlock()
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return fmt.Errorf("set write deadline: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return fmt.Errorf("write to node %q: %w", n.opts.Name, err)
	}
	return nil
}

func (n *Node) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", n.opts.Password)
	header.Set("User-Id", n.identity.UserID)
	header.Set("Client-Name", n.identity.ClientName)
	header.Set("Num-Shards", strconv.Itoa(n.identity.Shards))
	if n.identity.ResumeKey != "" {
		header.Set("Resume-Key", n.identity.ResumeKey)
	}

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, n.SocketURL(), header)
	return conn, err
}

// adopt installs an established connection and brings the node online.
func (n *Node) adopt(conn *websocket.Conn) {
	n.mu.Lock()
	n.conn = conn
	n.status = StatusConnected
	n.mu.Unlock()

	if n.handlers.OnOpen != nil {
		n.handlers.OnOpen()
	}
	n.configureResuming()

	go n.readLoop(conn)
}

// configureResuming asks the node to hold our session open across a
// short socket loss, keyed by the resume key we dialed with.
func (n *Node) configureResuming() {
	n.mu.RLock()
	key := n.identity.ResumeKey
	n.mu.RUnlock()
	if key == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	op := configureResumingOp{Op: opConfigureResuming, Key: key, Timeout: resumeTimeoutSeconds}
	if err := n.Send(ctx, op); err != nil {
		slog.Warn("failed to configure resuming", "node", n.opts.Name, slog.Any("error", err))
	}
}

func (n *Node) readLoop(conn *websocket.Conn) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			n.handleClose(conn, err)
			return
		}
		n.dispatch(payload)
	}
}

func (n *Node) dispatch(payload []byte) {
	if n.handlers.OnRaw != nil {
		n.handlers.OnRaw(payload)
	}

	var envelope message
	if err := json.Unmarshal(payload, &envelope); err != nil {
		n.fail(fmt.Errorf("malformed node payload: %w", err))
		return
	}

	switch envelope.Op {
	case opStats:
		var msg statsMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			n.fail(fmt.Errorf("malformed stats payload: %w", err))
			return
		}
		n.mu.Lock()
		n.stats = msg.Stats
		n.mu.Unlock()
		if n.handlers.OnStats != nil {
			n.handlers.OnStats(msg.Stats)
		}
	case opEvent:
		var event PlaybackEvent
		if err := json.Unmarshal(payload, &event); err != nil {
			n.fail(fmt.Errorf("malformed event payload: %w", err))
			return
		}
		if n.handlers.OnEvent != nil {
			n.handlers.OnEvent(event)
		}
	case opPlayerUpdate:
		var msg playerUpdateMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			n.fail(fmt.Errorf("malformed playerUpdate payload: %w", err))
			return
		}
		if n.handlers.OnPlayerUpdate != nil {
			n.handlers.OnPlayerUpdate(msg.GuildID, msg.State)
		}
	default:
		// Unknown ops still reach subscribers through OnRaw.
	}
}

func (n *Node) fail(err error) {
	if n.handlers.OnError != nil {
		n.handlers.OnError(err)
	}
}

func (n *Node) handleClose(conn *websocket.Conn, err error) {
	n.mu.Lock()
	if n.conn == conn {
		n.conn = nil
	}
	n.status = StatusDisconnected
	closed := n.closed
	n.mu.Unlock()

	code, reason := closeDetails(err)
	if n.handlers.OnClose != nil {
		n.handlers.OnClose(code, reason)
	}

	if closed {
		return
	}
	go n.reconnect()
}

func closeDetails(err error) (int, string) {
	var closeErr *websocket.CloseError
	if errors.As(err, &closeErr) {
		return closeErr.Code, closeErr.Text
	}
	return websocket.CloseAbnormalClosure, err.Error()
}

// reconnect retries the dial with backoff until it succeeds, the node
// is disconnected deliberately, or the attempts run out. Running out
// destroys the handle.
func (n *Node) reconnect() {
	tries := n.opts.ReconnectTries
	if tries <= 0 {
		tries = defaultReconnectTries
	}

	for attempt := 1; attempt <= tries; attempt++ {
		time.Sleep(n.backoff.Delay(attempt))

		n.mu.Lock()
		if n.closed {
			n.mu.Unlock()
			return
		}
		n.status = StatusConnecting
		n.mu.Unlock()

		if n.handlers.OnReconnect != nil {
			n.handlers.OnReconnect(attempt)
		}

		ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
		conn, err := n.dial(ctx)
		cancel()
		if err != nil {
			slog.Warn("node reconnect failed",
				"node", n.opts.Name, "attempt", attempt, slog.Any("error", err))
			n.mu.Lock()
			n.status = StatusDisconnected
			n.mu.Unlock()
			continue
		}

		n.adopt(conn)
		return
	}

	slog.Error("node reconnect attempts exhausted", "node", n.opts.Name, "tries", tries)
	if n.handlers.OnDestroy != nil {
		n.handlers.OnDestroy()
	}
}
