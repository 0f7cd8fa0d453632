package events

const (
	// KindNodeCreate identifies registration of a new node.
	KindNodeCreate Kind = "nodeCreate"
	// KindNodeDestroy identifies removal of a node from the hub.
	KindNodeDestroy Kind = "nodeDestroy"
	// KindNodeConnect identifies a node socket becoming established.
	KindNodeConnect Kind = "nodeConnect"
	// KindNodeReconnect identifies a reconnection attempt to a node.
	KindNodeReconnect Kind = "nodeReconnect"
	// KindNodeDisconnect identifies loss of a node socket.
	KindNodeDisconnect Kind = "nodeDisconnect"
	// KindNodeError identifies a node-level failure.
	KindNodeError Kind = "nodeError"
	// KindNodeRaw identifies an unparsed inbound node message.
	KindNodeRaw Kind = "nodeRaw"
)

// NodeCreate marks a node added to the hub.
type NodeCreate struct {
	Base
	Node string
}

func NewNodeCreate(node string) NodeCreate {
	return NodeCreate{Base: NewBase(KindNodeCreate), Node: node}
}

// NodeDestroy marks a node removed from the hub.
type NodeDestroy struct {
	Base
	Node string
}

func NewNodeDestroy(node string) NodeDestroy {
	return NodeDestroy{Base: NewBase(KindNodeDestroy), Node: node}
}

// NodeConnect marks a node socket established.
type NodeConnect struct {
	Base
	Node string
}

func NewNodeConnect(node string) NodeConnect {
	return NodeConnect{Base: NewBase(KindNodeConnect), Node: node}
}

// NodeReconnect marks a reconnection attempt to a node.
type NodeReconnect struct {
	Base
	Node    string
	Attempt int
}

func NewNodeReconnect(node string, attempt int) NodeReconnect {
	return NodeReconnect{Base: NewBase(KindNodeReconnect), Node: node, Attempt: attempt}
}

// NodeDisconnect marks loss of a node socket.
type NodeDisconnect struct {
	Base
	Node   string
	Code   int
	Reason string
}

func NewNodeDisconnect(node string, code int, reason string) NodeDisconnect {
	return NodeDisconnect{Base: NewBase(KindNodeDisconnect), Node: node, Code: code, Reason: reason}
}

// NodeError carries a node-level failure, including notifications the
// hub could not classify.
type NodeError struct {
	Base
	Node string
	Err  error
}

func NewNodeError(node string, err error) NodeError {
	return NodeError{Base: NewBase(KindNodeError), Node: node, Err: err}
}

// NodeRaw carries an inbound node message verbatim.
type NodeRaw struct {
	Base
	Node    string
	Payload []byte
}

func NewNodeRaw(node string, payload []byte) NodeRaw {
	return NodeRaw{Base: NewBase(KindNodeRaw), Node: node, Payload: payload}
}
