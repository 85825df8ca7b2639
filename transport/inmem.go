// Package transport provides RpcService implementations that carry
// consensus RPCs between nodes. The in-memory network here is for
// single-process clusters and tests; a wire transport plugs in by
// implementing the same interface.
package transport

import (
	"sync"

	. "github.com/quorumkv/quorumkv"
)

// RpcTarget is the receiving side of the consensus RPCs. It is satisfied
// by node.ConsensusModule.
type RpcTarget interface {
	ProcessRpcAppendEntries(from ServerId, rpc *RpcAppendEntries) *RpcAppendEntriesReply
	ProcessRpcRequestVote(from ServerId, rpc *RpcRequestVote) *RpcRequestVoteReply
}

// InMemoryNetwork delivers RPCs between registered nodes by direct call.
//
// A drop hook can be installed to simulate partitions: dropped calls
// return nil replies, which the sender treats as a transport timeout.
type InMemoryNetwork struct {
	lock   sync.RWMutex
	nodes  map[ServerId]RpcTarget
	dropFn func(from ServerId, to ServerId) bool
}

func NewInMemoryNetwork() *InMemoryNetwork {
	return &InMemoryNetwork{
		nodes: make(map[ServerId]RpcTarget),
	}
}

// AddNode registers the given node under its server id. Registering
// an id twice replaces the previous target.
func (n *InMemoryNetwork) AddNode(serverId ServerId, target RpcTarget) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.nodes[serverId] = target
}

// RemoveNode drops the node from the network. RPCs to and from it
// behave like timeouts afterwards.
func (n *InMemoryNetwork) RemoveNode(serverId ServerId) {
	n.lock.Lock()
	defer n.lock.Unlock()
	delete(n.nodes, serverId)
}

// SetDropFn installs a hook deciding whether a given message is dropped.
// A nil hook delivers everything.
func (n *InMemoryNetwork) SetDropFn(dropFn func(from ServerId, to ServerId) bool) {
	n.lock.Lock()
	defer n.lock.Unlock()
	n.dropFn = dropFn
}

// ServiceFor returns the RpcService a single node uses to send to its
// peers. The from id stamps outgoing messages.
func (n *InMemoryNetwork) ServiceFor(from ServerId) RpcService {
	return &networkClient{network: n, from: from}
}

func (n *InMemoryNetwork) lookup(from ServerId, to ServerId) RpcTarget {
	n.lock.RLock()
	defer n.lock.RUnlock()
	if n.dropFn != nil && n.dropFn(from, to) {
		return nil
	}
	return n.nodes[to]
}

// networkClient is the per-node sending handle.
type networkClient struct {
	network *InMemoryNetwork
	from    ServerId
}

var _ RpcService = (*networkClient)(nil)

func (c *networkClient) RpcAppendEntries(toServer ServerId, rpc *RpcAppendEntries) *RpcAppendEntriesReply {
	target := c.network.lookup(c.from, toServer)
	if target == nil {
		return nil
	}
	return target.ProcessRpcAppendEntries(c.from, rpc)
}

func (c *networkClient) RpcRequestVote(toServer ServerId, rpc *RpcRequestVote) *RpcRequestVoteReply {
	target := c.network.lookup(c.from, toServer)
	if target == nil {
		return nil
	}
	return target.ProcessRpcRequestVote(c.from, rpc)
}
