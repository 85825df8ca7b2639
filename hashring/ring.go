// Package hashring implements a consistent hash ring with virtual nodes.
//
// Consistent hashing is chosen over naive hash(key) % N because
// membership changes reassign only the keys whose ring segment was owned
// by the affected node's virtual points - roughly 1/(M+1) of keys when
// adding a node to an M-node ring - rather than a majority.
package hashring

import (
	"sort"
	"strconv"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/pkg/errors"

	. "github.com/quorumkv/quorumkv"
)

// DefaultVirtualNodes is the default number of ring points per physical
// node. More points smooth the load distribution at the cost of memory.
const DefaultVirtualNodes = 100

// ErrEmptyRing is returned when looking up a key on a ring with no nodes.
var ErrEmptyRing = errors.New("hash ring has no nodes")

type point struct {
	hash uint64
	node ServerId
}

// Ring maps keys to a replica set across a dynamic set of nodes.
type Ring struct {
	virtualNodes int

	lock   sync.RWMutex
	points []point // sorted by hash
	nodes  map[ServerId]bool
}

// NewRing creates an empty Ring with the given number of virtual nodes
// per physical node. virtualNodes <= 0 selects DefaultVirtualNodes.
func NewRing(virtualNodes int) *Ring {
	if virtualNodes <= 0 {
		virtualNodes = DefaultVirtualNodes
	}
	return &Ring{
		virtualNodes: virtualNodes,
		nodes:        make(map[ServerId]bool),
	}
}

// AddNode inserts the node's virtual points into the ring.
// Adding a node that is already present is a no-op.
func (r *Ring) AddNode(nodeId ServerId) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if r.nodes[nodeId] {
		return
	}
	r.nodes[nodeId] = true

	for i := 0; i < r.virtualNodes; i++ {
		r.points = append(r.points, point{virtualHash(nodeId, i), nodeId})
	}
	sort.Slice(r.points, func(a, b int) bool { return r.points[a].hash < r.points[b].hash })
}

// RemoveNode removes all of the node's virtual points from the ring.
func (r *Ring) RemoveNode(nodeId ServerId) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if !r.nodes[nodeId] {
		return
	}
	delete(r.nodes, nodeId)

	kept := r.points[:0]
	for _, p := range r.points {
		if p.node != nodeId {
			kept = append(kept, p)
		}
	}
	r.points = kept
}

// Nodes returns the physical nodes currently on the ring.
func (r *Ring) Nodes() []ServerId {
	r.lock.RLock()
	defer r.lock.RUnlock()

	out := make([]ServerId, 0, len(r.nodes))
	for id := range r.nodes {
		out = append(out, id)
	}
	return out
}

// NumNodes returns the number of physical nodes on the ring.
func (r *Ring) NumNodes() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.nodes)
}

// GetNode returns the node owning the given key: the first ring position
// at or after hash(key), wrapping around.
func (r *Ring) GetNode(key string) (ServerId, error) {
	nodes, err := r.GetReplicaSet(key, 1)
	if err != nil {
		return 0, err
	}
	return nodes[0], nil
}

// GetReplicaSet returns up to count distinct physical nodes for the key,
// in ring order starting from the key's position.
//
// The result is deterministic given the current ring membership.
func (r *Ring) GetReplicaSet(key string, count int) ([]ServerId, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	if len(r.points) == 0 {
		return nil, ErrEmptyRing
	}

	h := xxhash.Sum64String(key)

	// First point with hash >= h, wrapping to 0.
	start := sort.Search(len(r.points), func(i int) bool { return r.points[i].hash >= h })
	if start == len(r.points) {
		start = 0
	}

	// Walk clockwise collecting distinct physical nodes.
	replicas := make([]ServerId, 0, count)
	seen := make(map[ServerId]bool, count)
	for i := 0; i < len(r.points) && len(replicas) < count; i++ {
		p := r.points[(start+i)%len(r.points)]
		if !seen[p.node] {
			seen[p.node] = true
			replicas = append(replicas, p.node)
		}
	}
	return replicas, nil
}

// virtualHash derives the ring position of one virtual point by hashing
// the node id concatenated with the virtual index.
func virtualHash(nodeId ServerId, index int) uint64 {
	return xxhash.Sum64String(
		strconv.FormatUint(uint64(nodeId), 10) + ":" + strconv.Itoa(index),
	)
}
