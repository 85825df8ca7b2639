package config

import (
	"fmt"

	. "github.com/quorumkv/quorumkv"
)

// ClusterInfo holds the fixed server ids of a replication group and
// provides related calculations.
//
// Dynamic membership changes are out of scope: the peer set is immutable
// after construction.
type ClusterInfo struct {
	thisServerId ServerId

	// Excludes thisServerId
	peerServerIds []ServerId
}

// NewClusterInfo checks the given server ids and returns a ClusterInfo.
//
// - Server ids must be distinct and non-zero.
// - allServerIds must include thisServerId.
func NewClusterInfo(
	allServerIds []ServerId,
	thisServerId ServerId,
) (*ClusterInfo, error) {
	if allServerIds == nil {
		return nil, fmt.Errorf("allServerIds is nil")
	}
	if len(allServerIds) < 1 {
		return nil, fmt.Errorf("allServerIds must have at least 1 element")
	}
	if thisServerId == 0 {
		return nil, fmt.Errorf("thisServerId is 0")
	}

	allServerIdsMap := make(map[ServerId]bool)
	peerServerIds := make([]ServerId, 0, len(allServerIds)-1)
	for _, serverId := range allServerIds {
		if serverId == 0 {
			return nil, fmt.Errorf("allServerIds contains 0")
		}
		if allServerIdsMap[serverId] {
			return nil, fmt.Errorf("allServerIds contains duplicate value: %v", serverId)
		}
		allServerIdsMap[serverId] = true
		if serverId != thisServerId {
			peerServerIds = append(peerServerIds, serverId)
		}
	}

	if !allServerIdsMap[thisServerId] {
		return nil, fmt.Errorf("allServerIds does not contain thisServerId: %v", thisServerId)
	}

	ci := &ClusterInfo{
		thisServerId,
		peerServerIds,
	}

	return ci, nil
}

func (ci *ClusterInfo) GetThisServerId() ServerId {
	return ci.thisServerId
}

// IsPeer checks if the given server id is a peer i.e. a member of the
// cluster other than this server.
func (ci *ClusterInfo) IsPeer(serverId ServerId) bool {
	for _, peerId := range ci.peerServerIds {
		if peerId == serverId {
			return true
		}
	}
	return false
}

// ForEachPeer calls the given function for every peer server id.
// Stops at and returns the first error.
func (ci *ClusterInfo) ForEachPeer(f func(serverId ServerId) error) error {
	for _, serverId := range ci.peerServerIds {
		err := f(serverId)
		if err != nil {
			return err
		}
	}
	return nil
}

// GetClusterSize returns the number of servers in the cluster including
// this server.
func (ci *ClusterInfo) GetClusterSize() uint {
	return uint(len(ci.peerServerIds) + 1)
}

// QuorumSizeForCluster returns the quorum size for this cluster.
func (ci *ClusterInfo) QuorumSizeForCluster() uint {
	return QuorumSizeForClusterSize(ci.GetClusterSize())
}

// QuorumSizeForClusterSize is the quorum formula: floor(N/2)+1.
func QuorumSizeForClusterSize(clusterSize uint) uint {
	return (clusterSize / 2) + 1
}
