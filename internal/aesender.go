package internal

import (
	. "github.com/quorumkv/quorumkv"
)

// IAppendEntriesSender is responsible for constructing and sending an
// RpcAppendEntries to the given peer.
//
// Concurrency: the consensus core only ever makes one call at a time to
// this interface.
type IAppendEntriesSender interface {
	// SendAppendEntriesToPeerAsync constructs and sends an
	// RpcAppendEntries for the given peer.
	//
	// The sending of the RpcAppendEntries must be asynchronous.
	SendAppendEntriesToPeerAsync(params SendAppendEntriesParams) error
}

// SendAppendEntriesParams are the parameters for
// IAppendEntriesSender.SendAppendEntriesToPeerAsync.
type SendAppendEntriesParams struct {
	PeerId        ServerId
	PeerNextIndex LogIndex
	Empty         bool
	CurrentTerm   TermNo
	CommitIndex   LogIndex
}
