// Package aesender constructs AppendEntries RPCs from the replicated log.
package aesender

import (
	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/internal"
)

// LogOnlyAESender is an implementation of IAppendEntriesSender that can
// only construct RpcAppendEntries from the log. It is unable to handle
// log compaction snapshots.
type LogOnlyAESender struct {
	logRO                         internal.LogTailOnlyRO
	sendOnlyRpcAppendEntriesAsync internal.SendOnlyRpcAppendEntriesAsync
}

func NewLogOnlyAESender(
	logRO internal.LogTailOnlyRO,
	sendOnlyRpcAppendEntriesAsync internal.SendOnlyRpcAppendEntriesAsync,
) internal.IAppendEntriesSender {
	return &LogOnlyAESender{logRO, sendOnlyRpcAppendEntriesAsync}
}

func (s *LogOnlyAESender) SendAppendEntriesToPeerAsync(
	params internal.SendAppendEntriesParams,
) error {
	peerLastLogIndex := params.PeerNextIndex - 1

	var peerLastLogTerm TermNo
	if peerLastLogIndex == 0 {
		peerLastLogTerm = 0
	} else {
		var err error
		peerLastLogTerm, err = s.logRO.GetTermAtIndex(peerLastLogIndex)
		if err != nil {
			return err
		}
	}

	var entriesToSend []LogEntry
	if params.Empty {
		entriesToSend = []LogEntry{}
	} else {
		var err error
		entriesToSend, err = s.logRO.GetEntriesAfterIndex(peerLastLogIndex)
		if err != nil {
			return err
		}
	}

	rpcAppendEntries := &RpcAppendEntries{Term: params.CurrentTerm, PrevLogIndex: peerLastLogIndex, PrevLogTerm: peerLastLogTerm, Entries: entriesToSend, LeaderCommit: params.CommitIndex}
	s.sendOnlyRpcAppendEntriesAsync(params.PeerId, rpcAppendEntries)
	return nil
}
