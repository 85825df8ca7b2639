package internal

import (
	. "github.com/quorumkv/quorumkv"
)

// SendOnlyRpcAppendEntriesAsync is equivalent to an async
// RpcService.RpcAppendEntries().
type SendOnlyRpcAppendEntriesAsync func(toServer ServerId, rpc *RpcAppendEntries)

// SendOnlyRpcRequestVoteAsync is equivalent to an async
// RpcService.RpcRequestVote().
type SendOnlyRpcRequestVoteAsync func(toServer ServerId, rpc *RpcRequestVote)
