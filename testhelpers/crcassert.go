package testhelpers

import (
	. "github.com/quorumkv/quorumkv"
)

func AssertWillBlock(crc <-chan CommandResult) {
	select {
	case _, ok := <-crc:
		if ok {
			panic("channel should block but has value")
		} else {
			panic("channel should block but is closed")
		}
	default:
	}
}

func AssertIsClosed(crc <-chan CommandResult) {
	select {
	case _, ok := <-crc:
		if ok {
			panic("channel should be closed but has value")
		}
	default:
		panic("channel should be closed but is not")
	}
}

func GetCommandResult(crc <-chan CommandResult) CommandResult {
	select {
	case cr, ok := <-crc:
		if !ok {
			panic("channel should have value but is closed")
		}
		return cr
	default:
		panic("channel should have value but does not")
	}
}
