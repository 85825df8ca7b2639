package candidate_test

import (
	"testing"

	. "github.com/quorumkv/quorumkv"
	"github.com/quorumkv/quorumkv/config"
	"github.com/quorumkv/quorumkv/consensus/candidate"
	"github.com/quorumkv/quorumkv/testdata"
)

func TestCandidateVolatileState(t *testing.T) {
	ci, err := config.NewClusterInfo(
		testdata.AllServerIds,
		testdata.ThisServerId,
	)
	if err != nil {
		t.Fatal(err)
	}
	cvs, err := candidate.NewCandidateVolatileState(ci)
	if err != nil {
		t.Fatal(err)
	}

	addVote := func(peerId ServerId, granted bool) bool {
		won, err := cvs.AddVote(peerId, granted)
		if err != nil {
			t.Fatal(err)
		}
		return won
	}

	// Add a vote - no quorum yet
	if addVote(102, true) {
		t.Fatal()
	}

	// Duplicate vote - no error and no quorum yet
	if addVote(102, true) {
		t.Fatal()
	}

	// Deny vote - still no quorum
	if addVote(103, false) {
		t.Fatal()
	}

	// Another vote - should reach quorum
	if !addVote(104, true) {
		t.Fatal()
	}

	// Last vote - stays at quorum
	if !addVote(105, false) {
		t.Fatal()
	}

	// Another duplicate vote - no error and stay at quorum
	if !addVote(103, true) {
		t.Fatal()
	}
}

func TestCandidateVolatileState_3nodes(t *testing.T) {
	ci, err := config.NewClusterInfo([]ServerId{501, 502, 503}, 501)
	if err != nil {
		t.Fatal(err)
	}
	cvs, err := candidate.NewCandidateVolatileState(ci)
	if err != nil {
		t.Fatal(err)
	}

	// One granted peer vote plus the self-vote is quorum for 3 nodes.
	won, err := cvs.AddVote(503, true)
	if err != nil {
		t.Fatal(err)
	}
	if !won {
		t.Fatal()
	}
	won, err = cvs.AddVote(502, true)
	if err != nil {
		t.Fatal(err)
	}
	if !won {
		t.Fatal()
	}
}

func TestCandidateVolatileState_VoteFromNonMemberIsAnError(t *testing.T) {
	ci, err := config.NewClusterInfo([]ServerId{501, 502, 503}, 501)
	if err != nil {
		t.Fatal(err)
	}
	cvs, err := candidate.NewCandidateVolatileState(ci)
	if err != nil {
		t.Fatal(err)
	}

	_, err = cvs.AddVote(504, true)
	if err == nil || err.Error() != "CandidateVolatileState.AddVote(): unknown peer: 504" {
		t.Fatal(err)
	}
}
