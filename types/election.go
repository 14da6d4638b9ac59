package types

import (
	"encoding/json"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/fxamacker/cbor/v2"
)

var (
	cborEncMode, _ = cbor.CoreDetEncOptions().EncMode()
	cborDecMode, _ = cbor.DecOptions{}.DecMode()
)

// Kind identifies the voting protocol of an election. Each kind keeps its
// own sequence of election identifiers.
type Kind uint8

const (
	// KindCommitReveal elections hide the vote choice behind a commitment
	// hash until it is revealed.
	KindCommitReveal Kind = iota + 1
	// KindAnonymous elections accept one vote per nullifier, backed by a
	// zero-knowledge proof.
	KindAnonymous
)

// String returns the name used for the kind in URLs and storage keys.
func (k Kind) String() string {
	switch k {
	case KindCommitReveal:
		return "commitreveal"
	case KindAnonymous:
		return "anonymous"
	default:
		return "unknown"
	}
}

// KindFromString parses the name returned by Kind.String.
func KindFromString(s string) (Kind, bool) {
	switch s {
	case KindCommitReveal.String():
		return KindCommitReveal, true
	case KindAnonymous.String():
		return KindAnonymous, true
	default:
		return 0, false
	}
}

// Candidate is an option of an election. Candidate IDs start at 1.
type Candidate struct {
	ID        uint64 `json:"id"                cbor:"0,keyasint,omitempty"`
	Name      string `json:"name"              cbor:"1,keyasint,omitempty"`
	Info      string `json:"info,omitempty"    cbor:"2,keyasint,omitempty"`
	VoteCount uint64 `json:"voteCount"         cbor:"3,keyasint,omitempty"`
}

// Election is the ledger record of an election. The identifier, time window
// and candidate list never change after creation; only the tallies and the
// active flag do.
type Election struct {
	ID          uint64         `json:"id"                    cbor:"0,keyasint,omitempty"`
	Kind        Kind           `json:"kind"                  cbor:"1,keyasint,omitempty"`
	Name        string         `json:"name"                  cbor:"2,keyasint,omitempty"`
	Description string         `json:"description,omitempty" cbor:"3,keyasint,omitempty"`
	StartTime   int64          `json:"startTime"             cbor:"4,keyasint,omitempty"`
	EndTime     int64          `json:"endTime"               cbor:"5,keyasint,omitempty"`
	Creator     common.Address `json:"creator"               cbor:"6,keyasint,omitempty"`
	IsActive    bool           `json:"isActive"              cbor:"7,keyasint,omitempty"`
	Candidates  []Candidate    `json:"candidates"            cbor:"8,keyasint,omitempty"`
}

// InWindow reports whether t falls within [StartTime, EndTime].
func (e *Election) InWindow(t time.Time) bool {
	now := t.Unix()
	return now >= e.StartTime && now <= e.EndTime
}

// Candidate returns a pointer to the candidate with the given 1-based id, or
// nil if it is out of range.
func (e *Election) Candidate(id uint64) *Candidate {
	if id == 0 || id > uint64(len(e.Candidates)) {
		return nil
	}
	return &e.Candidates[id-1]
}

// TotalVotes returns the sum of all candidate tallies.
func (e *Election) TotalVotes() uint64 {
	var total uint64
	for _, c := range e.Candidates {
		total += c.VoteCount
	}
	return total
}

func (e *Election) String() string {
	data, err := json.Marshal(e)
	if err != nil {
		return ""
	}
	return string(data)
}

// PublicInputs are the values a vote proof of an anonymous election is
// bound to. They are field elements of the proving system.
type PublicInputs struct {
	ElectionID  *BigInt  `json:"electionId"`
	CandidateID *BigInt  `json:"candidateId"`
	Nullifier   HexBytes `json:"nullifier"`
}
