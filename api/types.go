package api

import (
	"encoding/json"

	"github.com/vocdoni/ballotbox/types"
)

// Actions of the signed requests. The action is part of the signed payload,
// so a signature is only valid for the operation it was made for.
const (
	ActionCreate = "create"
	ActionEnd    = "end"
	ActionCommit = "commit"
	ActionReveal = "reveal"
)

// SignedRequest wraps the JSON payload of a mutating request with the
// Ethereum signature (EIP-191) of the exact payload bytes. The address that
// signed it is the caller of the operation.
type SignedRequest struct {
	Payload   json.RawMessage `json:"payload"`
	Signature types.HexBytes  `json:"signature"`
}

// ReplayGuard is part of every signed payload. The nonce can be used once by
// each signer and the request is refused after the deadline (unix seconds),
// so a captured request cannot be submitted again.
type ReplayGuard struct {
	Nonce    types.HexBytes `json:"nonce"`
	Deadline int64          `json:"deadline"`
}

// Guard returns the replay guard of the payload.
func (g *ReplayGuard) Guard() *ReplayGuard {
	return g
}

// SignedPayload is implemented by the payloads of the signed requests.
type SignedPayload interface {
	Guard() *ReplayGuard
}

// CreateElection is the payload to create an election. Commit-reveal
// elections use the candidate names and infos, anonymous elections the
// candidate count.
type CreateElection struct {
	ReplayGuard
	Action         string   `json:"action"`
	Name           string   `json:"name"`
	Description    string   `json:"description,omitempty"`
	StartTime      int64    `json:"startTime"`
	EndTime        int64    `json:"endTime"`
	CandidateNames []string `json:"candidateNames,omitempty"`
	CandidateInfos []string `json:"candidateInfos,omitempty"`
	CandidateCount uint64   `json:"candidateCount,omitempty"`
}

// CreateElectionResponse is the response to an election creation.
type CreateElectionResponse struct {
	ElectionID uint64 `json:"electionId"`
}

// EndElection is the payload to end an election.
type EndElection struct {
	ReplayGuard
	Action     string `json:"action"`
	Kind       string `json:"kind"`
	ElectionID uint64 `json:"electionId"`
}

// Commit is the payload of a commit-reveal vote.
type Commit struct {
	ReplayGuard
	Action     string         `json:"action"`
	ElectionID uint64         `json:"electionId"`
	Commitment types.HexBytes `json:"commitment"`
}

// Reveal is the payload that reveals a committed vote.
type Reveal struct {
	ReplayGuard
	Action      string         `json:"action"`
	ElectionID  uint64         `json:"electionId"`
	CandidateID uint64         `json:"candidateId"`
	Blinding    types.HexBytes `json:"blinding"`
}

// CastVote is an anonymous vote. It is not signed, the proof and the
// nullifier authorize it.
type CastVote struct {
	CandidateID uint64         `json:"candidateId"`
	Nullifier   types.HexBytes `json:"nullifier"`
	Proof       types.HexBytes `json:"proof"`
}

// ElectionCount is the response to an election count request.
type ElectionCount struct {
	Count uint64 `json:"count"`
}

// NullifierRoot is the root of the used nullifiers tree of an election.
type NullifierRoot struct {
	ElectionID uint64         `json:"electionId"`
	Root       types.HexBytes `json:"root"`
}

// Events is a page of the event journal.
type Events struct {
	Events  []*types.Event `json:"events"`
	LastSeq uint64         `json:"lastSeq"`
}
