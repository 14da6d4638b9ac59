package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/vocdoni/ballotbox/api"
	"github.com/vocdoni/ballotbox/crypto/ballot"
	"github.com/vocdoni/ballotbox/crypto/ethereum"
	"github.com/vocdoni/ballotbox/election"
	"github.com/vocdoni/ballotbox/state"
	"github.com/vocdoni/ballotbox/types"
	"github.com/vocdoni/ballotbox/util"
)

// DefaultRequestLifetime is the deadline SignRequest gives to a payload
// without one.
const DefaultRequestLifetime = 5 * time.Minute

// SignRequest marshals payload and signs it with key, ready to be sent to
// any of the signed endpoints. A missing nonce is filled with random bytes
// and a missing deadline with DefaultRequestLifetime from now.
func SignRequest(key *ethereum.SignKeys, payload api.SignedPayload) (*api.SignedRequest, error) {
	guard := payload.Guard()
	if len(guard.Nonce) == 0 {
		guard.Nonce = util.RandomBytes(16)
	}
	if guard.Deadline == 0 {
		guard.Deadline = time.Now().Add(DefaultRequestLifetime).Unix()
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}
	sig, err := key.SignEthereum(data)
	if err != nil {
		return nil, fmt.Errorf("failed to sign payload: %w", err)
	}
	return &api.SignedRequest{Payload: data, Signature: sig}, nil
}

// do sends the request and decodes the JSON response into out, if not nil.
// Failed requests return the API error, so errors.Is works with the
// election errors.
func (c *HTTPclient) do(method string, body, out any, params []string, urlPath ...string) error {
	data, status, err := c.Request(method, body, params, urlPath...)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return api.ErrorFromResponse(status, data)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func (c *HTTPclient) signed(key *ethereum.SignKeys, payload api.SignedPayload, out any, urlPath ...string) error {
	req, err := SignRequest(key, payload)
	if err != nil {
		return err
	}
	return c.do(HTTPPOST, req, out, nil, urlPath...)
}

func electionsPath(kind types.Kind) string {
	return "/" + kind.String() + "/elections"
}

func electionPath(kind types.Kind, id uint64) string {
	return electionsPath(kind) + "/" + strconv.FormatUint(id, 10)
}

// CreateCommitRevealElection creates a commit-reveal election signed by key
// and returns its id.
func (c *HTTPclient) CreateCommitRevealElection(key *ethereum.SignKeys, name, description string,
	startTime, endTime int64, names, infos []string,
) (uint64, error) {
	resp := &api.CreateElectionResponse{}
	err := c.signed(key, &api.CreateElection{
		Action:         api.ActionCreate,
		Name:           name,
		Description:    description,
		StartTime:      startTime,
		EndTime:        endTime,
		CandidateNames: names,
		CandidateInfos: infos,
	}, resp, electionsPath(types.KindCommitReveal))
	return resp.ElectionID, err
}

// CreateAnonymousElection creates an anonymous election signed by key and
// returns its id.
func (c *HTTPclient) CreateAnonymousElection(key *ethereum.SignKeys, name string,
	startTime, endTime int64, candidateCount uint64,
) (uint64, error) {
	resp := &api.CreateElectionResponse{}
	err := c.signed(key, &api.CreateElection{
		Action:         api.ActionCreate,
		Name:           name,
		StartTime:      startTime,
		EndTime:        endTime,
		CandidateCount: candidateCount,
	}, resp, electionsPath(types.KindAnonymous))
	return resp.ElectionID, err
}

// EndElection ends the election, key must belong to its creator.
func (c *HTTPclient) EndElection(key *ethereum.SignKeys, kind types.Kind, id uint64) error {
	return c.signed(key, &api.EndElection{
		Action:     api.ActionEnd,
		Kind:       kind.String(),
		ElectionID: id,
	}, nil, electionPath(kind, id), "end")
}

// Commit submits the commitment of a vote.
func (c *HTTPclient) Commit(key *ethereum.SignKeys, id uint64, commitment common.Hash) error {
	return c.signed(key, &api.Commit{
		Action:     api.ActionCommit,
		ElectionID: id,
		Commitment: commitment.Bytes(),
	}, nil, electionPath(types.KindCommitReveal, id), "commit")
}

// Reveal opens the vote committed by key.
func (c *HTTPclient) Reveal(key *ethereum.SignKeys, id, candidateID uint64, blinding [ballot.BlindingSize]byte) error {
	return c.signed(key, &api.Reveal{
		Action:      api.ActionReveal,
		ElectionID:  id,
		CandidateID: candidateID,
		Blinding:    blinding[:],
	}, nil, electionPath(types.KindCommitReveal, id), "reveal")
}

// CommitVote computes the commitment of the choice with a fresh blinding
// factor and submits it. The blinding factor must be kept to reveal.
func (c *HTTPclient) CommitVote(key *ethereum.SignKeys, id, candidateID uint64) ([ballot.BlindingSize]byte, error) {
	blinding := ballot.NewBlinding()
	return blinding, c.Commit(key, id, ballot.Commitment(candidateID, blinding))
}

// CastVote casts an anonymous vote.
func (c *HTTPclient) CastVote(id, candidateID uint64, nullifier common.Hash, proof []byte) error {
	return c.do(HTTPPOST, &api.CastVote{
		CandidateID: candidateID,
		Nullifier:   nullifier.Bytes(),
		Proof:       proof,
	}, nil, nil, electionPath(types.KindAnonymous, id), "votes")
}

// ElectionCount returns the number of elections of the kind.
func (c *HTTPclient) ElectionCount(kind types.Kind) (uint64, error) {
	resp := &api.ElectionCount{}
	err := c.do(HTTPGET, nil, resp, nil, electionsPath(kind))
	return resp.Count, err
}

// Election returns the election record.
func (c *HTTPclient) Election(kind types.Kind, id uint64) (*types.Election, error) {
	e := &types.Election{}
	if err := c.do(HTTPGET, nil, e, nil, electionPath(kind, id)); err != nil {
		return nil, err
	}
	return e, nil
}

// Candidate returns a candidate of the election.
func (c *HTTPclient) Candidate(kind types.Kind, id, candidateID uint64) (*types.Candidate, error) {
	cand := &types.Candidate{}
	if err := c.do(HTTPGET, nil, cand, nil, electionPath(kind, id), "candidates",
		strconv.FormatUint(candidateID, 10)); err != nil {
		return nil, err
	}
	return cand, nil
}

// Results returns the tallies of the election.
func (c *HTTPclient) Results(kind types.Kind, id uint64) (*election.Results, error) {
	res := &election.Results{}
	if err := c.do(HTTPGET, nil, res, nil, electionPath(kind, id), "results"); err != nil {
		return nil, err
	}
	return res, nil
}

// NullifierRoot returns the root of the used nullifiers of the election.
func (c *HTTPclient) NullifierRoot(id uint64) (types.HexBytes, error) {
	resp := &api.NullifierRoot{}
	err := c.do(HTTPGET, nil, resp, nil, electionPath(types.KindAnonymous, id), "nullifiers", "root")
	return resp.Root, err
}

// NullifierProof returns the Merkle proof of a used nullifier.
func (c *HTTPclient) NullifierProof(id uint64, nullifier common.Hash) (*state.Proof, error) {
	proof := &state.Proof{}
	if err := c.do(HTTPGET, nil, proof, nil, electionPath(types.KindAnonymous, id),
		"nullifiers", nullifier.Hex()); err != nil {
		return nil, err
	}
	return proof, nil
}

// Events returns up to limit journaled events, starting at sequence from.
func (c *HTTPclient) Events(from uint64, limit int) (*api.Events, error) {
	params := []string{api.EventsFromParam, strconv.FormatUint(from, 10)}
	if limit > 0 {
		params = append(params, api.EventsLimitParam, strconv.Itoa(limit))
	}
	evs := &api.Events{}
	if err := c.do(HTTPGET, nil, evs, params, api.EventsEndpoint); err != nil {
		return nil, err
	}
	return evs, nil
}
