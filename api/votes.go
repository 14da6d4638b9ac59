package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/ballotbox/types"
)

// commit submits the commitment of a vote
// POST /commitreveal/elections/{electionId}/commit
func (a *API) commit(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	p := &Commit{}
	caller, err := a.decodeSigned(r, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := checkPayload(p.Action, ActionCommit, p.ElectionID, id); err != nil {
		writeErr(w, err)
		return
	}
	commitment, err := bytes32(p.Commitment, ErrMalformedCommitmentData)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := a.commitReveal.Vote(caller, id, commitment); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}

// reveal opens a committed vote and counts it
// POST /commitreveal/elections/{electionId}/reveal
func (a *API) reveal(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	p := &Reveal{}
	caller, err := a.decodeSigned(r, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := checkPayload(p.Action, ActionReveal, p.ElectionID, id); err != nil {
		writeErr(w, err)
		return
	}
	blinding, err := p.Blinding.Bytes32()
	if err != nil {
		ErrMalformedCommitmentData.WithErr(err).Write(w)
		return
	}
	if err := a.commitReveal.RevealVote(caller, id, p.CandidateID, blinding); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}

// castVote casts an anonymous vote
// POST /anonymous/elections/{electionId}/votes
func (a *API) castVote(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	v := &CastVote{}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		ErrMalformedBody.Withf("could not decode request body: %v", err).Write(w)
		return
	}
	nullifier, err := bytes32(v.Nullifier, ErrMalformedNullifier)
	if err != nil {
		writeErr(w, err)
		return
	}
	// anonymous votes carry no identity
	if err := a.anonymous.CastVoteWithZKProof(anonymousCaller, id, v.CandidateID, nullifier, v.Proof); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}

// nullifierRoot returns the root of the used nullifiers tree
// GET /anonymous/elections/{electionId}/nullifiers/root
func (a *API) nullifierRoot(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	root, err := a.anonymous.NullifierRoot(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &NullifierRoot{ElectionID: id, Root: root})
}

// nullifierProof returns the Merkle proof of a nullifier
// GET /anonymous/elections/{electionId}/nullifiers/{nullifier}
func (a *API) nullifierProof(w http.ResponseWriter, r *http.Request) {
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	hb, err := types.HexStringToHexBytes(chi.URLParam(r, NullifierURLParam))
	if err != nil {
		ErrMalformedNullifier.WithErr(err).Write(w)
		return
	}
	nullifier, err := bytes32(hb, ErrMalformedNullifier)
	if err != nil {
		writeErr(w, err)
		return
	}
	proof, err := a.anonymous.NullifierProof(id, nullifier)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, proof)
}
