package api

import (
	"net/http"

	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/types"
)

// newElection creates a new election
// POST /{kind}/elections
func (a *API) newElection(w http.ResponseWriter, r *http.Request) {
	kind, err := urlKind(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	p := &CreateElection{}
	caller, err := a.decodeSigned(r, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	if p.Action != ActionCreate {
		ErrPayloadMismatch.Withf("action %q, expected %q", p.Action, ActionCreate).Write(w)
		return
	}

	var id uint64
	switch kind {
	case types.KindCommitReveal:
		id, err = a.commitReveal.CreateElection(caller, p.Name, p.Description,
			p.StartTime, p.EndTime, p.CandidateNames, p.CandidateInfos)
	case types.KindAnonymous:
		id, err = a.anonymous.CreateElection(caller, p.Name, p.StartTime, p.EndTime, p.CandidateCount)
	}
	if err != nil {
		writeErr(w, err)
		return
	}
	log.Infow("new election", "kind", kind.String(), "electionId", id, "creator", caller.Hex())
	httpWriteJSON(w, &CreateElectionResponse{ElectionID: id})
}

// electionCount returns the number of elections of a kind
// GET /{kind}/elections
func (a *API) electionCount(w http.ResponseWriter, r *http.Request) {
	reg, err := a.registry(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	count, err := reg.ElectionCount()
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, &ElectionCount{Count: count})
}

// election returns the full election record
// GET /{kind}/elections/{electionId}
func (a *API) election(w http.ResponseWriter, r *http.Request) {
	reg, err := a.registry(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	e, err := reg.Election(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, e)
}

// candidate returns a candidate of an election and its tally
// GET /{kind}/elections/{electionId}/candidates/{candidateId}
func (a *API) candidate(w http.ResponseWriter, r *http.Request) {
	reg, err := a.registry(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	cid, err := urlUint64(r, CandidateURLParam, ErrMalformedCandidateID)
	if err != nil {
		writeErr(w, err)
		return
	}
	c, err := reg.Candidate(id, cid)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, c)
}

// results returns the tallies of an election
// GET /{kind}/elections/{electionId}/results
func (a *API) results(w http.ResponseWriter, r *http.Request) {
	reg, err := a.registry(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	res, err := reg.Results(id)
	if err != nil {
		writeErr(w, err)
		return
	}
	httpWriteJSON(w, res)
}

// endElection ends an election, only its creator can do it
// POST /{kind}/elections/{electionId}/end
func (a *API) endElection(w http.ResponseWriter, r *http.Request) {
	reg, err := a.registry(r)
	if err != nil {
		writeErr(w, err)
		return
	}
	id, err := urlUint64(r, ElectionURLParam, ErrMalformedElectionID)
	if err != nil {
		writeErr(w, err)
		return
	}
	p := &EndElection{}
	caller, err := a.decodeSigned(r, p)
	if err != nil {
		writeErr(w, err)
		return
	}
	if err := checkPayload(p.Action, ActionEnd, p.ElectionID, id); err != nil {
		writeErr(w, err)
		return
	}
	if p.Kind != reg.Kind().String() {
		ErrPayloadMismatch.Withf("kind %q, expected %q", p.Kind, reg.Kind().String()).Write(w)
		return
	}
	if err := reg.EndElection(caller, id); err != nil {
		writeErr(w, err)
		return
	}
	httpWriteOK(w)
}
