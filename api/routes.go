package api

const (
	// PingEndpoint is the endpoint for checking the API status
	PingEndpoint = "/ping"
	// MetricsEndpoint exposes the prometheus metrics
	MetricsEndpoint = "/metrics"
	// EventsEndpoint lists the journaled events, from the sequence number
	// given in the "from" query parameter
	EventsEndpoint   = "/events"
	EventsFromParam  = "from"
	EventsLimitParam = "limit"

	// URL params
	KindURLParam      = "kind"
	ElectionURLParam  = "electionId"
	CandidateURLParam = "candidateId"
	NullifierURLParam = "nullifier"

	// ElectionsEndpoint creates elections (POST) and counts them (GET). The
	// kind is either "commitreveal" or "anonymous".
	ElectionsEndpoint = "/{" + KindURLParam + "}/elections"
	// ElectionEndpoint returns the full election record
	ElectionEndpoint = ElectionsEndpoint + "/{" + ElectionURLParam + "}"
	// CandidateEndpoint returns a candidate and its tally
	CandidateEndpoint = ElectionEndpoint + "/candidates/{" + CandidateURLParam + "}"
	// ResultsEndpoint returns all the tallies of an election
	ResultsEndpoint = ElectionEndpoint + "/results"
	// EndElectionEndpoint ends an election
	EndElectionEndpoint = ElectionEndpoint + "/end"

	// CommitEndpoint submits the commitment of a commit-reveal vote
	CommitEndpoint = "/commitreveal/elections/{" + ElectionURLParam + "}/commit"
	// RevealEndpoint reveals a committed vote
	RevealEndpoint = "/commitreveal/elections/{" + ElectionURLParam + "}/reveal"
	// CastVoteEndpoint casts an anonymous vote with its proof
	CastVoteEndpoint = "/anonymous/elections/{" + ElectionURLParam + "}/votes"
	// NullifierRootEndpoint returns the root of the used nullifiers tree
	NullifierRootEndpoint = "/anonymous/elections/{" + ElectionURLParam + "}/nullifiers/root"
	// NullifierProofEndpoint returns the Merkle proof of a nullifier
	NullifierProofEndpoint = "/anonymous/elections/{" + ElectionURLParam + "}/nullifiers/{" + NullifierURLParam + "}"
)
