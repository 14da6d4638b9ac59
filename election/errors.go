package election

import "errors"

// The failures of the election ledger. Every failed operation returns one
// of them, possibly wrapped with more context, and leaves the ledger
// untouched. Match them with errors.Is.
var (
	ErrInvalidTimeWindow      = errors.New("start time must be earlier than end time")
	ErrInsufficientCandidates = errors.New("at least two candidates are required")
	ErrTooManyCandidates      = errors.New("too many candidates")
	ErrInvalidCandidateInfo   = errors.New("candidate infos do not match candidate names")
	ErrElectionNotOpen        = errors.New("election does not exist or is not open")
	ErrDuplicateCommitment    = errors.New("commitment hash already used")
	ErrNullifierReused        = errors.New("nullifier already used")
	ErrCommitmentMismatch     = errors.New("commitment does not match")
	ErrAlreadyRevealed        = errors.New("vote already revealed")
	ErrCandidateOutOfRange    = errors.New("candidate out of range")
	ErrUnauthorized           = errors.New("only the creator can end the election")
	ErrTooEarly               = errors.New("voting period has not ended yet")
	ErrAlreadyEnded           = errors.New("election already ended")
	ErrInvalidProof           = errors.New("invalid proof")
	ErrNotFound               = errors.New("not found")
)

var errorNames = []struct {
	err  error
	name string
}{
	{ErrInvalidTimeWindow, "InvalidTimeWindow"},
	{ErrInsufficientCandidates, "InsufficientCandidates"},
	{ErrTooManyCandidates, "TooManyCandidates"},
	{ErrInvalidCandidateInfo, "InvalidCandidateInfo"},
	// checked before NotFound, unknown elections on the vote paths wrap both
	{ErrElectionNotOpen, "ElectionNotOpen"},
	{ErrDuplicateCommitment, "DuplicateCommitment"},
	{ErrNullifierReused, "NullifierReused"},
	{ErrCommitmentMismatch, "CommitmentMismatch"},
	{ErrAlreadyRevealed, "AlreadyRevealed"},
	{ErrCandidateOutOfRange, "CandidateOutOfRange"},
	{ErrUnauthorized, "Unauthorized"},
	{ErrTooEarly, "TooEarly"},
	{ErrAlreadyEnded, "AlreadyEnded"},
	{ErrInvalidProof, "InvalidProof"},
	{ErrNotFound, "NotFound"},
}

// ErrorName returns the name of the failure kind of err, or "Internal" if
// err is not one of the ledger failures.
func ErrorName(err error) string {
	for _, e := range errorNames {
		if errors.Is(err, e.err) {
			return e.name
		}
	}
	return "Internal"
}
