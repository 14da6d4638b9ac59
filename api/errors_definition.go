//nolint:lll
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"

	"github.com/vocdoni/ballotbox/election"
)

// The custom Error type satisfies the error interface.
// Error() returns a human-readable description of the error.
//
// Error codes in the 40001-49999 range are the user's fault,
// and they return HTTP Status 400, 403, 404 or 409, whatever is most appropriate.
//
// Error codes 50001-59999 are the server's fault
// and they return HTTP Status 500 or 503, or something else if appropriate.
//
// NEVER change any of the current error codes, only append new errors after the current last 4XXX or 5XXX
// If you notice there's a gap (say, error code 4010, 4011 and 4013 exist, 4012 is missing) DON'T fill in the gap,
// that code was used in the past for some error (not anymore) and shouldn't be reused.
// There's no correlation between Code and HTTP Status.
var (
	ErrResourceNotFound        = Error{Code: 40001, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("resource not found")}
	ErrMalformedBody           = Error{Code: 40004, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed JSON body")}
	ErrInvalidSignature        = Error{Code: 40005, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("invalid signature")}
	ErrMalformedElectionID     = Error{Code: 40008, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed election ID")}
	ErrUnknownKind             = Error{Code: 40009, HTTPstatus: http.StatusNotFound, Err: fmt.Errorf("unknown election kind")}
	ErrMalformedCandidateID    = Error{Code: 40010, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed candidate ID")}
	ErrMalformedParam          = Error{Code: 40011, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed parameter")}
	ErrPayloadMismatch         = Error{Code: 40012, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("signed payload does not match the request")}
	ErrInvalidTimeWindow       = Error{Code: 40013, HTTPstatus: http.StatusBadRequest, Err: election.ErrInvalidTimeWindow}
	ErrInsufficientCandidates  = Error{Code: 40014, HTTPstatus: http.StatusBadRequest, Err: election.ErrInsufficientCandidates}
	ErrTooManyCandidates       = Error{Code: 40015, HTTPstatus: http.StatusBadRequest, Err: election.ErrTooManyCandidates}
	ErrInvalidCandidateInfo    = Error{Code: 40016, HTTPstatus: http.StatusBadRequest, Err: election.ErrInvalidCandidateInfo}
	ErrElectionNotOpen         = Error{Code: 40017, HTTPstatus: http.StatusConflict, Err: election.ErrElectionNotOpen}
	ErrDuplicateCommitment     = Error{Code: 40018, HTTPstatus: http.StatusConflict, Err: election.ErrDuplicateCommitment}
	ErrNullifierReused         = Error{Code: 40019, HTTPstatus: http.StatusConflict, Err: election.ErrNullifierReused}
	ErrCommitmentMismatch      = Error{Code: 40020, HTTPstatus: http.StatusBadRequest, Err: election.ErrCommitmentMismatch}
	ErrAlreadyRevealed         = Error{Code: 40021, HTTPstatus: http.StatusConflict, Err: election.ErrAlreadyRevealed}
	ErrCandidateOutOfRange     = Error{Code: 40022, HTTPstatus: http.StatusBadRequest, Err: election.ErrCandidateOutOfRange}
	ErrUnauthorized            = Error{Code: 40023, HTTPstatus: http.StatusForbidden, Err: election.ErrUnauthorized}
	ErrTooEarly                = Error{Code: 40024, HTTPstatus: http.StatusConflict, Err: election.ErrTooEarly}
	ErrAlreadyEnded            = Error{Code: 40025, HTTPstatus: http.StatusConflict, Err: election.ErrAlreadyEnded}
	ErrInvalidProof            = Error{Code: 40026, HTTPstatus: http.StatusBadRequest, Err: election.ErrInvalidProof}
	ErrElectionNotFound        = Error{Code: 40027, HTTPstatus: http.StatusNotFound, Err: election.ErrNotFound}
	ErrMalformedNullifier      = Error{Code: 40028, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed nullifier")}
	ErrMalformedCommitmentData = Error{Code: 40029, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("malformed commitment or blinding factor")}
	ErrRequestExpired          = Error{Code: 40030, HTTPstatus: http.StatusBadRequest, Err: fmt.Errorf("signed request deadline out of range")}
	ErrNonceReused             = Error{Code: 40031, HTTPstatus: http.StatusConflict, Err: fmt.Errorf("request nonce already used")}

	ErrMarshalingServerJSONFailed = Error{Code: 50001, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("marshaling (server-side) JSON failed")}
	ErrGenericInternalServerError = Error{Code: 50002, HTTPstatus: http.StatusInternalServerError, Err: fmt.Errorf("internal server error")}
)

// ledgerErrors maps the election failures to their API errors. Order
// matters: an unknown election on a vote path is both not open and not
// found, and is reported as not open.
var ledgerErrors = []Error{
	ErrInvalidTimeWindow,
	ErrInsufficientCandidates,
	ErrTooManyCandidates,
	ErrInvalidCandidateInfo,
	ErrElectionNotOpen,
	ErrDuplicateCommitment,
	ErrNullifierReused,
	ErrCommitmentMismatch,
	ErrAlreadyRevealed,
	ErrCandidateOutOfRange,
	ErrUnauthorized,
	ErrTooEarly,
	ErrAlreadyEnded,
	ErrInvalidProof,
	ErrElectionNotFound,
}

// ledgerError returns the API error of an election failure. The message is
// the one of err, so the context added by the ledger is kept.
func ledgerError(err error) Error {
	for _, e := range ledgerErrors {
		if errors.Is(err, e.Err) {
			return Error{Err: err, Code: e.Code, HTTPstatus: e.HTTPstatus}
		}
	}
	return ErrGenericInternalServerError.WithErr(err)
}

// requestErrors are the failures of malformed requests.
var requestErrors = []Error{
	ErrResourceNotFound,
	ErrMalformedBody,
	ErrInvalidSignature,
	ErrMalformedElectionID,
	ErrUnknownKind,
	ErrMalformedCandidateID,
	ErrMalformedParam,
	ErrPayloadMismatch,
	ErrMalformedNullifier,
	ErrMalformedCommitmentData,
	ErrRequestExpired,
	ErrNonceReused,
}

// ErrorFromResponse rebuilds the API error of a failed response body. The
// known codes keep their sentinel, so the ledger failures can be matched
// with errors.Is by the clients.
func ErrorFromResponse(status int, body []byte) error {
	resp := struct {
		Err  string `json:"error"`
		Code int    `json:"code"`
	}{}
	if err := json.Unmarshal(body, &resp); err != nil || resp.Code == 0 {
		return fmt.Errorf("API error: %d (%s)", status, body)
	}
	for _, e := range slices.Concat(ledgerErrors, requestErrors) {
		if e.Code == resp.Code {
			msg := strings.TrimPrefix(strings.TrimPrefix(resp.Err, e.Err.Error()), ": ")
			if msg == "" {
				return e
			}
			return e.With(msg)
		}
	}
	return Error{Err: errors.New(resp.Err), Code: resp.Code, HTTPstatus: status}
}
