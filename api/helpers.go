package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/go-chi/chi/v5"
	"github.com/vocdoni/ballotbox/crypto/ethereum"
	"github.com/vocdoni/ballotbox/log"
	"github.com/vocdoni/ballotbox/storage"
	"github.com/vocdoni/ballotbox/types"
)

// httpWriteJSON helper function allows to write a JSON response.
func httpWriteJSON(w http.ResponseWriter, data any) {
	jdata, err := json.Marshal(data)
	if err != nil {
		ErrMarshalingServerJSONFailed.WithErr(err).Write(w)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	n, err := w.Write(jdata)
	if err != nil {
		log.Warnw("failed to write http response", "error", err)
	}
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
	log.Debugw("api response", "bytes", n, "data", strings.ReplaceAll(string(jdata), "\"", ""))
}

// httpWriteOK helper function allows to write an OK response.
func httpWriteOK(w http.ResponseWriter) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("\n")); err != nil {
		log.Warnw("failed to write on response", "error", err)
	}
}

// urlKind parses the election kind URL param.
func urlKind(r *http.Request) (types.Kind, error) {
	kind, ok := types.KindFromString(chi.URLParam(r, KindURLParam))
	if !ok {
		return 0, ErrUnknownKind.With(chi.URLParam(r, KindURLParam))
	}
	return kind, nil
}

// urlUint64 parses a positive integer URL param.
func urlUint64(r *http.Request, param string, apiErr Error) (uint64, error) {
	v, err := strconv.ParseUint(chi.URLParam(r, param), 10, 64)
	if err != nil || v == 0 {
		return 0, apiErr.With(chi.URLParam(r, param))
	}
	return v, nil
}

// MaxRequestLifetime is how far in the future the deadline of a signed
// request may be.
const MaxRequestLifetime = time.Hour

// decodeSigned decodes a signed request into payload and returns the
// address that signed it. The replay guard of the payload is checked and its
// nonce consumed, even if the operation fails afterwards.
func (a *API) decodeSigned(r *http.Request, payload SignedPayload) (common.Address, error) {
	req := &SignedRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return common.Address{}, ErrMalformedBody.Withf("could not decode request body: %v", err)
	}
	if len(req.Payload) == 0 {
		return common.Address{}, ErrMalformedBody.With("missing payload")
	}
	caller, err := ethereum.AddrFromSignature(req.Payload, req.Signature)
	if err != nil {
		return common.Address{}, ErrInvalidSignature.Withf("could not extract address from signature: %v", err)
	}
	if err := json.Unmarshal(req.Payload, payload); err != nil {
		return common.Address{}, ErrMalformedBody.Withf("could not decode payload: %v", err)
	}
	guard := payload.Guard()
	if len(guard.Nonce) == 0 || len(guard.Nonce) > storage.MaxNonceSize {
		return common.Address{}, ErrMalformedBody.Withf("nonce must have 1 to %d bytes", storage.MaxNonceSize)
	}
	now := a.clock()
	if guard.Deadline < now.Unix() || guard.Deadline > now.Add(MaxRequestLifetime).Unix() {
		return common.Address{}, ErrRequestExpired.Withf("deadline %d, now %d", guard.Deadline, now.Unix())
	}
	claimed, err := a.storage.ClaimNonce(caller, guard.Nonce, guard.Deadline)
	if err != nil {
		return common.Address{}, ErrGenericInternalServerError.WithErr(err)
	}
	if !claimed {
		return common.Address{}, ErrNonceReused.With(guard.Nonce.String())
	}
	return caller, nil
}

// checkPayload verifies that the signed payload is meant for this request.
func checkPayload(action, wantAction string, electionID, wantElectionID uint64) error {
	if action != wantAction {
		return ErrPayloadMismatch.Withf("action %q, expected %q", action, wantAction)
	}
	if electionID != wantElectionID {
		return ErrPayloadMismatch.Withf("election %d, expected %d", electionID, wantElectionID)
	}
	return nil
}

// writeErr writes err, which is either an API error or a ledger failure.
func writeErr(w http.ResponseWriter, err error) {
	if apiErr, ok := err.(Error); ok {
		apiErr.Write(w)
		return
	}
	ledgerError(err).Write(w)
}

// bytes32 converts b to a 32 byte hash.
func bytes32(b types.HexBytes, apiErr Error) (common.Hash, error) {
	arr, err := b.Bytes32()
	if err != nil {
		return common.Hash{}, apiErr.WithErr(err)
	}
	return common.Hash(arr), nil
}
