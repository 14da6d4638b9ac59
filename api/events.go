package api

import (
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// DefaultEventsLimit is the page size of the events endpoint.
	DefaultEventsLimit = 100
	// MaxEventsLimit is the largest page the events endpoint returns.
	MaxEventsLimit = 1000
)

// anonymousCaller is the identity used for the anonymous votes.
var anonymousCaller = common.Address{}

// events returns a page of the event journal
// GET /events?from=N&limit=M
func (a *API) events(w http.ResponseWriter, r *http.Request) {
	from, limit := uint64(0), DefaultEventsLimit
	if s := r.URL.Query().Get(EventsFromParam); s != "" {
		v, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			ErrMalformedParam.Withf("%s: %v", EventsFromParam, err).Write(w)
			return
		}
		from = v
	}
	if s := r.URL.Query().Get(EventsLimitParam); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil || v <= 0 {
			ErrMalformedParam.Withf("%s: %q", EventsLimitParam, s).Write(w)
			return
		}
		limit = min(v, MaxEventsLimit)
	}
	evs, err := a.storage.Events(from, limit)
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	last, err := a.storage.LastEventSeq()
	if err != nil {
		ErrGenericInternalServerError.WithErr(err).Write(w)
		return
	}
	httpWriteJSON(w, &Events{Events: evs, LastSeq: last})
}
