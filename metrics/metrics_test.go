package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	qt "github.com/frankban/quicktest"
)

func scrape(c *qt.C, m *Metrics) string {
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	c.Assert(rec.Code, qt.Equals, http.StatusOK)
	return rec.Body.String()
}

func TestOperations(t *testing.T) {
	c := qt.New(t)
	m, err := New()
	c.Assert(err, qt.IsNil)

	m.Operation("anonymous", OpCreate)
	m.Operation("anonymous", OpCast)
	m.Operation("anonymous", OpCast)
	m.Operation("commitreveal", OpCommit)
	m.Rejection("anonymous", OpCast, "NullifierReused")

	body := scrape(c, m)
	c.Assert(body, qt.Contains, `ballotbox_operations_total{kind="anonymous",op="cast"} 2`)
	c.Assert(body, qt.Contains, `ballotbox_tallied_votes_total{kind="anonymous"} 2`)
	// commitments are not tallied votes
	c.Assert(body, qt.Not(qt.Contains), `ballotbox_tallied_votes_total{kind="commitreveal"}`)
	c.Assert(body, qt.Contains,
		`ballotbox_rejections_total{kind="anonymous",op="cast",reason="NullifierReused"} 1`)
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.Operation("anonymous", OpCast)
	m.Rejection("anonymous", OpCast, "InvalidProof")
	h := m.Middleware(http.NotFoundHandler())
	qt.Assert(t, h, qt.IsNotNil)
}

func TestHandler(t *testing.T) {
	c := qt.New(t)
	m, err := New()
	c.Assert(err, qt.IsNil)

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	m.Operation("commitreveal", OpReveal)

	body := scrape(c, m)
	c.Assert(body, qt.Contains, `ballotbox_api_requests_total{method="GET",status="418"} 1`)
	c.Assert(body, qt.Contains, `ballotbox_tallied_votes_total{kind="commitreveal"} 1`)
}
