package stub

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"newsdays/internal/gateway"
)

func newTestServer(t *testing.T, field string) (*httptest.Server, *gateway.Client) {
	t.Helper()
	srv := httptest.NewServer(NewServer(testStore(t), Options{SummaryField: field}).Handler())
	t.Cleanup(srv.Close)
	c, err := gateway.New(gateway.Options{BaseURL: srv.URL, Timeout: 5 * time.Second})
	require.NoError(t, err)
	return srv, c
}

func postInbox(t *testing.T, base, body string) {
	t.Helper()
	resp, err := http.Post(base+"/api/v1/inbox", "application/json", bytes.NewBufferString(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)
}

const inboxBody = `[
	{"message_id":"m1","subject":"Markets wrap","author":"Morning Brew <crew@morningbrew.com>","body":"Stocks up.","received_at":"2024-01-01T09:00:00Z"},
	{"message_id":"m2","subject":"Go weekly","author":"golang@weekly.com","received_at":"2024-01-02T08:00:00Z"}
]`

func TestServer_GatewayRoundTrip(t *testing.T) {
	srv, c := newTestServer(t, "summary")
	ctx := context.Background()

	days, err := c.ListDays(ctx)
	require.NoError(t, err)
	assert.Empty(t, days)

	postInbox(t, srv.URL, inboxBody)
	require.NoError(t, c.RefreshSource(ctx))

	days, err = c.ListDays(ctx)
	require.NoError(t, err)
	require.Len(t, days, 2)
	assert.Equal(t, "2024-01-02", days[0].Date.String())
	assert.False(t, days[1].Summary.Generated())

	jan1 := days[1]
	s, err := c.RegenerateDaySummary(ctx, jan1.ID)
	require.NoError(t, err)
	assert.Contains(t, s.Text(), "Markets wrap (Morning Brew)")

	d, err := c.GetDay(ctx, jan1.ID)
	require.NoError(t, err)
	assert.Equal(t, s, d.Summary)
	require.Len(t, d.Newsletters, 1)
	assert.Equal(t, "Stocks up.", d.Newsletters[0].Summary.Text())
}

func TestServer_UnknownDay(t *testing.T) {
	_, c := newTestServer(t, "summary")

	_, err := c.GetDay(context.Background(), "nope")
	var te *gateway.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.Status)

	_, err = c.RegenerateDaySummary(context.Background(), "nope")
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusNotFound, te.Status)
}

func TestServer_LegacySummaryFieldIsRejected(t *testing.T) {
	srv, c := newTestServer(t, "resumen")
	ctx := context.Background()
	postInbox(t, srv.URL, inboxBody)
	require.NoError(t, c.RefreshSource(ctx))
	days, err := c.ListDays(ctx)
	require.NoError(t, err)

	_, err = c.RegenerateDaySummary(ctx, days[0].ID)
	var te *gateway.TransportError
	require.ErrorAs(t, err, &te)
	assert.Contains(t, te.Msg, "resumen")
}

func TestServer_BadInbox(t *testing.T) {
	srv, _ := newTestServer(t, "summary")
	resp, err := http.Post(srv.URL+"/api/v1/inbox", "application/json", bytes.NewBufferString(`[{"subject":"undated"}]`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, "summary")
	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServer_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	srv := httptest.NewServer(NewServer(testStore(t), Options{Registry: reg}).Handler())
	t.Cleanup(srv.Close)
	c, err := gateway.New(gateway.Options{BaseURL: srv.URL})
	require.NoError(t, err)

	postInbox(t, srv.URL, inboxBody)
	require.NoError(t, c.RefreshSource(context.Background()))

	n, err := testutil.GatherAndCount(reg, "newsdays_stub_ingested_newsletters_total")
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "newsdays_stub_ingested_newsletters_total 2")
}
