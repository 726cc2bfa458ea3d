package provider_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	eperrors "github.com/randalmurphal/eventpipe/pkg/eventpipe/errors"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/provider"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/retry"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/tracker"
	"github.com/randalmurphal/eventpipe/pkg/eventpipe/value"
)

var (
	_ tracker.Provider = (*provider.HTTPProvider)(nil)
	_ retry.Deliverer  = (*provider.HTTPProvider)(nil)
)

type capture struct {
	mu     sync.Mutex
	bodies []map[string]any
	status int
}

func (c *capture) handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		var m map[string]any
		_ = json.Unmarshal(body, &m)
		c.mu.Lock()
		c.bodies = append(c.bodies, m)
		status := c.status
		c.mu.Unlock()
		if status == 0 {
			status = http.StatusOK
		}
		w.WriteHeader(status)
	})
}

func TestHTTPProvider_Track(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	p := provider.NewHTTPProvider(retry.NewHTTPDeliverer(srv.URL))
	require.NoError(t, p.Track(context.Background(), "property_viewed", value.Properties{
		"property_id": value.String("p-9"),
	}))

	require.Len(t, c.bodies, 1)
	assert.Equal(t, "property_viewed", c.bodies[0]["event"])
	assert.Equal(t, map[string]any{"property_id": "p-9"}, c.bodies[0]["properties"])
	assert.NotEmpty(t, c.bodies[0]["timestamp"])
	assert.Equal(t, "http", p.Name())
}

func TestHTTPProvider_Identify(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	p := provider.NewHTTPProvider(retry.NewHTTPDeliverer(srv.URL))
	traits := value.Properties{"user_type": value.String("owner")}
	require.NoError(t, p.Identify(context.Background(), "u-3", traits))

	require.Len(t, c.bodies, 1)
	assert.Equal(t, provider.EventIdentify, c.bodies[0]["event"])
	assert.Equal(t, map[string]any{"user_type": "owner", "user_id": "u-3"}, c.bodies[0]["properties"])
	assert.NotContains(t, traits, "user_id", "traits are not modified")

	assert.NoError(t, p.Reset(context.Background()))
}

func TestHTTPProvider_FailureIsProviderError(t *testing.T) {
	c := &capture{status: http.StatusBadGateway}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	p := provider.NewHTTPProvider(retry.NewHTTPDeliverer(srv.URL))
	err := p.Track(context.Background(), "e", nil)

	var provErr *eperrors.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "http", provErr.Provider)
	assert.Equal(t, "track", provErr.Operation)

	var httpErr *eperrors.HTTPError
	require.ErrorAs(t, err, &httpErr)
	assert.Equal(t, http.StatusBadGateway, httpErr.StatusCode)
}

func TestHTTPProvider_DeliverKeepsTrackedTime(t *testing.T) {
	c := &capture{}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	p := provider.NewHTTPProvider(retry.NewHTTPDeliverer(srv.URL))
	tracked := time.Date(2024, 5, 2, 8, 30, 0, 0, time.UTC)
	require.NoError(t, p.Deliver(context.Background(), retry.QueuedEvent{
		ID:        "ev-1",
		EventName: "search_performed",
		Timestamp: tracked,
	}))

	require.Len(t, c.bodies, 1)
	assert.Equal(t, "search_performed", c.bodies[0]["event"])
	assert.Equal(t, "2024-05-02T08:30:00Z", c.bodies[0]["timestamp"])

	c.mu.Lock()
	c.status = http.StatusBadGateway
	c.mu.Unlock()
	err := p.Deliver(context.Background(), retry.QueuedEvent{EventName: "e", Timestamp: tracked})
	var provErr *eperrors.ProviderError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, "redeliver", provErr.Operation)
}

func TestHTTPProvider_FailedTrackIsQueuedByTracker(t *testing.T) {
	ctx := context.Background()
	c := &capture{status: http.StatusServiceUnavailable}
	srv := httptest.NewServer(c.handler())
	defer srv.Close()

	d := retry.NewHTTPDeliverer(srv.URL)
	q, err := retry.New(ctx, nil, d, retry.DefaultConfig())
	require.NoError(t, err)

	tr := tracker.New(tracker.ConsentFunc(func() bool { return true }), q,
		tracker.WithProviders(provider.NewHTTPProvider(d)))
	tr.TrackEvent(ctx, tracker.EventLogin, value.Properties{"method": value.String("google")})

	assert.Equal(t, 1, q.Size())
}
