package delivery

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NotCoffee418/p1_forwarder/pkg/readingqueue"
	"github.com/NotCoffee418/p1_forwarder/pkg/token"
	"github.com/NotCoffee418/p1_forwarder/pkg/types"
)

type fakeAuth struct {
	ensureCalls int
	header      string
}

func (f *fakeAuth) EnsureValid(context.Context) { f.ensureCalls++ }
func (f *fakeAuth) AuthorizationHeader() string { return f.header }

type collector struct {
	*httptest.Server
	mu      sync.Mutex
	status  int
	bodies  [][]byte
	headers []string
}

func newCollector(t *testing.T, status int) *collector {
	c := &collector{status: status}
	c.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		c.mu.Lock()
		defer c.mu.Unlock()
		c.bodies = append(c.bodies, body)
		c.headers = append(c.headers, r.Header.Get("Authorization"))
		w.WriteHeader(c.status)
	}))
	t.Cleanup(c.Close)
	return c
}

func (c *collector) requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.bodies)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleReading(sec int) *types.Reading {
	return &types.Reading{
		Timestamp: time.Date(2022, 9, 1, 12, 0, sec, 0, time.Local),
		Fields: map[string]types.FieldValue{
			"actualPowerDelivered": {Value: 0.354, Unit: "kW"},
			"tariffIndicator":      {Value: 2},
		},
	}
}

func TestRunOnceEmptyQueueSendsNothing(t *testing.T) {
	srv := newCollector(t, http.StatusOK)
	auth := &fakeAuth{header: "Bearer abc"}
	w := NewWorker(Config{URL: srv.URL}, readingqueue.New(), auth, discardLogger())

	require.NoError(t, w.RunOnce(context.Background()))
	assert.Zero(t, srv.requests())
	assert.Zero(t, auth.ensureCalls)
}

func TestRunOnceSendsBatch(t *testing.T) {
	srv := newCollector(t, http.StatusCreated)
	auth := &fakeAuth{header: "Bearer abc"}
	q := readingqueue.New()
	q.Append(sampleReading(1))
	q.Append(sampleReading(2))

	w := NewWorker(Config{URL: srv.URL}, q, auth, discardLogger())
	require.NoError(t, w.RunOnce(context.Background()))

	require.Equal(t, 1, srv.requests())
	assert.Equal(t, 1, auth.ensureCalls)
	assert.Equal(t, "Bearer abc", srv.headers[0])
	assert.JSONEq(t, `{"data": [
		{"dateTime": "2022-09-01T12:00:01", "actualPowerDelivered": {"unit": "kW", "value": 0.354}, "tariffIndicator": 2},
		{"dateTime": "2022-09-01T12:00:02", "actualPowerDelivered": {"unit": "kW", "value": 0.354}, "tariffIndicator": 2}
	]}`, string(srv.bodies[0]))
	assert.Zero(t, q.Len())
}

func TestRunOnceDropsBatchOnFailure(t *testing.T) {
	srv := newCollector(t, http.StatusInternalServerError)
	q := readingqueue.New()
	q.Append(sampleReading(1))

	w := NewWorker(Config{URL: srv.URL}, q, &fakeAuth{}, discardLogger())
	err := w.RunOnce(context.Background())

	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Zero(t, q.Len())
}

func TestRunOnceDropsBatchOnTransportError(t *testing.T) {
	srv := newCollector(t, http.StatusOK)
	url := srv.URL
	srv.Close()

	q := readingqueue.New()
	q.Append(sampleReading(1))

	w := NewWorker(Config{URL: url, Timeout: time.Second}, q, &fakeAuth{}, discardLogger())
	assert.Error(t, w.RunOnce(context.Background()))
	assert.Zero(t, q.Len())
}

func TestRunOnceRequeuesWhenEnabled(t *testing.T) {
	srv := newCollector(t, http.StatusBadGateway)
	q := readingqueue.New()
	q.Append(sampleReading(1))
	q.Append(sampleReading(2))
	q.Append(sampleReading(3))

	w := NewWorker(Config{URL: srv.URL, RequeueOnFailure: true, RequeueCap: 2}, q, &fakeAuth{}, discardLogger())
	assert.Error(t, w.RunOnce(context.Background()))

	left := q.DrainAll()
	require.Len(t, left, 2)
	assert.Equal(t, 2, left[0].Timestamp.Second())
	assert.Equal(t, 3, left[1].Timestamp.Second())
}

func TestRunStopsOnCancel(t *testing.T) {
	srv := newCollector(t, http.StatusOK)
	q := readingqueue.New()
	q.Append(sampleReading(1))

	ctx, cancel := context.WithCancel(context.Background())
	w := NewWorker(Config{URL: srv.URL, Interval: 10 * time.Millisecond}, q, &fakeAuth{}, discardLogger())

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	assert.Eventually(t, func() bool { return srv.requests() == 1 }, time.Second, 5*time.Millisecond)
	q.Append(sampleReading(2))
	assert.Eventually(t, func() bool { return srv.requests() == 2 }, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunOnceWithTokenCache(t *testing.T) {
	var tokenRequests atomic.Int32
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenRequests.Add(1)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"access_token":"xyz","token_type":"Bearer","expires_in":3600}`)
	}))
	defer tokenSrv.Close()

	srv := newCollector(t, http.StatusOK)
	q := readingqueue.New()
	cache := token.NewCache(token.Config{URL: tokenSrv.URL, ClientID: "id", ClientSecret: "secret"}, discardLogger())
	w := NewWorker(Config{URL: srv.URL}, q, cache, discardLogger())

	q.Append(sampleReading(1))
	require.NoError(t, w.RunOnce(context.Background()))
	q.Append(sampleReading(2))
	require.NoError(t, w.RunOnce(context.Background()))

	assert.Equal(t, int32(1), tokenRequests.Load())
	assert.Equal(t, []string{"Bearer xyz", "Bearer xyz"}, srv.headers)

	var sent payload
	require.NoError(t, json.Unmarshal(srv.bodies[1], &sent))
	require.Len(t, sent.Data, 1)
	assert.Equal(t, sampleReading(2).Timestamp, sent.Data[0].Timestamp)
}
