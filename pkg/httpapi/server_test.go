package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nfsherd/nfsherd/pkg/authority"
	"github.com/nfsherd/nfsherd/pkg/lifecycle"
	"github.com/nfsherd/nfsherd/pkg/relation"
)

type fakeOrchestrator struct {
	connected []string
	departed  []string
	disp      lifecycle.Disposition
	err       error
	state     lifecycle.State
}

func (f *fakeOrchestrator) HandleConnected(ctx context.Context, tok authority.Token, groupID string) (lifecycle.Disposition, error) {
	if !tok.Held() {
		return lifecycle.Skipped, nil
	}
	f.connected = append(f.connected, groupID)
	return f.disp, f.err
}

func (f *fakeOrchestrator) HandleDeparted(ctx context.Context, tok authority.Token, groupID string) (lifecycle.Disposition, error) {
	if !tok.Held() {
		return lifecycle.Skipped, nil
	}
	f.departed = append(f.departed, groupID)
	return f.disp, f.err
}

func (f *fakeOrchestrator) State(groupID string) lifecycle.State {
	return f.state
}

func postSignal(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/v1/signals", strings.NewReader(body))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestSignalCompleted(t *testing.T) {
	orc := &fakeOrchestrator{disp: lifecycle.Completed}
	s := NewServer(orc, authority.Static(true), relation.NewMemory(), time.Minute)

	w := postSignal(t, s.Router(), `{"type":"connected","group_id":"g1"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "completed", body["status"])
	assert.NotEmpty(t, body["delivery"])
	assert.Equal(t, []string{"g1"}, orc.connected)
}

func TestSignalSkippedWithoutAuthority(t *testing.T) {
	orc := &fakeOrchestrator{disp: lifecycle.Completed}
	s := NewServer(orc, authority.Static(false), relation.NewMemory(), time.Minute)

	w := postSignal(t, s.Router(), `{"type":"connected","group_id":"g1"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Empty(t, orc.connected)
}

func TestSignalDeferredIsRequeued(t *testing.T) {
	orc := &fakeOrchestrator{disp: lifecycle.Deferred, err: errors.New("storage not available")}
	s := NewServer(orc, authority.Static(true), relation.NewMemory(), time.Minute)

	w := postSignal(t, s.Router(), `{"type":"connected","group_id":"g1"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, s.requeue.Len())

	// The same signal deferred again does not queue twice.
	w = postSignal(t, s.Router(), `{"type":"connected","group_id":"g1"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, 1, s.requeue.Len())
}

func TestSignalDepartedRoutes(t *testing.T) {
	orc := &fakeOrchestrator{disp: lifecycle.Completed}
	s := NewServer(orc, authority.Static(true), relation.NewMemory(), time.Minute)

	w := postSignal(t, s.Router(), `{"type":"departed","group_id":"g2"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"g2"}, orc.departed)
}

func TestSignalValidation(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, authority.Static(true), relation.NewMemory(), time.Minute)

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{`},
		{"unknown type", `{"type":"exploded","group_id":"g1"}`},
		{"missing group", `{"type":"connected"}`},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := postSignal(t, s.Router(), tc.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

// overlapOrchestrator records how many deliveries are in progress at once.
type overlapOrchestrator struct {
	mu      sync.Mutex
	active  int
	maxSeen int
	handled []string
}

func (f *overlapOrchestrator) HandleConnected(ctx context.Context, tok authority.Token, groupID string) (lifecycle.Disposition, error) {
	f.mu.Lock()
	f.active++
	if f.active > f.maxSeen {
		f.maxSeen = f.active
	}
	f.mu.Unlock()

	// Window in which a second interleaved delivery would be observed.
	time.Sleep(10 * time.Millisecond)

	f.mu.Lock()
	f.active--
	f.handled = append(f.handled, groupID)
	f.mu.Unlock()
	return lifecycle.Completed, nil
}

func (f *overlapOrchestrator) HandleDeparted(ctx context.Context, tok authority.Token, groupID string) (lifecycle.Disposition, error) {
	return f.HandleConnected(ctx, tok, groupID)
}

func (f *overlapOrchestrator) State(groupID string) lifecycle.State {
	return lifecycle.Absent
}

func TestSignalsDeliveredOneAtATime(t *testing.T) {
	orc := &overlapOrchestrator{}
	s := NewServer(orc, authority.Static(true), relation.NewMemory(), time.Minute)
	h := s.Router()

	// Two groups racing for membership must not both read the inventory
	// before either actuates: that is how one host ends up in two groups.
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			w := postSignal(t, h, fmt.Sprintf(`{"type":"connected","group_id":"g%d"}`, n))
			assert.Equal(t, http.StatusOK, w.Code)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, orc.maxSeen, "deliveries overlapped")
	assert.Len(t, orc.handled, 4)
}

func TestClusterStatus(t *testing.T) {
	store := relation.NewMemory()
	require.NoError(t, store.Publish(context.Background(), "g1", relation.Record{
		ClusterID: "g1",
		Volume:    "g1-vol",
		Members:   2,
	}))
	orc := &fakeOrchestrator{state: lifecycle.Degraded}
	s := NewServer(orc, authority.Static(true), store, time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/v1/clusters/g1", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		relation.Record
		State string `json:"state"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "g1-vol", body.Volume)
	assert.Equal(t, 2, body.Members)
	assert.Equal(t, "degraded", body.State)
}

func TestClusterStatusNotFound(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, authority.Static(true), relation.NewMemory(), time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/v1/clusters/missing", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	s := NewServer(&fakeOrchestrator{}, authority.Static(true), relation.NewMemory(), time.Minute)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}
