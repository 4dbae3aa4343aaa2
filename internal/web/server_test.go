package web

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"github.com/vadiminshakov/quorum/internal/domain"
	"github.com/vadiminshakov/quorum/internal/events"
	"github.com/vadiminshakov/quorum/internal/services/consensus"
	"github.com/vadiminshakov/quorum/internal/storage/history"
)

func newTestServer(t *testing.T) (*Server, *history.Memory) {
	t.Helper()

	store := history.NewMemory(10)
	engine, err := consensus.NewEngine(zap.NewNop(), domain.DefaultWeightConfig(), store)
	require.NoError(t, err)

	s := NewServer(zap.NewNop(), ":0", engine, store)
	s.PollInterval = 10 * time.Millisecond
	return s, store
}

func neutralBody() string {
	return `{"sentiment_index":50,"volatility":0.1}`
}

func TestDecide(t *testing.T) {
	s, store := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(neutralBody()))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var got domain.DecisionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.ActionHold, got.Action)
	assert.Len(t, got.VotesSnapshot, len(domain.Perspectives))

	stored, err := store.List()
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestDecide_BadBody(t *testing.T) {
	s, _ := newTestServer(t)

	for _, body := range []string{"not json", `{"weather": 1}`} {
		req := httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(body))
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestDecide_WrongMethod(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decide", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestHistory(t *testing.T) {
	s, _ := newTestServer(t)
	h := s.Handler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())

	for i := 0; i < 3; i++ {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(neutralBody())))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/history", nil))
	var got []domain.DecisionRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Len(t, got, 3)
}

func TestHealth(t *testing.T) {
	s, _ := newTestServer(t)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestDecisionStream_Unavailable(t *testing.T) {
	s, _ := newTestServer(t)
	s.Events = nil

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/decisions/stream", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func readIDs(ctx context.Context, resp *http.Response) <-chan string {
	ids := make(chan string)
	go func() {
		defer close(ids)
		scanner := bufio.NewScanner(resp.Body)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, "id: ") {
				select {
				case ids <- strings.TrimPrefix(line, "id: "):
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return ids
}

func TestDecisionStream(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	s, store := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	require.NoError(t, store.Append(domain.DecisionRecord{Action: domain.ActionHold, Timestamp: time.Unix(1, 0).UTC()}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/decisions/stream", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	ids := readIDs(ctx, resp)
	assert.Equal(t, "1", <-ids)

	require.NoError(t, store.Append(domain.DecisionRecord{Action: domain.ActionBuy, Timestamp: time.Unix(2, 0).UTC()}))
	assert.Equal(t, "2", <-ids)

	cancel()
	for range ids {
	}
}

func TestDecisionStream_ResumesFromLastEventID(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	s, store := newTestServer(t)
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for i := range 3 {
		require.NoError(t, store.Append(domain.DecisionRecord{Action: domain.ActionHold, Timestamp: time.Unix(int64(i+1), 0).UTC()}))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/decisions/stream", nil)
	require.NoError(t, err)
	req.Header.Set("Last-Event-ID", "2")
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	ids := readIDs(ctx, resp)
	assert.Equal(t, "3", <-ids)

	require.NoError(t, store.Append(domain.DecisionRecord{Action: domain.ActionBuy, Timestamp: time.Unix(4, 0).UTC()}))
	assert.Equal(t, "4", <-ids)

	cancel()
	for range ids {
	}
}

func TestDecisionStream_InvalidLastEventID(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/decisions/stream", nil)
	req.Header.Set("Last-Event-ID", "abc")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestDecisionStream_WakesOnPublish(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"))

	store := history.NewMemory(10)
	broadcaster := events.NewDecisionBroadcaster(4)
	engine, err := consensus.NewEngine(zap.NewNop(), domain.DefaultWeightConfig(), store, consensus.WithPublisher(broadcaster))
	require.NoError(t, err)

	s := NewServer(zap.NewNop(), ":0", engine, store)
	s.PollInterval = time.Hour
	s.Notify = broadcaster

	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ts.URL+"/decisions/stream", nil)
	require.NoError(t, err)
	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	ids := readIDs(ctx, resp)

	require.Eventually(t, func() bool { return broadcaster.Subscribers() == 1 }, 2*time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/decide", strings.NewReader(neutralBody())))
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, "1", <-ids)

	cancel()
	for range ids {
	}
}
