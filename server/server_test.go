package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smallnest/decisionflow/llm"
	"github.com/smallnest/decisionflow/memory"
	"github.com/smallnest/decisionflow/pipeline"
	"github.com/smallnest/decisionflow/store"
)

type stubRunner struct {
	rec *pipeline.DecisionRecord
	err error
}

func (r *stubRunner) Run(ctx context.Context, question string, opts ...pipeline.RunOption) (*pipeline.DecisionRecord, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.rec, nil
}

// machineRunner builds a real pipeline over the scripted generator, so
// streaming tests exercise the full observer path.
func machineRunner(t *testing.T) Runner {
	t.Helper()
	gen := llm.NewScripted(
		llm.Rule{Match: "producing the final decision", Response: "Decision:\nYes - proceed.\n\nConfidence:\n1.0"},
		llm.Rule{Match: "strategic decision planner", Response: "1. Evaluate the options."},
		llm.Rule{Match: "INDEPENDENT ANALYSIS", Response: "### Pros\n- fine"},
	)
	m, err := pipeline.New(pipeline.Config{Generator: gen})
	require.NoError(t, err)
	return m
}

func testRecord() *pipeline.DecisionRecord {
	return &pipeline.DecisionRecord{
		ID:         "rec-1",
		Question:   "Should we migrate to Kubernetes?",
		Decision:   pipeline.DecisionNo,
		Confidence: 0.85,
		Attempts:   1,
		Messages: []pipeline.Message{
			{Role: pipeline.RoleUser, Content: "Should we migrate to Kubernetes?"},
			{Role: pipeline.RoleAssistant, Content: "Decision: No"},
		},
		Phase:     pipeline.PhaseDone,
		CreatedAt: time.Now().UTC(),
	}
}

type stubLog struct {
	summaries []memory.Summary
	records   map[string]*pipeline.DecisionRecord
}

func (l *stubLog) ListDecisions(ctx context.Context, limit int) ([]memory.Summary, error) {
	return l.summaries, nil
}

func (l *stubLog) GetDecision(ctx context.Context, id string) (*pipeline.DecisionRecord, error) {
	rec, ok := l.records[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", memory.ErrDecisionNotFound, id)
	}
	return rec, nil
}

func newTestServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	if cfg.Runner == nil {
		cfg.Runner = &stubRunner{rec: testRecord()}
	}
	s, err := New(cfg)
	require.NoError(t, err)
	return s
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, Config{})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"ok"`)
}

func TestCreateDecisionJSON(t *testing.T) {
	threads := store.NewMemoryThreadStore()
	s := newTestServer(t, Config{Threads: threads})

	body := strings.NewReader(`{"question": "Should we migrate to Kubernetes?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions", body)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var rec pipeline.DecisionRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, pipeline.DecisionNo, rec.Decision)
	assert.Equal(t, 0.85, rec.Confidence)

	// The run's messages were persisted under the record ID.
	thread, err := threads.LoadThread(context.Background(), "rec-1")
	require.NoError(t, err)
	assert.Len(t, thread.Messages, 2)
}

func TestCreateDecisionAppendsToExistingThread(t *testing.T) {
	threads := store.NewMemoryThreadStore()
	require.NoError(t, threads.SaveThread(context.Background(), &store.Thread{
		ID:       "session-1",
		Messages: []pipeline.Message{{Role: pipeline.RoleUser, Content: "earlier question"}},
	}))
	s := newTestServer(t, Config{Threads: threads})

	body := strings.NewReader(`{"question": "Should we migrate?", "thread_id": "session-1"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions", body)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)
	require.Equal(t, http.StatusOK, rr.Code)

	thread, err := threads.LoadThread(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Len(t, thread.Messages, 3)
	assert.Equal(t, "earlier question", thread.Messages[0].Content)
}

func TestCreateDecisionStreamsEvents(t *testing.T) {
	s := newTestServer(t, Config{Runner: machineRunner(t)})

	body := strings.NewReader(`{"question": "Should we migrate to Kubernetes?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions", body)
	req.Header.Set("Accept", "text/event-stream")
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "text/event-stream", rr.Header().Get("Content-Type"))

	out := rr.Body.String()
	assert.Contains(t, out, "event: phase")
	assert.Contains(t, out, `"phase":"intake"`)
	assert.Contains(t, out, `"phase":"done"`)
	assert.Contains(t, out, "event: token")
	assert.Contains(t, out, `"branch":"plan"`)
	assert.Contains(t, out, `"branch":"analysis"`)
	assert.Contains(t, out, "event: message")
	assert.Contains(t, out, "event: decision")
	assert.Contains(t, out, `"decision":"Yes"`)
}

func TestCreateDecisionEmptyQuestion(t *testing.T) {
	s := newTestServer(t, Config{
		Runner: &stubRunner{err: &pipeline.NodeError{Node: "intake", Err: pipeline.ErrEmptyQuestion}},
	})

	body := strings.NewReader(`{"question": ""}`)
	req := httptest.NewRequest(http.MethodPost, "/api/decisions", body)
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateDecisionInvalidBody(t *testing.T) {
	s := newTestServer(t, Config{})

	req := httptest.NewRequest(http.MethodPost, "/api/decisions", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestListDecisions(t *testing.T) {
	s := newTestServer(t, Config{
		Decisions: &stubLog{summaries: []memory.Summary{
			{ID: "rec-1", Question: "q1", Decision: "No", Confidence: 0.85},
		}},
	})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var summaries []memory.Summary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &summaries))
	require.Len(t, summaries, 1)
	assert.Equal(t, "rec-1", summaries[0].ID)
}

func TestListDecisionsWithoutHistory(t *testing.T) {
	s := newTestServer(t, Config{})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "[]\n", rr.Body.String())
}

func TestGetDecision(t *testing.T) {
	s := newTestServer(t, Config{
		Decisions: &stubLog{records: map[string]*pipeline.DecisionRecord{"rec-1": testRecord()}},
	})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions/rec-1", nil))

	require.Equal(t, http.StatusOK, rr.Code)

	var rec pipeline.DecisionRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, "rec-1", rec.ID)
}

func TestGetDecisionNotFound(t *testing.T) {
	s := newTestServer(t, Config{
		Decisions: &stubLog{records: map[string]*pipeline.DecisionRecord{}},
	})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions/missing", nil))

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReportHTML(t *testing.T) {
	s := newTestServer(t, Config{
		Decisions: &stubLog{records: map[string]*pipeline.DecisionRecord{"rec-1": testRecord()}},
	})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions/rec-1/report", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rr.Body.String(), "Decision Report")
}

func TestReportUnknownFormat(t *testing.T) {
	s := newTestServer(t, Config{
		Decisions: &stubLog{records: map[string]*pipeline.DecisionRecord{"rec-1": testRecord()}},
	})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions/rec-1/report?format=xlsx", nil))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestReportPDFWithoutConverter(t *testing.T) {
	s := newTestServer(t, Config{
		Decisions: &stubLog{records: map[string]*pipeline.DecisionRecord{"rec-1": testRecord()}},
	})

	rr := httptest.NewRecorder()
	s.Router().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/decisions/rec-1/report?format=pdf", nil))

	assert.Equal(t, http.StatusNotImplemented, rr.Code)
}
