package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/smallnest/decisionflow/pipeline"
)

// sseObserver forwards pipeline events to the client as server-sent events.
// Token events arrive from the parallel branches' goroutines, so every write
// is serialized through the mutex.
type sseObserver struct {
	mu      sync.Mutex
	w       http.ResponseWriter
	flusher http.Flusher
}

func newSSEObserver(w http.ResponseWriter, flusher http.Flusher) *sseObserver {
	return &sseObserver{w: w, flusher: flusher}
}

func (o *sseObserver) event(name string, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	fmt.Fprintf(o.w, "event: %s\ndata: %s\n\n", name, data)
	o.flusher.Flush()
}

// OnPhase emits a phase transition.
func (o *sseObserver) OnPhase(p pipeline.Phase) {
	o.event("phase", map[string]string{"phase": p.String()})
}

// OnToken emits a streamed chunk from one parallel branch.
func (o *sseObserver) OnToken(branch pipeline.Branch, chunk string) {
	o.event("token", map[string]string{"branch": string(branch), "chunk": chunk})
}

// OnMessage emits a conversational message appended to the record.
func (o *sseObserver) OnMessage(m pipeline.Message) {
	o.event("message", m)
}
