package observability

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
)

// DefaultSubject is the subject prefix analysis events are published under.
const DefaultSubject = "spacegraph.analysis"

// Publisher sends a message to a subject. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// AnalysisEvent is the payload published when an analysis run ends.
type AnalysisEvent struct {
	Mode       string    `json:"mode"`
	Map        string    `json:"map"`
	Records    int       `json:"records,omitempty"`
	DurationMS int64     `json:"duration_ms"`
	Error      string    `json:"error,omitempty"`
	Time       time.Time `json:"time"`
}

// NATSHooks publishes analysis lifecycle events. Runs start on
// "<subject>.started" and end on "<subject>.completed" or
// "<subject>.failed". Publish failures are counted, never returned.
// NATSHooks is safe for concurrent use.
type NATSHooks struct {
	NoopPipelineHooks

	mu      sync.Mutex
	pub     Publisher
	conn    *nats.Conn
	subject string
	now     func() time.Time
	records map[string]int
	failed  int
}

// NewNATSHooks publishes through pub. An empty subject uses
// DefaultSubject.
func NewNATSHooks(pub Publisher, subject string) *NATSHooks {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATSHooks{pub: pub, subject: subject, now: time.Now, records: make(map[string]int)}
}

// ConnectNATS dials url and returns hooks that own the connection.
func ConnectNATS(url, subject string) (*NATSHooks, error) {
	nc, err := nats.Connect(url, nats.Name("spacegraph"), nats.MaxReconnects(5), nats.ReconnectWait(time.Second))
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	h := NewNATSHooks(nc, subject)
	h.conn = nc
	return h, nil
}

// Close drains the connection when the hooks own one.
func (h *NATSHooks) Close() error {
	if h.conn == nil {
		return nil
	}
	return h.conn.Drain()
}

// Failed returns the number of events that could not be published.
func (h *NATSHooks) Failed() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.failed
}

func (h *NATSHooks) OnAnalysisStart(_ context.Context, mode, mapName string, records int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.records[mode+"\x00"+mapName] = records
	h.publish("started", AnalysisEvent{Mode: mode, Map: mapName, Records: records, Time: h.now().UTC()})
}

func (h *NATSHooks) OnAnalysisComplete(_ context.Context, mode, mapName string, d time.Duration, err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	key := mode + "\x00" + mapName
	ev := AnalysisEvent{
		Mode:       mode,
		Map:        mapName,
		Records:    h.records[key],
		DurationMS: d.Milliseconds(),
		Time:       h.now().UTC(),
	}
	delete(h.records, key)
	kind := "completed"
	if err != nil {
		ev.Error = err.Error()
		kind = "failed"
	}
	h.publish(kind, ev)
}

// publish sends ev; h.mu must be held.
func (h *NATSHooks) publish(kind string, ev AnalysisEvent) {
	data, err := json.Marshal(ev)
	if err == nil {
		err = h.pub.Publish(h.subject+"."+kind, data)
	}
	if err != nil {
		h.failed++
	}
}

var _ PipelineHooks = (*NATSHooks)(nil)
