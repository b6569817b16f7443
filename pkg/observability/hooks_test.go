package observability

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	// Pipeline hooks
	p := NoopPipelineHooks{}
	p.OnLoadStart(ctx, "plan.graph")
	p.OnLoadComplete(ctx, "plan.graph", 3, time.Second, nil)
	p.OnAnalysisStart(ctx, "integration", "axial", 120)
	p.OnAnalysisComplete(ctx, "integration", "axial", time.Second, nil)
	p.OnRenderStart(ctx, []string{"svg"})
	p.OnRenderComplete(ctx, []string{"svg"}, time.Second, nil)

	// Cache hooks
	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "analysis")
	c.OnCacheMiss(ctx, "analysis")
	c.OnCacheSet(ctx, "render", 1024)

	// HTTP hooks
	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "/graphs/{name}")
	h.OnResponse(ctx, "GET", "/graphs/{name}", 200, time.Second)
	h.OnError(ctx, "GET", "/graphs/{name}", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	// Reset to known state
	Reset()

	// Verify defaults are noop
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Pipeline() should return NoopPipelineHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	// Set custom hooks
	customPipeline := &testPipelineHooks{}
	SetPipelineHooks(customPipeline)
	if Pipeline() != customPipeline {
		t.Error("SetPipelineHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	// Reset and verify
	Reset()
	if _, ok := Pipeline().(NoopPipelineHooks); !ok {
		t.Error("Reset() should restore NoopPipelineHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()

	custom := &testPipelineHooks{}
	SetPipelineHooks(custom)

	// Setting nil should be ignored
	SetPipelineHooks(nil)

	if Pipeline() != custom {
		t.Error("SetPipelineHooks(nil) should be ignored")
	}

	Reset()
}

func TestMultiPipelineHooks(t *testing.T) {
	a, b := &testPipelineHooks{}, &testPipelineHooks{}
	m := MultiPipelineHooks{a, b}
	ctx := context.Background()

	m.OnAnalysisStart(ctx, "integration", "axial", 3)
	m.OnAnalysisComplete(ctx, "integration", "axial", time.Millisecond, nil)
	m.OnLoadComplete(ctx, "plan.graph", 1, time.Millisecond, nil)

	for i, h := range []*testPipelineHooks{a, b} {
		if h.analyses != 1 || h.loads != 1 {
			t.Errorf("hooks[%d] saw %d analyses and %d loads, want 1 and 1", i, h.analyses, h.loads)
		}
	}
}

func TestPromHooks(t *testing.T) {
	reg := prometheus.NewRegistry()
	h, err := NewPromHooks(reg)
	if err != nil {
		t.Fatalf("NewPromHooks() error: %v", err)
	}
	ctx := context.Background()

	h.OnAnalysisComplete(ctx, "integration", "axial", 20*time.Millisecond, nil)
	h.OnAnalysisComplete(ctx, "integration", "axial", time.Millisecond, errors.New("boom"))
	h.OnCacheMiss(ctx, "analysis")
	h.OnCacheSet(ctx, "analysis", 512)
	h.OnResponse(ctx, "GET", "/graphs", 200, time.Millisecond)
	h.OnError(ctx, "GET", "/graphs/{name}", errors.New("missing"))

	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"analyses ok", testutil.ToFloat64(h.analyses.WithLabelValues("integration", "ok")), 1},
		{"analyses error", testutil.ToFloat64(h.analyses.WithLabelValues("integration", "error")), 1},
		{"cache miss", testutil.ToFloat64(h.cacheEvents.WithLabelValues("analysis", "miss")), 1},
		{"cache bytes", testutil.ToFloat64(h.cacheBytes), 512},
		{"requests", testutil.ToFloat64(h.requests.WithLabelValues("GET", "/graphs", "200")), 1},
		{"request errors", testutil.ToFloat64(h.requestErrors.WithLabelValues("/graphs/{name}")), 1},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s = %v, want %v", c.name, c.got, c.want)
		}
	}

	if _, err := NewPromHooks(reg); err == nil {
		t.Error("NewPromHooks() should fail when metrics are already registered")
	}
}

func TestNATSHooks(t *testing.T) {
	pub := &recordingPublisher{}
	h := NewNATSHooks(pub, "")
	h.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	ctx := context.Background()

	h.OnAnalysisStart(ctx, "integration", "axial", 42)
	h.OnAnalysisComplete(ctx, "integration", "axial", 1500*time.Millisecond, nil)
	h.OnAnalysisComplete(ctx, "isovist", "grid", time.Second, errors.New("no points"))

	wantSubjects := []string{
		"spacegraph.analysis.started",
		"spacegraph.analysis.completed",
		"spacegraph.analysis.failed",
	}
	if len(pub.subjects) != len(wantSubjects) {
		t.Fatalf("published %d events, want %d", len(pub.subjects), len(wantSubjects))
	}
	for i, want := range wantSubjects {
		if pub.subjects[i] != want {
			t.Errorf("subject[%d] = %q, want %q", i, pub.subjects[i], want)
		}
	}

	var done AnalysisEvent
	if err := json.Unmarshal(pub.payloads[1], &done); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if done.Records != 42 || done.DurationMS != 1500 || done.Error != "" {
		t.Errorf("completed event = %+v", done)
	}

	var failed AnalysisEvent
	if err := json.Unmarshal(pub.payloads[2], &failed); err != nil {
		t.Fatalf("unmarshal event: %v", err)
	}
	if failed.Error != "no points" || failed.Map != "grid" {
		t.Errorf("failed event = %+v", failed)
	}

	pub.err = errors.New("disconnected")
	h.OnAnalysisStart(ctx, "integration", "axial", 1)
	if h.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", h.Failed())
	}
	if err := h.Close(); err != nil {
		t.Errorf("Close() without a connection = %v", err)
	}
}

// Test implementations
type testPipelineHooks struct {
	NoopPipelineHooks
	analyses, loads int
}

func (h *testPipelineHooks) OnAnalysisComplete(context.Context, string, string, time.Duration, error) {
	h.analyses++
}

func (h *testPipelineHooks) OnLoadComplete(context.Context, string, int, time.Duration, error) {
	h.loads++
}

type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }

type recordingPublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	if p.err != nil {
		return p.err
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return nil
}
