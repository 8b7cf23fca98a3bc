package stampauth

import (
	"bytes"
	"context"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type countingSink struct {
	count atomic.Int64
}

func (s *countingSink) Emit(context.Context, AuditEvent) {
	s.count.Add(1)
}

func buildAuditTestEngine(t *testing.T, cfg Config, sink AuditSink) *engineFixture {
	t.Helper()

	store := newMemStore()
	mailer := &captureMailer{}
	clock := newMovableClock(testStart)

	engine, err := New().
		WithConfig(cfg).
		WithStore(store).
		WithMailer(mailer).
		WithClock(clock).
		WithAuditSink(sink).
		Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return &engineFixture{engine: engine, store: store, mailer: mailer, clock: clock}
}

func TestAuditDisabledNoSinkCalls(t *testing.T) {
	cfg := testConfig()
	cfg.Audit.Enabled = false

	sink := &countingSink{}
	f := buildAuditTestEngine(t, cfg, sink)

	_, _ = f.engine.Authenticate(WithClientIP(context.Background(), "203.0.113.1"), "nobody@example.com", "Wrong-Horse-9")
	time.Sleep(30 * time.Millisecond)

	if sink.count.Load() != 0 {
		t.Fatalf("expected no audit sink calls when disabled, got %d", sink.count.Load())
	}
}

func TestAuditEventsCarryErrorCodeAndIP(t *testing.T) {
	cfg := testConfig()
	sink := NewChannelSink(16)
	f := buildAuditTestEngine(t, cfg, sink)

	ctx := WithClientIP(context.Background(), "203.0.113.7")
	_, _ = f.engine.Authenticate(ctx, "nobody@example.com", "Wrong-Horse-9")

	select {
	case event := <-sink.Events():
		if event.EventType != "login_failure" {
			t.Fatalf("unexpected event type %q", event.EventType)
		}
		if event.Success {
			t.Fatal("failure event marked success")
		}
		if event.Error != "user_not_found" {
			t.Fatalf("unexpected error code %q", event.Error)
		}
		if event.IP != "203.0.113.7" {
			t.Fatalf("unexpected IP %q", event.IP)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no audit event delivered")
	}
}

func TestAuditCloseDrainsBuffer(t *testing.T) {
	cfg := testConfig()
	sink := &countingSink{}
	f := buildAuditTestEngine(t, cfg, sink)

	registerTestUser(t, f)
	f.engine.Close()

	// register_success plus email_code_sent, both flushed by Close.
	if got := sink.count.Load(); got < 2 {
		t.Fatalf("expected at least 2 drained events, got %d", got)
	}
}

func TestJSONWriterSinkWritesLines(t *testing.T) {
	var buf bytes.Buffer
	sink := NewJSONWriterSink(&buf)

	sink.Emit(context.Background(), AuditEvent{
		Timestamp: time.Unix(0, 0).UTC(),
		EventType: "login_success",
		UserID:    "u1",
		Success:   true,
	})

	line := buf.String()
	if !strings.HasSuffix(line, "\n") {
		t.Fatal("expected newline-terminated output")
	}
	if !strings.Contains(line, `"event_type":"login_success"`) {
		t.Fatalf("unexpected output: %s", line)
	}
	if strings.Contains(line, `"token_id"`) {
		t.Fatalf("empty token id should be omitted: %s", line)
	}
}

func TestAuditDropsUnderBackpressure(t *testing.T) {
	cfg := AuditConfig{Enabled: true, BufferSize: 1, DropIfFull: true}

	gate := make(chan struct{})
	blocked := blockingSink{gate: gate}
	d := newAuditDispatcher(cfg, blocked)
	defer d.Close()
	defer close(gate)

	// First event occupies the worker, second fills the buffer, the rest drop.
	for i := 0; i < 8; i++ {
		d.Emit(context.Background(), AuditEvent{EventType: "login_failure"})
	}

	if d.Dropped() == 0 {
		t.Fatal("expected dropped events under backpressure")
	}
}

type blockingSink struct {
	gate chan struct{}
}

func (s blockingSink) Emit(context.Context, AuditEvent) {
	<-s.gate
}
